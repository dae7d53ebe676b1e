package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"court_flow_app_go/config"
	"court_flow_app_go/db"
	"court_flow_app_go/handlers"
	"court_flow_app_go/services"
	"court_flow_app_go/services/i18n"
	"court_flow_app_go/services/jobs"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if err := i18n.Load(); err != nil {
		log.Fatalf("Failed to load translations: %v", err)
	}

	// Initialize database
	database, err := db.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close(database)

	// Run migrations
	if err := db.AutoMigrate(database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Court calendar: configured holidays plus the court_holidays table
	calendar, err := services.NewBusinessCalendarForZone(cfg.CourtTimezone, cfg.CourtHolidays)
	if err != nil {
		log.Fatalf("Failed to load court time zone: %v", err)
	}
	if n, err := calendar.LoadHolidays(database); err != nil {
		log.Printf("Warning: failed to load court holidays: %v", err)
	} else {
		log.Printf("Loaded %d court holidays", n)
	}

	wf := services.NewWorkflow(database, calendar,
		services.WithMailer(services.NewMailer(cfg)),
		services.WithStorage(services.NewStorage(cfg)),
		services.WithMetrics(services.DefaultMetrics()),
		services.WithAppURL(cfg.AppURL),
	)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomiddleware.RequestLogger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: true,
	}))

	// Make config available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})

	handlers.NewHandler(wf, cfg).Register(e)

	scheduler, err := jobs.StartScheduler(database, cfg, wf)
	if err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return wf.Notifier.Run(ctx, cfg.NotificationDrainInterval)
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down")

		<-scheduler.Stop().Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
	log.Println("Server stopped")
}
