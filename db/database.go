package db

import (
	"court_flow_app_go/config"
	"court_flow_app_go/models"
	"fmt"
	"log"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Drivers supported by Open
const (
	DriverSQLite   = "sqlite"
	DriverLibSQL   = "libsql"
	DriverPostgres = "postgres"
)

// Open establishes the database connection described by cfg.
// The caller owns the returned handle and must Close it.
func Open(cfg *config.Config) (*gorm.DB, error) {
	// Determine log level based on environment
	logLevel := logger.Info
	if cfg.Environment == "production" {
		logLevel = logger.Warn
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		dialector = postgres.Open(cfg.DatabaseURL)
	case DriverLibSQL:
		if cfg.TursoDatabaseURL == "" {
			return nil, fmt.Errorf("TURSO_DATABASE_URL is required for the libsql driver")
		}
		dsn := cfg.TursoDatabaseURL
		if cfg.TursoAuthToken != "" {
			dsn += "?authToken=" + cfg.TursoAuthToken
		}
		dialector = sqlite.New(sqlite.Config{DriverName: "libsql", DSN: dsn})
	case DriverSQLite, "":
		dialector = sqlite.Open(SQLiteDSN(cfg.DBPath))
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.DBDriver)
	}

	database, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Printf("Database connection established (driver: %s)", cfg.DBDriver)
	return database, nil
}

// SQLiteDSN builds a DSN with WAL mode for concurrent readers, a busy timeout,
// and immediate transactions so that stage transitions serialize on the
// write lock instead of failing on a read-to-write upgrade.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"
}

// AllModels lists every persisted model in migration order
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Session{},
		&models.CourtHoliday{},
		&models.Process{},
		&models.ProcessTransition{},
		&models.LegalDocument{},
		&models.Citation{},
		&models.CitationAttempt{},
		&models.Deadline{},
		&models.Hearing{},
		&models.EvidenceItem{},
		&models.NotificationJob{},
		&models.Notification{},
	}
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(database *gorm.DB) error {
	if database == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := database.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed")
	return nil
}

// Close closes the database connection
func Close(database *gorm.DB) error {
	if database == nil {
		return nil
	}

	sqlDB, err := database.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}
