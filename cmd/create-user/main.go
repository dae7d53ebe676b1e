package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"court_flow_app_go/config"
	"court_flow_app_go/db"
	"court_flow_app_go/models"
	"court_flow_app_go/services"

	"golang.org/x/term"
)

func main() {
	// Load configuration
	cfg := config.Load()

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

	reader := bufio.NewReader(os.Stdin)
	prompt := func(label string) string {
		fmt.Print(label)
		value, _ := reader.ReadString('\n')
		return strings.TrimSpace(value)
	}

	fmt.Println("=== Create New User ===")
	fmt.Println()

	name := prompt("Name: ")
	email := strings.ToLower(prompt("Email: "))

	fmt.Print("Role (1 = party representative, 2 = presiding officer): ")
	roleChoice, _ := reader.ReadString('\n')
	role := models.RoleFiler
	if strings.TrimSpace(roleChoice) == "2" {
		role = models.RolePresidingOfficer
	}

	var courtID *string
	if role == models.RolePresidingOfficer {
		if court := prompt("Court ID: "); court != "" {
			courtID = &court
		}
	}

	language := prompt("Language [es/en] (default es): ")
	if language != "en" {
		language = "es"
	}

	// Get password securely
	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		log.Fatalf("Failed to read password: %v", err)
	}
	password := string(passwordBytes)
	fmt.Println() // New line after password input

	// Validate inputs
	if name == "" || email == "" || password == "" {
		log.Fatal("Name, email, and password are required")
	}
	if err := services.ValidatePassword(password); err != nil {
		log.Fatalf("Invalid password: %v", err)
	}
	if role == models.RolePresidingOfficer && courtID == nil {
		log.Fatal("A presiding officer must belong to a court")
	}

	var existingUser models.User
	if err := database.Where("email = ?", email).First(&existingUser).Error; err == nil {
		log.Fatalf("User with email %s already exists", email)
	}

	hashedPassword, err := services.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: hashedPassword,
		Role:     role,
		CourtID:  courtID,
		Language: language,
		IsActive: true,
	}
	if err := database.Create(user).Error; err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Println()
	fmt.Println("✓ User created successfully!")
	fmt.Printf("  ID: %s\n", user.ID)
	fmt.Printf("  Name: %s\n", user.Name)
	fmt.Printf("  Email: %s\n", user.Email)
	fmt.Printf("  Role: %s\n", user.Role)
	fmt.Println()
	fmt.Printf("The user can now log in with POST %s/api/login\n", cfg.AppURL)
}
