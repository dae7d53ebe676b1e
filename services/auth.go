package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"

	"court_flow_app_go/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10
	// SessionTokenLength is the length of the session token in bytes (64 chars hex)
	SessionTokenLength = 32
	// DefaultSessionDuration is the default session duration (7 days)
	DefaultSessionDuration = 7 * 24 * time.Hour
)

// ErrInvalidCredentials is returned by Login for unknown users and wrong passwords alike
var ErrInvalidCredentials = errors.New("invalid email or password")

// Actor is the caller identity every workflow operation is authorized against
type Actor struct {
	UserID string
	Role   string
}

// SystemActor is used by scheduled jobs
var SystemActor = Actor{UserID: "system", Role: models.RoleSystem}

// ActorFromUser builds the actor for an authenticated user
func ActorFromUser(u *models.User) Actor {
	if u == nil || !u.IsActive {
		return Actor{Role: models.RoleNone}
	}
	return Actor{UserID: u.ID, Role: u.Role}
}

func (a Actor) IsOfficer() bool {
	return a.Role == models.RolePresidingOfficer
}

func (a Actor) IsFiler() bool {
	return a.Role == models.RoleFiler
}

// requireOfficer allows only the presiding officer assigned to the process
func requireOfficer(a Actor, p *models.Process) error {
	if !a.IsOfficer() {
		return unauthorizedError("only a presiding officer may perform this action")
	}
	if p.PresidingOfficerID != a.UserID {
		return unauthorizedError("caller is not the presiding officer assigned to process %s", p.CaseReference)
	}
	return nil
}

// requireFilerRepresentative allows only the filing party's representative
func requireFilerRepresentative(a Actor, p *models.Process) error {
	if !a.IsFiler() {
		return unauthorizedError("only a party representative may perform this action")
	}
	if p.FilerRepresentativeID != a.UserID {
		return unauthorizedError("caller does not represent the filing party of process %s", p.CaseReference)
	}
	return nil
}

// requireResponderRepresentative allows the responding party's representative.
// Until one is recorded any representative other than the filer's qualifies.
func requireResponderRepresentative(a Actor, p *models.Process) error {
	if !a.IsFiler() {
		return unauthorizedError("only a party representative may perform this action")
	}
	if p.FilerRepresentativeID == a.UserID {
		return unauthorizedError("the filing party's representative cannot act for the responding party")
	}
	if p.ResponderRepresentativeID != nil && *p.ResponderRepresentativeID != "" && *p.ResponderRepresentativeID != a.UserID {
		return unauthorizedError("caller does not represent the responding party of process %s", p.CaseReference)
	}
	return nil
}

// requirePartyRepresentative allows either party's representative
func requirePartyRepresentative(a Actor, p *models.Process) error {
	if !a.IsFiler() || !p.IsRepresentative(a.UserID) {
		return unauthorizedError("caller does not represent a party of process %s", p.CaseReference)
	}
	return nil
}

// requireParticipant allows the assigned officer or either representative
func requireParticipant(a Actor, p *models.Process) error {
	if a.IsOfficer() && p.PresidingOfficerID == a.UserID {
		return nil
	}
	if a.IsFiler() && p.IsRepresentative(a.UserID) {
		return nil
	}
	return unauthorizedError("caller does not participate in process %s", p.CaseReference)
}

// MinPasswordLength is the shortest password accepted for new accounts
const MinPasswordLength = 10

// ValidatePassword requires MinPasswordLength characters mixing letters and digits
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("password must contain both letters and digits")
	}
	return nil
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// VerifyPassword verifies a password against a bcrypt hash
func VerifyPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

// GenerateSessionToken generates a cryptographically secure random token
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, SessionTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Login checks the credentials and opens a session
func Login(db *gorm.DB, email, password, ipAddress, userAgent string) (*models.Session, *models.User, error) {
	var user models.User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := db.Where("email = ? AND is_active = ?", email, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			LogSecurityEvent("LOGIN_FAILED", "", "unknown email "+email)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !VerifyPassword(user.Password, password) {
		LogSecurityEvent("LOGIN_FAILED", user.ID, "wrong password")
		return nil, nil, ErrInvalidCredentials
	}

	session, err := CreateSession(db, user.ID, ipAddress, userAgent)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	db.Model(&user).Update("last_login_at", now)
	LogSecurityEvent("LOGIN", user.ID, ipAddress)
	return session, &user, nil
}

// CreateSession creates a new session for a user
func CreateSession(db *gorm.DB, userID, ipAddress, userAgent string) (*models.Session, error) {
	token, err := GenerateSessionToken()
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: time.Now().Add(DefaultSessionDuration),
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}

	if err := db.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// ValidateSession validates a session token and returns the session if valid
func ValidateSession(db *gorm.DB, token string) (*models.Session, error) {
	var session models.Session

	err := db.Preload("User").
		Where("token = ?", token).
		First(&session).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session not found")
		}
		return nil, fmt.Errorf("failed to validate session: %w", err)
	}

	if session.IsExpired() {
		// Delete expired session
		db.Delete(&session)
		return nil, fmt.Errorf("session expired")
	}

	return &session, nil
}

// ResolveActor maps a caller token to an actor. Unknown, expired or
// inactive callers resolve to RoleNone.
func ResolveActor(db *gorm.DB, token string) (Actor, *models.User) {
	if token == "" {
		return Actor{Role: models.RoleNone}, nil
	}
	session, err := ValidateSession(db, token)
	if err != nil {
		return Actor{Role: models.RoleNone}, nil
	}
	return ActorFromUser(&session.User), &session.User
}

// DeleteSession deletes a session (logout)
func DeleteSession(db *gorm.DB, token string) error {
	result := db.Where("token = ?", token).Delete(&models.Session{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete session: %w", result.Error)
	}
	return nil
}

// CleanupExpiredSessions removes all expired sessions from the database
func CleanupExpiredSessions(db *gorm.DB) error {
	result := db.Where("expires_at < ?", time.Now()).Delete(&models.Session{})
	if result.Error != nil {
		return fmt.Errorf("failed to cleanup expired sessions: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Printf("[JOB] Cleaned up %d expired sessions", result.RowsAffected)
	}
	return nil
}

// LogSecurityEvent logs security-related events
func LogSecurityEvent(eventType, userID, details string) {
	log.Printf("[SECURITY] %s | User: %s | Details: %s", eventType, userID, details)
}
