package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles
const (
	RoleFiler            = "filer"             // representative of a party (lawyer)
	RolePresidingOfficer = "presiding_officer" // judge of the court
	RoleSystem           = "system"            // scheduled jobs, never assigned to a user
	RoleNone             = ""
)

type User struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name        string     `gorm:"not null" json:"name"`
	Email       string     `gorm:"uniqueIndex;not null" json:"email"`
	Password    string     `gorm:"not null" json:"-"`
	Role        string     `gorm:"not null;default:filer" json:"role"`
	CourtID     *string    `gorm:"index" json:"court_id,omitempty"` // presiding officers only
	Language    string     `gorm:"not null;default:es" json:"language"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// IsValidRole checks if the role can be assigned to a user
func IsValidRole(role string) bool {
	return role == RoleFiler || role == RolePresidingOfficer
}
