package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification categories
const (
	NotificationCategoryProcess  = "PROCESS_UPDATE"
	NotificationCategoryCitation = "CITATION"
	NotificationCategoryDeadline = "DEADLINE"
	NotificationCategoryHearing  = "HEARING"
	NotificationCategoryJudgment = "JUDGMENT"
)

// Notification is one delivery record for one recipient
type Notification struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Targeting
	UserID    string  `gorm:"type:uuid;not null;index;uniqueIndex:idx_notification_job_user" json:"user_id"`
	ProcessID *string `gorm:"type:uuid;index" json:"process_id,omitempty"`
	// JobID is set for records produced from the outbox; a retried job
	// never duplicates a recipient
	JobID *string `gorm:"type:uuid;uniqueIndex:idx_notification_job_user" json:"-"`

	// Content
	Category  string `gorm:"not null" json:"category"`
	Title     string `gorm:"not null" json:"title"`
	Message   string `gorm:"type:text" json:"message"`
	ActionRef string `json:"action_ref,omitempty"` // e.g., "/processes/{process_id}"

	// Read tracking
	ReadAt *time.Time `json:"read_at,omitempty"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// Notification job status constants
const (
	NotificationJobPending      = "PENDING"
	NotificationJobDelivered    = "DELIVERED"
	NotificationJobDeadLettered = "DEAD_LETTERED"
)

// NotificationJob is an outbox row written in the same transaction as the
// business change that triggered it. The dispatcher turns it into
// Notification records after commit.
type NotificationJob struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProcessID  *string    `gorm:"type:uuid;index" json:"process_id,omitempty"`
	Recipients StringList `gorm:"type:text" json:"recipients"`
	Category   string     `gorm:"not null" json:"category"`
	// TitleKey and MessageKey are i18n keys rendered per recipient language
	TitleKey   string  `gorm:"not null" json:"title_key"`
	MessageKey string  `gorm:"not null" json:"message_key"`
	Params     JSONMap `gorm:"type:text" json:"params"`
	ActionRef  string  `json:"action_ref,omitempty"`

	Status         string     `gorm:"not null;default:PENDING;index" json:"status"`
	RetryCount     int        `gorm:"not null;default:0" json:"retry_count"`
	LastError      string     `gorm:"type:text" json:"last_error,omitempty"`
	LastErrorAt    *time.Time `json:"last_error_at,omitempty"`
	ClaimToken     *string    `gorm:"index" json:"-"`
	ClaimUntil     *time.Time `json:"-"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	DeadLetteredAt *time.Time `json:"dead_lettered_at,omitempty"`
}

func (j *NotificationJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	if j.Status == "" {
		j.Status = NotificationJobPending
	}
	return nil
}

func (NotificationJob) TableName() string {
	return "notification_jobs"
}
