package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"court_flow_app_go/models"
	"court_flow_app_go/services/i18n"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// MaxNotificationRetries is the number of failed drains before a job is dead-lettered
	MaxNotificationRetries = 5
	notificationBatchSize  = 50
	notificationClaimTTL   = 30 * time.Second
)

// NotificationRequest describes one notice to a set of recipients.
// Title and message are catalogue keys rendered per recipient language.
type NotificationRequest struct {
	ProcessID  string
	Recipients []string
	Category   string
	TitleKey   string
	MessageKey string
	Params     map[string]interface{}
	ActionRef  string
}

// NotificationDispatcher turns notices into per-recipient records. Business
// transactions only write outbox jobs; delivery happens after commit and a
// failed delivery never rolls back the change that caused it.
type NotificationDispatcher struct {
	DB      *gorm.DB
	Mailer  Mailer
	AppURL  string
	Metrics *Metrics
	Now     func() time.Time

	kick    chan struct{}
	drainMu sync.Mutex
}

func NewNotificationDispatcher(db *gorm.DB, mailer Mailer, appURL string) *NotificationDispatcher {
	return &NotificationDispatcher{
		DB:     db,
		Mailer: mailer,
		AppURL: strings.TrimSuffix(appURL, "/"),
		Now:    time.Now,
		kick:   make(chan struct{}, 1),
	}
}

// Enqueue writes an outbox job inside the caller's transaction
func (d *NotificationDispatcher) Enqueue(tx *gorm.DB, req NotificationRequest) error {
	recipients := uniqueRecipients(req.Recipients)
	if len(recipients) == 0 {
		log.Printf("[NOTIFY] Skipping %s notice without recipients (process: %s)", req.TitleKey, req.ProcessID)
		return nil
	}

	job := models.NotificationJob{
		Recipients: models.StringList(recipients),
		Category:   req.Category,
		TitleKey:   req.TitleKey,
		MessageKey: req.MessageKey,
		Params:     models.JSONMap(req.Params),
		ActionRef:  req.ActionRef,
		Status:     models.NotificationJobPending,
	}
	if req.ProcessID != "" {
		pid := req.ProcessID
		job.ProcessID = &pid
	}
	if err := tx.Create(&job).Error; err != nil {
		return storageError("failed to enqueue notification", err)
	}
	return nil
}

// Kick wakes the worker after a commit. It never blocks.
func (d *NotificationDispatcher) Kick() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Notify creates one record per recipient right away. Individual failures
// are logged and skipped; the number of records created is returned.
func (d *NotificationDispatcher) Notify(ctx context.Context, recipients []string, category, title, message, actionRef string) int {
	created := 0
	for _, userID := range uniqueRecipients(recipients) {
		n := models.Notification{
			UserID:    userID,
			Category:  category,
			Title:     title,
			Message:   message,
			ActionRef: actionRef,
		}
		if err := d.DB.WithContext(ctx).Create(&n).Error; err != nil {
			log.Printf("[NOTIFY] Failed to create notification for user %s: %v", userID, err)
			d.Metrics.notificationFailed()
			continue
		}
		created++
		d.Metrics.notificationDelivered()
	}
	return created
}

// Drain delivers pending outbox jobs and returns how many were completed
func (d *NotificationDispatcher) Drain(ctx context.Context) (int, error) {
	d.drainMu.Lock()
	defer d.drainMu.Unlock()

	claimToken := uuid.NewString()
	jobs, err := d.claim(ctx, claimToken)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for i := range jobs {
		if d.deliver(ctx, &jobs[i], claimToken) {
			delivered++
		}
	}
	if len(jobs) > 0 {
		log.Printf("[NOTIFY] Outbox batch processed: %d claimed, %d delivered", len(jobs), delivered)
	}
	return delivered, nil
}

// claim marks a batch of pending jobs with claimToken so concurrent drains skip them
func (d *NotificationDispatcher) claim(ctx context.Context, claimToken string) ([]models.NotificationJob, error) {
	db := d.DB.WithContext(ctx)
	now := d.Now()

	var ids []string
	if err := db.Model(&models.NotificationJob{}).
		Where("status = ?", models.NotificationJobPending).
		Where("claim_until IS NULL OR claim_until < ?", now).
		Order("created_at ASC").
		Limit(notificationBatchSize).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending notification jobs: %w", err)
	}

	claimUntil := now.Add(notificationClaimTTL)
	for _, id := range ids {
		res := db.Model(&models.NotificationJob{}).
			Where("id = ? AND status = ?", id, models.NotificationJobPending).
			Where("claim_until IS NULL OR claim_until < ?", now).
			Updates(map[string]interface{}{"claim_token": claimToken, "claim_until": claimUntil})
		if res.Error != nil {
			return nil, fmt.Errorf("failed to claim notification job %s: %w", id, res.Error)
		}
	}

	var jobs []models.NotificationJob
	if err := db.Where("claim_token = ? AND status = ?", claimToken, models.NotificationJobPending).
		Order("created_at ASC").
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to load claimed notification jobs: %w", err)
	}
	return jobs, nil
}

// deliver creates the records of one job. Records are keyed by (job, user)
// so a retried job never duplicates a recipient.
func (d *NotificationDispatcher) deliver(ctx context.Context, job *models.NotificationJob, claimToken string) bool {
	db := d.DB.WithContext(ctx)

	var users []models.User
	if err := db.Where("id IN ?", []string(job.Recipients)).Find(&users).Error; err != nil {
		d.fail(ctx, job, claimToken, fmt.Sprintf("failed to load recipients: %v", err))
		return false
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	var failures []string
	for _, userID := range job.Recipients {
		user, ok := byID[userID]
		if !ok {
			// Unknown users cannot be retried into existence
			log.Printf("[NOTIFY] Dropping notice %s for unknown user %s", job.TitleKey, userID)
			continue
		}

		title := i18n.Translate(user.Language, job.TitleKey, job.Params)
		message := i18n.Translate(user.Language, job.MessageKey, job.Params)
		jobID := job.ID
		n := models.Notification{
			UserID:    userID,
			ProcessID: job.ProcessID,
			JobID:     &jobID,
			Category:  job.Category,
			Title:     title,
			Message:   message,
			ActionRef: job.ActionRef,
		}
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&n)
		if res.Error != nil {
			log.Printf("[NOTIFY] Failed to create notification for user %s (job %s): %v", userID, job.ID, res.Error)
			d.Metrics.notificationFailed()
			failures = append(failures, fmt.Sprintf("%s: %v", userID, res.Error))
			continue
		}
		if res.RowsAffected == 0 {
			continue // delivered by an earlier attempt
		}
		d.Metrics.notificationDelivered()
		d.sendEmail(user, title, message, job.ActionRef)
	}

	if len(failures) > 0 {
		d.fail(ctx, job, claimToken, strings.Join(failures, "; "))
		return false
	}

	now := d.Now()
	if err := db.Model(&models.NotificationJob{}).
		Where("id = ? AND claim_token = ?", job.ID, claimToken).
		Updates(map[string]interface{}{
			"status":       models.NotificationJobDelivered,
			"delivered_at": now,
			"claim_token":  nil,
			"claim_until":  nil,
		}).Error; err != nil {
		log.Printf("[NOTIFY] Failed to mark job %s delivered: %v", job.ID, err)
		return false
	}
	return true
}

// fail records a failed attempt and dead-letters the job at the retry limit
func (d *NotificationDispatcher) fail(ctx context.Context, job *models.NotificationJob, claimToken, errMsg string) {
	now := d.Now()
	updates := map[string]interface{}{
		"retry_count":   gorm.Expr("retry_count + 1"),
		"last_error":    errMsg,
		"last_error_at": now,
		"claim_token":   nil,
		"claim_until":   nil,
	}
	if job.RetryCount+1 >= MaxNotificationRetries {
		updates["status"] = models.NotificationJobDeadLettered
		updates["dead_lettered_at"] = now
		d.Metrics.jobDeadLettered()
		log.Printf("[NOTIFY] Job %s dead-lettered after %d attempts: %s", job.ID, job.RetryCount+1, errMsg)
	} else {
		log.Printf("[NOTIFY] Job %s failed (attempt %d), retry scheduled: %s", job.ID, job.RetryCount+1, errMsg)
	}
	if err := d.DB.WithContext(ctx).Model(&models.NotificationJob{}).
		Where("id = ? AND claim_token = ?", job.ID, claimToken).
		Updates(updates).Error; err != nil {
		log.Printf("[NOTIFY] Failed to record failure of job %s: %v", job.ID, err)
	}
}

// sendEmail sends the e-mail copy of a record; failures are logged only
func (d *NotificationDispatcher) sendEmail(user models.User, title, message, actionRef string) {
	if d.Mailer == nil || user.Email == "" {
		return
	}
	actionURL := ""
	if actionRef != "" {
		actionURL = d.AppURL + actionRef
	}
	lang := user.Language
	if lang == "" {
		lang = i18n.DefaultLanguage
	}
	email, err := BuildNotificationEmail(user.Email, NotificationEmailData{
		Lang:      lang,
		Title:     title,
		Message:   message,
		ActionURL: actionURL,
	})
	if err != nil {
		log.Printf("[NOTIFY] Failed to build email for user %s: %v", user.ID, err)
		return
	}
	if err := d.Mailer.Send(email); err != nil {
		log.Printf("[NOTIFY] Failed to email user %s: %v", user.ID, err)
	}
}

// Run drains the outbox whenever it is kicked and every interval until ctx is done
func (d *NotificationDispatcher) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[NOTIFY] Notification worker started (interval: %s)", interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[NOTIFY] Notification worker stopped")
			return nil
		case <-d.kick:
		case <-ticker.C:
		}
		if _, err := d.Drain(ctx); err != nil {
			log.Printf("[NOTIFY] Outbox drain failed: %v", err)
		}
	}
}

// ListUnread returns the newest unread notifications of a user
func (d *NotificationDispatcher) ListUnread(userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	var notifications []models.Notification
	err := d.DB.Where("user_id = ? AND read_at IS NULL", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

// MarkAsRead marks one of the user's notifications read
func (d *NotificationDispatcher) MarkAsRead(notificationID, userID string) error {
	res := d.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read_at", d.Now())
	if res.Error != nil {
		return fmt.Errorf("failed to mark notification as read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundError("notification", notificationID)
	}
	return nil
}

// MarkAllAsRead marks every unread notification of the user
func (d *NotificationDispatcher) MarkAllAsRead(userID string) (int64, error) {
	res := d.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", d.Now())
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// UnreadCount counts unread notifications of a user
func (d *NotificationDispatcher) UnreadCount(userID string) (int64, error) {
	var count int64
	err := d.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

func uniqueRecipients(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func processActionRef(processID string) string {
	return "/processes/" + processID
}
