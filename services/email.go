package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"strings"
	texttemplate "text/template"

	"court_flow_app_go/config"

	"github.com/resend/resend-go/v2"
)

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// Mailer delivers e-mails. Delivery is best-effort for notifications.
type Mailer interface {
	Send(email *Email) error
}

// ResendMailer sends through the Resend API, or logs to the console in test mode
type ResendMailer struct {
	cfg    *config.Config
	client *resend.Client
}

// NewMailer builds the mailer described by cfg
func NewMailer(cfg *config.Config) *ResendMailer {
	m := &ResendMailer{cfg: cfg}
	if cfg.ResendAPIKey != "" {
		m.client = resend.NewClient(cfg.ResendAPIKey)
	}
	return m
}

// Send sends an email using Resend API
func (m *ResendMailer) Send(email *Email) error {
	// In development mode, log the email instead of sending
	if m.cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	if m.client == nil {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", m.cfg.EmailFromName, m.cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}

	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	sent, err := m.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %v", err)
	}

	log.Printf("[NOTIFY] Email sent via Resend (ID: %s) to: %v", sent.Id, email.To)
	return nil
}

// logEmailToConsole logs email details to console in development mode
func logEmailToConsole(email *Email) {
	separator := strings.Repeat("=", 80)
	log.Printf("\n%s\nEMAIL (Development Mode - Not Actually Sent)\n%s", separator, separator)
	log.Printf("To: %v", email.To)
	log.Printf("Subject: %s", email.Subject)
	log.Printf("\n--- TEXT BODY ---\n%s", email.TextBody)
	log.Printf("%s\n", separator)
}

const notificationHTML = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <h2>{{.Title}}</h2>
  <p>{{.Message}}</p>
  {{if .ActionURL}}<p><a href="{{.ActionURL}}">{{.ActionURL}}</a></p>{{end}}
</body>
</html>`

const notificationText = `{{.Title}}

{{.Message}}
{{if .ActionURL}}
{{.ActionURL}}
{{end}}`

var (
	notificationHTMLTmpl = template.Must(template.New("notification_html").Parse(notificationHTML))
	notificationTextTmpl = texttemplate.Must(texttemplate.New("notification_text").Parse(notificationText))
)

// NotificationEmailData contains data for the notification email template
type NotificationEmailData struct {
	Lang      string
	Title     string
	Message   string
	ActionURL string
}

// BuildNotificationEmail renders the e-mail copy of a notification record
func BuildNotificationEmail(to string, data NotificationEmailData) (*Email, error) {
	var htmlBuf, textBuf bytes.Buffer
	if err := notificationHTMLTmpl.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to execute notification html template: %w", err)
	}
	if err := notificationTextTmpl.Execute(&textBuf, data); err != nil {
		return nil, fmt.Errorf("failed to execute notification text template: %w", err)
	}
	return &Email{
		To:       []string{to},
		Subject:  data.Title,
		HTMLBody: htmlBuf.String(),
		TextBody: textBuf.String(),
	}, nil
}
