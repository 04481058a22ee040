package domain

import (
	"context"
	"time"
)

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the
// given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// InviteEmailData holds data for the collaborator invite email.
type InviteEmailData struct {
	Email       string
	InviterName string
	EstateName  string
	Role        string
	InviteURL   string
	ExpiresAt   time.Time
}

// WelcomeEmailData holds data for the signup welcome email.
type WelcomeEmailData struct {
	Email string
	Name  string
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendInvite(ctx context.Context, data *InviteEmailData) error
	SendWelcome(ctx context.Context, data *WelcomeEmailData) error
}
