package email

import (
	"context"
	"fmt"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/config"
)

// Sender is the interface that all email providers must implement.
// This abstraction allows swapping email providers (Gmail, SMTP relay, SES,
// etc.) without changing business logic.
type Sender interface {
	// Send sends an email to the specified recipient.
	Send(ctx context.Context, msg Message) error
}

// Message represents an email message to be sent.
type Message struct {
	To       string // recipient email address
	Subject  string // email subject
	HTMLBody string // HTML email body
	TextBody string // plain-text fallback body
}

// NewSender builds a Sender from configuration
func NewSender(ctx context.Context, cfg config.EmailConfig) (Sender, error) {
	switch cfg.Provider {
	case "gmail":
		if cfg.Gmail.CredentialsJSON != "" {
			return NewGmailSender(ctx, GmailConfig{
				CredentialsJSON: cfg.Gmail.CredentialsJSON,
				SenderAddress:   cfg.Gmail.SenderAddress,
				SenderName:      cfg.Gmail.SenderName,
			})
		}
		return NewGmailSenderWithToken(ctx,
			cfg.Gmail.ClientID, cfg.Gmail.ClientSecret, cfg.Gmail.RefreshToken,
			cfg.Gmail.SenderAddress, cfg.Gmail.SenderName)
	case "smtp":
		return NewSMTPSender(SMTPConfig{
			Host:          cfg.SMTP.Host,
			Port:          cfg.SMTP.Port,
			Username:      cfg.SMTP.Username,
			Password:      cfg.SMTP.Password,
			SenderAddress: cfg.SMTP.SenderAddress,
			SenderName:    cfg.SMTP.SenderName,
		}), nil
	default:
		return nil, fmt.Errorf("email: unknown provider %q", cfg.Provider)
	}
}
