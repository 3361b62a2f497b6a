package email

import (
	"context"
	"fmt"
	"net/smtp"
)

// SMTPConfig holds the configuration for the SMTP relay sender.
type SMTPConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	SenderAddress string
	SenderName    string
}

// SMTPSender implements Sender over a standard SMTP relay.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates a new SMTPSender
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send sends an email through the configured relay
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	from := s.cfg.SenderAddress
	if s.cfg.SenderName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.SenderName, s.cfg.SenderAddress)
	}

	raw := buildMIME(from, msg)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	// net/smtp has no context support; honor cancellation before dialing
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := smtp.SendMail(addr, auth, s.cfg.SenderAddress, []string{msg.To}, []byte(raw)); err != nil {
		return fmt.Errorf("smtp: failed to send email: %w", err)
	}
	return nil
}
