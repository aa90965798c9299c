// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/pantry/email"
	"go.uber.org/zap"
)

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Email is one outgoing message.
type Email struct {
	To       []string
	Subject  string
	TextBody string
	HTMLBody string
}

// sender is the part of email.Sender the Mailer uses.
type sender interface {
	Send(ctx context.Context, msg email.Message) error
}

// Mailer sends mail over SMTP through pantry/email.
type Mailer struct {
	cfg    Config
	log    *zap.Logger
	client sender
}

// New creates a Mailer. With an empty host, messages are logged instead of
// sent.
func New(cfg Config, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Mailer{cfg: cfg, log: logger}
	if cfg.Host != "" {
		m.client = email.NewSender(email.Config{
			Host:        cfg.Host,
			Port:        cfg.Port,
			Username:    cfg.Username,
			Password:    cfg.Password,
			FromAddress: cfg.From,
			FromName:    cfg.FromName,
		})
	}
	return m
}

// Send delivers e as a text and HTML alternative.
func (m *Mailer) Send(ctx context.Context, e Email) error {
	if len(e.To) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.client == nil {
		m.log.Info("mail disabled; dropping message",
			zap.Strings("to", e.To),
			zap.String("subject", e.Subject))
		return nil
	}

	err := m.client.Send(ctx, email.Message{
		To:       e.To,
		Subject:  e.Subject,
		TextBody: e.TextBody,
		HTMLBody: e.HTMLBody,
	})
	if err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	m.log.Info("mail sent", zap.Int("recipients", len(e.To)), zap.String("subject", e.Subject))
	return nil
}
