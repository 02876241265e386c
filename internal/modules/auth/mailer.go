package auth

import (
	"context"
	"log/slog"
)

// DevConsoleMailer logs emails instead of sending them. Reset links are only
// written when enabled, since they work as credentials.
type DevConsoleMailer struct {
	enabled bool
	log     *slog.Logger
}

func NewDevConsoleMailer(enabled bool, log *slog.Logger) *DevConsoleMailer {
	if log == nil {
		log = slog.Default()
	}
	return &DevConsoleMailer{enabled: enabled, log: log}
}

func (m *DevConsoleMailer) SendPasswordReset(_ context.Context, to, link, firstName string) error {
	if m.enabled {
		m.log.Info("dev email: password reset", "to", to, "first_name", firstName, "link", link)
	}
	return nil
}

func (m *DevConsoleMailer) SendWelcome(_ context.Context, to, firstName string) error {
	if m.enabled {
		m.log.Info("dev email: welcome", "to", to, "first_name", firstName)
	}
	return nil
}
