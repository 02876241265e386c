package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

type Type string

const (
	LoginSucceeded         Type = "login_succeeded"
	LoginFailed            Type = "login_failed"
	AccountLocked          Type = "account_locked"
	Registered             Type = "registered"
	TokenRefreshed         Type = "token_refreshed"
	Logout                 Type = "logout"
	LogoutAll              Type = "logout_all"
	PasswordResetRequested Type = "password_reset_requested"
	PasswordReset          Type = "password_reset"
)

// Event is an audit record of something that happened to an account. It never
// carries secrets.
type Event struct {
	Type       Type              `json:"type"`
	UserID     string            `json:"user_id,omitempty"`
	IP         string            `json:"ip,omitempty"`
	UserAgent  string            `json:"user_agent,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// LogPublisher writes events to a logger. Used when no broker is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, e Event) error {
	l := p.Logger
	if l == nil {
		l = slog.Default()
	}
	l.InfoContext(ctx, "auth event",
		"type", e.Type,
		"user_id", e.UserID,
		"ip", e.IP,
		"attributes", e.Attributes,
	)
	return nil
}

func encode(e Event) ([]byte, error) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	return json.Marshal(e)
}
