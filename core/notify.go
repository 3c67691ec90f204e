package core

import "context"

// NotificationLevel is the category of a user-facing notification (toast).
type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelInfo    NotificationLevel = "info"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
)

type Notification struct {
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
}

// Notifier surfaces messages to the user of the dashboard.
type Notifier interface {
	Notify(ctx context.Context, level NotificationLevel, msg string)
}

// CredentialProvider supplies the current access token.
// An empty token with a nil error means there is no session.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}
