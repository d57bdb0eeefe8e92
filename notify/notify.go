// Package notify carries user-facing notifications out of the core session,
// executor and event-listener components. The core only sees the Notifier
// port; the gateway and CLI attach concrete sinks.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// Severity classifies a notification for presentation purposes.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is a single user-facing message.
type Notification struct {
	ID        string    `json:"id"`
	Severity  Severity  `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	TxHash    string    `json:"txHash,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier is the port through which every component surfaces messages.
// Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a plain function to the Notifier interface.
type Func func(Notification)

// Notify implements Notifier.
func (f Func) Notify(n Notification) { f(n) }

// Discard drops every notification. Useful in tests that assert elsewhere.
var Discard Notifier = Func(func(Notification) {})

// New builds a notification with a fresh ID and timestamp.
func New(severity Severity, title, message string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Severity:  severity,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// Info, Success and Error are shorthands for New.
func Info(title, message string) Notification    { return New(SeverityInfo, title, message) }
func Success(title, message string) Notification { return New(SeveritySuccess, title, message) }
func Error(title, message string) Notification   { return New(SeverityError, title, message) }
