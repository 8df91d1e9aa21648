package notify

import (
	"context"
	"time"
)

// Kind enumerates notification identifiers.
type Kind string

const (
	KindSupervisorChanged  Kind = "supervisor_changed"
	KindRoleChanged        Kind = "role_changed"
	KindAccountDeactivated Kind = "account_deactivated"
	KindPresenceSync       Kind = "presence_sync"
)

// Notification is a message addressed to one user. RecipientID routes the
// message inside the gateway; RecipientEmail is carried for transports that
// address by mailbox.
type Notification struct {
	ID             string         `json:"id"`
	Kind           Kind           `json:"kind"`
	RecipientID    string         `json:"recipient_id"`
	RecipientEmail string         `json:"recipient_email,omitempty"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	Data           map[string]any `json:"data,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// PresenceEvent is broadcast to every connected session.
type PresenceEvent struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Notifier delivers a notification to a single user.
type Notifier interface {
	NotifyUser(ctx context.Context, notification Notification) error
}

// PresenceBroadcaster pushes an event to all connected sessions.
type PresenceBroadcaster interface {
	Broadcast(ctx context.Context, event PresenceEvent) error
}
