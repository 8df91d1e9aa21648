package domain

import "time"

// AuditAction tags what a trail entry records.
type AuditAction string

const (
	AuditActionSupervisorChange AuditAction = "SUPERVISOR_CHANGE"
	AuditActionRoleChange       AuditAction = "ROLE_CHANGE"
	AuditActionUserDeleted      AuditAction = "USER_DELETED"
	AuditActionUserProvisioned  AuditAction = "USER_PROVISIONED"
)

// AuditEntry is an immutable record of a workforce mutation. Entries are
// appended after commit and never rewritten.
type AuditEntry struct {
	ID         string
	EntityName string
	EntityID   string
	Action     AuditAction
	ActorID    *string
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}
