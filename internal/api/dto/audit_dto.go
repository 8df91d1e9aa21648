package dto

import (
	"time"

	"github.com/guardline/workforce-service/internal/domain"
)

// AuditEntryResponse represents one audit trail record.
type AuditEntryResponse struct {
	ID         string             `json:"id"`
	EntityName string             `json:"entity_name"`
	EntityID   string             `json:"entity_id"`
	Action     domain.AuditAction `json:"action"`
	ActorID    *string            `json:"actor_id"`
	OldValue   map[string]any     `json:"old_value,omitempty"`
	NewValue   map[string]any     `json:"new_value,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}
