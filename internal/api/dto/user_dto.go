package dto

import (
	"time"

	"github.com/guardline/workforce-service/internal/domain"
)

// UserResponse standard user payload.
type UserResponse struct {
	ID           string      `json:"id"`
	ExternalID   string      `json:"external_id"`
	Email        string      `json:"email"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	FullName     string      `json:"full_name"`
	Role         domain.Role `json:"role"`
	SupervisorID *string     `json:"supervisor_id"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	DeletedAt    *time.Time  `json:"deleted_at,omitempty"`
}

// RoleChangeRequest payload for role updates. Exactly one of role or unassign
// must be set.
type RoleChangeRequest struct {
	Role     string `json:"role" validate:"omitempty"`
	Unassign bool   `json:"unassign"`
}

// AssignableRolesResponse lists the roles the caller may hand out.
type AssignableRolesResponse struct {
	Roles []domain.Role `json:"roles"`
}
