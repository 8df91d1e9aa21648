package domain

import "time"

// User is the workforce directory record for a single person. Identity is
// anchored by ExternalID, the subject issued by the identity provider; the
// local ID exists for relational integrity only.
type User struct {
	ID           string
	ExternalID   string
	Email        string
	FirstName    string
	LastName     string
	Role         Role
	SupervisorID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// IsActive reports whether the user may act in or be targeted by workforce
// operations. Soft-deleted users stay in storage for audit but are inert.
func (u *User) IsActive() bool {
	return u.DeletedAt == nil
}

// IsEmployee reports whether the user currently holds the Employee role.
// Only employees carry a supervisor assignment.
func (u *User) IsEmployee() bool {
	return u.Role == RoleEmployee
}

// IsSupervisor reports whether the user can be assigned direct reports.
func (u *User) IsSupervisor() bool {
	return u.Role == RoleSupervisor
}

// FullName joins first and last name for display and notification payloads.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
