package domain

import (
	"strings"
	"time"
)

// SupervisorAssignment is a request to point a batch of employees at a new
// supervisor. A nil SupervisorEmail clears the assignment for every target.
type SupervisorAssignment struct {
	EmployeeEmails  []string
	SupervisorEmail *string
	RequestedAt     time.Time
}

// SupervisorAssignmentResult reports the outcome of an applied assignment.
type SupervisorAssignmentResult struct {
	AffectedCount int
	Supervisor    *User
	Targets       []User
}

// NormalizeEmail canonicalizes an address for lookup and storage. Addresses
// are compared case-insensitively across the whole directory.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Normalized returns a copy with every email canonicalized and duplicate
// targets dropped, first occurrence wins. Blank entries survive so callers
// can reject them with a precise position.
func (a SupervisorAssignment) Normalized() SupervisorAssignment {
	out := SupervisorAssignment{
		EmployeeEmails: make([]string, 0, len(a.EmployeeEmails)),
		RequestedAt:    a.RequestedAt,
	}
	seen := make(map[string]struct{}, len(a.EmployeeEmails))
	for _, raw := range a.EmployeeEmails {
		email := NormalizeEmail(raw)
		if _, dup := seen[email]; dup && email != "" {
			continue
		}
		seen[email] = struct{}{}
		out.EmployeeEmails = append(out.EmployeeEmails, email)
	}
	if a.SupervisorEmail != nil {
		email := NormalizeEmail(*a.SupervisorEmail)
		out.SupervisorEmail = &email
	}
	return out
}

// ClearsSupervisor reports whether the request detaches targets instead of
// assigning a new supervisor.
func (a SupervisorAssignment) ClearsSupervisor() bool {
	return a.SupervisorEmail == nil
}
