package domain

import "fmt"

// Role enumerates workforce roles, totally ordered by privilege.
type Role string

const (
	RoleUnassigned     Role = "UNASSIGNED"
	RoleEmployee       Role = "EMPLOYEE"
	RoleContactManager Role = "CONTACT_MANAGER"
	RoleSupervisor     Role = "SUPERVISOR"
	RoleAdmin          Role = "ADMIN"
	RoleSuperAdmin     Role = "SUPER_ADMIN"
)

// roleLevels is the single source of truth for the privilege order.
var roleLevels = map[Role]int{
	RoleUnassigned:     0,
	RoleEmployee:       1,
	RoleContactManager: 2,
	RoleSupervisor:     3,
	RoleAdmin:          4,
	RoleSuperAdmin:     5,
}

// rolesAscending lists all roles from least to most privileged.
var rolesAscending = []Role{
	RoleUnassigned,
	RoleEmployee,
	RoleContactManager,
	RoleSupervisor,
	RoleAdmin,
	RoleSuperAdmin,
}

// ParseRole converts a persisted or client-supplied string into a Role.
// Unknown values are rejected here so they never reach business logic.
func ParseRole(value string) (Role, error) {
	role := Role(value)
	if _, ok := roleLevels[role]; !ok {
		return "", fmt.Errorf("unknown role %q", value)
	}
	return role, nil
}

// Level returns the privilege level of the role, -1 for unknown values.
func (r Role) Level() int {
	level, ok := roleLevels[r]
	if !ok {
		return -1
	}
	return level
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// CanAssign reports whether a caller holding this role may grant target.
// A role can grant any role at or below its own level; unknown roles can
// grant nothing and be granted by nobody.
func (r Role) CanAssign(target Role) bool {
	if !r.Valid() || !target.Valid() {
		return false
	}
	return r.Level() >= target.Level()
}

// AssignableRoles returns every role the caller may grant, least privileged
// first.
func (r Role) AssignableRoles() []Role {
	if !r.Valid() {
		return nil
	}
	assignable := make([]Role, 0, r.Level()+1)
	for _, candidate := range rolesAscending {
		if candidate.Level() <= r.Level() {
			assignable = append(assignable, candidate)
		}
	}
	return assignable
}

// Capability is a named boolean authorization predicate derived from role.
type Capability struct {
	Name  string
	Check func(Role) bool
}

var (
	// CapManageUsers gates user mutation: supervisor reassignment, role
	// changes and soft deletion. Supervisor-class roles and above hold it.
	CapManageUsers = Capability{
		Name:  "manage_users",
		Check: func(r Role) bool { return r.Valid() && r.Level() >= RoleSupervisor.Level() },
	}

	// CapViewWorkforce gates read access to the workforce directory and
	// audit trail.
	CapViewWorkforce = Capability{
		Name:  "view_workforce",
		Check: func(r Role) bool { return r.Valid() && r.Level() >= RoleContactManager.Level() },
	}
)

// Allows evaluates the capability for the given role.
func (c Capability) Allows(r Role) bool {
	if c.Check == nil {
		return false
	}
	return c.Check(r)
}
