package domain

// RoleChangeKind discriminates the two role change requests.
type RoleChangeKind string

const (
	RoleChangeSet      RoleChangeKind = "SET_ROLE"
	RoleChangeUnassign RoleChangeKind = "UNASSIGN"
)

// RoleChange is a request to alter a user's role. It is one of two variants:
// SetRole carries the new role, Unassign strips the role and retires the
// user. The zero value is invalid; construct through SetRole or Unassign.
type RoleChange struct {
	kind RoleChangeKind
	role Role
}

// SetRole builds a change that grants the given role.
func SetRole(r Role) RoleChange {
	return RoleChange{kind: RoleChangeSet, role: r}
}

// Unassign builds a change that revokes the user's role and soft-deletes
// the account.
func Unassign() RoleChange {
	return RoleChange{kind: RoleChangeUnassign}
}

// Kind returns the variant discriminator.
func (rc RoleChange) Kind() RoleChangeKind {
	return rc.kind
}

// IsUnassign reports whether this change retires the user.
func (rc RoleChange) IsUnassign() bool {
	return rc.kind == RoleChangeUnassign
}

// TargetRole returns the requested role for SetRole changes. The second
// return is false for Unassign, which carries no role.
func (rc RoleChange) TargetRole() (Role, bool) {
	if rc.kind != RoleChangeSet {
		return "", false
	}
	return rc.role, true
}

// ResultingRole returns the role the user holds after the change is applied.
// Unassign resolves to Unassigned.
func (rc RoleChange) ResultingRole() Role {
	if rc.kind == RoleChangeUnassign {
		return RoleUnassigned
	}
	return rc.role
}

// Valid reports whether the change was built through a constructor and, for
// SetRole, carries a known role.
func (rc RoleChange) Valid() bool {
	switch rc.kind {
	case RoleChangeUnassign:
		return true
	case RoleChangeSet:
		return rc.role.Valid()
	default:
		return false
	}
}
