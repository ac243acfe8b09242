package auth

// UserRole is a role tag snapshotted into issued tokens
type UserRole string

const (
	// RoleGuest is a guest role (ie. view)
	RoleGuest UserRole = "guest"
	// RoleMember is a member (i.e. view, edit)
	RoleMember UserRole = "member"
	// RoleAdmin is an admin role (i.e. view, edit, create)
	RoleAdmin UserRole = "admin"
	// RoleOwner is an owner role (i.e. view, edit, create, delete)
	RoleOwner UserRole = "owner"
)

var roleRank = map[UserRole]int{
	RoleGuest:  0,
	RoleMember: 1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// CanRead checks if this role can read resources
func (r UserRole) CanRead() bool {
	return r.IsValid()
}

// CanEdit checks if this role can edit resources
func (r UserRole) CanEdit() bool {
	return r.IsValid() && roleRank[r] >= roleRank[RoleMember]
}

// CanCreate checks if this role can create resources
func (r UserRole) CanCreate() bool {
	return r.IsValid() && roleRank[r] >= roleRank[RoleAdmin]
}

// CanDelete checks if this role can delete resources
func (r UserRole) CanDelete() bool {
	return r == RoleOwner
}

// IsAtLeast compares two roles on the guest < member < admin < owner lattice.
// Unknown roles never satisfy a minimum.
func (r UserRole) IsAtLeast(min UserRole) bool {
	rRank, ok := roleRank[r]
	if !ok {
		return false
	}
	minRank, ok := roleRank[min]
	if !ok {
		return false
	}
	return rRank >= minRank
}
