package accounts

// roleRank orders the tenant-level roles for privilege comparisons.
// Roles missing from the map never satisfy a minimum.
var roleRank = map[UserRole]int{
	RoleMember: 1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

// ValidRole reports whether r is one of the predefined tenant roles.
func ValidRole(r UserRole) bool {
	_, ok := roleRank[r]
	return ok
}

// RoleAtLeast reports whether r meets the minimum required role level.
func RoleAtLeast(r, min UserRole) bool {
	current, ok := roleRank[r]
	if !ok {
		return false
	}
	required, ok := roleRank[min]
	if !ok {
		return false
	}
	return current >= required
}

// ParseRole safely parses a string into a UserRole.
func ParseRole(s string) (UserRole, bool) {
	role := UserRole(s)
	return role, ValidRole(role)
}

// CanManageMembers reports whether the user may invite, edit or remove
// other members of the tenant.
func (u *User) CanManageMembers() bool {
	return RoleAtLeast(u.Role, RoleAdmin)
}
