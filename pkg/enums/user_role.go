package enums

import "fmt"

// UserRole is the access level carried in access tokens.
type UserRole string

const (
	UserRoleCustomer  UserRole = "customer"
	UserRoleStaff     UserRole = "staff"
	UserRoleSuperuser UserRole = "superuser"
)

var validUserRoles = []UserRole{UserRoleCustomer, UserRoleStaff, UserRoleSuperuser}

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role may manage orders and catalog.
func (r UserRole) IsStaff() bool {
	return r == UserRoleStaff || r == UserRoleSuperuser
}

// RoleFor derives the role from the account flags.
func RoleFor(isStaff, isSuperuser bool) UserRole {
	switch {
	case isSuperuser:
		return UserRoleSuperuser
	case isStaff:
		return UserRoleStaff
	default:
		return UserRoleCustomer
	}
}

func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
