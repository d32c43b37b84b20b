package auth

import "strings"

// Staff roles, highest privilege first.
const (
	RoleOwner    = "OWNER"
	RoleAdmin    = "ADMIN"
	RoleEmployee = "EMPLOYEE"
	RoleGuest    = "GUEST"
)

// NormalizeRole upper-cases a role and reports whether it is known.
func NormalizeRole(role string) (string, bool) {
	r := strings.ToUpper(strings.TrimSpace(role))
	switch r {
	case RoleOwner, RoleAdmin, RoleEmployee, RoleGuest:
		return r, true
	default:
		return r, false
	}
}

// IsManager reports whether role may administer the company.
func IsManager(role string) bool {
	r, _ := NormalizeRole(role)
	return r == RoleOwner || r == RoleAdmin
}
