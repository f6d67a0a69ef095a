package rbac

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
	RoleBusiness Role = "business"
	RoleClient   Role = "client"
)

// IsAdmin reports whether the role grants administrative access
// (every-project listing, other owners' projects).
func IsAdmin(role Role) bool {
	return role == RoleAdmin
}

func Valid(role Role) bool {
	switch role {
	case RoleAdmin, RoleEmployee, RoleBusiness, RoleClient:
		return true
	default:
		return false
	}
}

// Normalize maps arbitrary input to a known role, defaulting to client.
func Normalize(role string) Role {
	if Valid(Role(role)) {
		return Role(role)
	}
	return RoleClient
}
