package auth

// Role is carried in the "role" claim of an access token.
type Role string

const (
	RoleOwner    Role = "owner"    // Approves payments and reverts validated settlements
	RoleManager  Role = "manager"  // Runs, reviews and validates payroll
	RoleEmployee Role = "employee" // No payroll access
)

func (r Role) IsOwner() bool {
	return r == RoleOwner
}

func (r Role) IsManager() bool {
	return r == RoleManager || r == RoleOwner
}
