package models

// Role constants for crew members aboard a yacht.
const (
	RoleCrew    = "crew"
	RoleHOD     = "hod" // head of department
	RoleCaptain = "captain"
	RoleManager = "manager" // shore-side fleet manager
)

// ValidRoles contains all valid role values.
var ValidRoles = []string{RoleCrew, RoleHOD, RoleCaptain, RoleManager}

// IsValidRole checks if the given role is valid.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
