package auth

import "fmt"

// Role is the closed set of staff roles. Every capability decision is a
// function of (role, action); there is no wildcard role.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleDoctor     Role = "doctor"
	RoleNurse      Role = "nurse"
	RolePharmacist Role = "pharmacist"
	RoleLab        Role = "lab"
	RoleRadiology  Role = "radiology"
)

// AllRoles lists every valid role, in display order.
var AllRoles = []Role{RoleAdmin, RoleDoctor, RoleNurse, RolePharmacist, RoleLab, RoleRadiology}

// ParseRole validates a role string coming from storage or user input.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	switch r {
	case RoleAdmin, RoleDoctor, RoleNurse, RolePharmacist, RoleLab, RoleRadiology:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string { return string(r) }
