package workflow

// Role is the organizational desk an actor acts for
type Role string

const (
	RoleSubmitter Role = "SUBMITTER"
	RoleAMAdmin   Role = "AM_ADMIN"
	RoleHODAdmin  Role = "HOD_ADMIN"
	RoleAuditor   Role = "AUDITOR"
	RoleFinance   Role = "FINANCE"
	RoleCEOOffice Role = "CEO_OFFICE"
)

var validRoles = map[Role]bool{
	RoleSubmitter: true,
	RoleAMAdmin:   true,
	RoleHODAdmin:  true,
	RoleAuditor:   true,
	RoleFinance:   true,
	RoleCEOOffice: true,
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is known
func (r Role) IsValid() bool {
	return validRoles[r]
}
