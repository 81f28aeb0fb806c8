package workflow

// Stage represents a document's position in the approval chain
type Stage string

const (
	StageDraft           Stage = "DRAFT"
	StageActive          Stage = "ACTIVE"
	StageSentToAMAdmin   Stage = "SENT_TO_AM_ADMIN"
	StageSentToHODAdmin  Stage = "SENT_TO_HOD_ADMIN"
	StageSentToAudit     Stage = "SENT_TO_AUDIT"
	StageSentToFinance   Stage = "SENT_TO_FINANCE"
	StageSentToCEOOffice Stage = "SENT_TO_CEO_OFFICE"
	StageApproved        Stage = "APPROVED"
	StageRejected        Stage = "REJECTED"
	StageReturned        Stage = "RETURNED"
)

var validStages = map[Stage]bool{
	StageDraft:           true,
	StageActive:          true,
	StageSentToAMAdmin:   true,
	StageSentToHODAdmin:  true,
	StageSentToAudit:     true,
	StageSentToFinance:   true,
	StageSentToCEOOffice: true,
	StageApproved:        true,
	StageRejected:        true,
	StageReturned:        true,
}

var terminalStages = map[Stage]bool{
	StageApproved: true,
	StageRejected: true,
}

// Stages where auditors may raise observations.
var auditCapableStages = map[Stage]bool{
	StageSentToAudit:     true,
	StageSentToCEOOffice: true,
}

// stageOwners maps a routing stage to the role that acts on it.
var stageOwners = map[Stage]Role{
	StageDraft:           RoleSubmitter,
	StageActive:          RoleSubmitter,
	StageSentToAMAdmin:   RoleAMAdmin,
	StageSentToHODAdmin:  RoleHODAdmin,
	StageSentToAudit:     RoleAuditor,
	StageSentToFinance:   RoleFinance,
	StageSentToCEOOffice: RoleCEOOffice,
	StageReturned:        RoleSubmitter,
}

// IsTerminal returns true if no further transitions are allowed from the stage
func (s Stage) IsTerminal() bool {
	return terminalStages[s]
}

// IsAuditCapable returns true if observations may be raised while the document sits here
func (s Stage) IsAuditCapable() bool {
	return auditCapableStages[s]
}

// Owner returns the role expected to act on a document at this stage.
// Terminal stages have no owner.
func (s Stage) Owner() (Role, bool) {
	role, ok := stageOwners[s]
	return role, ok
}

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// IsValid returns true if the stage is a known stage
func (s Stage) IsValid() bool {
	return validStages[s]
}

// ParseStage converts a raw string to a Stage
func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if !s.IsValid() {
		return "", ErrInvalidState
	}
	return s, nil
}
