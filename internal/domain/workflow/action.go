package workflow

// Action is a request to move a document along the approval chain
type Action string

const (
	ActionSubmit              Action = "SUBMIT"
	ActionApprove             Action = "APPROVE"
	ActionReject              Action = "REJECT"
	ActionReturnWithObjection Action = "RETURN_WITH_OBJECTION"
	ActionResubmit            Action = "RESUBMIT"
)

// allActions fixes the order actions are reported in.
var allActions = []Action{
	ActionSubmit,
	ActionApprove,
	ActionReject,
	ActionReturnWithObjection,
	ActionResubmit,
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

// IsValid returns true if the action is known
func (a Action) IsValid() bool {
	for _, known := range allActions {
		if a == known {
			return true
		}
	}
	return false
}

// RequiresComments returns true for actions that must carry a justification
func (a Action) RequiresComments() bool {
	return a == ActionReject || a == ActionReturnWithObjection
}
