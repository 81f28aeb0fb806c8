package event

// Type identifies the type of domain event
type Type string

const (
	TypeDocumentCreated       Type = "document.created"
	TypeDocumentTransitioned  Type = "document.transitioned"
	TypeDocumentApproved      Type = "document.approved"
	TypeDocumentSentToFinance Type = "document.sent_to_finance"
	TypeDocumentRejected      Type = "document.rejected"
	TypeDocumentReturned      Type = "document.returned"
	TypePayableCreated        Type = "payable.created"
	TypeObservationRaised     Type = "observation.raised"
	TypeObservationAnswered   Type = "observation.answered"
)

// Payload keys shared by publishers and handlers.
const (
	KeyFromStage     = "from_stage"
	KeyToStage       = "to_stage"
	KeyAction        = "action"
	KeyActorID       = "actor_id"
	KeyActorRole     = "actor_role"
	KeyVersion       = "version"
	KeyKind          = "kind"
	KeyReference     = "reference_number"
	KeyComments      = "comments"
	KeyEntryID       = "entry_id"
	KeyBillNumber    = "bill_number"
	KeyAmount        = "amount"
	KeyObservationID = "observation_id"
	KeySeverity      = "severity"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeDocumentCreated,
		TypeDocumentTransitioned,
		TypeDocumentApproved,
		TypeDocumentSentToFinance,
		TypeDocumentRejected,
		TypeDocumentReturned,
		TypePayableCreated,
		TypeObservationRaised,
		TypeObservationAnswered:
		return true
	default:
		return false
	}
}
