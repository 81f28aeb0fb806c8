package workflow

import (
	"errors"

	"github.com/garyjia/finance-approval/internal/domain/signature"
)

var (
	// ErrInvalidTransition is returned when no table row matches the stage, role and action
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a stage is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when a matching row exists but its guard rejects the facts
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrStaleVersion is returned when the stored version differs from the caller's
	ErrStaleVersion = errors.New("document version is stale")

	// ErrDocumentNotFound is returned when the document does not exist
	ErrDocumentNotFound = errors.New("document not found")

	// ErrObservationsUnresolved blocks a resubmit while critical observations are open
	ErrObservationsUnresolved = errors.New("critical observations are unresolved")

	// ErrObservationNotFound is returned when the observation does not exist on the document
	ErrObservationNotFound = errors.New("observation not found")

	// ErrAlreadyAnswered is returned when an observation already has an answer
	ErrAlreadyAnswered = errors.New("observation already answered")

	// ErrObservationNotPermitted is returned when observations are raised outside an audit-capable stage
	ErrObservationNotPermitted = errors.New("observations can only be raised at an audit-capable stage")

	// ErrInvalidSeverity is returned for an unknown observation severity
	ErrInvalidSeverity = errors.New("invalid observation severity")

	// ErrEmptyObservation is returned when observation text or answer is blank
	ErrEmptyObservation = errors.New("observation text is required")

	// ErrNotApproved is returned when settling a document that has not reached APPROVED
	ErrNotApproved = errors.New("document is not approved")

	// ErrInvalidDocument is returned when intake data is incomplete
	ErrInvalidDocument = errors.New("invalid document")

	// ErrMissingSignature aliases the signature validator's error
	ErrMissingSignature = signature.ErrMissingSignature

	// ErrMissingComments aliases the signature validator's error
	ErrMissingComments = signature.ErrMissingComments
)

// Category groups errors by how a caller can recover from them
type Category string

const (
	CategoryValidation Category = "VALIDATION"
	CategoryConflict   Category = "CONFLICT"
	CategoryPolicy     Category = "POLICY"
	CategoryNotFound   Category = "NOT_FOUND"
	CategoryInternal   Category = "INTERNAL"
)

// Classify maps an error to its category. Unknown errors are internal.
func Classify(err error) Category {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingSignature),
		errors.Is(err, ErrMissingComments),
		errors.Is(err, ErrInvalidSeverity),
		errors.Is(err, ErrEmptyObservation),
		errors.Is(err, ErrInvalidDocument),
		errors.Is(err, ErrInvalidState):
		return CategoryValidation
	case errors.Is(err, ErrStaleVersion),
		errors.Is(err, ErrAlreadyAnswered):
		return CategoryConflict
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrObservationsUnresolved),
		errors.Is(err, ErrObservationNotPermitted),
		errors.Is(err, ErrNotApproved):
		return CategoryPolicy
	case errors.Is(err, ErrDocumentNotFound),
		errors.Is(err, ErrObservationNotFound):
		return CategoryNotFound
	default:
		return CategoryInternal
	}
}
