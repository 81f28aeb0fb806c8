package workflow

import (
	"context"

	"github.com/garyjia/finance-approval/internal/application/effects"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	domainwf "github.com/garyjia/finance-approval/internal/domain/workflow"
)

// WorkflowEngine applies approval actions to documents
type WorkflowEngine interface {
	// ApplyAction validates and applies one action against the version the caller last saw.
	// On error the stored document is unchanged.
	ApplyAction(ctx context.Context, req ActionRequest) (*TransitionOutcome, error)

	// PermittedActions lists what role may do to the document right now
	PermittedActions(ctx context.Context, documentID string, role domainwf.Role) ([]domainwf.Action, error)
}

// ActionRequest is one actor's request to move a document
type ActionRequest struct {
	DocumentID       string
	ExpectedVersion  int64
	Action           domainwf.Action
	ActorRole        domainwf.Role
	ActorID          string
	DigitalSignature string
	Comments         string
	// ChangeSummary describes what was amended; only stored on RESUBMIT
	ChangeSummary string
}

// TransitionOutcome reports where the document landed and what the transition triggered
type TransitionOutcome struct {
	Document       *entity.Document      `json:"document"`
	Stage          domainwf.Stage        `json:"stage"`
	Version        int64                 `json:"version"`
	Effect         effects.Effect        `json:"effect"`
	PayableEntryID string                `json:"payable_entry_id,omitempty"`
	Event          *entity.WorkflowEvent `json:"event"`
}
