package entity

import (
	"time"

	"github.com/garyjia/finance-approval/internal/domain/workflow"
)

// WorkflowEvent is one immutable entry in a document's approval history
type WorkflowEvent struct {
	Sequence         int64           `json:"sequence"`
	DocumentID       string          `json:"document_id"`
	FromStage        workflow.Stage  `json:"from_stage"`
	ToStage          workflow.Stage  `json:"to_stage"`
	Action           workflow.Action `json:"action"`
	ActorID          string          `json:"actor_id"`
	ActorRole        workflow.Role   `json:"actor_role"`
	DigitalSignature string          `json:"digital_signature"`
	Comments         string          `json:"comments,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
}
