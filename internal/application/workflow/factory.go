package workflow

import (
	"context"
	"fmt"

	domainwf "github.com/garyjia/finance-approval/internal/domain/workflow"
)

// TransitionTables holds one configured builder per document kind
type TransitionTables struct {
	builders map[domainwf.Kind]domainwf.StateMachineBuilder
}

// NewTransitionTables configures the settlement and purchase-order routing tables
func NewTransitionTables() *TransitionTables {
	return &TransitionTables{
		builders: map[domainwf.Kind]domainwf.StateMachineBuilder{
			domainwf.KindSettlement:    buildSettlementTable(),
			domainwf.KindPurchaseOrder: buildPurchaseOrderTable(),
		},
	}
}

// Build positions a state machine for kind at stage
func (t *TransitionTables) Build(kind domainwf.Kind, stage domainwf.Stage, facts domainwf.Facts) (domainwf.StateMachine, error) {
	builder, ok := t.builders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no routing table for kind %q", domainwf.ErrInvalidState, kind)
	}
	if !stage.IsValid() {
		return nil, fmt.Errorf("%w: %q", domainwf.ErrInvalidState, stage)
	}
	return builder.Build(stage, facts), nil
}

func notSentToFinance(_ context.Context, f domainwf.Facts) bool { return !f.SentToFinance }

func sentToFinance(_ context.Context, f domainwf.Facts) bool { return f.SentToFinance }

// resumeReturned sends a resubmitted document back to the desk that returned it
func resumeReturned(f domainwf.Facts) (domainwf.Stage, bool) {
	return f.ReturnedFrom, f.ReturnedFrom.IsValid() && f.ReturnedFrom != domainwf.StageReturned
}

// permitNegative adds reject and return-with-objection for the desk that owns stage
func permitNegative(cfg domainwf.StageConfiguration, role domainwf.Role) domainwf.StageConfiguration {
	return cfg.
		Permit(domainwf.ActionReject, role, domainwf.StageRejected).
		Permit(domainwf.ActionReturnWithObjection, role, domainwf.StageReturned)
}

// buildSettlementTable routes payment settlements through every desk.
// APPROVE at SENT_TO_CEO_OFFICE nominally lands on APPROVED; the side-effect
// dispatcher may turn it into SENT_TO_FINANCE for advance payments.
func buildSettlementTable() domainwf.StateMachineBuilder {
	b := domainwf.NewBuilder()

	b.Configure(domainwf.StageDraft).
		Permit(domainwf.ActionSubmit, domainwf.RoleSubmitter, domainwf.StageActive)

	b.Configure(domainwf.StageActive).
		Permit(domainwf.ActionApprove, domainwf.RoleSubmitter, domainwf.StageSentToAMAdmin)

	permitNegative(b.Configure(domainwf.StageSentToAMAdmin), domainwf.RoleAMAdmin).
		Permit(domainwf.ActionApprove, domainwf.RoleAMAdmin, domainwf.StageSentToHODAdmin)

	permitNegative(b.Configure(domainwf.StageSentToHODAdmin), domainwf.RoleHODAdmin).
		Permit(domainwf.ActionApprove, domainwf.RoleHODAdmin, domainwf.StageSentToAudit)

	permitNegative(b.Configure(domainwf.StageSentToAudit), domainwf.RoleAuditor).
		Permit(domainwf.ActionApprove, domainwf.RoleAuditor, domainwf.StageSentToFinance)

	permitNegative(b.Configure(domainwf.StageSentToFinance), domainwf.RoleFinance).
		PermitIf(domainwf.ActionApprove, domainwf.RoleFinance, domainwf.StageSentToCEOOffice, notSentToFinance).
		PermitIf(domainwf.ActionApprove, domainwf.RoleFinance, domainwf.StageApproved, sentToFinance)

	permitNegative(b.Configure(domainwf.StageSentToCEOOffice), domainwf.RoleCEOOffice).
		Permit(domainwf.ActionApprove, domainwf.RoleCEOOffice, domainwf.StageApproved)

	b.Configure(domainwf.StageReturned).
		PermitDynamic(domainwf.ActionResubmit, domainwf.RoleSubmitter, resumeReturned)

	return b
}

// buildPurchaseOrderTable routes purchase orders past the admin desks and the
// forward finance desk. Finance only sees a PO once it is re-routed for an advance.
func buildPurchaseOrderTable() domainwf.StateMachineBuilder {
	b := domainwf.NewBuilder()

	b.Configure(domainwf.StageDraft).
		Permit(domainwf.ActionSubmit, domainwf.RoleSubmitter, domainwf.StageActive)

	b.Configure(domainwf.StageActive).
		Permit(domainwf.ActionApprove, domainwf.RoleSubmitter, domainwf.StageSentToAudit)

	permitNegative(b.Configure(domainwf.StageSentToAudit), domainwf.RoleAuditor).
		Permit(domainwf.ActionApprove, domainwf.RoleAuditor, domainwf.StageSentToCEOOffice)

	permitNegative(b.Configure(domainwf.StageSentToCEOOffice), domainwf.RoleCEOOffice).
		Permit(domainwf.ActionApprove, domainwf.RoleCEOOffice, domainwf.StageApproved)

	permitNegative(b.Configure(domainwf.StageSentToFinance), domainwf.RoleFinance).
		PermitIf(domainwf.ActionApprove, domainwf.RoleFinance, domainwf.StageApproved, sentToFinance)

	b.Configure(domainwf.StageReturned).
		PermitDynamic(domainwf.ActionResubmit, domainwf.RoleSubmitter, resumeReturned)

	return b
}
