package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestStage_IsTerminal(t *testing.T) {
	tests := []struct {
		stage    Stage
		expected bool
	}{
		{StageDraft, false},
		{StageActive, false},
		{StageSentToAMAdmin, false},
		{StageSentToHODAdmin, false},
		{StageSentToAudit, false},
		{StageSentToFinance, false},
		{StageSentToCEOOffice, false},
		{StageReturned, false},
		{StageApproved, true},
		{StageRejected, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			if got := tt.stage.IsTerminal(); got != tt.expected {
				t.Errorf("Stage.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStage_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		stage    Stage
		expected bool
	}{
		{"draft", StageDraft, true},
		{"returned", StageReturned, true},
		{"unknown", Stage("PAID"), false},
		{"empty", Stage(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stage.IsValid(); got != tt.expected {
				t.Errorf("Stage.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStage_IsAuditCapable(t *testing.T) {
	if !StageSentToAudit.IsAuditCapable() || !StageSentToCEOOffice.IsAuditCapable() {
		t.Error("audit and CEO office stages should be audit-capable")
	}
	if StageSentToFinance.IsAuditCapable() || StageReturned.IsAuditCapable() {
		t.Error("finance and returned stages should not be audit-capable")
	}
}

func TestStage_Owner(t *testing.T) {
	if role, ok := StageSentToHODAdmin.Owner(); !ok || role != RoleHODAdmin {
		t.Errorf("Owner() = %v, %v, want %v", role, ok, RoleHODAdmin)
	}
	if _, ok := StageApproved.Owner(); ok {
		t.Error("terminal stages should have no owner")
	}
}

func TestParseStage(t *testing.T) {
	if s, err := ParseStage("SENT_TO_AUDIT"); err != nil || s != StageSentToAudit {
		t.Errorf("ParseStage() = %v, %v", s, err)
	}
	if _, err := ParseStage("sent_to_audit"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("ParseStage() error = %v, want %v", err, ErrInvalidState)
	}
}

func TestAction_RequiresComments(t *testing.T) {
	tests := []struct {
		action   Action
		expected bool
	}{
		{ActionSubmit, false},
		{ActionApprove, false},
		{ActionResubmit, false},
		{ActionReject, true},
		{ActionReturnWithObjection, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			if got := tt.action.RequiresComments(); got != tt.expected {
				t.Errorf("Action.RequiresComments() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuilder_PanicsOnInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"invalid stage", func() { NewBuilder().Configure(Stage("BOGUS")) }},
		{"invalid target", func() { NewBuilder().Configure(StageDraft).Permit(ActionSubmit, RoleSubmitter, Stage("BOGUS")) }},
		{"invalid role", func() { NewBuilder().Configure(StageDraft).Permit(ActionSubmit, Role("CFO"), StageActive) }},
		{"invalid action", func() { NewBuilder().Configure(StageDraft).Permit(Action("ESCALATE"), RoleSubmitter, StageActive) }},
		{"invalid initial", func() { NewBuilder().Build(Stage("BOGUS"), Facts{}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Error("expected panic")
				}
			}()
			tt.fn()
		})
	}
}

func testBuilder() StateMachineBuilder {
	b := NewBuilder()
	b.Configure(StageDraft).
		Permit(ActionSubmit, RoleSubmitter, StageActive)
	b.Configure(StageSentToAudit).
		Permit(ActionApprove, RoleAuditor, StageSentToFinance).
		Permit(ActionReject, RoleAuditor, StageRejected).
		Permit(ActionReturnWithObjection, RoleAuditor, StageReturned)
	b.Configure(StageSentToFinance).
		PermitIf(ActionApprove, RoleFinance, StageSentToCEOOffice, func(_ context.Context, f Facts) bool { return !f.SentToFinance }).
		PermitIf(ActionApprove, RoleFinance, StageApproved, func(_ context.Context, f Facts) bool { return f.SentToFinance })
	b.Configure(StageReturned).
		PermitDynamic(ActionResubmit, RoleSubmitter, func(f Facts) (Stage, bool) {
			return f.ReturnedFrom, f.ReturnedFrom.IsValid()
		})
	return b
}

func TestMachine_Fire(t *testing.T) {
	ctx := context.Background()
	sm := testBuilder().Build(StageDraft, Facts{})

	if err := sm.Fire(ctx, ActionSubmit, RoleSubmitter); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if sm.State() != StageActive {
		t.Errorf("State() = %v, want %v", sm.State(), StageActive)
	}
}

func TestMachine_FireRejectsUnknownTuple(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		from   Stage
		action Action
		role   Role
	}{
		{"wrong role", StageSentToAudit, ActionApprove, RoleFinance},
		{"wrong action", StageDraft, ActionApprove, RoleSubmitter},
		{"unconfigured stage", StageSentToAMAdmin, ActionApprove, RoleAMAdmin},
		{"terminal stage", StageApproved, ActionReject, RoleCEOOffice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := testBuilder().Build(tt.from, Facts{})
			err := sm.Fire(ctx, tt.action, tt.role)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
			}
			if sm.State() != tt.from {
				t.Errorf("State() = %v, want unchanged %v", sm.State(), tt.from)
			}
		})
	}
}

func TestMachine_Guards(t *testing.T) {
	ctx := context.Background()

	forward := testBuilder().Build(StageSentToFinance, Facts{})
	if err := forward.Fire(ctx, ActionApprove, RoleFinance); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if forward.State() != StageSentToCEOOffice {
		t.Errorf("State() = %v, want %v", forward.State(), StageSentToCEOOffice)
	}

	advance := testBuilder().Build(StageSentToFinance, Facts{SentToFinance: true})
	if err := advance.Fire(ctx, ActionApprove, RoleFinance); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if advance.State() != StageApproved {
		t.Errorf("State() = %v, want %v", advance.State(), StageApproved)
	}
}

func TestMachine_GuardFailureIsInvalidTransition(t *testing.T) {
	b := NewBuilder()
	b.Configure(StageSentToAudit).
		PermitIf(ActionApprove, RoleAuditor, StageSentToFinance, func(context.Context, Facts) bool { return false })
	sm := b.Build(StageSentToAudit, Facts{})

	err := sm.Fire(context.Background(), ActionApprove, RoleAuditor)
	if !errors.Is(err, ErrInvalidTransition) || !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() error = %v, want both %v and %v", err, ErrInvalidTransition, ErrGuardFailed)
	}
	if sm.CanFire(context.Background(), ActionApprove, RoleAuditor) {
		t.Error("CanFire() should be false when every guard fails")
	}
}

func TestMachine_ReturnAndResubmit(t *testing.T) {
	ctx := context.Background()
	sm := testBuilder().Build(StageSentToAudit, Facts{})

	if err := sm.Fire(ctx, ActionReturnWithObjection, RoleAuditor); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if sm.State() != StageReturned || sm.Facts().ReturnedFrom != StageSentToAudit {
		t.Fatalf("after return: state=%v returnedFrom=%v", sm.State(), sm.Facts().ReturnedFrom)
	}

	if err := sm.Fire(ctx, ActionResubmit, RoleSubmitter); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if sm.State() != StageSentToAudit {
		t.Errorf("State() = %v, want %v", sm.State(), StageSentToAudit)
	}
	if sm.Facts().ReturnedFrom != "" {
		t.Errorf("ReturnedFrom = %v, want cleared", sm.Facts().ReturnedFrom)
	}
}

func TestMachine_ResubmitWithoutMarker(t *testing.T) {
	sm := testBuilder().Build(StageReturned, Facts{})
	if err := sm.Fire(context.Background(), ActionResubmit, RoleSubmitter); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
}

func TestMachine_PermittedActions(t *testing.T) {
	ctx := context.Background()
	sm := testBuilder().Build(StageSentToAudit, Facts{})

	got := sm.PermittedActions(ctx, RoleAuditor)
	want := []Action{ActionApprove, ActionReject, ActionReturnWithObjection}
	if len(got) != len(want) {
		t.Fatalf("PermittedActions() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PermittedActions()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if len(sm.PermittedActions(ctx, RoleFinance)) != 0 {
		t.Error("finance has no actions at the audit stage")
	}
}

func TestBuilder_BuildIsolatesMachines(t *testing.T) {
	b := NewBuilder()
	b.Configure(StageDraft).Permit(ActionSubmit, RoleSubmitter, StageActive)
	sm := b.Build(StageDraft, Facts{})

	// later configuration must not leak into an existing machine
	b.Configure(StageDraft).Permit(ActionReject, RoleSubmitter, StageRejected)

	if sm.CanFire(context.Background(), ActionReject, RoleSubmitter) {
		t.Error("machine picked up configuration added after Build")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Category
	}{
		{nil, ""},
		{ErrMissingSignature, CategoryValidation},
		{ErrMissingComments, CategoryValidation},
		{ErrStaleVersion, CategoryConflict},
		{ErrAlreadyAnswered, CategoryConflict},
		{ErrInvalidTransition, CategoryPolicy},
		{ErrObservationsUnresolved, CategoryPolicy},
		{ErrDocumentNotFound, CategoryNotFound},
		{errors.New("disk full"), CategoryInternal},
	}

	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}
