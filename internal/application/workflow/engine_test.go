package workflow_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/finance-approval/internal/application/effects"
	"github.com/garyjia/finance-approval/internal/application/observation"
	"github.com/garyjia/finance-approval/internal/application/workflow"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/domain/event"
	domainwf "github.com/garyjia/finance-approval/internal/domain/workflow"
	"github.com/garyjia/finance-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/finance-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/finance-approval/migrations"
	"github.com/garyjia/finance-approval/pkg/database"
	"github.com/garyjia/finance-approval/pkg/utils"
)

// recordingPublisher collects events synchronously
type recordingPublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (p *recordingPublisher) DispatchAsync(_ context.Context, evt *event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	engine       workflow.WorkflowEngine
	effects      *effects.Dispatcher
	observations *observation.Service
	docs         *repository.DocumentRepository
	history      *repository.HistoryRepository
	payables     *repository.PayableRepository
	events       *recordingPublisher
}

var fixedNow = time.Date(2026, 4, 10, 15, 30, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "engine.db"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.NewMigrator(db, logger).Run(migrations.FS)
	require.NoError(t, err)

	docs := repository.NewDocumentRepository(db.DB, logger)
	history := repository.NewHistoryRepository(db.DB, logger)
	obsRepo := repository.NewObservationRepository(db.DB, logger)
	payables := repository.NewPayableRepository(db.DB, logger)
	tx := sqlite.NewDB(db.DB, logger)
	events := &recordingPublisher{}
	kv := utils.NewKVLogger(logger)

	fx := effects.NewDispatcher(docs, payables, tx,
		effects.WithClock(func() time.Time { return fixedNow }),
		effects.WithPublisher(events),
		effects.WithLogger(kv),
	)
	obs := observation.NewService(docs, obsRepo, tx, events, kv)

	return &harness{
		engine: workflow.NewEngine(docs, history, tx, obs, fx,
			workflow.WithDispatcher(events),
			workflow.WithLogger(kv),
			workflow.WithClock(func() time.Time { return fixedNow }),
		),
		effects:      fx,
		observations: obs,
		docs:         docs,
		history:      history,
		payables:     payables,
		events:       events,
	}
}

func (h *harness) create(t *testing.T, kind domainwf.Kind, terms string) *entity.Document {
	t.Helper()
	return h.createWithAmount(t, kind, terms, "48000.00")
}

func (h *harness) createWithAmount(t *testing.T, kind domainwf.Kind, terms, amount string) *entity.Document {
	t.Helper()
	doc, err := entity.NewDocument(entity.NewDocumentParams{
		Kind:            kind,
		ReferenceNumber: "REF-" + string(kind)[:2],
		Amount:          decimal.RequireFromString(amount),
		PaymentTerms:    terms,
		VendorName:      "Northwind Traders",
		Department:      "Procurement",
		CreatedBy:       "emp-1",
	}, fixedNow)
	require.NoError(t, err)
	require.NoError(t, h.docs.Create(context.Background(), doc))
	return doc
}

func (h *harness) apply(t *testing.T, docID string, action domainwf.Action, role domainwf.Role, comments string) *workflow.TransitionOutcome {
	t.Helper()
	outcome, err := h.try(docID, action, role, comments)
	require.NoError(t, err, "%s by %s", action, role)
	return outcome
}

func (h *harness) try(docID string, action domainwf.Action, role domainwf.Role, comments string) (*workflow.TransitionOutcome, error) {
	ctx := context.Background()
	doc, err := h.docs.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	version := int64(0)
	if doc != nil {
		version = doc.Version
	}
	return h.engine.ApplyAction(ctx, workflow.ActionRequest{
		DocumentID:       docID,
		ExpectedVersion:  version,
		Action:           action,
		ActorRole:        role,
		ActorID:          "actor-" + string(role),
		DigitalSignature: "signed:" + string(role),
		Comments:         comments,
	})
}

func (h *harness) walkToAudit(t *testing.T, docID string) {
	t.Helper()
	h.apply(t, docID, domainwf.ActionSubmit, domainwf.RoleSubmitter, "")
	h.apply(t, docID, domainwf.ActionApprove, domainwf.RoleSubmitter, "")
	h.apply(t, docID, domainwf.ActionApprove, domainwf.RoleAMAdmin, "")
	h.apply(t, docID, domainwf.ActionApprove, domainwf.RoleHODAdmin, "")
}

func TestSettlement_FullChainCreatesPayable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	doc := h.create(t, domainwf.KindSettlement, "Net 30")

	h.walkToAudit(t, doc.ID)
	h.apply(t, doc.ID, domainwf.ActionApprove, domainwf.RoleAuditor, "")
	out := h.apply(t, doc.ID, domainwf.ActionApprove, domainwf.RoleFinance, "")
	assert.Equal(t, domainwf.StageSentToCEOOffice, out.Stage)

	out = h.apply(t, doc.ID, domainwf.ActionApprove, domainwf.RoleCEOOffice, "")
	assert.Equal(t, domainwf.StageApproved, out.Stage)
	assert.Equal(t, effects.EffectAccountsPayableCreated, out.Effect)
	assert.NotEmpty(t, out.PayableEntryID)
	assert.Equal(t, int64(8), out.Version)

	stored, err := h.docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StageApproved, stored.Stage)
	assert.Equal(t, entity.BusinessStatusApproved, stored.BusinessStatus)
	assert.True(t, stored.AccountsPayableCreated)
	assert.False(t, stored.SentToFinance)

	entry, err := h.payables.GetBySourceDocumentID(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, out.PayableEntryID, entry.ID)
	assert.Equal(t, "REF-SE", entry.BillNumber)
	assert.Equal(t, entity.DepartmentProcurement, entry.Department)
	assert.True(t, decimal.RequireFromString("48000").Equal(entry.Amount))
	assert.True(t, entry.BillDate.AddDate(0, 0, effects.DefaultDueDays).Equal(entry.DueDate))

	history, err := h.history.GetByDocumentID(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, history, 7)
	assert.Equal(t, domainwf.StageDraft, history[0].FromStage)
	assert.Equal(t, domainwf.StageApproved, history[6].ToStage)
	for i := 1; i < len(history); i++ {
		assert.Equal(t, history[i-1].ToStage, history[i].FromStage)
	}

	assert.Contains(t, h.events.types(), event.TypeDocumentApproved)
	assert.Contains(t, h.events.types(), event.TypePayableCreated)
}

func TestSettlement_AdvancePaymentRoutesToFinance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	doc := h.create(t, domainwf.KindSettlement, "50% ADVANCE on order")

	h.walkToAudit(t, doc.ID)
	h.apply(t, doc.ID, domainwf.ActionApprove, domainwf.RoleAuditor, "")
	h.apply(t, doc.ID, domainwf.ActionApprove, domainwf.RoleFinance, "")

	out := h.apply(t, doc.ID, domainwf.ActionApprove, domainwf.RoleCEOOffice, "")
	assert.Equal(t, domainwf.StageSentToFinance, out.Stage)
	assert.Equal(t, effects.EffectSentToFinance, out.Effect)
	assert.Empty(t, out.PayableEntryID)
	assert.Contains(t, h.events.types(), event.TypeDocumentSentToFinance)

	entry, err := h.payables.GetBySourceDocumentID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, entry)

	out = h.apply(t, doc.ID, domainwf.ActionApprove, domainwf.RoleFinance, "")
	assert.Equal(t, domainwf.StageApproved, out.Stage)
	assert.Equal(t, effects.EffectAccountsPayableCreated, out.Effect)

	stored, err := h.docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, stored.SentToFinance)
	assert.True(t, stored.AccountsPayableCreated)
}

func TestPurchaseOrder_AdvancePayment(t *testing.T) {
	h := newHarness(t)
	doc := h.create(t, domainwf.KindPurchaseOrder, "advance")

	h.apply(t, doc.ID, domainwf.ActionSubmit, domainwf.RoleSubmitter, "")
	out := h.apply(t, doc.ID, domainwf.ActionApprove, domainwf.RoleSubmitter, "")
	assert.Equal(t, domainwf.StageSentToAudit, out.Stage)

	// admin desks are not on the purchase-order route
	_, err := h.try(doc.ID, domainwf.ActionApprove, domainwf.RoleAMAdmin, "")
	assert.ErrorIs(t, err, domainwf.ErrInvalidTransition)

	h.apply(t, doc.ID, domainwf.ActionApprove, domainwf.RoleAuditor, "")
	out = h.apply(t, doc.ID, domainwf.ActionApprove, domainwf.RoleCEOOffice, "")
	assert.Equal(t, domainwf.StageSentToFinance, out.Stage)

	out = h.apply(t, doc.ID, domainwf.ActionApprove, domainwf.RoleFinance, "")
	assert.Equal(t, domainwf.StageApproved, out.Stage)
	assert.NotEmpty(t, out.PayableEntryID)
}

func TestReturn_ResubmitGatedByCriticalObservation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	doc := h.create(t, domainwf.KindSettlement, "Net 15")
	h.walkToAudit(t, doc.ID)

	obs, err := h.observations.Raise(ctx, doc.ID, "Invoice total does not match PO", entity.SeverityCritical, "aud-1", domainwf.RoleAuditor)
	require.NoError(t, err)
	assert.Equal(t, 1, obs.Cycle)

	out := h.apply(t, doc.ID, domainwf.ActionReturnWithObjection, domainwf.RoleAuditor, "Totals disagree")
	assert.Equal(t, domainwf.StageReturned, out.Stage)
	assert.Equal(t, domainwf.StageSentToAudit, out.Document.ReturnedFrom)

	actions, err := h.engine.PermittedActions(ctx, doc.ID, domainwf.RoleSubmitter)
	require.NoError(t, err)
	assert.Empty(t, actions)

	_, err = h.try(doc.ID, domainwf.ActionResubmit, domainwf.RoleSubmitter, "")
	assert.ErrorIs(t, err, domainwf.ErrObservationsUnresolved)
	assert.Equal(t, domainwf.CategoryPolicy, domainwf.Classify(err))

	_, err = h.observations.Answer(ctx, doc.ID, obs.ID, "Corrected invoice attached", "emp-1")
	require.NoError(t, err)

	actions, err = h.engine.PermittedActions(ctx, doc.ID, domainwf.RoleSubmitter)
	require.NoError(t, err)
	assert.Equal(t, []domainwf.Action{domainwf.ActionResubmit}, actions)

	stored, err := h.docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	out, err = h.engine.ApplyAction(ctx, workflow.ActionRequest{
		DocumentID:       doc.ID,
		ExpectedVersion:  stored.Version,
		Action:           domainwf.ActionResubmit,
		ActorRole:        domainwf.RoleSubmitter,
		ActorID:          "emp-1",
		DigitalSignature: "emp-1-sig",
		ChangeSummary:    "Replaced invoice",
	})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StageSentToAudit, out.Stage)
	assert.Equal(t, 2, out.Document.Cycle)
	assert.Equal(t, "Replaced invoice", out.Document.ResubmissionChangeSummary)
	assert.Empty(t, out.Document.ReturnedFrom)
	assert.Contains(t, h.events.types(), event.TypeDocumentReturned)
}

func TestResubmitGate_AppliesToEachCycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	doc := h.create(t, domainwf.KindSettlement, "")
	h.walkToAudit(t, doc.ID)

	h.apply(t, doc.ID, domainwf.ActionReturnWithObjection, domainwf.RoleAuditor, "Missing receipt")
	h.apply(t, doc.ID, domainwf.ActionResubmit, domainwf.RoleSubmitter, "")

	// raised in cycle 2 and left open, then the document is returned again
	_, err := h.observations.Raise(ctx, doc.ID, "Receipt illegible", entity.SeverityCritical, "aud-1", domainwf.RoleAuditor)
	require.NoError(t, err)
	h.apply(t, doc.ID, domainwf.ActionReturnWithObjection, domainwf.RoleAuditor, "Still wrong")

	_, err = h.try(doc.ID, domainwf.ActionResubmit, domainwf.RoleSubmitter, "")
	assert.ErrorIs(t, err, domainwf.ErrObservationsUnresolved)
}

func TestReject_IsTerminal(t *testing.T) {
	h := newHarness(t)
	doc := h.create(t, domainwf.KindSettlement, "")
	h.apply(t, doc.ID, domainwf.ActionSubmit, domainwf.RoleSubmitter, "")
	h.apply(t, doc.ID, domainwf.ActionApprove, domainwf.RoleSubmitter, "")

	out := h.apply(t, doc.ID, domainwf.ActionReject, domainwf.RoleAMAdmin, "Duplicate claim")
	assert.Equal(t, domainwf.StageRejected, out.Stage)
	assert.Equal(t, entity.BusinessStatusRejected, out.Document.BusinessStatus)
	assert.Contains(t, h.events.types(), event.TypeDocumentRejected)

	for _, role := range []domainwf.Role{domainwf.RoleSubmitter, domainwf.RoleAMAdmin, domainwf.RoleCEOOffice} {
		actions, err := h.engine.PermittedActions(context.Background(), doc.ID, role)
		require.NoError(t, err)
		assert.Empty(t, actions)
	}
}

func TestApplyAction_ErrorsLeaveDocumentUnchanged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	doc := h.create(t, domainwf.KindSettlement, "")
	h.apply(t, doc.ID, domainwf.ActionSubmit, domainwf.RoleSubmitter, "")

	tests := []struct {
		name     string
		req      workflow.ActionRequest
		wantErr  error
		category domainwf.Category
	}{
		{
			name: "wrong role",
			req: workflow.ActionRequest{
				ExpectedVersion: 2, Action: domainwf.ActionApprove,
				ActorRole: domainwf.RoleFinance, DigitalSignature: "sig",
			},
			wantErr:  domainwf.ErrInvalidTransition,
			category: domainwf.CategoryPolicy,
		},
		{
			name: "missing signature",
			req: workflow.ActionRequest{
				ExpectedVersion: 2, Action: domainwf.ActionApprove,
				ActorRole: domainwf.RoleSubmitter, DigitalSignature: "   ",
			},
			wantErr:  domainwf.ErrMissingSignature,
			category: domainwf.CategoryValidation,
		},
		{
			name: "return without comments",
			req: workflow.ActionRequest{
				ExpectedVersion: 2, Action: domainwf.ActionReturnWithObjection,
				ActorRole: domainwf.RoleSubmitter, DigitalSignature: "sig",
			},
			wantErr:  domainwf.ErrMissingComments,
			category: domainwf.CategoryValidation,
		},
		{
			name: "stale version",
			req: workflow.ActionRequest{
				ExpectedVersion: 1, Action: domainwf.ActionApprove,
				ActorRole: domainwf.RoleSubmitter, DigitalSignature: "sig",
			},
			wantErr:  domainwf.ErrStaleVersion,
			category: domainwf.CategoryConflict,
		},
		{
			name: "unknown action",
			req: workflow.ActionRequest{
				ExpectedVersion: 2, Action: "ESCALATE",
				ActorRole: domainwf.RoleSubmitter, DigitalSignature: "sig",
			},
			wantErr:  domainwf.ErrInvalidTransition,
			category: domainwf.CategoryPolicy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.DocumentID = doc.ID
			_, err := h.engine.ApplyAction(ctx, tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.category, domainwf.Classify(err))

			stored, err := h.docs.GetByID(ctx, doc.ID)
			require.NoError(t, err)
			assert.Equal(t, domainwf.StageActive, stored.Stage)
			assert.Equal(t, int64(2), stored.Version)

			history, err := h.history.GetByDocumentID(ctx, doc.ID)
			require.NoError(t, err)
			assert.Len(t, history, 1)
		})
	}

	_, err := h.engine.ApplyAction(ctx, workflow.ActionRequest{
		DocumentID: "missing", ExpectedVersion: 1, Action: domainwf.ActionSubmit,
		ActorRole: domainwf.RoleSubmitter, DigitalSignature: "sig",
	})
	assert.ErrorIs(t, err, domainwf.ErrDocumentNotFound)
	assert.Equal(t, domainwf.CategoryNotFound, domainwf.Classify(err))
}

func TestApplyAction_ConcurrentActorsOneWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	doc := h.create(t, domainwf.KindSettlement, "")
	h.apply(t, doc.ID, domainwf.ActionSubmit, domainwf.RoleSubmitter, "")
	h.apply(t, doc.ID, domainwf.ActionApprove, domainwf.RoleSubmitter, "")

	requests := []workflow.ActionRequest{
		{Action: domainwf.ActionApprove, Comments: ""},
		{Action: domainwf.ActionReject, Comments: "Not budgeted"},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(requests))
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req workflow.ActionRequest) {
			defer wg.Done()
			req.DocumentID = doc.ID
			req.ExpectedVersion = 3
			req.ActorRole = domainwf.RoleAMAdmin
			req.ActorID = "am-1"
			req.DigitalSignature = "am-1-sig"
			_, errs[i] = h.engine.ApplyAction(ctx, req)
		}(i, req)
	}
	wg.Wait()

	var wins, stale int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case assert.ErrorIs(t, err, domainwf.ErrStaleVersion):
			stale++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, stale)

	stored, err := h.docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stored.Version)

	history, err := h.history.GetByDocumentID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestSettle_Idempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	doc := h.create(t, domainwf.KindPurchaseOrder, "")

	_, err := h.effects.Settle(ctx, doc.ID, "fin-1")
	assert.ErrorIs(t, err, domainwf.ErrNotApproved)

	h.apply(t, doc.ID, domainwf.ActionSubmit, domainwf.RoleSubmitter, "")
	h.apply(t, doc.ID, domainwf.ActionApprove, domainwf.RoleSubmitter, "")
	h.apply(t, doc.ID, domainwf.ActionApprove, domainwf.RoleAuditor, "")
	out := h.apply(t, doc.ID, domainwf.ActionApprove, domainwf.RoleCEOOffice, "")
	require.Equal(t, domainwf.StageApproved, out.Stage)

	first, err := h.effects.Settle(ctx, doc.ID, "fin-1")
	require.NoError(t, err)
	second, err := h.effects.Settle(ctx, doc.ID, "fin-2")
	require.NoError(t, err)
	assert.Equal(t, out.PayableEntryID, first.ID)
	assert.Equal(t, first.ID, second.ID)

	entries, err := h.payables.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	var created int
	for _, typ := range h.events.types() {
		if typ == event.TypePayableCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)

	_, err = h.effects.Settle(ctx, "missing", "fin-1")
	assert.ErrorIs(t, err, domainwf.ErrDocumentNotFound)
}

func TestStagesOnlyMoveForward(t *testing.T) {
	order := map[domainwf.Stage]int{
		domainwf.StageDraft:           0,
		domainwf.StageActive:          1,
		domainwf.StageSentToAMAdmin:   2,
		domainwf.StageSentToHODAdmin:  3,
		domainwf.StageSentToAudit:     4,
		domainwf.StageSentToFinance:   5,
		domainwf.StageSentToCEOOffice: 6,
		domainwf.StageApproved:        7,
	}

	h := newHarness(t)
	ctx := context.Background()
	doc := h.create(t, domainwf.KindSettlement, "")

	steps := []struct {
		action domainwf.Action
		role   domainwf.Role
	}{
		{domainwf.ActionSubmit, domainwf.RoleSubmitter},
		{domainwf.ActionApprove, domainwf.RoleSubmitter},
		{domainwf.ActionApprove, domainwf.RoleAMAdmin},
		{domainwf.ActionApprove, domainwf.RoleHODAdmin},
		{domainwf.ActionApprove, domainwf.RoleAuditor},
		{domainwf.ActionApprove, domainwf.RoleFinance},
		{domainwf.ActionApprove, domainwf.RoleCEOOffice},
	}
	for _, step := range steps {
		h.apply(t, doc.ID, step.action, step.role, "")
	}

	history, err := h.history.GetByDocumentID(ctx, doc.ID)
	require.NoError(t, err)
	for _, rec := range history {
		assert.Greater(t, order[rec.ToStage], order[rec.FromStage], "%s -> %s", rec.FromStage, rec.ToStage)
	}
}

func TestWorkedScenarios(t *testing.T) {
	tests := []struct {
		name      string
		terms     string
		toCEO     bool
		action    domainwf.Action
		role      domainwf.Role
		signature string
		comments  string
		check     func(t *testing.T, h *harness, doc *entity.Document, out *workflow.TransitionOutcome, err error)
	}{
		{
			name: "net terms approved by CEO office creates the payable", terms: "Net 30", toCEO: true,
			action: domainwf.ActionApprove, role: domainwf.RoleCEOOffice, signature: "A. Khan",
			check: func(t *testing.T, h *harness, doc *entity.Document, out *workflow.TransitionOutcome, err error) {
				require.NoError(t, err)
				assert.Equal(t, domainwf.StageApproved, out.Stage)

				stored, err := h.docs.GetByID(context.Background(), doc.ID)
				require.NoError(t, err)
				assert.True(t, stored.AccountsPayableCreated)

				entries, err := h.payables.List(context.Background(), 10, 0)
				require.NoError(t, err)
				require.Len(t, entries, 1)
				assert.True(t, decimal.NewFromInt(50000).Equal(entries[0].Amount))
			},
		},
		{
			name: "advance terms approved by CEO office go to finance", terms: "100% Advance", toCEO: true,
			action: domainwf.ActionApprove, role: domainwf.RoleCEOOffice, signature: "A. Khan",
			check: func(t *testing.T, h *harness, doc *entity.Document, out *workflow.TransitionOutcome, err error) {
				require.NoError(t, err)
				assert.Equal(t, domainwf.StageSentToFinance, out.Stage)

				stored, err := h.docs.GetByID(context.Background(), doc.ID)
				require.NoError(t, err)
				assert.True(t, stored.SentToFinance)
				assert.False(t, stored.AccountsPayableCreated)
			},
		},
		{
			name: "reject at audit without comments", terms: "Net 30",
			action: domainwf.ActionReject, role: domainwf.RoleAuditor, signature: "R. Ali",
			check: func(t *testing.T, h *harness, doc *entity.Document, out *workflow.TransitionOutcome, err error) {
				assert.ErrorIs(t, err, domainwf.ErrMissingComments)

				stored, gerr := h.docs.GetByID(context.Background(), doc.ID)
				require.NoError(t, gerr)
				assert.Equal(t, domainwf.StageSentToAudit, stored.Stage)
				assert.Equal(t, doc.Version, stored.Version)
			},
		},
		{
			name: "return with objection then resubmit", terms: "Net 30",
			action: domainwf.ActionReturnWithObjection, role: domainwf.RoleAuditor, signature: "R. Ali",
			comments: "missing invoice copy",
			check: func(t *testing.T, h *harness, doc *entity.Document, out *workflow.TransitionOutcome, err error) {
				require.NoError(t, err)
				assert.Equal(t, domainwf.StageReturned, out.Stage)

				stored, err := h.docs.GetByID(context.Background(), doc.ID)
				require.NoError(t, err)
				assert.Equal(t, domainwf.StageSentToAudit, stored.ReturnedFrom)

				out = h.apply(t, doc.ID, domainwf.ActionResubmit, domainwf.RoleSubmitter, "")
				assert.Equal(t, domainwf.StageSentToAudit, out.Stage)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			doc := h.createWithAmount(t, domainwf.KindSettlement, tt.terms, "50000")
			h.walkToAudit(t, doc.ID)
			if tt.toCEO {
				h.apply(t, doc.ID, domainwf.ActionApprove, domainwf.RoleAuditor, "")
				h.apply(t, doc.ID, domainwf.ActionApprove, domainwf.RoleFinance, "")
			}

			current, err := h.docs.GetByID(ctx, doc.ID)
			require.NoError(t, err)

			out, err := h.engine.ApplyAction(ctx, workflow.ActionRequest{
				DocumentID:       doc.ID,
				ExpectedVersion:  current.Version,
				Action:           tt.action,
				ActorRole:        tt.role,
				ActorID:          "actor-" + string(tt.role),
				DigitalSignature: tt.signature,
				Comments:         tt.comments,
			})
			tt.check(t, h, current, out, err)
		})
	}
}
