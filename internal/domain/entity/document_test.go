package entity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/finance-approval/internal/domain/workflow"
)

func TestNewDocument(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	doc, err := NewDocument(NewDocumentParams{
		Kind:         workflow.KindSettlement,
		Amount:       decimal.NewFromInt(50000),
		PaymentTerms: "Net 30",
		VendorName:   "  Orion Supplies ",
		Department:   "Procurement",
		CreatedBy:    "u-1",
	}, now)
	require.NoError(t, err)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, workflow.StageDraft, doc.Stage)
	assert.Equal(t, BusinessStatusDraft, doc.BusinessStatus)
	assert.Equal(t, int64(1), doc.Version)
	assert.Equal(t, 0, doc.Cycle)
	assert.Equal(t, "Orion Supplies", doc.VendorName)
	assert.False(t, doc.AccountsPayableCreated)
	assert.False(t, doc.SentToFinance)
	assert.Equal(t, now, doc.CreatedAt)
}

func TestNewDocument_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		params NewDocumentParams
	}{
		{"unknown kind", NewDocumentParams{Kind: "INVOICE", Amount: decimal.NewFromInt(1), VendorName: "v"}},
		{"negative amount", NewDocumentParams{Kind: workflow.KindPurchaseOrder, Amount: decimal.NewFromInt(-5), VendorName: "v"}},
		{"missing vendor", NewDocumentParams{Kind: workflow.KindPurchaseOrder, Amount: decimal.NewFromInt(5)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDocument(tt.params, time.Now())
			assert.ErrorIs(t, err, workflow.ErrInvalidDocument)
		})
	}
}

func TestDeriveBusinessStatus(t *testing.T) {
	tests := []struct {
		stage workflow.Stage
		want  BusinessStatus
	}{
		{workflow.StageDraft, BusinessStatusDraft},
		{workflow.StageActive, BusinessStatusSubmitted},
		{workflow.StageSentToFinance, BusinessStatusSubmitted},
		{workflow.StageReturned, BusinessStatusSubmitted},
		{workflow.StageApproved, BusinessStatusApproved},
		{workflow.StageRejected, BusinessStatusRejected},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveBusinessStatus(tt.stage))
		})
	}
}

func TestDocument_CloneDropsCollections(t *testing.T) {
	doc := &Document{ID: "d1", Version: 3, History: []WorkflowEvent{{Sequence: 1}}, Observations: []Observation{{ID: "o1"}}}
	c := doc.Clone()
	c.Version = 4

	assert.Equal(t, int64(3), doc.Version)
	assert.Nil(t, c.History)
	assert.Nil(t, c.Observations)
	assert.Len(t, doc.History, 1)
}

func TestObservation(t *testing.T) {
	doc := &Document{ID: "d1", Cycle: 2}
	now := time.Now()

	obs, err := NewObservation(doc, " missing invoice copy ", SeverityCritical, "auditor-1", now)
	require.NoError(t, err)
	assert.Equal(t, 2, obs.Cycle)
	assert.Equal(t, "missing invoice copy", obs.Text)
	assert.False(t, obs.Resolved())
	assert.True(t, obs.Blocking(2))
	assert.False(t, obs.Blocking(3), "observations from earlier cycles do not block")

	obs.Answer = "attached"
	assert.True(t, obs.Resolved())
	assert.False(t, obs.Blocking(2))

	_, err = NewObservation(doc, "   ", SeverityLow, "auditor-1", now)
	assert.ErrorIs(t, err, workflow.ErrEmptyObservation)

	_, err = NewObservation(doc, "text", Severity("urgent"), "auditor-1", now)
	assert.ErrorIs(t, err, workflow.ErrInvalidSeverity)
}

func TestParseSeverity(t *testing.T) {
	s, err := ParseSeverity("Critical")
	require.NoError(t, err)
	assert.Equal(t, SeverityCritical, s)

	_, err = ParseSeverity("blocker")
	assert.ErrorIs(t, err, workflow.ErrInvalidSeverity)
}
