package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/garyjia/finance-approval/internal/domain/workflow"
)

// BusinessStatus is the coarse status shown to people outside the approval chain
type BusinessStatus string

const (
	BusinessStatusDraft     BusinessStatus = "DRAFT"
	BusinessStatusSubmitted BusinessStatus = "SUBMITTED"
	BusinessStatusApproved  BusinessStatus = "APPROVED"
	BusinessStatusRejected  BusinessStatus = "REJECTED"
	// BusinessStatusPaid is set by the payments system, never by the approval engine.
	BusinessStatusPaid BusinessStatus = "PAID"
)

// Document is a settlement or purchase order routed through the approval chain
type Document struct {
	ID                        string          `json:"id"`
	Kind                      workflow.Kind   `json:"kind"`
	ReferenceNumber           string          `json:"reference_number"`
	Amount                    decimal.Decimal `json:"amount"`
	PaymentTerms              string          `json:"payment_terms"`
	VendorName                string          `json:"vendor_name"`
	Department                string          `json:"department"`
	Stage                     workflow.Stage  `json:"stage"`
	ReturnedFrom              workflow.Stage  `json:"returned_from,omitempty"`
	BusinessStatus            BusinessStatus  `json:"business_status"`
	Version                   int64           `json:"version"`
	Cycle                     int             `json:"cycle"`
	AccountsPayableCreated    bool            `json:"accounts_payable_created"`
	SentToFinance             bool            `json:"sent_to_finance"`
	ResubmissionChangeSummary string          `json:"resubmission_change_summary,omitempty"`
	CreatedBy                 string          `json:"created_by"`
	CreatedAt                 time.Time       `json:"created_at"`
	UpdatedAt                 time.Time       `json:"updated_at"`
	History                   []WorkflowEvent `json:"history,omitempty"`
	Observations              []Observation   `json:"observations,omitempty"`
}

// NewDocumentParams carries the intake fields for a new draft
type NewDocumentParams struct {
	Kind            workflow.Kind
	ReferenceNumber string
	Amount          decimal.Decimal
	PaymentTerms    string
	VendorName      string
	Department      string
	CreatedBy       string
}

// NewDocument creates a DRAFT document at version 1
func NewDocument(p NewDocumentParams, now time.Time) (*Document, error) {
	if !p.Kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown kind %q", workflow.ErrInvalidDocument, p.Kind)
	}
	if p.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount must not be negative", workflow.ErrInvalidDocument)
	}
	if strings.TrimSpace(p.VendorName) == "" {
		return nil, fmt.Errorf("%w: vendor name is required", workflow.ErrInvalidDocument)
	}

	return &Document{
		ID:              uuid.NewString(),
		Kind:            p.Kind,
		ReferenceNumber: strings.TrimSpace(p.ReferenceNumber),
		Amount:          p.Amount,
		PaymentTerms:    p.PaymentTerms,
		VendorName:      strings.TrimSpace(p.VendorName),
		Department:      p.Department,
		Stage:           workflow.StageDraft,
		BusinessStatus:  BusinessStatusDraft,
		Version:         1,
		CreatedBy:       p.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Facts returns what the transition table's guards need to know about the document
func (d *Document) Facts() workflow.Facts {
	return workflow.Facts{
		SentToFinance: d.SentToFinance,
		ReturnedFrom:  d.ReturnedFrom,
	}
}

// Clone copies the document's scalar fields. History and observations are not carried.
func (d *Document) Clone() *Document {
	c := *d
	c.History = nil
	c.Observations = nil
	return &c
}

// DeriveBusinessStatus maps a routing stage to the status shown outside the chain
func DeriveBusinessStatus(stage workflow.Stage) BusinessStatus {
	switch stage {
	case workflow.StageDraft:
		return BusinessStatusDraft
	case workflow.StageApproved:
		return BusinessStatusApproved
	case workflow.StageRejected:
		return BusinessStatusRejected
	default:
		return BusinessStatusSubmitted
	}
}
