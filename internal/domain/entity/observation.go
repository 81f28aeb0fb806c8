package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/finance-approval/internal/domain/workflow"
)

// Severity ranks an auditor's finding
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid returns true if the severity is known
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// ParseSeverity accepts any casing of a known severity
func ParseSeverity(raw string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", workflow.ErrInvalidSeverity, raw)
	}
	return s, nil
}

// Observation is an auditor's finding attached to one submission cycle of a document
type Observation struct {
	ID         string     `json:"id"`
	DocumentID string     `json:"document_id"`
	Cycle      int        `json:"cycle"`
	Text       string     `json:"text"`
	Severity   Severity   `json:"severity"`
	RaisedBy   string     `json:"raised_by"`
	RaisedAt   time.Time  `json:"raised_at"`
	Answer     string     `json:"answer,omitempty"`
	AnsweredBy string     `json:"answered_by,omitempty"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
}

// NewObservation creates an unanswered observation for the document's current cycle
func NewObservation(doc *Document, text string, severity Severity, raisedBy string, now time.Time) (*Observation, error) {
	if strings.TrimSpace(text) == "" {
		return nil, workflow.ErrEmptyObservation
	}
	if !severity.IsValid() {
		return nil, fmt.Errorf("%w: %q", workflow.ErrInvalidSeverity, severity)
	}
	return &Observation{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Cycle:      doc.Cycle,
		Text:       strings.TrimSpace(text),
		Severity:   severity,
		RaisedBy:   raisedBy,
		RaisedAt:   now,
	}, nil
}

// Resolved reports whether the observation has been answered
func (o *Observation) Resolved() bool {
	return o.Answer != ""
}

// Blocking reports whether the observation holds up a resubmit in the given cycle
func (o *Observation) Blocking(cycle int) bool {
	return o.Cycle == cycle && o.Severity == SeverityCritical && !o.Resolved()
}
