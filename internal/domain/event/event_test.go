package event

import (
	"testing"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"document created", TypeDocumentCreated, true},
		{"transitioned", TypeDocumentTransitioned, true},
		{"sent to finance", TypeDocumentSentToFinance, true},
		{"payable created", TypePayableCreated, true},
		{"observation answered", TypeObservationAnswered, true},
		{"unknown", Type("instance.created"), false},
		{"empty", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeDocumentApproved, "doc-1", map[string]interface{}{KeyVersion: int64(7)})

	if evt.ID == "" {
		t.Error("expected generated ID")
	}
	if evt.CorrelationID != evt.ID {
		t.Errorf("CorrelationID = %v, want the event's own ID", evt.CorrelationID)
	}
	if evt.DocumentID != "doc-1" {
		t.Errorf("DocumentID = %v, want doc-1", evt.DocumentID)
	}
	if evt.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}
	if got := evt.GetPayloadInt(KeyVersion); got != 7 {
		t.Errorf("GetPayloadInt() = %v, want 7", got)
	}
}

func TestNewEventWithCorrelation(t *testing.T) {
	parent := NewEvent(TypeDocumentApproved, "doc-1", nil)
	child := NewEventWithCorrelation(TypePayableCreated, "doc-1", nil, parent.ID)

	if child.CorrelationID != parent.ID {
		t.Errorf("CorrelationID = %v, want %v", child.CorrelationID, parent.ID)
	}
	if child.ID == parent.ID {
		t.Error("child event must have its own ID")
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeDocumentTransitioned, "doc-1", map[string]interface{}{KeyAction: "APPROVE"})
	updated := original.WithPayload(KeyActorID, "u-9")

	if _, ok := original.Payload[KeyActorID]; ok {
		t.Error("WithPayload mutated the original payload")
	}
	if updated.GetPayloadString(KeyActorID) != "u-9" {
		t.Errorf("GetPayloadString() = %v, want u-9", updated.GetPayloadString(KeyActorID))
	}
	if updated.GetPayloadString(KeyAction) != "APPROVE" {
		t.Error("WithPayload dropped existing keys")
	}
	if updated.ID != original.ID {
		t.Error("WithPayload must keep the event ID")
	}
}

func TestEvent_PayloadGetters(t *testing.T) {
	evt := NewEvent(TypeDocumentTransitioned, "doc-1", map[string]interface{}{
		"s": "text",
		"i": 3,
		"f": float64(4),
		"b": true,
	})

	if evt.GetPayloadString("s") != "text" || evt.GetPayloadString("i") != "" {
		t.Error("GetPayloadString mismatch")
	}
	if evt.GetPayloadInt("i") != 3 || evt.GetPayloadInt("f") != 4 || evt.GetPayloadInt("missing") != 0 {
		t.Error("GetPayloadInt mismatch")
	}
	if !evt.GetPayloadBool("b") || evt.GetPayloadBool("s") {
		t.Error("GetPayloadBool mismatch")
	}
}
