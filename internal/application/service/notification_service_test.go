package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/finance-approval/internal/application/dispatcher"
	"github.com/garyjia/finance-approval/internal/domain/event"
	"github.com/garyjia/finance-approval/internal/domain/workflow"
)

type sentMessage struct {
	receiver string
	text     string
}

type mockMessageSender struct {
	sent    []sentMessage
	failFor map[string]bool
}

func (m *mockMessageSender) SendText(ctx context.Context, receiverID string, text string) (string, error) {
	if m.failFor[receiverID] {
		return "", errors.New("lark unavailable")
	}
	m.sent = append(m.sent, sentMessage{receiver: receiverID, text: text})
	return "om_" + receiverID, nil
}

func transitionEvent(to workflow.Stage, comments string) *event.Event {
	return event.NewEvent(event.TypeDocumentTransitioned, "doc-1", map[string]interface{}{
		event.KeyFromStage: string(workflow.StageSentToHODAdmin),
		event.KeyToStage:   string(to),
		event.KeyAction:    string(workflow.ActionApprove),
		event.KeyActorRole: string(workflow.RoleHODAdmin),
		event.KeyReference: "SET-42",
		event.KeyComments:  comments,
	})
}

func TestNotificationService_HandleTransition(t *testing.T) {
	recipients := map[workflow.Role][]string{
		workflow.RoleAuditor:   {"ou_aud1", "ou_aud2"},
		workflow.RoleSubmitter: {"ou_emp"},
	}

	tests := []struct {
		name      string
		to        workflow.Stage
		comments  string
		receivers []string
		contains  string
	}{
		{
			name:      "routing stage goes to its desk",
			to:        workflow.StageSentToAudit,
			receivers: []string{"ou_aud1", "ou_aud2"},
			contains:  "waiting at SENT_TO_AUDIT",
		},
		{
			name:      "returned goes to submitter with comments",
			to:        workflow.StageReturned,
			comments:  "Attach GRN",
			receivers: []string{"ou_emp"},
			contains:  "Comments: Attach GRN",
		},
		{
			name:      "terminal stage goes to submitter",
			to:        workflow.StageApproved,
			receivers: []string{"ou_emp"},
			contains:  "SET-42 has been approved",
		},
		{
			name: "desk without recipients is only logged",
			to:   workflow.StageSentToFinance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &mockMessageSender{}
			svc := NewNotificationService(sender, recipients, &mockLogger{})

			err := svc.HandleTransition(context.Background(), transitionEvent(tt.to, tt.comments))
			require.NoError(t, err)

			require.Len(t, sender.sent, len(tt.receivers))
			for i, receiver := range tt.receivers {
				assert.Equal(t, receiver, sender.sent[i].receiver)
				assert.Contains(t, sender.sent[i].text, tt.contains)
			}
		})
	}
}

func TestNotificationService_PartialFailure(t *testing.T) {
	sender := &mockMessageSender{failFor: map[string]bool{"ou_fin2": true}}
	svc := NewNotificationService(sender, map[workflow.Role][]string{
		workflow.RoleFinance: {"ou_fin1", "ou_fin2"},
	}, &mockLogger{})

	evt := event.NewEvent(event.TypePayableCreated, "doc-9", map[string]interface{}{
		event.KeyBillNumber: "PO-1234abcd",
		event.KeyAmount:     "250.00",
	})
	err := svc.HandlePayable(context.Background(), evt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ou_fin2")

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].text, "PO-1234abcd")
}

func TestNotificationService_NoSender(t *testing.T) {
	svc := NewNotificationService(nil, nil, &mockLogger{})
	assert.NoError(t, svc.HandleTransition(context.Background(), transitionEvent(workflow.StageSentToAudit, "")))
}

func TestNotificationService_Register(t *testing.T) {
	d := dispatcher.NewDispatcher()
	svc := NewNotificationService(nil, nil, &mockLogger{})
	svc.Register(d)

	assert.Len(t, d.ListHandlers(event.TypeDocumentTransitioned), 1)
	assert.Len(t, d.ListHandlers(event.TypePayableCreated), 1)
}
