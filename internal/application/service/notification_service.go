package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/finance-approval/internal/application/dispatcher"
	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/domain/event"
	"github.com/garyjia/finance-approval/internal/domain/workflow"
)

// NotificationService tells the desk now holding a document that it has work
type NotificationService interface {
	// Register subscribes the service to the dispatcher
	Register(d dispatcher.Dispatcher)
	// HandleTransition messages the owner of the stage a document moved to
	HandleTransition(ctx context.Context, evt *event.Event) error
	// HandlePayable messages Finance about a new ledger entry
	HandlePayable(ctx context.Context, evt *event.Event) error
}

type notificationServiceImpl struct {
	sender     port.MessageSender
	recipients map[workflow.Role][]string
	logger     Logger
}

// NewNotificationService creates a new NotificationService. A nil sender only logs.
func NewNotificationService(sender port.MessageSender, recipients map[workflow.Role][]string, logger Logger) NotificationService {
	return &notificationServiceImpl{
		sender:     sender,
		recipients: recipients,
		logger:     logger,
	}
}

// Register subscribes the service to the dispatcher
func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed("notify.transition", s.HandleTransition, event.TypeDocumentTransitioned)
	d.SubscribeNamed("notify.payable", s.HandlePayable, event.TypePayableCreated)
}

// HandleTransition messages the owner of the stage a document moved to. Terminal
// stages go back to the submitter.
func (s *notificationServiceImpl) HandleTransition(ctx context.Context, evt *event.Event) error {
	toStage := workflow.Stage(evt.GetPayloadString(event.KeyToStage))
	role, ok := toStage.Owner()
	if !ok {
		role = workflow.RoleSubmitter
	}

	text := buildTransitionMessage(evt, toStage)
	return s.notify(ctx, role, evt.DocumentID, text)
}

// HandlePayable messages Finance about a new ledger entry
func (s *notificationServiceImpl) HandlePayable(ctx context.Context, evt *event.Event) error {
	text := fmt.Sprintf("Payable %s created for document %s, amount %s",
		evt.GetPayloadString(event.KeyBillNumber),
		evt.DocumentID,
		evt.GetPayloadString(event.KeyAmount),
	)
	return s.notify(ctx, workflow.RoleFinance, evt.DocumentID, text)
}

func (s *notificationServiceImpl) notify(ctx context.Context, role workflow.Role, documentID, text string) error {
	receivers := s.recipients[role]
	if s.sender == nil || len(receivers) == 0 {
		s.logger.Info("Notification not delivered, no channel configured",
			"document_id", documentID,
			"role", role,
			"message", text,
		)
		return nil
	}

	var failed []string
	for _, receiver := range receivers {
		messageID, err := s.sender.SendText(ctx, receiver, text)
		if err != nil {
			s.logger.Error("Failed to send notification", "error", err, "document_id", documentID, "receiver", receiver)
			failed = append(failed, receiver)
			continue
		}
		s.logger.Info("Notification sent",
			"document_id", documentID,
			"role", role,
			"receiver", receiver,
			"message_id", messageID,
		)
	}

	if len(failed) > 0 {
		return fmt.Errorf("send notification to %s", strings.Join(failed, ", "))
	}
	return nil
}

func buildTransitionMessage(evt *event.Event, toStage workflow.Stage) string {
	var sb strings.Builder

	ref := evt.GetPayloadString(event.KeyReference)
	if ref == "" {
		ref = evt.DocumentID
	}

	switch toStage {
	case workflow.StageApproved:
		sb.WriteString(fmt.Sprintf("Document %s has been approved.", ref))
	case workflow.StageRejected:
		sb.WriteString(fmt.Sprintf("Document %s has been rejected.", ref))
	case workflow.StageReturned:
		sb.WriteString(fmt.Sprintf("Document %s was returned with an objection and needs your changes.", ref))
	default:
		sb.WriteString(fmt.Sprintf("Document %s is waiting at %s.", ref, toStage))
	}

	sb.WriteString(fmt.Sprintf("\nAction: %s by %s",
		evt.GetPayloadString(event.KeyAction),
		evt.GetPayloadString(event.KeyActorRole),
	))
	if comments := evt.GetPayloadString(event.KeyComments); comments != "" {
		sb.WriteString("\nComments: ")
		sb.WriteString(comments)
	}
	return sb.String()
}
