package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/finance-approval/internal/application/port"
)

const msgTypeText = "text"

// messageCreator is the slice of the IM API the messenger calls
type messageCreator interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
}

// Messenger implements port.MessageSender over the Lark IM create-message API
type Messenger struct {
	messages      messageCreator
	receiveIDType string
	logger        *zap.Logger
}

// NewMessenger creates a new Lark message sender
func NewMessenger(sdk *SDKClient, receiveIDType string, logger *zap.Logger) *Messenger {
	return newMessenger(sdk.GetClient().Im.Message, receiveIDType, logger)
}

func newMessenger(messages messageCreator, receiveIDType string, logger *zap.Logger) *Messenger {
	if receiveIDType == "" {
		receiveIDType = DefaultReceiveIDType
	}
	return &Messenger{
		messages:      messages,
		receiveIDType: receiveIDType,
		logger:        logger,
	}
}

// SendText sends a plain text message and returns the Lark message ID
func (m *Messenger) SendText(ctx context.Context, receiverID string, text string) (string, error) {
	if receiverID == "" {
		return "", fmt.Errorf("receiver id cannot be empty")
	}
	if text == "" {
		return "", fmt.Errorf("text cannot be empty")
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("failed to encode message: %w", err)
	}

	body := larkim.NewCreateMessageReqBodyBuilder().
		ReceiveId(receiverID).
		MsgType(msgTypeText).
		Content(string(content)).
		Build()
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(m.receiveIDType).
		Body(body).
		Build()
	// Build only fills the unexported api request; keep the body readable
	req.Body = body

	resp, err := m.messages.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("receive_id", receiverID),
			zap.Error(err))
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("receive_id", receiverID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return "", fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	m.logger.Debug("Message sent",
		zap.String("message_id", messageID),
		zap.String("receive_id", receiverID))

	return messageID, nil
}

// Verify interface compliance
var _ port.MessageSender = (*Messenger)(nil)
