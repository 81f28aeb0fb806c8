package port

import "context"

// MessageSender delivers a plain text message to a person in the chat workspace
type MessageSender interface {
	SendText(ctx context.Context, receiverID string, text string) (messageID string, err error)
}
