package dispatcher

import (
	"context"

	"github.com/garyjia/finance-approval/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes a registered handler
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}

// Publisher is the narrow view of the dispatcher that application services publish through
type Publisher interface {
	DispatchAsync(ctx context.Context, evt *event.Event)
}
