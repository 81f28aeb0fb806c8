package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/garyjia/finance-approval/internal/domain/event"
)

// ErrClosed is returned when dispatching on a closed dispatcher
var ErrClosed = errors.New("dispatcher is closed")

// Dispatcher routes domain events to registered handlers
type Dispatcher interface {
	Publisher

	// Subscribe registers a handler for an event type under a generated name
	Subscribe(eventType event.Type, handler Handler)

	// SubscribeNamed registers a handler for one or more event types
	SubscribeNamed(name string, handler Handler, eventTypes ...event.Type)

	// Dispatch runs every handler for the event in registration order.
	// All handlers run even if one fails; the failures are joined.
	Dispatch(ctx context.Context, evt *event.Event) error

	// ListHandlers returns registered handlers for an event type
	ListHandlers(eventType event.Type) []HandlerInfo

	// Close stops accepting events and waits for async handlers
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type eventDispatcher struct {
	mu       sync.RWMutex
	handlers map[event.Type][]HandlerInfo
	logger   Logger

	// life guards closed and every wg.Add, so Add never races Close's Wait
	life   sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		handlers: make(map[event.Type][]HandlerInfo),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Subscribe registers a handler for an event type under a generated name
func (d *eventDispatcher) Subscribe(eventType event.Type, handler Handler) {
	d.mu.RLock()
	name := fmt.Sprintf("%s#%d", eventType, len(d.handlers[eventType]))
	d.mu.RUnlock()
	d.SubscribeNamed(name, handler, eventType)
}

// SubscribeNamed registers a handler for one or more event types
func (d *eventDispatcher) SubscribeNamed(name string, handler Handler, eventTypes ...event.Type) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, eventType := range eventTypes {
		d.handlers[eventType] = append(d.handlers[eventType], HandlerInfo{
			Name:      name,
			EventType: eventType,
			Handler:   handler,
		})

		if d.logger != nil {
			d.logger.Info("Handler registered",
				"event_type", eventType,
				"handler_name", name,
			)
		}
	}
}

// Dispatch runs every handler for the event in registration order
func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.isClosed() {
		return ErrClosed
	}

	handlers := d.snapshot(evt.Type)

	var errs []error
	for _, info := range handlers {
		if err := d.safeExecute(ctx, evt, info); err != nil {
			d.logHandlerError(evt, info, err)
			errs = append(errs, fmt.Errorf("handler %s failed: %w", info.Name, err))
		}
	}

	return errors.Join(errs...)
}

// DispatchAsync runs handlers on their own goroutines. Handlers outlive the caller's
// request, so they get a context that is not cancelled with it.
func (d *eventDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	handlers := d.snapshot(evt.Type)

	d.life.Lock()
	if d.closed {
		d.life.Unlock()
		if d.logger != nil {
			d.logger.Error("Cannot dispatch async event, dispatcher is closed",
				"event_type", evt.Type,
				"event_id", evt.ID,
			)
		}
		return
	}
	d.wg.Add(len(handlers))
	d.life.Unlock()

	detached := context.WithoutCancel(ctx)
	for _, info := range handlers {
		go func(h HandlerInfo) {
			defer d.wg.Done()
			if err := d.safeExecute(detached, evt, h); err != nil {
				d.logHandlerError(evt, h, err)
			}
		}(info)
	}
}

// ListHandlers returns registered handlers for an event type, without the functions
func (d *eventDispatcher) ListHandlers(eventType event.Type) []HandlerInfo {
	handlers := d.snapshot(eventType)
	result := make([]HandlerInfo, len(handlers))
	for i, h := range handlers {
		result[i] = HandlerInfo{Name: h.Name, EventType: h.EventType}
	}
	return result
}

// Close stops accepting events and waits for async handlers
func (d *eventDispatcher) Close() error {
	d.life.Lock()
	if d.closed {
		d.life.Unlock()
		return ErrClosed
	}
	d.closed = true
	d.life.Unlock()

	d.wg.Wait()

	if d.logger != nil {
		d.logger.Info("Dispatcher closed")
	}
	return nil
}

func (d *eventDispatcher) isClosed() bool {
	d.life.Lock()
	defer d.life.Unlock()
	return d.closed
}

func (d *eventDispatcher) snapshot(eventType event.Type) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]HandlerInfo(nil), d.handlers[eventType]...)
}

func (d *eventDispatcher) logHandlerError(evt *event.Event, info HandlerInfo, err error) {
	if d.logger == nil {
		return
	}
	d.logger.Error("Handler error",
		"event_type", evt.Type,
		"event_id", evt.ID,
		"document_id", evt.DocumentID,
		"handler_name", info.Name,
		"error", err,
	)
}

// safeExecute runs a handler with panic recovery
func (d *eventDispatcher) safeExecute(ctx context.Context, evt *event.Event, info HandlerInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return info.Handler(ctx, evt)
}
