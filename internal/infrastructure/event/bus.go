package event

import (
	"context"
	"errors"
	"sync"

	"github.com/saas/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

const defaultQueueSize = 256

// InMemoryEventBus delivers domain events to subscribed handlers.
//
// Once started, Publish only enqueues and a single worker delivers in publish
// order, so a slow handler never delays the request that raised the event.
// Before Start (and after Stop) events are delivered inline.
// Handler errors and panics are logged and never reach the publisher.
type InMemoryEventBus struct {
	registry  *HandlerRegistry
	logger    *zap.Logger
	queueSize int

	mu      sync.RWMutex
	queue   chan envelope
	running bool
	wg      sync.WaitGroup
}

type envelope struct {
	ctx   context.Context
	event shared.DomainEvent
}

// Option configures an InMemoryEventBus
type Option func(*InMemoryEventBus)

// WithQueueSize sets the capacity of the delivery queue
func WithQueueSize(n int) Option {
	return func(b *InMemoryEventBus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...Option) *InMemoryEventBus {
	b := &InMemoryEventBus{
		registry:  NewHandlerRegistry(),
		logger:    logger,
		queueSize: defaultQueueSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish hands events to the worker. When the queue is full the event is
// delivered inline rather than dropped.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	// delivery outlives the request that raised the event
	ctx = context.WithoutCancel(ctx)

	for _, event := range events {
		if event == nil {
			continue
		}
		if b.enqueue(ctx, event) {
			continue
		}
		b.deliver(ctx, event)
	}
	return nil
}

func (b *InMemoryEventBus) enqueue(ctx context.Context, event shared.DomainEvent) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.running {
		return false
	}
	select {
	case b.queue <- envelope{ctx: ctx, event: event}:
		return true
	default:
		b.logger.Warn("Event queue full, delivering inline",
			zap.String("event_type", event.EventType()))
		return false
	}
}

// Subscribe registers a handler for specific event types
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("Handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start launches the delivery worker
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return errors.New("event bus already started")
	}
	b.queue = make(chan envelope, b.queueSize)
	b.running = true

	b.wg.Add(1)
	go b.work(b.queue)

	b.logger.Info("Event bus started", zap.Int("queue_size", b.queueSize))
	return nil
}

// Stop closes the queue and waits until queued events are delivered or ctx ends
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	close(b.queue)
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *InMemoryEventBus) work(queue <-chan envelope) {
	defer b.wg.Done()
	for env := range queue {
		b.deliver(env.ctx, env.event)
	}
}

func (b *InMemoryEventBus) deliver(ctx context.Context, event shared.DomainEvent) {
	for _, handler := range b.registry.HandlersFor(event.EventType()) {
		if err := b.dispatchToHandler(ctx, handler, event); err != nil {
			b.logger.Error("Handler failed to process event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Error(err))
		}
	}
}

func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r))
		}
	}()

	return handler.Handle(ctx, event)
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
