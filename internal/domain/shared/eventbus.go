package shared

import "context"

// EventBus delivers published domain events to subscribed handlers. Start
// begins delivery; Stop drains what is queued before returning.
type EventBus interface {
	EventPublisher
	// Subscribe registers handler for eventTypes, or for handler.EventTypes()
	// when none are given
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
