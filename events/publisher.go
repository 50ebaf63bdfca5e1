package events

// Publisher is an interface for async events.
type Publisher interface {
	Publish(e Event)
}

// NullPublisher discards events. Used when no event queue is configured and
// in tests.
type NullPublisher struct{}

// Publish implements the Publisher interface.
func (NullPublisher) Publish(e Event) {}
