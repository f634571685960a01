package pubsub

import "context"

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
