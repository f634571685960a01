package service

import (
	"context"

	"github.com/weiawesome/snapgram/pkg/log"
	"github.com/weiawesome/snapgram/pkg/pubsub"
)

// publish sends a domain event. Failures are logged; the store stays the
// source of truth.
func publish(ctx context.Context, pub pubsub.Publisher, eventType, subjectID, actorID string, payload interface{}) {
	l := log.Ctx(ctx)

	event, err := pubsub.NewEvent(eventType, subjectID, actorID, payload)
	if err != nil {
		l.Warn().Err(err).Str(log.FieldEventType, eventType).Msg("failed to build event")
		return
	}
	if err := pub.Publish(ctx, event); err != nil {
		l.Warn().Err(err).Str(log.FieldEventType, eventType).Msg("failed to publish event")
	}
}
