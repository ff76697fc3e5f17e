package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-marketplace/internal/events"
)

// InsertDomainEvent appends an event to the domain event log.
func (s *Store) InsertDomainEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	if s == nil || s.db == nil {
		return events.Event{}, ErrStoreUnavailable
	}
	ev := events.Event{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
	}
	err := s.db.QueryRow(ctx, `INSERT INTO domain_events (id, topic, aggregate_id, payload)
VALUES ($1, $2, $3, $4) RETURNING occurred_at`, ev.ID, ev.Topic, ev.AggregateID, ev.Payload).
		Scan(&ev.OccurredAt)
	if err != nil {
		return events.Event{}, err
	}
	return ev, nil
}
