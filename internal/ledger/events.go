// internal/ledger/events.go
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventLobbyCreated EventType = "lobby_created"
	EventLobbyStatus  EventType = "lobby_status"
	EventBetPlaced    EventType = "bet_placed"
	EventBetPaid      EventType = "bet_paid"
	EventFunded       EventType = "funded"
)

// Event describes one committed ledger change.
type Event struct {
	ID     uuid.UUID `json:"id"`
	Type   EventType `json:"type"`
	Lobby  string    `json:"lobby,omitempty"`
	GameID string    `json:"game_id,omitempty"`
	Bet    string    `json:"bet,omitempty"`
	Actor  string    `json:"actor"`
	Player string    `json:"player_name,omitempty"`
	Status string    `json:"status,omitempty"`
	Amount uint64    `json:"amount,omitempty"`
	At     time.Time `json:"at"`
}

// EventSink receives events after their operation has committed. A failing
// sink never undoes the operation.
type EventSink interface {
	Publish(ctx context.Context, ev Event) error
}

// MultiSink fans an event out to every sink, returning the first error.
type MultiSink []EventSink

func (m MultiSink) Publish(ctx context.Context, ev Event) error {
	var first error
	for _, s := range m {
		if err := s.Publish(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type nopSink struct{}

func (nopSink) Publish(context.Context, Event) error { return nil }

func (l *Ledger) emit(ctx context.Context, ev Event) {
	ev.ID = uuid.New()
	if err := l.events.Publish(ctx, ev); err != nil {
		l.log.WithError(err).WithField("event", ev.Type).Warn("event publish failed")
	}
}
