// internal/database/events.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/pokerbets/internal/ledger"
)

// InsertEventTx records one ledger event. Replays of the same event ID are
// ignored.
func InsertEventTx(ctx context.Context, tx pgx.Tx, ev ledger.Event) error {
	q := `
	INSERT INTO ledger_events (id, type, lobby, game_id, bet, actor, player_name, status, amount, at)
	VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10)
	ON CONFLICT (id) DO NOTHING
	`
	_, err := tx.Exec(ctx, q,
		ev.ID, string(ev.Type), ev.Lobby, ev.GameID, ev.Bet, ev.Actor, ev.Player, ev.Status, toNumeric(ev.Amount), ev.At,
	)
	return err
}

// InsertEvents writes a batch of events in a single transaction.
func InsertEvents(ctx context.Context, pool *pgxpool.Pool, events []ledger.Event) error {
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, ev := range events {
			if err := InsertEventTx(ctx, tx, ev); err != nil {
				return fmt.Errorf("insert event %s: %w", ev.ID, err)
			}
		}
		return nil
	})
}

// LobbyEvents returns a lobby's recorded events, oldest first.
func LobbyEvents(ctx context.Context, pool *pgxpool.Pool, lobby string) ([]ledger.Event, error) {
	q := `
	SELECT id, type, lobby, game_id, bet, actor, player_name, status, amount, at
	FROM ledger_events
	WHERE lobby = $1
	ORDER BY at, recorded_at
	`
	rows, err := pool.Query(ctx, q, lobby)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Event
	for rows.Next() {
		var (
			ev                             ledger.Event
			typ                            string
			lob, game, bet, player, status pgtype.Text
			amount                         pgtype.Numeric
			at                             time.Time
		)
		if err := rows.Scan(&ev.ID, &typ, &lob, &game, &bet, &ev.Actor, &player, &status, &amount, &at); err != nil {
			return nil, err
		}
		if ev.Amount, err = fromNumeric(amount); err != nil {
			return nil, err
		}
		ev.Type = ledger.EventType(typ)
		ev.Lobby, ev.GameID, ev.Bet = lob.String, game.String, bet.String
		ev.Player, ev.Status = player.String, status.String
		ev.At = at.UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}

// EventLog is a ledger.EventSink that writes each event straight to
// ledger_events, for deployments without a Redis queue.
type EventLog struct {
	Pool *pgxpool.Pool
}

func (e EventLog) Publish(ctx context.Context, ev ledger.Event) error {
	return InsertEvents(ctx, e.Pool, []ledger.Event{ev})
}
