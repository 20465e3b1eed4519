// internal/database/bet.go
package database

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jason-s-yu/pokerbets/internal/address"
	"github.com/jason-s-yu/pokerbets/internal/models"
	"github.com/jason-s-yu/pokerbets/internal/store"
)

const betColumns = `address, bettor, lobby, player_name, amount, placed_at, status, settled_at`

func scanBet(row pgx.Row) (*models.Bet, error) {
	var (
		b       models.Bet
		amount  pgtype.Numeric
		settled *time.Time
	)
	if err := row.Scan(&b.Address, &b.Bettor, &b.Lobby, &b.PlayerName, &amount, &b.PlacedAt, &b.Status, &settled); err != nil {
		return nil, err
	}
	v, err := fromNumeric(amount)
	if err != nil {
		return nil, err
	}
	b.Amount = v
	b.PlacedAt = b.PlacedAt.UTC()
	if settled != nil {
		s := settled.UTC()
		b.SettledAt = &s
	}
	return &b, nil
}

func (t *pgTx) Bet(addr address.Address) (*models.Bet, error) {
	q := `SELECT ` + betColumns + ` FROM bets WHERE address = $1` + t.lockClause()
	b, err := scanBet(t.tx.QueryRow(t.ctx, q, addr.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return b, err
}

func (t *pgTx) InsertBet(b *models.Bet) error {
	if err := t.writable(); err != nil {
		return err
	}
	q := `INSERT INTO bets (` + betColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := t.tx.Exec(t.ctx, q,
		b.Address, b.Bettor, b.Lobby, b.PlayerName, toNumeric(b.Amount), b.PlacedAt, string(b.Status), b.SettledAt,
	)
	return uniqueViolation(err)
}

func (t *pgTx) SaveBet(b *models.Bet) error {
	if err := t.writable(); err != nil {
		return err
	}
	q := `UPDATE bets SET status = $2, settled_at = $3 WHERE address = $1`
	tag, err := t.tx.Exec(t.ctx, q, b.Address, string(b.Status), b.SettledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *pgTx) BetsByLobby(lobby address.Address) ([]*models.Bet, error) {
	q := `SELECT ` + betColumns + ` FROM bets WHERE lobby = $1 ORDER BY placed_at, address`
	rows, err := t.tx.Query(t.ctx, q, lobby.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}
