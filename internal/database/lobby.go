// internal/database/lobby.go
package database

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jason-s-yu/pokerbets/internal/address"
	"github.com/jason-s-yu/pokerbets/internal/models"
	"github.com/jason-s-yu/pokerbets/internal/store"
)

const lobbyColumns = `
	address, escrow, owner, game_id, model_names,
	starting_chips, small_blind, big_blind, max_hands,
	status, total_bets, custody_reserve,
	created_at, updated_at`

// Lobby loads a lobby, taking a row lock inside write transactions.
func (t *pgTx) Lobby(addr address.Address) (*models.Lobby, error) {
	q := `SELECT ` + lobbyColumns + ` FROM lobbies WHERE address = $1` + t.lockClause()

	var (
		l                        models.Lobby
		chips, small, big, hands pgtype.Numeric
		total, reserve           pgtype.Numeric
	)
	err := t.tx.QueryRow(t.ctx, q, addr.String()).Scan(
		&l.Address, &l.Escrow, &l.Owner, &l.GameID, &l.ModelNames,
		&chips, &small, &big, &hands,
		&l.Status, &total, &reserve,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	dst := []*uint64{&l.StartingChips, &l.SmallBlind, &l.BigBlind, &l.MaxHands, &l.TotalBets, &l.CustodyReserve}
	for i, n := range []pgtype.Numeric{chips, small, big, hands, total, reserve} {
		if *dst[i], err = fromNumeric(n); err != nil {
			return nil, err
		}
	}
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	return &l, nil
}

// InsertLobby creates a new lobby row.
func (t *pgTx) InsertLobby(l *models.Lobby) error {
	if err := t.writable(); err != nil {
		return err
	}
	q := `
	INSERT INTO lobbies (` + lobbyColumns + `)
	VALUES ($1, $2, $3, $4, $5,
	        $6, $7, $8, $9,
	        $10, $11, $12,
	        $13, $14)
	`
	_, err := t.tx.Exec(t.ctx, q,
		l.Address, l.Escrow, l.Owner, l.GameID, l.ModelNames,
		toNumeric(l.StartingChips), toNumeric(l.SmallBlind), toNumeric(l.BigBlind), toNumeric(l.MaxHands),
		string(l.Status), toNumeric(l.TotalBets), toNumeric(l.CustodyReserve),
		l.CreatedAt, l.UpdatedAt,
	)
	return uniqueViolation(err)
}

// SaveLobby writes back the mutable lobby fields.
func (t *pgTx) SaveLobby(l *models.Lobby) error {
	if err := t.writable(); err != nil {
		return err
	}
	q := `
	UPDATE lobbies
	SET status = $2, total_bets = $3, updated_at = $4
	WHERE address = $1
	`
	tag, err := t.tx.Exec(t.ctx, q, l.Address, string(l.Status), toNumeric(l.TotalBets), l.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// IsEscrow reports whether addr is some lobby's escrow account.
func (t *pgTx) IsEscrow(addr address.Address) (bool, error) {
	var ok bool
	err := t.tx.QueryRow(t.ctx, `SELECT EXISTS (SELECT 1 FROM lobbies WHERE escrow = $1)`, addr.String()).Scan(&ok)
	return ok, err
}
