// internal/store/store.go

// Package store holds the ledger's record store contract and the key-value
// backends (memory, LevelDB). The PostgreSQL backend lives in internal/database.
package store

import (
	"context"
	"errors"

	"github.com/jason-s-yu/pokerbets/internal/address"
	"github.com/jason-s-yu/pokerbets/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrExists   = errors.New("record already exists")
	ErrReadOnly = errors.New("write in read-only transaction")
)

// Tx is the view of the ledger a single operation works against. Every
// write made through a Tx becomes visible together on commit, or not at all.
type Tx interface {
	Lobby(addr address.Address) (*models.Lobby, error)
	// InsertLobby fails with ErrExists if the address is taken. It also
	// registers the lobby's escrow address as a custody account.
	InsertLobby(l *models.Lobby) error
	SaveLobby(l *models.Lobby) error
	// IsEscrow reports whether addr is the escrow of some stored lobby.
	IsEscrow(addr address.Address) (bool, error)

	Bet(addr address.Address) (*models.Bet, error)
	// InsertBet fails with ErrExists if the address is taken.
	InsertBet(b *models.Bet) error
	SaveBet(b *models.Bet) error
	// BetsByLobby lists bets in placement order.
	BetsByLobby(lobby address.Address) ([]*models.Bet, error)

	// Balance returns 0 for an address that has never held funds.
	Balance(addr address.Address) (uint64, error)
	SetBalance(addr address.Address, amount uint64) error
}

// Store runs functions inside transactions. Update serializes against every
// other Update touching the same records; View sees a consistent snapshot.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
