// internal/ledger/ledger.go

// Package ledger implements the lobby lifecycle, bet placement, and
// single-winner settlement over an escrow custody account per lobby.
// Every operation runs inside one store transaction and either commits
// fully or returns exactly one typed error.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jason-s-yu/pokerbets/internal/address"
	"github.com/jason-s-yu/pokerbets/internal/metrics"
	"github.com/jason-s-yu/pokerbets/internal/models"
	"github.com/jason-s-yu/pokerbets/internal/store"
	"github.com/sirupsen/logrus"
)

// Defaults for Options.
const (
	DefaultCustodyReserve = 890880
	DefaultMaxModelNames  = 10
	DefaultMaxNameLength  = 32
	MaxGameIDLength       = 32
)

// Caller is the identity an operation runs as. Signed is the host's
// assertion that the caller proved control of Address.
type Caller struct {
	Address address.Address
	Signed  bool
}

// Signer returns a signed caller for addr.
func Signer(addr address.Address) Caller {
	return Caller{Address: addr, Signed: true}
}

type Options struct {
	// CustodyReserve is moved from the owner into escrow when a lobby is
	// created. It is never paid out.
	CustodyReserve uint64
	MaxModelNames  int
	MaxNameLength  int
	// FinishedIsTerminal rejects any status change once a lobby is Finished.
	FinishedIsTerminal bool
}

func DefaultOptions() Options {
	return Options{
		CustodyReserve: DefaultCustodyReserve,
		MaxModelNames:  DefaultMaxModelNames,
		MaxNameLength:  DefaultMaxNameLength,
	}
}

type Ledger struct {
	store   store.Store
	events  EventSink
	now     func() time.Time
	opts    Options
	log     *logrus.Logger
	metrics *metrics.Registry
}

type Option func(*Ledger)

func WithEvents(sink EventSink) Option {
	return func(l *Ledger) { l.events = sink }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithLogger(log *logrus.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(l *Ledger) { l.metrics = m }
}

func New(st store.Store, opts Options, extra ...Option) *Ledger {
	if opts.MaxModelNames <= 0 {
		opts.MaxModelNames = DefaultMaxModelNames
	}
	if opts.MaxNameLength <= 0 {
		opts.MaxNameLength = DefaultMaxNameLength
	}
	l := &Ledger{
		store:  st,
		events: nopSink{},
		now:    time.Now,
		opts:   opts,
		log:    logrus.StandardLogger(),
	}
	for _, o := range extra {
		o(l)
	}
	return l
}

func (l *Ledger) Options() Options { return l.opts }

func (l *Ledger) timestamp() time.Time {
	return l.now().UTC()
}

// update runs fn in a write transaction and records the outcome.
func (l *Ledger) update(ctx context.Context, op string, fn func(tx store.Tx) error) error {
	start := time.Now()
	err := l.store.Update(ctx, fn)
	kind, _ := KindOf(err)
	if err != nil && kind == "" {
		kind = "internal"
	}
	l.metrics.ObserveOp(op, start, string(kind))
	return err
}

func requireSigner(c Caller) error {
	if !c.Signed || c.Address == "" {
		return ErrSignatureRequired
	}
	return nil
}

func loadLobby(tx store.Tx, addr address.Address) (*models.Lobby, error) {
	lob, err := tx.Lobby(addr)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fail(ErrLobbyNotFound, "%s", addr)
	}
	return lob, err
}

func loadBet(tx store.Tx, addr address.Address) (*models.Bet, error) {
	b, err := tx.Bet(addr)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fail(ErrBetNotFound, "%s", addr)
	}
	return b, err
}

// Lobby returns the lobby stored at addr.
func (l *Ledger) Lobby(ctx context.Context, addr address.Address) (*models.Lobby, error) {
	var out *models.Lobby
	err := l.store.View(ctx, func(tx store.Tx) error {
		lob, err := loadLobby(tx, addr)
		out = lob
		return err
	})
	return out, err
}

// LobbyByGameID derives the lobby address from gameID and loads it.
func (l *Ledger) LobbyByGameID(ctx context.Context, gameID string) (*models.Lobby, error) {
	return l.Lobby(ctx, address.Lobby(gameID))
}

func (l *Ledger) Bet(ctx context.Context, addr address.Address) (*models.Bet, error) {
	var out *models.Bet
	err := l.store.View(ctx, func(tx store.Tx) error {
		b, err := loadBet(tx, addr)
		out = b
		return err
	})
	return out, err
}

// Bets lists a lobby's bets in placement order.
func (l *Ledger) Bets(ctx context.Context, lobby address.Address) ([]*models.Bet, error) {
	var out []*models.Bet
	err := l.store.View(ctx, func(tx store.Tx) error {
		if _, err := loadLobby(tx, lobby); err != nil {
			return err
		}
		bets, err := tx.BetsByLobby(lobby)
		out = bets
		return err
	})
	return out, err
}

func (l *Ledger) Balance(ctx context.Context, addr address.Address) (uint64, error) {
	var bal uint64
	err := l.store.View(ctx, func(tx store.Tx) error {
		var err error
		bal, err = tx.Balance(addr)
		return err
	})
	return bal, err
}
