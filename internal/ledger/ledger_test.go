package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/pokerbets/internal/address"
	"github.com/jason-s-yu/pokerbets/internal/models"
	"github.com/jason-s-yu/pokerbets/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testReserve = 1000

// backends runs fn once per key-value store implementation.
func backends(t *testing.T, fn func(t *testing.T, st store.Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, store.NewMemoryStore())
	})
	t.Run("leveldb", func(t *testing.T) {
		st, err := store.NewMemLevelDB()
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
		fn(t, st)
	})
}

type recorder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	ctx    context.Context
	l      *Ledger
	st     store.Store
	events *recorder
	owner  Caller
	b1     Caller
	b2     Caller
}

func party(name string) Caller {
	return Signer(address.FromPubKey([]byte(name)))
}

func newFixture(t *testing.T, st store.Store, opts Options) *fixture {
	t.Helper()
	var (
		mu  sync.Mutex
		now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	rec := &recorder{}
	f := &fixture{
		ctx:    context.Background(),
		l:      New(st, opts, WithClock(clock), WithEvents(rec), WithLogger(log)),
		st:     st,
		events: rec,
		owner:  party("owner"),
		b1:     party("bettor-1"),
		b2:     party("bettor-2"),
	}
	for _, c := range []Caller{f.owner, f.b1, f.b2} {
		_, err := f.l.Fund(f.ctx, c.Address, 10_000)
		require.NoError(t, err)
	}
	return f
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.CustodyReserve = testReserve
	return opts
}

func (f *fixture) lobby(t *testing.T, gameID string, names ...string) *models.Lobby {
	t.Helper()
	lob, err := f.l.CreateLobby(f.ctx, f.owner, LobbyParams{GameID: gameID, ModelNames: names})
	require.NoError(t, err)
	return lob
}

func (f *fixture) balance(t *testing.T, addr address.Address) uint64 {
	t.Helper()
	bal, err := f.l.Balance(f.ctx, addr)
	require.NoError(t, err)
	return bal
}

func (f *fixture) finish(t *testing.T, lob *models.Lobby) {
	t.Helper()
	_, err := f.l.UpdateLobbyStatus(f.ctx, f.owner, address.Address(lob.Address), models.LobbyFinished)
	require.NoError(t, err)
}

func TestSingleWinnerScenario(t *testing.T) {
	backends(t, func(t *testing.T, st store.Store) {
		f := newFixture(t, st, testOptions())
		lob := f.lobby(t, "g1", "alice", "bob")
		lobAddr := address.Address(lob.Address)

		assert.Equal(t, models.LobbyWaiting, lob.Status)
		assert.Zero(t, lob.TotalBets)
		assert.EqualValues(t, 10_000-testReserve, f.balance(t, f.owner.Address))
		assert.EqualValues(t, testReserve, f.balance(t, address.Address(lob.Escrow)))

		bet1, err := f.l.PlaceBet(f.ctx, f.b1, lobAddr, "alice", 100)
		require.NoError(t, err)
		_, err = f.l.PlaceBet(f.ctx, f.b2, lobAddr, "bob", 50)
		require.NoError(t, err)

		got, err := f.l.LobbyByGameID(f.ctx, "g1")
		require.NoError(t, err)
		assert.EqualValues(t, 150, got.TotalBets)

		f.finish(t, lob)

		before := f.balance(t, f.b1.Address)
		paid, err := f.l.DistributeSingleWinning(f.ctx, f.owner, lobAddr, address.Address(bet1.Address), f.b1.Address, "alice")
		require.NoError(t, err)
		assert.Equal(t, models.BetPaid, paid.Status)
		require.NotNil(t, paid.SettledAt)
		assert.Equal(t, before+100, f.balance(t, f.b1.Address))

		_, err = f.l.DistributeSingleWinning(f.ctx, f.owner, lobAddr, address.Address(bet1.Address), f.b1.Address, "alice")
		assert.ErrorIs(t, err, ErrBetAlreadyProcessed)
		assert.Equal(t, before+100, f.balance(t, f.b1.Address))

		got, err = f.l.Lobby(f.ctx, lobAddr)
		require.NoError(t, err)
		assert.EqualValues(t, 150, got.TotalBets)

		rep, err := f.l.Audit(f.ctx, lobAddr)
		require.NoError(t, err)
		assert.EqualValues(t, 100, rep.Paid)
		assert.EqualValues(t, 50, rep.Active)
		assert.EqualValues(t, testReserve+50, rep.Custody)

		assert.Equal(t, []EventType{
			EventFunded, EventFunded, EventFunded,
			EventLobbyCreated, EventBetPlaced, EventBetPlaced,
			EventLobbyStatus, EventBetPaid,
		}, f.events.types())
	})
}

func TestPlaceBetUnknownPlayer(t *testing.T) {
	backends(t, func(t *testing.T, st store.Store) {
		f := newFixture(t, st, testOptions())
		lob := f.lobby(t, "g1", "alice", "bob")

		_, err := f.l.PlaceBet(f.ctx, f.b1, address.Address(lob.Address), "carol", 100)
		assert.ErrorIs(t, err, ErrInvalidPlayerName)
		assert.EqualValues(t, 10_000, f.balance(t, f.b1.Address))
		assert.EqualValues(t, testReserve, f.balance(t, address.Address(lob.Escrow)))

		_, err = f.l.Bet(f.ctx, address.Bet(address.Address(lob.Address), f.b1.Address))
		assert.ErrorIs(t, err, ErrBetNotFound)
	})
}

func TestPlaceBetZeroAmount(t *testing.T) {
	backends(t, func(t *testing.T, st store.Store) {
		f := newFixture(t, st, testOptions())
		lob := f.lobby(t, "g1", "alice")

		_, err := f.l.PlaceBet(f.ctx, f.b1, address.Address(lob.Address), "alice", 0)
		assert.ErrorIs(t, err, ErrBetAmountMustBePositive)

		bets, err := f.l.Bets(f.ctx, address.Address(lob.Address))
		require.NoError(t, err)
		assert.Empty(t, bets)
	})
}

func TestPlaceBetInsufficientFunds(t *testing.T) {
	backends(t, func(t *testing.T, st store.Store) {
		f := newFixture(t, st, testOptions())
		lob := f.lobby(t, "g1", "alice")

		_, err := f.l.PlaceBet(f.ctx, f.b1, address.Address(lob.Address), "alice", 10_001)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.EqualValues(t, 10_000, f.balance(t, f.b1.Address))

		got, err := f.l.Lobby(f.ctx, address.Address(lob.Address))
		require.NoError(t, err)
		assert.Zero(t, got.TotalBets)
		bets, err := f.l.Bets(f.ctx, address.Address(lob.Address))
		require.NoError(t, err)
		assert.Empty(t, bets)
	})
}

func TestPlaceBetDuplicate(t *testing.T) {
	backends(t, func(t *testing.T, st store.Store) {
		f := newFixture(t, st, testOptions())
		lob := f.lobby(t, "g1", "alice", "bob")

		_, err := f.l.PlaceBet(f.ctx, f.b1, address.Address(lob.Address), "alice", 10)
		require.NoError(t, err)
		_, err = f.l.PlaceBet(f.ctx, f.b1, address.Address(lob.Address), "bob", 10)
		assert.ErrorIs(t, err, ErrDuplicateBet)
		assert.EqualValues(t, 9_990, f.balance(t, f.b1.Address))
	})
}

func TestPlaceBetLobbyClosed(t *testing.T) {
	backends(t, func(t *testing.T, st store.Store) {
		f := newFixture(t, st, testOptions())
		lob := f.lobby(t, "g1", "alice")

		_, err := f.l.UpdateLobbyStatus(f.ctx, f.owner, address.Address(lob.Address), models.LobbyRunning)
		require.NoError(t, err)
		_, err = f.l.PlaceBet(f.ctx, f.b1, address.Address(lob.Address), "alice", 10)
		require.NoError(t, err, "running lobbies still accept bets")

		f.finish(t, lob)
		_, err = f.l.PlaceBet(f.ctx, f.b2, address.Address(lob.Address), "alice", 10)
		assert.ErrorIs(t, err, ErrLobbyNotOpenForBets)
	})
}

func TestPlaceBetMissingLobby(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), testOptions())
	_, err := f.l.PlaceBet(f.ctx, f.b1, address.Lobby("nope"), "alice", 10)
	assert.ErrorIs(t, err, ErrLobbyNotFound)
}

func TestCreateLobby(t *testing.T) {
	backends(t, func(t *testing.T, st store.Store) {
		f := newFixture(t, st, testOptions())
		lob := f.lobby(t, "g1", "alice", "bob")

		assert.Equal(t, address.Lobby("g1").String(), lob.Address)
		assert.Equal(t, address.Escrow(address.Lobby("g1")).String(), lob.Escrow)
		assert.Equal(t, f.owner.Address.String(), lob.Owner)
		assert.Equal(t, lob.CreatedAt, lob.UpdatedAt)

		_, err := f.l.CreateLobby(f.ctx, f.b1, LobbyParams{GameID: "g1", ModelNames: []string{"x"}})
		assert.ErrorIs(t, err, ErrDuplicateLobby)
		assert.EqualValues(t, 10_000, f.balance(t, f.b1.Address))
	})
}

func TestCreateLobbyParams(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), testOptions())
	long := "0123456789abcdef0123456789abcdef!"
	eleven := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}

	cases := map[string]LobbyParams{
		"empty game id":  {GameID: "", ModelNames: []string{"a"}},
		"long game id":   {GameID: long, ModelNames: []string{"a"}},
		"too many names": {GameID: "g", ModelNames: eleven},
		"empty name":     {GameID: "g", ModelNames: []string{"a", ""}},
		"long name":      {GameID: "g", ModelNames: []string{long}},
		"duplicate name": {GameID: "g", ModelNames: []string{"a", "a"}},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.l.CreateLobby(f.ctx, f.owner, p)
			assert.ErrorIs(t, err, ErrInvalidLobbyParams)
		})
	}

	_, err := f.l.CreateLobby(f.ctx, f.owner, LobbyParams{GameID: "g", ModelNames: eleven[:10]})
	assert.NoError(t, err)
}

func TestCreateLobbyCannotPayReserve(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), testOptions())
	broke := party("broke")

	_, err := f.l.CreateLobby(f.ctx, broke, LobbyParams{GameID: "g1", ModelNames: []string{"a"}})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = f.l.LobbyByGameID(f.ctx, "g1")
	assert.ErrorIs(t, err, ErrLobbyNotFound)
}

func TestUpdateLobbyStatusUnauthorized(t *testing.T) {
	backends(t, func(t *testing.T, st store.Store) {
		f := newFixture(t, st, testOptions())
		lob := f.lobby(t, "g1", "alice")

		_, err := f.l.UpdateLobbyStatus(f.ctx, f.b1, address.Address(lob.Address), models.LobbyFinished)
		assert.ErrorIs(t, err, ErrUnauthorized)

		got, err := f.l.Lobby(f.ctx, address.Address(lob.Address))
		require.NoError(t, err)
		assert.Equal(t, models.LobbyWaiting, got.Status)
		assert.Equal(t, lob.UpdatedAt, got.UpdatedAt)
	})
}

func TestUpdateLobbyStatusInvalid(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), testOptions())
	lob := f.lobby(t, "g1", "alice")
	_, err := f.l.UpdateLobbyStatus(f.ctx, f.owner, address.Address(lob.Address), "paused")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	// A stranger is refused before the status value is looked at.
	_, err = f.l.UpdateLobbyStatus(f.ctx, f.b1, address.Address(lob.Address), "paused")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.l.UpdateLobbyStatus(f.ctx, f.owner, address.Lobby("missing"), "paused")
	assert.ErrorIs(t, err, ErrLobbyNotFound)
}

func TestEscrowCannotActAsParty(t *testing.T) {
	backends(t, func(t *testing.T, st store.Store) {
		f := newFixture(t, st, testOptions())
		g1 := f.lobby(t, "g1", "alice")
		g2 := f.lobby(t, "g2", "alice")
		_, err := f.l.PlaceBet(f.ctx, f.b1, address.Address(g1.Address), "alice", 500)
		require.NoError(t, err)

		escrow := Signer(address.Address(g1.Escrow))
		custody := f.balance(t, escrow.Address)
		custodyG2 := f.balance(t, address.Address(g2.Escrow))

		_, err = f.l.PlaceBet(f.ctx, escrow, address.Address(g2.Address), "alice", 200)
		assert.ErrorIs(t, err, ErrUnauthorized)
		_, err = f.l.PlaceBet(f.ctx, escrow, address.Address(g1.Address), "alice", 999_999)
		assert.ErrorIs(t, err, ErrUnauthorized)
		_, err = f.l.CreateLobby(f.ctx, escrow, LobbyParams{GameID: "g3", ModelNames: []string{"alice"}})
		assert.ErrorIs(t, err, ErrUnauthorized)
		_, err = f.l.Fund(f.ctx, escrow.Address, 1)
		assert.ErrorIs(t, err, ErrUnauthorized)

		ok, err := f.l.IsCustody(f.ctx, escrow.Address)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = f.l.IsCustody(f.ctx, f.b1.Address)
		require.NoError(t, err)
		assert.False(t, ok)

		assert.Equal(t, custody, f.balance(t, escrow.Address))
		assert.Equal(t, custodyG2, f.balance(t, address.Address(g2.Escrow)))
		for _, lob := range []*models.Lobby{g1, g2} {
			bets, err := f.l.Bets(f.ctx, address.Address(lob.Address))
			require.NoError(t, err)
			for _, b := range bets {
				assert.NotEqual(t, escrow.Address.String(), b.Bettor)
			}
			_, err = f.l.Audit(f.ctx, address.Address(lob.Address))
			assert.NoError(t, err)
		}
	})
}

func TestSettleBeforeFinished(t *testing.T) {
	backends(t, func(t *testing.T, st store.Store) {
		f := newFixture(t, st, testOptions())
		lob := f.lobby(t, "g1", "alice")
		bet, err := f.l.PlaceBet(f.ctx, f.b1, address.Address(lob.Address), "alice", 100)
		require.NoError(t, err)

		_, err = f.l.DistributeSingleWinning(f.ctx, f.owner, address.Address(lob.Address), address.Address(bet.Address), f.b1.Address, "alice")
		assert.ErrorIs(t, err, ErrLobbyNotFinished)
		assert.EqualValues(t, 9_900, f.balance(t, f.b1.Address))
	})
}

func TestSettleChecks(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), testOptions())
	lob := f.lobby(t, "g1", "alice", "bob")
	other := f.lobby(t, "g2", "alice")
	lobAddr := address.Address(lob.Address)

	bet1, err := f.l.PlaceBet(f.ctx, f.b1, lobAddr, "alice", 100)
	require.NoError(t, err)
	bet2, err := f.l.PlaceBet(f.ctx, f.b2, lobAddr, "bob", 100)
	require.NoError(t, err)
	otherBet, err := f.l.PlaceBet(f.ctx, f.b1, address.Address(other.Address), "alice", 100)
	require.NoError(t, err)
	f.finish(t, lob)

	settle := func(caller Caller, bet *models.Bet, bettor address.Address, winner string) error {
		_, err := f.l.DistributeSingleWinning(f.ctx, caller, lobAddr, address.Address(bet.Address), bettor, winner)
		return err
	}

	assert.ErrorIs(t, settle(f.b1, bet1, f.b1.Address, "alice"), ErrUnauthorized)
	assert.ErrorIs(t, settle(f.owner, otherBet, f.b1.Address, "alice"), ErrInvalidBetAccount)
	assert.ErrorIs(t, settle(f.owner, bet1, f.b2.Address, "alice"), ErrInvalidBettor)
	assert.ErrorIs(t, settle(f.owner, bet2, f.b2.Address, "alice"), ErrBetOnWrongPlayer)
	assert.ErrorIs(t, settle(Caller{Address: f.owner.Address}, bet1, f.b1.Address, "alice"), ErrSignatureRequired)

	_, err = f.l.DistributeSingleWinning(f.ctx, f.owner, lobAddr, address.Bet(lobAddr, party("ghost").Address), f.b1.Address, "alice")
	assert.ErrorIs(t, err, ErrBetNotFound)

	require.NoError(t, settle(f.owner, bet1, f.b1.Address, "alice"))
	assert.ErrorIs(t, settle(f.owner, bet1, f.b1.Address, "alice"), ErrBetAlreadyProcessed)
}

func TestSettleNeverTouchesReserve(t *testing.T) {
	backends(t, func(t *testing.T, st store.Store) {
		f := newFixture(t, st, testOptions())
		lob := f.lobby(t, "g1", "alice")
		bet, err := f.l.PlaceBet(f.ctx, f.b1, address.Address(lob.Address), "alice", 100)
		require.NoError(t, err)
		f.finish(t, lob)

		// Drain the escrow down to its reserve behind the ledger's back.
		escrow := address.Address(lob.Escrow)
		require.NoError(t, st.Update(f.ctx, func(tx store.Tx) error {
			return tx.SetBalance(escrow, testReserve+50)
		}))

		_, err = f.l.DistributeSingleWinning(f.ctx, f.owner, address.Address(lob.Address), address.Address(bet.Address), f.b1.Address, "alice")
		assert.ErrorIs(t, err, ErrInsufficientCustody)
		assert.EqualValues(t, testReserve+50, f.balance(t, escrow))

		got, err := f.l.Bet(f.ctx, address.Address(bet.Address))
		require.NoError(t, err)
		assert.Equal(t, models.BetActive, got.Status)

		_, err = f.l.Audit(f.ctx, address.Address(lob.Address))
		assert.ErrorIs(t, err, ErrInvariantViolated)
	})
}

func TestFinishedTerminality(t *testing.T) {
	t.Run("default allows leaving finished", func(t *testing.T) {
		f := newFixture(t, store.NewMemoryStore(), testOptions())
		lob := f.lobby(t, "g1", "alice")
		bet, err := f.l.PlaceBet(f.ctx, f.b1, address.Address(lob.Address), "alice", 100)
		require.NoError(t, err)
		f.finish(t, lob)

		_, err = f.l.UpdateLobbyStatus(f.ctx, f.owner, address.Address(lob.Address), models.LobbyRunning)
		require.NoError(t, err)

		_, err = f.l.DistributeSingleWinning(f.ctx, f.owner, address.Address(lob.Address), address.Address(bet.Address), f.b1.Address, "alice")
		assert.ErrorIs(t, err, ErrLobbyNotFinished)
	})

	t.Run("terminal rejects leaving finished", func(t *testing.T) {
		opts := testOptions()
		opts.FinishedIsTerminal = true
		f := newFixture(t, store.NewMemoryStore(), opts)
		lob := f.lobby(t, "g1", "alice")
		bet, err := f.l.PlaceBet(f.ctx, f.b1, address.Address(lob.Address), "alice", 100)
		require.NoError(t, err)
		f.finish(t, lob)

		for _, s := range []models.LobbyStatus{models.LobbyRunning, models.LobbyWaiting} {
			_, err = f.l.UpdateLobbyStatus(f.ctx, f.owner, address.Address(lob.Address), s)
			assert.ErrorIs(t, err, ErrLobbyFinalized)
		}
		_, err = f.l.UpdateLobbyStatus(f.ctx, f.owner, address.Address(lob.Address), models.LobbyFinished)
		assert.NoError(t, err)

		_, err = f.l.DistributeSingleWinning(f.ctx, f.owner, address.Address(lob.Address), address.Address(bet.Address), f.b1.Address, "alice")
		assert.NoError(t, err)
	})
}

func TestTotalBetsOverflow(t *testing.T) {
	backends(t, func(t *testing.T, st store.Store) {
		opts := DefaultOptions()
		opts.CustodyReserve = 0
		f := newFixture(t, st, opts)
		lob := f.lobby(t, "g1", "alice")

		half := ^uint64(0)/2 + 1
		whale1, whale2 := party("whale-1"), party("whale-2")
		for _, w := range []Caller{whale1, whale2} {
			_, err := f.l.Fund(f.ctx, w.Address, half)
			require.NoError(t, err)
		}

		_, err := f.l.PlaceBet(f.ctx, whale1, address.Address(lob.Address), "alice", half)
		require.NoError(t, err)
		_, err = f.l.PlaceBet(f.ctx, whale2, address.Address(lob.Address), "alice", half)
		assert.ErrorIs(t, err, ErrOverflow)

		assert.Equal(t, half, f.balance(t, whale2.Address))
		got, err := f.l.Lobby(f.ctx, address.Address(lob.Address))
		require.NoError(t, err)
		assert.Equal(t, half, got.TotalBets)
	})
}

func TestUnsignedCaller(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), testOptions())
	unsigned := Caller{Address: f.owner.Address}

	_, err := f.l.CreateLobby(f.ctx, unsigned, LobbyParams{GameID: "g1", ModelNames: []string{"a"}})
	assert.ErrorIs(t, err, ErrSignatureRequired)

	lob := f.lobby(t, "g1", "a")
	_, err = f.l.UpdateLobbyStatus(f.ctx, unsigned, address.Address(lob.Address), models.LobbyRunning)
	assert.ErrorIs(t, err, ErrSignatureRequired)
	_, err = f.l.PlaceBet(f.ctx, Caller{Address: f.b1.Address}, address.Address(lob.Address), "a", 1)
	assert.ErrorIs(t, err, ErrSignatureRequired)
}

func TestEventSinkFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), testOptions())
	f.events.err = errors.New("queue down")

	lob, err := f.l.CreateLobby(f.ctx, f.owner, LobbyParams{GameID: "g1", ModelNames: []string{"a"}})
	require.NoError(t, err)
	_, err = f.l.LobbyByGameID(f.ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", lob.GameID)
}

func TestFailedOperationEmitsNothing(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), testOptions())
	lob := f.lobby(t, "g1", "alice")
	n := len(f.events.types())

	_, err := f.l.PlaceBet(f.ctx, f.b1, address.Address(lob.Address), "carol", 1)
	require.Error(t, err)
	assert.Len(t, f.events.types(), n)
}

func TestKindOf(t *testing.T) {
	kind, ok := KindOf(fail(ErrOverflow, "x"))
	assert.True(t, ok)
	assert.Equal(t, Kind("Overflow"), kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}
