// internal/ledger/custody.go
package ledger

import (
	"context"
	"math/bits"

	"github.com/jason-s-yu/pokerbets/internal/address"
	"github.com/jason-s-yu/pokerbets/internal/store"
)

func checkedAdd(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// credit adds amount to an account.
func credit(tx store.Tx, to address.Address, amount uint64) error {
	bal, err := tx.Balance(to)
	if err != nil {
		return err
	}
	sum, ok := checkedAdd(bal, amount)
	if !ok {
		return fail(ErrOverflow, "balance of %s", to)
	}
	return tx.SetBalance(to, sum)
}

// ensureParty rejects custody accounts acting as ordinary parties. Escrow
// funds leave only through release.
func ensureParty(tx store.Tx, addr address.Address) error {
	escrow, err := tx.IsEscrow(addr)
	if err != nil {
		return err
	}
	if escrow {
		return fail(ErrUnauthorized, "%s is a custody account", addr)
	}
	return nil
}

// transfer moves amount from a party account inside tx. The caller has
// already established that from authorized the move.
func transfer(tx store.Tx, from, to address.Address, amount uint64) error {
	if err := ensureParty(tx, from); err != nil {
		return err
	}
	return move(tx, from, to, amount)
}

func move(tx store.Tx, from, to address.Address, amount uint64) error {
	if amount == 0 || from == to {
		return nil
	}
	bal, err := tx.Balance(from)
	if err != nil {
		return err
	}
	if bal < amount {
		return fail(ErrInsufficientFunds, "%s holds %d, needs %d", from, bal, amount)
	}
	if err := credit(tx, to, amount); err != nil {
		return err
	}
	return tx.SetBalance(from, bal-amount)
}

// custodyAuthority proves control of one lobby's escrow account. Only
// settlement constructs one.
type custodyAuthority struct {
	lobby address.Address
	seeds [][]byte
}

func authorityFor(lobby address.Address) custodyAuthority {
	return custodyAuthority{lobby: lobby, seeds: address.EscrowSeeds(lobby)}
}

// release pays amount out of escrow. The escrow address is re-derived from
// the authority's seeds, and the lobby's reserve stays untouched.
func release(tx store.Tx, auth custodyAuthority, reserve uint64, to address.Address, amount uint64) error {
	escrow := address.Derive(auth.seeds...)
	if escrow != address.Escrow(auth.lobby) {
		return fail(ErrUnauthorized, "custody seeds do not derive escrow of %s", auth.lobby)
	}
	bal, err := tx.Balance(escrow)
	if err != nil {
		return err
	}
	if bal < reserve || bal-reserve < amount {
		return fail(ErrInsufficientCustody, "escrow %s holds %d with reserve %d, payout %d", escrow, bal, reserve, amount)
	}
	return move(tx, escrow, to, amount)
}

// Fund credits amount to addr out of thin air. It backs the development
// faucet and the operator CLI. Custody accounts cannot be funded.
func (l *Ledger) Fund(ctx context.Context, addr address.Address, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	if _, err := address.Parse(addr.String()); err != nil {
		return 0, fail(ErrInvalidAddress, "%v", err)
	}
	var bal uint64
	err := l.update(ctx, "fund", func(tx store.Tx) error {
		if err := ensureParty(tx, addr); err != nil {
			return err
		}
		if err := credit(tx, addr, amount); err != nil {
			return err
		}
		var err error
		bal, err = tx.Balance(addr)
		return err
	})
	if err != nil {
		return 0, err
	}
	l.metrics.AddVolume("funded", amount)
	l.emit(ctx, Event{Type: EventFunded, Actor: addr.String(), Amount: amount, At: l.timestamp()})
	return bal, nil
}

// IsCustody reports whether addr is the escrow account of an existing lobby.
func (l *Ledger) IsCustody(ctx context.Context, addr address.Address) (bool, error) {
	var ok bool
	err := l.store.View(ctx, func(tx store.Tx) error {
		var err error
		ok, err = tx.IsEscrow(addr)
		return err
	})
	return ok, err
}
