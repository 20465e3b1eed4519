// internal/ledger/audit.go
package ledger

import (
	"context"

	"github.com/jason-s-yu/pokerbets/internal/address"
	"github.com/jason-s-yu/pokerbets/internal/models"
	"github.com/jason-s-yu/pokerbets/internal/store"
)

// AuditReport reconciles a lobby's bookkeeping against its bets and escrow.
type AuditReport struct {
	Lobby     string `json:"lobby"`
	TotalBets uint64 `json:"total_bets"`
	SumBets   uint64 `json:"sum_bets"`
	Paid      uint64 `json:"paid"`
	Active    uint64 `json:"active"`
	BetCount  int    `json:"bet_count"`
	Custody   uint64 `json:"custody"`
	Reserve   uint64 `json:"reserve"`
}

// Audit builds the report and fails with ErrInvariantViolated, alongside
// the report, when total_bets disagrees with the bets or the escrow holds
// less than reserve + total_bets - paid.
func (l *Ledger) Audit(ctx context.Context, lobby address.Address) (*AuditReport, error) {
	rep := &AuditReport{Lobby: lobby.String()}
	err := l.store.View(ctx, func(tx store.Tx) error {
		lob, err := loadLobby(tx, lobby)
		if err != nil {
			return err
		}
		bets, err := tx.BetsByLobby(lobby)
		if err != nil {
			return err
		}
		custody, err := tx.Balance(address.Address(lob.Escrow))
		if err != nil {
			return err
		}

		rep.TotalBets = lob.TotalBets
		rep.Reserve = lob.CustodyReserve
		rep.Custody = custody
		rep.BetCount = len(bets)
		for _, b := range bets {
			rep.SumBets += b.Amount
			switch b.Status {
			case models.BetPaid:
				rep.Paid += b.Amount
			case models.BetActive:
				rep.Active += b.Amount
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if rep.SumBets != rep.TotalBets {
		return rep, fail(ErrInvariantViolated, "total_bets %d, sum of bets %d", rep.TotalBets, rep.SumBets)
	}
	if rep.Paid > rep.TotalBets {
		return rep, fail(ErrInvariantViolated, "paid %d exceeds total_bets %d", rep.Paid, rep.TotalBets)
	}
	owed, ok := checkedAdd(rep.Reserve, rep.TotalBets-rep.Paid)
	if !ok || rep.Custody < owed {
		return rep, fail(ErrInvariantViolated, "escrow holds %d, owes %d", rep.Custody, owed)
	}
	return rep, nil
}
