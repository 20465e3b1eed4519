// internal/ledger/settle.go
package ledger

import (
	"context"

	"github.com/jason-s-yu/pokerbets/internal/address"
	"github.com/jason-s-yu/pokerbets/internal/models"
	"github.com/jason-s-yu/pokerbets/internal/store"
	"github.com/sirupsen/logrus"
)

// DistributeSingleWinning pays one winning bet its stake back out of the
// lobby's escrow. The owner calls it once per winning bet after the lobby
// is Finished. total_bets is left as the all-time wagered total.
func (l *Ledger) DistributeSingleWinning(ctx context.Context, caller Caller, lobby, betAddr, bettor address.Address, winnerName string) (*models.Bet, error) {
	if err := requireSigner(caller); err != nil {
		return nil, err
	}

	var (
		bet *models.Bet
		lob *models.Lobby
	)
	err := l.update(ctx, "settle", func(tx store.Tx) error {
		if err := ensureParty(tx, caller.Address); err != nil {
			return err
		}
		var err error
		if lob, err = loadLobby(tx, lobby); err != nil {
			return err
		}
		if bet, err = loadBet(tx, betAddr); err != nil {
			return err
		}

		switch {
		case lob.Owner != caller.Address.String():
			return ErrUnauthorized
		case lob.Status != models.LobbyFinished:
			return ErrLobbyNotFinished
		case bet.Lobby != lob.Address:
			return ErrInvalidBetAccount
		case bet.Bettor != bettor.String():
			return ErrInvalidBettor
		case bet.PlayerName != winnerName:
			return ErrBetOnWrongPlayer
		case bet.Status != models.BetActive:
			return ErrBetAlreadyProcessed
		}

		if err := release(tx, authorityFor(lobby), lob.CustodyReserve, bettor, bet.Amount); err != nil {
			return err
		}

		now := l.timestamp()
		bet.Status = models.BetPaid
		bet.SettledAt = &now
		lob.UpdatedAt = now
		if err := tx.SaveBet(bet); err != nil {
			return err
		}
		return tx.SaveLobby(lob)
	})
	if err != nil {
		return nil, err
	}

	l.metrics.AddVolume("payouts", bet.Amount)
	l.log.WithFields(logrus.Fields{
		"lobby":  bet.Lobby,
		"bettor": bet.Bettor,
		"amount": bet.Amount,
	}).Info("bet paid")
	l.emit(ctx, Event{
		Type:   EventBetPaid,
		Lobby:  bet.Lobby,
		GameID: lob.GameID,
		Bet:    bet.Address,
		Actor:  caller.Address.String(),
		Player: bet.PlayerName,
		Amount: bet.Amount,
		Status: string(bet.Status),
		At:     *bet.SettledAt,
	})
	return bet, nil
}
