// internal/ledger/bet.go
package ledger

import (
	"context"
	"errors"

	"github.com/jason-s-yu/pokerbets/internal/address"
	"github.com/jason-s-yu/pokerbets/internal/models"
	"github.com/jason-s-yu/pokerbets/internal/store"
	"github.com/sirupsen/logrus"
)

// PlaceBet wagers amount from the caller's balance on playerName winning.
// The stake moves into the lobby's escrow and total_bets grows by amount.
func (l *Ledger) PlaceBet(ctx context.Context, caller Caller, lobby address.Address, playerName string, amount uint64) (*models.Bet, error) {
	if err := requireSigner(caller); err != nil {
		return nil, err
	}

	betAddr := address.Bet(lobby, caller.Address)
	var (
		bet *models.Bet
		lob *models.Lobby
	)
	err := l.update(ctx, "place_bet", func(tx store.Tx) error {
		if err := ensureParty(tx, caller.Address); err != nil {
			return err
		}
		var err error
		lob, err = loadLobby(tx, lobby)
		if err != nil {
			return err
		}
		if _, err := tx.Bet(betAddr); err == nil {
			return fail(ErrDuplicateBet, "%s", betAddr)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if !lob.Status.AcceptsBets() {
			return ErrLobbyNotOpenForBets
		}
		if !lob.HasModel(playerName) {
			return fail(ErrInvalidPlayerName, "%q", playerName)
		}
		if amount == 0 {
			return ErrBetAmountMustBePositive
		}

		if err := transfer(tx, caller.Address, address.Address(lob.Escrow), amount); err != nil {
			return err
		}
		total, ok := checkedAdd(lob.TotalBets, amount)
		if !ok {
			return fail(ErrOverflow, "total_bets of %s", lob.Address)
		}

		now := l.timestamp()
		lob.TotalBets = total
		lob.UpdatedAt = now
		bet = &models.Bet{
			Address:    betAddr.String(),
			Bettor:     caller.Address.String(),
			Lobby:      lob.Address,
			PlayerName: playerName,
			Amount:     amount,
			PlacedAt:   now,
			Status:     models.BetActive,
		}
		if err := tx.InsertBet(bet); err != nil {
			if errors.Is(err, store.ErrExists) {
				return fail(ErrDuplicateBet, "%s", betAddr)
			}
			return err
		}
		return tx.SaveLobby(lob)
	})
	if err != nil {
		return nil, err
	}

	l.metrics.AddVolume("bets", amount)
	l.log.WithFields(logrus.Fields{
		"lobby":  bet.Lobby,
		"bettor": bet.Bettor,
		"player": bet.PlayerName,
		"amount": bet.Amount,
	}).Info("bet placed")
	l.emit(ctx, Event{
		Type:   EventBetPlaced,
		Lobby:  bet.Lobby,
		GameID: lob.GameID,
		Bet:    bet.Address,
		Actor:  bet.Bettor,
		Player: bet.PlayerName,
		Amount: bet.Amount,
		Status: string(bet.Status),
		At:     bet.PlacedAt,
	})
	return bet, nil
}
