// internal/ledger/lobby.go
package ledger

import (
	"context"
	"errors"

	"github.com/jason-s-yu/pokerbets/internal/address"
	"github.com/jason-s-yu/pokerbets/internal/models"
	"github.com/jason-s-yu/pokerbets/internal/store"
	"github.com/sirupsen/logrus"
)

// LobbyParams is everything a lobby is created with.
type LobbyParams struct {
	GameID     string   `json:"game_id"`
	ModelNames []string `json:"model_names"`
	models.TableRules
}

func (l *Ledger) checkParams(p LobbyParams) error {
	if len(p.GameID) == 0 || len(p.GameID) > MaxGameIDLength {
		return fail(ErrInvalidLobbyParams, "game_id must be 1..%d bytes", MaxGameIDLength)
	}
	if len(p.ModelNames) > l.opts.MaxModelNames {
		return fail(ErrInvalidLobbyParams, "at most %d model names", l.opts.MaxModelNames)
	}
	seen := make(map[string]bool, len(p.ModelNames))
	for _, name := range p.ModelNames {
		if len(name) == 0 || len(name) > l.opts.MaxNameLength {
			return fail(ErrInvalidLobbyParams, "model name %q must be 1..%d bytes", name, l.opts.MaxNameLength)
		}
		if seen[name] {
			return fail(ErrInvalidLobbyParams, "duplicate model name %q", name)
		}
		seen[name] = true
	}
	return nil
}

// CreateLobby opens a new lobby owned by the caller and funds its escrow
// account with the custody reserve.
func (l *Ledger) CreateLobby(ctx context.Context, caller Caller, p LobbyParams) (*models.Lobby, error) {
	if err := requireSigner(caller); err != nil {
		return nil, err
	}
	if err := l.checkParams(p); err != nil {
		return nil, err
	}

	addr := address.Lobby(p.GameID)
	now := l.timestamp()
	lob := &models.Lobby{
		Address:        addr.String(),
		Escrow:         address.Escrow(addr).String(),
		Owner:          caller.Address.String(),
		GameID:         p.GameID,
		ModelNames:     append([]string{}, p.ModelNames...),
		TableRules:     p.TableRules,
		Status:         models.LobbyWaiting,
		CustodyReserve: l.opts.CustodyReserve,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := l.update(ctx, "create_lobby", func(tx store.Tx) error {
		if err := ensureParty(tx, caller.Address); err != nil {
			return err
		}
		if err := tx.InsertLobby(lob); err != nil {
			if errors.Is(err, store.ErrExists) {
				return fail(ErrDuplicateLobby, "game_id %q", p.GameID)
			}
			return err
		}
		return transfer(tx, caller.Address, address.Address(lob.Escrow), lob.CustodyReserve)
	})
	if err != nil {
		return nil, err
	}

	l.log.WithFields(logrus.Fields{
		"lobby":   lob.Address,
		"game_id": lob.GameID,
		"owner":   lob.Owner,
	}).Info("lobby created")
	l.emit(ctx, Event{
		Type:   EventLobbyCreated,
		Lobby:  lob.Address,
		GameID: lob.GameID,
		Actor:  lob.Owner,
		Status: string(lob.Status),
		Amount: lob.CustodyReserve,
		At:     now,
	})
	return lob, nil
}

// UpdateLobbyStatus sets the lobby's status. Only the owner may call it.
// Unless FinishedIsTerminal is set, any status may follow any other.
func (l *Ledger) UpdateLobbyStatus(ctx context.Context, caller Caller, lobby address.Address, status models.LobbyStatus) (*models.Lobby, error) {
	if err := requireSigner(caller); err != nil {
		return nil, err
	}

	var out *models.Lobby
	err := l.update(ctx, "update_lobby_status", func(tx store.Tx) error {
		if err := ensureParty(tx, caller.Address); err != nil {
			return err
		}
		lob, err := loadLobby(tx, lobby)
		if err != nil {
			return err
		}
		if lob.Owner != caller.Address.String() {
			return ErrUnauthorized
		}
		if !status.Valid() {
			return fail(ErrInvalidStatus, "%q", status)
		}
		if l.opts.FinishedIsTerminal && lob.Status == models.LobbyFinished && status != models.LobbyFinished {
			return ErrLobbyFinalized
		}
		lob.Status = status
		lob.UpdatedAt = l.timestamp()
		out = lob
		return tx.SaveLobby(lob)
	})
	if err != nil {
		return nil, err
	}

	l.log.WithFields(logrus.Fields{"lobby": out.Address, "status": out.Status}).Info("lobby status updated")
	l.emit(ctx, Event{
		Type:   EventLobbyStatus,
		Lobby:  out.Address,
		GameID: out.GameID,
		Actor:  caller.Address.String(),
		Status: string(out.Status),
		At:     out.UpdatedAt,
	})
	return out, nil
}
