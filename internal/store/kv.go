// internal/store/kv.go
package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jason-s-yu/pokerbets/internal/address"
	"github.com/jason-s-yu/pokerbets/internal/models"
)

// Key layout shared by the key-value backends.
var (
	lobbyPrefix     = []byte("lobby:")
	betPrefix       = []byte("bet:")
	lobbyBetsPrefix = []byte("lobby-bets:")
	balancePrefix   = []byte("acct:")
	escrowPrefix    = []byte("escrow:")
)

// kv is the minimal byte-level interface a backend transaction provides.
// get returns (nil, nil) for a missing key.
type kv interface {
	get(key []byte) ([]byte, error)
	put(key, value []byte) error
	scan(prefix []byte, fn func(key, value []byte) error) error
}

// kvTx implements Tx on top of any kv.
type kvTx struct {
	kv kv
}

func key(prefix []byte, parts ...string) []byte {
	k := append([]byte(nil), prefix...)
	for i, p := range parts {
		if i > 0 {
			k = append(k, ':')
		}
		k = append(k, p...)
	}
	return k
}

func (t *kvTx) load(k []byte, v interface{}) error {
	raw, err := t.kv.get(k)
	if err != nil {
		return err
	}
	if raw == nil {
		return ErrNotFound
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", k, err)
	}
	return nil
}

func (t *kvTx) store(k []byte, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", k, err)
	}
	return t.kv.put(k, raw)
}

func (t *kvTx) exists(k []byte) (bool, error) {
	raw, err := t.kv.get(k)
	return raw != nil, err
}

func (t *kvTx) Lobby(addr address.Address) (*models.Lobby, error) {
	var l models.Lobby
	if err := t.load(key(lobbyPrefix, addr.String()), &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (t *kvTx) InsertLobby(l *models.Lobby) error {
	k := key(lobbyPrefix, l.Address)
	ok, err := t.exists(k)
	if err != nil {
		return err
	}
	if ok {
		return ErrExists
	}
	if err := t.store(k, l); err != nil {
		return err
	}
	return t.kv.put(key(escrowPrefix, l.Escrow), []byte(l.Address))
}

func (t *kvTx) IsEscrow(addr address.Address) (bool, error) {
	return t.exists(key(escrowPrefix, addr.String()))
}

func (t *kvTx) SaveLobby(l *models.Lobby) error {
	return t.store(key(lobbyPrefix, l.Address), l)
}

func (t *kvTx) Bet(addr address.Address) (*models.Bet, error) {
	var b models.Bet
	if err := t.load(key(betPrefix, addr.String()), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (t *kvTx) InsertBet(b *models.Bet) error {
	k := key(betPrefix, b.Address)
	ok, err := t.exists(k)
	if err != nil {
		return err
	}
	if ok {
		return ErrExists
	}
	if err := t.store(k, b); err != nil {
		return err
	}
	return t.kv.put(key(lobbyBetsPrefix, b.Lobby, b.Address), []byte{1})
}

func (t *kvTx) SaveBet(b *models.Bet) error {
	return t.store(key(betPrefix, b.Address), b)
}

func (t *kvTx) BetsByLobby(lobby address.Address) ([]*models.Bet, error) {
	prefix := key(lobbyBetsPrefix, lobby.String(), "")
	var addrs []string
	err := t.kv.scan(prefix, func(k, _ []byte) error {
		addrs = append(addrs, string(k[len(prefix):]))
		return nil
	})
	if err != nil {
		return nil, err
	}

	bets := make([]*models.Bet, 0, len(addrs))
	for _, a := range addrs {
		b, err := t.Bet(address.Address(a))
		if err != nil {
			return nil, fmt.Errorf("bet index %s: %w", a, err)
		}
		bets = append(bets, b)
	}
	sort.SliceStable(bets, func(i, j int) bool {
		return bets[i].PlacedAt.Before(bets[j].PlacedAt)
	})
	return bets, nil
}

func (t *kvTx) Balance(addr address.Address) (uint64, error) {
	raw, err := t.kv.get(key(balancePrefix, addr.String()))
	if err != nil || raw == nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("corrupt balance for %s", addr)
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (t *kvTx) SetBalance(addr address.Address, amount uint64) error {
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], amount)
	return t.kv.put(key(balancePrefix, addr.String()), raw[:])
}
