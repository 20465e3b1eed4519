// internal/address/address.go

// Package address derives the deterministic, collision-free addresses the
// ledger keys its records by. An address is base58(version | hash160 | checksum)
// where hash160 = RIPEMD160(SHA256(seed material)).
package address

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"github.com/decred/base58"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/crypto/ripemd160"
)

// Version is the leading byte of every encoded address.
const Version byte = 0

// MaxSeedLength bounds a single seed component.
const MaxSeedLength = 256

// Seed kinds used by the ledger.
const (
	KindLobby  = "lobby"
	KindBet    = "bet"
	KindEscrow = "escrow"
)

var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrChecksum       = errors.New("address checksum error")
)

// derivedSeed separates derived addresses from key-backed ones.
var derivedSeed = []byte("pokerbets derived address")

var addressCache *lru.Cache

func init() {
	addressCache, _ = lru.New(10240)
}

// Address is a base58 encoded, checksummed account identifier.
type Address string

func (a Address) String() string { return string(a) }

// Bytes returns the raw seed form used when an address feeds another derivation.
func (a Address) Bytes() []byte { return []byte(a) }

// Derive computes the address for the given seeds. Each seed is length
// prefixed so ("ab","c") and ("a","bc") never collide.
func Derive(seeds ...[]byte) Address {
	size := len(derivedSeed)
	for _, s := range seeds {
		if len(s) > MaxSeedLength {
			panic("address: seed too long")
		}
		size += 4 + len(s)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, derivedSeed...)
	for _, s := range seeds {
		var l [4]byte
		binary.BigEndian.PutUint32(l[:], uint32(len(s)))
		buf = append(buf, l[:]...)
		buf = append(buf, s...)
	}

	key := string(buf)
	if v, ok := addressCache.Get(key); ok {
		return v.(Address)
	}
	addr := encode(hash160(buf))
	addressCache.Add(key, addr)
	return addr
}

// FromPubKey derives a party address from a public key.
func FromPubKey(pub []byte) Address {
	return encode(hash160(pub))
}

// Lobby is the address of the lobby record for gameID.
func Lobby(gameID string) Address {
	return Derive([]byte(KindLobby), []byte(gameID))
}

// Bet is the address of the single bet bettor may hold in lobby.
func Bet(lobby, bettor Address) Address {
	return Derive([]byte(KindBet), lobby.Bytes(), bettor.Bytes())
}

// Escrow is the custody account address of lobby.
func Escrow(lobby Address) Address {
	return Derive(EscrowSeeds(lobby)...)
}

// EscrowSeeds returns the seeds that derive (and so authorize) lobby's
// custody account.
func EscrowSeeds(lobby Address) [][]byte {
	return [][]byte{[]byte(KindEscrow), lobby.Bytes()}
}

// Check validates the encoding and checksum of s.
func Check(s string) error {
	dec := base58.Decode(s)
	if len(dec) != 25 {
		return ErrInvalidAddress
	}
	sum := checksum(dec[:21])
	if !bytes.Equal(sum, dec[21:]) {
		return ErrChecksum
	}
	return nil
}

// Parse validates s and returns it as an Address.
func Parse(s string) (Address, error) {
	if err := Check(s); err != nil {
		return "", err
	}
	return Address(s), nil
}

func hash160(in []byte) []byte {
	sh := sha256.Sum256(in)
	h := ripemd160.New()
	h.Write(sh[:])
	return h.Sum(nil)
}

func checksum(in []byte) []byte {
	first := sha256.Sum256(in)
	second := sha256.Sum256(first[:])
	return second[:4]
}

func encode(h160 []byte) Address {
	var ad [25]byte
	ad[0] = Version
	copy(ad[1:21], h160)
	copy(ad[21:25], checksum(ad[:21]))
	return Address(base58.Encode(ad[:]))
}
