// Package account implements the account service: it authenticates
// players, issues one-time login tickets, and redeems them on behalf of
// the game server's handshake (internal/handshake.TicketConsumer).
package account

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrTicketNotFound is returned when a ticket is unknown, already
// consumed, or expired.
var ErrTicketNotFound = errors.New("account: ticket not found or already consumed")

// Ticket is a one-time credential handed to a game client after
// successful account authentication; the client presents it to the game
// server's API_LOGIN packet, and the game server redeems it against the
// account service to resolve the character id.
type Ticket struct {
	ID          uint64
	CharacterID uint64
	ExpiresAt   time.Time
}

// Store issues and redeems login tickets. Redeem must be single-use: a
// ticket already redeemed (or never issued, or expired) reports
// ErrTicketNotFound.
type Store interface {
	Issue(ctx context.Context, characterID uint64, ttl time.Duration) (Ticket, error)
	Redeem(ctx context.Context, ticketID uint64) (characterID uint64, err error)
}

// MemoryStore is an in-memory Store, suitable for a single account
// service instance or tests. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	tickets map[uint64]Ticket
}

// NewMemoryStore returns an empty in-memory ticket store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tickets: make(map[uint64]Ticket)}
}

// Issue generates a fresh random ticket id bound to characterID, valid
// for ttl.
func (s *MemoryStore) Issue(ctx context.Context, characterID uint64, ttl time.Duration) (Ticket, error) {
	id, err := randomTicketID()
	if err != nil {
		return Ticket{}, err
	}
	t := Ticket{ID: id, CharacterID: characterID, ExpiresAt: time.Now().Add(ttl)}

	s.mu.Lock()
	s.tickets[id] = t
	s.mu.Unlock()
	return t, nil
}

// Redeem consumes ticketID exactly once: a second call (or a call after
// expiry) fails with ErrTicketNotFound.
func (s *MemoryStore) Redeem(ctx context.Context, ticketID uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return 0, ErrTicketNotFound
	}
	delete(s.tickets, ticketID)

	if time.Now().After(t.ExpiresAt) {
		return 0, ErrTicketNotFound
	}
	return t.CharacterID, nil
}

// randomTicketID mints a fresh UUID and folds it down to the 16-byte
// client wire packet's 64-bit ticket field via SHA-256, rather than
// exposing the UUID's bytes (and therefore its version/variant nibbles)
// directly on the wire.
func randomTicketID() (uint64, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return 0, err
	}
	sum := sha256.Sum256(id[:])
	return binary.LittleEndian.Uint64(sum[:8]), nil
}
