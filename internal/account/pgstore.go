package account

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a Postgres-backed Store, for account service deployments
// running more than one instance behind a load balancer — tickets must
// be redeemable regardless of which instance issued them.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore wraps an existing pool. The caller is responsible for
// running the login_tickets migration before first use.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Issue inserts a fresh ticket row.
func (s *PgStore) Issue(ctx context.Context, characterID uint64, ttl time.Duration) (Ticket, error) {
	id, err := randomTicketID()
	if err != nil {
		return Ticket{}, err
	}
	t := Ticket{ID: id, CharacterID: characterID, ExpiresAt: time.Now().Add(ttl)}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO login_tickets (ticket_id, character_id, expires_at) VALUES ($1, $2, $3)`,
		int64(t.ID), int64(t.CharacterID), t.ExpiresAt,
	)
	if err != nil {
		return Ticket{}, fmt.Errorf("account: issuing ticket: %w", err)
	}
	return t, nil
}

// Redeem atomically deletes and returns the ticket's character id, so two
// concurrent redemptions of the same ticket can't both succeed.
func (s *PgStore) Redeem(ctx context.Context, ticketID uint64) (uint64, error) {
	var characterID int64
	var expiresAt time.Time

	err := s.pool.QueryRow(ctx,
		`DELETE FROM login_tickets WHERE ticket_id = $1 RETURNING character_id, expires_at`,
		int64(ticketID),
	).Scan(&characterID, &expiresAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, ErrTicketNotFound
		}
		return 0, fmt.Errorf("account: redeeming ticket: %w", err)
	}

	if time.Now().After(expiresAt) {
		return 0, ErrTicketNotFound
	}
	return uint64(characterID), nil
}
