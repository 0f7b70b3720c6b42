package account

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreIssueThenRedeemOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ticket, err := s.Issue(ctx, 42, time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	got, err := s.Redeem(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected character id 42, got %d", got)
	}

	if _, err := s.Redeem(ctx, ticket.ID); err != ErrTicketNotFound {
		t.Fatalf("expected second redeem to fail with ErrTicketNotFound, got %v", err)
	}
}

func TestMemoryStoreExpiredTicketIsRejected(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ticket, err := s.Issue(ctx, 1, -time.Second)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := s.Redeem(ctx, ticket.ID); err != ErrTicketNotFound {
		t.Fatalf("expected expired ticket to be rejected, got %v", err)
	}
}

func TestMemoryStoreUnknownTicketIsRejected(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Redeem(context.Background(), 0xDEADBEEF); err != ErrTicketNotFound {
		t.Fatalf("expected unknown ticket to be rejected, got %v", err)
	}
}
