// Package saver runs a background loop that periodically persists dirty
// session state, and guarantees exactly one final flush on shutdown no
// matter how that shutdown is triggered.
package saver

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Record is one piece of state due for persistence.
type Record struct {
	ID   uint64
	Data any
}

// Persister writes one record's data to durable storage.
type Persister interface {
	Save(ctx context.Context, id uint64, data any) error
}

// Saver periodically calls collect to gather everything currently dirty,
// and persists each record through Persister. It is not safe for
// concurrent Run calls, but Shutdown may be called from any goroutine.
type Saver struct {
	interval time.Duration
	persist  Persister
	collect  func() []Record

	once sync.Once
}

// New returns a Saver that flushes every interval, plus once more on
// shutdown.
func New(interval time.Duration, persist Persister, collect func() []Record) *Saver {
	return &Saver{interval: interval, persist: persist, collect: collect}
}

// Run blocks, flushing every interval, until ctx is cancelled — at which
// point it performs one last flush (via Shutdown) before returning.
func (s *Saver) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Shutdown(context.Background())
			return
		case <-ticker.C:
			s.flush(ctx)
		}
	}
}

// Shutdown performs the final flush exactly once, even if called from
// both Run's own ctx.Done path and an explicit caller (e.g. a signal
// handler racing the scheduler's own shutdown).
func (s *Saver) Shutdown(ctx context.Context) {
	s.once.Do(func() {
		s.flush(ctx)
	})
}

func (s *Saver) flush(ctx context.Context) {
	records := s.collect()
	saved := 0
	for _, rec := range records {
		if err := s.persist.Save(ctx, rec.ID, rec.Data); err != nil {
			slog.Error("saver: persisting record failed", "id", rec.ID, "error", err)
			continue
		}
		saved++
	}
	if saved > 0 {
		slog.Info("saver: flushed records", "count", saved)
	}
}
