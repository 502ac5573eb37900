package auth

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically deletes expired sessions.
type Sweeper struct {
	sessions *SessionService
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a sweeper. A non-positive interval disables it.
func NewSweeper(sessions *SessionService, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{sessions: sessions, interval: interval, logger: logger}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Debug("session sweeper disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.sessions.CleanupExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("session sweep failed", "error", err)
		}
		return
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", "count", n)
	}
}
