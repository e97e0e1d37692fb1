package housekeeping

import (
	"context"
	"time"

	"github.com/chirpnet/chirpnet/application/port/outbound"
	"github.com/chirpnet/chirpnet/infrastructure/service/logger"
)

// Sweeper periodically deletes expired ledger rows. Expired tokens are
// already rejected on use; the sweep only keeps the table from growing
// without bound.
type Sweeper struct {
	repo     outbound.RefreshTokenRepository
	logger   logger.Logger
	interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewSweeper(repo outbound.RefreshTokenRepository, log logger.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		repo:     repo,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the sweep loop in its own goroutine. One sweep runs
// immediately so a long interval does not delay the first cleanup.
func (s *Sweeper) Start() {
	go func() {
		defer close(s.doneCh)

		s.sweep()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop signals the loop to exit and waits for the in-flight sweep to finish.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := s.repo.DeleteExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error(ctx, "Refresh token sweep failed", err, nil)
		return
	}
	if removed > 0 {
		s.logger.Info(ctx, "Swept expired refresh tokens", map[string]interface{}{
			"removed": removed,
		})
	}
}
