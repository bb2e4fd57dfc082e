package txn

import (
	"context"
	"errors"
	"time"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 100 * time.Millisecond
)

// Retrier re-runs an operation that failed with domain.ErrConcurrencyConflict,
// waiting backoff*attempt between tries.
type Retrier struct {
	maxAttempts int
	backoff     time.Duration
}

// NewRetrier creates a new retrier
func NewRetrier(maxAttempts int, backoff time.Duration) *Retrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if backoff < 0 {
		backoff = 0
	}
	return &Retrier{maxAttempts: maxAttempts, backoff: backoff}
}

// MaxAttempts returns the configured attempt limit
func (r *Retrier) MaxAttempts() int {
	return r.maxAttempts
}

// Do runs op until it succeeds, fails with a non-conflict error, or the
// attempts are exhausted. The last conflict is returned unchanged.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil || !errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		if attempt >= r.maxAttempts {
			log.Warn().Err(err).Int("attempts", attempt).Msg("Giving up after concurrent update conflicts")
			return err
		}

		wait := r.backoff * time.Duration(attempt)
		log.Debug().Int("attempt", attempt).Dur("backoff", wait).Msg("Retrying after concurrent update conflict")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
