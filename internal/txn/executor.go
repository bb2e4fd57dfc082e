// Package txn runs operations inside a transactional boundary with
// optimistic-concurrency retry.
//
// A boundary is opened by the outermost Run call and stored in the context.
// Nested Run calls with that context join it instead of starting a new
// transaction; only the outermost call commits or rolls back, and only the
// outermost call turns domain.ErrStaleVersion into
// domain.ErrConcurrencyConflict.
package txn

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Rrens/event-assistant/internal/domain"
)

// Tx is a started storage transaction
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Beginner starts transactions on a storage backend
type Beginner interface {
	Begin(ctx context.Context) (Tx, error)
}

// State of a boundary
type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateCommitted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInProgress:
		return "in_progress"
	case StateCommitted:
		return "committed"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type boundary struct {
	mu    sync.Mutex
	tx    Tx
	depth int
	state State
}

func (b *boundary) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

type boundaryKey struct{}

func boundaryFrom(ctx context.Context) *boundary {
	b, _ := ctx.Value(boundaryKey{}).(*boundary)
	return b
}

// Current returns the transaction of the active boundary in ctx, or nil
func Current(ctx context.Context) Tx {
	b := boundaryFrom(ctx)
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateInProgress {
		return nil
	}
	return b.tx
}

// StateOf reports the state of the boundary carried by ctx
func StateOf(ctx context.Context) State {
	b := boundaryFrom(ctx)
	if b == nil {
		return StateNotStarted
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Depth reports how many Run calls are currently active on ctx's boundary
func Depth(ctx context.Context) int {
	b := boundaryFrom(ctx)
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.depth
}

// Executor opens transactional boundaries
type Executor struct {
	beginner Beginner
	retrier  *Retrier
}

// NewExecutor creates a new executor
func NewExecutor(beginner Beginner, retrier *Retrier) *Executor {
	if retrier == nil {
		retrier = NewRetrier(DefaultMaxAttempts, DefaultBackoff)
	}
	return &Executor{beginner: beginner, retrier: retrier}
}

// Run executes fn inside a transactional boundary.
func (e *Executor) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if b := boundaryFrom(ctx); b != nil && StateOf(ctx) == StateInProgress {
		b.mu.Lock()
		b.depth++
		b.mu.Unlock()
		defer func() {
			b.mu.Lock()
			b.depth--
			b.mu.Unlock()
		}()
		return fn(ctx)
	}

	tx, err := e.beginner.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	b := &boundary{tx: tx, depth: 1, state: StateInProgress}
	txCtx := context.WithValue(ctx, boundaryKey{}, b)

	committed := false
	defer func() {
		if committed {
			return
		}
		// Rollback must run even when the caller's context is already cancelled.
		_ = tx.Rollback(context.WithoutCancel(ctx))
		b.setState(StateAborted)
	}()

	if err := fn(txCtx); err != nil {
		return convertStale(err)
	}

	// A cancelled caller aborts the boundary instead of committing.
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return convertStale(fmt.Errorf("failed to commit transaction: %w", err))
	}
	committed = true
	b.setState(StateCommitted)
	return nil
}

// RunWithRetry executes fn in a fresh boundary, retrying the whole
// boundary on concurrency conflicts.
func (e *Executor) RunWithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	return e.retrier.Do(ctx, func(ctx context.Context) error {
		return e.Run(ctx, fn)
	})
}

func convertStale(err error) error {
	if errors.Is(err, domain.ErrStaleVersion) && !errors.Is(err, domain.ErrConcurrencyConflict) {
		return fmt.Errorf("%w: %s", domain.ErrConcurrencyConflict, err.Error())
	}
	return err
}
