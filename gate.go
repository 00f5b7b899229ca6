package exportprobe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/framelab/exportprobe/core"
)

// DefaultGateTimeout bounds a single export attempt
const DefaultGateTimeout = 120 * time.Second

// Gate is a one-shot synchronization primitive for a single export attempt.
// The pipeline's event thread marks terminal conditions as reached, or
// records a fatal error; exactly one consumer blocks in Await until one of
// the terminal outcomes arrives or the gate timeout elapses.
//
// Conditions are latched: once signaled they stay signaled, and signaling an
// already-signaled condition is a no-op. A recorded error releases every
// waiter and takes priority over any condition signaled alongside it, so a
// caller never misreads "ended" when the true outcome was "ended due to
// failure". Gates are not reusable across attempts.
type Gate struct {
	timeout time.Duration

	mu    sync.Mutex
	conds map[core.Condition]chan struct{}
	err   error
	errCh chan struct{}
}

// TimeoutError reports that a condition was never signaled within the
// gate's bounded wait
type TimeoutError struct {
	Condition core.Condition
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("gate: condition %q not signaled within %s", e.Condition, e.Timeout)
}

// PropagatedError replays an upstream pipeline failure to the waiter
type PropagatedError struct {
	Err error
}

func (e *PropagatedError) Error() string {
	return fmt.Sprintf("gate: pipeline reported error: %v", e.Err)
}

func (e *PropagatedError) Unwrap() error {
	return e.Err
}

// NewGate creates a gate tracking the given terminal conditions, with a
// fixed timeout applied to every Await call
func NewGate(timeout time.Duration, conditions ...core.Condition) *Gate {
	conds := make(map[core.Condition]chan struct{}, len(conditions))
	for _, c := range conditions {
		conds[c] = make(chan struct{})
	}
	return &Gate{
		timeout: timeout,
		conds:   conds,
		errCh:   make(chan struct{}),
	}
}

// Signal marks the condition as reached and wakes any waiter blocked on it.
// Signaling an unknown or already-signaled condition is a no-op.
func (g *Gate) Signal(condition core.Condition) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.signalLocked(condition)
}

// SignalError records err as the gate's terminal error and signals every
// tracked condition so no waiter is left blocked. The first recorded error
// wins; later errors are discarded.
func (g *Gate) SignalError(err error) {
	if err == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return
	}
	g.err = err
	close(g.errCh)
	for condition := range g.conds {
		g.signalLocked(condition)
	}
}

func (g *Gate) signalLocked(condition core.Condition) {
	ch, ok := g.conds[condition]
	if !ok {
		return
	}
	select {
	case <-ch:
		// already signaled
	default:
		close(ch)
	}
}

// Err returns the recorded terminal error, if any
func (g *Gate) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Await blocks until the condition is signaled, the gate timeout elapses,
// the context is done, or an error was recorded. It returns nil only when
// the condition was signaled and no error was recorded; a recorded error
// always wins, even if the condition was independently signaled.
func (g *Gate) Await(ctx context.Context, condition core.Condition) error {
	g.mu.Lock()
	ch, ok := g.conds[condition]
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("gate: unknown condition %q", condition)
	}

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case <-ch:
	case <-g.errCh:
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		// A signal may have landed between the timer firing and this
		// select being chosen; prefer the signaled outcome.
		select {
		case <-ch:
		default:
			if err := g.Err(); err != nil {
				return &PropagatedError{Err: err}
			}
			return &TimeoutError{Condition: condition, Timeout: g.timeout}
		}
	}

	if err := g.Err(); err != nil {
		return &PropagatedError{Err: err}
	}
	return nil
}
