package predictor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// State is the lifecycle state of one predictor instance.
type State int32

const (
	// StateUninitialized is the initial state, setup has not run yet.
	StateUninitialized State = iota

	// StateReady indicates that setup completed and predictions are accepted.
	StateReady

	// StateFailed indicates that setup failed. The instance refuses predictions.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// ContextSetuper is implemented by predictors with a cancellable setup.
type ContextSetuper interface {
	Setup(ctx context.Context) error
}

// Setuper is implemented by predictors with a plain fallible setup.
type Setuper interface {
	Setup() error
}

type plainSetuper interface {
	Setup()
}

// Lifecycle gates an instance behind an at-most-once setup. State moves
// from StateUninitialized to StateReady or StateFailed and never back.
type Lifecycle struct {
	target any
	name   string
	state  atomic.Int32
	err    error
	mu     sync.Mutex
}

// NewLifecycle creates the lifecycle of target.
func NewLifecycle(target any, name string) *Lifecycle {
	return &Lifecycle{target: target, name: name}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	return State(l.state.Load())
}

// Setup runs the target's optional setup once. Later calls return the stored
// outcome without running it again; concurrent callers wait for the first.
func (l *Lifecycle) Setup(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.State() {
	case StateReady:
		return nil
	case StateFailed:
		return l.err
	}

	slog.Debug("Running predictor setup", "predictor", l.name)

	if err := runSetup(ctx, l.target); err != nil {
		l.err = newError(KindSetup, err, "setup of %s failed: %v", l.name, err)
		l.state.Store(int32(StateFailed))
		slog.Error("Predictor setup failed", "predictor", l.name, "error", err)
		return l.err
	}

	l.state.Store(int32(StateReady))
	slog.Info("Predictor ready", "predictor", l.name)

	return nil
}

// Ensure rejects use of an instance that is not ready.
func (l *Lifecycle) Ensure() error {
	switch l.State() {
	case StateReady:
		return nil
	case StateFailed:
		return newError(KindSetup, ErrNotReady, "%s: %v: %v", l.name, ErrNotReady, l.err)
	default:
		return newError(KindSetup, ErrNotReady, "%s: %v: setup has not run", l.name, ErrNotReady)
	}
}

func runSetup(ctx context.Context, target any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	switch s := target.(type) {
	case ContextSetuper:
		return s.Setup(ctx)
	case Setuper:
		return s.Setup()
	case plainSetuper:
		s.Setup()
	}

	return nil
}
