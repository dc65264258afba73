package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ekisa-team/infero/internal/config"
	"github.com/ekisa-team/infero/predictor"
)

const drainTimeout = 30 * time.Second

// Manager owns the active worker pool and swaps it on reload.
type Manager struct {
	loader *predictor.Loader
	pool   *Pool
	mu     sync.RWMutex
}

// NewManager creates a new Manager resolving predictors with loader.
func NewManager(loader *predictor.Loader) *Manager {
	return &Manager{loader: loader}
}

// Pool returns the active pool, nil before the first load.
func (m *Manager) Pool() *Pool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.pool
}

// Ready reports whether a pool is serving.
func (m *Manager) Ready() bool {
	return m.Pool() != nil
}

// LoadFromConfig builds a fresh pool for the configured route and swaps it
// in. The previous pool keeps serving if the new one fails; otherwise it is
// drained and closed in the background.
func (m *Manager) LoadFromConfig(ctx context.Context, cfg *config.File) error {
	route, err := cfg.Route()
	if err != nil {
		return err
	}

	pool, err := NewPool(ctx, route, cfg.Infero.Server.Threads, m.loader)
	if err != nil {
		return err
	}

	m.mu.Lock()
	old := m.pool
	m.pool = pool
	m.mu.Unlock()

	if old != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()

			if err := old.Close(ctx); err != nil {
				slog.Error("Failed to close previous pool", "error", err)
				return
			}
			slog.Info("Previous pool closed", "route", old.Route().Path)
		}()
	}

	return nil
}

// Predict runs one prediction on the active pool.
func (m *Manager) Predict(ctx context.Context, payload map[string]any, opts ...predictor.InvokeOption) (*predictor.Result, error) {
	pool := m.Pool()
	if pool == nil {
		return nil, &predictor.Error{Kind: predictor.KindSetup, Message: predictor.ErrNotReady.Error(), Err: predictor.ErrNotReady}
	}

	return pool.Predict(ctx, payload, opts...)
}

// Close drains and closes the active pool.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	pool := m.pool
	m.pool = nil
	m.mu.Unlock()

	if pool == nil {
		return nil
	}
	return pool.Close(ctx)
}
