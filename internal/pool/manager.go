package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/coxlong/zap/internal/platform"
)

// Manager owns at most one Pool for the lifetime of the process and routes
// window requests to it.
type Manager struct {
	host platform.Host
	opts Options

	mu   sync.RWMutex
	pool *Pool
}

// NewManager returns a manager with no pool. Call Initialize before
// OpenWindow.
func NewManager(host platform.Host, opts Options) *Manager {
	return &Manager{host: host, opts: opts}
}

// Initialize builds the pool from cfg. Only the first call succeeds.
func (m *Manager) Initialize(cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pool != nil {
		return ErrAlreadyInitialized
	}
	p, err := New(m.host, cfg, m.opts)
	if err != nil {
		return err
	}
	m.pool = p
	return nil
}

func (m *Manager) current() *Pool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pool
}

// OpenWindow acquires a window configured per opts.
func (m *Manager) OpenWindow(ctx context.Context, opts OpenWindowOptions) (*Handle, error) {
	p := m.current()
	if p == nil {
		return nil, fmt.Errorf("open window: %w", ErrPoolUnavailable)
	}
	return p.Acquire(ctx, opts)
}

// ReleaseWindow returns id to the pool, or destroys it outright when there
// is no pool to return it to.
func (m *Manager) ReleaseWindow(id platform.WindowID) {
	if p := m.current(); p != nil {
		p.Release(id)
		return
	}
	if m.host.IsDestroyed(id) {
		return
	}
	if err := m.host.Destroy(id); err != nil && m.opts.Logger != nil {
		m.opts.Logger.Warn("window destroy failed", "window_id", id, "error", err)
	}
}

// Lookup returns the active record for id.
func (m *Manager) Lookup(id platform.WindowID) (ActiveEntry, bool) {
	p := m.current()
	if p == nil {
		return ActiveEntry{}, false
	}
	return p.Lookup(id)
}

// PoolState reports the pool snapshot and whether a pool exists.
func (m *Manager) PoolState() (State, bool) {
	p := m.current()
	if p == nil {
		return State{}, false
	}
	return p.State(), true
}

// Config returns the effective pool configuration, if initialized.
func (m *Manager) Config() (Config, bool) {
	p := m.current()
	if p == nil {
		return Config{}, false
	}
	return p.Config(), true
}

// Destroy tears down the pool. The manager cannot be re-initialized.
func (m *Manager) Destroy() {
	if p := m.current(); p != nil {
		p.Destroy()
	}
}
