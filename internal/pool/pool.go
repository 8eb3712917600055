// Package pool keeps a set of pre-created windows warm so that opening a view
// reuses an existing window instead of paying the creation cost.
//
// A window handle is in at most one of two places: the idle queue (LIFO,
// waiting to be lent out) or the active map (lent to a caller). A handle that
// is in neither is either being created, being recycled, or gone.
package pool

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/coxlong/zap/internal/platform"
)

// Pool lends out pre-created windows and takes them back.
type Pool struct {
	cfg      Config
	host     platform.Host
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time

	gcInterval time.Duration
	gcCancel   context.CancelFunc
	gcDone     chan struct{}

	mu        sync.Mutex
	idle      []*IdleEntry
	active    map[platform.WindowID]*ActiveEntry
	pending   int
	destroyed bool

	replenishWG sync.WaitGroup
	configureWG sync.WaitGroup

	totalCreated   atomic.Int64
	totalReused    atomic.Int64
	totalDestroyed atomic.Int64
}

// New validates cfg, starts the idle sweeper and begins filling the idle
// queue up to cfg.MinIdle.
func New(host platform.Host, cfg Config, opts Options) (*Pool, error) {
	cfg, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		cfg:        cfg,
		host:       host,
		logger:     opts.Logger,
		recorder:   opts.Recorder,
		now:        opts.Now,
		gcInterval: GCInterval(cfg.TTL, opts.MinGCInterval),
		gcCancel:   cancel,
		gcDone:     make(chan struct{}),
		active:     make(map[platform.WindowID]*ActiveEntry),
	}
	host.OnClosed(p.Forget)

	go p.runGC(ctx)
	p.replenish()

	p.logger.Info("window pool started",
		"min_idle", cfg.MinIdle,
		"max_total", cfg.MaxTotal,
		"ttl", cfg.TTL,
		"gc_interval", p.gcInterval,
	)
	return p, nil
}

// Config returns the effective configuration.
func (p *Pool) Config() Config {
	return p.cfg
}

// Acquire lends a window to the caller and starts configuring it for opts in
// the background. The handle is registered as active before Acquire returns;
// configuration failures are logged and the window is destroyed. Callers that
// care about the outcome can wait on the returned Handle.
func (p *Pool) Acquire(ctx context.Context, opts OpenWindowOptions) (*Handle, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return nil, ErrPoolUnavailable
	}
	id, entry, reused := p.popIdleLocked(opts.Config.View)
	p.mu.Unlock()

	if reused {
		p.recorder.Record(Event{Action: ActionReuse, Window: id, Details: map[string]any{"use_count": entry.UseCount}})
	} else {
		var err error
		id, err = p.create(ctx, opts.Config.View)
		if err != nil {
			return nil, err
		}
		entry = p.newActiveEntry(id, opts.Config.View, p.now(), 0)

		p.mu.Lock()
		if p.destroyed {
			p.mu.Unlock()
			p.destroyHandle(id, "pool destroyed")
			return nil, ErrPoolUnavailable
		}
		p.active[id] = entry
		p.mu.Unlock()
	}

	p.recorder.Record(Event{
		Action: ActionAcquire,
		Window: id,
		Details: map[string]any{
			"lease":  entry.Lease,
			"view":   entry.View,
			"reused": reused,
		},
	})
	p.logger.Debug("window acquired", "window_id", id, "view", entry.View, "reused", reused)

	h := newHandle(id, entry.Lease)
	p.configureWG.Add(1)
	go p.configure(h, opts)

	return h, nil
}

// popIdleLocked takes the most recently recycled idle window and registers
// it as active. A popped window that was destroyed externally is dropped and
// reported as not reused.
func (p *Pool) popIdleLocked(view string) (platform.WindowID, *ActiveEntry, bool) {
	n := len(p.idle)
	if n == 0 {
		return 0, nil, false
	}
	top := p.idle[n-1]
	p.idle[n-1] = nil
	p.idle = p.idle[:n-1]

	if p.host.IsDestroyed(top.ID) {
		p.logger.Debug("dropping destroyed idle window", "window_id", top.ID)
		return 0, nil, false
	}

	entry := p.newActiveEntry(top.ID, view, top.CreatedAt, top.UseCount)
	p.active[top.ID] = entry
	p.totalReused.Add(1)
	return top.ID, entry, true
}

func (p *Pool) newActiveEntry(id platform.WindowID, view string, createdAt time.Time, uses int) *ActiveEntry {
	return &ActiveEntry{
		ID:         id,
		Lease:      uuid.NewString(),
		View:       view,
		CreatedAt:  createdAt,
		AcquiredAt: p.now(),
		UseCount:   uses + 1,
	}
}

func (p *Pool) create(ctx context.Context, view string) (platform.WindowID, error) {
	id, err := p.host.Create(ctx, view, p.cfg.DefaultSize)
	if err != nil {
		p.logger.Error("window creation failed", "view", view, "error", err)
		return 0, err
	}
	p.totalCreated.Add(1)
	p.recorder.Record(Event{Action: ActionCreate, Window: id, Details: map[string]any{"view": view}})
	return id, nil
}

// Release returns a window to the pool. Unknown handles are destroyed.
func (p *Pool) Release(id platform.WindowID) {
	p.mu.Lock()
	entry, ok := p.active[id]
	wasIdle := false
	if ok {
		delete(p.active, id)
	} else {
		wasIdle = p.removeIdleLocked(id)
	}
	destroyed := p.destroyed
	p.mu.Unlock()

	if !ok {
		p.logger.Warn("release of unknown window", "window_id", id, "idle", wasIdle)
		p.destroyHandle(id, "unknown handle")
		return
	}
	if destroyed {
		p.destroyHandle(id, "pool destroyed")
		return
	}

	if err := p.host.NotifyReset(id); err != nil {
		p.logger.Warn("window reset notification failed", "window_id", id, "error", err)
		p.destroyHandle(id, "reset failed")
		return
	}
	if err := p.host.Hide(id); err != nil {
		p.logger.Warn("window hide failed", "window_id", id, "error", err)
		p.destroyHandle(id, "hide failed")
		return
	}
	if !p.canRecycle(id) {
		p.destroyHandle(id, "not recyclable")
		return
	}
	p.recycle(entry)
}

func (p *Pool) canRecycle(id platform.WindowID) bool {
	if p.host.IsDestroyed(id) || !p.host.ContentAlive(id) {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.destroyed && len(p.idle) < p.cfg.MaxTotal
}

func (p *Pool) recycle(entry *ActiveEntry) {
	if err := p.host.ResetContent(entry.ID); err != nil {
		p.logger.Warn("window cleanup failed", "window_id", entry.ID, "error", err)
		p.destroyHandle(entry.ID, "cleanup failed")
		return
	}

	now := p.now()
	p.mu.Lock()
	if p.destroyed || len(p.idle) >= p.cfg.MaxTotal {
		p.mu.Unlock()
		p.destroyHandle(entry.ID, "idle queue full")
		return
	}
	p.idle = append(p.idle, &IdleEntry{
		ID:         entry.ID,
		CreatedAt:  entry.CreatedAt,
		LastUsedAt: now,
		UseCount:   entry.UseCount,
	})
	idle := len(p.idle)
	p.mu.Unlock()

	p.recorder.Record(Event{Action: ActionRecycle, Window: entry.ID, Details: map[string]any{"use_count": entry.UseCount}})
	p.logger.Debug("window recycled", "window_id", entry.ID, "idle", idle)
}

// Forget drops any record of a window that was closed outside the pool.
// It is idempotent.
func (p *Pool) Forget(id platform.WindowID) {
	p.mu.Lock()
	_, wasActive := p.active[id]
	delete(p.active, id)
	wasIdle := p.removeIdleLocked(id)
	p.mu.Unlock()

	if !wasActive && !wasIdle {
		return
	}
	p.recorder.Record(Event{Action: ActionForget, Window: id, Details: map[string]any{"active": wasActive}})
	p.logger.Debug("window closed externally", "window_id", id, "active", wasActive)
}

func (p *Pool) removeIdleLocked(id platform.WindowID) bool {
	for i, e := range p.idle {
		if e.ID == id {
			p.idle = slices.Delete(p.idle, i, i+1)
			return true
		}
	}
	return false
}

// Lookup returns the active record for id.
func (p *Pool) Lookup(id platform.WindowID) (ActiveEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.active[id]
	if !ok {
		return ActiveEntry{}, false
	}
	return *entry, true
}

// State returns a snapshot of the pool's counters.
func (p *Pool) State() State {
	p.mu.Lock()
	idle, active := len(p.idle), len(p.active)
	p.mu.Unlock()
	return State{
		PoolSize:       idle + active,
		ActiveCount:    active,
		IdleCount:      idle,
		TotalCreated:   p.totalCreated.Load(),
		TotalReused:    p.totalReused.Load(),
		TotalDestroyed: p.totalDestroyed.Load(),
	}
}

// Destroy stops the sweeper and destroys every window the pool knows about.
// It is idempotent; Acquire fails with ErrPoolUnavailable afterwards.
func (p *Pool) Destroy() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true
	ids := make([]platform.WindowID, 0, len(p.idle)+len(p.active))
	for _, e := range p.idle {
		ids = append(ids, e.ID)
	}
	for id := range p.active {
		ids = append(ids, id)
	}
	p.idle = nil
	p.active = make(map[platform.WindowID]*ActiveEntry)
	p.mu.Unlock()

	p.gcCancel()
	<-p.gcDone
	p.replenishWG.Wait()

	for _, id := range ids {
		p.destroyHandle(id, "pool destroyed")
	}
	p.logger.Info("window pool destroyed", "windows", len(ids))
}

func (p *Pool) destroyHandle(id platform.WindowID, reason string) {
	if p.host.IsDestroyed(id) {
		return
	}
	if err := p.host.Destroy(id); err != nil {
		p.logger.Warn("window destroy failed", "window_id", id, "reason", reason, "error", err)
		return
	}
	p.totalDestroyed.Add(1)
	p.recorder.Record(Event{Action: ActionDestroy, Window: id, Details: map[string]any{"reason": reason}})
}
