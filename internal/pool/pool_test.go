package pool

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/coxlong/zap/internal/platform"
)

func TestAcquireCreatesWhenIdleEmpty(t *testing.T) {
	host := newFakeHost()
	p := newTestPool(t, host, testConfig(0, 5), Options{})

	h := acquire(t, p, view("search"))

	w := host.window(h.ID)
	if !w.visible || !w.focused {
		t.Fatalf("window should be shown and focused, got visible=%v focused=%v", w.visible, w.focused)
	}
	if w.view != "search" {
		t.Fatalf("view = %q, want search", w.view)
	}
	if w.navigations != 0 {
		t.Fatalf("fresh window bound to the requested view should not navigate, got %d", w.navigations)
	}
	if w.size != (platform.Size{Width: 800, Height: 600}) {
		t.Fatalf("fresh window size = %+v, want default", w.size)
	}

	st := p.State()
	if st.ActiveCount != 1 || st.IdleCount != 0 || st.PoolSize != 1 || st.TotalCreated != 1 {
		t.Fatalf("unexpected state %+v", st)
	}
	entry, ok := p.Lookup(h.ID)
	if !ok || entry.Lease != h.Lease || entry.UseCount != 1 {
		t.Fatalf("Lookup = %+v, %v", entry, ok)
	}
}

func TestAcquireRejectsMissingView(t *testing.T) {
	p := newTestPool(t, newFakeHost(), testConfig(0, 5), Options{})

	_, err := p.Acquire(context.Background(), OpenWindowOptions{})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
	_, err = p.Acquire(context.Background(), OpenWindowOptions{
		Data:   json.RawMessage(`{"broken"`),
		Config: WindowConfig{View: "search"},
	})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions for bad data, got %v", err)
	}
}

func TestAcquireCreateFailure(t *testing.T) {
	host := newFakeHost()
	p := newTestPool(t, host, testConfig(0, 5), Options{})
	boom := errors.New("spawn failed")
	host.set(func(h *fakeHost) { h.createErr = boom })

	if _, err := p.Acquire(context.Background(), view("search")); !errors.Is(err, boom) {
		t.Fatalf("expected create error, got %v", err)
	}
	if st := p.State(); st.PoolSize != 0 {
		t.Fatalf("failed create must not be tracked, got %+v", st)
	}
}

func TestReleaseRecyclesIntoIdle(t *testing.T) {
	host := newFakeHost()
	rec := &captureRecorder{}
	p := newTestPool(t, host, testConfig(0, 5), Options{Recorder: rec})

	h := acquire(t, p, OpenWindowOptions{
		Data:   json.RawMessage(`{"query":"hello"}`),
		Config: WindowConfig{View: "search"},
	})
	p.Release(h.ID)

	w := host.window(h.ID)
	if w.destroyed || w.visible {
		t.Fatalf("recycled window should be alive and hidden: %+v", w)
	}
	if w.resets != 1 || w.cleanups != 1 {
		t.Fatalf("resets=%d cleanups=%d, want 1 and 1", w.resets, w.cleanups)
	}
	if w.payload != nil {
		t.Fatalf("cleanup should drop delivered payload, got %s", w.payload)
	}

	st := p.State()
	if st.ActiveCount != 0 || st.IdleCount != 1 || st.PoolSize != 1 {
		t.Fatalf("unexpected state %+v", st)
	}
	if got := idleIDs(p); len(got) != 1 || got[0] != h.ID {
		t.Fatalf("idle = %v, want [%d]", got, h.ID)
	}
	if rec.count(ActionRecycle) != 1 {
		t.Fatalf("expected one RECYCLE event")
	}
}

func TestAcquireReusesMostRecentlyRecycled(t *testing.T) {
	host := newFakeHost()
	p := newTestPool(t, host, testConfig(0, 5), Options{})

	a := acquire(t, p, view("search"))
	b := acquire(t, p, view("search"))
	p.Release(a.ID)
	p.Release(b.ID)

	c := acquire(t, p, view("search"))
	if c.ID != b.ID {
		t.Fatalf("expected LIFO reuse of %d, got %d", b.ID, c.ID)
	}
	entry, _ := p.Lookup(c.ID)
	if entry.UseCount != 2 {
		t.Fatalf("UseCount = %d, want 2", entry.UseCount)
	}
	if c.Lease == b.Lease {
		t.Fatalf("reuse must issue a new lease")
	}

	st := p.State()
	if st.TotalReused != 1 || st.TotalCreated != 2 {
		t.Fatalf("unexpected totals %+v", st)
	}
}

func TestAcquireNavigatesOnlyWhenViewDiffers(t *testing.T) {
	host := newFakeHost()
	p := newTestPool(t, host, testConfig(0, 5), Options{})

	h := acquire(t, p, view("search"))
	p.Release(h.ID)

	h = acquire(t, p, view("search"))
	if n := host.window(h.ID).navigations; n != 0 {
		t.Fatalf("same view should not reload, navigations=%d", n)
	}
	p.Release(h.ID)

	h = acquire(t, p, view("settings"))
	w := host.window(h.ID)
	if w.navigations != 1 || w.view != "settings" {
		t.Fatalf("expected one navigation to settings, got %d to %q", w.navigations, w.view)
	}
}

func TestAcquireAppliesWindowConfig(t *testing.T) {
	yes := true
	x, y := 40, 60

	tests := []struct {
		name     string
		cfg      WindowConfig
		size     platform.Size
		pos      [2]int
		centered int
	}{
		{
			name:     "size is clamped to max",
			cfg:      WindowConfig{View: "v", Width: 5000, Height: 100},
			size:     platform.Size{Width: 2000, Height: 100},
			centered: 1,
		},
		{
			name:     "width alone leaves size untouched",
			cfg:      WindowConfig{View: "v", Width: 300},
			size:     platform.Size{Width: 800, Height: 600},
			centered: 1,
		},
		{
			name: "explicit position skips centering",
			cfg:  WindowConfig{View: "v", X: &x, Y: &y},
			size: platform.Size{Width: 800, Height: 600},
			pos:  [2]int{40, 60},
		},
		{
			name:     "x alone centers",
			cfg:      WindowConfig{View: "v", X: &x, Overrides: &Overrides{AlwaysOnTop: &yes}},
			size:     platform.Size{Width: 800, Height: 600},
			centered: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := newFakeHost()
			p := newTestPool(t, host, testConfig(0, 5), Options{})

			h := acquire(t, p, OpenWindowOptions{Config: tt.cfg})
			w := host.window(h.ID)
			if w.size != tt.size {
				t.Fatalf("size = %+v, want %+v", w.size, tt.size)
			}
			if [2]int{w.x, w.y} != tt.pos {
				t.Fatalf("position = %d,%d, want %v", w.x, w.y, tt.pos)
			}
			if w.centered != tt.centered {
				t.Fatalf("centered = %d, want %d", w.centered, tt.centered)
			}
		})
	}
}

func TestAcquireAppliesTitleOverridesAndPayload(t *testing.T) {
	host := newFakeHost()
	p := newTestPool(t, host, testConfig(0, 5), Options{})
	on, off := true, false

	h := acquire(t, p, OpenWindowOptions{
		Data: json.RawMessage(`{"chat":1}`),
		Config: WindowConfig{
			View:      "chat",
			Title:     "Chat",
			Overrides: &Overrides{AlwaysOnTop: &on, SkipTaskbar: &off},
		},
	})
	w := host.window(h.ID)
	if w.title != "Chat" || !w.alwaysOnTop || w.skipTaskbar {
		t.Fatalf("unexpected window %+v", w)
	}
	if string(w.payload) != `{"chat":1}` {
		t.Fatalf("payload = %s", w.payload)
	}

	h = acquire(t, p, OpenWindowOptions{Data: json.RawMessage(`null`), Config: WindowConfig{View: "chat"}})
	if w := host.window(h.ID); w.payload != nil {
		t.Fatalf("null data should not be delivered, got %s", w.payload)
	}
}

func TestConfigureFailureDestroysWindow(t *testing.T) {
	host := newFakeHost()
	rec := &captureRecorder{}
	p := newTestPool(t, host, testConfig(0, 5), Options{Recorder: rec})
	host.set(func(h *fakeHost) { h.titleErr = errors.New("no title for you") })

	h, err := p.Acquire(context.Background(), OpenWindowOptions{Config: WindowConfig{View: "v", Title: "x"}})
	if err != nil {
		t.Fatalf("Acquire should succeed before configuration runs: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.Wait(ctx); err == nil {
		t.Fatalf("expected configuration error")
	}

	if !host.window(h.ID).destroyed {
		t.Fatalf("half-configured window must be destroyed")
	}
	if _, ok := p.Lookup(h.ID); ok {
		t.Fatalf("failed window must leave the active map")
	}
	if rec.count(ActionConfigureFailed) != 1 {
		t.Fatalf("expected CONFIGURE-FAILED event")
	}
}

func TestReleaseUnknownDestroys(t *testing.T) {
	host := newFakeHost()
	p := newTestPool(t, host, testConfig(0, 5), Options{})

	kept := acquire(t, p, view("search"))
	p.Release(kept.ID)

	id, err := host.Create(context.Background(), "stray", platform.Size{Width: 1, Height: 1})
	if err != nil {
		t.Fatal(err)
	}
	p.Release(id)

	if !host.window(id).destroyed {
		t.Fatalf("unknown window should be force-destroyed")
	}
	if got := idleIDs(p); !slices.Equal(got, []platform.WindowID{kept.ID}) {
		t.Fatalf("idle = %v, want [%d]", got, kept.ID)
	}
	if st := p.State(); st.IdleCount != 1 || st.ActiveCount != 0 || st.TotalDestroyed != 1 {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestReleaseTwiceDropsWindowFromIdle(t *testing.T) {
	host := newFakeHost()
	p := newTestPool(t, host, testConfig(0, 5), Options{})

	h := acquire(t, p, view("search"))
	p.Release(h.ID)
	p.Release(h.ID)

	if !host.window(h.ID).destroyed {
		t.Fatalf("second release should destroy the window")
	}
	if got := idleIDs(p); len(got) != 0 {
		t.Fatalf("destroyed window %d still queued: %v", h.ID, got)
	}
	if st := p.State(); st.IdleCount != 0 || st.PoolSize != 0 {
		t.Fatalf("unexpected state %+v", st)
	}

	next := acquire(t, p, view("search"))
	if next.ID == h.ID {
		t.Fatalf("acquire handed out the destroyed window %d", h.ID)
	}
}

func TestReleaseDestroysWhenNotRecyclable(t *testing.T) {
	tests := []struct {
		name     string
		maxTotal int
		prepare  func(h *fakeHost, id platform.WindowID)
	}{
		{
			name:     "content dead",
			maxTotal: 5,
			prepare: func(h *fakeHost, id platform.WindowID) {
				h.set(func(h *fakeHost) { h.windows[id].contentDead = true })
			},
		},
		{
			name:     "max total zero",
			maxTotal: 0,
		},
		{
			name:     "cleanup fails",
			maxTotal: 5,
			prepare: func(h *fakeHost, _ platform.WindowID) {
				h.set(func(h *fakeHost) { h.cleanupErr = errors.New("storage locked") })
			},
		},
		{
			name:     "reset notification fails",
			maxTotal: 5,
			prepare: func(h *fakeHost, _ platform.WindowID) {
				h.set(func(h *fakeHost) { h.resetErr = errors.New("renderer hung") })
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := newFakeHost()
			p := newTestPool(t, host, testConfig(0, tt.maxTotal), Options{})

			h := acquire(t, p, view("search"))
			if tt.prepare != nil {
				tt.prepare(host, h.ID)
			}
			p.Release(h.ID)

			if !host.window(h.ID).destroyed {
				t.Fatalf("window should be destroyed")
			}
			if st := p.State(); st.PoolSize != 0 {
				t.Fatalf("unexpected state %+v", st)
			}
		})
	}
}

func TestIdleQueueBoundedByMaxTotal(t *testing.T) {
	host := newFakeHost()
	p := newTestPool(t, host, testConfig(0, 2), Options{})

	var handles []*Handle
	for range 4 {
		handles = append(handles, acquire(t, p, view("search")))
	}
	if st := p.State(); st.ActiveCount != 4 {
		t.Fatalf("acquire is not bounded by MaxTotal, want 4 active, got %+v", st)
	}
	for _, h := range handles {
		p.Release(h.ID)
	}

	st := p.State()
	if st.IdleCount != 2 || st.ActiveCount != 0 || st.TotalDestroyed != 2 {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestDestroyedIdleWindowIsNotReused(t *testing.T) {
	host := newFakeHost()
	p := newTestPool(t, host, testConfig(0, 5), Options{})

	h := acquire(t, p, view("search"))
	p.Release(h.ID)
	host.kill(h.ID)

	next := acquire(t, p, view("search"))
	if next.ID == h.ID {
		t.Fatalf("externally destroyed window %d was handed out again", h.ID)
	}
	if st := p.State(); st.IdleCount != 0 || st.ActiveCount != 1 {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestForgetIsIdempotent(t *testing.T) {
	host := newFakeHost()
	rec := &captureRecorder{}
	p := newTestPool(t, host, testConfig(0, 5), Options{Recorder: rec})

	active := acquire(t, p, view("a"))
	idle := acquire(t, p, view("b"))
	p.Release(idle.ID)

	host.closeExternally(active.ID)
	host.closeExternally(idle.ID)
	p.Forget(active.ID)
	p.Forget(idle.ID)
	p.Forget(9999)

	if st := p.State(); st.PoolSize != 0 {
		t.Fatalf("forgotten windows still tracked: %+v", st)
	}
	if n := rec.count(ActionForget); n != 2 {
		t.Fatalf("FORGET events = %d, want 2", n)
	}

	// Releasing a forgotten window is a caller error but must be harmless.
	p.Release(active.ID)
	if st := p.State(); st.IdleCount != 0 {
		t.Fatalf("forgotten window leaked into idle: %+v", st)
	}
}

func TestDestroyTearsDownEverything(t *testing.T) {
	host := newFakeHost()
	p := newTestPool(t, host, testConfig(2, 5), Options{})

	h := acquire(t, p, view("search"))
	idle := idleIDs(p)
	if len(idle) != 1 {
		t.Fatalf("expected one remaining idle window after acquire, got %v", idle)
	}

	p.Destroy()
	p.Destroy()

	for _, id := range append(idle, h.ID) {
		if !host.window(id).destroyed {
			t.Fatalf("window %d survived Destroy", id)
		}
	}
	if st := p.State(); st.PoolSize != 0 {
		t.Fatalf("unexpected state after destroy %+v", st)
	}
	if _, err := p.Acquire(context.Background(), view("search")); !errors.Is(err, ErrPoolUnavailable) {
		t.Fatalf("expected ErrPoolUnavailable, got %v", err)
	}

	p.Release(h.ID)
	if st := p.State(); st.IdleCount != 0 {
		t.Fatalf("release after destroy must not recycle: %+v", st)
	}
}

func TestReplenishFillsToMinIdle(t *testing.T) {
	host := newFakeHost()
	rec := &captureRecorder{}
	p := newTestPool(t, host, testConfig(3, 5), Options{Recorder: rec})

	ids := idleIDs(p)
	if len(ids) != 3 {
		t.Fatalf("idle = %v, want 3 entries", ids)
	}
	for _, id := range ids {
		w := host.window(id)
		if w.view != DefaultView || w.visible || w.cleanups != 1 {
			t.Fatalf("replenished window %d not neutral: %+v", id, w)
		}
	}
	if n := rec.count(ActionCreate); n != 3 {
		t.Fatalf("CREATE events = %d, want 3", n)
	}
}

func TestReplenishCountsPendingCreations(t *testing.T) {
	host := newFakeHost()
	gate := make(chan struct{})
	host.set(func(h *fakeHost) { h.createGate = gate })

	p, err := New(host, testConfig(2, 5), Options{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(p.Destroy)

	p.replenish()
	p.replenish()
	p.mu.Lock()
	pending := p.pending
	p.mu.Unlock()
	if pending != 2 {
		t.Fatalf("pending = %d, want 2", pending)
	}

	close(gate)
	p.replenishWG.Wait()

	st := p.State()
	if st.IdleCount != 2 || st.TotalCreated != 2 {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestReplenishFailureIsNotRetried(t *testing.T) {
	host := newFakeHost()
	host.set(func(h *fakeHost) { h.createErr = errors.New("display gone") })
	p := newTestPool(t, host, testConfig(2, 5), Options{})

	p.mu.Lock()
	pending := p.pending
	p.mu.Unlock()
	if st := p.State(); st.IdleCount != 0 || pending != 0 {
		t.Fatalf("failed replenish left state %+v pending=%d", st, pending)
	}
}

func TestSweepEvictsExpiredIdle(t *testing.T) {
	host := newFakeHost()
	clock := newFakeClock()
	cfg := testConfig(0, 5)
	cfg.TTL = time.Minute
	p := newTestPool(t, host, cfg, Options{Now: clock.Now})

	old := acquire(t, p, view("a"))
	fresh := acquire(t, p, view("b"))
	p.Release(old.ID)
	clock.Advance(45 * time.Second)
	p.Release(fresh.ID)
	clock.Advance(30 * time.Second)

	p.sweep()

	if !host.window(old.ID).destroyed {
		t.Fatalf("expired window %d should be destroyed", old.ID)
	}
	if got := idleIDs(p); len(got) != 1 || got[0] != fresh.ID {
		t.Fatalf("idle = %v, want [%d]", got, fresh.ID)
	}
}

func TestSweepKeepsEntryAtExactTTL(t *testing.T) {
	host := newFakeHost()
	clock := newFakeClock()
	cfg := testConfig(0, 5)
	cfg.TTL = time.Minute
	p := newTestPool(t, host, cfg, Options{Now: clock.Now})

	h := acquire(t, p, view("a"))
	p.Release(h.ID)
	clock.Advance(time.Minute)
	p.sweep()

	if got := idleIDs(p); len(got) != 1 {
		t.Fatalf("entry at exactly TTL should be kept, idle = %v", got)
	}
}

func TestSweepReplenishesAfterEviction(t *testing.T) {
	host := newFakeHost()
	clock := newFakeClock()
	cfg := testConfig(2, 5)
	cfg.TTL = time.Minute
	p := newTestPool(t, host, cfg, Options{Now: clock.Now})

	before := idleIDs(p)
	clock.Advance(2 * time.Minute)
	p.sweep()
	p.replenishWG.Wait()

	after := idleIDs(p)
	if len(after) != 2 {
		t.Fatalf("idle after sweep = %v, want 2 entries", after)
	}
	for _, id := range before {
		if !host.window(id).destroyed {
			t.Fatalf("expired window %d not destroyed", id)
		}
		for _, got := range after {
			if got == id {
				t.Fatalf("expired window %d still idle", id)
			}
		}
	}
}

func TestSweepNeverTouchesActive(t *testing.T) {
	host := newFakeHost()
	clock := newFakeClock()
	cfg := testConfig(0, 5)
	cfg.TTL = time.Second
	p := newTestPool(t, host, cfg, Options{Now: clock.Now})

	h := acquire(t, p, view("a"))
	clock.Advance(time.Hour)
	p.sweep()

	if host.window(h.ID).destroyed {
		t.Fatalf("active window destroyed by sweep")
	}
	if _, ok := p.Lookup(h.ID); !ok {
		t.Fatalf("active window dropped by sweep")
	}
}

func TestIdleWindowExpiresAndIsReplaced(t *testing.T) {
	host := newFakeHost()
	cfg := testConfig(1, 2)
	cfg.TTL = 200 * time.Millisecond
	p := newTestPool(t, host, cfg, Options{MinGCInterval: 10 * time.Millisecond})

	h := acquire(t, p, view("search"))
	p.Release(h.ID)
	if !slices.Contains(idleIDs(p), h.ID) {
		t.Fatalf("released window %d not idle", h.ID)
	}

	waitFor(t, 3*time.Second, func() bool {
		ids := idleIDs(p)
		return host.window(h.ID).destroyed && len(ids) == 1 && ids[0] != h.ID
	})
}

func TestMembershipIsExclusive(t *testing.T) {
	host := newFakeHost()
	p := newTestPool(t, host, testConfig(1, 3), Options{})
	rng := rand.New(rand.NewSource(7))

	var held []platform.WindowID
	for i := 0; i < 200; i++ {
		if len(held) == 0 || rng.Intn(2) == 0 {
			held = append(held, acquire(t, p, view([]string{"a", "b"}[rng.Intn(2)])).ID)
		} else {
			j := rng.Intn(len(held))
			p.Release(held[j])
			held = append(held[:j], held[j+1:]...)
		}
		assertExclusive(t, p)
	}
}

func TestConcurrentAcquireRelease(t *testing.T) {
	host := newFakeHost()
	p := newTestPool(t, host, testConfig(2, 4), Options{})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				h, err := p.Acquire(context.Background(), view("search"))
				if err != nil {
					t.Errorf("Acquire: %v", err)
					return
				}
				<-h.Done()
				p.Release(h.ID)
			}
		}()
	}
	wg.Wait()
	p.configureWG.Wait()

	assertExclusive(t, p)
	st := p.State()
	if st.ActiveCount != 0 || st.IdleCount > 4 {
		t.Fatalf("unexpected state %+v", st)
	}
	for _, id := range idleIDs(p) {
		if host.window(id).destroyed {
			t.Fatalf("destroyed window %d in idle queue", id)
		}
	}
}

func assertExclusive(t *testing.T, p *Pool) {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	seen := make(map[platform.WindowID]bool)
	for _, e := range p.idle {
		if seen[e.ID] {
			t.Fatalf("window %d queued twice", e.ID)
		}
		if _, ok := p.active[e.ID]; ok {
			t.Fatalf("window %d is both idle and active", e.ID)
		}
		seen[e.ID] = true
	}
}

// lockCheckRecorder notes whether the pool lock was held while an event was
// recorded.
type lockCheckRecorder struct {
	pool   *Pool
	mu     sync.Mutex
	locked []Action
}

func (r *lockCheckRecorder) Record(ev Event) {
	if r.pool == nil {
		return
	}
	if r.pool.mu.TryLock() {
		r.pool.mu.Unlock()
		return
	}
	r.mu.Lock()
	r.locked = append(r.locked, ev.Action)
	r.mu.Unlock()
}

func TestEventsRecordedOutsidePoolLock(t *testing.T) {
	host := newFakeHost()
	rec := &lockCheckRecorder{}
	p := newTestPool(t, host, testConfig(0, 5), Options{Recorder: rec})
	rec.pool = p

	h := acquire(t, p, view("search"))
	p.Release(h.ID)
	again := acquire(t, p, view("search"))
	if again.ID != h.ID {
		t.Fatalf("expected reuse of %d, got %d", h.ID, again.ID)
	}
	p.Release(again.ID)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.locked) != 0 {
		t.Fatalf("events recorded under the pool lock: %v", rec.locked)
	}
}
