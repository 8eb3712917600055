package pool

import (
	"context"
	"time"
)

// runGC sweeps expired idle windows every gcInterval until ctx is cancelled.
func (p *Pool) runGC(ctx context.Context) {
	defer close(p.gcDone)

	ticker := time.NewTicker(p.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

// sweep destroys idle windows unused for longer than the TTL, then tops the
// idle queue back up.
func (p *Pool) sweep() {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("idle sweep panic recovered", "panic", r)
		}
	}()

	now := p.now()

	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	kept := make([]*IdleEntry, 0, len(p.idle))
	var expired []*IdleEntry
	for _, e := range p.idle {
		if now.Sub(e.LastUsedAt) <= p.cfg.TTL {
			kept = append(kept, e)
		} else {
			expired = append(expired, e)
		}
	}
	p.idle = kept
	p.mu.Unlock()

	for _, e := range expired {
		p.recorder.Record(Event{
			Action:  ActionEvict,
			Window:  e.ID,
			Details: map[string]any{"idle_for": now.Sub(e.LastUsedAt).Round(time.Millisecond).String()},
		})
		p.destroyHandle(e.ID, "ttl expired")
	}
	if len(expired) > 0 {
		p.logger.Debug("evicted idle windows", "count", len(expired), "remaining", len(kept))
	}

	p.replenish()
}
