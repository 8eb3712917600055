package pool

import "context"

// replenish starts one background creation per missing idle window.
// Creations already in flight count against the shortage.
func (p *Pool) replenish() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	shortage := p.cfg.MinIdle - len(p.idle) - p.pending
	if shortage <= 0 {
		p.mu.Unlock()
		return
	}
	p.pending += shortage
	p.replenishWG.Add(shortage)
	p.mu.Unlock()

	p.logger.Debug("replenishing idle windows", "count", shortage)
	for range shortage {
		go p.replenishOne()
	}
}

func (p *Pool) replenishOne() {
	defer p.replenishWG.Done()

	id, err := p.create(context.Background(), p.cfg.DefaultView)
	if err != nil {
		p.mu.Lock()
		p.pending--
		p.mu.Unlock()
		return
	}

	if err := p.host.ResetContent(id); err != nil {
		p.logger.Warn("fresh window cleanup failed", "window_id", id, "error", err)
		p.mu.Lock()
		p.pending--
		p.mu.Unlock()
		p.destroyHandle(id, "cleanup failed")
		return
	}

	now := p.now()
	p.mu.Lock()
	p.pending--
	if p.destroyed || len(p.idle) >= p.cfg.MaxTotal {
		p.mu.Unlock()
		p.destroyHandle(id, "idle queue full")
		return
	}
	p.idle = append(p.idle, &IdleEntry{ID: id, CreatedAt: now, LastUsedAt: now})
	p.mu.Unlock()

	p.recorder.Record(Event{Action: ActionRecycle, Window: id, Details: map[string]any{"use_count": 0}})
}
