package pool

import (
	"context"
	"fmt"

	"github.com/coxlong/zap/internal/platform"
)

// configure applies opts to an acquired window. It runs detached from the
// caller's context; a failure destroys the window unless the lease has
// already been released.
func (p *Pool) configure(h *Handle, opts OpenWindowOptions) {
	defer p.configureWG.Done()

	id := h.ID
	err := p.applyConfig(context.Background(), id, opts)
	defer h.finish(err)
	if err == nil {
		return
	}

	p.logger.Error("window configuration failed", "window_id", id, "view", opts.Config.View, "error", err)
	p.recorder.Record(Event{Action: ActionConfigureFailed, Window: id, Details: map[string]any{"error": err.Error()}})

	p.mu.Lock()
	entry, ok := p.active[id]
	owned := ok && entry.Lease == h.Lease
	if owned {
		delete(p.active, id)
	}
	p.mu.Unlock()

	if owned {
		p.destroyHandle(id, "configure failed")
	}
}

func (p *Pool) applyConfig(ctx context.Context, id platform.WindowID, opts OpenWindowOptions) error {
	cfg := opts.Config

	if p.host.CurrentView(id) != cfg.View {
		if err := p.host.Navigate(ctx, id, cfg.View); err != nil {
			return fmt.Errorf("navigate to %q: %w", cfg.View, err)
		}
	}

	if cfg.Width > 0 && cfg.Height > 0 {
		size := clampSize(platform.Size{Width: cfg.Width, Height: cfg.Height}, p.cfg.MaxSize)
		if err := p.host.SetSize(id, size); err != nil {
			return fmt.Errorf("set size: %w", err)
		}
	}

	if cfg.X != nil && cfg.Y != nil {
		if err := p.host.SetPosition(id, *cfg.X, *cfg.Y); err != nil {
			return fmt.Errorf("set position: %w", err)
		}
	} else if placer, ok := p.host.(platform.Placer); ok {
		if err := placer.CenterOn(id); err != nil {
			p.logger.Debug("centering window failed", "window_id", id, "error", err)
		}
	}

	if cfg.Title != "" {
		if err := p.host.SetTitle(id, cfg.Title); err != nil {
			return fmt.Errorf("set title: %w", err)
		}
	}

	if o := cfg.Overrides; o != nil {
		if o.AlwaysOnTop != nil {
			if err := p.host.SetAlwaysOnTop(id, *o.AlwaysOnTop); err != nil {
				return fmt.Errorf("set always-on-top: %w", err)
			}
		}
		if o.SkipTaskbar != nil {
			if err := p.host.SetSkipTaskbar(id, *o.SkipTaskbar); err != nil {
				return fmt.Errorf("set skip-taskbar: %w", err)
			}
		}
	}

	if opts.hasPayload() {
		if err := p.host.DeliverPayload(id, opts.Data); err != nil {
			return fmt.Errorf("deliver payload: %w", err)
		}
	}

	if err := p.host.Show(id); err != nil {
		return fmt.Errorf("show: %w", err)
	}
	if err := p.host.Focus(id); err != nil {
		return fmt.Errorf("focus: %w", err)
	}
	return nil
}
