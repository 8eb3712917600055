// Package metrics exposes pool activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coxlong/zap/internal/pool"
)

// StateFunc reports the current pool snapshot and whether a pool exists.
type StateFunc func() (pool.State, bool)

// Collector counts pool events and samples pool state on scrape. It
// implements pool.Recorder.
type Collector struct {
	events    *prometheus.CounterVec
	destroyed *prometheus.CounterVec

	registry *prometheus.Registry
}

var _ pool.Recorder = (*Collector)(nil)

// NewCollector registers pool metrics. state may be nil when gauges are not
// wanted.
func NewCollector(state StateFunc) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zap_pool_events_total",
				Help: "Window pool lifecycle events by action",
			},
			[]string{"action"},
		),
		destroyed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zap_pool_destroyed_total",
				Help: "Windows destroyed by the pool, by reason",
			},
			[]string{"reason"},
		),
		registry: registry,
	}
	registry.MustRegister(c.events, c.destroyed)

	if state != nil {
		gauge := func(name, help string, pick func(pool.State) int) prometheus.GaugeFunc {
			return prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{Name: name, Help: help},
				func() float64 {
					st, ok := state()
					if !ok {
						return 0
					}
					return float64(pick(st))
				},
			)
		}
		registry.MustRegister(
			gauge("zap_pool_size", "Windows tracked by the pool", func(s pool.State) int { return s.PoolSize }),
			gauge("zap_pool_active_windows", "Windows currently lent out", func(s pool.State) int { return s.ActiveCount }),
			gauge("zap_pool_idle_windows", "Windows waiting in the idle queue", func(s pool.State) int { return s.IdleCount }),
		)
	}

	return c
}

// Record counts ev.
func (c *Collector) Record(ev pool.Event) {
	c.events.WithLabelValues(string(ev.Action)).Inc()
	if ev.Action == pool.ActionDestroy {
		reason, _ := ev.Details["reason"].(string)
		if reason == "" {
			reason = "unknown"
		}
		c.destroyed.WithLabelValues(reason).Inc()
	}
}

// Handler returns an HTTP handler for the /metrics endpoint
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
