// Package metrics exposes session counters through Prometheus. The
// collectors are registered on a private registry so embedding hosts do
// not collide with the default one.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the session collectors.
type Metrics struct {
	registry *prometheus.Registry

	InstallsTotal  *prometheus.CounterVec
	ReloadsTotal   prometheus.Counter
	ReloadFailures prometheus.Counter
	SessionUp      prometheus.Gauge

	server *http.Server
	logger *slog.Logger
}

// New creates and registers the session collectors.
func New(logger *slog.Logger) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		InstallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "extrun_plugin_installs_total",
			Help: "Number of plugin installs performed, by strategy.",
		}, []string{"strategy"}),
		ReloadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "extrun_plugin_reloads_total",
			Help: "Number of plugin reload attempts.",
		}),
		ReloadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "extrun_plugin_reload_failures_total",
			Help: "Number of plugin reload attempts that failed.",
		}),
		SessionUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "extrun_session_up",
			Help: "1 while a development session is running.",
		}),
		logger: logger,
	}

	m.registry.MustRegister(m.InstallsTotal, m.ReloadsTotal, m.ReloadFailures, m.SessionUp)
	return m
}

// Serve starts the debug metrics listener on addr. Non-fatal on failure;
// the session runs fine without metrics.
func (m *Metrics) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	m.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Warn("Metrics listener failed", "addr", addr, "error", err)
		}
	}()
	m.logger.Info("Metrics listener started", "addr", addr)
}

// Close stops the metrics listener if one was started.
func (m *Metrics) Close() {
	if m.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = m.server.Shutdown(ctx)
}
