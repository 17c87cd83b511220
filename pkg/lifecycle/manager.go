// Package lifecycle supervises plugin runs inside one process: start, stop,
// reload, and liveness over a set of named instances.
package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/srediag/burnin-plugin/api"
	"github.com/srediag/burnin-plugin/pkg/conn"
	"github.com/srediag/burnin-plugin/pkg/plugin"
)

const (
	// DefaultPoolSize caps how many plugin runs execute at once.
	DefaultPoolSize = 8
	// DefaultLivenessWindow is how long a running plugin may go without a
	// cycle before its liveness check fails.
	DefaultLivenessWindow = 30 * time.Second
)

// Config configures a Manager.
type Config struct {
	// Transport attaches runs to their shared blocks. Required.
	Transport api.Transport
	// Logger receives orchestration events; the zero logger is usable.
	Logger zerolog.Logger
	// Registry receives engine and health metrics when non-nil.
	Registry *prometheus.Registry
	// PoolSize overrides the run pool size; zero means DefaultPoolSize.
	PoolSize int
	// LivenessWindow overrides the stall window; zero means the default.
	LivenessWindow time.Duration
	// Meter and Tracer are handed to every Runner when non-nil.
	Meter  metric.Meter
	Tracer trace.Tracer
}

// entry tracks one launched run. err is written before done closes and read
// only after.
type entry struct {
	runner *plugin.Runner
	done   chan struct{}
	err    error
}

// Manager runs plugins on a bounded worker pool and answers for their
// health. Instance names are unique while a run is tracked; a name frees up
// when its run is stopped.
type Manager struct {
	transport api.Transport
	log       zerolog.Logger
	baseLog   zerolog.Logger
	plugins   cmap.ConcurrentMap[string, *entry]
	pool      *ants.Pool
	health    healthcheck.Handler
	metrics   *plugin.Metrics
	window    time.Duration
	meter     metric.Meter
	tracer    trace.Tracer
}

var (
	_ api.Lifecycle = (*Manager)(nil)
	_ api.Health    = (*Manager)(nil)
)

// NewManager builds a Manager. The pool rejects runs beyond PoolSize rather
// than queueing them.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultPoolSize
	}
	if cfg.LivenessWindow <= 0 {
		cfg.LivenessWindow = DefaultLivenessWindow
	}
	pool, err := ants.NewPool(cfg.PoolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("worker pool: %w", err)
	}
	var health healthcheck.Handler
	var reg prometheus.Registerer
	if cfg.Registry != nil {
		health = healthcheck.NewMetricsHandler(cfg.Registry, "burnin")
		reg = cfg.Registry
	} else {
		health = healthcheck.NewHandler()
	}
	m := &Manager{
		transport: cfg.Transport,
		log:       cfg.Logger.With().Str("component", "lifecycle").Logger(),
		baseLog:   cfg.Logger,
		plugins:   cmap.New[*entry](),
		pool:      pool,
		health:    health,
		metrics:   plugin.NewMetrics(reg),
		window:    cfg.LivenessWindow,
		meter:     cfg.Meter,
		tracer:    cfg.Tracer,
	}
	m.health.AddLivenessCheck("plugins", m.checkPlugins)
	return m, nil
}

// StartPlugin launches spec under the given instance name. The run inherits
// ctx; cancelling it ends the run. Starting a name that is already tracked
// fails.
func (m *Manager) StartPlugin(ctx context.Context, name string, spec api.PluginSpec) error {
	if spec.Plugin == nil {
		return fmt.Errorf("start %s: nil plugin", name)
	}
	if spec.ShmName == "" {
		return fmt.Errorf("start %s: no block name", name)
	}
	c := conn.New(conn.Config{
		Transport: m.transport,
		Timeout:   spec.ConnectTimeout,
		Logger:    m.baseLog,
	})
	r := plugin.NewRunner(spec.Plugin, plugin.Config{
		Conn:      c,
		Logger:    m.baseLog,
		DelayUnit: spec.DelayUnit,
		Metrics:   m.metrics,
		Meter:     m.meter,
		Tracer:    m.tracer,
	})
	e := &entry{runner: r, done: make(chan struct{})}
	if !m.plugins.SetIfAbsent(name, e) {
		return fmt.Errorf("start %s: already running", name)
	}
	run := func() {
		defer close(e.done)
		if err := r.Run(ctx, spec.ShmName); err != nil {
			e.err = err
			m.log.Error().Err(err).Str("instance", name).Msg("run failed")
		}
	}
	if err := m.pool.Submit(run); err != nil {
		m.plugins.Remove(name)
		return fmt.Errorf("start %s: %w", name, err)
	}
	m.log.Info().Str("instance", name).Str("shm", spec.ShmName).Msg("started")
	return nil
}

// StopPlugin asks the named run to exit and waits for its cleanup, bounded
// by ctx. The name frees up once the run has drained.
func (m *Manager) StopPlugin(ctx context.Context, name string) error {
	e, ok := m.plugins.Get(name)
	if !ok {
		return fmt.Errorf("stop %s: not running", name)
	}
	e.runner.Stop()
	select {
	case <-e.done:
	case <-ctx.Done():
		return fmt.Errorf("stop %s: %w", name, ctx.Err())
	}
	m.plugins.Remove(name)
	m.log.Info().Str("instance", name).Msg("stopped")
	return nil
}

// ReloadPlugin replaces the named run with a fresh one. A name that is not
// tracked is simply started.
func (m *Manager) ReloadPlugin(ctx context.Context, name string, spec api.PluginSpec) error {
	if _, ok := m.plugins.Get(name); ok {
		if err := m.StopPlugin(ctx, name); err != nil {
			return err
		}
	}
	return m.StartPlugin(ctx, name, spec)
}

// Heartbeat returns the last cycle start of the named run.
func (m *Manager) Heartbeat(name string) (time.Time, error) {
	e, ok := m.plugins.Get(name)
	if !ok {
		return time.Time{}, fmt.Errorf("heartbeat %s: not running", name)
	}
	return e.runner.LastBeat(), nil
}

// LivenessCheck fails when the named run exited, exited with an error, or
// has not started a cycle inside the liveness window.
func (m *Manager) LivenessCheck(name string) error {
	e, ok := m.plugins.Get(name)
	if !ok {
		return fmt.Errorf("%s: not running", name)
	}
	select {
	case <-e.done:
		if e.err != nil {
			return fmt.Errorf("%s: exited: %w", name, e.err)
		}
		return fmt.Errorf("%s: exited", name)
	default:
	}
	if e.runner.State() == plugin.StateRunning {
		if stale := time.Since(e.runner.LastBeat()); stale > m.window {
			return fmt.Errorf("%s: no cycle for %s", name, stale.Round(time.Second))
		}
	}
	return nil
}

func (m *Manager) checkPlugins() error {
	for t := range m.plugins.IterBuffered() {
		if err := m.LivenessCheck(t.Key); err != nil {
			return err
		}
	}
	return nil
}

// Health returns the handler serving the /live and /ready probes.
func (m *Manager) Health() http.Handler { return m.health }

// Names lists the currently tracked instance names.
func (m *Manager) Names() []string { return m.plugins.Keys() }

// Close stops every tracked run and releases the pool.
func (m *Manager) Close(ctx context.Context) error {
	var firstErr error
	for t := range m.plugins.IterBuffered() {
		if err := m.StopPlugin(ctx, t.Key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.pool.Release()
	return firstErr
}
