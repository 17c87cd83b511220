// Package plugin drives a burn-in test against a host-created shared block.
//
// A Runner owns one connection and one api.Plugin for one run. It attaches,
// fires the startup hook, then repeats write, read, verify cycles until the
// host lowers its run input, the context ends, or Stop is called. Phases are
// never interrupted; all stops are observed between phases. Teardown always
// runs once the block was attached, whatever ended the loop.
package plugin

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/srediag/burnin-plugin/api"
	"github.com/srediag/burnin-plugin/pkg/conn"
	"github.com/srediag/burnin-plugin/pkg/record"
)

// DefaultDelayUnit is the per-point pacing sleep applied between cycles.
// A duty cycle of n sleeps (100-n) units after each completed cycle.
const DefaultDelayUnit = 20 * time.Millisecond

// Config configures a Runner.
type Config struct {
	// Conn is the connection the run attaches through. Required.
	Conn *conn.Conn
	// Logger receives engine events; the zero logger is usable.
	Logger zerolog.Logger
	// DelayUnit overrides the pacing unit; zero means DefaultDelayUnit.
	DelayUnit time.Duration
	// Metrics receives engine counters when non-nil.
	Metrics *Metrics
	// Tracer wraps each phase in a span when non-nil.
	Tracer trace.Tracer
	// Meter adds an OTel cycle counter when non-nil.
	Meter metric.Meter
}

// Runner executes one plugin run. It is single shot: once a run has started
// the Runner cannot be reused. Stop may be called from any goroutine; all
// other methods belong to the goroutine that calls Run.
type Runner struct {
	plugin api.Plugin
	conn   *conn.Conn
	log    zerolog.Logger
	delay  time.Duration
	met    *Metrics
	tracer trace.Tracer

	cycleCount metric.Int64Counter

	state    atomic.Uint32
	stopCh   chan struct{}
	stopOnce sync.Once
	beat     atomic.Int64

	itf *record.Accessor
}

// NewRunner builds a Runner for one plugin.
func NewRunner(p api.Plugin, cfg Config) *Runner {
	if cfg.DelayUnit <= 0 {
		cfg.DelayUnit = DefaultDelayUnit
	}
	r := &Runner{
		plugin: p,
		conn:   cfg.Conn,
		log: cfg.Logger.With().
			Str("component", "engine").
			Str("plugin", p.Name()).
			Logger(),
		delay:  cfg.DelayUnit,
		met:    cfg.Metrics,
		tracer: cfg.Tracer,
		stopCh: make(chan struct{}),
	}
	if cfg.Meter != nil {
		c, err := cfg.Meter.Int64Counter("burnin.engine.cycles")
		if err != nil {
			r.log.Warn().Err(err).Msg("cycle counter not created")
		} else {
			r.cycleCount = c
		}
	}
	r.beat.Store(time.Now().UnixNano())
	return r
}

// State returns the current run state.
func (r *Runner) State() State { return State(r.state.Load()) }

// LastBeat returns the time of the last cycle start, for staleness checks.
func (r *Runner) LastBeat() time.Time { return time.Unix(0, r.beat.Load()) }

// Stop asks the loop to exit. It never interrupts a phase in flight; the
// loop observes the stop at the next phase boundary or pacing sleep. Safe to
// call from any goroutine, any number of times, before or after the run.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// Run connects to the named block and drives the plugin until the run ends.
// The returned error is the failure that ended the run, nil for a clean
// stop. A connect failure leaves the Runner idle so the caller may retry; a
// started run is never retryable.
func (r *Runner) Run(ctx context.Context, name string) error {
	if !r.state.CompareAndSwap(uint32(StateIdle), uint32(StateConnecting)) {
		return &PluginError{Op: "run", Err: errAlreadyStarted}
	}
	if err := r.connect(name); err != nil {
		r.state.Store(uint32(StateIdle))
		return err
	}
	err := r.execute(ctx)
	r.cleanup()
	return err
}

func (r *Runner) connect(name string) error {
	if err := r.conn.Connect(name); err != nil {
		return err
	}
	itf, err := r.conn.Interface()
	if err != nil {
		r.conn.Disconnect()
		return err
	}
	r.itf = itf
	if err := itf.SetWindowTitle(clip(r.plugin.Name(), record.TextWidth)); err != nil {
		r.log.Warn().Err(err).Msg("window title not written")
	}
	return nil
}

// execute runs the startup hook and the loop. The end-of-test hook fires on
// every loop exit, including phase failures and recovered panics, but not
// when startup itself failed.
func (r *Runner) execute(ctx context.Context) (err error) {
	r.setState(StateReady)
	started := false
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Interface("panic", p).Msg("plugin panicked")
			err = &PluginError{Op: "run", Err: fmt.Errorf("panic: %v", p)}
		}
		r.setState(StateDraining)
		if started {
			r.safeTestEnd()
		}
	}()
	if serr := r.plugin.OnStart(r.itf); serr != nil {
		return &PluginError{Op: "on_start", Err: serr}
	}
	started = true
	return r.loop(ctx)
}

func (r *Runner) loop(ctx context.Context) error {
	r.setState(StateRunning)
	r.met.setRunning(r.plugin.Name(), true)
	r.log.Info().Msg("loop started")
	for r.alive(ctx) {
		cycle := r.itf.Cycle()
		r.beat.Store(time.Now().UnixNano())
		r.plugin.OnCycleStart(r.itf, cycle)
		ok, err := r.phases(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		r.itf.SetCycle(cycle + 1)
		r.plugin.OnCycleEnd(r.itf, cycle)
		r.met.cycleDone(r.plugin.Name())
		if r.cycleCount != nil {
			r.cycleCount.Add(ctx, 1)
		}
		r.pace(ctx)
	}
	return nil
}

// phases runs the three work phases of one cycle. It re-checks for a stop
// before each phase; a stop observed mid-cycle returns false with no error
// and the cycle does not count. A phase failure is published to the block
// before it is returned.
func (r *Runner) phases(ctx context.Context) (bool, error) {
	for _, ph := range []Phase{PhaseWrite, PhaseRead, PhaseVerify} {
		if !r.alive(ctx) {
			return false, nil
		}
		if err := r.runPhase(ctx, ph); err != nil {
			perr := &PhaseError{Phase: ph, Err: err}
			r.failCycle(perr)
			return false, perr
		}
	}
	return true, nil
}

func (r *Runner) runPhase(ctx context.Context, ph Phase) error {
	if r.tracer != nil {
		var span trace.Span
		ctx, span = r.tracer.Start(ctx, "engine."+ph.String())
		defer span.End()
	}
	start := time.Now()
	err := r.callPhase(ctx, ph)
	r.met.observePhase(r.plugin.Name(), ph, time.Since(start), err)
	return err
}

func (r *Runner) callPhase(ctx context.Context, ph Phase) error {
	switch ph {
	case PhaseWrite:
		return r.plugin.ExecuteWritePhase(ctx, r.itf)
	case PhaseRead:
		return r.plugin.ExecuteReadPhase(ctx, r.itf)
	default:
		return r.plugin.ExecuteVerifyPhase(ctx, r.itf)
	}
}

func (r *Runner) failCycle(perr *PhaseError) {
	long := clip(perr.Error(), record.ErrorLongWidth)
	if err := r.itf.SetError(perr.Message(), record.SeverityOf(perr), long); err != nil {
		r.log.Warn().Err(err).Msg("failure not published")
	}
	r.plugin.OnError(perr)
	r.log.Error().Err(perr.Err).Stringer("phase", perr.Phase).Msg("phase failed")
}

// pace idles out the rest of the cycle according to the host's duty cycle
// input. Full duty skips the sleep entirely; a stop or context end cuts the
// sleep short.
func (r *Runner) pace(ctx context.Context) {
	duty := r.itf.DutyCycle()
	if duty >= 100 {
		return
	}
	t := time.NewTimer(time.Duration(100-duty) * r.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-r.stopCh:
	case <-t.C:
	}
}

func (r *Runner) alive(ctx context.Context) bool {
	select {
	case <-r.stopCh:
		return false
	default:
	}
	return ctx.Err() == nil && r.itf.TestRunning()
}

// cleanup publishes the closing handshake, fires the stop hook while the
// block is still mapped, then releases the connection.
func (r *Runner) cleanup() {
	if err := r.itf.SetStatusCode(record.StatusCleanup); err != nil {
		r.log.Warn().Err(err).Msg("cleanup status not written")
	}
	r.itf.SetTestStopped(true)
	r.safeOnStop()
	r.conn.Disconnect()
	r.itf = nil
	r.setState(StateCleaned)
	r.met.setRunning(r.plugin.Name(), false)
	r.log.Info().Msg("run finished")
}

func (r *Runner) safeTestEnd() {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Interface("panic", p).Msg("test end hook panicked")
		}
	}()
	r.plugin.OnTestEnd(r.itf)
}

func (r *Runner) safeOnStop() {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Interface("panic", p).Msg("stop hook panicked")
		}
	}()
	r.plugin.OnStop(r.itf)
}

func (r *Runner) setState(s State) { r.state.Store(uint32(s)) }

func clip(s string, width int) string {
	if len(s) >= width {
		return s[:width-1]
	}
	return s
}
