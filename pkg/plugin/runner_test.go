package plugin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/burnin-plugin/api"
	"github.com/srediag/burnin-plugin/pkg/conn"
	"github.com/srediag/burnin-plugin/pkg/record"
)

// fakeTransport maps a caller-owned buffer, standing in for the real shared
// block so tests can play the host side.
type fakeTransport struct {
	buf []byte
}

func (f *fakeTransport) Open(string) (api.Handle, error) { return api.Handle(1), nil }

func (f *fakeTransport) Map(_ api.Handle, size int) ([]byte, error) { return f.buf[:size], nil }

func (f *fakeTransport) Unmap([]byte) error { return nil }

func (f *fakeTransport) Close(api.Handle) error { return nil }

// scriptPlugin counts every callback and fails or panics on cue.
type scriptPlugin struct {
	name string

	startErr  error
	writeErr  error
	readPanic bool

	starts, stops, testEnds int
	writes, reads, verifies int
	cycleStarts, cycleEnds  int
	errs                    []error

	hookCycleStart func(cycle uint32)
	hookCycleEnd   func(cycle uint32)
}

func (p *scriptPlugin) Name() string { return p.name }

func (p *scriptPlugin) ExecuteWritePhase(context.Context, *record.Accessor) error {
	p.writes++
	return p.writeErr
}

func (p *scriptPlugin) ExecuteReadPhase(context.Context, *record.Accessor) error {
	p.reads++
	if p.readPanic {
		panic("corrupted buffer")
	}
	return nil
}

func (p *scriptPlugin) ExecuteVerifyPhase(context.Context, *record.Accessor) error {
	p.verifies++
	return nil
}

func (p *scriptPlugin) OnStart(*record.Accessor) error {
	p.starts++
	return p.startErr
}

func (p *scriptPlugin) OnStop(*record.Accessor) { p.stops++ }

func (p *scriptPlugin) OnCycleStart(_ *record.Accessor, cycle uint32) {
	p.cycleStarts++
	if p.hookCycleStart != nil {
		p.hookCycleStart(cycle)
	}
}

func (p *scriptPlugin) OnCycleEnd(_ *record.Accessor, cycle uint32) {
	p.cycleEnds++
	if p.hookCycleEnd != nil {
		p.hookCycleEnd(cycle)
	}
}

func (p *scriptPlugin) OnError(err error) { p.errs = append(p.errs, err) }

func (p *scriptPlugin) OnTestEnd(*record.Accessor) { p.testEnds++ }

var _ api.Plugin = (*scriptPlugin)(nil)

// harness plays the host: it owns the block, arms the run input and reads
// the plugin's output back.
type harness struct {
	rec  *record.Record
	conn *conn.Conn
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	buf := make([]byte, record.Size)
	rec, err := record.NewRecord(buf)
	require.NoError(t, err)
	rec.SetTestRunning(true)
	rec.SetDutyCycle(100)
	c := conn.New(conn.Config{Transport: &fakeTransport{buf: buf}, Timeout: time.Second})
	return &harness{rec: rec, conn: c}
}

func TestRunSingleCycle(t *testing.T) {
	h := newHarness(t)
	p := &scriptPlugin{name: "memtest"}
	p.hookCycleEnd = func(uint32) { h.rec.SetTestRunning(false) }
	r := NewRunner(p, Config{Conn: h.conn})

	require.NoError(t, r.Run(context.Background(), "BITest_9"))

	assert.Equal(t, 1, p.starts)
	assert.Equal(t, 1, p.cycleStarts)
	assert.Equal(t, 1, p.writes)
	assert.Equal(t, 1, p.reads)
	assert.Equal(t, 1, p.verifies)
	assert.Equal(t, 1, p.cycleEnds)
	assert.Equal(t, 1, p.testEnds)
	assert.Equal(t, 1, p.stops)
	assert.Empty(t, p.errs)

	assert.Equal(t, uint32(1), h.rec.Cycle())
	assert.Equal(t, "memtest", h.rec.WindowTitle())
	assert.Equal(t, record.StatusCleanup, h.rec.StatusCode())
	assert.True(t, h.rec.TestStopped())
	assert.Equal(t, StateCleaned, r.State())
	assert.False(t, h.conn.Connected())
}

func TestWritePhaseFailureEndsRun(t *testing.T) {
	h := newHarness(t)
	p := &scriptPlugin{name: "memtest", writeErr: errors.New("bad sector")}
	r := NewRunner(p, Config{Conn: h.conn})

	err := r.Run(context.Background(), "BITest_9")
	require.Error(t, err)

	var perr *PhaseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, PhaseWrite, perr.Phase)

	assert.Equal(t, 1, p.writes)
	assert.Equal(t, 0, p.reads, "a failed write must skip the rest of the cycle")
	assert.Equal(t, 0, p.verifies)
	assert.Equal(t, 0, p.cycleEnds)
	assert.Equal(t, 1, p.testEnds)
	require.Len(t, p.errs, 1)
	assert.Same(t, perr, p.errs[0])

	assert.Equal(t, uint32(0), h.rec.Cycle(), "a failed cycle must not count")
	assert.Equal(t, uint32(1), h.rec.ErrorCount())
	assert.Equal(t, "Write phase failed", h.rec.ErrorText())
	assert.Equal(t, record.SeverityCritical, h.rec.ErrorSeverity())
	assert.Contains(t, h.rec.ErrorLong(), "bad sector")
	assert.True(t, h.rec.NewError())
	assert.True(t, h.rec.TestStopped())
}

func TestRunIsSingleShot(t *testing.T) {
	h := newHarness(t)
	p := &scriptPlugin{name: "memtest"}
	p.hookCycleEnd = func(uint32) { h.rec.SetTestRunning(false) }
	r := NewRunner(p, Config{Conn: h.conn})

	require.NoError(t, r.Run(context.Background(), "BITest_9"))

	err := r.Run(context.Background(), "BITest_9")
	var perr *PluginError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "run", perr.Op)
	assert.Equal(t, 1, p.starts)
}

func TestStopDuringCycleStartAbortsSilently(t *testing.T) {
	h := newHarness(t)
	p := &scriptPlugin{name: "memtest"}
	r := NewRunner(p, Config{Conn: h.conn})
	p.hookCycleStart = func(uint32) { r.Stop() }

	require.NoError(t, r.Run(context.Background(), "BITest_9"))

	assert.Equal(t, 1, p.cycleStarts)
	assert.Equal(t, 0, p.writes, "a stop before the write phase must skip it")
	assert.Equal(t, 0, p.cycleEnds)
	assert.Equal(t, 1, p.testEnds)
	assert.Equal(t, uint32(0), h.rec.Cycle())
	assert.Empty(t, p.errs)
	assert.True(t, h.rec.TestStopped())
}

func TestPanicInPhaseIsRecovered(t *testing.T) {
	h := newHarness(t)
	p := &scriptPlugin{name: "memtest", readPanic: true}
	r := NewRunner(p, Config{Conn: h.conn})

	err := r.Run(context.Background(), "BITest_9")
	require.Error(t, err)

	var perr *PluginError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Error(), "panic")
	assert.Contains(t, perr.Error(), "corrupted buffer")

	assert.Equal(t, 1, p.reads)
	assert.Equal(t, 0, p.verifies)
	assert.Equal(t, 1, p.testEnds, "the end hook must still fire after a panic")
	assert.Equal(t, 1, p.stops)
	assert.True(t, h.rec.TestStopped())
	assert.Equal(t, StateCleaned, r.State())
	assert.False(t, h.conn.Connected())
}

func TestOnStartFailureSkipsLoop(t *testing.T) {
	h := newHarness(t)
	p := &scriptPlugin{name: "memtest", startErr: errors.New("no memory")}
	r := NewRunner(p, Config{Conn: h.conn})

	err := r.Run(context.Background(), "BITest_9")
	require.Error(t, err)

	var perr *PluginError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "on_start", perr.Op)

	assert.Equal(t, 0, p.cycleStarts)
	assert.Equal(t, 0, p.testEnds, "the end hook must not fire when startup failed")
	assert.Equal(t, 1, p.stops)
	assert.False(t, h.conn.Connected())
	assert.True(t, h.rec.TestStopped())
}

func TestDutyCyclePacesLoop(t *testing.T) {
	h := newHarness(t)
	h.rec.SetDutyCycle(90)
	p := &scriptPlugin{name: "memtest"}
	remaining := 2
	p.hookCycleEnd = func(uint32) {
		remaining--
		if remaining == 0 {
			h.rec.SetTestRunning(false)
		}
	}
	r := NewRunner(p, Config{Conn: h.conn, DelayUnit: 5 * time.Millisecond})

	start := time.Now()
	require.NoError(t, r.Run(context.Background(), "BITest_9"))
	elapsed := time.Since(start)

	assert.Equal(t, 2, p.cycleEnds)
	// Two cycles at duty 90 pace out 10 units of 5ms each.
	assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond)
}

func TestStopCutsPaceShort(t *testing.T) {
	h := newHarness(t)
	h.rec.SetDutyCycle(0)
	p := &scriptPlugin{name: "memtest"}
	r := NewRunner(p, Config{Conn: h.conn})

	time.AfterFunc(50*time.Millisecond, r.Stop)
	start := time.Now()
	require.NoError(t, r.Run(context.Background(), "BITest_9"))
	elapsed := time.Since(start)

	// Duty 0 with the default unit would sleep two full seconds per cycle.
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, 1, p.cycleEnds)
	assert.Equal(t, 1, p.testEnds)
}

func TestContextCancelEndsRun(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	p := &scriptPlugin{name: "memtest"}
	p.hookCycleEnd = func(uint32) { cancel() }
	r := NewRunner(p, Config{Conn: h.conn})

	require.NoError(t, r.Run(ctx, "BITest_9"))
	assert.Equal(t, 1, p.cycleEnds)
	assert.Equal(t, 1, p.testEnds)
	assert.True(t, h.rec.TestStopped())
}

func TestStopBeforeRun(t *testing.T) {
	h := newHarness(t)
	p := &scriptPlugin{name: "memtest"}
	r := NewRunner(p, Config{Conn: h.conn})
	r.Stop()

	require.NoError(t, r.Run(context.Background(), "BITest_9"))
	assert.Equal(t, 0, p.writes)
	assert.Equal(t, 1, p.testEnds)
	assert.Equal(t, StateCleaned, r.State())
}

func TestClipKeepsRoomForTerminator(t *testing.T) {
	long := "A Plugin Name That Goes On And On"
	clipped := clip(long, record.TextWidth)
	assert.Len(t, clipped, record.TextWidth-1)
	assert.Equal(t, long, clip(long, len(long)+1))
}

func TestStateAndPhaseNames(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "cleaned", StateCleaned.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.Equal(t, "Write", PhaseWrite.String())
	assert.Equal(t, "Verify", PhaseVerify.String())
	assert.Equal(t, "unknown", Phase(9).String())
}
