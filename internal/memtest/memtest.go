// Package memtest is the built in demonstration plugin. Each cycle fills a
// buffer with a rolling pattern, reads it back, and verifies every byte.
// Process and host memory telemetry go out through the user display slots.
package memtest

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/srediag/burnin-plugin/api"
	"github.com/srediag/burnin-plugin/pkg/record"
)

// DefaultBufferMB sizes the pattern buffer when none is configured.
const DefaultBufferMB = 16

// Config configures the test.
type Config struct {
	// BufferMB sizes the pattern buffer; zero means DefaultBufferMB.
	BufferMB int
	// Logger receives test events; the zero logger is usable.
	Logger zerolog.Logger
}

// Test is a memory pattern burn-in test.
type Test struct {
	api.Base

	log  zerolog.Logger
	size int
	buf  []byte
	seed byte
	// sum keeps the read pass honest; the value itself is never checked.
	sum  byte
	proc *process.Process
}

var _ api.Plugin = (*Test)(nil)

// New builds the test. The buffer is allocated at start, not here.
func New(cfg Config) *Test {
	if cfg.BufferMB <= 0 {
		cfg.BufferMB = DefaultBufferMB
	}
	return &Test{
		log:  cfg.Logger.With().Str("component", "memtest").Logger(),
		size: cfg.BufferMB << 20,
	}
}

func (t *Test) Name() string { return "Memory Pattern Test" }

func (t *Test) OnStart(itf *record.Accessor) error {
	if err := itf.SetStatus("Allocating"); err != nil {
		return err
	}
	if err := itf.SetStatusCode(record.StatusAllocating); err != nil {
		return err
	}
	t.buf = make([]byte, t.size)
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		t.log.Warn().Err(err).Msg("process telemetry unavailable")
	} else {
		t.proc = proc
	}
	if err := itf.SetUserField(1, "Process RSS (MB)", "-", true); err != nil {
		return err
	}
	if err := itf.SetUserField(2, "Host mem used (%)", "-", true); err != nil {
		return err
	}
	t.log.Info().Int("buffer_bytes", t.size).Msg("buffer allocated")
	return nil
}

func (t *Test) ExecuteWritePhase(_ context.Context, itf *record.Accessor) error {
	if err := itf.SetStatus("Writing"); err != nil {
		return err
	}
	if err := itf.SetStatusCode(record.StatusWriting); err != nil {
		return err
	}
	t.seed++
	for i := range t.buf {
		t.buf[i] = t.seed ^ byte(i)
	}
	itf.IncrementMetrics(int64(t.size>>20), 0, 0, 0)
	return nil
}

func (t *Test) ExecuteReadPhase(_ context.Context, itf *record.Accessor) error {
	if err := itf.SetStatus("Reading"); err != nil {
		return err
	}
	if err := itf.SetStatusCode(record.StatusReading); err != nil {
		return err
	}
	var sum byte
	for _, b := range t.buf {
		sum ^= b
	}
	t.sum = sum
	itf.IncrementMetrics(0, int64(t.size>>20), 0, 0)
	return nil
}

func (t *Test) ExecuteVerifyPhase(_ context.Context, itf *record.Accessor) error {
	if err := itf.SetStatus("Verifying"); err != nil {
		return err
	}
	if err := itf.SetStatusCode(record.StatusVerifying); err != nil {
		return err
	}
	for i, b := range t.buf {
		if want := t.seed ^ byte(i); b != want {
			return fmt.Errorf("pattern mismatch at byte %d: have %#02x, want %#02x", i, b, want)
		}
	}
	itf.IncrementMetrics(0, 0, int64(t.size>>20), 0)
	return nil
}

func (t *Test) OnCycleEnd(itf *record.Accessor, cycle uint32) {
	if err := itf.SetStatus(fmt.Sprintf("Cycle %d", cycle+1)); err != nil {
		t.log.Warn().Err(err).Msg("status not written")
	}
	if err := itf.SetStatusCode(record.StatusWaiting); err != nil {
		t.log.Warn().Err(err).Msg("status code not written")
	}
	t.publishTelemetry(itf)
}

func (t *Test) OnError(err error) {
	t.log.Error().Err(err).Msg("phase failed")
}

func (t *Test) OnTestEnd(itf *record.Accessor) {
	if err := itf.SetStatus("Completed"); err != nil {
		t.log.Warn().Err(err).Msg("status not written")
	}
	if err := itf.SetStatusCode(record.StatusCompleted); err != nil {
		t.log.Warn().Err(err).Msg("status code not written")
	}
	t.buf = nil
	t.log.Info().Msg("test ended")
}

func (t *Test) publishTelemetry(itf *record.Accessor) {
	if t.proc != nil {
		if mi, err := t.proc.MemoryInfo(); err == nil {
			v := fmt.Sprintf("%d", mi.RSS>>20)
			if err := itf.SetUserField(1, "Process RSS (MB)", v, true); err != nil {
				t.log.Warn().Err(err).Msg("rss not published")
			}
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		v := fmt.Sprintf("%.1f", vm.UsedPercent)
		if err := itf.SetUserField(2, "Host mem used (%)", v, true); err != nil {
			t.log.Warn().Err(err).Msg("host memory not published")
		}
	}
}
