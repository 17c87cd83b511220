// Package host implements the supervising side of the protocol. A Host owns
// the shared block: it creates or opens it, arms the run inputs, and reads
// the plugin's output back as snapshots and events.
package host

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/srediag/burnin-plugin/api"
	"github.com/srediag/burnin-plugin/pkg/record"
)

// Config configures a Host.
type Config struct {
	// Transport creates, opens and maps blocks. Required.
	Transport api.Allocator
	// Logger receives host events; the zero logger is usable.
	Logger zerolog.Logger
}

// Host is one attached block. Input writes and output reads may run from
// different goroutines; each field has a single writer per the protocol, so
// no further locking is applied.
type Host struct {
	transport api.Allocator
	log       zerolog.Logger
	name      string
	handle    api.Handle
	mem       []byte
	rec       *record.Record
	itf       *record.Accessor
	created   bool
	closed    bool
}

// Create allocates a fresh block under the given name and attaches to it.
// The name must carry the protocol prefix; the block is removed again on
// Close.
func Create(cfg Config, name string) (*Host, error) {
	return attach(cfg, name, true)
}

// Open attaches to a block some other process created. Close leaves the
// block in place.
func Open(cfg Config, name string) (*Host, error) {
	return attach(cfg, name, false)
}

func attach(cfg Config, name string, create bool) (*Host, error) {
	if !strings.HasPrefix(name, record.NamePrefix) {
		return nil, fmt.Errorf("host: name %q must start with %q", name, record.NamePrefix)
	}
	var (
		handle api.Handle
		err    error
	)
	if create {
		handle, err = cfg.Transport.Create(name, record.Size)
	} else {
		handle, err = cfg.Transport.Open(name)
	}
	if err != nil {
		return nil, fmt.Errorf("host: attach %s: %w", name, err)
	}

	release := func() {
		_ = cfg.Transport.Close(handle)
		if create {
			_ = cfg.Transport.Unlink(name)
		}
	}
	mem, err := cfg.Transport.Map(handle, record.Size)
	if err != nil {
		release()
		return nil, fmt.Errorf("host: map %s: %w", name, err)
	}
	rec, err := record.NewRecord(mem)
	if err != nil {
		_ = cfg.Transport.Unmap(mem)
		release()
		return nil, fmt.Errorf("host: %s: %w", name, err)
	}
	itf, err := record.NewAccessor(rec)
	if err != nil {
		_ = cfg.Transport.Unmap(mem)
		release()
		return nil, fmt.Errorf("host: %s: %w", name, err)
	}

	h := &Host{
		transport: cfg.Transport,
		log:       cfg.Logger.With().Str("component", "host").Str("shm", name).Logger(),
		name:      name,
		handle:    handle,
		mem:       mem,
		rec:       rec,
		itf:       itf,
		created:   create,
	}
	h.log.Info().Bool("created", create).Msg("attached")
	return h, nil
}

// Name returns the block name, usable as the plugin's argv argument.
func (h *Host) Name() string { return h.name }

// SetTestRunning arms or disarms the run input.
func (h *Host) SetTestRunning(v bool) { h.rec.SetTestRunning(v) }

// TestRunning reads the run input back.
func (h *Host) TestRunning() bool { return h.rec.TestRunning() }

// SetDutyCycle writes the pacing input, 0 to 100.
func (h *Host) SetDutyCycle(pct uint32) error {
	if pct > 100 {
		return &record.ValidationError{Field: "duty_cycle", Reason: "must be 0 to 100"}
	}
	h.rec.SetDutyCycle(pct)
	return nil
}

// DutyCycle reads the pacing input back.
func (h *Host) DutyCycle() uint32 { return h.rec.DutyCycle() }

// Close detaches from the block and, when this Host created it, removes it.
// Close is idempotent; the first error wins but every release step runs.
func (h *Host) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	var firstErr error
	if err := h.transport.Unmap(h.mem); err != nil {
		firstErr = fmt.Errorf("host: unmap %s: %w", h.name, err)
	}
	if err := h.transport.Close(h.handle); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("host: close %s: %w", h.name, err)
	}
	if h.created {
		if err := h.transport.Unlink(h.name); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("host: unlink %s: %w", h.name, err)
		}
	}
	h.rec = nil
	h.itf = nil
	h.mem = nil
	h.log.Info().Msg("detached")
	return firstErr
}
