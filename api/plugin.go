// Package api defines the public contracts of the burn-in plugin SDK.
package api

import (
	"context"

	"github.com/srediag/burnin-plugin/pkg/record"
)

// Plugin is implemented by a concrete burn-in test. The engine calls the
// three phase methods once per cycle, in write, read, verify order; a non-nil
// error fails the phase and ends the run. The remaining methods are hooks
// called around the loop; embed Base to pick up no-op defaults.
//
// Every method runs on the engine goroutine. A slow phase blocks the whole
// loop; the host's duty cycle input is the only pacing control.
type Plugin interface {
	// Name labels the plugin in the host display and in logs.
	Name() string

	ExecuteWritePhase(ctx context.Context, itf *record.Accessor) error
	ExecuteReadPhase(ctx context.Context, itf *record.Accessor) error
	ExecuteVerifyPhase(ctx context.Context, itf *record.Accessor) error

	// OnStart runs once after the connection is established, before the
	// first cycle. A non-nil error aborts the run.
	OnStart(itf *record.Accessor) error
	// OnStop runs once during cleanup, before the block is released.
	OnStop(itf *record.Accessor)
	// OnCycleStart runs before the write phase of every cycle.
	OnCycleStart(itf *record.Accessor, cycle uint32)
	// OnCycleEnd runs after a cycle whose three phases all succeeded.
	OnCycleEnd(itf *record.Accessor, cycle uint32)
	// OnError runs after a phase failure has been written to the block.
	OnError(err error)
	// OnTestEnd runs exactly once when the loop exits, before cleanup.
	OnTestEnd(itf *record.Accessor)
}

// Base provides no-op hooks. Embedding it leaves Name and the three phase
// methods as the plugin author's job.
type Base struct{}

func (Base) OnStart(*record.Accessor) error { return nil }

func (Base) OnStop(*record.Accessor) {}

func (Base) OnCycleStart(*record.Accessor, uint32) {}

func (Base) OnCycleEnd(*record.Accessor, uint32) {}

func (Base) OnError(error) {}

func (Base) OnTestEnd(*record.Accessor) {}
