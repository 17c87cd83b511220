package plugin

import (
	"errors"
	"fmt"

	"github.com/srediag/burnin-plugin/pkg/record"
)

var errAlreadyStarted = errors.New("run already started")

// PluginError reports an engine level failure: a refused start, a startup
// hook failure, or a panic escaping plugin code.
type PluginError struct {
	Op  string
	Err error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin %s: %v", e.Op, e.Err)
}

func (e *PluginError) Unwrap() error { return e.Err }

// Severity grades engine failures as critical; they end the run.
func (e *PluginError) Severity() record.Severity { return record.SeverityCritical }

// PhaseError reports a failed work phase.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// Severity grades phase failures as critical; they end the run.
func (e *PhaseError) Severity() record.Severity { return record.SeverityCritical }

// Message returns the short form published to the host display.
func (e *PhaseError) Message() string {
	return fmt.Sprintf("%s phase failed", e.Phase)
}
