package record

import "fmt"

// Accessor is the validating layer a plugin uses over its half of the block.
// Setters check their input before touching any byte, so a rejected call
// leaves the block exactly as it was. Setters that carry a notification flag
// write the value first and raise the flag last.
//
// An Accessor is not safe for concurrent use within one process; the engine
// owns it for the duration of a run.
type Accessor struct {
	rec *Record
}

// NewAccessor wraps a Record view.
func NewAccessor(rec *Record) (*Accessor, error) {
	if rec == nil {
		return nil, &InterfaceError{Op: "accessor", Err: errNilRecord}
	}
	return &Accessor{rec: rec}, nil
}

// TestRunning reports the host's run input. The loop must exit when it drops.
func (a *Accessor) TestRunning() bool { return a.rec.TestRunning() }

// DutyCycle reports the host's pacing input, 0 to 100.
func (a *Accessor) DutyCycle() uint32 { return a.rec.DutyCycle() }

// Version returns the advertised interface version.
func (a *Accessor) Version() uint32 { return a.rec.Version() }

// SetVersion advertises the interface version the plugin speaks.
func (a *Accessor) SetVersion(v uint32) { a.rec.SetVersion(v) }

// WindowTitle returns the plugin's display name.
func (a *Accessor) WindowTitle() string { return a.rec.WindowTitle() }

// SetWindowTitle names the plugin in the host display. No notification flag.
func (a *Accessor) SetWindowTitle(s string) error {
	if len(s) >= TextWidth {
		return errTooLong("window_title", TextWidth)
	}
	a.rec.SetWindowTitle(s)
	return nil
}

// Cycle returns the cycle counter.
func (a *Accessor) Cycle() uint32 { return a.rec.Cycle() }

// SetCycle publishes the cycle counter. The counter never decreases within a
// run; keeping it that way is the caller's contract.
func (a *Accessor) SetCycle(v uint32) { a.rec.SetCycle(v) }

// Status returns the short status line.
func (a *Accessor) Status() string { return a.rec.StatusText() }

// SetStatus publishes a short status line and raises the new-status flag.
func (a *Accessor) SetStatus(s string) error {
	if len(s) >= TextWidth {
		return errTooLong("status", TextWidth)
	}
	a.rec.SetStatusText(s)
	a.rec.SetNewStatus(true)
	return nil
}

// StatusCode returns the coded state.
func (a *Accessor) StatusCode() StatusCode { return a.rec.StatusCode() }

// SetStatusCode publishes the coded state and raises the new-status flag.
func (a *Accessor) SetStatusCode(c StatusCode) error {
	if !c.Valid() {
		return &ValidationError{
			Field:  "status_code",
			Reason: fmt.Sprintf("unknown code %d", uint32(c)),
		}
	}
	a.rec.SetStatusCode(c)
	a.rec.SetNewStatus(true)
	return nil
}

// ErrorMessage returns the short error text.
func (a *Accessor) ErrorMessage() string { return a.rec.ErrorText() }

// ErrorCount returns the accumulated error count.
func (a *Accessor) ErrorCount() uint32 { return a.rec.ErrorCount() }

// ErrorSeverity returns the severity of the last reported error.
func (a *Accessor) ErrorSeverity() Severity { return a.rec.ErrorSeverity() }

// ErrorLong returns the long error text.
func (a *Accessor) ErrorLong() string { return a.rec.ErrorLong() }

// SetErrorMessage writes the short error text and raises the new-error flag.
// The error count is untouched; use SetError to report a new failure.
func (a *Accessor) SetErrorMessage(s string) error {
	if len(s) >= ErrorWidth {
		return errTooLong("error", ErrorWidth)
	}
	a.rec.SetErrorText(s)
	a.rec.SetNewError(true)
	return nil
}

// SetErrorSeverity grades the current error and raises the new-error flag.
func (a *Accessor) SetErrorSeverity(sev Severity) error {
	if !sev.Valid() {
		return &ValidationError{
			Field:  "error_severity",
			Reason: fmt.Sprintf("unknown severity %d", uint32(sev)),
		}
	}
	a.rec.SetErrorSeverity(sev)
	a.rec.SetNewError(true)
	return nil
}

// SetErrorLong writes the long error text and raises the new-error flag. The
// field exists since interface version 4; a peer at an older version never
// reads it.
func (a *Accessor) SetErrorLong(s string) error {
	if len(s) >= ErrorLongWidth {
		return errTooLong("error_long", ErrorLongWidth)
	}
	a.rec.SetErrorLong(s)
	a.rec.SetNewError(true)
	return nil
}

// SetError reports a failure in one call: short message, severity, error
// count, then the long form when long is non-empty. All inputs are checked
// before the first byte is written; the new-error flag is raised after every
// value has landed.
func (a *Accessor) SetError(msg string, sev Severity, long string) error {
	if len(msg) >= ErrorWidth {
		return errTooLong("error", ErrorWidth)
	}
	if !sev.Valid() {
		return &ValidationError{
			Field:  "error_severity",
			Reason: fmt.Sprintf("unknown severity %d", uint32(sev)),
		}
	}
	if long != "" && len(long) >= ErrorLongWidth {
		return errTooLong("error_long", ErrorLongWidth)
	}
	a.rec.SetErrorText(msg)
	a.rec.SetErrorSeverity(sev)
	a.rec.SetErrorCount(a.rec.ErrorCount() + 1)
	if long != "" {
		a.rec.SetErrorLong(long)
	}
	a.rec.SetNewError(true)
	return nil
}

// WriteOps returns the write operation counter.
func (a *Accessor) WriteOps() int64 { return a.rec.WriteOps() }

// SetWriteOps replaces the write operation counter. Negative values are
// rejected.
func (a *Accessor) SetWriteOps(v int64) error {
	if v < 0 {
		return errNegative("write_ops")
	}
	a.rec.SetWriteOps(v)
	return nil
}

// ReadOps returns the read operation counter.
func (a *Accessor) ReadOps() int64 { return a.rec.ReadOps() }

// SetReadOps replaces the read operation counter. Negative values are
// rejected.
func (a *Accessor) SetReadOps(v int64) error {
	if v < 0 {
		return errNegative("read_ops")
	}
	a.rec.SetReadOps(v)
	return nil
}

// VerifyOps returns the verify operation counter.
func (a *Accessor) VerifyOps() int64 { return a.rec.VerifyOps() }

// SetVerifyOps replaces the verify operation counter. Negative values are
// rejected.
func (a *Accessor) SetVerifyOps(v int64) error {
	if v < 0 {
		return errNegative("verify_ops")
	}
	a.rec.SetVerifyOps(v)
	return nil
}

// IncrementMetrics adds the positive deltas to the operation and error
// counters. Deltas at or below zero are ignored rather than rejected, so a
// phase can report only the counters it advanced.
func (a *Accessor) IncrementMetrics(write, read, verify, errCount int64) {
	if write > 0 {
		a.rec.SetWriteOps(a.rec.WriteOps() + write)
	}
	if read > 0 {
		a.rec.SetReadOps(a.rec.ReadOps() + read)
	}
	if verify > 0 {
		a.rec.SetVerifyOps(a.rec.VerifyOps() + verify)
	}
	if errCount > 0 {
		a.rec.SetErrorCount(a.rec.ErrorCount() + uint32(errCount))
	}
}

// SetWriteLabel names the write counter in the host display.
func (a *Accessor) SetWriteLabel(s string) error {
	if len(s) >= TextWidth {
		return errTooLong("write_label", TextWidth)
	}
	a.rec.SetWriteLabel(s)
	return nil
}

// SetReadLabel names the read counter in the host display.
func (a *Accessor) SetReadLabel(s string) error {
	if len(s) >= TextWidth {
		return errTooLong("read_label", TextWidth)
	}
	a.rec.SetReadLabel(s)
	return nil
}

// SetVerifyLabel names the verify counter in the host display.
func (a *Accessor) SetVerifyLabel(s string) error {
	if len(s) >= TextWidth {
		return errTooLong("verify_label", TextWidth)
	}
	a.rec.SetVerifyLabel(s)
	return nil
}

// UserField returns one of the six user display slots, id 1 through 6.
func (a *Accessor) UserField(id int) (UserField, error) {
	if id < 1 || id > UserSlots {
		return UserField{}, errBadSlot(id)
	}
	return a.rec.userField(id - 1), nil
}

// SetUserField fills a user display slot, id 1 through 6. Slots 1 and 2
// carry a new-value flag that is raised after the write; slots 3 through 6
// predate the flags and have none.
func (a *Accessor) SetUserField(id int, label, value string, enabled bool) error {
	if id < 1 || id > UserSlots {
		return errBadSlot(id)
	}
	if len(label) >= TextWidth {
		return errTooLong("user_label", TextWidth)
	}
	if len(value) >= TextWidth {
		return errTooLong("user_value", TextWidth)
	}
	a.rec.putUserField(id-1, UserField{Label: label, Value: value, Enabled: enabled})
	a.rec.raiseUserFlag(id - 1)
	return nil
}

// DisplayTextSet reports whether the descriptive fields are flagged as
// populated.
func (a *Accessor) DisplayTextSet() bool { return a.rec.DisplayTextSet() }

// SetDisplayTextSet tells the host the descriptive fields are populated.
func (a *Accessor) SetDisplayTextSet(v bool) { a.rec.SetDisplayTextSet(v) }

// TestStopped reports whether the plugin has flagged the end of its run.
func (a *Accessor) TestStopped() bool { return a.rec.TestStopped() }

// SetTestStopped reports that the plugin finished its run.
func (a *Accessor) SetTestStopped(v bool) { a.rec.SetTestStopped(v) }

// ResetFlags lowers the four new-value notification flags and nothing else;
// display-text-set and test-stopped keep their values.
func (a *Accessor) ResetFlags() {
	a.rec.SetNewError(false)
	a.rec.SetNewStatus(false)
	a.rec.SetNewUser1(false)
	a.rec.SetNewUser2(false)
}

func errBadSlot(id int) error {
	return &ValidationError{
		Field:  "user_field",
		Reason: fmt.Sprintf("slot %d is outside 1..%d", id, UserSlots),
	}
}
