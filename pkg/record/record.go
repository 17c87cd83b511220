// Package record defines the fixed-layout block a burn-in test host and an
// external plugin share, and the typed layers over it.
//
// The block has no lock. Field ownership is split by direction: the host
// writes the two input fields, the plugin writes everything else. Multi-field
// updates follow value-then-flag ordering, which narrows but does not close
// the window where a polling peer sees a raised flag before its value; that
// window is part of the wire contract.
//
// Record is the raw view used by both sides. Accessor adds the validation and
// notification rules a plugin must follow.
package record

import (
	"encoding/binary"
	"fmt"
)

// Record is a raw view over one mapped block. It borrows the byte slice and
// never copies it, so the mapping that produced the slice must outlive the
// view. Integer fields sit at unaligned offsets; all access goes through
// encoding/binary rather than pointer casts.
type Record struct {
	b []byte
}

// NewRecord wraps a mapped block of at least Size bytes.
func NewRecord(b []byte) (*Record, error) {
	if len(b) < Size {
		return nil, &InterfaceError{
			Op:  "view",
			Err: fmt.Errorf("block is %d bytes, need %d", len(b), Size),
		}
	}
	return &Record{b: b[:Size]}, nil
}

func (r *Record) u32(off int) uint32 {
	return binary.LittleEndian.Uint32(r.b[off:])
}

func (r *Record) putU32(off int, v uint32) {
	binary.LittleEndian.PutUint32(r.b[off:], v)
}

func (r *Record) i64(off int) int64 {
	return int64(binary.LittleEndian.Uint64(r.b[off:]))
}

func (r *Record) putI64(off int, v int64) {
	binary.LittleEndian.PutUint64(r.b[off:], uint64(v))
}

func (r *Record) flag(off int) bool { return r.b[off] != 0 }

func (r *Record) putFlag(off int, v bool) {
	if v {
		r.b[off] = 1
	} else {
		r.b[off] = 0
	}
}

func (r *Record) text(off, width int) string { return decode(r.b[off : off+width]) }

func (r *Record) putText(off, width int, s string) { Clean(r.b[off:off+width], s) }

// Input fields, host-written. TestRunning is a full word; any nonzero value
// means armed.

func (r *Record) TestRunning() bool { return r.u32(testRunningOff) != 0 }

func (r *Record) SetTestRunning(v bool) { r.putU32(testRunningOff, b32(v)) }

func (r *Record) DutyCycle() uint32 { return r.u32(dutyCycleOff) }

func (r *Record) SetDutyCycle(pct uint32) { r.putU32(dutyCycleOff, pct) }

// Output fields, plugin-written.

func (r *Record) Version() uint32 { return r.u32(versionOff) }

func (r *Record) SetVersion(v uint32) { r.putU32(versionOff, v) }

func (r *Record) WindowTitle() string { return r.text(windowTitleOff, TextWidth) }

func (r *Record) SetWindowTitle(s string) { r.putText(windowTitleOff, TextWidth, s) }

func (r *Record) Cycle() uint32 { return r.u32(cycleOff) }

func (r *Record) SetCycle(v uint32) { r.putU32(cycleOff, v) }

func (r *Record) StatusCode() StatusCode { return StatusCode(r.u32(statusCodeOff)) }

func (r *Record) SetStatusCode(c StatusCode) { r.putU32(statusCodeOff, uint32(c)) }

func (r *Record) StatusText() string { return r.text(statusTextOff, TextWidth) }

func (r *Record) SetStatusText(s string) { r.putText(statusTextOff, TextWidth, s) }

func (r *Record) ErrorCount() uint32 { return r.u32(errorCountOff) }

func (r *Record) SetErrorCount(v uint32) { r.putU32(errorCountOff, v) }

func (r *Record) ErrorText() string { return r.text(errorTextOff, ErrorWidth) }

func (r *Record) SetErrorText(s string) { r.putText(errorTextOff, ErrorWidth, s) }

func (r *Record) ErrorSeverity() Severity { return Severity(r.u32(errorSeverityOff)) }

func (r *Record) SetErrorSeverity(s Severity) { r.putU32(errorSeverityOff, uint32(s)) }

func (r *Record) WriteLabel() string { return r.text(writeLabelOff, TextWidth) }

func (r *Record) SetWriteLabel(s string) { r.putText(writeLabelOff, TextWidth, s) }

func (r *Record) WriteOps() int64 { return r.i64(writeOpsOff) }

func (r *Record) SetWriteOps(v int64) { r.putI64(writeOpsOff, v) }

func (r *Record) ReadLabel() string { return r.text(readLabelOff, TextWidth) }

func (r *Record) SetReadLabel(s string) { r.putText(readLabelOff, TextWidth, s) }

func (r *Record) ReadOps() int64 { return r.i64(readOpsOff) }

func (r *Record) SetReadOps(v int64) { r.putI64(readOpsOff, v) }

func (r *Record) VerifyLabel() string { return r.text(verifyLabelOff, TextWidth) }

func (r *Record) SetVerifyLabel(s string) { r.putText(verifyLabelOff, TextWidth, s) }

func (r *Record) VerifyOps() int64 { return r.i64(verifyOpsOff) }

func (r *Record) SetVerifyOps(v int64) { r.putI64(verifyOpsOff, v) }

func (r *Record) ErrorLong() string { return r.text(errorLongOff, ErrorLongWidth) }

func (r *Record) SetErrorLong(s string) { r.putText(errorLongOff, ErrorLongWidth, s) }

// Notification flags.

func (r *Record) DisplayTextSet() bool { return r.flag(displayTextOff) }

func (r *Record) SetDisplayTextSet(v bool) { r.putFlag(displayTextOff, v) }

func (r *Record) NewError() bool { return r.flag(newErrorOff) }

func (r *Record) SetNewError(v bool) { r.putFlag(newErrorOff, v) }

func (r *Record) NewStatus() bool { return r.flag(newStatusOff) }

func (r *Record) SetNewStatus(v bool) { r.putFlag(newStatusOff, v) }

func (r *Record) NewUser1() bool { return r.flag(newUser1Off) }

func (r *Record) SetNewUser1(v bool) { r.putFlag(newUser1Off, v) }

func (r *Record) NewUser2() bool { return r.flag(newUser2Off) }

func (r *Record) SetNewUser2(v bool) { r.putFlag(newUser2Off, v) }

func (r *Record) TestStopped() bool { return r.flag(testStoppedOff) }

func (r *Record) SetTestStopped(v bool) { r.putFlag(testStoppedOff, v) }

// UserField is one of the six label/value display slots.
type UserField struct {
	Label   string
	Value   string
	Enabled bool
}

func (r *Record) userField(slot int) UserField {
	l := userSlotTable[slot]
	return UserField{
		Enabled: r.flag(l.enabled),
		Label:   r.text(l.label, TextWidth),
		Value:   r.text(l.value, TextWidth),
	}
}

func (r *Record) putUserField(slot int, f UserField) {
	l := userSlotTable[slot]
	r.putFlag(l.enabled, f.Enabled)
	r.putText(l.label, TextWidth, f.Label)
	r.putText(l.value, TextWidth, f.Value)
}

func (r *Record) raiseUserFlag(slot int) {
	if l := userSlotTable[slot]; l.flag >= 0 {
		r.putFlag(l.flag, true)
	}
}

func b32(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}
