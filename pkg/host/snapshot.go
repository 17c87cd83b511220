package host

import (
	"fmt"

	"github.com/valyala/bytebufferpool"

	"github.com/srediag/burnin-plugin/pkg/record"
)

// Snapshot is a point-in-time copy of the plugin's output fields. Reading
// one is not atomic against the plugin; individual fields are consistent,
// the set as a whole may straddle an update.
type Snapshot struct {
	Version     uint32
	WindowTitle string
	Cycle       uint32

	Status     string
	StatusCode record.StatusCode

	ErrorCount    uint32
	ErrorText     string
	ErrorSeverity record.Severity
	ErrorLong     string

	WriteLabel  string
	WriteOps    int64
	ReadLabel   string
	ReadOps     int64
	VerifyLabel string
	VerifyOps   int64

	Users [record.UserSlots]record.UserField

	DisplayTextSet bool
	TestStopped    bool
}

// Snapshot copies the plugin's output fields out of the block.
func (h *Host) Snapshot() Snapshot {
	s := Snapshot{
		Version:        h.rec.Version(),
		WindowTitle:    h.rec.WindowTitle(),
		Cycle:          h.rec.Cycle(),
		Status:         h.rec.StatusText(),
		StatusCode:     h.rec.StatusCode(),
		ErrorCount:     h.rec.ErrorCount(),
		ErrorText:      h.rec.ErrorText(),
		ErrorSeverity:  h.rec.ErrorSeverity(),
		ErrorLong:      h.rec.ErrorLong(),
		WriteLabel:     h.rec.WriteLabel(),
		WriteOps:       h.rec.WriteOps(),
		ReadLabel:      h.rec.ReadLabel(),
		ReadOps:        h.rec.ReadOps(),
		VerifyLabel:    h.rec.VerifyLabel(),
		VerifyOps:      h.rec.VerifyOps(),
		DisplayTextSet: h.rec.DisplayTextSet(),
		TestStopped:    h.rec.TestStopped(),
	}
	for i := 0; i < record.UserSlots; i++ {
		if u, err := h.itf.UserField(i + 1); err == nil {
			s.Users[i] = u
		}
	}
	return s
}

// String renders a one line summary for logs.
func (s Snapshot) String() string {
	b := bytebufferpool.Get()
	defer bytebufferpool.Put(b)
	fmt.Fprintf(b, "cycle %d %q [%s]", s.Cycle, s.Status, s.StatusCode)
	fmt.Fprintf(b, " w=%d r=%d v=%d", s.WriteOps, s.ReadOps, s.VerifyOps)
	if s.ErrorCount > 0 {
		fmt.Fprintf(b, " errors=%d last=%q", s.ErrorCount, s.ErrorText)
	}
	if s.TestStopped {
		b.WriteString(" stopped")
	}
	return b.String()
}
