package record

import "fmt"

// StatusCode is the coded plugin state advertised through the block.
type StatusCode uint32

const (
	StatusNone StatusCode = iota
	StatusStartup
	StatusAllocating
	StatusWriting
	StatusReading
	StatusVerifying
	StatusWaiting
	StatusCleanup
	StatusError
	StatusCompleted

	statusMax
)

var statusNames = [...]string{
	"none",
	"startup",
	"allocating",
	"writing",
	"reading",
	"verifying",
	"waiting",
	"cleanup",
	"error",
	"completed",
}

// Valid reports whether c is a defined status code.
func (c StatusCode) Valid() bool { return c < statusMax }

func (c StatusCode) String() string {
	if int(c) < len(statusNames) {
		return statusNames[c]
	}
	return fmt.Sprintf("status(%d)", uint32(c))
}

// Severity grades an error, both inside the block and across the SDK's own
// error types.
type Severity uint32

const (
	SeverityNone Severity = iota
	SeverityInformation
	SeverityWarning
	SeveritySerious
	SeverityCritical
	SeverityTerminal

	severityMax
)

var severityNames = [...]string{
	"none",
	"information",
	"warning",
	"serious",
	"critical",
	"terminal",
}

// Valid reports whether s is a defined severity.
func (s Severity) Valid() bool { return s < severityMax }

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return fmt.Sprintf("severity(%d)", uint32(s))
}
