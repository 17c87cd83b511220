package conn

import (
	"errors"
	"fmt"

	"github.com/srediag/burnin-plugin/pkg/record"
)

var errNotConnected = errors.New("not connected")

// ConnectionError reports a failed connect or use of a connection in the
// wrong state. The transport cause, platform error text included, is
// reachable through Unwrap.
type ConnectionError struct {
	Op   string
	Name string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("connection %s %s: %v", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("connection %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Severity grades connection failures as critical.
func (e *ConnectionError) Severity() record.Severity { return record.SeverityCritical }
