// Package conn manages the shared memory connection between a plugin process
// and its host harness.
package conn

import (
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/srediag/burnin-plugin/api"
	"github.com/srediag/burnin-plugin/pkg/record"
)

// DefaultTimeout bounds the initial attach attempt.
const DefaultTimeout = 5 * time.Second

const retryInterval = 100 * time.Millisecond

// Default field values written right after a successful attach.
const (
	defaultStatus      = "Initializing"
	defaultWriteLabel  = "Write (MBytes):"
	defaultReadLabel   = "Read (MBytes):"
	defaultVerifyLabel = "Verify (MBytes):"
)

// Config configures a connection.
type Config struct {
	// Transport opens and maps the named block. Required.
	Transport api.Transport
	// Timeout bounds Connect; zero means DefaultTimeout.
	Timeout time.Duration
	// Logger receives connection events; the zero logger is usable.
	Logger zerolog.Logger
}

// Conn owns at most one live mapping over a host-created block. It is not
// safe for concurrent use; the engine that drives it owns it for the length
// of a run.
type Conn struct {
	transport api.Transport
	timeout   time.Duration
	log       zerolog.Logger

	connected bool
	handle    api.Handle
	mem       []byte
	itf       *record.Accessor
}

// New builds a disconnected Conn.
func New(cfg Config) *Conn {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Conn{
		transport: cfg.Transport,
		timeout:   cfg.Timeout,
		log:       cfg.Logger.With().Str("component", "conn").Logger(),
	}
}

// Connect attaches to the named block and writes the protocol defaults. The
// open is retried inside the timeout window, covering the gap where the
// plugin process starts a beat before the host has created the block.
// Connecting while already connected logs a warning and succeeds without
// touching anything. Every failure path releases whatever was acquired, so
// the connection is never left half built.
func (c *Conn) Connect(name string) error {
	if c.connected {
		c.log.Warn().Str("name", name).Msg("already connected")
		return nil
	}
	if !strings.HasPrefix(name, record.NamePrefix) {
		return &ConnectionError{
			Op:   "connect",
			Name: name,
			Err:  fmt.Errorf("name must start with %q", record.NamePrefix),
		}
	}

	var handle api.Handle
	open := func() error {
		h, err := c.transport.Open(name)
		if err != nil {
			return err
		}
		handle = h
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInterval
	bo.MaxInterval = time.Second
	bo.MaxElapsedTime = c.timeout
	if err := backoff.Retry(open, bo); err != nil {
		return &ConnectionError{Op: "open", Name: name, Err: err}
	}

	mem, err := c.transport.Map(handle, record.Size)
	if err != nil {
		_ = c.transport.Close(handle)
		return &ConnectionError{Op: "map", Name: name, Err: err}
	}

	itf, err := view(mem)
	if err != nil {
		_ = c.transport.Unmap(mem)
		_ = c.transport.Close(handle)
		return &ConnectionError{Op: "view", Name: name, Err: err}
	}

	c.handle = handle
	c.mem = mem
	c.itf = itf
	c.connected = true
	c.initDefaults()
	c.log.Info().Str("name", name).Msg("connected")
	return nil
}

func view(mem []byte) (*record.Accessor, error) {
	rec, err := record.NewRecord(mem)
	if err != nil {
		return nil, err
	}
	return record.NewAccessor(rec)
}

// initDefaults writes the fields a freshly attached plugin advertises. The
// values are all within their widths, so the setters cannot fail; failures
// would mean a broken view and are logged just in case.
func (c *Conn) initDefaults() {
	itf := c.itf
	itf.SetVersion(record.InterfaceVersion)
	for _, err := range []error{
		itf.SetWriteLabel(defaultWriteLabel),
		itf.SetReadLabel(defaultReadLabel),
		itf.SetVerifyLabel(defaultVerifyLabel),
		itf.SetStatus(defaultStatus),
		itf.SetStatusCode(record.StatusStartup),
		itf.SetUserField(1, "Custom Field 1", "Ready", true),
		itf.SetUserField(2, "Custom Field 2", "Ready", true),
	} {
		if err != nil {
			c.log.Warn().Err(err).Msg("default field not written")
		}
	}
	itf.SetDisplayTextSet(true)
}

// Disconnect releases the mapping. It is idempotent and never fails: the
// closing handshake and the resource release are both best effort, logged on
// failure. Resources go in reverse acquisition order, unmap before close.
func (c *Conn) Disconnect() {
	if !c.connected {
		return
	}
	if err := c.itf.SetStatusCode(record.StatusCleanup); err != nil {
		c.log.Warn().Err(err).Msg("cleanup status not written")
	}
	c.itf.SetTestStopped(true)
	if err := c.transport.Unmap(c.mem); err != nil {
		c.log.Warn().Err(err).Msg("unmap failed")
	}
	if err := c.transport.Close(c.handle); err != nil {
		c.log.Warn().Err(err).Msg("close failed")
	}
	c.itf = nil
	c.mem = nil
	c.handle = 0
	c.connected = false
	c.log.Info().Msg("disconnected")
}

// Interface returns the accessor over the mapped block. The accessor borrows
// the mapping and must not outlive this connection.
func (c *Conn) Interface() (*record.Accessor, error) {
	if !c.connected {
		return nil, &ConnectionError{Op: "interface", Err: errNotConnected}
	}
	return c.itf, nil
}

// Connected reports whether a mapping is live.
func (c *Conn) Connected() bool { return c.connected }
