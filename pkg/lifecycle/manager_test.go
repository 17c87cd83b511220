package lifecycle

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/burnin-plugin/api"
	"github.com/srediag/burnin-plugin/pkg/record"
)

// fakeTransport serves one armed in-process block, whatever name is opened.
type fakeTransport struct {
	buf []byte
}

func newFakeTransport(t *testing.T) (*fakeTransport, *record.Record) {
	t.Helper()
	ft := &fakeTransport{buf: make([]byte, record.Size)}
	rec, err := record.NewRecord(ft.buf)
	require.NoError(t, err)
	rec.SetTestRunning(true)
	rec.SetDutyCycle(100)
	return ft, rec
}

func (f *fakeTransport) Open(string) (api.Handle, error) { return api.Handle(1), nil }

func (f *fakeTransport) Map(_ api.Handle, size int) ([]byte, error) { return f.buf[:size], nil }

func (f *fakeTransport) Unmap([]byte) error { return nil }

func (f *fakeTransport) Close(api.Handle) error { return nil }

// loopPlugin cycles until stopped, counting completed cycles.
type loopPlugin struct {
	api.Base
	name     string
	writeErr error
	cycles   atomic.Int32
}

func (p *loopPlugin) Name() string { return p.name }

func (p *loopPlugin) ExecuteWritePhase(context.Context, *record.Accessor) error {
	return p.writeErr
}

func (p *loopPlugin) ExecuteReadPhase(context.Context, *record.Accessor) error { return nil }

func (p *loopPlugin) ExecuteVerifyPhase(context.Context, *record.Accessor) error { return nil }

func (p *loopPlugin) OnCycleEnd(*record.Accessor, uint32) { p.cycles.Add(1) }

func spec(p api.Plugin) api.PluginSpec {
	return api.PluginSpec{Plugin: p, ShmName: "BITest_1", ConnectTimeout: time.Second}
}

func TestManagerStartStop(t *testing.T) {
	ft, rec := newFakeTransport(t)
	m, err := NewManager(Config{Transport: ft})
	require.NoError(t, err)
	defer m.Close(context.Background())

	p := &loopPlugin{name: "memtest"}
	require.NoError(t, m.StartPlugin(context.Background(), "inst", spec(p)))
	require.Eventually(t, func() bool { return p.cycles.Load() > 0 },
		time.Second, 5*time.Millisecond)

	require.NoError(t, m.LivenessCheck("inst"))
	beat, err := m.Heartbeat("inst")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), beat, time.Second)

	require.NoError(t, m.StopPlugin(context.Background(), "inst"))
	assert.Empty(t, m.Names())
	assert.True(t, rec.TestStopped())
	assert.Error(t, m.LivenessCheck("inst"))
}

func TestManagerRejectsBadSpecs(t *testing.T) {
	ft, _ := newFakeTransport(t)
	m, err := NewManager(Config{Transport: ft})
	require.NoError(t, err)
	defer m.Close(context.Background())

	err = m.StartPlugin(context.Background(), "inst", api.PluginSpec{ShmName: "BITest_1"})
	assert.ErrorContains(t, err, "nil plugin")

	err = m.StartPlugin(context.Background(), "inst", api.PluginSpec{Plugin: &loopPlugin{name: "x"}})
	assert.ErrorContains(t, err, "no block name")
}

func TestManagerDuplicateName(t *testing.T) {
	ft, _ := newFakeTransport(t)
	m, err := NewManager(Config{Transport: ft})
	require.NoError(t, err)
	defer m.Close(context.Background())

	p := &loopPlugin{name: "memtest"}
	require.NoError(t, m.StartPlugin(context.Background(), "inst", spec(p)))
	require.Eventually(t, func() bool { return p.cycles.Load() > 0 },
		time.Second, 5*time.Millisecond)

	err = m.StartPlugin(context.Background(), "inst", spec(&loopPlugin{name: "other"}))
	assert.ErrorContains(t, err, "already running")
}

func TestManagerLivenessAfterFailedRun(t *testing.T) {
	ft, _ := newFakeTransport(t)
	m, err := NewManager(Config{Transport: ft})
	require.NoError(t, err)
	defer m.Close(context.Background())

	p := &loopPlugin{name: "memtest", writeErr: errors.New("boom")}
	require.NoError(t, m.StartPlugin(context.Background(), "inst", spec(p)))

	require.Eventually(t, func() bool { return m.LivenessCheck("inst") != nil },
		time.Second, 5*time.Millisecond)
	assert.ErrorContains(t, m.LivenessCheck("inst"), "exited")

	// The exited entry stays visible until stopped.
	require.NoError(t, m.StopPlugin(context.Background(), "inst"))
	assert.Empty(t, m.Names())
}

func TestManagerReload(t *testing.T) {
	ft, _ := newFakeTransport(t)
	m, err := NewManager(Config{Transport: ft})
	require.NoError(t, err)
	defer m.Close(context.Background())

	p1 := &loopPlugin{name: "memtest"}
	require.NoError(t, m.StartPlugin(context.Background(), "inst", spec(p1)))
	require.Eventually(t, func() bool { return p1.cycles.Load() > 0 },
		time.Second, 5*time.Millisecond)

	p2 := &loopPlugin{name: "memtest"}
	require.NoError(t, m.ReloadPlugin(context.Background(), "inst", spec(p2)))
	require.Eventually(t, func() bool { return p2.cycles.Load() > 0 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"inst"}, m.Names())
}

func TestManagerPoolOverload(t *testing.T) {
	ft, _ := newFakeTransport(t)
	m, err := NewManager(Config{Transport: ft, PoolSize: 1})
	require.NoError(t, err)
	defer m.Close(context.Background())

	p := &loopPlugin{name: "memtest"}
	require.NoError(t, m.StartPlugin(context.Background(), "a", spec(p)))
	require.Eventually(t, func() bool { return p.cycles.Load() > 0 },
		time.Second, 5*time.Millisecond)

	err = m.StartPlugin(context.Background(), "b", spec(&loopPlugin{name: "other"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ants.ErrPoolOverload)
	assert.Equal(t, []string{"a"}, m.Names(), "a rejected start must not leave a tracked name")
}

func TestManagerHealthEndpoint(t *testing.T) {
	ft, _ := newFakeTransport(t)
	reg := prometheus.NewRegistry()
	m, err := NewManager(Config{Transport: ft, Registry: reg})
	require.NoError(t, err)
	defer m.Close(context.Background())

	w := httptest.NewRecorder()
	m.Health().ServeHTTP(w, httptest.NewRequest("GET", "/live", nil))
	assert.Equal(t, 200, w.Code)

	p := &loopPlugin{name: "memtest", writeErr: errors.New("boom")}
	require.NoError(t, m.StartPlugin(context.Background(), "inst", spec(p)))
	require.Eventually(t, func() bool { return m.LivenessCheck("inst") != nil },
		time.Second, 5*time.Millisecond)

	w = httptest.NewRecorder()
	m.Health().ServeHTTP(w, httptest.NewRequest("GET", "/live", nil))
	assert.Equal(t, 503, w.Code)
}

func TestManagerStopUnknown(t *testing.T) {
	ft, _ := newFakeTransport(t)
	m, err := NewManager(Config{Transport: ft})
	require.NoError(t, err)
	defer m.Close(context.Background())

	assert.ErrorContains(t, m.StopPlugin(context.Background(), "ghost"), "not running")
}
