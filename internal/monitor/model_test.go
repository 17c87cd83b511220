package monitor

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/burnin-plugin/api"
	"github.com/srediag/burnin-plugin/pkg/host"
	"github.com/srediag/burnin-plugin/pkg/record"
)

type fakeAllocator struct {
	buf []byte
}

func (f *fakeAllocator) Open(string) (api.Handle, error) { return 1, nil }

func (f *fakeAllocator) Create(_ string, size int) (api.Handle, error) {
	f.buf = make([]byte, size)
	return 1, nil
}

func (f *fakeAllocator) Map(api.Handle, int) ([]byte, error) { return f.buf, nil }

func (f *fakeAllocator) Unmap([]byte) error { return nil }

func (f *fakeAllocator) Close(api.Handle) error { return nil }

func (f *fakeAllocator) Unlink(string) error { return nil }

func newTestModel(t *testing.T) (model, *host.Host, *record.Record) {
	t.Helper()
	fa := &fakeAllocator{}
	h, err := host.Create(host.Config{Transport: fa}, "BIMon_1")
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	h.SetTestRunning(true)
	require.NoError(t, h.SetDutyCycle(50))
	rec, err := record.NewRecord(fa.buf)
	require.NoError(t, err)
	m := newModel(h, make(chan host.Event), time.Millisecond)
	return m, h, rec
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func asModel(t *testing.T, tm tea.Model) model {
	t.Helper()
	m, ok := tm.(model)
	require.True(t, ok)
	return m
}

func TestViewWaitsForPlugin(t *testing.T) {
	m, _, _ := newTestModel(t)
	assert.Contains(t, m.View(), "waiting for plugin")
}

func TestTickRefreshesSnapshot(t *testing.T) {
	m, _, rec := newTestModel(t)
	rec.SetVersion(record.InterfaceVersion)
	rec.SetWindowTitle("memtest")
	rec.SetStatusText("Writing")
	rec.SetWriteOps(42)

	tm, cmd := m.Update(tickMsg(time.Now()))
	m = asModel(t, tm)
	assert.NotNil(t, cmd)

	view := m.View()
	assert.Contains(t, view, "memtest")
	assert.Contains(t, view, "Writing")
	assert.Contains(t, view, "42")
	assert.NotContains(t, view, "waiting for plugin")
}

func TestDutyKeys(t *testing.T) {
	m, h, _ := newTestModel(t)

	tm, _ := m.Update(keyPress('+'))
	m = asModel(t, tm)
	assert.Equal(t, uint32(55), m.duty)
	assert.Equal(t, uint32(55), h.DutyCycle())

	tm, _ = m.Update(keyPress('-'))
	m = asModel(t, tm)
	assert.Equal(t, uint32(50), m.duty)

	tm, _ = m.Update(keyPress('d'))
	m = asModel(t, tm)
	assert.Equal(t, uint32(100), m.duty)
	assert.Equal(t, uint32(100), h.DutyCycle())

	// Must never climb past 100 or wrap below zero.
	tm, _ = m.Update(keyPress('+'))
	m = asModel(t, tm)
	assert.Equal(t, uint32(100), m.duty)
	for i := 0; i < 25; i++ {
		tm, _ = m.Update(keyPress('-'))
		m = asModel(t, tm)
	}
	assert.Equal(t, uint32(0), m.duty)
}

func TestToggleKeyFlipsRunFlag(t *testing.T) {
	m, h, _ := newTestModel(t)
	require.True(t, h.TestRunning())

	tm, _ := m.Update(keyPress('s'))
	m = asModel(t, tm)
	assert.False(t, h.TestRunning())
	assert.False(t, m.armed)

	tm, _ = m.Update(keyPress('s'))
	m = asModel(t, tm)
	assert.True(t, h.TestRunning())
}

func TestQuitKeyDisarmsAndQuits(t *testing.T) {
	m, h, _ := newTestModel(t)

	_, cmd := m.Update(keyPress('q'))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.False(t, h.TestRunning())
}

func TestEventLogKeepsRecentEntries(t *testing.T) {
	m, _, _ := newTestModel(t)
	for i := 0; i < maxLogLines+4; i++ {
		tm, _ := m.Update(eventMsg(host.Event{
			Kind:   host.EventStatus,
			At:     time.Now(),
			Status: "Pass " + strings.Repeat("I", i+1),
		}))
		m = asModel(t, tm)
	}
	assert.Len(t, m.log, maxLogLines)
	assert.Equal(t, "Pass IIIII", m.log[0].Status)
}

func TestClosedEventStreamStopsReading(t *testing.T) {
	m, _, _ := newTestModel(t)
	_, cmd := m.Update(eventsClosedMsg{})
	assert.Nil(t, cmd)
}
