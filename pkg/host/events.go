package host

import (
	"context"
	"errors"
	"time"

	queuepkg "github.com/Workiva/go-datastructures/queue"
	"github.com/cenkalti/backoff/v4"

	"github.com/srediag/burnin-plugin/pkg/record"
)

// DefaultPollInterval is the flag polling period used when none is given.
const DefaultPollInterval = 250 * time.Millisecond

const stoppedPollInterval = 50 * time.Millisecond

// EventKind labels an Event.
type EventKind int

const (
	// EventStatus reports a new status line or status code.
	EventStatus EventKind = iota
	// EventError reports a newly raised error.
	EventError
	// EventUser reports an updated user display slot.
	EventUser
)

var eventKindNames = [...]string{"status", "error", "user"}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "unknown"
}

// Event is one observation drained from the block's notification flags. The
// fields beyond Kind and At are filled per kind.
type Event struct {
	Kind EventKind
	At   time.Time

	Status     string
	StatusCode record.StatusCode

	ErrorText  string
	ErrorCount uint32
	Severity   record.Severity

	Slot  int
	Field record.UserField
}

// eventQueue decouples the flag poller from the consumer.
type eventQueue struct {
	q *queuepkg.Queue
}

func newEventQueue(cap int64) *eventQueue {
	return &eventQueue{q: queuepkg.New(cap)}
}

func (q *eventQueue) put(ev Event) error { return q.q.Put(ev) }

func (q *eventQueue) pop() (Event, error) {
	items, err := q.q.Get(1)
	if err != nil {
		return Event{}, err
	}
	if len(items) == 0 {
		return Event{}, errors.New("empty get")
	}
	ev, ok := items[0].(Event)
	if !ok {
		return Event{}, errors.New("invalid queue element type")
	}
	return ev, nil
}

func (q *eventQueue) dispose() { q.q.Dispose() }

// Events polls the notification flags and streams observations until ctx
// ends, then closes the channel. Each flag is lowered as its value is read,
// acknowledging the notification to the plugin. Only one Events stream per
// Host may run at a time; a second poller would race the first on the
// acknowledgements.
func (h *Host) Events(ctx context.Context, interval time.Duration) <-chan Event {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	q := newEventQueue(64)
	out := make(chan Event)
	go h.poll(ctx, q, interval)
	go h.deliver(ctx, q, out)
	return out
}

func (h *Host) poll(ctx context.Context, q *eventQueue, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	defer q.dispose()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		for _, ev := range h.drain() {
			if err := q.put(ev); err != nil {
				return
			}
		}
	}
}

// drain reads every raised flag, value first, then lowers the flag.
func (h *Host) drain() []Event {
	var evs []Event
	now := time.Now()
	if h.rec.NewStatus() {
		evs = append(evs, Event{
			Kind:       EventStatus,
			At:         now,
			Status:     h.rec.StatusText(),
			StatusCode: h.rec.StatusCode(),
		})
		h.rec.SetNewStatus(false)
	}
	if h.rec.NewError() {
		evs = append(evs, Event{
			Kind:       EventError,
			At:         now,
			ErrorText:  h.rec.ErrorText(),
			ErrorCount: h.rec.ErrorCount(),
			Severity:   h.rec.ErrorSeverity(),
		})
		h.rec.SetNewError(false)
	}
	if h.rec.NewUser1() {
		evs = append(evs, h.userEvent(now, 1))
		h.rec.SetNewUser1(false)
	}
	if h.rec.NewUser2() {
		evs = append(evs, h.userEvent(now, 2))
		h.rec.SetNewUser2(false)
	}
	return evs
}

func (h *Host) userEvent(at time.Time, slot int) Event {
	ev := Event{Kind: EventUser, At: at, Slot: slot}
	if u, err := h.itf.UserField(slot); err == nil {
		ev.Field = u
	}
	return ev
}

func (h *Host) deliver(ctx context.Context, q *eventQueue, out chan<- Event) {
	defer close(out)
	for {
		ev, err := q.pop()
		if err != nil {
			return
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}

var errNotStopped = errors.New("plugin still running")

// WaitStopped blocks until the plugin raises its stopped flag, polling the
// block. ctx bounds the wait; its error is returned when the flag never
// came up.
func (h *Host) WaitStopped(ctx context.Context) error {
	check := func() error {
		if h.rec.TestStopped() {
			return nil
		}
		return errNotStopped
	}
	bo := backoff.WithContext(backoff.NewConstantBackOff(stoppedPollInterval), ctx)
	return backoff.Retry(check, bo)
}
