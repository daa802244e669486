// Package reminder fires todo reminders at their trigger time and turns
// them into notifications.
package reminder

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var ErrInvalidTriggerTime = errors.New("reminder: invalid trigger time")

// Event is a reminder due for delivery.
type Event struct {
	ID        string
	TodoID    string
	Message   string
	TriggerAt time.Time
}

// eventHeap orders events by trigger time, breaking ties by ID so
// delivery order is stable.
type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].TriggerAt.Equal(h[j].TriggerAt) {
		return h[i].ID < h[j].ID
	}
	return h[i].TriggerAt.Before(h[j].TriggerAt)
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) { *h = append(*h, x.(Event)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	*h = old[:n-1]
	return ev
}

// Engine delivers scheduled events on its output channel when their
// trigger time arrives. A single goroutine sleeps until the earliest
// queued event is due, waking early when a new event preempts it.
type Engine struct {
	mu      sync.Mutex
	pending eventHeap
	out     chan Event
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
}

// NewEngine creates an engine whose output channel holds bufferSize
// undelivered events before overflow events are dropped.
func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		out:    make(chan Event, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// C is the delivery channel for due events.
func (e *Engine) C() <-chan Event {
	return e.out
}

// Start launches the timer loop. Calling Start twice is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	go e.loop()
}

// Stop halts the timer loop and closes the delivery channel.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

// Schedule queues an event for delivery at its trigger time.
func (e *Engine) Schedule(ev Event) error {
	if ev.TriggerAt.IsZero() {
		return ErrInvalidTriggerTime
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return errors.New("reminder: engine stopped")
	}

	heap.Push(&e.pending, ev)
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
	return nil
}

// Dropped reports how many due events overflowed the delivery channel.
func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	timer := time.NewTimer(0)
	drainTimer(timer)
	defer timer.Stop()

	for {
		if next, ok := e.nextTrigger(); ok {
			timer.Reset(time.Until(next))
		}

		select {
		case <-timer.C:
			e.deliverDue(time.Now().UTC())
		case <-e.wakeup:
			// An earlier event may have arrived; re-arm from the new head.
			drainTimer(timer)
		case <-e.stopCh:
			return
		}
	}
}

// nextTrigger reports the trigger time of the earliest pending event.
func (e *Engine) nextTrigger() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pending) == 0 {
		return time.Time{}, false
	}
	return e.pending[0].TriggerAt, true
}

// deliverDue pops every event due at now onto the output channel,
// dropping those the channel cannot hold.
func (e *Engine) deliverDue(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for len(e.pending) > 0 && !e.pending[0].TriggerAt.After(now) {
		ev := heap.Pop(&e.pending).(Event)
		select {
		case e.out <- ev:
		default:
			atomic.AddUint64(&e.dropped, 1)
		}
	}
}

func drainTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
