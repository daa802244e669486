package reminder

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/thuale/todoflow/internal/model"
	"github.com/thuale/todoflow/internal/store"
)

const (
	// DefaultScanInterval is how often the dispatcher reloads pending
	// reminders from the store.
	DefaultScanInterval = 30 * time.Second

	// scanHorizon is how far ahead of now a reminder may trigger and
	// still be handed to the engine in the current scan.
	scanHorizon = 2 * time.Minute
)

// Dispatcher loads pending reminders from the store, schedules them on
// the engine, and converts fired events into notifications.
type Dispatcher struct {
	store    store.Store
	engine   *Engine
	interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}

	scheduled map[string]struct{}
}

func NewDispatcher(s store.Store, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	return &Dispatcher{
		store:     s,
		engine:    NewEngine(64),
		interval:  interval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		scheduled: make(map[string]struct{}),
	}
}

// Start begins scanning for pending reminders and delivering them.
func (d *Dispatcher) Start() {
	d.engine.Start()
	go d.run()
}

// Stop shuts down the dispatcher and the underlying engine.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	<-d.doneCh
	d.engine.Stop()
}

func (d *Dispatcher) run() {
	defer close(d.doneCh)

	d.scan()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.scan()
		case ev, ok := <-d.engine.C():
			if !ok {
				return
			}
			d.fire(ev)
		case <-d.stopCh:
			return
		}
	}
}

// scan loads reminders due within the horizon and schedules the ones
// not already queued. Reminders overdue at scan time trigger
// immediately.
func (d *Dispatcher) scan() {
	before := time.Now().UTC().Add(scanHorizon)
	reminders, err := d.store.GetPendingReminders(context.Background(), before)
	if err != nil {
		log.Printf("reminder: scan failed: %v", err)
		return
	}

	for _, rem := range reminders {
		if _, ok := d.scheduled[rem.ID]; ok {
			continue
		}
		ev := Event{
			ID:        rem.ID,
			TodoID:    rem.TodoID,
			Message:   rem.Message,
			TriggerAt: rem.RemindAt,
		}
		if err := d.engine.Schedule(ev); err != nil {
			log.Printf("reminder: schedule %s failed: %v", rem.ID, err)
			continue
		}
		d.scheduled[rem.ID] = struct{}{}
	}
}

// fire turns a due reminder into a notification and marks it fired so
// the next scan skips it.
func (d *Dispatcher) fire(ev Event) {
	ctx := context.Background()

	n := model.Notification{
		ID:        uuid.NewString(),
		TodoID:    ev.TodoID,
		Message:   ev.Message,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.store.CreateNotification(ctx, n); err != nil {
		log.Printf("reminder: notify for %s failed: %v", ev.ID, err)
		// The next scan reschedules it.
		delete(d.scheduled, ev.ID)
		return
	}
	if err := d.store.MarkReminderFired(ctx, ev.ID); err != nil {
		// Stays in scheduled so the next scan does not notify twice.
		log.Printf("reminder: mark fired %s failed: %v", ev.ID, err)
		return
	}
	delete(d.scheduled, ev.ID)
}
