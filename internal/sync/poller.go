package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/thuale/todoflow/internal/model"
	"github.com/thuale/todoflow/internal/store"
)

// State represents the current state of the sync loop.
type State int

const (
	Idle State = iota
	Running
	Failed
)

// Status holds the outcome of the most recent sync cycle.
type Status struct {
	State    State
	LastSync time.Time
	Error    error
}

// Result is emitted on the poller's result channel after each cycle.
type Result struct {
	NewTodoCount     int
	UpdatedTodoCount int
	CompletionCount  int
	Error            error
	AuthExpired      bool
}

// fetchTimeout is the maximum time allowed for a single changes fetch.
const fetchTimeout = 30 * time.Second

// Poller pulls remote changes into the local store on an interval.
type Poller struct {
	store    store.Store
	client   *Client
	interval time.Duration

	resultCh  chan Result
	triggerCh chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}

	mu      gosync.Mutex
	status  Status
	cursor  time.Time
	running bool
}

// NewPoller creates a poller that syncs from the given client every
// interval.
func NewPoller(s store.Store, client *Client, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 120 * time.Second
	}
	return &Poller{
		store:     s,
		client:    client,
		interval:  interval,
		resultCh:  make(chan Result, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Results is the channel of per-cycle outcomes. Slow consumers miss
// results rather than blocking the loop.
func (p *Poller) Results() <-chan Result {
	return p.resultCh
}

// Start launches the polling loop. Calling Start twice is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()
}

// Stop halts the polling loop.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.stopCh)
	<-p.doneCh
}

// Refresh triggers an immediate sync cycle.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// GetStatus returns the status of the most recent sync cycle.
func (p *Poller) GetStatus() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop() {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Initial sync immediately on start.
	p.syncOnce()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.syncOnce()
		case <-p.triggerCh:
			p.syncOnce()
		}
	}
}

// syncOnce performs a single fetch, applies the changes to the local
// store, and advances the cursor to the server's time.
func (p *Poller) syncOnce() {
	p.setState(Running, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	p.mu.Lock()
	since := p.cursor
	p.mu.Unlock()

	cs, err := p.client.GetChanges(ctx, since)
	if err != nil {
		p.setState(Failed, err)
		p.sendResult(Result{Error: err, AuthExpired: errors.Is(err, ErrUnauthorized)})
		return
	}

	newCount, err := p.applyTodos(ctx, cs.Todos)
	if err != nil {
		p.setState(Failed, err)
		p.sendResult(Result{Error: err})
		return
	}

	applied := 0
	for _, rec := range cs.Completions {
		if err := p.store.UpsertCompletion(ctx, rec); err != nil {
			p.setState(Failed, err)
			p.sendResult(Result{Error: err})
			return
		}
		applied++
	}

	if !cs.ServerTime.IsZero() {
		p.mu.Lock()
		p.cursor = cs.ServerTime
		p.mu.Unlock()
	}

	p.setState(Idle, nil)
	p.sendResult(Result{
		NewTodoCount:     newCount,
		UpdatedTodoCount: len(cs.Todos) - newCount,
		CompletionCount:  applied,
	})
}

// applyTodos upserts fetched todos and notifies about ones the local
// store has not seen before.
func (p *Poller) applyTodos(ctx context.Context, todos []model.Todo) (int, error) {
	if len(todos) == 0 {
		return 0, nil
	}

	newIDs := make(map[string]bool, len(todos))
	for _, t := range todos {
		if _, err := p.store.GetTodoByID(ctx, t.ID); errors.Is(err, store.ErrNotFound) {
			newIDs[t.ID] = true
		}
	}

	if err := p.store.UpsertTodos(ctx, todos); err != nil {
		return 0, err
	}

	for _, t := range todos {
		if !newIDs[t.ID] {
			continue
		}
		n := model.Notification{
			ID:        uuid.NewString(),
			TodoID:    t.ID,
			Message:   fmt.Sprintf("New synced todo: %s", t.Title),
			CreatedAt: time.Now().UTC(),
		}
		_ = p.store.CreateNotification(ctx, n)
	}
	return len(newIDs), nil
}

func (p *Poller) setState(state State, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == Idle && err == nil {
		p.status.LastSync = time.Now()
	}
}

// sendResult emits a result without blocking the loop.
func (p *Poller) sendResult(r Result) {
	select {
	case p.resultCh <- r:
	default:
	}
}
