package store

import "sync"

// Op identifies the kind of mutation an Event describes.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Entity kinds carried by change events.
const (
	EntityTodo         = "todo"
	EntityFolder       = "folder"
	EntitySubtask      = "subtask"
	EntityCompletion   = "completion"
	EntityReminder     = "reminder"
	EntityNotification = "notification"
)

// Event describes a single store mutation.
type Event struct {
	Entity string
	ID     string
	Op     Op
}

// Notifier is an explicit change-event emitter owned by a store instance.
// Subscriptions have a defined lifecycle: Subscribe returns a token that
// must be passed to Unsubscribe when the consumer goes away. Delivery is
// best-effort; a subscriber that stops draining its channel loses events
// rather than blocking writers.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	closed bool
}

// NewNotifier creates an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber with the given channel buffer and
// returns its token alongside the receive channel.
func (n *Notifier) Subscribe(buffer int) (int, <-chan Event) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		close(ch)
		return 0, ch
	}
	n.nextID++
	id := n.nextID
	n.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel. Unknown tokens
// are ignored.
func (n *Notifier) Unsubscribe(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if ch, ok := n.subs[id]; ok {
		delete(n.subs, id)
		close(ch)
	}
}

// Publish delivers an event to every live subscriber without blocking.
func (n *Notifier) Publish(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	for _, ch := range n.subs {
		select {
		case ch <- ev:
		default:
			// Drop if the subscriber is not keeping up.
		}
	}
}

// Close tears down all subscriptions. Further Publish calls are no-ops.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for id, ch := range n.subs {
		delete(n.subs, id)
		close(ch)
	}
}
