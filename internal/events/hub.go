package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	EntityProject      = "project"
	EntityMember       = "member"
	EntityTask         = "task"
	EntityTaskStatus   = "task_status"
	EntityCompletion   = "completion"
	EntityFriendship   = "friendship"
	EntityNotification = "notification"
)

const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionDeleted   = "deleted"
	ActionCompleted = "completed"
	ActionArchived  = "archived"
)

// Event describes a committed change. Subscribers use it as a cache
// invalidation signal and refetch the affected resource.
type Event struct {
	Entity    string    `json:"entity"`
	Action    string    `json:"action"`
	EntityID  string    `json:"entity_id"`
	ProjectID string    `json:"project_id,omitempty"`
	ActorID   string    `json:"actor_id,omitempty"`
	At        time.Time `json:"at"`
}

const subscriberBuffer = 16

// Subscriber receives the events addressed to one user. Its channel is
// closed when the hub drops it for falling behind or when Unsubscribe
// is called.
type Subscriber struct {
	userID string
	ch     chan Event
	closed bool
}

// Events returns the receive channel. A closed channel means the
// subscription ended and the client should reconnect and refetch.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// Hub fans committed change events out to per-user subscribers. It is an
// in-process replacement for a hosted change feed: delivery is best
// effort, and a subscriber that cannot keep up is dropped rather than
// allowed to stall publishers.
type Hub struct {
	logger zerolog.Logger

	mu   sync.Mutex
	subs map[string]map[*Subscriber]struct{}
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[string]map[*Subscriber]struct{}),
	}
}

// Subscribe registers a listener for all events addressed to userID.
func (h *Hub) Subscribe(userID string) *Subscriber {
	sub := &Subscriber{
		userID: userID,
		ch:     make(chan Event, subscriberBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscriber]struct{})
	}
	h.subs[userID][sub] = struct{}{}

	h.logger.Debug().
		Str("user_id", userID).
		Msg("subscribed to change feed")
	return sub
}

// Unsubscribe removes the listener and closes its channel. It is safe to
// call after the hub has already dropped the subscriber.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(sub)
}

// Publish delivers the event to every subscriber of every user in the
// audience. Publish never blocks: a subscriber with a full buffer is
// dropped and must resubscribe.
func (h *Hub) Publish(audience []string, event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	seen := make(map[string]struct{}, len(audience))
	for _, userID := range audience {
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}

		for sub := range h.subs[userID] {
			select {
			case sub.ch <- event:
			default:
				h.logger.Warn().
					Str("user_id", userID).
					Str("entity", event.Entity).
					Msg("dropping slow change feed subscriber")
				h.drop(sub)
			}
		}
	}

	h.logger.Debug().
		Str("entity", event.Entity).
		Str("action", event.Action).
		Int("audience", len(seen)).
		Msg("published change event")
}

// drop must be called with h.mu held.
func (h *Hub) drop(sub *Subscriber) {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.ch)

	if subs, ok := h.subs[sub.userID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subs, sub.userID)
		}
	}
}
