package events_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/momentum-app/momentum/internal/events"
)

func newTestHub() *events.Hub {
	return events.NewHub(zerolog.Nop())
}

func TestPublishDeliversToAudience(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	hub := newTestHub()
	alice := hub.Subscribe("alice")
	bob := hub.Subscribe("bob")
	defer hub.Unsubscribe(alice)
	defer hub.Unsubscribe(bob)

	hub.Publish([]string{"alice"}, events.Event{
		Entity:   events.EntityTask,
		Action:   events.ActionCreated,
		EntityID: "t1",
	})

	select {
	case event := <-alice.Events():
		assert.Equal(events.EntityTask, event.Entity)
		assert.Equal(events.ActionCreated, event.Action)
		assert.Equal("t1", event.EntityID)
		assert.False(event.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("expected an event for alice")
	}

	select {
	case event := <-bob.Events():
		t.Fatalf("unexpected event for bob: %+v", event)
	default:
	}
}

func TestPublishDeduplicatesAudience(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	hub := newTestHub()
	sub := hub.Subscribe("alice")
	defer hub.Unsubscribe(sub)

	hub.Publish([]string{"alice", "alice", "alice"}, events.Event{
		Entity: events.EntityProject,
		Action: events.ActionUpdated,
	})

	assert.Len(sub.Events(), 1)
}

func TestPublishFansOutToAllSubscriptions(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	// One user with two open tabs receives the event on both.
	hub := newTestHub()
	first := hub.Subscribe("alice")
	second := hub.Subscribe("alice")
	defer hub.Unsubscribe(first)
	defer hub.Unsubscribe(second)

	hub.Publish([]string{"alice"}, events.Event{Entity: events.EntityFriendship})

	assert.Len(first.Events(), 1)
	assert.Len(second.Events(), 1)
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	hub := newTestHub()
	sub := hub.Subscribe("alice")

	// Fill the buffer without draining, then publish once more.
	for i := 0; i < 17; i++ {
		hub.Publish([]string{"alice"}, events.Event{Entity: events.EntityTask})
	}

	drained := 0
	for range sub.Events() {
		drained++
	}
	assert.Equal(16, drained)

	// Publishing after the drop must not panic.
	hub.Publish([]string{"alice"}, events.Event{Entity: events.EntityTask})
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	hub := newTestHub()
	sub := hub.Subscribe("alice")
	hub.Unsubscribe(sub)

	_, open := <-sub.Events()
	assert.False(open)

	// A second Unsubscribe is a no-op.
	hub.Unsubscribe(sub)
}
