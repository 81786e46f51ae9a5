package live

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesOnlyTheAddressedUser(t *testing.T) {
	hub := NewHub()
	alice, _ := hub.Subscribe(1)
	defer alice.Close()
	bob, _ := hub.Subscribe(2)
	defer bob.Close()

	hub.Publish(1, Event{Kind: "notification", Payload: "hola"})

	select {
	case ev := <-alice.Events():
		assert.Equal(t, "hola", ev.Payload)
	default:
		t.Fatal("expected an event for user 1")
	}
	assert.Empty(t, bob.Events())
}

func TestBacklogReplaysToLateSubscribers(t *testing.T) {
	hub := NewHub()
	first, _ := hub.Subscribe(1)
	hub.Publish(1, Event{Kind: "notification", Payload: 1})
	hub.Publish(1, Event{Kind: "notification", Payload: 2})

	second, backlog := hub.Subscribe(1)
	defer second.Close()
	require.Len(t, backlog, 2)
	assert.Equal(t, 2, backlog[1].Payload)

	first.Close()
	assert.Equal(t, 1, hub.Subscribers(1))
}

func TestCloseDropsEmptyStream(t *testing.T) {
	hub := NewHub()
	sub, _ := hub.Subscribe(9)
	sub.Close()
	sub.Close()

	assert.Equal(t, 0, hub.Subscribers(9))
	hub.Publish(9, Event{Kind: "notification"})
}

func TestNilHubIgnoresPublish(t *testing.T) {
	var hub *Hub
	hub.Publish(1, Event{})
}
