package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(userID string, buffer int) *Client {
	return &Client{send: make(chan []byte, buffer), userID: userID}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "channel closed")
		var m Message
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	case <-time.After(time.Second):
		t.Fatal("no message")
	}
	return Message{}
}

func TestHubRoutesToUser(t *testing.T) {
	h := NewHub()
	go h.Run()

	a1, a2, b := newClient("inst-a", 4), newClient("inst-a", 4), newClient("inst-b", 4)
	for _, c := range []*Client{a1, a2, b} {
		h.register <- c
	}
	assert.Eventually(t, func() bool { return h.GetClientCount() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"inst-a", "inst-b"}, h.ConnectedUsers())

	h.BroadcastToUser("inst-a", Message{Type: "notification", Data: "Upcoming class"})
	assert.Equal(t, "Upcoming class", receive(t, a1).Data)
	assert.Equal(t, "Upcoming class", receive(t, a2).Data)
	assert.Empty(t, b.send)

	h.BroadcastToUser("nobody", Message{Type: "notification"})

	h.Broadcast(Message{Type: "ping"})
	for _, c := range []*Client{a1, a2, b} {
		assert.Equal(t, "ping", receive(t, c).Type)
	}

	h.unregister <- a1
	h.unregister <- b
	assert.Eventually(t, func() bool { return h.GetClientCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"inst-a"}, h.ConnectedUsers())
	_, open := <-b.send
	assert.False(t, open)

	h.unregister <- b // second unregister is a no-op
	assert.Eventually(t, func() bool { return h.GetClientCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHubDropsFullClient(t *testing.T) {
	h := NewHub()
	slow := newClient("inst-s", 1)
	h.mutex.Lock()
	h.add(slow)
	h.mutex.Unlock()

	h.BroadcastToUser("inst-s", Message{Type: "first"})
	h.BroadcastToUser("inst-s", Message{Type: "second"})

	assert.Equal(t, 0, h.GetClientCount())
	assert.Empty(t, h.ConnectedUsers())
	assert.Equal(t, "first", receive(t, slow).Type)
	_, open := <-slow.send
	assert.False(t, open)
}
