package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-barcode/internal/log"
)

// testClient is a Client without a connection.
func testClient(h *Hub) *Client {
	return &Client{hub: h, send: make(chan Message, clientBuffer)}
}

func runHub(t *testing.T, opts ...Option) (*Hub, context.CancelFunc) {
	t.Helper()
	opts = append([]Option{WithLogger(log.Discard())}, opts...)
	h := New("test", opts...)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	require.Eventually(t, h.IsRunning, time.Second, time.Millisecond)
	t.Cleanup(cancel)
	return h, cancel
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case m := <-c.send:
		return m
	case <-time.After(time.Second):
		t.Fatal("no message")
		return Message{}
	}
}

func TestBroadcast(t *testing.T) {
	h, _ := runHub(t)
	a, b := testClient(h), testClient(h)
	require.True(t, h.join(a))
	require.True(t, h.join(b))
	assert.Equal(t, 2, h.ClientCount())

	require.NoError(t, h.BroadcastJSON(map[string]string{"type": "result"}))
	for _, c := range []*Client{a, b} {
		m := receive(t, c)
		assert.Equal(t, Text, m.Kind)
		assert.JSONEq(t, `{"type":"result"}`, string(m.Data))
	}

	h.BroadcastBinary([]byte{0xff, 0xd8})
	assert.Equal(t, Binary, receive(t, a).Kind)

	h.leave(a)
	assert.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)
	_, open := <-a.send
	for open {
		_, open = <-a.send
	}
}

func TestReplayLast(t *testing.T) {
	h, _ := runHub(t, WithReplayLast())
	h.BroadcastJSON("first")
	h.BroadcastJSON("second")

	// Let the loop consume both broadcasts before joining.
	require.Eventually(t, func() bool { return len(h.broadcast) == 0 }, time.Second, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	c := testClient(h)
	require.True(t, h.join(c))
	assert.Equal(t, `"second"`, string(receive(t, c).Data))
}

func TestSlowClientDropped(t *testing.T) {
	h, _ := runHub(t)
	slow := &Client{hub: h, send: make(chan Message)} // never drained
	require.True(t, h.join(slow))

	h.BroadcastBinary([]byte("frame"))
	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)
}

func TestStopClosesClients(t *testing.T) {
	h, cancel := runHub(t)
	c := testClient(h)
	require.True(t, h.join(c))

	cancel()
	<-h.Done()
	_, ok := <-c.send
	assert.False(t, ok)
	assert.False(t, h.IsRunning())
	assert.False(t, h.join(testClient(h)), "stopped hub refuses clients")
}
