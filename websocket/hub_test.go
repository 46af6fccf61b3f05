package websocket

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anjiri1684/skillazon/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu      sync.Mutex
	got     []interface{}
	fail    bool
	closed  bool
	block   chan struct{}
	writing int32
	overlap atomic.Bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	if atomic.AddInt32(&c.writing, 1) != 1 {
		c.overlap.Store(true)
	}
	defer atomic.AddInt32(&c.writing, -1)
	if c.block != nil {
		<-c.block
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.got = append(c.got, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) frames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}

func (c *fakeConn) received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, v := range c.got {
		if m, ok := v.(*models.Message); ok {
			out = append(out, m.Content)
		}
	}
	return out
}

type loopbackRelay struct {
	mu      sync.Mutex
	deliver func(*models.Message)
	ready   chan struct{}
}

func (r *loopbackRelay) Publish(_ context.Context, msg *models.Message) error {
	<-r.ready
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliver(msg)
	return nil
}

func (r *loopbackRelay) Subscribe(ctx context.Context, deliver func(*models.Message)) error {
	r.mu.Lock()
	r.deliver = deliver
	r.mu.Unlock()
	close(r.ready)
	<-ctx.Done()
	return ctx.Err()
}

func startHub(t *testing.T, relay Relay) (*Hub, context.CancelFunc, <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := NewHub(relay)
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	return h, cancel, stopped
}

func connect(t *testing.T, h *Hub, conn *fakeConn) *Client {
	t.Helper()
	c := NewClient(uuid.New(), conn)
	go c.WritePump()
	t.Cleanup(c.Close)
	h.Register(c)
	return c
}

func TestHub_RoomBroadcastSkipsSender(t *testing.T) {
	h, _, _ := startHub(t, nil)
	aliceConn, bobConn, carolConn := &fakeConn{}, &fakeConn{}, &fakeConn{}
	alice := connect(t, h, aliceConn)
	bob := connect(t, h, bobConn)
	connect(t, h, carolConn)
	h.Join(alice, "booking:1")
	h.Join(bob, "booking:1")

	h.Broadcast(context.Background(), &models.Message{ID: uuid.New(), Room: "booking:1", SenderID: alice.UserID, Content: "hello"})

	assert.Eventually(t, func() bool {
		return len(bobConn.received()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Empty(t, aliceConn.received())
	assert.Empty(t, carolConn.received())
}

func TestHub_DirectMessage(t *testing.T) {
	h, _, _ := startHub(t, nil)
	alice := connect(t, h, &fakeConn{})
	bobConn := &fakeConn{}
	bob := connect(t, h, bobConn)

	h.Broadcast(context.Background(), &models.Message{ID: uuid.New(), SenderID: alice.UserID, RecipientID: &bob.UserID, Content: "psst"})

	assert.Eventually(t, func() bool {
		got := bobConn.received()
		return len(got) == 1 && got[0] == "psst"
	}, time.Second, 10*time.Millisecond)
}

func TestHub_DropsBrokenConnections(t *testing.T) {
	h, _, _ := startHub(t, nil)
	sender := connect(t, h, &fakeConn{})
	broken := &fakeConn{fail: true}
	victim := connect(t, h, broken)

	h.Broadcast(context.Background(), &models.Message{ID: uuid.New(), SenderID: sender.UserID, RecipientID: &victim.UserID, Content: "x"})

	assert.Eventually(t, broken.isClosed, time.Second, 10*time.Millisecond)
	assert.False(t, victim.Send("after close"))
}

func TestHub_DeliversThroughRelay(t *testing.T) {
	relay := &loopbackRelay{ready: make(chan struct{})}
	h, _, _ := startHub(t, relay)
	bobConn := &fakeConn{}
	bob := connect(t, h, bobConn)
	h.Join(bob, "lobby")

	h.Broadcast(context.Background(), &models.Message{ID: uuid.New(), Room: "lobby", SenderID: uuid.New(), Content: "via relay"})

	require.Eventually(t, func() bool {
		return len(bobConn.received()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestClient_SingleWriterUnderConcurrentSends(t *testing.T) {
	h, _, _ := startHub(t, nil)
	sender := connect(t, h, &fakeConn{})
	conn := &fakeConn{}
	target := connect(t, h, conn)

	const each = 25
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < each; i++ {
			target.Send(map[string]string{"error": "Unknown frame type"})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < each; i++ {
			h.Broadcast(context.Background(), &models.Message{ID: uuid.New(), SenderID: sender.UserID, RecipientID: &target.UserID, Content: "dm"})
		}
	}()
	wg.Wait()

	require.Eventually(t, func() bool {
		return conn.frames() == 2*each
	}, time.Second, 10*time.Millisecond)
	assert.False(t, conn.overlap.Load(), "two writes reached the connection at once")
}

func TestHub_SlowClientDoesNotStallOthers(t *testing.T) {
	h, _, _ := startHub(t, nil)
	sender := connect(t, h, &fakeConn{})
	stuck := &fakeConn{block: make(chan struct{})}
	defer close(stuck.block)
	slow := connect(t, h, stuck)
	fastConn := &fakeConn{}
	fast := connect(t, h, fastConn)

	for i := 0; i < clientSendBuffer+2; i++ {
		h.Broadcast(context.Background(), &models.Message{ID: uuid.New(), SenderID: sender.UserID, RecipientID: &slow.UserID, Content: "backlog"})
	}
	h.Broadcast(context.Background(), &models.Message{ID: uuid.New(), SenderID: sender.UserID, RecipientID: &fast.UserID, Content: "still here"})

	assert.Eventually(t, func() bool {
		got := fastConn.received()
		return len(got) == 1 && got[0] == "still here"
	}, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return !slow.Send("more")
	}, time.Second, 10*time.Millisecond)
}

func TestHub_CallsReturnAfterShutdown(t *testing.T) {
	h, cancel, stopped := startHub(t, nil)
	conn := &fakeConn{}
	c := connect(t, h, conn)

	cancel()
	<-stopped
	assert.Eventually(t, conn.isClosed, time.Second, 10*time.Millisecond)

	finished := make(chan struct{})
	go func() {
		h.Register(c)
		h.Join(c, "booking:1")
		h.Unregister(c)
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("hub calls blocked after Run returned")
	}
}
