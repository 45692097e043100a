package broadcast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/gesturecast/internal/gesture"
	"github.com/ayusman/gesturecast/internal/metrics"
	"github.com/ayusman/gesturecast/internal/queue"
)

type recordingSink struct {
	mu     sync.Mutex
	events []gesture.Event
}

func (s *recordingSink) Handle(e gesture.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func startBroadcaster(t *testing.T, b *Broadcaster) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestDeliver_FailedClientIsEvicted(t *testing.T) {
	before := testutil.ToFloat64(metrics.BroadcastDeliveryFailuresTotal)

	reg := NewRegistry()
	a, b, broken := &fakeConn{}, &fakeConn{}, failingConn()
	reg.Add(a)
	reg.Add(b)
	brokenClient := reg.Add(broken)

	sink := &recordingSink{}
	bc := NewBroadcaster(queue.New[gesture.Event](), reg, Options{Sinks: []Sink{sink}})

	delivered := bc.Deliver(gesture.Rotate(-25))

	assert.Equal(t, 2, delivered)
	want := []string{`{"type":"rotate","delta":-25}`}
	assert.Equal(t, want, a.received())
	assert.Equal(t, want, b.received())

	assert.Equal(t, 2, reg.Count())
	_, ok := reg.Get(brokenClient.ID)
	assert.False(t, ok)
	assert.True(t, broken.isClosed())
	assert.False(t, a.isClosed())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.BroadcastDeliveryFailuresTotal))

	assert.Equal(t, 1, sink.count())
}

// stalledConn never completes a write: it blocks until the write deadline and
// then times out, like a subscriber that stopped reading.
type stalledConn struct {
	fakeConn
}

func (c *stalledConn) WriteMessage(int, []byte) error {
	c.mu.Lock()
	deadline := c.deadline
	c.mu.Unlock()
	time.Sleep(time.Until(deadline))
	return os.ErrDeadlineExceeded
}

func TestDeliver_StalledClientsTimeOut(t *testing.T) {
	const sendTimeout = 100 * time.Millisecond

	reg := NewRegistry()
	fast := &fakeConn{}
	reg.Add(fast)
	stalled := []*stalledConn{{}, {}}
	for _, c := range stalled {
		reg.Add(c)
	}

	bc := NewBroadcaster(queue.New[gesture.Event](), reg, Options{SendTimeout: sendTimeout})

	start := time.Now()
	delivered := bc.Deliver(gesture.Zoom(40))
	elapsed := time.Since(start)

	assert.Equal(t, 1, delivered)
	assert.Equal(t, []string{`{"type":"zoom","delta":40}`}, fast.received())
	assert.GreaterOrEqual(t, elapsed, sendTimeout-10*time.Millisecond)
	assert.Less(t, elapsed, 2*sendTimeout, "stalled writes run concurrently, each bounded by the send timeout")

	assert.Equal(t, 1, reg.Count())
	for _, c := range stalled {
		assert.True(t, c.isClosed())
	}
	assert.False(t, fast.isClosed())
}

func TestDeliver_NoClientsStillReachesSinks(t *testing.T) {
	sink := &recordingSink{}
	bc := NewBroadcaster(queue.New[gesture.Event](), NewRegistry(), Options{Sinks: []Sink{sink}})

	assert.Equal(t, 0, bc.Deliver(gesture.Pan(30, 0)))
	assert.Equal(t, 1, sink.count())
}

func TestDeliver_UnknownKindIsDropped(t *testing.T) {
	reg := NewRegistry()
	conn := &fakeConn{}
	reg.Add(conn)
	sink := &recordingSink{}
	bc := NewBroadcaster(queue.New[gesture.Event](), reg, Options{Sinks: []Sink{sink}})

	assert.Equal(t, 0, bc.Deliver(gesture.Event{Kind: "wave"}))
	assert.Empty(t, conn.received())
	assert.Equal(t, 0, sink.count())
}

func TestRun_DeliversInOrder(t *testing.T) {
	q := queue.New[gesture.Event]()
	reg := NewRegistry()
	conn := &fakeConn{}
	reg.Add(conn)

	q.Enqueue(gesture.Pan(0, 40))
	q.Enqueue(gesture.Zoom(40))
	q.Enqueue(gesture.Rotate(-60))

	startBroadcaster(t, NewBroadcaster(q, reg, Options{PollInterval: time.Millisecond}))

	require.Eventually(t, func() bool { return len(conn.received()) == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{
		`{"type":"pan","dx":0,"dy":40}`,
		`{"type":"zoom","delta":40}`,
		`{"type":"rotate","delta":-60}`,
	}, conn.received())
	assert.Equal(t, 0, q.Len())
}

func TestRun_PollsAfterInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	q := queue.New[gesture.Event]()
	reg := NewRegistry()
	conn := &fakeConn{}
	reg.Add(conn)

	startBroadcaster(t, NewBroadcaster(q, reg, Options{PollInterval: 10 * time.Millisecond, Clock: clock}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1), "broadcaster should be waiting on an empty queue")

	q.Enqueue(gesture.Zoom(40))
	assert.Empty(t, conn.received(), "nothing is sent before the poll interval elapses")

	clock.Advance(10 * time.Millisecond)

	require.Eventually(t, func() bool { return len(conn.received()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, `{"type":"zoom","delta":40}`, conn.received()[0])
}

func TestRun_StopsOnCancel(t *testing.T) {
	bc := NewBroadcaster(queue.New[gesture.Event](), NewRegistry(), Options{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		bc.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_WebSocketSubscribers(t *testing.T) {
	q := queue.New[gesture.Event]()
	reg := NewRegistry()
	startBroadcaster(t, NewBroadcaster(q, reg, Options{PollInterval: time.Millisecond}))

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := reg.Add(conn)
		go func() {
			defer func() {
				if reg.Remove(c.ID) {
					conn.Close()
				}
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}))
	t.Cleanup(server.Close)
	t.Cleanup(reg.CloseAll)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	dial := func() *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}

	c1, c2 := dial(), dial()
	require.Eventually(t, func() bool { return reg.Count() == 2 }, 2*time.Second, 5*time.Millisecond)

	q.Enqueue(gesture.Pan(0, 40))

	for _, c := range []*websocket.Conn{c1, c2} {
		require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
		mt, data, err := c.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, mt)
		assert.JSONEq(t, `{"type":"pan","dx":0,"dy":40}`, string(data))
	}

	// A disconnected subscriber is dropped; the other keeps receiving.
	c1.Close()
	require.Eventually(t, func() bool { return reg.Count() == 1 }, 2*time.Second, 5*time.Millisecond)

	q.Enqueue(gesture.Zoom(-21))
	_, data, err := c2.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"zoom","delta":-21}`, string(data))
}
