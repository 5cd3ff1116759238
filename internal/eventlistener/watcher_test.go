// internal/eventlistener/watcher_test.go
package eventlistener

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap/zaptest"
)

var errConnLost = errors.New("connection lost")

type fakeConn struct {
	in     chan []byte
	broken chan struct{}
	closed chan struct{}

	mu        sync.Mutex
	sent      [][]byte
	pings     int
	breakOnce sync.Once
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 16),
		broken: make(chan struct{}),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Send(_ context.Context, msg []byte) error {
	select {
	case <-c.closed:
		return errConnLost
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, append([]byte(nil), msg...))
	return nil
}

func (c *fakeConn) Receive(_ context.Context) ([]byte, error) {
	select {
	case msg := <-c.in:
		return msg, nil
	case <-c.broken:
		return nil, errConnLost
	case <-c.closed:
		return nil, errConnLost
	}
}

func (c *fakeConn) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pings++
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) breakConn() {
	c.breakOnce.Do(func() { close(c.broken) })
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// sentRequests returns (id, wallet) of each subscribe request sent so far.
func (c *fakeConn) sentRequests() []sentRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []sentRequest
	for _, msg := range c.sent {
		out = append(out, sentRequest{
			ID:         gjson.GetBytes(msg, "id").Uint(),
			Method:     gjson.GetBytes(msg, "method").String(),
			Wallet:     gjson.GetBytes(msg, "params.0.mentions.0").String(),
			Commitment: gjson.GetBytes(msg, "params.1.commitment").String(),
		})
	}
	return out
}

type sentRequest struct {
	ID         uint64
	Method     string
	Wallet     string
	Commitment string
}

type fakeDialer struct {
	mu       sync.Mutex
	failures int
	dials    int
	conns    []*fakeConn
}

func (d *fakeDialer) Dial(context.Context) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("dial refused")
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.conns) {
		return nil
	}
	return d.conns[i]
}

func (d *fakeDialer) connCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func testConfig() WatcherConfig {
	return WatcherConfig{
		ReconnectDelay: 10 * time.Millisecond,
		PingInterval:   time.Hour,
		Commitment:     "finalized",
	}
}

func newWallet() string {
	return solana.NewWallet().PublicKey().String()
}

type runHandle struct {
	cancel context.CancelFunc
	done   chan error
}

func startWatcher(t *testing.T, w *Watcher, input string) *runHandle {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := &runHandle{cancel: cancel, done: make(chan error, 1)}

	var reader *strings.Reader
	if input != "" {
		reader = strings.NewReader(input)
	}
	go func() {
		if reader == nil {
			h.done <- w.Run(ctx, nil)
			return
		}
		h.done <- w.Run(ctx, reader)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	return h
}

func (h *runHandle) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.done:
		h.done <- err
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
		return nil
	}
}

func TestWatcher_SubscribeInvalidWallet(t *testing.T) {
	w := NewWatcher(&fakeDialer{}, testConfig(), nil, zaptest.NewLogger(t))

	err := w.Subscribe(context.Background(), "not-a-wallet")
	assert.ErrorIs(t, err, ErrInvalidWallet)
	assert.Empty(t, w.Wallets())
}

func TestWatcher_SubscribeQueuedAndIdempotent(t *testing.T) {
	w := NewWatcher(&fakeDialer{}, testConfig(), nil, zaptest.NewLogger(t))
	wallet := newWallet()

	require.NoError(t, w.Subscribe(context.Background(), wallet))
	require.NoError(t, w.Subscribe(context.Background(), " "+wallet+" "))

	assert.Equal(t, []string{wallet}, w.Wallets())
	assert.Equal(t, StateDisconnected, w.State())
	_, sent := w.RequestID(wallet)
	assert.False(t, sent)
}

func TestWatcher_SubscribesOnConnect(t *testing.T) {
	dialer := &fakeDialer{}
	w := NewWatcher(dialer, testConfig(), nil, zaptest.NewLogger(t))
	w1, w2 := newWallet(), newWallet()
	require.NoError(t, w.Subscribe(context.Background(), w1))
	require.NoError(t, w.Subscribe(context.Background(), w2))

	startWatcher(t, w, "")

	require.Eventually(t, func() bool {
		c := dialer.conn(0)
		return c != nil && len(c.sentRequests()) == 2
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, StateConnected, w.State())
	assert.Equal(t, []sentRequest{
		{ID: 1, Method: "logsSubscribe", Wallet: w1, Commitment: "finalized"},
		{ID: 2, Method: "logsSubscribe", Wallet: w2, Commitment: "finalized"},
	}, dialer.conn(0).sentRequests())
}

func TestWatcher_SubscribeWhileConnected(t *testing.T) {
	dialer := &fakeDialer{}
	w := NewWatcher(dialer, testConfig(), nil, zaptest.NewLogger(t))
	startWatcher(t, w, "")

	require.Eventually(t, func() bool { return w.State() == StateConnected }, time.Second, 5*time.Millisecond)

	wallet := newWallet()
	require.NoError(t, w.Subscribe(context.Background(), wallet))
	require.NoError(t, w.Subscribe(context.Background(), wallet))

	reqs := dialer.conn(0).sentRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, wallet, reqs[0].Wallet)
	id, ok := w.RequestID(wallet)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), id)
}

func TestWatcher_ReconnectReplaysWithFreshIDs(t *testing.T) {
	dialer := &fakeDialer{}
	w := NewWatcher(dialer, testConfig(), nil, zaptest.NewLogger(t))
	w1, w2 := newWallet(), newWallet()
	require.NoError(t, w.Subscribe(context.Background(), w1))
	require.NoError(t, w.Subscribe(context.Background(), w2))

	startWatcher(t, w, "")

	require.Eventually(t, func() bool {
		c := dialer.conn(0)
		return c != nil && len(c.sentRequests()) == 2
	}, time.Second, 5*time.Millisecond)

	first := dialer.conn(0)
	first.in <- []byte(`{"jsonrpc":"2.0","result":900,"id":1}`)
	require.Eventually(t, func() bool {
		_, ok := w.SubscriptionID(w1)
		return ok
	}, time.Second, 5*time.Millisecond)

	first.breakConn()

	require.Eventually(t, func() bool {
		c := dialer.conn(1)
		return c != nil && len(c.sentRequests()) == 2
	}, time.Second, 5*time.Millisecond)

	assert.True(t, first.isClosed())
	assert.Equal(t, []sentRequest{
		{ID: 3, Method: "logsSubscribe", Wallet: w1, Commitment: "finalized"},
		{ID: 4, Method: "logsSubscribe", Wallet: w2, Commitment: "finalized"},
	}, dialer.conn(1).sentRequests())

	id1, _ := w.RequestID(w1)
	id2, _ := w.RequestID(w2)
	assert.Equal(t, uint64(3), id1)
	assert.Equal(t, uint64(4), id2)

	// Подтверждения старого соединения сброшены
	_, ok := w.SubscriptionID(w1)
	assert.False(t, ok)
	assert.Equal(t, []string{w1, w2}, w.Wallets())
}

func TestWatcher_RetriesDial(t *testing.T) {
	dialer := &fakeDialer{failures: 2}
	w := NewWatcher(dialer, testConfig(), nil, zaptest.NewLogger(t))
	startWatcher(t, w, "")

	require.Eventually(t, func() bool { return w.State() == StateConnected }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, dialer.dialCount())
	assert.Equal(t, 1, dialer.connCount())
}

func TestWatcher_SubscriptionConfirmed(t *testing.T) {
	dialer := &fakeDialer{}
	w := NewWatcher(dialer, testConfig(), nil, zaptest.NewLogger(t))
	wallet := newWallet()
	require.NoError(t, w.Subscribe(context.Background(), wallet))

	startWatcher(t, w, "")
	require.Eventually(t, func() bool { return dialer.conn(0) != nil }, time.Second, 5*time.Millisecond)

	dialer.conn(0).in <- []byte(`{"jsonrpc":"2.0","result":555,"id":1}`)

	require.Eventually(t, func() bool {
		id, ok := w.SubscriptionID(wallet)
		return ok && id == 555
	}, time.Second, 5*time.Millisecond)
}

func TestWatcher_DeliversEvents(t *testing.T) {
	dialer := &fakeDialer{}
	events := make(chan *CreationEvent, 4)
	w := NewWatcher(dialer, testConfig(), func(e *CreationEvent) { events <- e }, zaptest.NewLogger(t))

	startWatcher(t, w, "")
	require.Eventually(t, func() bool { return dialer.conn(0) != nil }, time.Second, 5*time.Millisecond)

	k := newTestKeys()
	conn := dialer.conn(0)
	conn.in <- []byte("garbage")
	conn.in <- []byte(`{"jsonrpc":"2.0","method":"logsNotification","params":{"result":{"value":{"signature":"s","logs":["Program log: Instruction: Create","Program data: AAAA"]}}}}`)
	conn.in <- notification(t, "sigA", createLogs(encodeCreateEvent("Frog", "FRG", "uri", k)))

	select {
	case e := <-events:
		assert.Equal(t, "sigA", e.Signature)
		assert.Equal(t, "Frog", e.Name)
		assert.Equal(t, k.mint.String(), e.Mint)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
	assert.Empty(t, events)
}

func TestWatcher_ExitInput(t *testing.T) {
	dialer := &fakeDialer{}
	w := NewWatcher(dialer, testConfig(), nil, zaptest.NewLogger(t))
	wallet := newWallet()

	h := startWatcher(t, w, "\n"+wallet+"\nbogus\nEXIT\n")

	require.NoError(t, h.wait(t))
	assert.Equal(t, []string{wallet}, w.Wallets())
	require.Equal(t, 1, dialer.connCount())
	assert.True(t, dialer.conn(0).isClosed())
	assert.Equal(t, StateDisconnected, w.State())
}

func TestWatcher_ContextCancel(t *testing.T) {
	dialer := &fakeDialer{}
	w := NewWatcher(dialer, testConfig(), nil, zaptest.NewLogger(t))

	h := startWatcher(t, w, "")
	require.Eventually(t, func() bool { return w.State() == StateConnected }, time.Second, 5*time.Millisecond)

	h.cancel()
	require.NoError(t, h.wait(t))
	assert.True(t, dialer.conn(0).isClosed())
}

func TestWatcher_InputEOFKeepsRunning(t *testing.T) {
	dialer := &fakeDialer{}
	w := NewWatcher(dialer, testConfig(), nil, zaptest.NewLogger(t))
	wallet := newWallet()

	h := startWatcher(t, w, wallet+"\n")
	require.Eventually(t, func() bool {
		_, ok := w.RequestID(wallet)
		return ok
	}, time.Second, 5*time.Millisecond)

	select {
	case <-h.done:
		t.Fatal("watcher stopped on end of input")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, StateConnected, w.State())
}

func TestWatcher_PingsConnection(t *testing.T) {
	dialer := &fakeDialer{}
	cfg := testConfig()
	cfg.PingInterval = 10 * time.Millisecond
	w := NewWatcher(dialer, cfg, nil, zaptest.NewLogger(t))

	startWatcher(t, w, "")
	require.Eventually(t, func() bool {
		c := dialer.conn(0)
		if c == nil {
			return false
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.pings >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestWatcher_StateNotifications(t *testing.T) {
	dialer := &fakeDialer{}
	w := NewWatcher(dialer, testConfig(), nil, zaptest.NewLogger(t))

	var mu sync.Mutex
	var states []ConnState
	w.OnStateChange(func(s ConnState) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	h := startWatcher(t, w, "")
	require.Eventually(t, func() bool { return dialer.conn(0) != nil }, time.Second, 5*time.Millisecond)

	dialer.conn(0).breakConn()
	require.Eventually(t, func() bool { return dialer.connCount() == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) == 3
	}, time.Second, 5*time.Millisecond)

	h.cancel()
	require.NoError(t, h.wait(t))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []ConnState{StateConnected, StateDisconnected, StateConnected, StateDisconnected}, states)
}

func TestWatcher_StateCallbackMayQueryWatcher(t *testing.T) {
	dialer := &fakeDialer{}
	w := NewWatcher(dialer, testConfig(), nil, zaptest.NewLogger(t))
	wallet := newWallet()
	require.NoError(t, w.Subscribe(context.Background(), wallet))

	type snapshot struct {
		state   ConnState
		wallets []string
		reqID   uint64
	}
	seen := make(chan snapshot, 8)
	w.OnStateChange(func(ConnState) {
		id, _ := w.RequestID(wallet)
		_, _ = w.SubscriptionID(wallet)
		seen <- snapshot{state: w.State(), wallets: w.Wallets(), reqID: id}
	})

	h := startWatcher(t, w, "")

	select {
	case got := <-seen:
		assert.Equal(t, StateConnected, got.state)
		assert.Equal(t, []string{wallet}, got.wallets)
		assert.Equal(t, uint64(1), got.reqID)
	case <-time.After(time.Second):
		t.Fatal("state callback never returned")
	}

	h.cancel()
	require.NoError(t, h.wait(t))

	select {
	case got := <-seen:
		assert.Equal(t, StateDisconnected, got.state)
	case <-time.After(time.Second):
		t.Fatal("no disconnect notification")
	}
}

// slowConn blocks every Send until release is closed.
type slowConn struct {
	*fakeConn
	entered chan struct{}
	release chan struct{}
}

func (c *slowConn) Send(ctx context.Context, msg []byte) error {
	c.entered <- struct{}{}
	select {
	case <-c.release:
		return c.fakeConn.Send(ctx, msg)
	case <-ctx.Done():
		return ctx.Err()
	}
}

type dialerFunc func(ctx context.Context) (Conn, error)

func (f dialerFunc) Dial(ctx context.Context) (Conn, error) { return f(ctx) }

func TestWatcher_PendingSendDoesNotBlockAccessors(t *testing.T) {
	conn := &slowConn{fakeConn: newFakeConn(), entered: make(chan struct{}, 8), release: make(chan struct{})}
	w := NewWatcher(dialerFunc(func(context.Context) (Conn, error) { return conn, nil }),
		testConfig(), nil, zaptest.NewLogger(t))
	first := newWallet()
	require.NoError(t, w.Subscribe(context.Background(), first))

	startWatcher(t, w, "")

	select {
	case <-conn.entered:
	case <-time.After(time.Second):
		t.Fatal("subscribe request was never sent")
	}

	// replay висит в Send, а watcher продолжает отвечать
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.Equal(t, StateConnected, w.State())
		assert.Equal(t, []string{first}, w.Wallets())
		id, ok := w.RequestID(first)
		assert.True(t, ok)
		assert.Equal(t, uint64(1), id)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("accessors blocked behind a pending send")
	}

	close(conn.release)
	require.Eventually(t, func() bool { return len(conn.sentRequests()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, first, conn.sentRequests()[0].Wallet)
}
