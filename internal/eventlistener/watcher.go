// internal/eventlistener/watcher.go
package eventlistener

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Watcher keeps logsSubscribe subscriptions for a set of wallets alive over a
// reconnecting websocket and hands decoded creation events to a handler.
type Watcher struct {
	dialer  Dialer
	config  WatcherConfig
	handler EventHandler
	logger  *zap.Logger
	onState func(ConnState)

	// notifyMu orders state callbacks; w.mu is never held while one runs.
	notifyMu  sync.Mutex
	announced bool

	// reconnectMu admits one reconnect per connection generation.
	reconnectMu sync.Mutex

	mu         sync.Mutex
	conn       Conn
	generation uint64
	state      ConnState
	wallets    []string
	tracked    map[string]struct{}
	requestIDs map[string]uint64 // wallet -> id of the last subscribe request
	pending    map[uint64]string // request id -> wallet
	subIDs     map[string]uint64 // wallet -> server subscription id
	nextID     uint64
}

// NewWatcher creates a Watcher. handler may be nil.
func NewWatcher(dialer Dialer, cfg WatcherConfig, handler EventHandler, logger *zap.Logger) *Watcher {
	if handler == nil {
		handler = func(*CreationEvent) {}
	}
	return &Watcher{
		dialer:     dialer,
		config:     cfg.withDefaults(),
		handler:    handler,
		logger:     logger.Named("token-watcher"),
		tracked:    make(map[string]struct{}),
		requestIDs: make(map[string]uint64),
		pending:    make(map[uint64]string),
		subIDs:     make(map[string]uint64),
	}
}

// Run connects and serves until ctx ends, input yields "exit", or a duty fails
// for good. The receive, ping and input duties share one context: whichever
// returns first cancels the other two, and the connection is closed before Run
// returns. input may be nil.
func (w *Watcher) Run(ctx context.Context, input io.Reader) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Соединение закрывается при отмене, чтобы разблокировать Receive
	stop := context.AfterFunc(runCtx, w.closeConn)
	defer stop()

	if err := w.reconnect(runCtx, 0); err != nil {
		return w.runResult(ctx, err)
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return w.receiveLoop(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return w.pingLoop(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return w.inputLoop(gctx, input)
	})

	err := g.Wait()
	w.closeConn()
	return w.runResult(ctx, err)
}

func (w *Watcher) runResult(parent context.Context, err error) error {
	switch {
	case err == nil, errors.Is(err, errExitRequested):
		w.logger.Info("Watcher stopped")
		return nil
	case parent.Err() != nil:
		w.logger.Info("Watcher stopped", zap.Error(parent.Err()))
		return nil
	case errors.Is(err, context.Canceled):
		return nil
	default:
		return err
	}
}

// Subscribe starts tracking wallet. Tracking the same wallet twice is a no-op.
// When connected the subscribe request goes out immediately; otherwise it is
// sent on the next successful connect.
func (w *Watcher) Subscribe(ctx context.Context, wallet string) error {
	wallet = strings.TrimSpace(wallet)
	if _, err := solana.PublicKeyFromBase58(wallet); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidWallet, wallet, err)
	}

	w.mu.Lock()
	if _, ok := w.tracked[wallet]; ok {
		w.mu.Unlock()
		w.logger.Debug("Wallet already tracked", zap.String("wallet", wallet))
		return nil
	}
	w.tracked[wallet] = struct{}{}
	w.wallets = append(w.wallets, wallet)

	if w.state != StateConnected || w.conn == nil {
		w.mu.Unlock()
		w.logger.Info("Wallet queued until connected", zap.String("wallet", wallet))
		return nil
	}
	conn := w.conn
	req, err := w.newSubscribeLocked(wallet)
	w.mu.Unlock()
	if err != nil {
		return err
	}
	return w.sendSubscribe(ctx, conn, req)
}

// OnStateChange registers fn to be told about connects and disconnects.
// It must be called before Run.
func (w *Watcher) OnStateChange(fn func(ConnState)) {
	w.onState = fn
}

func (w *Watcher) notifyState(s ConnState) {
	if w.onState != nil {
		w.onState(s)
	}
}

// notifyConnected announces generation gen unless it was already replaced.
func (w *Watcher) notifyConnected(gen uint64) {
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()

	w.mu.Lock()
	live := w.generation == gen && w.conn != nil
	w.mu.Unlock()
	if !live {
		return
	}
	w.announced = true
	w.notifyState(StateConnected)
}

func (w *Watcher) notifyDisconnected() {
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()

	if !w.announced {
		return
	}
	w.announced = false
	w.notifyState(StateDisconnected)
}

// State returns the current connection state.
func (w *Watcher) State() ConnState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Wallets returns the tracked wallets in subscription order.
func (w *Watcher) Wallets() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.wallets...)
}

// RequestID returns the id of the latest subscribe request sent for wallet.
func (w *Watcher) RequestID(wallet string) (uint64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, ok := w.requestIDs[wallet]
	return id, ok
}

// SubscriptionID returns the server-side subscription id once confirmed.
func (w *Watcher) SubscriptionID(wallet string) (uint64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, ok := w.subIDs[wallet]
	return id, ok
}

type subscribeRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type pendingSubscribe struct {
	wallet  string
	id      uint64
	payload []byte
}

// newSubscribeLocked assigns a fresh id and records it. w.mu must be held.
func (w *Watcher) newSubscribeLocked(wallet string) (pendingSubscribe, error) {
	w.nextID++
	id := w.nextID

	payload, err := json.Marshal(subscribeRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string][]string{"mentions": {wallet}},
			map[string]string{"commitment": w.config.Commitment},
		},
	})
	if err != nil {
		return pendingSubscribe{}, fmt.Errorf("failed to marshal subscribe request: %w", err)
	}

	w.requestIDs[wallet] = id
	w.pending[id] = wallet
	return pendingSubscribe{wallet: wallet, id: id, payload: payload}, nil
}

// sendSubscribe writes req to conn. Called without w.mu: Send may block up to
// the write timeout.
func (w *Watcher) sendSubscribe(ctx context.Context, conn Conn, req pendingSubscribe) error {
	if err := conn.Send(ctx, req.payload); err != nil {
		w.logger.Warn("Failed to send subscribe request",
			zap.String("wallet", req.wallet),
			zap.Uint64("request_id", req.id),
			zap.Error(err))
		return fmt.Errorf("failed to send subscribe request: %w", err)
	}
	w.logger.Info("Subscribe request sent", zap.String("wallet", req.wallet), zap.Uint64("request_id", req.id))
	return nil
}

func (w *Watcher) current() (Conn, uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn, w.generation
}

func (w *Watcher) setState(s ConnState) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *Watcher) closeConn() {
	w.mu.Lock()
	conn := w.conn
	w.conn = nil
	w.state = StateDisconnected
	w.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
		w.notifyDisconnected()
	}
}

// reconnect replaces the connection of generation gen. If another duty already
// replaced it, reconnect returns at once. Dialing is retried with a fixed delay
// until it succeeds or ctx ends.
func (w *Watcher) reconnect(ctx context.Context, gen uint64) error {
	w.reconnectMu.Lock()
	defer w.reconnectMu.Unlock()

	w.mu.Lock()
	if w.generation != gen {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()
	w.closeConn()

	attempt := 0
	conn, err := backoff.Retry(ctx, func() (Conn, error) {
		attempt++
		w.setState(StateConnecting)
		c, err := w.dialer.Dial(ctx)
		if err != nil {
			w.setState(StateDisconnected)
			return nil, err
		}
		return c, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(w.config.ReconnectDelay)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			w.logger.Warn("Connection failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", next),
				zap.Error(err))
		}),
	)
	if err != nil {
		w.setState(StateDisconnected)
		return err
	}

	w.mu.Lock()
	if ctx.Err() != nil {
		w.state = StateDisconnected
		w.mu.Unlock()
		_ = conn.Close()
		return ctx.Err()
	}

	w.conn = conn
	w.generation++
	gen = w.generation
	w.state = StateConnected
	w.requestIDs = make(map[string]uint64)
	w.pending = make(map[uint64]string)
	w.subIDs = make(map[string]uint64)

	// Снимок запросов под локом, отправка без него
	replay := make([]pendingSubscribe, 0, len(w.wallets))
	for _, wallet := range w.wallets {
		req, err := w.newSubscribeLocked(wallet)
		if err != nil {
			w.logger.Error("Failed to build subscribe request", zap.String("wallet", wallet), zap.Error(err))
			continue
		}
		replay = append(replay, req)
	}
	w.mu.Unlock()

	w.logger.Info("Connected", zap.Uint64("generation", gen), zap.Int("wallets", len(replay)))
	w.notifyConnected(gen)

	for _, req := range replay {
		// Ошибка отправки всплывёт в receive loop и вызовет новый reconnect
		_ = w.sendSubscribe(ctx, conn, req)
	}
	return nil
}

func (w *Watcher) receiveLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		conn, gen := w.current()
		if conn == nil {
			if err := w.reconnect(ctx, gen); err != nil {
				return err
			}
			continue
		}

		msg, err := conn.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Warn("Connection lost", zap.Error(err))
			if err := w.reconnect(ctx, gen); err != nil {
				return err
			}
			continue
		}
		w.handleMessage(msg)
	}
}

func (w *Watcher) pingLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		conn, gen := w.current()
		if conn == nil {
			continue
		}
		if err := conn.Ping(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Warn("Ping failed", zap.Error(err))
			if err := w.reconnect(ctx, gen); err != nil {
				return err
			}
			continue
		}
		w.logger.Debug("Ping sent")
	}
}

// inputLoop reads one wallet per line. "exit" ends the run; end of input does not.
func (w *Watcher) inputLoop(ctx context.Context, input io.Reader) error {
	if input == nil {
		<-ctx.Done()
		return nil
	}

	lines := make(chan string)
	// Чтение блокирующее и не отменяется контекстом
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				w.logger.Debug("Input closed")
				<-ctx.Done()
				return nil
			}
			line = strings.TrimSpace(line)
			switch {
			case line == "":
				continue
			case strings.EqualFold(line, "exit"):
				w.logger.Info("Exit requested")
				return errExitRequested
			}
			if err := w.Subscribe(ctx, line); err != nil {
				w.logger.Warn("Subscribe failed", zap.String("input", line), zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleMessage(msg []byte) {
	if !gjson.ValidBytes(msg) {
		w.logger.Debug("Dropping non-JSON message", zap.Int("size", len(msg)))
		return
	}

	id := gjson.GetBytes(msg, "id")
	if id.Exists() {
		w.handleResponse(id.Uint(), msg)
		return
	}

	event, err := DecodeNotification(msg)
	if err != nil {
		w.logger.Debug("Dropping malformed event", zap.Error(err))
		return
	}
	if event == nil {
		return
	}

	w.logger.Debug("Creation event decoded", zap.String("mint", event.Mint), zap.String("signature", event.Signature))
	w.handler(event)
}

func (w *Watcher) handleResponse(id uint64, msg []byte) {
	if rpcErr := gjson.GetBytes(msg, "error"); rpcErr.Exists() {
		w.mu.Lock()
		wallet := w.pending[id]
		delete(w.pending, id)
		w.mu.Unlock()
		w.logger.Warn("Subscribe request rejected",
			zap.Uint64("request_id", id),
			zap.String("wallet", wallet),
			zap.String("error", rpcErr.Get("message").String()))
		return
	}

	result := gjson.GetBytes(msg, "result")
	w.mu.Lock()
	wallet, ok := w.pending[id]
	if ok {
		delete(w.pending, id)
		w.subIDs[wallet] = result.Uint()
	}
	w.mu.Unlock()

	if ok {
		w.logger.Info("Subscription confirmed",
			zap.String("wallet", wallet),
			zap.Uint64("subscription_id", result.Uint()))
	}
}
