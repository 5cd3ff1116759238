// internal/eventlistener/ws.go
package eventlistener

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// Conn is one streaming connection to the cluster.
type Conn interface {
	Send(ctx context.Context, msg []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Ping(ctx context.Context) error
	Close() error
}

// Dialer opens a new Conn.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// WSDialer dials a Solana websocket RPC endpoint with gorilla/websocket.
type WSDialer struct {
	URL    string
	Header http.Header
	// ReadTimeout bounds the silence between frames; pongs extend it. Zero disables it.
	ReadTimeout time.Duration

	dialer *websocket.Dialer
}

// NewWSDialer creates a dialer for url.
func NewWSDialer(url string, readTimeout time.Duration) *WSDialer {
	return &WSDialer{
		URL:         url,
		ReadTimeout: readTimeout,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 15 * time.Second,
		},
	}
}

// Dial connects and installs the pong handler.
func (d *WSDialer) Dial(ctx context.Context) (Conn, error) {
	dialer := d.dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, d.URL, d.Header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to websocket %s: %w", d.URL, err)
	}

	c := &wsConn{conn: conn, readTimeout: d.ReadTimeout}
	conn.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})
	return c, nil
}

type wsConn struct {
	conn        *websocket.Conn
	readTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (c *wsConn) Send(ctx context.Context, msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(writeDeadline(ctx))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Receive blocks until a data frame arrives. It is unblocked by Close, not by ctx.
func (c *wsConn) Receive(_ context.Context) ([]byte, error) {
	c.extendReadDeadline()
	_, msg, err := c.conn.ReadMessage()
	return msg, err
}

func (c *wsConn) Ping(ctx context.Context) error {
	return c.conn.WriteControl(websocket.PingMessage, nil, writeDeadline(ctx))
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *wsConn) extendReadDeadline() {
	if c.readTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
}

func writeDeadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		return d
	}
	return deadline
}
