// internal/eventlistener/types.go
package eventlistener

import (
	"errors"
	"time"
)

// CreationEvent is a decoded pump.fun "token created" event.
type CreationEvent struct {
	Signature    string `json:"signature"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	URI          string `json:"uri"`
	Mint         string `json:"mint"`
	BondingCurve string `json:"bonding_curve"`
	User         string `json:"user"`
	Creator      string `json:"creator"`
}

// EventHandler receives every decoded creation event. It runs on the receive
// loop and should return quickly.
type EventHandler func(event *CreationEvent)

// ConnState of the watcher's connection.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

var (
	// ErrMalformedEvent means a log payload could not be parsed; the event is dropped.
	ErrMalformedEvent = errors.New("malformed create event")
	ErrInvalidWallet  = errors.New("invalid wallet address")
	errExitRequested  = errors.New("exit requested")
)

const (
	DefaultReconnectDelay = 5 * time.Second
	DefaultPingInterval   = 60 * time.Second
	DefaultCommitment     = "finalized"
)

// WatcherConfig holds watcher timing and subscription settings.
type WatcherConfig struct {
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	Commitment     string
}

func (c WatcherConfig) withDefaults() WatcherConfig {
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.Commitment == "" {
		c.Commitment = DefaultCommitment
	}
	return c
}
