// Package wsclient is the consumer side of the realtime alert feed: it
// maintains one persistent connection, re-authenticates and replays its
// channel subscriptions after every reconnect, and sends periodic
// heartbeat pings.
package wsclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/pkg/wire"

	"github.com/cenkalti/backoff/v4"
)

// State is the reconnection controller's state machine.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	// ErrMaxReconnectAttempts is terminal: no further automatic attempts
	// occur until a manual Reconnect.
	ErrMaxReconnectAttempts = errors.New("max reconnect attempts exceeded")

	ErrClientClosed = errors.New("client closed")
)

// Config holds connection parameters. Zero values get sensible defaults.
type Config struct {
	URL      string
	TenantID string
	UserID   string
	Token    string

	MaxReconnectAttempts int
	HeartbeatInterval    time.Duration
	HandshakeTimeout     time.Duration
	InitialBackoff       time.Duration
	MaxBackoff           time.Duration

	Dialer        Dialer
	OnMessage     func(wire.Envelope)
	OnStateChange func(State, error)
}

func (cfg Config) withDefaults() Config {
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = 5
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 15 * time.Second
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &websocketDialer{handshakeTimeout: cfg.HandshakeTimeout}
	}
	return cfg
}

// Client is a reconnecting realtime consumer. All transport events are
// processed by a single event loop; user-facing calls only touch the
// desired-subscription set and serialized writes.
type Client struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	conn     Conn
	desired  map[wire.Channel]struct{}
	attempts int
	running  bool

	writeMu sync.Mutex
}

func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("wsclient: URL is required")
	}
	if cfg.TenantID == "" {
		return nil, fmt.Errorf("wsclient: TenantID is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		cfg:     cfg.withDefaults(),
		ctx:     ctx,
		cancel:  cancel,
		state:   StateIdle,
		desired: make(map[wire.Channel]struct{}),
	}, nil
}

// Connect starts the controller. It returns immediately; connection progress
// is reported through OnStateChange.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.mu.Unlock()

	go c.run()
	return nil
}

// Reconnect resets the attempt counter after a terminal failure and restarts
// from Idle.
func (c *Client) Reconnect() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.attempts = 0
	c.state = StateIdle
	c.running = true
	c.mu.Unlock()

	go c.run()
	return nil
}

// Close tears the client down. Pending reconnect and heartbeat timers are
// cancelled; none fire afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosed
	conn := c.conn
	cb := c.cfg.OnStateChange
	c.mu.Unlock()

	c.cancel()
	if conn != nil {
		conn.Close()
	}
	if cb != nil {
		cb(StateClosed, nil)
	}
	return nil
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe adds a channel to the desired set. Server-side subscriptions are
// session-scoped, so the set is replayed after every reconnect.
func (c *Client) Subscribe(channel string) error {
	ch, err := wire.ParseChannel(channel)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.desired[ch] = struct{}{}
	conn := c.conn
	state := c.state
	c.mu.Unlock()

	if state == StateConnected && conn != nil {
		return c.writeTo(conn, wire.TypeSubscribe, wire.SubscribePayload{Channel: string(ch)})
	}
	return nil
}

func (c *Client) Unsubscribe(channel string) error {
	ch, err := wire.ParseChannel(channel)
	if err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.desired, ch)
	conn := c.conn
	state := c.state
	c.mu.Unlock()

	if state == StateConnected && conn != nil {
		return c.writeTo(conn, wire.TypeUnsubscribe, wire.SubscribePayload{Channel: string(ch)})
	}
	return nil
}

// Channels returns the desired subscription set in stable order.
func (c *Client) Channels() []wire.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]wire.Channel, 0, len(c.desired))
	for ch := range c.desired {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// run is the controller loop: dial, handshake, pump, and retry with capped
// exponential backoff until Closed or Failed.
func (c *Client) run() {
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	bo := c.newBackoff()

	for {
		if c.ctx.Err() != nil {
			return
		}

		c.setState(StateConnecting, nil)

		conn, err := c.cfg.Dialer.DialContext(c.ctx, c.cfg.URL)
		var replayed []wire.Channel
		if err == nil {
			replayed, err = c.handshake(conn)
			if err != nil {
				conn.Close()
			}
		}
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			if !c.scheduleRetry(bo, err) {
				return
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.attempts = 0
		c.mu.Unlock()
		bo.Reset()
		c.setState(StateConnected, nil)
		c.flushSubscriptions(conn, replayed)

		c.pump(conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()

		if c.ctx.Err() != nil {
			return
		}

		c.setState(StateReconnecting, nil)
		if !c.wait(bo) {
			return
		}
	}
}

// handshake authenticates and then replays the desired channel set, in that
// order, on a fresh connection. It returns the channels it replayed so the
// controller can reconcile subscriptions added while it ran.
func (c *Client) handshake(conn Conn) ([]wire.Channel, error) {
	auth, err := wire.NewEnvelope(wire.TypeAuth, wire.AuthPayload{
		TenantID: c.cfg.TenantID,
		UserID:   c.cfg.UserID,
		Token:    c.cfg.Token,
	})
	if err != nil {
		return nil, err
	}
	if err := c.writeEnvelope(conn, auth); err != nil {
		return nil, fmt.Errorf("auth write failed: %w", err)
	}

	type readResult struct {
		env wire.Envelope
		err error
	}
	results := make(chan readResult, 1)
	go func() {
		for {
			env, err := conn.ReadEnvelope()
			if err != nil {
				results <- readResult{err: err}
				return
			}
			// The server greets with a connection frame before auth settles.
			if env.Type == wire.TypeConnection {
				continue
			}
			results <- readResult{env: env}
			return
		}
	}()

	timer := time.NewTimer(c.cfg.HandshakeTimeout)
	defer timer.Stop()

	select {
	case r := <-results:
		if r.err != nil {
			return nil, fmt.Errorf("auth read failed: %w", r.err)
		}
		switch r.env.Type {
		case wire.TypeAuthSuccess:
		case wire.TypeError:
			var p wire.ErrorPayload
			r.env.Decode(&p)
			return nil, fmt.Errorf("auth rejected: %s", p.Message)
		default:
			return nil, fmt.Errorf("unexpected handshake reply %q", r.env.Type)
		}
	case <-timer.C:
		return nil, fmt.Errorf("auth handshake timed out")
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}

	replayed := c.Channels()
	for _, ch := range replayed {
		if err := c.writeTo(conn, wire.TypeSubscribe, wire.SubscribePayload{Channel: string(ch)}); err != nil {
			return nil, fmt.Errorf("subscription replay failed: %w", err)
		}
	}

	return replayed, nil
}

// flushSubscriptions writes subscribe frames for channels added to the
// desired set while the handshake replay ran. The server treats duplicate
// subscribes as no-ops, so racing with a concurrent Subscribe is safe.
func (c *Client) flushSubscriptions(conn Conn, replayed []wire.Channel) {
	sent := make(map[wire.Channel]struct{}, len(replayed))
	for _, ch := range replayed {
		sent[ch] = struct{}{}
	}

	for _, ch := range c.Channels() {
		if _, ok := sent[ch]; ok {
			continue
		}
		if err := c.writeTo(conn, wire.TypeSubscribe, wire.SubscribePayload{Channel: string(ch)}); err != nil {
			return
		}
	}
}

// pump is the single event loop for one live connection: inbound frames,
// heartbeat ticks, and teardown, processed one at a time.
func (c *Client) pump(conn Conn) {
	msgs := make(chan wire.Envelope)
	readErr := make(chan error, 1)

	go func() {
		for {
			env, err := conn.ReadEnvelope()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case msgs <- env:
			case <-c.ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return

		case <-readErr:
			return

		case env := <-msgs:
			if env.Type == wire.TypePong {
				continue
			}
			if c.cfg.OnMessage != nil {
				c.cfg.OnMessage(env)
			}

		case <-ticker.C:
			ping, err := wire.NewEnvelope(wire.TypePing, nil)
			if err != nil {
				continue
			}
			if err := c.writeEnvelope(conn, ping); err != nil {
				return
			}
		}
	}
}

// scheduleRetry counts a failed connection attempt; at the configured
// maximum the controller parks in Failed.
func (c *Client) scheduleRetry(bo backoff.BackOff, cause error) bool {
	c.mu.Lock()
	c.attempts++
	attempts := c.attempts
	c.mu.Unlock()

	if attempts >= c.cfg.MaxReconnectAttempts {
		c.setState(StateFailed, ErrMaxReconnectAttempts)
		return false
	}

	c.setState(StateReconnecting, cause)
	return c.wait(bo)
}

func (c *Client) wait(bo backoff.BackOff) bool {
	delay := bo.NextBackOff()
	if delay == backoff.Stop {
		delay = c.cfg.MaxBackoff
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *Client) newBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialBackoff
	bo.MaxInterval = c.cfg.MaxBackoff
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

func (c *Client) writeTo(conn Conn, msgType string, payload interface{}) error {
	env, err := wire.NewEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	return c.writeEnvelope(conn, env)
}

func (c *Client) writeEnvelope(conn Conn, env wire.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteEnvelope(env)
}

func (c *Client) setState(state State, err error) {
	c.mu.Lock()
	if c.state == StateClosed || c.state == state {
		c.mu.Unlock()
		return
	}
	c.state = state
	cb := c.cfg.OnStateChange
	c.mu.Unlock()

	if cb != nil {
		cb(state, err)
	}
}
