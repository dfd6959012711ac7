package realtime

import (
	"sort"
	"sync"
	"time"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/pkg/wire"

	"github.com/google/uuid"
)

// State is the per-session auth state machine.
type State int

const (
	StateConnected State = iota
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Transport owns the close primitive of the underlying connection. Sends go
// through the session's outbound queue, drained by the transport's writer.
type Transport interface {
	Close() error
}

// Session is one persistent client connection, owned by the registry while
// connected. The tenant binding, once set, never changes.
type Session struct {
	ID string

	mu           sync.Mutex
	state        State
	tenantID     string
	userID       string
	channels     map[wire.Channel]struct{}
	lastActivity time.Time
	failures     int

	send      chan wire.Envelope
	closed    chan struct{}
	closeOnce sync.Once
	transport Transport
}

func NewSession(transport Transport, sendBuffer int) *Session {
	if sendBuffer < 1 {
		sendBuffer = 1
	}
	return &Session{
		ID:           uuid.NewString(),
		state:        StateConnected,
		channels:     make(map[wire.Channel]struct{}),
		lastActivity: time.Now(),
		send:         make(chan wire.Envelope, sendBuffer),
		closed:       make(chan struct{}),
		transport:    transport,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) TenantID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tenantID
}

func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Touch refreshes the liveness clock. Called on every inbound frame.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// authenticate binds the tenant exactly once. Repeating an identical auth is
// a no-op success; any other rebind attempt fails.
func (s *Session) authenticate(tenantID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateAuthenticated:
		if s.tenantID == tenantID {
			return nil
		}
		return ErrAlreadyAuthenticated
	}

	s.tenantID = tenantID
	s.userID = userID
	s.state = StateAuthenticated
	return nil
}

// Subscribe adds a channel to the session's set. Requires a completed auth
// handshake; duplicates are harmless.
func (s *Session) Subscribe(name string) error {
	ch, err := wire.ParseChannel(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrSessionClosed
	}
	if s.state != StateAuthenticated {
		return ErrNotAuthenticated
	}

	s.channels[ch] = struct{}{}
	return nil
}

func (s *Session) Unsubscribe(name string) error {
	ch, err := wire.ParseChannel(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrSessionClosed
	}
	if s.state != StateAuthenticated {
		return ErrNotAuthenticated
	}

	delete(s.channels, ch)
	return nil
}

func (s *Session) Subscribed(ch wire.Channel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.channels[ch]
	return ok
}

// Channels returns the subscribed set in stable order.
func (s *Session) Channels() []wire.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]wire.Channel, 0, len(s.channels))
	for ch := range s.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Send enqueues a frame for the transport writer, bounded by timeout so one
// slow session cannot stall broadcast fan-out to others.
func (s *Session) Send(env wire.Envelope, timeout time.Duration) error {
	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s.send <- env:
		return nil
	case <-s.closed:
		return ErrSessionClosed
	case <-timer.C:
		return ErrSendTimeout
	}
}

// recordSendFailure bumps the consecutive-failure counter and reports the
// new total.
func (s *Session) recordSendFailure() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	return s.failures
}

func (s *Session) resetSendFailures() {
	s.mu.Lock()
	s.failures = 0
	s.mu.Unlock()
}

// Close tears the session down. Safe to call from any exit path; only the
// first call has an effect.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()

		close(s.closed)
		if s.transport != nil {
			s.transport.Close()
		}
	})
}

// Done is closed when the session has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.closed
}
