package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/config"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/logger"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/pkg/wire"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu     sync.Mutex
	closed bool
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func testConfig() config.RealtimeConfig {
	return config.RealtimeConfig{
		HeartbeatInterval: 50 * time.Millisecond,
		SendTimeout:       20 * time.Millisecond,
		SendBuffer:        8,
		FailureThreshold:  3,
		MaxMessageSize:    4096,
	}
}

func testRegistry(t *testing.T, cfg config.RealtimeConfig) *Registry {
	t.Helper()
	log, err := logger.New(logger.Config{Level: logger.ERROR})
	require.NoError(t, err)
	return NewRegistry(cfg, log)
}

func addSession(t *testing.T, r *Registry, tenantID string, channels ...wire.Channel) (*Session, *fakeTransport) {
	t.Helper()
	transport := &fakeTransport{}
	s := NewSession(transport, 8)
	r.Register(s)
	require.NoError(t, r.Authenticate(s, tenantID, "user-1"))
	for _, ch := range channels {
		require.NoError(t, s.Subscribe(string(ch)))
	}
	return s, transport
}

func drain(s *Session) []wire.Envelope {
	var out []wire.Envelope
	for {
		select {
		case env := <-s.send:
			out = append(out, env)
		default:
			return out
		}
	}
}

func TestAuthenticateStateMachine(t *testing.T) {
	r := testRegistry(t, testConfig())
	s := NewSession(&fakeTransport{}, 8)
	r.Register(s)

	t.Run("subscribe before auth fails", func(t *testing.T) {
		err := s.Subscribe("alerts")
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("empty tenant rejected", func(t *testing.T) {
		assert.ErrorIs(t, r.Authenticate(s, "", "user-1"), ErrAuth)
		assert.ErrorIs(t, r.Authenticate(s, "   ", "user-1"), ErrAuth)
		assert.Equal(t, StateConnected, s.State())
	})

	t.Run("malformed tenant rejected", func(t *testing.T) {
		assert.ErrorIs(t, r.Authenticate(s, "tenant one", "user-1"), ErrAuth)
	})

	t.Run("auth binds tenant once", func(t *testing.T) {
		require.NoError(t, r.Authenticate(s, "tenant-1", "user-1"))
		assert.Equal(t, StateAuthenticated, s.State())
		assert.Equal(t, "tenant-1", s.TenantID())
	})

	t.Run("identical re-auth is a no-op success", func(t *testing.T) {
		assert.NoError(t, r.Authenticate(s, "tenant-1", "user-1"))
	})

	t.Run("rebind to another tenant fails", func(t *testing.T) {
		err := r.Authenticate(s, "tenant-2", "user-1")
		assert.ErrorIs(t, err, ErrAlreadyAuthenticated)
		assert.Equal(t, "tenant-1", s.TenantID())
	})

	t.Run("closed session rejects auth", func(t *testing.T) {
		r.Unregister(s)
		err := r.Authenticate(s, "tenant-1", "user-1")
		assert.ErrorIs(t, err, ErrSessionClosed)
	})
}

func TestSubscriptionChannelSet(t *testing.T) {
	r := testRegistry(t, testConfig())
	s, _ := addSession(t, r, "tenant-1")

	require.NoError(t, s.Subscribe("alerts"))
	require.NoError(t, s.Subscribe("feedback"))
	require.NoError(t, s.Subscribe("alerts")) // duplicate is harmless

	assert.Equal(t, []wire.Channel{wire.ChannelAlerts, wire.ChannelFeedback}, s.Channels())

	err := s.Subscribe("audit-log")
	assert.ErrorIs(t, err, wire.ErrUnknownChannel)

	err = s.Unsubscribe("audit-log")
	assert.ErrorIs(t, err, wire.ErrUnknownChannel)

	require.NoError(t, s.Unsubscribe("feedback"))
	assert.Equal(t, []wire.Channel{wire.ChannelAlerts}, s.Channels())
}

func TestBroadcastTenantIsolation(t *testing.T) {
	r := testRegistry(t, testConfig())

	s1, _ := addSession(t, r, "tenant-1", wire.ChannelAlerts)
	s2, _ := addSession(t, r, "tenant-1", wire.ChannelAlerts)
	other, _ := addSession(t, r, "tenant-2", wire.ChannelAlerts)

	env, err := wire.NewEnvelope(wire.TypeAlert, map[string]string{"severity": "critical"})
	require.NoError(t, err)

	n := r.Broadcast("tenant-1", wire.ChannelAlerts, env)
	assert.Equal(t, 2, n)

	assert.Len(t, drain(s1), 1)
	assert.Len(t, drain(s2), 1)
	assert.Empty(t, drain(other))
}

func TestBroadcastRespectsSubscriptions(t *testing.T) {
	r := testRegistry(t, testConfig())

	subscribed, _ := addSession(t, r, "tenant-1", wire.ChannelAlerts)
	unsubscribed, _ := addSession(t, r, "tenant-1", wire.ChannelFeedback)

	env, err := wire.NewEnvelope(wire.TypeAlert, nil)
	require.NoError(t, err)

	n := r.Broadcast("tenant-1", wire.ChannelAlerts, env)
	assert.Equal(t, 1, n)
	assert.Len(t, drain(subscribed), 1)
	assert.Empty(t, drain(unsubscribed))
}

func TestBroadcastEvictsSlowSession(t *testing.T) {
	cfg := testConfig()
	cfg.FailureThreshold = 2
	r := testRegistry(t, cfg)

	slowTransport := &fakeTransport{}
	slow := NewSession(slowTransport, 1)
	r.Register(slow)
	require.NoError(t, r.Authenticate(slow, "tenant-1", "user-1"))
	require.NoError(t, slow.Subscribe("alerts"))

	healthy, _ := addSession(t, r, "tenant-1", wire.ChannelAlerts)

	env, err := wire.NewEnvelope(wire.TypeAlert, nil)
	require.NoError(t, err)

	// First broadcast fills the slow session's queue; nobody drains it.
	r.Broadcast("tenant-1", wire.ChannelAlerts, env)
	r.Broadcast("tenant-1", wire.ChannelAlerts, env)
	r.Broadcast("tenant-1", wire.ChannelAlerts, env)

	assert.Equal(t, StateClosed, slow.State())
	assert.True(t, slowTransport.Closed())
	assert.Equal(t, 1, r.SessionCount())
	assert.Equal(t, 1, r.TenantSessionCount("tenant-1"))

	// The healthy session saw every broadcast.
	assert.Len(t, drain(healthy), 3)
}

func TestBroadcastBoundedByTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.SendTimeout = 10 * time.Millisecond
	r := testRegistry(t, cfg)

	stuck := NewSession(&fakeTransport{}, 1)
	r.Register(stuck)
	require.NoError(t, r.Authenticate(stuck, "tenant-1", "user-1"))
	require.NoError(t, stuck.Subscribe("alerts"))

	env, err := wire.NewEnvelope(wire.TypeAlert, nil)
	require.NoError(t, err)
	r.Broadcast("tenant-1", wire.ChannelAlerts, env) // fills the buffer

	start := time.Now()
	r.Broadcast("tenant-1", wire.ChannelAlerts, env)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestSweepEvictsSilentSessions(t *testing.T) {
	r := testRegistry(t, testConfig())

	stale, staleTransport := addSession(t, r, "tenant-1", wire.ChannelAlerts)
	fresh, _ := addSession(t, r, "tenant-1", wire.ChannelAlerts)

	stale.mu.Lock()
	stale.lastActivity = time.Now().Add(-time.Minute)
	stale.mu.Unlock()

	evicted := r.Sweep(2 * testConfig().HeartbeatInterval)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, StateClosed, stale.State())
	assert.True(t, staleTransport.Closed())
	assert.Equal(t, StateAuthenticated, fresh.State())
	assert.Equal(t, 1, r.SessionCount())
}

func TestUnregisterRemovesEntryEvenTwice(t *testing.T) {
	r := testRegistry(t, testConfig())
	s, transport := addSession(t, r, "tenant-1", wire.ChannelAlerts)

	r.Unregister(s)
	r.Unregister(s)

	assert.Equal(t, 0, r.SessionCount())
	assert.Equal(t, 0, r.TenantSessionCount("tenant-1"))
	assert.True(t, transport.Closed())

	env, err := wire.NewEnvelope(wire.TypeAlert, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Broadcast("tenant-1", wire.ChannelAlerts, env))
}

func TestSendOnClosedSession(t *testing.T) {
	s := NewSession(&fakeTransport{}, 1)
	s.Close()

	env, err := wire.NewEnvelope(wire.TypeSystem, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Send(env, 10*time.Millisecond), ErrSessionClosed)
}

func TestCloseAll(t *testing.T) {
	r := testRegistry(t, testConfig())
	s1, _ := addSession(t, r, "tenant-1", wire.ChannelAlerts)
	s2, _ := addSession(t, r, "tenant-2", wire.ChannelAlerts)

	r.CloseAll()

	assert.Equal(t, 0, r.SessionCount())
	assert.Equal(t, StateClosed, s1.State())
	assert.Equal(t, StateClosed, s2.State())
}
