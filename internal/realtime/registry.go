package realtime

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/config"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/logger"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/metrics"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/pkg/wire"
)

const maxTenantIDLength = 128

// Registry is the process-wide table of live sessions, keyed by tenant.
// It is shared mutable state touched by the rule engine (broadcasts),
// session lifecycle, and the liveness sweep; all map access is lock-guarded
// so a disconnect during an in-flight broadcast never produces a
// use-after-remove.
type Registry struct {
	cfg config.RealtimeConfig
	log *logger.Logger

	mu       sync.RWMutex
	sessions map[*Session]struct{}
	byTenant map[string]map[*Session]struct{}
}

func NewRegistry(cfg config.RealtimeConfig, log *logger.Logger) *Registry {
	return &Registry{
		cfg:      cfg,
		log:      log,
		sessions: make(map[*Session]struct{}),
		byTenant: make(map[string]map[*Session]struct{}),
	}
}

// Run owns the periodic liveness sweep. It blocks until ctx is cancelled,
// then closes every remaining session.
func (r *Registry) Run(ctx context.Context) {
	r.log.Info("Realtime registry started (heartbeat interval: %s)", r.cfg.HeartbeatInterval)

	ticker := time.NewTicker(r.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Realtime registry shutting down...")
			r.CloseAll()
			return
		case <-ticker.C:
			if n := r.Sweep(2 * r.cfg.HeartbeatInterval); n > 0 {
				r.log.Info("Liveness sweep evicted %d silent session(s)", n)
			}
		}
	}
}

// Register adds a freshly accepted, unauthenticated session.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	r.sessions[s] = struct{}{}
	total := len(r.sessions)
	r.mu.Unlock()

	metrics.SessionOpened()
	r.log.Info("Session %s connected. Total: %d", s.ID, total)
}

// Unregister removes the session from the table and closes it. The entry is
// removed even on abnormal termination; calling it twice is harmless.
func (r *Registry) Unregister(s *Session) {
	r.mu.Lock()
	_, present := r.sessions[s]
	if present {
		delete(r.sessions, s)
		if tenant := s.TenantID(); tenant != "" {
			if set, ok := r.byTenant[tenant]; ok {
				delete(set, s)
				if len(set) == 0 {
					delete(r.byTenant, tenant)
				}
			}
		}
	}
	r.mu.Unlock()

	s.Close()

	if present {
		metrics.SessionClosed()
		r.log.Debug("Session %s removed from registry", s.ID)
	}
}

// Authenticate binds a session to a tenant and indexes it for broadcast.
func (r *Registry) Authenticate(s *Session, tenantID, userID string) error {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" || len(tenantID) > maxTenantIDLength || strings.ContainsAny(tenantID, " \t\n") {
		return ErrAuth
	}

	if err := s.authenticate(tenantID, userID); err != nil {
		return err
	}

	r.mu.Lock()
	if _, tracked := r.sessions[s]; tracked {
		set, ok := r.byTenant[tenantID]
		if !ok {
			set = make(map[*Session]struct{})
			r.byTenant[tenantID] = set
		}
		set[s] = struct{}{}
	}
	r.mu.Unlock()

	r.log.Info("Session %s authenticated for tenant %s", s.ID, tenantID)
	return nil
}

// Broadcast delivers a frame to every authenticated session of the tenant
// with the channel subscribed. Delivery is best-effort per session; each
// send is bounded by the configured timeout and fan-out never blocks longer
// than that. Returns the number of targeted sessions.
func (r *Registry) Broadcast(tenantID string, ch wire.Channel, env wire.Envelope) int {
	r.mu.RLock()
	targets := make([]*Session, 0, len(r.byTenant[tenantID]))
	for s := range r.byTenant[tenantID] {
		if s.State() == StateAuthenticated && s.Subscribed(ch) {
			targets = append(targets, s)
		}
	}
	r.mu.RUnlock()

	var wg sync.WaitGroup
	for _, s := range targets {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			r.deliver(s, ch, env)
		}(s)
	}
	wg.Wait()

	return len(targets)
}

func (r *Registry) deliver(s *Session, ch wire.Channel, env wire.Envelope) {
	if err := s.Send(env, r.cfg.SendTimeout); err != nil {
		metrics.BroadcastFailed(string(ch))
		failures := s.recordSendFailure()
		r.log.Warn("Send to session %s failed (%d consecutive): %v", s.ID, failures, err)

		if failures >= r.cfg.FailureThreshold {
			r.log.Warn("Session %s exceeded failure threshold, force-closing", s.ID)
			r.Unregister(s)
		}
		return
	}

	s.resetSendFailures()
	metrics.BroadcastDelivered(string(ch))
}

// Sweep evicts sessions silent for longer than maxIdle. This is the only
// mechanism distinguishing an idle-but-alive peer from a dead one when the
// transport gives no signal.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.RLock()
	var stale []*Session
	for s := range r.sessions {
		if s.LastActivity().Before(cutoff) {
			stale = append(stale, s)
		}
	}
	r.mu.RUnlock()

	for _, s := range stale {
		r.log.Warn("Session %s silent for over %s, evicting", s.ID, maxIdle)
		r.Unregister(s)
	}

	return len(stale)
}

func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) TenantSessionCount(tenantID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byTenant[tenantID])
}

// CloseAll tears down every session, used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for s := range r.sessions {
		all = append(all, s)
	}
	r.mu.Unlock()

	for _, s := range all {
		r.Unregister(s)
	}
}
