package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/logger"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/models"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/pkg/wire"

	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: logger.ERROR})
	require.NoError(t, err)
	return log
}

type broadcastCall struct {
	tenantID string
	channel  wire.Channel
	env      wire.Envelope
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (b *fakeBroadcaster) Broadcast(tenantID string, ch wire.Channel, env wire.Envelope) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, broadcastCall{tenantID: tenantID, channel: ch, env: env})
	return 1
}

func (b *fakeBroadcaster) Calls() []broadcastCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]broadcastCall, len(b.calls))
	copy(out, b.calls)
	return out
}

type fakeRuleRepo struct {
	rules     []models.AlertRule
	activeErr error
	createErr error
	created   []*models.AlertRule
}

func (r *fakeRuleRepo) Create(_ context.Context, rule *models.AlertRule) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, rule)
	return nil
}

func (r *fakeRuleRepo) GetByID(_ context.Context, id string) (*models.AlertRule, error) {
	for i := range r.rules {
		if r.rules[i].ID == id {
			return &r.rules[i], nil
		}
	}
	return nil, nil
}

func (r *fakeRuleRepo) GetByTenant(_ context.Context, tenantID string) ([]models.AlertRule, error) {
	var out []models.AlertRule
	for _, rule := range r.rules {
		if rule.TenantID == tenantID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) GetActiveByTenant(_ context.Context, tenantID string) ([]models.AlertRule, error) {
	if r.activeErr != nil {
		return nil, r.activeErr
	}
	var out []models.AlertRule
	for _, rule := range r.rules {
		if rule.TenantID == tenantID && rule.IsActive {
			out = append(out, rule)
		}
	}
	return out, nil
}

// fakeNotificationRepo keys stored rows the way the real table's uniqueness
// constraint does, so duplicate Create calls report created=false.
type fakeNotificationRepo struct {
	byID      map[string]*models.AlertNotification
	byRuleKey map[string]string
	createErr map[string]error // keyed by alert rule id
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{
		byID:      make(map[string]*models.AlertNotification),
		byRuleKey: make(map[string]string),
		createErr: make(map[string]error),
	}
}

func (r *fakeNotificationRepo) key(n *models.AlertNotification) string {
	feedbackID := ""
	if n.FeedbackID != nil {
		feedbackID = *n.FeedbackID
	}
	return n.AlertRuleID + "/" + feedbackID
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *models.AlertNotification) (bool, error) {
	if err := r.createErr[n.AlertRuleID]; err != nil {
		return false, err
	}
	key := r.key(n)
	if _, exists := r.byRuleKey[key]; exists {
		return false, nil
	}
	stored := *n
	r.byID[n.ID] = &stored
	r.byRuleKey[key] = n.ID
	return true, nil
}

func (r *fakeNotificationRepo) GetByID(_ context.Context, id string) (*models.AlertNotification, error) {
	n, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	out := *n
	return &out, nil
}

func (r *fakeNotificationRepo) GetByTenant(_ context.Context, tenantID string, unreadOnly bool, limit, offset int) ([]models.AlertNotification, error) {
	var out []models.AlertNotification
	for _, n := range r.byID {
		if n.TenantID != tenantID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, *n)
	}
	return out, nil
}

func (r *fakeNotificationRepo) CountUnread(_ context.Context, tenantID string) (int, error) {
	count := 0
	for _, n := range r.byID {
		if n.TenantID == tenantID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) CountUnreadBySeverity(_ context.Context, tenantID string) (map[string]int, error) {
	stats := make(map[string]int)
	for _, n := range r.byID {
		if n.TenantID == tenantID && !n.IsRead {
			stats[n.Severity]++
		}
	}
	return stats, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id string) (*models.AlertNotification, error) {
	n, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	n.IsRead = true
	out := *n
	return &out, nil
}

func (r *fakeNotificationRepo) Acknowledge(_ context.Context, id, userID string, at time.Time) (*models.AlertNotification, error) {
	n, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	if n.IsAcknowledged && (n.AcknowledgedBy == nil || *n.AcknowledgedBy != userID) {
		return nil, nil
	}
	if !n.IsAcknowledged {
		n.IsAcknowledged = true
		n.AcknowledgedBy = &userID
		ackAt := at
		n.AcknowledgedAt = &ackAt
	}
	out := *n
	return &out, nil
}

type fakeFeedbackRepo struct {
	createErr error
	created   []*models.Feedback
}

func (r *fakeFeedbackRepo) Create(_ context.Context, fb *models.Feedback) error {
	if r.createErr != nil {
		return r.createErr
	}
	stored := *fb
	r.created = append(r.created, &stored)
	return nil
}

func (r *fakeFeedbackRepo) GetByID(_ context.Context, id string) (*models.Feedback, error) {
	for _, fb := range r.created {
		if fb.ID == id {
			out := *fb
			return &out, nil
		}
	}
	return nil, nil
}

func (r *fakeFeedbackRepo) GetByTenant(_ context.Context, tenantID string, limit, offset int) ([]models.Feedback, error) {
	var out []models.Feedback
	for _, fb := range r.created {
		if fb.TenantID == tenantID {
			out = append(out, *fb)
		}
	}
	return out, nil
}

type fakeRuleEngine struct {
	handled []*models.Feedback
	err     error
}

func (e *fakeRuleEngine) HandleFeedback(_ context.Context, fb *models.Feedback) error {
	e.handled = append(e.handled, fb)
	return e.err
}
