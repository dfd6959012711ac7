package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/models"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/pkg/wire"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitValidation(t *testing.T) {
	svc := NewFeedbackService(&fakeFeedbackRepo{}, &fakeRuleEngine{}, &fakeBroadcaster{}, testLogger(t))

	t.Run("missing tenant", func(t *testing.T) {
		err := svc.Submit(context.Background(), &models.Feedback{OverallRating: 3})
		assert.ErrorIs(t, err, ErrInvalidFeedback)
	})

	t.Run("rating out of range", func(t *testing.T) {
		for _, rating := range []int{0, -1, 6} {
			err := svc.Submit(context.Background(), &models.Feedback{TenantID: "tenant-1", OverallRating: rating})
			assert.ErrorIs(t, err, ErrInvalidFeedback, "rating %d", rating)
		}
	})
}

func TestSubmitAppliesDefaults(t *testing.T) {
	repo := &fakeFeedbackRepo{}
	svc := NewFeedbackService(repo, &fakeRuleEngine{}, &fakeBroadcaster{}, testLogger(t))

	fb := &models.Feedback{TenantID: "tenant-1", OverallRating: 4}
	require.NoError(t, svc.Submit(context.Background(), fb))

	require.Len(t, repo.created, 1)
	stored := repo.created[0]
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, models.SourceWeb, stored.Source)
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestSubmitBroadcastsAndEvaluates(t *testing.T) {
	engine := &fakeRuleEngine{}
	broadcaster := &fakeBroadcaster{}
	svc := NewFeedbackService(&fakeFeedbackRepo{}, engine, broadcaster, testLogger(t))

	fb := &models.Feedback{TenantID: "tenant-1", OverallRating: 2, Comment: "slow service"}
	require.NoError(t, svc.Submit(context.Background(), fb))

	calls := broadcaster.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, wire.ChannelFeedback, calls[0].channel)
	assert.Equal(t, wire.TypeFeedback, calls[0].env.Type)

	var announced models.Feedback
	require.NoError(t, json.Unmarshal(calls[0].env.Data, &announced))
	assert.Equal(t, "slow service", announced.Comment)

	require.Len(t, engine.handled, 1)
	assert.Equal(t, fb.ID, engine.handled[0].ID)
}

func TestSubmitSurvivesRuleEngineFailure(t *testing.T) {
	engine := &fakeRuleEngine{err: errors.New("rules unavailable")}
	repo := &fakeFeedbackRepo{}
	svc := NewFeedbackService(repo, engine, &fakeBroadcaster{}, testLogger(t))

	err := svc.Submit(context.Background(), &models.Feedback{TenantID: "tenant-1", OverallRating: 1})
	assert.NoError(t, err)
	assert.Len(t, repo.created, 1)
}

func TestSubmitPersistenceFailure(t *testing.T) {
	repo := &fakeFeedbackRepo{createErr: errors.New("disk full")}
	engine := &fakeRuleEngine{}
	broadcaster := &fakeBroadcaster{}
	svc := NewFeedbackService(repo, engine, broadcaster, testLogger(t))

	err := svc.Submit(context.Background(), &models.Feedback{TenantID: "tenant-1", OverallRating: 1})
	require.Error(t, err)
	assert.Empty(t, broadcaster.Calls())
	assert.Empty(t, engine.handled)
}
