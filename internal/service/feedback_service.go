package service

import (
	"context"
	"fmt"
	"time"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/logger"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/metrics"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/models"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/pkg/wire"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/repository"

	"github.com/google/uuid"
)

// IFeedbackService is the create-feedback collaborator operation: it
// persists a submission, announces it on the feedback channel, and hands it
// to the rule engine.
type IFeedbackService interface {
	Submit(ctx context.Context, fb *models.Feedback) error
	GetByTenant(ctx context.Context, tenantID string, limit, offset int) ([]models.Feedback, error)
}

type FeedbackService struct {
	repo        repository.IFeedbackRepository
	engine      IRuleEngine
	broadcaster Broadcaster
	log         *logger.Logger
}

func NewFeedbackService(
	repo repository.IFeedbackRepository,
	engine IRuleEngine,
	broadcaster Broadcaster,
	log *logger.Logger,
) *FeedbackService {
	return &FeedbackService{
		repo:        repo,
		engine:      engine,
		broadcaster: broadcaster,
		log:         log,
	}
}

func (s *FeedbackService) Submit(ctx context.Context, fb *models.Feedback) error {
	if fb.TenantID == "" {
		return fmt.Errorf("%w: tenantId is required", ErrInvalidFeedback)
	}
	if fb.OverallRating < 1 || fb.OverallRating > 5 {
		return fmt.Errorf("%w: overallRating must be between 1 and 5", ErrInvalidFeedback)
	}

	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.Source == "" {
		fb.Source = models.SourceWeb
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now()
	}

	if err := s.repo.Create(ctx, fb); err != nil {
		return err
	}

	metrics.FeedbackReceived(fb.Source)
	s.log.Info("Feedback %s received for tenant %s (rating: %d)", fb.ID, fb.TenantID, fb.OverallRating)

	if env, err := wire.NewEnvelope(wire.TypeFeedback, fb); err == nil {
		s.broadcaster.Broadcast(fb.TenantID, wire.ChannelFeedback, env)
	}

	// The submission is durable at this point; rule failures only lose the
	// live push, which the client recovers by polling.
	if err := s.engine.HandleFeedback(ctx, fb); err != nil {
		s.log.Error("Rule evaluation failed for feedback %s: %v", fb.ID, err)
	}

	return nil
}

func (s *FeedbackService) GetByTenant(ctx context.Context, tenantID string, limit, offset int) ([]models.Feedback, error) {
	return s.repo.GetByTenant(ctx, tenantID, limit, offset)
}
