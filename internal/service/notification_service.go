package service

import (
	"context"
	"time"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/logger"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/models"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/pkg/wire"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/repository"
)

// INotificationService owns the read/acknowledge lifecycle of persisted
// notifications, mirrored live to connected viewers.
type INotificationService interface {
	GetByTenant(ctx context.Context, tenantID string, unreadOnly bool, limit, offset int) ([]models.AlertNotification, error)
	UnreadCount(ctx context.Context, tenantID string) (int, error)
	UnreadStats(ctx context.Context, tenantID string) (map[string]int, error)
	MarkRead(ctx context.Context, id string) (*models.AlertNotification, error)
	Acknowledge(ctx context.Context, id, userID string) (*models.AlertNotification, error)
}

type NotificationService struct {
	repo        repository.INotificationRepository
	broadcaster Broadcaster
	log         *logger.Logger
}

func NewNotificationService(
	repo repository.INotificationRepository,
	broadcaster Broadcaster,
	log *logger.Logger,
) *NotificationService {
	return &NotificationService{
		repo:        repo,
		broadcaster: broadcaster,
		log:         log,
	}
}

func (s *NotificationService) GetByTenant(ctx context.Context, tenantID string, unreadOnly bool, limit, offset int) ([]models.AlertNotification, error) {
	return s.repo.GetByTenant(ctx, tenantID, unreadOnly, limit, offset)
}

func (s *NotificationService) UnreadCount(ctx context.Context, tenantID string) (int, error) {
	return s.repo.CountUnread(ctx, tenantID)
}

func (s *NotificationService) UnreadStats(ctx context.Context, tenantID string) (map[string]int, error) {
	return s.repo.CountUnreadBySeverity(ctx, tenantID)
}

// MarkRead is idempotent; a second call is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, id string) (*models.AlertNotification, error) {
	n, err := s.repo.MarkRead(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrNotificationNotFound
	}

	s.rebroadcast(n)
	return n, nil
}

// Acknowledge records explicit human confirmation, independent of read
// state. The first user to acknowledge keeps the attribution: repeats by
// the same user are no-ops, repeats by anyone else fail.
func (s *NotificationService) Acknowledge(ctx context.Context, id, userID string) (*models.AlertNotification, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}

	n, err := s.repo.Acknowledge(ctx, id, userID, time.Now())
	if err != nil {
		return nil, err
	}
	if n == nil {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, ErrNotificationNotFound
		}
		return nil, ErrAlreadyAcknowledged
	}

	s.rebroadcast(n)
	return n, nil
}

// rebroadcast mirrors a persisted mutation to the tenant's live viewers so
// they can reconcile local state without a refetch. Best-effort only; the
// persisted state is already correct.
func (s *NotificationService) rebroadcast(n *models.AlertNotification) {
	env, err := wire.NewEnvelope(wire.TypeAlertUpdated, n)
	if err != nil {
		return
	}
	s.broadcaster.Broadcast(n.TenantID, wire.ChannelAlerts, env)
}
