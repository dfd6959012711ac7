package service

import (
	"context"
	"fmt"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/logger"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/models"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/repository"

	"github.com/google/uuid"
)

// IAlertRuleService is the management surface over tenant alert rules.
type IAlertRuleService interface {
	Create(ctx context.Context, rule *models.AlertRule) error
	GetByTenant(ctx context.Context, tenantID string) ([]models.AlertRule, error)
}

type AlertRuleService struct {
	repo repository.IAlertRuleRepository
	log  *logger.Logger
}

func NewAlertRuleService(repo repository.IAlertRuleRepository, log *logger.Logger) *AlertRuleService {
	return &AlertRuleService{
		repo: repo,
		log:  log,
	}
}

// Create validates a rule definition up front so the engine never loads a
// tree it cannot evaluate through this path.
func (s *AlertRuleService) Create(ctx context.Context, rule *models.AlertRule) error {
	if rule.TenantID == "" {
		return fmt.Errorf("%w: tenantId is required", ErrInvalidRule)
	}
	if rule.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	if !models.ValidSeverity(rule.Severity) {
		return fmt.Errorf("%w: severity must be one of info, warning, critical", ErrInvalidRule)
	}
	if _, err := rule.ParseCondition(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}

	if err := s.repo.Create(ctx, rule); err != nil {
		return err
	}

	s.log.Info("Alert rule %q created for tenant %s", rule.Name, rule.TenantID)
	return nil
}

func (s *AlertRuleService) GetByTenant(ctx context.Context, tenantID string) ([]models.AlertRule, error) {
	return s.repo.GetByTenant(ctx, tenantID)
}
