package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/models"
)

// IAlertRuleRepository defines access to tenant alert rules. The engine
// consumes them read-only; Create exists for the management surface.
type IAlertRuleRepository interface {
	Create(ctx context.Context, rule *models.AlertRule) error
	GetByID(ctx context.Context, id string) (*models.AlertRule, error)
	GetByTenant(ctx context.Context, tenantID string) ([]models.AlertRule, error)
	GetActiveByTenant(ctx context.Context, tenantID string) ([]models.AlertRule, error)
}

type AlertRuleRepository struct {
	db *sql.DB
}

func NewAlertRuleRepository(db *sql.DB) *AlertRuleRepository {
	return &AlertRuleRepository{db: db}
}

func (r *AlertRuleRepository) Create(ctx context.Context, rule *models.AlertRule) error {
	query := `
		INSERT INTO alert_rules (
			id, tenant_id, name, description, is_active, condition,
			severity, title_template, message_template, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	_, err := r.db.ExecContext(
		ctx, query,
		rule.ID,
		rule.TenantID,
		rule.Name,
		rule.Description,
		rule.IsActive,
		[]byte(rule.Condition),
		rule.Severity,
		rule.TitleTemplate,
		rule.MessageTemplate,
		rule.CreatedAt,
		rule.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create alert rule: %w", err)
	}

	return nil
}

func (r *AlertRuleRepository) GetByID(ctx context.Context, id string) (*models.AlertRule, error) {
	query := `
		SELECT id, tenant_id, name, description, is_active, condition,
		       severity, title_template, message_template, created_at, updated_at
		FROM alert_rules
		WHERE id = $1
	`

	rule := &models.AlertRule{}
	var condition []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rule.ID,
		&rule.TenantID,
		&rule.Name,
		&rule.Description,
		&rule.IsActive,
		&condition,
		&rule.Severity,
		&rule.TitleTemplate,
		&rule.MessageTemplate,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert rule by id: %w", err)
	}

	rule.Condition = condition
	return rule, nil
}

func (r *AlertRuleRepository) GetByTenant(ctx context.Context, tenantID string) ([]models.AlertRule, error) {
	return r.queryByTenant(ctx, tenantID, false)
}

// GetActiveByTenant returns the rules the engine evaluates, in creation
// order so evaluation is deterministic.
func (r *AlertRuleRepository) GetActiveByTenant(ctx context.Context, tenantID string) ([]models.AlertRule, error) {
	return r.queryByTenant(ctx, tenantID, true)
}

func (r *AlertRuleRepository) queryByTenant(ctx context.Context, tenantID string, activeOnly bool) ([]models.AlertRule, error) {
	query := `
		SELECT id, tenant_id, name, description, is_active, condition,
		       severity, title_template, message_template, created_at, updated_at
		FROM alert_rules
		WHERE tenant_id = $1
	`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert rules: %w", err)
	}
	defer rows.Close()

	var rules []models.AlertRule
	for rows.Next() {
		var rule models.AlertRule
		var condition []byte
		err := rows.Scan(
			&rule.ID, &rule.TenantID, &rule.Name, &rule.Description, &rule.IsActive,
			&condition, &rule.Severity, &rule.TitleTemplate, &rule.MessageTemplate,
			&rule.CreatedAt, &rule.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		rule.Condition = condition
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}
