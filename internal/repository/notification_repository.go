package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/models"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// INotificationRepository defines persistence for alert notifications.
// Notifications are created only by the rule engine and mutated only by the
// read/acknowledge operations; they are never deleted here.
type INotificationRepository interface {
	Create(ctx context.Context, n *models.AlertNotification) (bool, error)
	GetByID(ctx context.Context, id string) (*models.AlertNotification, error)
	GetByTenant(ctx context.Context, tenantID string, unreadOnly bool, limit, offset int) ([]models.AlertNotification, error)
	CountUnread(ctx context.Context, tenantID string) (int, error)
	CountUnreadBySeverity(ctx context.Context, tenantID string) (map[string]int, error)
	MarkRead(ctx context.Context, id string) (*models.AlertNotification, error)
	Acknowledge(ctx context.Context, id, userID string, at time.Time) (*models.AlertNotification, error)
}

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `
	id, tenant_id, alert_rule_id, feedback_id, title, message, severity,
	is_read, is_acknowledged, acknowledged_by, acknowledged_at, created_at
`

// Create inserts a notification, enforcing the (alert_rule_id, feedback_id)
// uniqueness invariant: a rule fires at most once per feedback event. The
// boolean reports whether a row was actually inserted, so a retried
// evaluation persists nothing new and triggers no duplicate broadcast.
func (r *NotificationRepository) Create(ctx context.Context, n *models.AlertNotification) (bool, error) {
	query := `
		INSERT INTO alert_notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (alert_rule_id, feedback_id) DO NOTHING
	`

	result, err := r.db.ExecContext(
		ctx, query,
		n.ID,
		n.TenantID,
		n.AlertRuleID,
		n.FeedbackID,
		n.Title,
		n.Message,
		n.Severity,
		n.IsRead,
		n.IsAcknowledged,
		n.AcknowledgedBy,
		n.AcknowledgedAt,
		n.CreatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return false, nil
		}
		return false, fmt.Errorf("failed to create notification: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to create notification: %w", err)
	}

	return inserted > 0, nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*models.AlertNotification, error) {
	query := `SELECT ` + notificationColumns + ` FROM alert_notifications WHERE id = $1`

	n := &models.AlertNotification{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&n.ID, &n.TenantID, &n.AlertRuleID, &n.FeedbackID, &n.Title, &n.Message,
		&n.Severity, &n.IsRead, &n.IsAcknowledged, &n.AcknowledgedBy,
		&n.AcknowledgedAt, &n.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification by id: %w", err)
	}

	return n, nil
}

func (r *NotificationRepository) GetByTenant(ctx context.Context, tenantID string, unreadOnly bool, limit, offset int) ([]models.AlertNotification, error) {
	query := `SELECT ` + notificationColumns + ` FROM alert_notifications WHERE tenant_id = $1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var items []models.AlertNotification
	for rows.Next() {
		var n models.AlertNotification
		err := rows.Scan(
			&n.ID, &n.TenantID, &n.AlertRuleID, &n.FeedbackID, &n.Title, &n.Message,
			&n.Severity, &n.IsRead, &n.IsAcknowledged, &n.AcknowledgedBy,
			&n.AcknowledgedAt, &n.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}

	return items, rows.Err()
}

func (r *NotificationRepository) CountUnread(ctx context.Context, tenantID string) (int, error) {
	query := `SELECT COUNT(*) FROM alert_notifications WHERE tenant_id = $1 AND is_read = FALSE`

	var count int
	if err := r.db.QueryRowContext(ctx, query, tenantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

func (r *NotificationRepository) CountUnreadBySeverity(ctx context.Context, tenantID string) (map[string]int, error) {
	query := `
		SELECT severity, COUNT(*)
		FROM alert_notifications
		WHERE tenant_id = $1 AND is_read = FALSE
		GROUP BY severity
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications by severity: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var sev string
		var count int
		if err := rows.Scan(&sev, &count); err != nil {
			return nil, err
		}
		stats[sev] = count
	}

	return stats, rows.Err()
}

// MarkRead sets is_read and returns the updated row, or nil when the id is
// unknown. Re-running it on an already-read notification changes nothing.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) (*models.AlertNotification, error) {
	query := `
		UPDATE alert_notifications SET is_read = TRUE WHERE id = $1
		RETURNING ` + notificationColumns

	n := &models.AlertNotification{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&n.ID, &n.TenantID, &n.AlertRuleID, &n.FeedbackID, &n.Title, &n.Message,
		&n.Severity, &n.IsRead, &n.IsAcknowledged, &n.AcknowledgedBy,
		&n.AcknowledgedAt, &n.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}

	return n, nil
}

// Acknowledge records first-responder attribution. The guarded WHERE clause
// only matches an unacknowledged row or a repeat by the same user, and the
// COALESCEs keep the original attribution on repeats. A nil result means
// the row either does not exist or is held by a different user; the service
// layer tells those apart.
func (r *NotificationRepository) Acknowledge(ctx context.Context, id, userID string, at time.Time) (*models.AlertNotification, error) {
	query := `
		UPDATE alert_notifications
		SET is_acknowledged = TRUE,
		    acknowledged_by = COALESCE(acknowledged_by, $2),
		    acknowledged_at = COALESCE(acknowledged_at, $3)
		WHERE id = $1 AND (is_acknowledged = FALSE OR acknowledged_by = $2)
		RETURNING ` + notificationColumns

	n := &models.AlertNotification{}
	err := r.db.QueryRowContext(ctx, query, id, userID, at).Scan(
		&n.ID, &n.TenantID, &n.AlertRuleID, &n.FeedbackID, &n.Title, &n.Message,
		&n.Severity, &n.IsRead, &n.IsAcknowledged, &n.AcknowledgedBy,
		&n.AcknowledgedAt, &n.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to acknowledge notification: %w", err)
	}

	return n, nil
}
