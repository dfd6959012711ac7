package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/models"

	"github.com/lib/pq"
)

// IFeedbackRepository defines persistence for customer submissions.
type IFeedbackRepository interface {
	Create(ctx context.Context, fb *models.Feedback) error
	GetByID(ctx context.Context, id string) (*models.Feedback, error)
	GetByTenant(ctx context.Context, tenantID string, limit, offset int) ([]models.Feedback, error)
}

type FeedbackRepository struct {
	db *sql.DB
}

func NewFeedbackRepository(db *sql.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

func (r *FeedbackRepository) Create(ctx context.Context, fb *models.Feedback) error {
	query := `
		INSERT INTO feedback (
			id, tenant_id, location_id, overall_rating, comment,
			sentiment, tags, source, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		fb.ID,
		fb.TenantID,
		fb.LocationID,
		fb.OverallRating,
		fb.Comment,
		fb.Sentiment,
		pq.Array(fb.Tags),
		fb.Source,
		fb.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}

	return nil
}

func (r *FeedbackRepository) GetByID(ctx context.Context, id string) (*models.Feedback, error) {
	query := `
		SELECT id, tenant_id, location_id, overall_rating, comment,
		       sentiment, tags, source, created_at
		FROM feedback
		WHERE id = $1
	`

	fb := &models.Feedback{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&fb.ID,
		&fb.TenantID,
		&fb.LocationID,
		&fb.OverallRating,
		&fb.Comment,
		&fb.Sentiment,
		pq.Array(&fb.Tags),
		&fb.Source,
		&fb.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback by id: %w", err)
	}

	return fb, nil
}

func (r *FeedbackRepository) GetByTenant(ctx context.Context, tenantID string, limit, offset int) ([]models.Feedback, error) {
	query := `
		SELECT id, tenant_id, location_id, overall_rating, comment,
		       sentiment, tags, source, created_at
		FROM feedback
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var items []models.Feedback
	for rows.Next() {
		var fb models.Feedback
		err := rows.Scan(
			&fb.ID, &fb.TenantID, &fb.LocationID, &fb.OverallRating, &fb.Comment,
			&fb.Sentiment, pq.Array(&fb.Tags), &fb.Source, &fb.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, fb)
	}

	return items, rows.Err()
}
