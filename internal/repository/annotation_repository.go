package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/citavers/citavers-api/internal/models"
)

// AnnotationRepository handles persistence of paper annotations.
type AnnotationRepository struct {
	db *sqlx.DB
}

// NewAnnotationRepository constructs the repository.
func NewAnnotationRepository(db *sqlx.DB) *AnnotationRepository {
	return &AnnotationRepository{db: db}
}

// ListByPaper returns the annotations of one paper ordered by page.
func (r *AnnotationRepository) ListByPaper(ctx context.Context, userID string, paperID int64) ([]models.Annotation, error) {
	const query = `SELECT id, paper_id, user_id, page, quote, body, color, created_at, updated_at
        FROM annotations WHERE paper_id = $1 AND user_id = $2 ORDER BY page ASC, created_at ASC`
	var annotations []models.Annotation
	if err := r.db.SelectContext(ctx, &annotations, query, paperID, userID); err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	return annotations, nil
}

// FindByID returns an annotation scoped to the owning user.
func (r *AnnotationRepository) FindByID(ctx context.Context, userID string, id int64) (*models.Annotation, error) {
	const query = `SELECT id, paper_id, user_id, page, quote, body, color, created_at, updated_at
        FROM annotations WHERE id = $1 AND user_id = $2`
	var annotation models.Annotation
	if err := r.db.GetContext(ctx, &annotation, query, id, userID); err != nil {
		return nil, err
	}
	return &annotation, nil
}

// Create persists a new annotation.
func (r *AnnotationRepository) Create(ctx context.Context, annotation *models.Annotation) error {
	now := time.Now().UTC()
	if annotation.CreatedAt.IsZero() {
		annotation.CreatedAt = now
	}
	annotation.UpdatedAt = now
	if annotation.Color == "" {
		annotation.Color = "yellow"
	}
	const query = `INSERT INTO annotations (paper_id, user_id, page, quote, body, color, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		annotation.PaperID, annotation.UserID, annotation.Page, annotation.Quote,
		annotation.Body, annotation.Color, annotation.CreatedAt, annotation.UpdatedAt,
	).Scan(&annotation.ID); err != nil {
		return fmt.Errorf("create annotation: %w", err)
	}
	return nil
}

// Update persists annotation changes.
func (r *AnnotationRepository) Update(ctx context.Context, annotation *models.Annotation) error {
	annotation.UpdatedAt = time.Now().UTC()
	const query = `UPDATE annotations SET page = $3, quote = $4, body = $5, color = $6, updated_at = $7
        WHERE id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query,
		annotation.ID, annotation.UserID, annotation.Page, annotation.Quote,
		annotation.Body, annotation.Color, annotation.UpdatedAt,
	); err != nil {
		return fmt.Errorf("update annotation: %w", err)
	}
	return nil
}

// Delete removes an annotation.
func (r *AnnotationRepository) Delete(ctx context.Context, userID string, id int64) error {
	const query = `DELETE FROM annotations WHERE id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("delete annotation: %w", err)
	}
	return nil
}
