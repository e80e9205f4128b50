package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/citavers/citavers-api/internal/models"
)

// CitationRepository handles persistence of citation edges.
type CitationRepository struct {
	db *sqlx.DB
}

// NewCitationRepository constructs the repository.
func NewCitationRepository(db *sqlx.DB) *CitationRepository {
	return &CitationRepository{db: db}
}

// Exists reports whether the edge is already recorded.
func (r *CitationRepository) Exists(ctx context.Context, userID string, citingID, citedID int64) (bool, error) {
	const query = `SELECT 1 FROM citations WHERE user_id = $1 AND citing_id = $2 AND cited_id = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, citingID, citedID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check citation: %w", err)
	}
	return true, nil
}

// Create persists a citation edge.
func (r *CitationRepository) Create(ctx context.Context, citation *models.Citation) error {
	if citation.CreatedAt.IsZero() {
		citation.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO citations (user_id, citing_id, cited_id, created_at)
        VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		citation.UserID, citation.CitingID, citation.CitedID, citation.CreatedAt,
	).Scan(&citation.ID); err != nil {
		return fmt.Errorf("create citation: %w", err)
	}
	return nil
}

// Delete removes a citation edge.
func (r *CitationRepository) Delete(ctx context.Context, userID string, id int64) error {
	const query = `DELETE FROM citations WHERE id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("delete citation: %w", err)
	}
	return nil
}

// ListOutbound returns edges where the paper cites others, joined with the
// cited paper's title. Edges to soft-deleted papers are hidden.
func (r *CitationRepository) ListOutbound(ctx context.Context, userID string, paperID int64) ([]models.CitationEdge, error) {
	const query = `SELECT c.id, c.user_id, c.citing_id, c.cited_id, c.created_at, p.title
        FROM citations c
        JOIN papers p ON p.id = c.cited_id AND p.deleted_at IS NULL
        WHERE c.user_id = $1 AND c.citing_id = $2
        ORDER BY c.created_at DESC`
	var edges []models.CitationEdge
	if err := r.db.SelectContext(ctx, &edges, query, userID, paperID); err != nil {
		return nil, fmt.Errorf("list outbound citations: %w", err)
	}
	return edges, nil
}

// ListInbound returns edges where the paper is cited by others.
func (r *CitationRepository) ListInbound(ctx context.Context, userID string, paperID int64) ([]models.CitationEdge, error) {
	const query = `SELECT c.id, c.user_id, c.citing_id, c.cited_id, c.created_at, p.title
        FROM citations c
        JOIN papers p ON p.id = c.citing_id AND p.deleted_at IS NULL
        WHERE c.user_id = $1 AND c.cited_id = $2
        ORDER BY c.created_at DESC`
	var edges []models.CitationEdge
	if err := r.db.SelectContext(ctx, &edges, query, userID, paperID); err != nil {
		return nil, fmt.Errorf("list inbound citations: %w", err)
	}
	return edges, nil
}
