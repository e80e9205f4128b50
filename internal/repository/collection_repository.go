package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/citavers/citavers-api/internal/models"
)

// CollectionRepository handles persistence of collections and membership.
type CollectionRepository struct {
	db *sqlx.DB
}

// NewCollectionRepository constructs the repository.
func NewCollectionRepository(db *sqlx.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// List returns the user's collections with paper counts.
func (r *CollectionRepository) List(ctx context.Context, userID string) ([]models.CollectionDetail, error) {
	const query = `SELECT c.id, c.user_id, c.name, c.description, c.created_at, c.updated_at,
        COUNT(cp.paper_id) AS paper_count
        FROM collections c
        LEFT JOIN collection_papers cp ON cp.collection_id = c.id
        WHERE c.user_id = $1
        GROUP BY c.id
        ORDER BY c.name ASC`
	var collections []models.CollectionDetail
	if err := r.db.SelectContext(ctx, &collections, query, userID); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return collections, nil
}

// FindByID returns a collection scoped to the owning user.
func (r *CollectionRepository) FindByID(ctx context.Context, userID string, id int64) (*models.Collection, error) {
	const query = `SELECT id, user_id, name, description, created_at, updated_at FROM collections WHERE id = $1 AND user_id = $2`
	var collection models.Collection
	if err := r.db.GetContext(ctx, &collection, query, id, userID); err != nil {
		return nil, err
	}
	return &collection, nil
}

// ExistsByName checks for a name clash among the user's collections.
func (r *CollectionRepository) ExistsByName(ctx context.Context, userID, name string, excludeID int64) (bool, error) {
	query := `SELECT 1 FROM collections WHERE user_id = $1 AND name = $2`
	args := []interface{}{userID, name}
	if excludeID != 0 {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check collection name: %w", err)
	}
	return true, nil
}

// Create persists a new collection.
func (r *CollectionRepository) Create(ctx context.Context, collection *models.Collection) error {
	now := time.Now().UTC()
	if collection.CreatedAt.IsZero() {
		collection.CreatedAt = now
	}
	collection.UpdatedAt = now
	const query = `INSERT INTO collections (user_id, name, description, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		collection.UserID, collection.Name, collection.Description,
		collection.CreatedAt, collection.UpdatedAt,
	).Scan(&collection.ID); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

// Update persists name and description changes.
func (r *CollectionRepository) Update(ctx context.Context, collection *models.Collection) error {
	collection.UpdatedAt = time.Now().UTC()
	const query = `UPDATE collections SET name = $3, description = $4, updated_at = $5 WHERE id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query,
		collection.ID, collection.UserID, collection.Name, collection.Description, collection.UpdatedAt,
	); err != nil {
		return fmt.Errorf("update collection: %w", err)
	}
	return nil
}

// Delete removes a collection; membership rows cascade.
func (r *CollectionRepository) Delete(ctx context.Context, userID string, id int64) error {
	const query = `DELETE FROM collections WHERE id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return nil
}

// HasPaper reports whether the paper is already in the collection.
func (r *CollectionRepository) HasPaper(ctx context.Context, collectionID, paperID int64) (bool, error) {
	const query = `SELECT 1 FROM collection_papers WHERE collection_id = $1 AND paper_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, collectionID, paperID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check collection membership: %w", err)
	}
	return true, nil
}

// AddPaper links a paper to a collection.
func (r *CollectionRepository) AddPaper(ctx context.Context, collectionID, paperID int64) error {
	const query = `INSERT INTO collection_papers (collection_id, paper_id, added_at) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, collectionID, paperID, time.Now().UTC()); err != nil {
		return fmt.Errorf("add paper to collection: %w", err)
	}
	return nil
}

// RemovePaper unlinks a paper from a collection.
func (r *CollectionRepository) RemovePaper(ctx context.Context, collectionID, paperID int64) error {
	const query = `DELETE FROM collection_papers WHERE collection_id = $1 AND paper_id = $2`
	if _, err := r.db.ExecContext(ctx, query, collectionID, paperID); err != nil {
		return fmt.Errorf("remove paper from collection: %w", err)
	}
	return nil
}

// ListPapers returns the active papers in a collection.
func (r *CollectionRepository) ListPapers(ctx context.Context, collectionID int64) ([]models.Paper, error) {
	const query = `SELECT p.id, p.user_id, p.title, p.authors, p.doi, p.status, p.tags, p.notes,
        p.pdf_key, p.pdf_size_bytes, p.version, p.created_at, p.updated_at, p.deleted_at
        FROM papers p
        JOIN collection_papers cp ON cp.paper_id = p.id
        WHERE cp.collection_id = $1 AND p.deleted_at IS NULL
        ORDER BY cp.added_at DESC`
	var papers []models.Paper
	if err := r.db.SelectContext(ctx, &papers, query, collectionID); err != nil {
		return nil, fmt.Errorf("list collection papers: %w", err)
	}
	return papers, nil
}
