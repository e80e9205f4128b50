package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/citavers/citavers-api/internal/models"
)

const paperColumns = `id, user_id, title, authors, doi, status, tags, notes, pdf_key, pdf_size_bytes, version, created_at, updated_at, deleted_at`

// PaperStore is the transactional surface the reconciliation and batch
// engines operate on. All read and write steps of one logical operation run
// against the same store instance, hence inside one database transaction.
type PaperStore interface {
	FindActiveByID(ctx context.Context, userID string, id int64) (*models.Paper, error)
	// FindByDOIForUpdate returns the paper holding the DOI regardless of
	// deleted state, locking the row. When several soft-deleted rows share
	// the DOI the most recently updated one wins.
	FindByDOIForUpdate(ctx context.Context, userID, doi string, excludeID int64) (*models.Paper, error)
	FindActiveByDOI(ctx context.Context, userID, doi string, excludeID int64) (*models.Paper, error)
	Insert(ctx context.Context, paper *models.Paper) error
	Update(ctx context.Context, paper *models.Paper) error
	SoftDelete(ctx context.Context, userID string, id int64, at time.Time) error
	HardDelete(ctx context.Context, userID string, id int64) error
	AdjustUserStorage(ctx context.Context, userID string, delta int64) error
}

// PaperRepository handles persistence of papers.
type PaperRepository struct {
	db *sqlx.DB
}

// NewPaperRepository constructs the repository.
func NewPaperRepository(db *sqlx.DB) *PaperRepository {
	return &PaperRepository{db: db}
}

// InTx runs fn against a transaction-scoped PaperStore. The transaction is
// committed when fn returns nil and rolled back otherwise.
func (r *PaperRepository) InTx(ctx context.Context, fn func(PaperStore) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin paper tx: %w", err)
	}
	if err := fn(&paperStore{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit paper tx: %w", err)
	}
	return nil
}

// List returns active papers matching the filter plus the total count.
func (r *PaperRepository) List(ctx context.Context, userID string, filter models.PaperFilter) ([]models.Paper, int, error) {
	conditions := []string{"user_id = $1", "deleted_at IS NULL"}
	args := []interface{}{userID}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Tag != "" {
		conditions = append(conditions, fmt.Sprintf("tags ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Tag+"%")
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR authors ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	clause := " WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"created_at": "created_at",
		"updated_at": "updated_at",
		"title":      "title",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "updated_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM papers%s ORDER BY %s %s LIMIT %d OFFSET %d",
		paperColumns, clause, orderBy, order, size, offset)

	var papers []models.Paper
	if err := r.db.SelectContext(ctx, &papers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list papers: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM papers" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count papers: %w", err)
	}
	return papers, total, nil
}

// FindActiveByID returns an active paper scoped to the owning user.
func (r *PaperRepository) FindActiveByID(ctx context.Context, userID string, id int64) (*models.Paper, error) {
	return findActiveByID(ctx, r.db, userID, id)
}

// ListActiveByIDs returns the user's active papers among the given ids.
func (r *PaperRepository) ListActiveByIDs(ctx context.Context, userID string, ids []int64) ([]models.Paper, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		fmt.Sprintf("SELECT %s FROM papers WHERE user_id = ? AND deleted_at IS NULL AND id IN (?)", paperColumns),
		userID, ids)
	if err != nil {
		return nil, fmt.Errorf("build papers query: %w", err)
	}
	query = r.db.Rebind(query)
	var papers []models.Paper
	if err := r.db.SelectContext(ctx, &papers, query, args...); err != nil {
		return nil, fmt.Errorf("list papers by ids: %w", err)
	}
	return papers, nil
}

// paperStore implements PaperStore on top of an open transaction.
type paperStore struct {
	tx *sqlx.Tx
}

func findActiveByID(ctx context.Context, q sqlx.QueryerContext, userID string, id int64) (*models.Paper, error) {
	query := fmt.Sprintf("SELECT %s FROM papers WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL", paperColumns)
	var paper models.Paper
	if err := sqlx.GetContext(ctx, q, &paper, query, id, userID); err != nil {
		return nil, err
	}
	return &paper, nil
}

func (s *paperStore) FindActiveByID(ctx context.Context, userID string, id int64) (*models.Paper, error) {
	return findActiveByID(ctx, s.tx, userID, id)
}

func (s *paperStore) FindByDOIForUpdate(ctx context.Context, userID, doi string, excludeID int64) (*models.Paper, error) {
	query := fmt.Sprintf("SELECT %s FROM papers WHERE user_id = $1 AND doi = $2", paperColumns)
	args := []interface{}{userID, doi}
	if excludeID != 0 {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	query += " ORDER BY updated_at DESC LIMIT 1 FOR UPDATE"
	var paper models.Paper
	if err := s.tx.GetContext(ctx, &paper, query, args...); err != nil {
		return nil, err
	}
	return &paper, nil
}

func (s *paperStore) FindActiveByDOI(ctx context.Context, userID, doi string, excludeID int64) (*models.Paper, error) {
	query := fmt.Sprintf("SELECT %s FROM papers WHERE user_id = $1 AND doi = $2 AND deleted_at IS NULL", paperColumns)
	args := []interface{}{userID, doi}
	if excludeID != 0 {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	query += " LIMIT 1 FOR UPDATE"
	var paper models.Paper
	if err := s.tx.GetContext(ctx, &paper, query, args...); err != nil {
		return nil, err
	}
	return &paper, nil
}

func (s *paperStore) Insert(ctx context.Context, paper *models.Paper) error {
	now := time.Now().UTC()
	if paper.CreatedAt.IsZero() {
		paper.CreatedAt = now
	}
	paper.UpdatedAt = now
	if paper.Version == 0 {
		paper.Version = 1
	}
	if paper.Status == "" {
		paper.Status = models.PaperStatusUnread
	}
	const query = `INSERT INTO papers (user_id, title, authors, doi, status, tags, notes, pdf_key, pdf_size_bytes, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING id`
	if err := s.tx.QueryRowxContext(ctx, query,
		paper.UserID, paper.Title, paper.Authors, paper.DOI, paper.Status,
		paper.Tags, paper.Notes, paper.PDFKey, paper.PDFSizeBytes,
		paper.Version, paper.CreatedAt, paper.UpdatedAt,
	).Scan(&paper.ID); err != nil {
		return fmt.Errorf("insert paper: %w", err)
	}
	return nil
}

func (s *paperStore) Update(ctx context.Context, paper *models.Paper) error {
	const query = `UPDATE papers
        SET title = :title, authors = :authors, doi = :doi, status = :status,
            tags = :tags, notes = :notes, pdf_key = :pdf_key,
            pdf_size_bytes = :pdf_size_bytes, version = :version,
            created_at = :created_at, updated_at = :updated_at,
            deleted_at = :deleted_at
        WHERE id = :id AND user_id = :user_id`
	res, err := s.tx.NamedExecContext(ctx, query, paper)
	if err != nil {
		return fmt.Errorf("update paper: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update paper rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *paperStore) SoftDelete(ctx context.Context, userID string, id int64, at time.Time) error {
	const query = `UPDATE papers SET deleted_at = $3, updated_at = $3 WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`
	res, err := s.tx.ExecContext(ctx, query, id, userID, at)
	if err != nil {
		return fmt.Errorf("soft delete paper: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete paper rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *paperStore) HardDelete(ctx context.Context, userID string, id int64) error {
	const query = `DELETE FROM papers WHERE id = $1 AND user_id = $2`
	if _, err := s.tx.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("hard delete paper: %w", err)
	}
	return nil
}

func (s *paperStore) AdjustUserStorage(ctx context.Context, userID string, delta int64) error {
	const query = `UPDATE users SET storage_used_bytes = GREATEST(storage_used_bytes + $2, 0), updated_at = now() WHERE id = $1`
	if _, err := s.tx.ExecContext(ctx, query, userID, delta); err != nil {
		return fmt.Errorf("adjust user storage: %w", err)
	}
	return nil
}
