package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/citavers/citavers-api/internal/dto"
	"github.com/citavers/citavers-api/internal/models"
	"github.com/citavers/citavers-api/internal/repository"
	appErrors "github.com/citavers/citavers-api/pkg/errors"
)

type paperRepository interface {
	InTx(ctx context.Context, fn func(repository.PaperStore) error) error
	List(ctx context.Context, userID string, filter models.PaperFilter) ([]models.Paper, int, error)
	FindActiveByID(ctx context.Context, userID string, id int64) (*models.Paper, error)
}

// CreatePaperRequest describes the paper creation payload.
type CreatePaperRequest struct {
	Title   string `json:"title" validate:"required"`
	Authors string `json:"authors"`
	DOI     string `json:"doi"`
	Status  string `json:"status" validate:"omitempty,oneof=unread reading read"`
	Tags    string `json:"tags"`
	Notes   string `json:"notes"`
}

// UpdatePaperRequest describes a partial update. Nil fields are untouched.
type UpdatePaperRequest struct {
	Title   *string `json:"title,omitempty" validate:"omitempty,min=1"`
	Authors *string `json:"authors,omitempty"`
	DOI     *string `json:"doi,omitempty"`
	Status  *string `json:"status,omitempty" validate:"omitempty,oneof=unread reading read"`
	Tags    *string `json:"tags,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

// PaperService owns the paper lifecycle: DOI-conflict reconciliation on
// create and update, soft delete with quota accounting, and the batch
// operations engine.
type PaperService struct {
	repo        paperRepository
	cache       *CacheService
	metrics     *MetricsService
	maxBatchOps int
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewPaperService constructs PaperService.
func NewPaperService(repo paperRepository, cache *CacheService, metrics *MetricsService, maxBatchOps int, validate *validator.Validate, logger *zap.Logger) *PaperService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBatchOps <= 0 {
		maxBatchOps = 100
	}
	return &PaperService{repo: repo, cache: cache, metrics: metrics, maxBatchOps: maxBatchOps, validator: validate, logger: logger}
}

// List returns the user's active papers with pagination metadata. List
// payloads are cached per user and invalidated on any paper mutation.
func (s *PaperService) List(ctx context.Context, userID string, filter models.PaperFilter) ([]models.PaperView, *models.Pagination, error) {
	type cached struct {
		Papers     []models.PaperView `json:"papers"`
		Pagination *models.Pagination `json:"pagination"`
	}
	key := paperListCacheKey(userID, filter)
	var entry cached
	if hit, _ := s.cache.Get(ctx, key, &entry); hit {
		return entry.Papers, entry.Pagination, nil
	}

	papers, total, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list papers")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	views := make([]models.PaperView, 0, len(papers))
	for _, p := range papers {
		views = append(views, p.View())
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	_ = s.cache.Set(ctx, key, cached{Papers: views, Pagination: pagination}, 0)
	return views, pagination, nil
}

// Get returns a single active paper. Papers owned by other users are
// indistinguishable from missing ones.
func (s *PaperService) Get(ctx context.Context, userID string, id int64) (*models.PaperView, error) {
	paper, err := s.repo.FindActiveByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
	}
	view := paper.View()
	return &view, nil
}

// Create adds a paper to the user's library, reconciling DOI collisions.
// A collision with an active paper is rejected; a collision with a
// soft-deleted paper restores that row in place, so the caller gets back the
// same id with deleted_at cleared, created_at reset and version bumped.
// Lookup and write share one transaction with the conflicting row locked,
// so two concurrent creates cannot both restore the same row.
func (s *PaperService) Create(ctx context.Context, userID string, req CreatePaperRequest) (*models.PaperView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid paper payload")
	}

	var result models.Paper
	err := s.repo.InTx(ctx, func(store repository.PaperStore) error {
		if req.DOI != "" {
			existing, err := store.FindByDOIForUpdate(ctx, userID, req.DOI, 0)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check DOI")
			}
			if err == nil {
				if !existing.IsDeleted() {
					return appErrors.Clone(appErrors.ErrDuplicate, fmt.Sprintf("DOI %s already exists", req.DOI))
				}
				now := time.Now().UTC()
				existing.Title = req.Title
				existing.Authors = req.Authors
				existing.SetDOI(req.DOI)
				existing.Status = paperStatus(req.Status)
				existing.Tags = req.Tags
				existing.Notes = req.Notes
				existing.DeletedAt = nil
				existing.CreatedAt = now
				existing.UpdatedAt = now
				existing.Version++
				if err := store.Update(ctx, existing); err != nil {
					return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore paper")
				}
				// Soft delete released the quota; restoring the row with its
				// retained PDF takes it back.
				if existing.PDFSizeBytes > 0 {
					if err := store.AdjustUserStorage(ctx, userID, existing.PDFSizeBytes); err != nil {
						return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to adjust storage")
					}
				}
				result = *existing
				return nil
			}
		}

		paper := &models.Paper{
			UserID:  userID,
			Title:   req.Title,
			Authors: req.Authors,
			Status:  paperStatus(req.Status),
			Tags:    req.Tags,
			Notes:   req.Notes,
		}
		paper.SetDOI(req.DOI)
		if err := store.Insert(ctx, paper); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create paper")
		}
		result = *paper
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, paperCachePattern(userID))
	view := result.View()
	return &view, nil
}

// Update applies a partial update to an active paper. A DOI change that
// collides with another active paper is rejected; a collision with a
// soft-deleted paper hard-deletes that row to reclaim the DOI slot, then the
// update proceeds. Hard delete and update share one transaction.
func (s *PaperService) Update(ctx context.Context, userID string, id int64, req UpdatePaperRequest) (*models.PaperView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid paper payload")
	}

	var result models.Paper
	err := s.repo.InTx(ctx, func(store repository.PaperStore) error {
		paper, err := store.FindActiveByID(ctx, userID, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "paper not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
		}

		if req.DOI != nil && *req.DOI != "" && *req.DOI != paper.DOIValue() {
			conflict, err := store.FindByDOIForUpdate(ctx, userID, *req.DOI, paper.ID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check DOI")
			}
			if err == nil {
				if !conflict.IsDeleted() {
					return appErrors.Clone(appErrors.ErrDuplicate, fmt.Sprintf("DOI %s already exists", *req.DOI))
				}
				if err := store.HardDelete(ctx, userID, conflict.ID); err != nil {
					return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reclaim DOI")
				}
			}
		}

		applyPaperUpdate(paper, req)
		paper.Version++
		paper.UpdatedAt = time.Now().UTC()
		if err := store.Update(ctx, paper); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update paper")
		}
		result = *paper
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, paperCachePattern(userID))
	view := result.View()
	return &view, nil
}

// Delete soft-deletes an active paper and releases its PDF quota once.
func (s *PaperService) Delete(ctx context.Context, userID string, id int64) error {
	err := s.repo.InTx(ctx, func(store repository.PaperStore) error {
		paper, err := store.FindActiveByID(ctx, userID, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "paper not found or already deleted")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
		}
		if err := store.SoftDelete(ctx, userID, paper.ID, time.Now().UTC()); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete paper")
		}
		if paper.PDFSizeBytes > 0 {
			if err := store.AdjustUserStorage(ctx, userID, -paper.PDFSizeBytes); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to adjust storage")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx, paperCachePattern(userID))
	return nil
}

// Batch executes a bounded list of heterogeneous operations sequentially
// inside one transaction. Structural problems (empty or oversized list)
// reject the whole batch before any store access. Business failures of one
// item are recorded in that item's result and never abort its siblings;
// store failures abort the whole transaction. Result order matches input
// order.
func (s *PaperService) Batch(ctx context.Context, userID string, ops []dto.BatchOperation) ([]dto.BatchResult, error) {
	if len(ops) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "operations list is required")
	}
	if len(ops) > s.maxBatchOps {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("batch exceeds the limit of %d operations", s.maxBatchOps))
	}

	results := make([]dto.BatchResult, 0, len(ops))
	err := s.repo.InTx(ctx, func(store repository.PaperStore) error {
		for _, op := range ops {
			result, err := s.applyBatchOp(ctx, store, userID, op)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "batch transaction failed")
			}
			if s.metrics != nil {
				s.metrics.RecordBatchOperation(op.Type, result.Success)
			}
			results = append(results, result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, paperCachePattern(userID))
	return results, nil
}

// applyBatchOp runs one batch item. The returned error is reserved for
// infrastructure failures; business failures land in the result. Every
// business check happens via SELECTs before any write, so a failed item
// never aborts the surrounding Postgres transaction.
func (s *PaperService) applyBatchOp(ctx context.Context, store repository.PaperStore, userID string, op dto.BatchOperation) (dto.BatchResult, error) {
	fail := func(message string) (dto.BatchResult, error) {
		return dto.BatchResult{ID: op.ID, Success: false, Error: message}, nil
	}

	id, ok := batchID(op.ID)
	if !ok {
		return fail("Invalid ID")
	}

	switch op.Type {
	case dto.BatchOpDelete:
		paper, err := store.FindActiveByID(ctx, userID, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fail("Paper not found or already deleted")
			}
			return dto.BatchResult{}, err
		}
		if err := store.SoftDelete(ctx, userID, paper.ID, time.Now().UTC()); err != nil {
			return dto.BatchResult{}, err
		}
		if paper.PDFSizeBytes > 0 {
			if err := store.AdjustUserStorage(ctx, userID, -paper.PDFSizeBytes); err != nil {
				return dto.BatchResult{}, err
			}
		}
		return dto.BatchResult{ID: op.ID, Success: true, Type: dto.BatchOpDelete}, nil

	case dto.BatchOpUpdate:
		paper, err := store.FindActiveByID(ctx, userID, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fail("Paper not found")
			}
			return dto.BatchResult{}, err
		}
		data := op.Data
		if data == nil {
			data = &dto.BatchPaperUpdate{}
		}
		if data.DOI != nil && *data.DOI != "" && *data.DOI != paper.DOIValue() {
			_, err := store.FindActiveByDOI(ctx, userID, *data.DOI, paper.ID)
			if err == nil {
				return fail(fmt.Sprintf("DOI %s already exists", *data.DOI))
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return dto.BatchResult{}, err
			}
		}
		applyPaperUpdate(paper, UpdatePaperRequest{
			Title:   data.Title,
			Authors: data.Authors,
			DOI:     data.DOI,
			Status:  data.Status,
			Tags:    data.Tags,
			Notes:   data.Notes,
		})
		paper.Version++
		paper.UpdatedAt = time.Now().UTC()
		if err := store.Update(ctx, paper); err != nil {
			return dto.BatchResult{}, err
		}
		return dto.BatchResult{ID: op.ID, Success: true, Type: dto.BatchOpUpdate, Data: paper.View()}, nil

	default:
		return fail("Invalid operation type")
	}
}

func applyPaperUpdate(paper *models.Paper, req UpdatePaperRequest) {
	if req.Title != nil {
		paper.Title = *req.Title
	}
	if req.Authors != nil {
		paper.Authors = *req.Authors
	}
	if req.DOI != nil {
		paper.SetDOI(*req.DOI)
	}
	if req.Status != nil {
		paper.Status = paperStatus(*req.Status)
	}
	if req.Tags != nil {
		paper.Tags = *req.Tags
	}
	if req.Notes != nil {
		paper.Notes = *req.Notes
	}
}

func paperStatus(raw string) models.PaperStatus {
	switch models.PaperStatus(raw) {
	case models.PaperStatusReading:
		return models.PaperStatusReading
	case models.PaperStatusRead:
		return models.PaperStatusRead
	default:
		return models.PaperStatusUnread
	}
}

// batchID coerces a JSON id value into a positive integer. JSON numbers
// arrive as float64; numeric strings are tolerated for extension clients.
func batchID(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || n <= 0 || n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}

func paperListCacheKey(userID string, f models.PaperFilter) string {
	return fmt.Sprintf("papers:%s:%s:%s:%s:%d:%d:%s:%s", userID, f.Status, f.Tag, f.Search, f.Page, f.PageSize, f.SortBy, f.SortOrder)
}

func paperCachePattern(userID string) string {
	return fmt.Sprintf("papers:%s:*", userID)
}
