package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/citavers/citavers-api/internal/models"
	appErrors "github.com/citavers/citavers-api/pkg/errors"
)

type annotationRepository interface {
	ListByPaper(ctx context.Context, userID string, paperID int64) ([]models.Annotation, error)
	FindByID(ctx context.Context, userID string, id int64) (*models.Annotation, error)
	Create(ctx context.Context, annotation *models.Annotation) error
	Update(ctx context.Context, annotation *models.Annotation) error
	Delete(ctx context.Context, userID string, id int64) error
}

// CreateAnnotationRequest attaches a note to a paper page.
type CreateAnnotationRequest struct {
	Page  int    `json:"page" validate:"required,gt=0"`
	Quote string `json:"quote"`
	Body  string `json:"body" validate:"required"`
	Color string `json:"color" validate:"omitempty,oneof=yellow green blue pink"`
}

// UpdateAnnotationRequest carries partial annotation changes.
type UpdateAnnotationRequest struct {
	Page  *int    `json:"page" validate:"omitempty,gt=0"`
	Quote *string `json:"quote"`
	Body  *string `json:"body"`
	Color *string `json:"color" validate:"omitempty,oneof=yellow green blue pink"`
}

// AnnotationService manages per-paper annotations.
type AnnotationService struct {
	repo      annotationRepository
	papers    collectionPaperLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAnnotationService constructs an AnnotationService instance.
func NewAnnotationService(repo annotationRepository, papers collectionPaperLookup, validate *validator.Validate, logger *zap.Logger) *AnnotationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AnnotationService{repo: repo, papers: papers, validator: validate, logger: logger}
}

// List returns a paper's annotations ordered by page.
func (s *AnnotationService) List(ctx context.Context, userID string, paperID int64) ([]models.Annotation, error) {
	if err := s.requireActivePaper(ctx, userID, paperID); err != nil {
		return nil, err
	}
	annotations, err := s.repo.ListByPaper(ctx, userID, paperID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list annotations")
	}
	if annotations == nil {
		annotations = []models.Annotation{}
	}
	return annotations, nil
}

// Create attaches a new annotation to an active paper.
func (s *AnnotationService) Create(ctx context.Context, userID string, paperID int64, req CreateAnnotationRequest) (*models.Annotation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid annotation payload")
	}
	if err := s.requireActivePaper(ctx, userID, paperID); err != nil {
		return nil, err
	}

	annotation := &models.Annotation{
		PaperID: paperID,
		UserID:  userID,
		Page:    req.Page,
		Quote:   req.Quote,
		Body:    req.Body,
		Color:   req.Color,
	}
	if err := s.repo.Create(ctx, annotation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create annotation")
	}
	return annotation, nil
}

// Update applies partial changes to an annotation.
func (s *AnnotationService) Update(ctx context.Context, userID string, id int64, req UpdateAnnotationRequest) (*models.Annotation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid annotation payload")
	}

	annotation, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "annotation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load annotation")
	}

	if req.Page != nil {
		annotation.Page = *req.Page
	}
	if req.Quote != nil {
		annotation.Quote = *req.Quote
	}
	if req.Body != nil {
		annotation.Body = *req.Body
	}
	if req.Color != nil {
		annotation.Color = *req.Color
	}
	if err := s.repo.Update(ctx, annotation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update annotation")
	}
	return annotation, nil
}

// Delete removes an annotation.
func (s *AnnotationService) Delete(ctx context.Context, userID string, id int64) error {
	if _, err := s.repo.FindByID(ctx, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "annotation not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load annotation")
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete annotation")
	}
	return nil
}

func (s *AnnotationService) requireActivePaper(ctx context.Context, userID string, paperID int64) error {
	if _, err := s.papers.FindActiveByID(ctx, userID, paperID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
	}
	return nil
}
