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

type citationRepository interface {
	Exists(ctx context.Context, userID string, citingID, citedID int64) (bool, error)
	Create(ctx context.Context, citation *models.Citation) error
	Delete(ctx context.Context, userID string, id int64) error
	ListOutbound(ctx context.Context, userID string, paperID int64) ([]models.CitationEdge, error)
	ListInbound(ctx context.Context, userID string, paperID int64) ([]models.CitationEdge, error)
}

// CreateCitationRequest records that one paper cites another.
type CreateCitationRequest struct {
	CitingID int64 `json:"citing_id" validate:"required,gt=0"`
	CitedID  int64 `json:"cited_id" validate:"required,gt=0"`
}

// CitationService manages citation edges between papers of one library.
type CitationService struct {
	repo      citationRepository
	papers    collectionPaperLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCitationService constructs a CitationService instance.
func NewCitationService(repo citationRepository, papers collectionPaperLookup, validate *validator.Validate, logger *zap.Logger) *CitationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CitationService{repo: repo, papers: papers, validator: validate, logger: logger}
}

// Create records a citation edge. Both endpoints must be active papers of
// the same user, self-citations and duplicate edges are rejected.
func (s *CitationService) Create(ctx context.Context, userID string, req CreateCitationRequest) (*models.Citation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid citation payload")
	}
	if req.CitingID == req.CitedID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a paper cannot cite itself")
	}

	for _, id := range []int64{req.CitingID, req.CitedID} {
		if _, err := s.papers.FindActiveByID(ctx, userID, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
		}
	}

	exists, err := s.repo.Exists(ctx, userID, req.CitingID, req.CitedID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check citation")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "citation already recorded")
	}

	citation := &models.Citation{
		UserID:   userID,
		CitingID: req.CitingID,
		CitedID:  req.CitedID,
	}
	if err := s.repo.Create(ctx, citation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create citation")
	}
	return citation, nil
}

// Delete removes a citation edge.
func (s *CitationService) Delete(ctx context.Context, userID string, id int64) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete citation")
	}
	return nil
}

// Network returns the outbound and inbound edges of one paper.
func (s *CitationService) Network(ctx context.Context, userID string, paperID int64) (*models.CitationNetwork, error) {
	if _, err := s.papers.FindActiveByID(ctx, userID, paperID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
	}

	cites, err := s.repo.ListOutbound(ctx, userID, paperID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list citations")
	}
	citedBy, err := s.repo.ListInbound(ctx, userID, paperID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list citations")
	}
	if cites == nil {
		cites = []models.CitationEdge{}
	}
	if citedBy == nil {
		citedBy = []models.CitationEdge{}
	}
	return &models.CitationNetwork{Cites: cites, CitedBy: citedBy}, nil
}
