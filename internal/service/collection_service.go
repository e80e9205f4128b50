package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/citavers/citavers-api/internal/models"
	appErrors "github.com/citavers/citavers-api/pkg/errors"
)

type collectionRepository interface {
	List(ctx context.Context, userID string) ([]models.CollectionDetail, error)
	FindByID(ctx context.Context, userID string, id int64) (*models.Collection, error)
	ExistsByName(ctx context.Context, userID, name string, excludeID int64) (bool, error)
	Create(ctx context.Context, collection *models.Collection) error
	Update(ctx context.Context, collection *models.Collection) error
	Delete(ctx context.Context, userID string, id int64) error
	HasPaper(ctx context.Context, collectionID, paperID int64) (bool, error)
	AddPaper(ctx context.Context, collectionID, paperID int64) error
	RemovePaper(ctx context.Context, collectionID, paperID int64) error
	ListPapers(ctx context.Context, collectionID int64) ([]models.Paper, error)
}

type collectionPaperLookup interface {
	FindActiveByID(ctx context.Context, userID string, id int64) (*models.Paper, error)
}

// CollectionRequest creates or renames a collection.
type CollectionRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description"`
}

// CollectionService manages collections and their membership.
type CollectionService struct {
	repo      collectionRepository
	papers    collectionPaperLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCollectionService constructs a CollectionService instance.
func NewCollectionService(repo collectionRepository, papers collectionPaperLookup, validate *validator.Validate, logger *zap.Logger) *CollectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CollectionService{repo: repo, papers: papers, validator: validate, logger: logger}
}

// List returns the user's collections with paper counts.
func (s *CollectionService) List(ctx context.Context, userID string) ([]models.CollectionDetail, error) {
	collections, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list collections")
	}
	if collections == nil {
		collections = []models.CollectionDetail{}
	}
	return collections, nil
}

// Create adds a new collection. Names are unique per user.
func (s *CollectionService) Create(ctx context.Context, userID string, req CollectionRequest) (*models.Collection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid collection payload")
	}

	taken, err := s.repo.ExistsByName(ctx, userID, req.Name, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check collection name")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("collection %q already exists", req.Name))
	}

	collection := &models.Collection{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, collection); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create collection")
	}
	return collection, nil
}

// Update renames a collection or changes its description.
func (s *CollectionService) Update(ctx context.Context, userID string, id int64, req CollectionRequest) (*models.Collection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid collection payload")
	}

	collection, err := s.findCollection(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	taken, err := s.repo.ExistsByName(ctx, userID, req.Name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check collection name")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("collection %q already exists", req.Name))
	}

	collection.Name = req.Name
	collection.Description = req.Description
	if err := s.repo.Update(ctx, collection); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update collection")
	}
	return collection, nil
}

// Delete removes a collection. Papers themselves are untouched.
func (s *CollectionService) Delete(ctx context.Context, userID string, id int64) error {
	if _, err := s.findCollection(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete collection")
	}
	return nil
}

// AddPaper links an active paper to the collection. Adding twice is a no-op.
func (s *CollectionService) AddPaper(ctx context.Context, userID string, collectionID, paperID int64) error {
	if _, err := s.findCollection(ctx, userID, collectionID); err != nil {
		return err
	}
	if _, err := s.papers.FindActiveByID(ctx, userID, paperID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
	}

	linked, err := s.repo.HasPaper(ctx, collectionID, paperID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if linked {
		return nil
	}
	if err := s.repo.AddPaper(ctx, collectionID, paperID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add paper to collection")
	}
	return nil
}

// RemovePaper unlinks a paper from the collection.
func (s *CollectionService) RemovePaper(ctx context.Context, userID string, collectionID, paperID int64) error {
	if _, err := s.findCollection(ctx, userID, collectionID); err != nil {
		return err
	}
	if err := s.repo.RemovePaper(ctx, collectionID, paperID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove paper from collection")
	}
	return nil
}

// ListPapers returns the active papers in the collection.
func (s *CollectionService) ListPapers(ctx context.Context, userID string, collectionID int64) ([]models.PaperView, error) {
	if _, err := s.findCollection(ctx, userID, collectionID); err != nil {
		return nil, err
	}
	papers, err := s.repo.ListPapers(ctx, collectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list collection papers")
	}
	views := make([]models.PaperView, 0, len(papers))
	for _, paper := range papers {
		views = append(views, paper.View())
	}
	return views, nil
}

func (s *CollectionService) findCollection(ctx context.Context, userID string, id int64) (*models.Collection, error) {
	collection, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "collection not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load collection")
	}
	return collection, nil
}
