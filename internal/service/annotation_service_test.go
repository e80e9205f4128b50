package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/citavers/citavers-api/internal/models"
	appErrors "github.com/citavers/citavers-api/pkg/errors"
)

type mockAnnotationRepo struct {
	annotations map[int64]*models.Annotation
	nextID      int64
}

func newMockAnnotationRepo() *mockAnnotationRepo {
	return &mockAnnotationRepo{annotations: make(map[int64]*models.Annotation)}
}

func (m *mockAnnotationRepo) ListByPaper(ctx context.Context, userID string, paperID int64) ([]models.Annotation, error) {
	var out []models.Annotation
	for _, a := range m.annotations {
		if a.UserID == userID && a.PaperID == paperID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAnnotationRepo) FindByID(ctx context.Context, userID string, id int64) (*models.Annotation, error) {
	a, ok := m.annotations[id]
	if !ok || a.UserID != userID {
		return nil, sql.ErrNoRows
	}
	copied := *a
	return &copied, nil
}

func (m *mockAnnotationRepo) Create(ctx context.Context, annotation *models.Annotation) error {
	m.nextID++
	annotation.ID = m.nextID
	stored := *annotation
	m.annotations[annotation.ID] = &stored
	return nil
}

func (m *mockAnnotationRepo) Update(ctx context.Context, annotation *models.Annotation) error {
	stored := *annotation
	m.annotations[annotation.ID] = &stored
	return nil
}

func (m *mockAnnotationRepo) Delete(ctx context.Context, userID string, id int64) error {
	delete(m.annotations, id)
	return nil
}

func newAnnotationService(repo *mockAnnotationRepo, papers *fakePaperRepo) *AnnotationService {
	return NewAnnotationService(repo, papers, validator.New(), zap.NewNop())
}

func TestAnnotationServiceCreate(t *testing.T) {
	papers := &fakePaperRepo{store: newFakePaperStore()}
	papers.store.add(models.Paper{ID: 1, UserID: "u1", Title: "Mine", Version: 1})
	repo := newMockAnnotationRepo()
	svc := newAnnotationService(repo, papers)

	annotation, err := svc.Create(context.Background(), "u1", 1, CreateAnnotationRequest{Page: 3, Body: "key claim", Color: "yellow"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), annotation.ID)
	assert.Equal(t, 3, annotation.Page)
}

func TestAnnotationServiceCreateValidation(t *testing.T) {
	papers := &fakePaperRepo{store: newFakePaperStore()}
	papers.store.add(models.Paper{ID: 1, UserID: "u1", Title: "Mine", Version: 1})
	svc := newAnnotationService(newMockAnnotationRepo(), papers)

	_, err := svc.Create(context.Background(), "u1", 1, CreateAnnotationRequest{Page: 0, Body: "missing page"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), "u1", 1, CreateAnnotationRequest{Page: 1, Body: "bad color", Color: "mauve"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAnnotationServiceRequiresActivePaper(t *testing.T) {
	papers := &fakePaperRepo{store: newFakePaperStore()}
	deleted := time.Now()
	papers.store.add(models.Paper{ID: 1, UserID: "u1", Title: "Ghost", Version: 1, DeletedAt: &deleted})
	svc := newAnnotationService(newMockAnnotationRepo(), papers)

	_, err := svc.Create(context.Background(), "u1", 1, CreateAnnotationRequest{Page: 1, Body: "note"})
	require.Error(t, err, "soft-deleted papers do not accept annotations")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.List(context.Background(), "u1", 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAnnotationServiceUpdate(t *testing.T) {
	papers := &fakePaperRepo{store: newFakePaperStore()}
	papers.store.add(models.Paper{ID: 1, UserID: "u1", Title: "Mine", Version: 1})
	repo := newMockAnnotationRepo()
	svc := newAnnotationService(repo, papers)

	annotation, err := svc.Create(context.Background(), "u1", 1, CreateAnnotationRequest{Page: 1, Quote: "as shown", Body: "original"})
	require.NoError(t, err)

	body := "revised"
	updated, err := svc.Update(context.Background(), "u1", annotation.ID, UpdateAnnotationRequest{Body: &body})
	require.NoError(t, err)
	assert.Equal(t, "revised", updated.Body)
	assert.Equal(t, "as shown", updated.Quote, "untouched fields survive partial updates")

	_, err = svc.Update(context.Background(), "other", annotation.ID, UpdateAnnotationRequest{Body: &body})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAnnotationServiceDelete(t *testing.T) {
	papers := &fakePaperRepo{store: newFakePaperStore()}
	papers.store.add(models.Paper{ID: 1, UserID: "u1", Title: "Mine", Version: 1})
	repo := newMockAnnotationRepo()
	svc := newAnnotationService(repo, papers)

	annotation, err := svc.Create(context.Background(), "u1", 1, CreateAnnotationRequest{Page: 1, Body: "note"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "u1", annotation.ID))

	err = svc.Delete(context.Background(), "u1", annotation.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
