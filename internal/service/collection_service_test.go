package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/citavers/citavers-api/internal/models"
	appErrors "github.com/citavers/citavers-api/pkg/errors"
)

type mockCollectionRepo struct {
	collections map[int64]*models.Collection
	members     map[int64]map[int64]bool
	nextID      int64
}

func newMockCollectionRepo() *mockCollectionRepo {
	return &mockCollectionRepo{
		collections: make(map[int64]*models.Collection),
		members:     make(map[int64]map[int64]bool),
	}
}

func (m *mockCollectionRepo) List(ctx context.Context, userID string) ([]models.CollectionDetail, error) {
	var details []models.CollectionDetail
	for _, c := range m.collections {
		if c.UserID == userID {
			details = append(details, models.CollectionDetail{Collection: *c, PaperCount: len(m.members[c.ID])})
		}
	}
	return details, nil
}

func (m *mockCollectionRepo) FindByID(ctx context.Context, userID string, id int64) (*models.Collection, error) {
	c, ok := m.collections[id]
	if !ok || c.UserID != userID {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func (m *mockCollectionRepo) ExistsByName(ctx context.Context, userID, name string, excludeID int64) (bool, error) {
	for _, c := range m.collections {
		if c.UserID == userID && c.Name == name && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCollectionRepo) Create(ctx context.Context, collection *models.Collection) error {
	m.nextID++
	collection.ID = m.nextID
	stored := *collection
	m.collections[collection.ID] = &stored
	return nil
}

func (m *mockCollectionRepo) Update(ctx context.Context, collection *models.Collection) error {
	stored := *collection
	m.collections[collection.ID] = &stored
	return nil
}

func (m *mockCollectionRepo) Delete(ctx context.Context, userID string, id int64) error {
	delete(m.collections, id)
	delete(m.members, id)
	return nil
}

func (m *mockCollectionRepo) HasPaper(ctx context.Context, collectionID, paperID int64) (bool, error) {
	return m.members[collectionID][paperID], nil
}

func (m *mockCollectionRepo) AddPaper(ctx context.Context, collectionID, paperID int64) error {
	if m.members[collectionID] == nil {
		m.members[collectionID] = make(map[int64]bool)
	}
	m.members[collectionID][paperID] = true
	return nil
}

func (m *mockCollectionRepo) RemovePaper(ctx context.Context, collectionID, paperID int64) error {
	delete(m.members[collectionID], paperID)
	return nil
}

func (m *mockCollectionRepo) ListPapers(ctx context.Context, collectionID int64) ([]models.Paper, error) {
	return nil, nil
}

func newCollectionService(repo *mockCollectionRepo, papers *fakePaperRepo) *CollectionService {
	return NewCollectionService(repo, papers, validator.New(), zap.NewNop())
}

func TestCollectionServiceCreate(t *testing.T) {
	repo := newMockCollectionRepo()
	svc := newCollectionService(repo, &fakePaperRepo{store: newFakePaperStore()})

	collection, err := svc.Create(context.Background(), "u1", CollectionRequest{Name: "To Read"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), collection.ID)

	_, err = svc.Create(context.Background(), "u1", CollectionRequest{Name: "To Read"})
	require.Error(t, err, "names are unique per user")
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCollectionServiceUpdateNameClash(t *testing.T) {
	repo := newMockCollectionRepo()
	svc := newCollectionService(repo, &fakePaperRepo{store: newFakePaperStore()})

	first, err := svc.Create(context.Background(), "u1", CollectionRequest{Name: "To Read"})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), "u1", CollectionRequest{Name: "Reading"})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "u1", second.ID, CollectionRequest{Name: "To Read"})
	require.Error(t, err)

	renamed, err := svc.Update(context.Background(), "u1", first.ID, CollectionRequest{Name: "To Read", Description: "queue"})
	require.NoError(t, err, "keeping one's own name is not a clash")
	assert.Equal(t, "queue", renamed.Description)
}

func TestCollectionServiceAddPaper(t *testing.T) {
	repo := newMockCollectionRepo()
	papers := &fakePaperRepo{store: newFakePaperStore()}
	papers.store.add(models.Paper{ID: 1, UserID: "u1", Title: "Mine", Version: 1})
	svc := newCollectionService(repo, papers)

	collection, err := svc.Create(context.Background(), "u1", CollectionRequest{Name: "To Read"})
	require.NoError(t, err)

	require.NoError(t, svc.AddPaper(context.Background(), "u1", collection.ID, 1))
	require.NoError(t, svc.AddPaper(context.Background(), "u1", collection.ID, 1), "re-adding is a no-op")

	err = svc.AddPaper(context.Background(), "u1", collection.ID, 99)
	require.Error(t, err, "missing papers are rejected")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCollectionServiceScopedToUser(t *testing.T) {
	repo := newMockCollectionRepo()
	svc := newCollectionService(repo, &fakePaperRepo{store: newFakePaperStore()})

	collection, err := svc.Create(context.Background(), "u1", CollectionRequest{Name: "To Read"})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "other", collection.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
