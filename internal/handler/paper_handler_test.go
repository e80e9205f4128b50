package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/citavers/citavers-api/internal/middleware"
	"github.com/citavers/citavers-api/internal/models"
	"github.com/citavers/citavers-api/internal/repository"
	"github.com/citavers/citavers-api/internal/service"
)

// memPaperRepo is an in-memory paper repository backing handler tests with a
// real PaperService.
type memPaperRepo struct {
	papers map[int64]*models.Paper
	nextID int64
}

func newMemPaperRepo() *memPaperRepo {
	return &memPaperRepo{papers: make(map[int64]*models.Paper)}
}

func (m *memPaperRepo) add(p models.Paper) {
	if p.ID == 0 {
		m.nextID++
		p.ID = m.nextID
	} else if p.ID > m.nextID {
		m.nextID = p.ID
	}
	stored := p
	m.papers[p.ID] = &stored
}

func (m *memPaperRepo) InTx(ctx context.Context, fn func(repository.PaperStore) error) error {
	return fn(m)
}

func (m *memPaperRepo) List(ctx context.Context, userID string, filter models.PaperFilter) ([]models.Paper, int, error) {
	var papers []models.Paper
	for _, p := range m.papers {
		if p.UserID == userID && !p.IsDeleted() {
			papers = append(papers, *p)
		}
	}
	return papers, len(papers), nil
}

func (m *memPaperRepo) FindActiveByID(ctx context.Context, userID string, id int64) (*models.Paper, error) {
	p, ok := m.papers[id]
	if !ok || p.UserID != userID || p.IsDeleted() {
		return nil, sql.ErrNoRows
	}
	copied := *p
	return &copied, nil
}

func (m *memPaperRepo) FindByDOIForUpdate(ctx context.Context, userID, doi string, excludeID int64) (*models.Paper, error) {
	var match *models.Paper
	for _, p := range m.papers {
		if p.UserID != userID || p.DOIValue() != doi || p.ID == excludeID {
			continue
		}
		if match == nil || p.UpdatedAt.After(match.UpdatedAt) {
			match = p
		}
	}
	if match == nil {
		return nil, sql.ErrNoRows
	}
	copied := *match
	return &copied, nil
}

func (m *memPaperRepo) FindActiveByDOI(ctx context.Context, userID, doi string, excludeID int64) (*models.Paper, error) {
	for _, p := range m.papers {
		if p.UserID == userID && p.DOIValue() == doi && p.ID != excludeID && !p.IsDeleted() {
			copied := *p
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memPaperRepo) Insert(ctx context.Context, paper *models.Paper) error {
	m.nextID++
	paper.ID = m.nextID
	if paper.Version == 0 {
		paper.Version = 1
	}
	if paper.Status == "" {
		paper.Status = models.PaperStatusUnread
	}
	stored := *paper
	m.papers[paper.ID] = &stored
	return nil
}

func (m *memPaperRepo) Update(ctx context.Context, paper *models.Paper) error {
	if _, ok := m.papers[paper.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *paper
	m.papers[paper.ID] = &stored
	return nil
}

func (m *memPaperRepo) SoftDelete(ctx context.Context, userID string, id int64, at time.Time) error {
	p, ok := m.papers[id]
	if !ok || p.UserID != userID || p.IsDeleted() {
		return sql.ErrNoRows
	}
	p.DeletedAt = &at
	return nil
}

func (m *memPaperRepo) HardDelete(ctx context.Context, userID string, id int64) error {
	delete(m.papers, id)
	return nil
}

func (m *memPaperRepo) AdjustUserStorage(ctx context.Context, userID string, delta int64) error {
	return nil
}

func newPaperHandler(repo *memPaperRepo) *PaperHandler {
	papers := service.NewPaperService(repo, nil, nil, 100, validator.New(), zap.NewNop())
	export := service.NewExportService(repo, zap.NewNop())
	return NewPaperHandler(papers, export)
}

func authedContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Email: "reader@example.com"})
	return c, rec
}

func TestPaperHandlerCreate(t *testing.T) {
	repo := newMemPaperRepo()
	handler := newPaperHandler(repo)

	body, _ := json.Marshal(map[string]string{"title": "Attention Is All You Need", "doi": "10.1/abc"})
	c, rec := authedContext(t, http.MethodPost, "/papers", body)

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var envelope struct {
		Data models.PaperView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, int64(1), envelope.Data.ID)
	assert.Equal(t, "10.1/abc", envelope.Data.DOI)
}

func TestPaperHandlerCreateDuplicateDOI(t *testing.T) {
	repo := newMemPaperRepo()
	repo.add(models.Paper{UserID: "u1", Title: "Original", DOI: sql.NullString{String: "10.1/abc", Valid: true}, Version: 1})
	handler := newPaperHandler(repo)

	body, _ := json.Marshal(map[string]string{"title": "Copy", "doi": "10.1/abc"})
	c, rec := authedContext(t, http.MethodPost, "/papers", body)

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "DOI 10.1/abc already exists")
}

func TestPaperHandlerCreateUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPaperHandler(newMemPaperRepo())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/papers", bytes.NewReader(nil))

	handler.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPaperHandlerGetInvalidID(t *testing.T) {
	handler := newPaperHandler(newMemPaperRepo())

	c, rec := authedContext(t, http.MethodGet, "/papers/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.Get(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaperHandlerBatch(t *testing.T) {
	repo := newMemPaperRepo()
	repo.add(models.Paper{ID: 1, UserID: "u1", Title: "One", Version: 1})
	handler := newPaperHandler(repo)

	body := []byte(`{"operations":[{"type":"delete","id":1},{"type":"delete","id":99}]}`)
	c, rec := authedContext(t, http.MethodPost, "/papers/batch", body)

	handler.Batch(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data []struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
	assert.True(t, envelope.Data[0].Success)
	assert.False(t, envelope.Data[1].Success)
	assert.Equal(t, "Paper not found or already deleted", envelope.Data[1].Error)
}

func TestPaperHandlerBatchEmpty(t *testing.T) {
	handler := newPaperHandler(newMemPaperRepo())

	body := []byte(`{"operations":[]}`)
	c, rec := authedContext(t, http.MethodPost, "/papers/batch", body)

	handler.Batch(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaperHandlerExportCSV(t *testing.T) {
	repo := newMemPaperRepo()
	repo.add(models.Paper{ID: 1, UserID: "u1", Title: "One", Version: 1})
	handler := newPaperHandler(repo)

	c, rec := authedContext(t, http.MethodGet, "/papers/export?format=csv", nil)

	handler.Export(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "bibliography-")
	assert.Contains(t, rec.Body.String(), "One")
}
