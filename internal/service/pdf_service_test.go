package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/citavers/citavers-api/internal/dto"
	"github.com/citavers/citavers-api/internal/models"
	appErrors "github.com/citavers/citavers-api/pkg/errors"
)

type fakePresigner struct {
	uploads   []string
	downloads []string
}

func (f *fakePresigner) PresignUpload(ctx context.Context, key string) (string, error) {
	f.uploads = append(f.uploads, key)
	return "https://s3.local/put/" + key, nil
}

func (f *fakePresigner) PresignDownload(ctx context.Context, key string) (string, error) {
	f.downloads = append(f.downloads, key)
	return "https://s3.local/get/" + key, nil
}

type fakeQuotaRepo struct {
	used    map[string]int64
	ceiling int64
}

func (f *fakeQuotaRepo) ReserveStorage(ctx context.Context, userID string, delta, ceiling int64) (bool, error) {
	if f.used == nil {
		f.used = make(map[string]int64)
	}
	if f.used[userID]+delta > ceiling {
		return false, nil
	}
	f.used[userID] += delta
	return true, nil
}

func (f *fakeQuotaRepo) ReleaseStorage(ctx context.Context, userID string, delta int64) error {
	if f.used == nil {
		f.used = make(map[string]int64)
	}
	f.used[userID] -= delta
	if f.used[userID] < 0 {
		f.used[userID] = 0
	}
	return nil
}

func newPDFService(repo *fakePaperRepo, users *fakeQuotaRepo, presigner *fakePresigner, maxBytes int64) *PDFService {
	return NewPDFService(repo, users, presigner, nil, maxBytes, validator.New(), zap.NewNop())
}

func TestPDFServicePresignUpload(t *testing.T) {
	repo := &fakePaperRepo{store: newFakePaperStore()}
	repo.store.add(models.Paper{ID: 1, UserID: "u1", Title: "Mine", Version: 1})
	presigner := &fakePresigner{}
	svc := newPDFService(repo, &fakeQuotaRepo{}, presigner, 1<<20)

	res, err := svc.PresignUpload(context.Background(), "u1", 1)
	require.NoError(t, err)
	assert.Contains(t, res.Key, "pdfs/u1/")
	assert.Contains(t, res.UploadURL, res.Key)
}

func TestPDFServicePresignUploadMissingPaper(t *testing.T) {
	repo := &fakePaperRepo{store: newFakePaperStore()}
	svc := newPDFService(repo, &fakeQuotaRepo{}, &fakePresigner{}, 1<<20)

	_, err := svc.PresignUpload(context.Background(), "u1", 42)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPDFServiceConfirmUpload(t *testing.T) {
	repo := &fakePaperRepo{store: newFakePaperStore()}
	repo.store.add(models.Paper{ID: 1, UserID: "u1", Title: "Mine", Version: 1})
	users := &fakeQuotaRepo{}
	svc := newPDFService(repo, users, &fakePresigner{}, 1<<20)

	err := svc.ConfirmUpload(context.Background(), "u1", 1, dto.ConfirmUploadRequest{
		Key: "pdfs/u1/2026/08/doc.pdf", SizeBytes: 2048,
	})
	require.NoError(t, err)
	paper := repo.store.papers[1]
	assert.Equal(t, "pdfs/u1/2026/08/doc.pdf", paper.PDFKey)
	assert.Equal(t, int64(2048), paper.PDFSizeBytes)
	assert.Equal(t, 2, paper.Version)
	assert.Equal(t, int64(2048), users.used["u1"])
}

func TestPDFServiceConfirmUploadQuotaExceeded(t *testing.T) {
	repo := &fakePaperRepo{store: newFakePaperStore()}
	repo.store.add(models.Paper{ID: 1, UserID: "u1", Title: "Mine", Version: 1})
	users := &fakeQuotaRepo{}
	svc := newPDFService(repo, users, &fakePresigner{}, 1024)

	err := svc.ConfirmUpload(context.Background(), "u1", 1, dto.ConfirmUploadRequest{
		Key: "pdfs/u1/2026/08/doc.pdf", SizeBytes: 4096,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrQuotaExceeded.Code, appErrors.FromError(err).Code)
	assert.Equal(t, int64(0), users.used["u1"])
	assert.Empty(t, repo.store.papers[1].PDFKey)
}

func TestPDFServiceConfirmUploadReplacesPrevious(t *testing.T) {
	repo := &fakePaperRepo{store: newFakePaperStore()}
	repo.store.add(models.Paper{ID: 1, UserID: "u1", Title: "Mine", Version: 2, PDFKey: "pdfs/u1/old.pdf", PDFSizeBytes: 1000})
	users := &fakeQuotaRepo{used: map[string]int64{"u1": 1000}}
	svc := newPDFService(repo, users, &fakePresigner{}, 1 << 20)

	err := svc.ConfirmUpload(context.Background(), "u1", 1, dto.ConfirmUploadRequest{
		Key: "pdfs/u1/new.pdf", SizeBytes: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, "pdfs/u1/new.pdf", repo.store.papers[1].PDFKey)
	assert.Equal(t, int64(500), users.used["u1"], "old PDF size is released")
}

func TestPDFServiceConfirmUploadForeignKey(t *testing.T) {
	repo := &fakePaperRepo{store: newFakePaperStore()}
	repo.store.add(models.Paper{ID: 1, UserID: "u1", Title: "Mine", Version: 1})
	svc := newPDFService(repo, &fakeQuotaRepo{}, &fakePresigner{}, 1<<20)

	err := svc.ConfirmUpload(context.Background(), "u1", 1, dto.ConfirmUploadRequest{
		Key: "pdfs/other/doc.pdf", SizeBytes: 100,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPDFServicePresignDownload(t *testing.T) {
	repo := &fakePaperRepo{store: newFakePaperStore()}
	repo.store.add(models.Paper{ID: 1, UserID: "u1", Title: "Mine", Version: 1, PDFKey: "pdfs/u1/doc.pdf"})
	svc := newPDFService(repo, &fakeQuotaRepo{}, &fakePresigner{}, 1<<20)

	res, err := svc.PresignDownload(context.Background(), "u1", 1)
	require.NoError(t, err)
	assert.Contains(t, res.DownloadURL, "pdfs/u1/doc.pdf")
}

func TestPDFServicePresignDownloadNoPDF(t *testing.T) {
	repo := &fakePaperRepo{store: newFakePaperStore()}
	repo.store.add(models.Paper{ID: 1, UserID: "u1", Title: "Mine", Version: 1})
	svc := newPDFService(repo, &fakeQuotaRepo{}, &fakePresigner{}, 1<<20)

	_, err := svc.PresignDownload(context.Background(), "u1", 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
