package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/citavers/citavers-api/internal/dto"
	"github.com/citavers/citavers-api/internal/repository"
	appErrors "github.com/citavers/citavers-api/pkg/errors"
	"github.com/citavers/citavers-api/pkg/storage"
)

type pdfPresigner interface {
	PresignUpload(ctx context.Context, key string) (string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
}

type pdfUserRepository interface {
	ReserveStorage(ctx context.Context, userID string, delta, ceiling int64) (bool, error)
	ReleaseStorage(ctx context.Context, userID string, delta int64) error
}

// PDFService manages PDF attachments: the client uploads and downloads
// directly against object storage through presigned URLs, the API only
// brokers keys and tracks the user's storage quota.
type PDFService struct {
	papers    paperRepository
	users     pdfUserRepository
	presigner pdfPresigner
	cache     *CacheService
	maxBytes  int64
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPDFService constructs a PDFService instance.
func NewPDFService(papers paperRepository, users pdfUserRepository, presigner pdfPresigner, cache *CacheService, maxBytes int64, validate *validator.Validate, logger *zap.Logger) *PDFService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PDFService{papers: papers, users: users, presigner: presigner, cache: cache, maxBytes: maxBytes, validator: validate, logger: logger}
}

// PresignUpload returns a presigned PUT URL for a fresh object key. Nothing
// is recorded until the client confirms the upload.
func (s *PDFService) PresignUpload(ctx context.Context, userID string, paperID int64) (*dto.PresignUploadResponse, error) {
	if _, err := s.papers.FindActiveByID(ctx, userID, paperID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
	}

	key := storage.ObjectKey(userID)
	url, err := s.presigner.PresignUpload(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to presign upload")
	}
	return &dto.PresignUploadResponse{UploadURL: url, Key: key}, nil
}

// ConfirmUpload records a completed upload against the paper and charges the
// user's quota. The quota is reserved before the paper row changes; if the
// transaction fails the reservation is rolled back, and if the paper already
// had a PDF its old size is released after the swap.
func (s *PDFService) ConfirmUpload(ctx context.Context, userID string, paperID int64, req dto.ConfirmUploadRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid upload confirmation")
	}
	if !strings.HasPrefix(req.Key, "pdfs/"+userID+"/") {
		return appErrors.Clone(appErrors.ErrValidation, "key does not belong to user")
	}

	reserved, err := s.users.ReserveStorage(ctx, userID, req.SizeBytes, s.maxBytes)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve storage")
	}
	if !reserved {
		return appErrors.Clone(appErrors.ErrQuotaExceeded, "storage quota exceeded")
	}

	var previousSize int64
	err = s.papers.InTx(ctx, func(store repository.PaperStore) error {
		paper, err := store.FindActiveByID(ctx, userID, paperID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "paper not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
		}
		previousSize = paper.PDFSizeBytes
		paper.PDFKey = req.Key
		paper.PDFSizeBytes = req.SizeBytes
		paper.Version++
		paper.UpdatedAt = time.Now().UTC()
		if err := store.Update(ctx, paper); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach PDF")
		}
		return nil
	})
	if err != nil {
		if releaseErr := s.users.ReleaseStorage(ctx, userID, req.SizeBytes); releaseErr != nil {
			s.logger.Warn("failed to release reserved storage", zap.Error(releaseErr))
		}
		return err
	}

	if previousSize > 0 {
		if err := s.users.ReleaseStorage(ctx, userID, previousSize); err != nil {
			s.logger.Warn("failed to release replaced PDF storage", zap.Error(err))
		}
	}

	s.cache.Invalidate(ctx, paperCachePattern(userID))
	return nil
}

// PresignDownload returns a presigned GET URL for the paper's PDF.
func (s *PDFService) PresignDownload(ctx context.Context, userID string, paperID int64) (*dto.PresignDownloadResponse, error) {
	paper, err := s.papers.FindActiveByID(ctx, userID, paperID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
	}
	if paper.PDFKey == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "paper has no PDF attached")
	}

	url, err := s.presigner.PresignDownload(ctx, paper.PDFKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to presign download")
	}
	return &dto.PresignDownloadResponse{DownloadURL: url}, nil
}
