package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/citavers/citavers-api/internal/models"
	appErrors "github.com/citavers/citavers-api/pkg/errors"
)

func TestExportServiceCSV(t *testing.T) {
	repo := &fakePaperRepo{store: newFakePaperStore()}
	repo.store.add(models.Paper{ID: 1, UserID: "u1", Title: "Attention Is All You Need", Authors: "Vaswani et al.", DOI: sql.NullString{String: "10.1/abc", Valid: true}, Status: models.PaperStatusRead, Version: 1})
	svc := NewExportService(repo, zap.NewNop())

	file, err := svc.Bibliography(context.Background(), "u1", ExportFormatCSV, models.PaperFilter{})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))

	content := string(file.Content)
	assert.Contains(t, content, "Title,Authors,DOI,Status,Tags,Added")
	assert.Contains(t, content, "Attention Is All You Need")
	assert.Contains(t, content, "10.1/abc")
}

func TestExportServicePDF(t *testing.T) {
	repo := &fakePaperRepo{store: newFakePaperStore()}
	repo.store.add(models.Paper{ID: 1, UserID: "u1", Title: "Mine", Version: 1})
	svc := NewExportService(repo, zap.NewNop())

	file, err := svc.Bibliography(context.Background(), "u1", ExportFormatPDF, models.PaperFilter{})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Content), "%PDF"))
}

func TestExportServiceUnknownFormat(t *testing.T) {
	repo := &fakePaperRepo{store: newFakePaperStore()}
	svc := NewExportService(repo, zap.NewNop())

	_, err := svc.Bibliography(context.Background(), "u1", "xml", models.PaperFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
