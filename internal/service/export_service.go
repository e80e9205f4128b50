package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/citavers/citavers-api/internal/models"
	appErrors "github.com/citavers/citavers-api/pkg/errors"
	"github.com/citavers/citavers-api/pkg/export"
)

// Export format identifiers.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportFile carries rendered export content plus download metadata.
type ExportFile struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders a user's bibliography into downloadable files.
type ExportService struct {
	repo   paperRepository
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs an ExportService instance.
func NewExportService(repo paperRepository, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo:   repo,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// Bibliography exports the user's active papers, honoring list filters, in
// the requested format.
func (s *ExportService) Bibliography(ctx context.Context, userID, format string, filter models.PaperFilter) (*ExportFile, error) {
	filter.Page = 1
	filter.PageSize = 10000
	papers, _, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load papers")
	}

	dataset := bibliographyDataset(papers)
	stamp := time.Now().UTC().Format("2006-01-02")

	switch format {
	case ExportFormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("bibliography-%s.csv", stamp),
		}, nil
	case ExportFormatPDF:
		content, err := s.pdf.Render(dataset, "Bibliography")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("bibliography-%s.pdf", stamp),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func bibliographyDataset(papers []models.Paper) export.Dataset {
	headers := []string{"Title", "Authors", "DOI", "Status", "Tags", "Added"}
	rows := make([]map[string]string, 0, len(papers))
	for _, paper := range papers {
		rows = append(rows, map[string]string{
			"Title":   paper.Title,
			"Authors": paper.Authors,
			"DOI":     paper.DOIValue(),
			"Status":  string(paper.Status),
			"Tags":    paper.Tags,
			"Added":   paper.CreatedAt.Format("2006-01-02"),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
