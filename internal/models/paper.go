package models

import (
	"database/sql"
	"time"
)

// PaperStatus tracks reading progress.
type PaperStatus string

const (
	PaperStatusUnread  PaperStatus = "unread"
	PaperStatusReading PaperStatus = "reading"
	PaperStatusRead    PaperStatus = "read"
)

// Paper represents a research paper in a user's library. A non-null
// deleted_at marks the row soft-deleted: invisible to reads but still
// occupying its DOI slot until restored or hard-deleted.
type Paper struct {
	ID           int64          `db:"id" json:"id"`
	UserID       string         `db:"user_id" json:"user_id"`
	Title        string         `db:"title" json:"title"`
	Authors      string         `db:"authors" json:"authors"`
	DOI          sql.NullString `db:"doi" json:"-"`
	Status       PaperStatus    `db:"status" json:"status"`
	Tags         string         `db:"tags" json:"tags"`
	Notes        string         `db:"notes" json:"notes"`
	PDFKey       string         `db:"pdf_key" json:"-"`
	PDFSizeBytes int64          `db:"pdf_size_bytes" json:"pdf_size_bytes"`
	Version      int            `db:"version" json:"version"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time     `db:"deleted_at" json:"deleted_at,omitempty"`
}

// DOIValue returns the DOI or empty string when unset.
func (p *Paper) DOIValue() string {
	if p.DOI.Valid {
		return p.DOI.String
	}
	return ""
}

// SetDOI stores the DOI, mapping empty string to NULL.
func (p *Paper) SetDOI(doi string) {
	p.DOI = sql.NullString{String: doi, Valid: doi != ""}
}

// IsDeleted reports whether the paper is soft-deleted.
func (p *Paper) IsDeleted() bool {
	return p.DeletedAt != nil
}

// PaperView is the JSON projection of a paper with the DOI flattened.
type PaperView struct {
	Paper
	DOI    string `json:"doi,omitempty"`
	HasPDF bool   `json:"has_pdf"`
}

// View converts a paper into its response shape.
func (p Paper) View() PaperView {
	return PaperView{Paper: p, DOI: p.DOIValue(), HasPDF: p.PDFKey != ""}
}

// PaperFilter captures filtering criteria for listing papers.
type PaperFilter struct {
	Status    string
	Tag       string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
