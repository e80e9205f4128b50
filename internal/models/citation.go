package models

import "time"

// Citation is a directed edge between two papers in the same library:
// the citing paper references the cited paper.
type Citation struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CitingID  int64     `db:"citing_id" json:"citing_id"`
	CitedID   int64     `db:"cited_id" json:"cited_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CitationEdge is a citation joined with the counterpart paper's title.
type CitationEdge struct {
	Citation
	Title string `db:"title" json:"title"`
}

// CitationNetwork lists a paper's outbound and inbound edges.
type CitationNetwork struct {
	Cites   []CitationEdge `json:"cites"`
	CitedBy []CitationEdge `json:"cited_by"`
}
