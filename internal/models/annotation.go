package models

import "time"

// Annotation is a highlight or note attached to a paper.
type Annotation struct {
	ID        int64     `db:"id" json:"id"`
	PaperID   int64     `db:"paper_id" json:"paper_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Page      int       `db:"page" json:"page"`
	Quote     string    `db:"quote" json:"quote"`
	Body      string    `db:"body" json:"body"`
	Color     string    `db:"color" json:"color"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
