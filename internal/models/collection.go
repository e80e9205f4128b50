package models

import "time"

// Collection groups papers under a user-defined name.
type Collection struct {
	ID          int64     `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CollectionDetail carries the collection plus its paper count.
type CollectionDetail struct {
	Collection
	PaperCount int `db:"paper_count" json:"paper_count"`
}
