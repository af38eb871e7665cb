package model

import "time"

const DefaultTagColor = "#4CAF50"

// Tag belongs to one user; names are unique per user.
type Tag struct {
	ID        int64     `json:"id"        db:"id"`
	UserID    int64     `json:"userId"    db:"user_id"`
	Name      string    `json:"name"      db:"name"`
	Color     string    `json:"color"     db:"color"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
