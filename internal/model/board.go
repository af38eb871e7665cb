package model

import "time"

const DefaultBoardColor = "#6c757d"

// Board is a column inside a project. Position orders boards left to
// right; at most one board per project has IsDefault set.
type Board struct {
	ID          int64     `json:"id"          db:"id"`
	ProjectID   int64     `json:"projectId"   db:"project_id"`
	Name        string    `json:"name"        db:"name"`
	Description string    `json:"description" db:"description"`
	Color       string    `json:"color"       db:"color"`
	Position    int       `json:"position"    db:"position"`
	IsDefault   bool      `json:"isDefault"   db:"is_default"`
	WIPLimit    int       `json:"wipLimit"    db:"wip_limit"` // 0 = unlimited
	CreatedBy   int64     `json:"createdBy"   db:"created_by"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`
}

// BoardPosition is one entry of a reorder request.
type BoardPosition struct {
	ID       int64 `json:"id"       validate:"required,gt=0"`
	Position int   `json:"position" validate:"gte=0"`
}
