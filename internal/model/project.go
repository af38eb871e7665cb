package model

import "time"

const (
	DefaultProjectColor = "#007bff"
	DefaultProjectIcon  = "📋"
)

// Project is a shared list that boards and tasks hang off.
//
// Token is the obfuscated form of ID. It is filled in by the handler layer
// just before the project is written out, never stored.
type Project struct {
	ID           int64     `json:"id"           db:"id"`
	Token        string    `json:"token"        db:"-"`
	Name         string    `json:"name"         db:"name"`
	Description  string    `json:"description"  db:"description"`
	Color        string    `json:"color"        db:"color"`
	Icon         string    `json:"icon"         db:"icon"`
	IsPrivate    bool      `json:"isPrivate"    db:"is_private"`
	IsArchived   bool      `json:"isArchived"   db:"is_archived"`
	CreatedBy    int64     `json:"createdBy"    db:"created_by"`
	LastActivity time.Time `json:"lastActivity" db:"last_activity"`
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"    db:"updated_at"`
}

// ProjectStats is returned alongside a single project.
type ProjectStats struct {
	TotalTasks     int `json:"totalTasks"     db:"total_tasks"`
	CompletedTasks int `json:"completedTasks" db:"completed_tasks"`
	MemberCount    int `json:"memberCount"    db:"member_count"`
}

// Member links a user to a project with a role. Username and Email are
// joined in from users for listings.
type Member struct {
	ProjectID int64     `json:"projectId" db:"project_id"`
	UserID    int64     `json:"userId"    db:"user_id"`
	Role      Role      `json:"role"      db:"role"`
	JoinedAt  time.Time `json:"joinedAt"  db:"joined_at"`
	Username  string    `json:"username"  db:"username"`
	Email     string    `json:"email"     db:"email"`
}

// Permissions returns what this membership allows.
func (m *Member) Permissions() Permissions {
	return m.Role.Permissions()
}
