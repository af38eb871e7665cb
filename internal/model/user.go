// Package model defines the data structures shared by every layer.
//
// Struct tags do double duty: `json` shapes API responses and `db` tells
// sqlx which column fills which field.
package model

import "time"

// User is a registered account. Accounts created through GitHub login have
// no password hash; accounts created through /register have no GitHubID.
type User struct {
	ID           int64      `json:"id"          db:"id"`
	Username     string     `json:"username"    db:"username"`
	Email        string     `json:"email"       db:"email"`
	PasswordHash string     `json:"-"           db:"password_hash"`
	GitHubID     *int64     `json:"-"           db:"github_id"`
	AvatarURL    string     `json:"avatarUrl"   db:"avatar_url"`
	IsActive     bool       `json:"isActive"    db:"is_active"`
	LastLoginAt  *time.Time `json:"lastLoginAt" db:"last_login_at"`
	CreatedAt    time.Time  `json:"createdAt"   db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt"   db:"updated_at"`
}
