package domain

import "time"

// Repository represents a registered source repository.
// Identity (ID, URL) is immutable once created; re-registration of the same
// URL only bumps UpdatedAt.
type Repository struct {
	ID            int64     `json:"id"             db:"id"`
	URL           string    `json:"url"            db:"url"`
	Owner         string    `json:"owner"          db:"owner"`
	Name          string    `json:"name"           db:"name"`
	DefaultBranch string    `json:"default_branch" db:"default_branch"`
	CreatedAt     time.Time `json:"created_at"     db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"     db:"updated_at"`
}
