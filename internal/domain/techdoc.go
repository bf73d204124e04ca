package domain

import "time"

// TechDoc is externally-maintained documentation metadata for a technology,
// joined to detected components by fuzzy name match on the read path.
type TechDoc struct {
	ID               int64     `json:"id"                db:"id"`
	Name             string    `json:"name"              db:"name"`
	Description      string    `json:"description"       db:"description"`
	DocumentationURL string    `json:"documentation_url" db:"documentation_url"`
	UpdatedAt        time.Time `json:"updated_at"        db:"updated_at"`
}
