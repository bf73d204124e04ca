package domain

import (
	"strings"
	"time"
)

// ComponentType is the closed set of technology categories a component can
// belong to. Anything the classifier emits outside this set is bucketed into
// ComponentTypeOther rather than persisted as an arbitrary string.
type ComponentType string

const (
	ComponentTypeLanguage        ComponentType = "language"
	ComponentTypeFramework       ComponentType = "framework"
	ComponentTypeLibrary         ComponentType = "library"
	ComponentTypeUIComponent     ComponentType = "ui_component"
	ComponentTypeStateManagement ComponentType = "state_management"
	ComponentTypeValidation      ComponentType = "validation"
	ComponentTypeAnimation       ComponentType = "animation"
	ComponentTypeDatabase        ComponentType = "database"
	ComponentTypeCache           ComponentType = "cache"
	ComponentTypeCICD            ComponentType = "ci_cd"
	ComponentTypeTooling         ComponentType = "tooling"
	ComponentTypeInfra           ComponentType = "infra"
	ComponentTypeTesting         ComponentType = "testing"
	ComponentTypeOther           ComponentType = "other"
)

var knownComponentTypes = map[ComponentType]bool{
	ComponentTypeLanguage:        true,
	ComponentTypeFramework:       true,
	ComponentTypeLibrary:         true,
	ComponentTypeUIComponent:     true,
	ComponentTypeStateManagement: true,
	ComponentTypeValidation:      true,
	ComponentTypeAnimation:       true,
	ComponentTypeDatabase:        true,
	ComponentTypeCache:           true,
	ComponentTypeCICD:            true,
	ComponentTypeTooling:         true,
	ComponentTypeInfra:           true,
	ComponentTypeTesting:         true,
	ComponentTypeOther:           true,
}

// NormalizeComponentType maps a raw classifier type string onto the closed
// enum, falling back to ComponentTypeOther.
func NormalizeComponentType(raw string) ComponentType {
	t := ComponentType(strings.ToLower(strings.TrimSpace(raw)))
	t = ComponentType(strings.ReplaceAll(string(t), " ", "_"))
	t = ComponentType(strings.ReplaceAll(string(t), "-", "_"))
	if knownComponentTypes[t] {
		return t
	}
	return ComponentTypeOther
}

// DetectedComponent is a technology detected in a repository with its
// confidence and provenance. A repository's component set reflects only its
// most recent successful analysis.
type DetectedComponent struct {
	ID          int64         `json:"id"          db:"id"`
	RepoID      int64         `json:"repo_id"     db:"repo_id"`
	Name        string        `json:"name"        db:"name"`
	Type        ComponentType `json:"type"        db:"type"`
	Version     *string       `json:"version"     db:"version"`
	Confidence  float64       `json:"confidence"  db:"confidence"`
	Description string        `json:"description" db:"description"`
	CreatedAt   time.Time     `json:"created_at"  db:"created_at"`
	Evidence    []Evidence    `json:"evidence"`
}

// Evidence is the file and snippet justifying a detected component.
// Every persisted component carries at least one evidence row.
type Evidence struct {
	ID          int64     `json:"id"           db:"id"`
	ComponentID int64     `json:"component_id" db:"component_id"`
	FilePath    string    `json:"file_path"    db:"file_path"`
	Snippet     string    `json:"snippet"      db:"snippet"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
}
