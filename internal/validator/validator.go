// Package validator enforces the component/evidence contract on untrusted
// classifier output. It repairs whatever it can and drops only structurally
// unusable entries.
package validator

import (
	"log/slog"
	"strings"

	"github.com/stackcity/stackcity/internal/domain"
	"github.com/stackcity/stackcity/internal/extractor"
	"github.com/stackcity/stackcity/internal/port"
)

const (
	maxDescriptionLen = 500
	maxSnippetLen     = 500

	noDescription   = "No description available."
	fallbackSnippet = "Detected via repository metadata."

	// sentinelPath is the placeholder some classifier responses use instead
	// of a real file path.
	sentinelPath = "metadata"
)

// Sanitize converts the raw classifier output into components that satisfy
// every persistence invariant: name/type/confidence present, description
// bounded, at least one evidence row per component, and every evidence
// file_path drawn from foundPaths (or rewritten to the fallback manifest).
func Sanitize(raw []port.RawComponent, foundPaths []string) []domain.DetectedComponent {
	allowed := make(map[string]bool, len(foundPaths))
	for _, p := range foundPaths {
		allowed[p] = true
	}
	fallbackPath := extractor.FallbackManifest(foundPaths)

	components := make([]domain.DetectedComponent, 0, len(raw))
	for _, rc := range raw {
		name := strings.TrimSpace(rc.Name)
		if name == "" || strings.TrimSpace(rc.Type) == "" || rc.Confidence == nil {
			slog.Warn("dropping malformed component from classifier",
				"name", rc.Name, "type", rc.Type, "has_confidence", rc.Confidence != nil)
			continue
		}

		comp := domain.DetectedComponent{
			Name:        name,
			Type:        domain.NormalizeComponentType(rc.Type),
			Version:     normalizeVersion(rc.Version),
			Confidence:  clamp01(*rc.Confidence),
			Description: normalizeDescription(rc.Description),
			Evidence:    sanitizeEvidence(rc.Evidence, allowed, fallbackPath),
		}
		components = append(components, comp)
	}
	return components
}

func sanitizeEvidence(raw []port.RawEvidence, allowed map[string]bool, fallbackPath string) []domain.Evidence {
	var out []domain.Evidence
	for _, ev := range raw {
		path := strings.TrimSpace(ev.FilePath)
		snippet := truncate(strings.TrimSpace(ev.Snippet), maxSnippetLen)

		// Hallucinated or sentinel provenance is rewritten, never persisted.
		if path == "" || strings.EqualFold(path, sentinelPath) || !allowed[path] {
			path = fallbackPath
			if snippet == "" {
				snippet = fallbackSnippet
			}
		}
		out = append(out, domain.Evidence{FilePath: path, Snippet: snippet})
	}

	if len(out) == 0 {
		out = append(out, domain.Evidence{FilePath: fallbackPath, Snippet: fallbackSnippet})
	}
	return out
}

func normalizeDescription(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return noDescription
	}
	return truncate(s, maxDescriptionLen)
}

func normalizeVersion(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
