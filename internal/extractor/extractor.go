// Package extractor selects and bounds the evidence handed to the
// classification service: it walks a freshly cloned tree, keeps only
// recognizable manifest/config/doc files, ranks them by signal density, and
// caps both file count and per-file size so request cost stays bounded.
package extractor

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stackcity/stackcity/internal/port"
)

const (
	// maxDepth bounds recursion on pathological trees.
	maxDepth = 6
	// maxFiles caps how many ranked files make it into the pack.
	maxFiles = 18

	manifestContentCap = 8000
	lockfileContentCap = 2000
	truncationMarker   = "\n... [truncated]"
)

// prunedDirs are dependency caches, build output, and VCS metadata that never
// contain evidence worth reading.
var prunedDirs = map[string]bool{
	".git":             true,
	"node_modules":     true,
	"bower_components": true,
	"vendor":           true,
	"dist":             true,
	"build":            true,
	"target":           true,
	"out":              true,
	"coverage":         true,
	"__pycache__":      true,
	".venv":            true,
	"venv":             true,
	".idea":            true,
	".vscode":          true,
	".cache":           true,
	".terraform":       true,
	".next":            true,
	".nuxt":            true,
}

type candidate struct {
	relPath string
	tier    int
	order   int // enumeration order, the stable tie-break
}

// Extract walks the cloned repository rooted at root and builds the evidence
// pack. The returned pack may be empty; callers decide whether that fails the
// job. The selection is deterministic: identical trees produce identical
// packs.
func Extract(root string) (*port.EvidencePack, error) {
	var candidates []candidate
	var depNames []string
	seenDeps := map[string]bool{}

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if prunedDirs[strings.ToLower(d.Name())] {
				return filepath.SkipDir
			}
			if strings.Count(rel, "/")+1 > maxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		tier, ok := classify(rel)
		if !ok {
			return nil
		}
		candidates = append(candidates, candidate{relPath: rel, tier: tier, order: len(candidates)})

		// Dependency names come from every manifest in the tree, not just
		// the ones that survive the file cap.
		if IsPrimaryManifest(rel) || isComposeFile(strings.ToLower(filepath.Base(rel))) {
			for _, name := range dependencyNames(p, rel) {
				if !seenDeps[name] {
					seenDeps[name] = true
					depNames = append(depNames, name)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk repository tree: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].tier != candidates[j].tier {
			return candidates[i].tier < candidates[j].tier
		}
		return candidates[i].order < candidates[j].order
	})
	if len(candidates) > maxFiles {
		candidates = candidates[:maxFiles]
	}

	sort.Strings(depNames)

	pack := &port.EvidencePack{AllDependencyNames: depNames}
	for _, c := range candidates {
		content, readErr := readEvidence(filepath.Join(root, filepath.FromSlash(c.relPath)), c)
		if readErr != nil {
			slog.Warn("skipping unreadable evidence file", "path", c.relPath, "error", readErr)
			continue
		}
		pack.FoundFiles = append(pack.FoundFiles, c.relPath)
		pack.FileContents = append(pack.FileContents, port.EvidenceFile{FilePath: c.relPath, Content: content})
	}
	return pack, nil
}

// readEvidence loads one selected file, normalizing manifests into a compact
// structured form and truncating everything to its tier's cap.
func readEvidence(absPath string, c candidate) (string, error) {
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return "", err
	}
	content := string(raw)

	if strings.ToLower(filepath.Base(c.relPath)) == "package.json" {
		if normalized, ok := normalizePackageJSON(raw); ok {
			content = normalized
		}
	}

	limit := manifestContentCap
	if c.tier == tierLockfile {
		limit = lockfileContentCap
	}
	return truncateContent(content, limit), nil
}

func truncateContent(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + truncationMarker
}
