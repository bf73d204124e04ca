package extractor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"gopkg.in/yaml.v3"
)

// packageManifest is the normalized shape of a package.json handed to the
// classifier instead of the raw file.
type packageManifest struct {
	Name             string            `json:"name,omitempty"`
	Scripts          map[string]string `json:"scripts,omitempty"`
	Dependencies     map[string]string `json:"dependencies,omitempty"`
	DevDependencies  map[string]string `json:"devDependencies,omitempty"`
	PeerDependencies map[string]string `json:"peerDependencies,omitempty"`
}

// normalizePackageJSON re-renders a package.json as the normalized structure.
// Returns ok=false when the file is not parseable, in which case the raw text
// is used instead.
func normalizePackageJSON(raw []byte) (string, bool) {
	var m packageManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", false
	}
	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", false
	}
	return string(out), true
}

// dependencyNames extracts declared dependency names from one manifest file.
// Unknown or unparseable manifests contribute nothing.
func dependencyNames(absPath, relPath string) []string {
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil
	}

	base := strings.ToLower(filepath.Base(relPath))
	switch {
	case base == "package.json":
		return packageJSONDeps(raw)
	case base == "go.mod":
		return goModDeps(raw, relPath)
	case base == "requirements.txt":
		return requirementsDeps(raw)
	case isComposeFile(base):
		return composeImages(raw)
	}
	return nil
}

func packageJSONDeps(raw []byte) []string {
	var m packageManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	var names []string
	for _, deps := range []map[string]string{m.Dependencies, m.DevDependencies, m.PeerDependencies} {
		for name := range deps {
			names = append(names, name)
		}
	}
	return names
}

func goModDeps(raw []byte, relPath string) []string {
	f, err := modfile.Parse(relPath, raw, nil)
	if err != nil {
		return nil
	}
	var names []string
	for _, r := range f.Require {
		if r.Indirect {
			continue
		}
		names = append(names, r.Mod.Path)
	}
	return names
}

// requirementsDeps parses pip requirements lines, stripping version
// constraints, extras, and comments.
func requirementsDeps(raw []byte) []string {
	var names []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		for _, sep := range []string{"==", ">=", "<=", "~=", "!=", ">", "<", ";", "[", " "} {
			if i := strings.Index(line, sep); i >= 0 {
				line = line[:i]
			}
		}
		if line != "" {
			names = append(names, line)
		}
	}
	return names
}

// composeImages pulls service image names (tag stripped) out of a
// docker-compose file; they name infrastructure dependencies the manifests
// never declare.
func composeImages(raw []byte) []string {
	var doc struct {
		Services map[string]struct {
			Image string `yaml:"image"`
		} `yaml:"services"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	var names []string
	for _, svc := range doc.Services {
		img := svc.Image
		if img == "" {
			continue
		}
		if i := strings.LastIndex(img, ":"); i > 0 && !strings.Contains(img[i+1:], "/") {
			img = img[:i]
		}
		names = append(names, img)
	}
	return names
}
