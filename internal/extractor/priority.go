package extractor

import (
	"path"
	"strings"
)

// Priority tiers. Lower sorts first. Primary manifests carry the strongest
// signal, lockfiles the weakest (and the tightest content cap).
const (
	tierManifest  = 0
	tierReadme    = 1
	tierFramework = 2
	tierContainer = 3
	tierCI        = 4
	tierBuildEnv  = 5
	tierLockfile  = 6
)

var primaryManifests = map[string]bool{
	"package.json":     true,
	"go.mod":           true,
	"cargo.toml":       true,
	"pyproject.toml":   true,
	"requirements.txt": true,
	"composer.json":    true,
	"gemfile":          true,
	"pom.xml":          true,
	"build.gradle":     true,
	"build.gradle.kts": true,
}

var frameworkConfigs = []string{
	"next.config.",
	"vite.config.",
	"nuxt.config.",
	"svelte.config.",
	"astro.config.",
	"remix.config.",
	"tailwind.config.",
	"webpack.config.",
	"babel.config.",
	"postcss.config.",
}

var frameworkConfigExact = map[string]bool{
	"tsconfig.json": true,
	"angular.json":  true,
	".babelrc":      true,
	".eslintrc":     true,
}

var buildEnvFiles = map[string]bool{
	"makefile":      true,
	".env.example":  true,
	"procfile":      true,
	"netlify.toml":  true,
	"vercel.json":   true,
	"app.json":      true,
	"nixpacks.toml": true,
}

var lockfiles = map[string]bool{
	"package-lock.json": true,
	"yarn.lock":         true,
	"pnpm-lock.yaml":    true,
	"go.sum":            true,
	"cargo.lock":        true,
	"poetry.lock":       true,
	"uv.lock":           true,
	"gemfile.lock":      true,
	"composer.lock":     true,
}

// classify returns the priority tier for a repo-relative path, or ok=false
// when the path is not on the allow-list. Matching is case-insensitive.
func classify(relPath string) (tier int, ok bool) {
	lower := strings.ToLower(relPath)
	base := path.Base(lower)

	switch {
	case primaryManifests[base]:
		return tierManifest, true
	case base == "readme" || strings.HasPrefix(base, "readme."):
		return tierReadme, true
	case frameworkConfigExact[base]:
		return tierFramework, true
	case base == "dockerfile" || strings.HasPrefix(base, "dockerfile."):
		return tierContainer, true
	case isComposeFile(base):
		return tierContainer, true
	case isCIConfig(lower, base):
		return tierCI, true
	case buildEnvFiles[base]:
		return tierBuildEnv, true
	case lockfiles[base]:
		return tierLockfile, true
	}

	for _, prefix := range frameworkConfigs {
		if strings.HasPrefix(base, prefix) {
			return tierFramework, true
		}
	}
	return 0, false
}

func isComposeFile(base string) bool {
	switch base {
	case "docker-compose.yml", "docker-compose.yaml", "compose.yml", "compose.yaml":
		return true
	}
	return false
}

func isCIConfig(lower, base string) bool {
	if strings.Contains(lower, ".github/workflows/") && (strings.HasSuffix(base, ".yml") || strings.HasSuffix(base, ".yaml")) {
		return true
	}
	switch base {
	case ".gitlab-ci.yml", ".travis.yml", "jenkinsfile", "azure-pipelines.yml":
		return true
	}
	return lower == ".circleci/config.yml"
}

// IsPrimaryManifest reports whether a path names a dependency manifest.
func IsPrimaryManifest(relPath string) bool {
	return primaryManifests[strings.ToLower(path.Base(relPath))]
}

// FallbackManifest picks the path used for synthetic evidence: a discovered
// package.json if any, then any other primary manifest, then the first found
// file, then the bare package.json sentinel.
func FallbackManifest(foundPaths []string) string {
	for _, p := range foundPaths {
		if strings.ToLower(path.Base(p)) == "package.json" {
			return p
		}
	}
	for _, p := range foundPaths {
		if IsPrimaryManifest(p) {
			return p
		}
	}
	if len(foundPaths) > 0 {
		return foundPaths[0]
	}
	return "package.json"
}
