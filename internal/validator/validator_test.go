package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackcity/stackcity/internal/domain"
	"github.com/stackcity/stackcity/internal/port"
)

func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string     { return &s }

var foundPaths = []string{"package.json", "README.md"}

func TestSanitize_DropsStructurallyUnusableComponents(t *testing.T) {
	raw := []port.RawComponent{
		{Name: "", Type: "library", Confidence: floatPtr(0.9)},
		{Name: "react", Type: "", Confidence: floatPtr(0.9)},
		{Name: "react", Type: "library", Confidence: nil},
		{Name: "react", Type: "library", Confidence: floatPtr(0.9)},
	}

	out := Sanitize(raw, foundPaths)
	require.Len(t, out, 1)
	assert.Equal(t, "react", out[0].Name)
}

func TestSanitize_NormalizesDescription(t *testing.T) {
	long := strings.Repeat("d", maxDescriptionLen+100)
	raw := []port.RawComponent{
		{Name: "react", Type: "library", Confidence: floatPtr(0.9), Description: "  "},
		{Name: "zod", Type: "validation", Confidence: floatPtr(0.8), Description: long},
	}

	out := Sanitize(raw, foundPaths)
	require.Len(t, out, 2)
	assert.Equal(t, noDescription, out[0].Description)
	assert.Len(t, out[1].Description, maxDescriptionLen)
}

func TestSanitize_SynthesizesMissingEvidence(t *testing.T) {
	raw := []port.RawComponent{
		{Name: "react", Type: "library", Confidence: floatPtr(0.9)},
	}

	out := Sanitize(raw, foundPaths)
	require.Len(t, out, 1)
	require.Len(t, out[0].Evidence, 1)
	assert.Equal(t, "package.json", out[0].Evidence[0].FilePath)
	assert.Equal(t, fallbackSnippet, out[0].Evidence[0].Snippet)
}

func TestSanitize_RewritesSentinelAndHallucinatedPaths(t *testing.T) {
	raw := []port.RawComponent{
		{
			Name: "next.js", Type: "framework", Confidence: floatPtr(0.95),
			Evidence: []port.RawEvidence{
				{FilePath: "metadata", Snippet: ""},
				{FilePath: "does/not/exist.ts", Snippet: "import next"},
				{FilePath: "README.md", Snippet: "built with Next.js"},
			},
		},
	}

	out := Sanitize(raw, foundPaths)
	require.Len(t, out, 1)
	ev := out[0].Evidence
	require.Len(t, ev, 3)

	assert.Equal(t, "package.json", ev[0].FilePath)
	assert.Equal(t, fallbackSnippet, ev[0].Snippet)

	assert.Equal(t, "package.json", ev[1].FilePath)
	assert.Equal(t, "import next", ev[1].Snippet)

	assert.Equal(t, "README.md", ev[2].FilePath)
}

func TestSanitize_TruncatesSnippets(t *testing.T) {
	raw := []port.RawComponent{
		{
			Name: "react", Type: "library", Confidence: floatPtr(0.9),
			Evidence: []port.RawEvidence{
				{FilePath: "package.json", Snippet: strings.Repeat("s", maxSnippetLen+200)},
			},
		},
	}

	out := Sanitize(raw, foundPaths)
	require.Len(t, out, 1)
	assert.Len(t, out[0].Evidence[0].Snippet, maxSnippetLen)
}

func TestSanitize_BucketsUnknownTypes(t *testing.T) {
	raw := []port.RawComponent{
		{Name: "react", Type: "UI Component", Confidence: floatPtr(0.9)},
		{Name: "mystery", Type: "blockchain", Confidence: floatPtr(0.5)},
	}

	out := Sanitize(raw, foundPaths)
	require.Len(t, out, 2)
	assert.Equal(t, domain.ComponentTypeUIComponent, out[0].Type)
	assert.Equal(t, domain.ComponentTypeOther, out[1].Type)
}

func TestSanitize_ClampsConfidenceAndTrimsVersion(t *testing.T) {
	raw := []port.RawComponent{
		{Name: "a", Type: "library", Confidence: floatPtr(1.7), Version: strPtr(" 18.2.0 ")},
		{Name: "b", Type: "library", Confidence: floatPtr(-0.3), Version: strPtr("  ")},
	}

	out := Sanitize(raw, foundPaths)
	require.Len(t, out, 2)
	assert.Equal(t, 1.0, out[0].Confidence)
	require.NotNil(t, out[0].Version)
	assert.Equal(t, "18.2.0", *out[0].Version)
	assert.Equal(t, 0.0, out[1].Confidence)
	assert.Nil(t, out[1].Version)
}

func TestSanitize_EmptyInput(t *testing.T) {
	assert.Empty(t, Sanitize(nil, foundPaths))
}
