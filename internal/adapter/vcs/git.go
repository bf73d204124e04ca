package vcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os/exec"
	"strings"
)

// GitProvider implements port.VCSProvider using the git CLI. When a token is
// configured it is injected into HTTPS clone URLs for private repositories;
// logs only ever carry the credential-free URL.
type GitProvider struct {
	token string
}

// NewGitProvider creates a Git VCS provider. token may be empty.
func NewGitProvider(token string) *GitProvider {
	return &GitProvider{token: token}
}

// Clone performs a shallow single-branch clone of url at branch into dest.
func (g *GitProvider) Clone(ctx context.Context, repoURL, branch, dest string) error {
	args := []string{"clone", "--depth", "1", "--single-branch"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, g.authenticatedURL(repoURL), dest)

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Stdout = io.Discard
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	slog.Info("cloning repository", "url", RedactURL(repoURL), "branch", branch)
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		return fmt.Errorf("git clone %s: %w: %s", RedactURL(repoURL), err, detail)
	}
	return nil
}

// authenticatedURL injects the access token into an HTTPS URL. Non-HTTPS or
// unparseable URLs pass through unchanged.
func (g *GitProvider) authenticatedURL(repoURL string) string {
	if g.token == "" {
		return repoURL
	}
	u, err := url.Parse(repoURL)
	if err != nil || u.Scheme != "https" {
		return repoURL
	}
	u.User = url.UserPassword("x-access-token", g.token)
	return u.String()
}

// RedactURL strips any userinfo so a URL is safe to log.
func RedactURL(repoURL string) string {
	u, err := url.Parse(repoURL)
	if err != nil {
		return repoURL
	}
	u.User = nil
	return u.String()
}
