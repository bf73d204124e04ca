package port

import "context"

// VCSProvider abstracts repository acquisition.
type VCSProvider interface {
	// Clone performs a shallow single-branch clone of url at branch into dest.
	Clone(ctx context.Context, url, branch, dest string) error
}
