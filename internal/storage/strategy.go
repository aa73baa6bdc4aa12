package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrGrantDenied is returned by a GrantPrompter when the user declines to
// grant access to an external directory.
var ErrGrantDenied = errors.New("directory grant denied")

// GrantPrompter asks the user to choose an external directory. The call may
// suspend until the user responds; no second storage operation may begin
// before it resolves.
type GrantPrompter interface {
	// PromptDirectory returns the URI of the granted directory, or
	// ErrGrantDenied if the user declined.
	PromptDirectory(ctx context.Context) (string, error)
}

// DirectoryStrategy abstracts how files reach a durable external directory.
// One implementation is selected at startup: the scoped strategy when the
// platform offers a permission-scoped directory API, the plain strategy
// otherwise.
type DirectoryStrategy interface {
	// Scoped reports whether a permission-scoped external directory API is
	// available. When false the resolver skips straight to internal fallback.
	Scoped() bool
	// PromptGrant asks for access to an external directory
	PromptGrant(ctx context.Context) (string, error)
	// WriteFile copies the file at srcPath into the granted directory under
	// name and returns the URI of the written file.
	WriteFile(ctx context.Context, dirURI, name, mimeType, srcPath string) (string, error)
	// ReadFile reads the contents of a URI previously produced by WriteFile
	ReadFile(ctx context.Context, uri string) ([]byte, error)
}

// Grant URIs use the form grant://<volume>/<path>. The volume names mirror
// the opaque volume identifiers of the scoped platform API; well-known ones
// get friendly display labels in RenderDirectoryLabel.

const grantScheme = "grant://"

// IsGrantURI reports whether a URI uses the permission-scoped grant scheme
func IsGrantURI(uri string) bool {
	return strings.HasPrefix(uri, grantScheme)
}

// FormatGrantURI builds a grant URI from a volume name and a slash-separated
// relative path.
func FormatGrantURI(volume, relPath string) string {
	relPath = strings.Trim(relPath, "/")
	base := grantScheme + volume
	if relPath == "" {
		return base
	}
	return base + "/" + relPath
}

// ParseGrantURI splits a grant URI into its volume and relative path
func ParseGrantURI(uri string) (volume, relPath string, err error) {
	if !IsGrantURI(uri) {
		return "", "", fmt.Errorf("not a grant URI: %s", uri)
	}
	rest := strings.TrimPrefix(uri, grantScheme)
	if rest == "" {
		return "", "", fmt.Errorf("grant URI has no volume: %s", uri)
	}
	parts := strings.SplitN(rest, "/", 2)
	volume = parts[0]
	if len(parts) == 2 {
		relPath = parts[1]
	}
	return volume, relPath, nil
}
