package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	apperrors "stockbook-backup/internal/errors"
)

// ScopedStrategy implements DirectoryStrategy over a permission-scoped volume
// table. Every write goes through a grant URI; the strategy never accepts a
// plain filesystem path as a destination. A grant whose underlying directory
// has disappeared behaves like a revoked grant: the write fails and the
// resolver falls back.
type ScopedStrategy struct {
	prompter GrantPrompter
	volumes  map[string]string // volume name -> mounted root directory
}

// NewScopedStrategy creates a scoped strategy backed by the given volume
// table and prompter.
func NewScopedStrategy(prompter GrantPrompter, volumes map[string]string) *ScopedStrategy {
	return &ScopedStrategy{
		prompter: prompter,
		volumes:  volumes,
	}
}

// Scoped reports that the permission-scoped API is available
func (s *ScopedStrategy) Scoped() bool {
	return true
}

// PromptGrant asks the user for a directory grant
func (s *ScopedStrategy) PromptGrant(ctx context.Context) (string, error) {
	if s.prompter == nil {
		return "", ErrGrantDenied
	}
	return s.prompter.PromptDirectory(ctx)
}

// WriteFile copies srcPath into the granted directory under name
func (s *ScopedStrategy) WriteFile(ctx context.Context, dirURI, name, mimeType, srcPath string) (string, error) {
	dir, err := s.resolveDir(dirURI)
	if err != nil {
		return "", err
	}

	// A vanished directory means the grant was revoked out from under us.
	info, err := os.Stat(dir)
	if err != nil {
		return "", apperrors.ClassifyFileError(err, dir)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("granted location is not a directory: %s", dir)
	}

	data, err := os.ReadFile(srcPath)
	if err != nil {
		return "", fmt.Errorf("reading source file: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		return "", apperrors.ClassifyFileError(err, dir)
	}

	volume, relPath, _ := ParseGrantURI(dirURI)
	return FormatGrantURI(volume, path.Join(relPath, name)), nil
}

// ReadFile reads the contents of a grant URI
func (s *ScopedStrategy) ReadFile(ctx context.Context, uri string) ([]byte, error) {
	volume, relPath, err := ParseGrantURI(uri)
	if err != nil {
		return nil, err
	}
	root, ok := s.volumes[volume]
	if !ok {
		return nil, fmt.Errorf("unknown volume: %s", volume)
	}
	return os.ReadFile(filepath.Join(root, filepath.FromSlash(relPath)))
}

// resolveDir maps a granted directory URI onto the local filesystem
func (s *ScopedStrategy) resolveDir(dirURI string) (string, error) {
	volume, relPath, err := ParseGrantURI(dirURI)
	if err != nil {
		return "", err
	}
	root, ok := s.volumes[volume]
	if !ok {
		return "", fmt.Errorf("unknown volume: %s", volume)
	}
	return filepath.Join(root, filepath.FromSlash(relPath)), nil
}

// PlainStrategy implements DirectoryStrategy for platforms without a
// permission-scoped directory API. It reports Scoped() false, which sends the
// resolver straight to internal fallback; its read side still serves the
// share resolver for plain file URIs.
type PlainStrategy struct{}

// NewPlainStrategy creates a plain-filesystem strategy
func NewPlainStrategy() *PlainStrategy {
	return &PlainStrategy{}
}

// Scoped reports that no scoped API is available
func (s *PlainStrategy) Scoped() bool {
	return false
}

// PromptGrant always declines; there is no grant flow without a scoped API
func (s *PlainStrategy) PromptGrant(ctx context.Context) (string, error) {
	return "", ErrGrantDenied
}

// WriteFile copies srcPath into a plain directory path
func (s *PlainStrategy) WriteFile(ctx context.Context, dirURI, name, mimeType, srcPath string) (string, error) {
	dir := strings.TrimPrefix(dirURI, "file://")

	data, err := os.ReadFile(srcPath)
	if err != nil {
		return "", fmt.Errorf("reading source file: %w", err)
	}

	dst := filepath.Join(dir, name)
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return "", apperrors.ClassifyFileError(err, dir)
	}
	return "file://" + dst, nil
}

// ReadFile reads a plain path or file URI
func (s *PlainStrategy) ReadFile(ctx context.Context, uri string) ([]byte, error) {
	return os.ReadFile(strings.TrimPrefix(uri, "file://"))
}
