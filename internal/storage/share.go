package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"stockbook-backup/internal/logging"
)

// ShareResolver turns a stored file reference into a URI the external
// sharing system can read directly. Grant URIs are not directly readable by
// other apps, so their bytes are rewritten into a fresh cache-directory copy.
type ShareResolver struct {
	strategy DirectoryStrategy
	cacheDir string
	logger   *logging.Logger
}

// NewShareResolver creates a share resolver that materializes copies under
// cacheDir.
func NewShareResolver(strategy DirectoryStrategy, cacheDir string, logger *logging.Logger) *ShareResolver {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &ShareResolver{
		strategy: strategy,
		cacheDir: cacheDir,
		logger:   logger,
	}
}

// Resolve scans candidate URIs in order and returns the first one usable for
// sharing. Direct filesystem URIs are returned immediately; grant URIs are
// read through the scoped API and rewritten into a cache-directory file whose
// path is returned. When no candidate can be made shareable, Resolve returns
// an empty string and no error: sharing is unavailable, not broken.
func (r *ShareResolver) Resolve(ctx context.Context, fileName string, candidates ...string) (string, error) {
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}

		if !IsGrantURI(candidate) {
			return strings.TrimPrefix(candidate, "file://"), nil
		}

		data, err := r.strategy.ReadFile(ctx, candidate)
		if err != nil {
			r.logger.WithFields(map[string]interface{}{
				"uri":   candidate,
				"error": err.Error(),
			}).Debug("Share candidate unreadable, trying next")
			continue
		}

		// Collisions between share copies of different exports are avoided
		// with a per-copy directory.
		dir := filepath.Join(r.cacheDir, "share-"+uuid.New().String()[:8])
		if err := os.MkdirAll(dir, 0755); err != nil {
			r.logger.WithField("error", err.Error()).Debug("Share cache directory unavailable")
			continue
		}

		dst := filepath.Join(dir, fileName)
		if err := os.WriteFile(dst, data, 0644); err != nil {
			r.logger.WithField("error", err.Error()).Debug("Share copy write failed")
			continue
		}
		return dst, nil
	}

	return "", nil
}
