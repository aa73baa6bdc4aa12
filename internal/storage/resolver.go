package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	apperrors "stockbook-backup/internal/errors"
	"stockbook-backup/internal/logging"
)

// Resolver places generated files into a durable location, preferring a
// user-granted external directory and falling back to the app's internal
// directory when the grant is absent, declined, or broken.
type Resolver struct {
	strategy    DirectoryStrategy
	prefs       PreferenceStore
	internalDir string
	logger      *logging.Logger
}

// NewResolver creates a storage resolver. internalDir is the app-private
// directory used as the fallback destination.
func NewResolver(strategy DirectoryStrategy, prefs PreferenceStore, internalDir string, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Resolver{
		strategy:    strategy,
		prefs:       prefs,
		internalDir: internalDir,
		logger:      logger,
	}
}

// Persist places the file at sourcePath into a durable location under
// fileName.
//
// Decision procedure: with a scoped strategy, use the cached directory grant
// or prompt for a new one; a declined prompt or a failed external write falls
// back to internal storage with a notice, and a failed write additionally
// invalidates the cached grant so the next call re-prompts. Without a scoped
// strategy the file goes straight to internal storage. Only when even the
// internal fallback fails does Persist return an error; the accompanying
// reference then points at the non-durable source and must be presented as a
// failure.
func (r *Resolver) Persist(ctx context.Context, sourcePath, fileName, mimeType string) (*StoredFile, error) {
	if r.strategy != nil && r.strategy.Scoped() {
		return r.persistScoped(ctx, sourcePath, fileName, mimeType)
	}
	return r.persistInternal(sourcePath, fileName, "")
}

func (r *Resolver) persistScoped(ctx context.Context, sourcePath, fileName, mimeType string) (*StoredFile, error) {
	dirURI, cached := r.prefs.Load()
	if !cached {
		granted, err := r.strategy.PromptGrant(ctx)
		if err != nil {
			if errors.Is(err, ErrGrantDenied) {
				denied := apperrors.NewPermissionDeniedError("external directory grant declined", err)
				r.logger.WithField("file", fileName).Info(denied.Error())
				return r.persistInternal(sourcePath, fileName,
					"Backup folder access was declined. The file was saved to app storage instead.")
			}
			r.logger.WithField("error", err.Error()).Warn("Directory grant prompt failed")
			return r.persistInternal(sourcePath, fileName,
				"Choosing a backup folder failed. The file was saved to app storage instead.")
		}

		if err := r.prefs.Save(granted); err != nil {
			// A grant that cannot be cached still works for this export.
			r.logger.WithField("error", err.Error()).Warn("Failed to cache directory preference")
		}
		dirURI = granted
	}

	uri, err := r.strategy.WriteFile(ctx, dirURI, fileName, mimeType, sourcePath)
	if err != nil {
		writeErr := apperrors.NewStorageWriteError(
			fmt.Sprintf("write to granted directory failed: %s", RenderDirectoryLabel(dirURI)), err)
		r.logger.WithFields(map[string]interface{}{
			"directory": dirURI,
			"error":     writeErr.Error(),
		}).Warn("External write failed, invalidating directory preference")

		if clearErr := r.prefs.Clear(); clearErr != nil {
			r.logger.WithField("error", clearErr.Error()).Warn("Failed to clear directory preference")
		}

		return r.persistInternal(sourcePath, fileName,
			"Saving to the chosen backup folder failed. The file was saved to app storage instead; you will be asked to pick a folder again next time.")
	}

	r.logger.LogStoragePlacement(fileName, string(LocationExternal), uri, false)
	return &StoredFile{
		URI:         uri,
		Location:    LocationExternal,
		DisplayPath: RenderFileLabel(dirURI, fileName),
	}, nil
}

// persistInternal is the fallback chain's terminal step: place the file in
// the app-private directory. notice explains why the fallback was taken and
// is passed through to the caller.
func (r *Resolver) persistInternal(sourcePath, fileName, notice string) (*StoredFile, error) {
	dst := filepath.Join(r.internalDir, fileName)

	fail := func(err error) (*StoredFile, error) {
		totalErr := apperrors.NewTotalStorageError("internal fallback write failed", err)
		r.logger.WithFields(map[string]interface{}{
			"file":  fileName,
			"error": totalErr.Error(),
		}).Error("No writable storage location")
		return &StoredFile{
			URI:      sourcePath,
			Location: LocationUnknown,
			Notice:   "The backup file could not be saved to any location.",
		}, totalErr
	}

	if err := os.MkdirAll(r.internalDir, 0755); err != nil {
		return fail(apperrors.ClassifyFileError(err, r.internalDir))
	}

	// Same-name leftovers from an earlier export are replaced.
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		r.logger.LogNonCriticalCleanup(dst, err)
	}

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return fail(err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fail(apperrors.ClassifyFileError(err, dst))
	}

	r.logger.LogStoragePlacement(fileName, string(LocationInternal), "file://"+dst, notice != "")
	return &StoredFile{
		URI:         "file://" + dst,
		Location:    LocationInternal,
		Notice:      notice,
		DisplayPath: dst,
	}, nil
}
