package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stockbook-backup/internal/backup"
	apperrors "stockbook-backup/internal/errors"
	"stockbook-backup/internal/schema"
	"stockbook-backup/internal/snapshot"
	"stockbook-backup/internal/storage"
	"stockbook-backup/internal/store"
)

var compressionFlag string

// exportCmd exports the full database as a snapshot document
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the database as a snapshot file",
	Long: `Export reads every backed-up table and writes a versioned snapshot
document. The file is placed in the granted backup folder when one is
available, otherwise it falls back to the tool's own storage directory.

Examples:
  stockbook-backup export --db stockbook.db
  stockbook-backup export --db stockbook.db --compression zstd
  stockbook-backup export --db stockbook.db --storage plain`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&compressionFlag, "compression", "none", "snapshot compression (none, gzip, zstd, lz4)")
	viper.BindPFlag("export.compression", exportCmd.Flags().Lookup("compression"))

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := validateGlobalFlags(); err != nil {
		return err
	}

	disp := newDisplay()

	logger, err := buildLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	algorithm, err := snapshot.ParseAlgorithm(viper.GetString("export.compression"))
	if err != nil {
		return err
	}
	compressor, err := snapshot.NewCompressor(algorithm)
	if err != nil {
		return err
	}

	resolver, err := buildResolver(logger)
	if err != nil {
		return err
	}

	db, err := store.Open(cmd.Context(), store.DefaultConfig(viper.GetString("db.path")))
	if err != nil {
		disp.Error(apperrors.FormatUserError(err))
		return err
	}
	defer db.Close()

	exporter := backup.NewExporter(db, schema.NewRegistry(), resolver, compressor, logger, "")
	result, err := exporter.Export(cmd.Context())
	if err != nil {
		if result != nil && result.URI != "" {
			disp.Warning(fmt.Sprintf("Snapshot kept at temporary location: %s", result.URI))
		}
		disp.Error(apperrors.FormatUserError(err))
		return err
	}

	disp.Notice(result.Notice)
	switch result.Location {
	case storage.LocationExternal:
		disp.Success(fmt.Sprintf("Backup saved to %s", result.DisplayPath))
	default:
		disp.Success(fmt.Sprintf("Backup saved to app storage as %s", result.FileName))
	}
	return nil
}
