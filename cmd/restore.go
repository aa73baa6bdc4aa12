package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"stockbook-backup/internal/backup"
	apperrors "stockbook-backup/internal/errors"
	"stockbook-backup/internal/schema"
	"stockbook-backup/internal/store"
)

var autoApprove bool

// restoreCmd replaces the database contents from a snapshot file
var restoreCmd = &cobra.Command{
	Use:   "restore <snapshot-file>",
	Short: "Restore the database from a snapshot file",
	Long: `Restore reads a snapshot document and replaces the entire database
contents with it in a single transaction. Existing rows in every backed-up
table are deleted first, so the database afterwards holds exactly what the
snapshot holds. If anything goes wrong the transaction is rolled back and
no data is changed.

Compressed snapshots are detected and decompressed automatically.

Examples:
  stockbook-backup restore stockbook_20250114-093045.json --db stockbook.db
  stockbook-backup restore stockbook_20250114-093045.json.zst --auto-approve`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "skip the confirmation prompt")
	viper.BindPFlag("restore.auto_approve", restoreCmd.Flags().Lookup("auto-approve"))

	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	if err := validateGlobalFlags(); err != nil {
		return err
	}

	disp := newDisplay()

	logger, err := buildLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	documentPath := args[0]
	if _, err := os.Stat(documentPath); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("snapshot file not found: %s", documentPath), err)
	}

	if !autoApprove && !viper.GetBool("restore.auto_approve") {
		ok, err := confirmRestore(documentPath)
		if err != nil {
			return err
		}
		if !ok {
			disp.Info("Restore cancelled")
			return nil
		}
	}

	db, err := store.Open(cmd.Context(), store.DefaultConfig(viper.GetString("db.path")))
	if err != nil {
		disp.Error(apperrors.FormatUserError(err))
		return err
	}
	defer db.Close()

	importer := backup.NewImporter(db, schema.NewRegistry(), logger)
	if err := importer.Import(cmd.Context(), documentPath); err != nil {
		disp.Error(apperrors.FormatUserError(err))
		return err
	}

	disp.Success("Restore complete. All data was replaced with the snapshot contents.")
	return nil
}

// confirmRestore asks the user to acknowledge that restoring replaces all
// existing data. A non-interactive stdin counts as a refusal so scripted
// runs must pass --auto-approve explicitly.
func confirmRestore(documentPath string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, apperrors.NewValidationError(
			"stdin is not a terminal; pass --auto-approve to restore non-interactively", nil)
	}

	fmt.Fprintf(os.Stderr, "Restoring %s will REPLACE all current data. Continue? [y/N]: ", documentPath)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, nil
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
