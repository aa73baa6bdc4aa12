package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"stockbook-backup/internal/storage"
)

// shareCmd materializes a stored snapshot into a plain shareable file
var shareCmd = &cobra.Command{
	Use:   "share <file-name> <candidate-uri>...",
	Short: "Produce a shareable copy of a stored snapshot",
	Long: `Share resolves a stored snapshot into a plain file path that other
programs can read. Candidate URIs are tried in order: plain file paths are
returned directly, granted-directory URIs are copied into the tool's cache
first. When no candidate is usable the command reports that sharing is
unavailable without failing.

Examples:
  stockbook-backup share stockbook_20250114-093045.json grant://primary/Documents/stockbook_20250114-093045.json
  stockbook-backup share stockbook_20250114-093045.json grant://primary/Backups/stockbook_20250114-093045.json file:///tmp/stockbook_20250114-093045.json`,
	Args: cobra.MinimumNArgs(2),
	RunE: runShare,
}

func init() {
	rootCmd.AddCommand(shareCmd)
}

func runShare(cmd *cobra.Command, args []string) error {
	if err := validateGlobalFlags(); err != nil {
		return err
	}

	disp := newDisplay()

	logger, err := buildLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	strategy, err := buildStrategy()
	if err != nil {
		return err
	}

	_, cacheDir, _, err := appDirs()
	if err != nil {
		return err
	}

	resolver := storage.NewShareResolver(strategy, cacheDir, logger)
	path, err := resolver.Resolve(cmd.Context(), args[0], args[1:]...)
	if err != nil {
		disp.Error(fmt.Sprintf("Sharing failed: %v", err))
		return err
	}
	if path == "" {
		disp.Warning("The backup file is not available for sharing from any of its locations.")
		return nil
	}

	disp.Success(fmt.Sprintf("Shareable copy ready: %s", path))
	fmt.Println(path)
	return nil
}
