package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"stockbook-backup/internal/display"
	apperrors "stockbook-backup/internal/errors"
	"stockbook-backup/internal/logging"
	"stockbook-backup/internal/storage"
)

var cfgFile string

// CLI flag variables
var (
	dbPath      string
	verbose     bool
	quiet       bool
	logFile     string
	jsonLogs    bool
	noColor     bool
	storageMode string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stockbook-backup",
	Short: "Backup and restore tool for Stockbook inventory data",
	Long: `stockbook-backup exports the full Stockbook inventory and bookkeeping
database as a versioned snapshot document and restores it atomically.

Snapshots contain every backed-up table; restoring replaces the entire
database contents in one transaction, so a failed restore leaves the data
exactly as it was. Exported files are placed in a user-chosen backup folder
when one has been granted, falling back to app storage otherwise.

Examples:
  # Export a snapshot
  stockbook-backup export --db stockbook.db

  # Export with compression
  stockbook-backup export --db stockbook.db --compression zstd

  # Restore from a snapshot (replaces all data)
  stockbook-backup restore stockbook_20250114-093045.json --db stockbook.db

  # Produce a shareable copy of a stored snapshot
  stockbook-backup share stockbook_20250114-093045.json grant://primary/Documents/stockbook_20250114-093045.json`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.stockbook-backup.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "stockbook.db", "path to the Stockbook database file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to file in addition to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable color output")
	rootCmd.PersistentFlags().StringVar(&storageMode, "storage", "scoped", "directory strategy (scoped, plain)")

	viper.BindPFlag("db.path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("json_logs", rootCmd.PersistentFlags().Lookup("json-logs"))
	viper.BindPFlag("storage.mode", rootCmd.PersistentFlags().Lookup("storage"))

	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createConfigCommand())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".stockbook-backup")
	}

	viper.SetEnvPrefix("STOCKBOOK_BACKUP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// validateGlobalFlags checks flag combinations shared by all subcommands
func validateGlobalFlags() error {
	if verbose && quiet {
		return apperrors.NewValidationError("--verbose and --quiet flags are mutually exclusive", nil)
	}
	return nil
}

// buildLogger constructs the logger from global flags and config
func buildLogger() (*logging.Logger, error) {
	level := logging.LogLevelNormal
	if viper.GetBool("verbose") || verbose {
		level = logging.LogLevelVerbose
	}
	if viper.GetBool("quiet") || quiet {
		level = logging.LogLevelQuiet
	}

	format := "text"
	if viper.GetBool("json_logs") || jsonLogs {
		format = "json"
	}

	return logging.NewLogger(logging.Config{
		Level:   level,
		Format:  format,
		LogFile: viper.GetString("log_file"),
	})
}

// newDisplay constructs the terminal display service
func newDisplay() *display.Service {
	return display.NewService(noColor || os.Getenv("NO_COLOR") != "")
}

// appDirs returns the tool's internal, cache, and preference paths
func appDirs() (internalDir, cacheDir, prefsPath string, err error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", "", "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	userCache, err := os.UserCacheDir()
	if err != nil {
		return "", "", "", fmt.Errorf("cannot determine cache directory: %w", err)
	}

	base := filepath.Join(configDir, "stockbook-backup")
	return filepath.Join(base, "backups"),
		filepath.Join(userCache, "stockbook-backup"),
		filepath.Join(base, "directory_preference.json"),
		nil
}

// buildStrategy selects the directory strategy once per invocation
func buildStrategy() (storage.DirectoryStrategy, error) {
	mode := viper.GetString("storage.mode")
	if mode == "" {
		mode = storageMode
	}

	switch mode {
	case "plain":
		return storage.NewPlainStrategy(), nil
	case "scoped":
		volumes := viper.GetStringMapString("storage.volumes")
		if len(volumes) == 0 {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("cannot determine home directory: %w", err)
			}
			volumes = map[string]string{
				"primary": home,
				"home":    home,
			}
		}
		return storage.NewScopedStrategy(storage.NewTerminalPrompter(), volumes), nil
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid storage mode %q, must be scoped or plain", mode), nil)
	}
}

// buildResolver wires the storage resolver from the selected strategy
func buildResolver(logger *logging.Logger) (*storage.Resolver, error) {
	strategy, err := buildStrategy()
	if err != nil {
		return nil, err
	}

	internalDir, _, prefsPath, err := appDirs()
	if err != nil {
		return nil, err
	}

	prefs := storage.NewFilePreferenceStore(prefsPath)
	return storage.NewResolver(strategy, prefs, internalDir, logger), nil
}

// Version information (set by main package)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
	goVersion = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc, gv string) {
	version = v
	buildTime = bt
	gitCommit = gc
	goVersion = gv
}

// createVersionCommand creates the version subcommand
func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("stockbook-backup version %s\n", version)
			fmt.Printf("Built: %s\n", buildTime)
			fmt.Printf("Commit: %s\n", gitCommit)
			fmt.Printf("Go version: %s\n", goVersion)
		},
	}
}

// sampleConfig is the shape emitted by the config subcommand
type sampleConfig struct {
	DB struct {
		Path string `yaml:"path"`
	} `yaml:"db"`
	Storage struct {
		Mode    string            `yaml:"mode"`
		Volumes map[string]string `yaml:"volumes"`
	} `yaml:"storage"`
	Verbose  bool   `yaml:"verbose"`
	Quiet    bool   `yaml:"quiet"`
	JSONLogs bool   `yaml:"json_logs"`
	LogFile  string `yaml:"log_file"`
}

// buildSampleConfig assembles the sample emitted by the config subcommand,
// pointing the volume table at the invoking user's home directory.
func buildSampleConfig() sampleConfig {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "~"
	}

	sample := sampleConfig{}
	sample.DB.Path = "stockbook.db"
	sample.Storage.Mode = "scoped"
	sample.Storage.Volumes = map[string]string{
		"primary": home,
		"home":    home,
	}
	return sample
}

// createConfigCommand creates the config subcommand for generating sample config
func createConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Generate a sample configuration file",
		Long: `Generate a sample configuration file that can be used with the --config flag.

Examples:
  stockbook-backup config > ~/.stockbook-backup.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(buildSampleConfig())
			if err != nil {
				return err
			}
			fmt.Print("# stockbook-backup configuration file\n\n" + string(out))
			return nil
		},
	}
}
