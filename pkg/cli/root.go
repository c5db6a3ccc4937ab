package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/getmockd/mocknet/pkg/config"
	"github.com/getmockd/mocknet/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	// Persistent flags available to all subcommands
	configFile string
	logLevel   string
	jsonOutput bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mocknet",
	Short: "mocknet checks and serves declarative HTTP mocks",
	Long: `mocknet works with the YAML mock files used by the mocknet test engine.

It validates and lists mock files, serves them from a local HTTP listener
that can stand in for a real upstream, and encodes or decodes chunked
transfer framing.

Settings come from --config, then MOCKNET_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits the process on failure.
// This is called by main.main().
func Execute() {
	os.Exit(Main())
}

// Main runs the root command and returns the process exit code.
func Main() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a mocknet config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			if jsonOutput {
				_ = printJSON(cmd.OutOrStdout(), map[string]string{
					"version": Version,
					"commit":  Commit,
					"date":    BuildDate,
				})
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "mocknet %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		},
	})
}

// loadConfig reads --config when given, otherwise the environment, and
// applies --log-level on top.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newLogger builds the CLI logger. Unlike the library default, the CLI
// logs at info when no level is configured.
func newLogger(cfg *config.Config) *slog.Logger {
	level := cfg.Log.Level
	if level == "" {
		level = "info"
	}
	return logging.New(logging.Config{
		Level:  logging.ParseLevel(level),
		Format: logging.ParseFormat(cfg.Log.Format),
		Output: os.Stderr,
	})
}
