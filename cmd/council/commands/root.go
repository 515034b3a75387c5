package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagecouncil/council/cmd/council/internal/config"
)

var (
	// Global flags
	verbose bool

	// Global configuration (loaded at init time)
	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "council",
	Short: "A council of sages for your questions",
	Long: `council - ask one question, hear from many sages at once.

The server fans each question out to the selected sages and streams their
answers back over a single websocket. Each consultation costs one credit;
a consultation where every sage fails is free.

Configuration is stored in the OS config directory:
  macOS:   ~/Library/Application Support/council/
  Linux:   ~/.config/council/
  Windows: %AppData%/council/

Examples:
  # Run the gateway with the Gemini backend
  GEMINI_API_KEY=... council serve --addr :8080

  # Consult two sages from another terminal
  council ask --sages buddha,lao-tzu "How do I find peace?"

  # See who is on the council
  council sages`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// configLoadErr stores the error from config.Load() for deferred reporting.
var configLoadErr error

func initConfig() {
	cfg, err := config.Load()
	if err != nil {
		// Report lazily so commands that need no config, like version,
		// still work.
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

// getConfig returns the global configuration.
func getConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}
