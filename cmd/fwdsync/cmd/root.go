// Package cmd implements the fwdsync command tree.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/forwardops/fwdsync/internal/config"
	"github.com/forwardops/fwdsync/internal/transport"
	"github.com/forwardops/fwdsync/pkg/logging"
)

var (
	configFile string

	// Version is the build version set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fwdsync",
	Short: "Forward Networks inventory sync",
	Long: `fwdsync reconciles a local inventory CSV against the Forward Networks API.

The devices subcommand resolves location names to IDs and updates device
locations (and optionally tags); the locations subcommand geocodes
addresses where needed and creates the locations remotely.

Credentials and the target network come from the environment (or a .env
file): FORWARD_API_BASE_URL, NETWORK_ID, API_KEY_ID, API_SECRET.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree and exits non-zero on any failure.
func Execute(version, commit string) {
	Version = version
	Commit = commit
	rootCmd.Version = version

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.Default().Error().Msg(err.Error())
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"optional YAML config file")
	rootCmd.PersistentFlags().Bool("dry-run", false,
		"resolve everything but perform no mutating requests")
	rootCmd.PersistentFlags().String("log-level", "",
		"logging level (debug, info, warn, error); defaults to LOG_LEVEL env")

	if err := viper.BindPFlag("dry_run", rootCmd.PersistentFlags().Lookup("dry-run")); err != nil {
		panic(fmt.Sprintf("Failed to bind dry-run flag: %v", err))
	}
	if err := viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		panic(fmt.Sprintf("Failed to bind log-level flag: %v", err))
	}
}

// initConfig loads .env files and binds environment variables before any
// command runs.
func initConfig() {
	// Missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	config.BindEnv()
}

// setup resolves the configuration and configures logging from it. Every
// subcommand starts here.
func setup() (*config.Config, error) {
	cfg, err := config.Resolve(configFile)
	if err != nil {
		return nil, err
	}

	logging.Configure(&logging.Config{
		Level:   cfg.LogLevel,
		Format:  os.Getenv("LOG_FORMAT"),
		Output:  "stderr",
		NoColor: os.Getenv("NO_COLOR") != "",
	})

	if cfg.DryRun {
		logging.Default().Info().Msg("Dry run mode ENABLED (no mutating requests will be performed)")
	}
	return cfg, nil
}

// retryPolicy converts the configured retry tuning into a transport policy.
func retryPolicy(cfg *config.Config) transport.Policy {
	return transport.Policy{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: cfg.Retry.InitialDelay,
		Multiplier:   cfg.Retry.Multiplier,
	}
}
