// Package config assembles the run configuration from an optional YAML file,
// environment variables, and command-line flags. Precedence is
// flags > environment > config file > defaults; components receive the
// resolved Config by value and never read ambient environment state.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/viper"

	"github.com/forwardops/fwdsync/pkg/constants"
	errs "github.com/forwardops/fwdsync/pkg/errors"
)

// Config holds all settings for a single run.
type Config struct {
	// BaseURL is the Forward API base URL, e.g. https://fwd.app/api.
	BaseURL string `yaml:"base_url"`

	// NetworkID selects the network whose inventory is updated.
	NetworkID string `yaml:"network_id"`

	// APIKeyID and APISecret form the Basic auth credential pair.
	APIKeyID  string `yaml:"api_key_id"`
	APISecret string `yaml:"api_secret"`

	// DryRun disables all mutating requests.
	DryRun bool `yaml:"dry_run"`

	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// DryRunOutput is where the locations pipeline writes its prepared
	// payload in dry-run mode.
	DryRunOutput string `yaml:"dry_run_output"`

	// GeocodeURL overrides the Nominatim endpoint, mainly for tests.
	GeocodeURL string `yaml:"geocode_url"`

	// GeocodeDelay is the fixed pause between geocoding calls.
	GeocodeDelay time.Duration `yaml:"geocode_delay"`

	// Retry tunes the bounded-retry policy shared by all remote calls.
	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig tunes the retry/backoff state machine.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	Multiplier   float64       `yaml:"multiplier"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		LogLevel:     "info",
		DryRunOutput: constants.DefaultDryRunOutput,
		GeocodeDelay: constants.GeocodeDelay,
		Retry: RetryConfig{
			MaxAttempts:  constants.MaxRetries,
			InitialDelay: constants.RetryBackoff,
			Multiplier:   constants.RetryBackoffMultiplier,
		},
	}
}

// Keys bound to environment variables. Viper uppercases these, so
// "forward_api_base_url" reads FORWARD_API_BASE_URL.
var envKeys = []string{
	"forward_api_base_url",
	"network_id",
	"api_key_id",
	"api_secret",
	"dry_run",
	"log_level",
	"geocode_url",
}

// BindEnv registers the environment variables read during Resolve. Called
// once from the root command after .env loading.
func BindEnv() {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	for _, key := range envKeys {
		// BindEnv only fails on an empty key
		_ = viper.BindEnv(key)
	}
}

// Resolve builds the configuration: defaults, then the optional config
// file, then environment/flag overrides, then validation.
func Resolve(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile reads a YAML config file, expanding ${VAR} references from the
// environment before parsing so credentials can stay out of the file.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errs.NewConfigError("file", "failed to read config file", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return errs.NewConfigError("file", "failed to parse config file", err)
	}
	return nil
}

// applyOverrides layers environment and flag values over the file/defaults.
func (c *Config) applyOverrides() {
	if v := viper.GetString("forward_api_base_url"); v != "" {
		c.BaseURL = v
	}
	if v := viper.GetString("network_id"); v != "" {
		c.NetworkID = v
	}
	if v := viper.GetString("api_key_id"); v != "" {
		c.APIKeyID = v
	}
	if v := viper.GetString("api_secret"); v != "" {
		c.APISecret = v
	}
	if v := viper.GetString("log_level"); v != "" {
		c.LogLevel = v
	}
	if v := viper.GetString("geocode_url"); v != "" {
		c.GeocodeURL = v
	}
	// Dry run is sticky: either the env/flag or the file can enable it.
	c.DryRun = c.DryRun || viper.GetBool("dry_run")
}

// Validate checks that every required setting is present.
func (c *Config) Validate() error {
	var missing []string
	if c.BaseURL == "" {
		missing = append(missing, "FORWARD_API_BASE_URL")
	}
	if c.NetworkID == "" {
		missing = append(missing, "NETWORK_ID")
	}
	if c.APIKeyID == "" {
		missing = append(missing, "API_KEY_ID")
	}
	if c.APISecret == "" {
		missing = append(missing, "API_SECRET")
	}
	if len(missing) > 0 {
		return errs.NewConfigError("environment",
			"missing required settings: "+strings.Join(missing, ", "), nil)
	}
	return nil
}
