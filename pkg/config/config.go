// Package config loads prskill settings from config files, the environment
// and an optional .env file into a typed Config.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Hosting backends.
const (
	HostGH  = "gh"
	HostAPI = "api"
)

// RetryConfig controls retries of fetches and hosting calls.
type RetryConfig struct {
	Attempts uint          `mapstructure:"attempts" yaml:"attempts"`
	Delay    time.Duration `mapstructure:"delay" yaml:"delay"`
}

// DiffConfig holds diff filtering settings.
type DiffConfig struct {
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
}

// ReviewConfig holds code review settings.
type ReviewConfig struct {
	Verify        []string      `mapstructure:"verify" yaml:"verify"`
	VerifyTimeout time.Duration `mapstructure:"verify_timeout" yaml:"verify_timeout"`
}

// Config is the resolved prskill configuration.
type Config struct {
	Base           string        `mapstructure:"base" yaml:"base"`
	Remote         string        `mapstructure:"remote" yaml:"remote"`
	Host           string        `mapstructure:"host" yaml:"host"`
	GitHubToken    string        `mapstructure:"github_token" yaml:"github_token"`
	LogLevel       string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat      string        `mapstructure:"log_format" yaml:"log_format"`
	CommandTimeout time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`
	Diff           DiffConfig    `mapstructure:"diff" yaml:"diff"`
	Review         ReviewConfig  `mapstructure:"review" yaml:"review"`
	Retry          RetryConfig   `mapstructure:"retry" yaml:"retry"`
}

// DefaultConfig holds the values used when nothing else is set.
var DefaultConfig = Config{
	Base:           "main",
	Remote:         "origin",
	Host:           HostGH,
	LogLevel:       "warn",
	LogFormat:      "text",
	CommandTimeout: 30 * time.Second,
	Diff:           DiffConfig{Exclude: []string{}},
	Review:         ReviewConfig{Verify: []string{}, VerifyTimeout: 10 * time.Minute},
	Retry:          RetryConfig{Attempts: 3, Delay: time.Second},
}

// SetDefaults registers DefaultConfig with viper so every key is known to
// the environment lookup and to Unmarshal.
func SetDefaults() {
	viper.SetDefault("base", DefaultConfig.Base)
	viper.SetDefault("remote", DefaultConfig.Remote)
	viper.SetDefault("host", DefaultConfig.Host)
	viper.SetDefault("github_token", "")
	viper.SetDefault("log_level", DefaultConfig.LogLevel)
	viper.SetDefault("log_format", DefaultConfig.LogFormat)
	viper.SetDefault("command_timeout", DefaultConfig.CommandTimeout)
	viper.SetDefault("diff.exclude", DefaultConfig.Diff.Exclude)
	viper.SetDefault("review.verify", DefaultConfig.Review.Verify)
	viper.SetDefault("review.verify_timeout", DefaultConfig.Review.VerifyTimeout)
	viper.SetDefault("retry.attempts", DefaultConfig.Retry.Attempts)
	viper.SetDefault("retry.delay", DefaultConfig.Retry.Delay)
}

// Init loads .env from the working directory, wires PRSKILL_* environment
// variables and reads config.yaml from $HOME/.prskill or the working
// directory. A missing config file is not an error.
func Init() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "failed to load .env")
	}

	viper.SetEnvPrefix("PRSKILL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.BindEnv("github_token", "PRSKILL_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return errors.Wrap(err, "failed to bind github_token")
	}

	SetDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.prskill")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "failed to read config file")
	}
	return nil
}

// Load decodes the viper settings into a Config and validates it.
func Load() (Config, error) {
	var config Config
	err := viper.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return config, errors.Wrap(err, "failed to unmarshal configuration")
	}

	if config.Retry.Attempts == 0 {
		config.Retry = DefaultConfig.Retry
	}
	if config.CommandTimeout <= 0 {
		config.CommandTimeout = DefaultConfig.CommandTimeout
	}
	if config.Review.VerifyTimeout <= 0 {
		config.Review.VerifyTimeout = DefaultConfig.Review.VerifyTimeout
	}

	return config, config.Validate()
}

// Validate checks enumerated values and glob patterns.
func (c Config) Validate() error {
	switch c.Host {
	case HostGH, HostAPI:
	default:
		return errors.Errorf("invalid host %q, expected %q or %q", c.Host, HostGH, HostAPI)
	}
	if c.Base == "" {
		return errors.New("base branch must not be empty")
	}
	for _, pattern := range c.Diff.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Errorf("invalid diff.exclude pattern %q", pattern)
		}
	}
	return nil
}
