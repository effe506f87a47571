package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jingkaihe/prskill/pkg/config"
	"github.com/jingkaihe/prskill/pkg/logger"
	"github.com/jingkaihe/prskill/pkg/presenter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// cfg is resolved once per invocation by the root command's pre-run hook.
var cfg = config.DefaultConfig

var rootCmd = &cobra.Command{
	Use:   "prskill",
	Short: "Skills for writing pull request descriptions and reviewing code",
	Long: `prskill packages two skills, pr-description and code-review, and the tooling around them.

It gathers the repository context each skill needs, renders the structured result an
assistant produces into the fixed Markdown layout, checks documents against that layout,
and, only when asked, writes drafts or updates the pull request body.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := bindFlags(cmd.Root().PersistentFlags()); err != nil {
			return err
		}
		if err := config.Init(); err != nil {
			return err
		}
		loaded, err := config.Load()
		if err != nil {
			return errors.Wrap(err, "invalid configuration")
		}
		if err := logger.Configure(loaded.LogLevel, loaded.LogFormat); err != nil {
			return err
		}
		cfg = loaded
		logger.G(cmd.Context()).WithField("command", cmd.CommandPath()).Debug("configuration loaded")
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("base", config.DefaultConfig.Base, "Base branch the changes are compared against")
	flags.String("remote", config.DefaultConfig.Remote, "Remote to fetch when the merge base is missing locally")
	flags.String("host", config.DefaultConfig.Host, "Hosting backend for pull requests (gh or api)")
	flags.String("log-level", config.DefaultConfig.LogLevel, "Log level (debug, info, warn, error)")
	flags.String("log-format", config.DefaultConfig.LogFormat, "Log format (text or json)")
	flags.Bool("no-input", false, "Fail instead of prompting when an input is missing")
}

// bindFlags lets the global flags override the config file and environment.
func bindFlags(flags *pflag.FlagSet) error {
	for key, name := range map[string]string{
		"base":       "base",
		"remote":     "remote",
		"host":       "host",
		"log_level":  "log-level",
		"log_format": "log-format",
		"no_input":   "no-input",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return errors.Wrapf(err, "failed to bind --%s", name)
		}
	}
	return nil
}

// noInput reports whether prompting is disabled by flag or PRSKILL_NO_INPUT.
func noInput() bool {
	return viper.GetBool("no_input")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		presenter.Error(err, "prskill failed")
		os.Exit(1)
	}
}
