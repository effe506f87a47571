package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jingkaihe/prskill/pkg/presenter"
	"github.com/jingkaihe/prskill/pkg/report"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// CheckConfig holds configuration for the check command
type CheckConfig struct {
	Watch    bool
	Debounce time.Duration
}

// NewCheckConfig creates a new CheckConfig with default values
func NewCheckConfig() *CheckConfig {
	return &CheckConfig{
		Watch:    false,
		Debounce: 300 * time.Millisecond,
	}
}

var checkCmd = &cobra.Command{
	Use:   "check <pr|review> <file|->",
	Short: "Check that a document follows the fixed section layout",
	Long: `Check a pull request description or review report against its layout and report
every violation: missing, extra or out-of-order sections, blank sections, an invalid
verdict, more than three top findings, unknown severity labels, and text before the
first heading.

With --watch the file is checked again every time it is saved, until interrupted.

Examples:
  prskill check pr .prskill/drafts/0b6f.md
  prskill check review review.md --watch
  gh pr view --json body -q .body | prskill check pr -`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		config := getCheckConfigFromFlags(cmd)
		kind, path := args[0], args[1]

		ok := reportCheck(kind, path)
		if !config.Watch {
			if !ok {
				os.Exit(1)
			}
			return
		}

		if path == "-" {
			presenter.Error(errors.New("cannot watch stdin"), "Invalid flags")
			os.Exit(1)
		}
		presenter.Info(fmt.Sprintf("Watching %s, press Ctrl+C to stop", path))
		err := watchFile(cmd.Context(), path, config.Debounce, func() {
			presenter.Separator()
			reportCheck(kind, path)
		})
		if err != nil {
			presenter.Error(err, "Failed to watch the document")
			os.Exit(1)
		}
	},
}

func init() {
	defaults := NewCheckConfig()
	checkCmd.Flags().Bool("watch", defaults.Watch, "Check the file again whenever it changes")
	checkCmd.Flags().Duration("debounce", defaults.Debounce, "Wait this long after the last change before checking")

	rootCmd.AddCommand(checkCmd)
}

func getCheckConfigFromFlags(cmd *cobra.Command) *CheckConfig {
	config := NewCheckConfig()
	if watch, err := cmd.Flags().GetBool("watch"); err == nil {
		config.Watch = watch
	}
	if debounce, err := cmd.Flags().GetDuration("debounce"); err == nil {
		config.Debounce = debounce
	}
	return config
}

// reportCheck prints the outcome of checking path and reports whether it passed.
func reportCheck(kind, path string) bool {
	if err := checkDocument(kind, path, os.Stdin); err != nil {
		presenter.Error(err, "Document does not follow the expected layout")
		return false
	}
	presenter.Success(fmt.Sprintf("%s follows the expected layout", path))
	return true
}

func checkDocument(kindArg, path string, stdin io.Reader) error {
	kind, err := report.ParseKind(kindArg)
	if err != nil {
		return err
	}

	var data []byte
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}

	return report.Check(kind, data)
}
