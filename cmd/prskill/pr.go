package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jingkaihe/prskill/pkg/hosting"
	"github.com/jingkaihe/prskill/pkg/logger"
	"github.com/jingkaihe/prskill/pkg/presenter"
	"github.com/jingkaihe/prskill/pkg/report"
	"github.com/jingkaihe/prskill/pkg/skills"
	"github.com/jingkaihe/prskill/pkg/workflow"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// PRContextConfig holds configuration for the pr context command
type PRContextConfig struct {
	PRRef  string
	NoHost bool
}

// NewPRContextConfig creates a new PRContextConfig with default values
func NewPRContextConfig() *PRContextConfig {
	return &PRContextConfig{
		PRRef:  "",
		NoHost: false,
	}
}

// PRRenderConfig holds configuration for the pr render command
type PRRenderConfig struct {
	Input string
	Write string
	Draft bool
	Apply bool
	Yes   bool
	PRRef string
}

// NewPRRenderConfig creates a new PRRenderConfig with default values
func NewPRRenderConfig() *PRRenderConfig {
	return &PRRenderConfig{
		Input: "",
		Write: "",
		Draft: false,
		Apply: false,
		Yes:   false,
		PRRef: "",
	}
}

// Validate validates the PRRenderConfig and returns an error if invalid
func (c *PRRenderConfig) Validate() error {
	if c.Input == "" {
		return errors.New("--input is required, use - to read from stdin")
	}
	if c.Write != "" && c.Draft {
		return errors.New("--write and --draft are mutually exclusive")
	}
	if c.Yes && !c.Apply {
		return errors.New("--yes only applies together with --apply")
	}
	return nil
}

var prCmd = &cobra.Command{
	Use:   "pr",
	Short: "Gather context for and render pull request descriptions",
	Long: `Support for the pr-description skill.

"pr context" prints the diff, commit log and existing pull request the description is
written from. "pr render" turns the structured result into the five-section description,
asking for anything missing, and optionally writes it locally or applies it to the pull request.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var prContextCmd = &cobra.Command{
	Use:   "context",
	Short: "Print the repository context for a pull request description",
	Long: `Print the branch, status, commit log, diff stat and diff of HEAD against its merge base
with the base branch. When the merge base is missing locally the remote is fetched first,
then the remote-tracking base branch is tried.

The existing pull request of the current branch is included when the hosting service is reachable.`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getPRContextConfigFromFlags(cmd)
		blocks, err := prContextBlocks(cmd.Context(), config)
		if err != nil {
			presenter.Error(err, "Failed to gather pull request context")
			os.Exit(1)
		}
		out, err := skills.Render(nil, blocks)
		if err != nil {
			presenter.Error(err, "Failed to render pull request context")
			os.Exit(1)
		}
		presenter.Document(out)
	},
}

var prRenderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a pull request description from a result file",
	Long: `Render the five-section pull request description from a YAML or JSON result file
(see "prskill schema pr"). Missing Context, What changed or How to test are asked for
interactively, or reported as an error with --no-input.

Nothing is written unless asked: --write and --draft save the description locally and
--apply replaces the pull request body after showing the difference and asking for
confirmation.

Examples:
  prskill pr render --input pr.yaml
  prskill pr render --input pr.yaml --draft
  prskill pr render --input - --apply --yes < pr.json`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getPRRenderConfigFromFlags(cmd)
		if err := config.Validate(); err != nil {
			presenter.Error(err, "Invalid flags")
			os.Exit(1)
		}
		if err := renderPR(cmd.Context(), config, presenter.Default(), os.Stdin); err != nil {
			presenter.Error(err, "Failed to render the pull request description")
			os.Exit(1)
		}
	},
}

func init() {
	contextDefaults := NewPRContextConfig()
	prContextCmd.Flags().String("pr", contextDefaults.PRRef, "Pull request number or URL (defaults to the current branch)")
	prContextCmd.Flags().Bool("no-host", contextDefaults.NoHost, "Do not contact the hosting service")

	renderDefaults := NewPRRenderConfig()
	prRenderCmd.Flags().StringP("input", "i", renderDefaults.Input, "Result file in YAML or JSON, - for stdin")
	prRenderCmd.Flags().StringP("write", "w", renderDefaults.Write, "Write the description to this file")
	prRenderCmd.Flags().Bool("draft", renderDefaults.Draft, "Write the description to a new file under "+workflow.DraftDir)
	prRenderCmd.Flags().Bool("apply", renderDefaults.Apply, "Replace the pull request body with the description")
	prRenderCmd.Flags().BoolP("yes", "y", renderDefaults.Yes, "Apply without asking for confirmation")
	prRenderCmd.Flags().String("pr", renderDefaults.PRRef, "Pull request to apply to (defaults to the current branch)")

	prCmd.AddCommand(prContextCmd)
	prCmd.AddCommand(prRenderCmd)
	rootCmd.AddCommand(prCmd)
}

func getPRContextConfigFromFlags(cmd *cobra.Command) *PRContextConfig {
	config := NewPRContextConfig()
	if ref, err := cmd.Flags().GetString("pr"); err == nil {
		config.PRRef = ref
	}
	if noHost, err := cmd.Flags().GetBool("no-host"); err == nil {
		config.NoHost = noHost
	}
	return config
}

func getPRRenderConfigFromFlags(cmd *cobra.Command) *PRRenderConfig {
	config := NewPRRenderConfig()
	if input, err := cmd.Flags().GetString("input"); err == nil {
		config.Input = input
	}
	if write, err := cmd.Flags().GetString("write"); err == nil {
		config.Write = write
	}
	if draft, err := cmd.Flags().GetBool("draft"); err == nil {
		config.Draft = draft
	}
	if apply, err := cmd.Flags().GetBool("apply"); err == nil {
		config.Apply = apply
	}
	if yes, err := cmd.Flags().GetBool("yes"); err == nil {
		config.Yes = yes
	}
	if ref, err := cmd.Flags().GetString("pr"); err == nil {
		config.PRRef = ref
	}
	return config
}

func prContextBlocks(ctx context.Context, config *PRContextConfig) ([]skills.ContextBlock, error) {
	repo, err := openRepo(ctx)
	if err != nil {
		return nil, err
	}

	var host hosting.Host
	if !config.NoHost {
		if host, err = newHost(ctx, repo); err != nil {
			// An explicit reference must resolve.
			if config.PRRef != "" {
				return nil, err
			}
			logger.G(ctx).WithError(err).Warn("pull request metadata unavailable")
			host = nil
		}
	}

	pc, err := workflow.GatherPR(ctx, repo, host, workflow.PROptions{Base: cfg.Base, PRRef: config.PRRef})
	if err != nil {
		return nil, err
	}
	return pc.Blocks(), nil
}

func renderPR(ctx context.Context, config *PRRenderConfig, ui presenter.Presenter, stdin io.Reader) error {
	d, err := report.LoadPR(config.Input, stdin)
	if err != nil {
		return err
	}
	if err := workflow.CompletePR(d, ui, noInput()); err != nil {
		return err
	}

	body, err := report.RenderPR(d)
	if err != nil {
		return err
	}
	ui.Document(body)

	if config.Write != "" || config.Draft {
		path, err := workflow.WriteDraft(ctx, draftRoot(ctx), config.Write, body)
		if err != nil {
			return err
		}
		ui.Success(fmt.Sprintf("Wrote the description to %s", path))
	}

	if !config.Apply {
		return nil
	}

	repo, err := openRepo(ctx)
	if err != nil {
		return err
	}
	host, err := newHost(ctx, repo)
	if err != nil {
		return err
	}
	applied, err := workflow.ApplyPR(ctx, host, ui, config.PRRef, body, config.Yes)
	if err != nil {
		return err
	}
	if applied {
		ui.Success("Updated the pull request description")
	}
	return nil
}

// draftRoot is the repository root, or the working directory outside a repository.
func draftRoot(ctx context.Context) string {
	repo, err := openRepo(ctx)
	if err != nil {
		logger.G(ctx).WithError(err).Debug("not in a repository, writing drafts relative to the working directory")
		return "."
	}
	return repo.Root()
}
