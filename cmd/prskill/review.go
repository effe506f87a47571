package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jingkaihe/prskill/pkg/logger"
	"github.com/jingkaihe/prskill/pkg/presenter"
	"github.com/jingkaihe/prskill/pkg/report"
	"github.com/jingkaihe/prskill/pkg/skills"
	"github.com/jingkaihe/prskill/pkg/vcs"
	"github.com/jingkaihe/prskill/pkg/workflow"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// ReviewContextConfig holds configuration for gathering review context
type ReviewContextConfig struct {
	Scope        string
	Commit       string
	Instructions string
	DesignDoc    string
}

// NewReviewContextConfig creates a new ReviewContextConfig with default values
func NewReviewContextConfig() *ReviewContextConfig {
	return &ReviewContextConfig{
		Scope:        string(workflow.ScopeBranch),
		Commit:       "",
		Instructions: "",
		DesignDoc:    "",
	}
}

// ReviewRenderConfig holds configuration for the review render command
type ReviewRenderConfig struct {
	Input  string
	Verify bool
	Write  string
}

// NewReviewRenderConfig creates a new ReviewRenderConfig with default values
func NewReviewRenderConfig() *ReviewRenderConfig {
	return &ReviewRenderConfig{
		Input:  "",
		Verify: false,
		Write:  "",
	}
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Gather context for and render code reviews",
	Long: `Support for the code-review skill.

"review context" prints the changes of the chosen scope. "review render" turns the
structured review into the seven-section report, optionally running the configured
verification commands first.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var reviewContextCmd = &cobra.Command{
	Use:   "context",
	Short: "Print the changes to review",
	Long: `Print the changes of one review scope:

  branch   the diff of merge-base(base, HEAD)..HEAD
  working  staged and unstaged changes against HEAD, plus untracked files
  commit   a single commit (--commit)
  custom   free-form instructions (--instructions) over the working tree

A design document given with --design-doc is appended to the context.`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getReviewContextConfigFromFlags(cmd)
		blocks, err := reviewContextBlocks(cmd.Context(), config)
		if err != nil {
			presenter.Error(err, "Failed to gather review context")
			os.Exit(1)
		}
		out, err := skills.Render(nil, blocks)
		if err != nil {
			presenter.Error(err, "Failed to render review context")
			os.Exit(1)
		}
		presenter.Document(out)
	},
}

var reviewRenderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a code review report from a result file",
	Long: `Render the seven-section review report from a YAML or JSON result file
(see "prskill schema review"). A missing summary, verdict or justification for skipping
alternative perspectives is asked for interactively, or reported as an error with --no-input.

With --verify the commands listed under review.verify in the configuration run first, in
order. If any fails, MINOR findings and suggestions are held back until the failure is understood.

Examples:
  prskill review render --input review.yaml
  prskill review render --input review.yaml --verify --write review.md`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getReviewRenderConfigFromFlags(cmd)
		if config.Input == "" {
			presenter.Error(errors.New("--input is required, use - to read from stdin"), "Invalid flags")
			os.Exit(1)
		}
		if err := renderReview(cmd.Context(), config, presenter.Default(), os.Stdin); err != nil {
			presenter.Error(err, "Failed to render the review")
			os.Exit(1)
		}
	},
}

func addReviewScopeFlags(cmd *cobra.Command, defaults *ReviewContextConfig) {
	scopes := make([]string, 0, len(workflow.Scopes))
	for _, s := range workflow.Scopes {
		scopes = append(scopes, string(s))
	}
	cmd.Flags().String("scope", defaults.Scope, "Review scope: "+strings.Join(scopes, ", "))
	cmd.Flags().String("commit", defaults.Commit, "Commit to review with --scope commit")
	cmd.Flags().String("instructions", defaults.Instructions, "Review instructions for --scope custom")
	cmd.Flags().String("design-doc", defaults.DesignDoc, "Design document the changes should follow")
}

func init() {
	addReviewScopeFlags(reviewContextCmd, NewReviewContextConfig())

	renderDefaults := NewReviewRenderConfig()
	reviewRenderCmd.Flags().StringP("input", "i", renderDefaults.Input, "Result file in YAML or JSON, - for stdin")
	reviewRenderCmd.Flags().Bool("verify", renderDefaults.Verify, "Run the review.verify commands before rendering")
	reviewRenderCmd.Flags().StringP("write", "w", renderDefaults.Write, "Write the report to this file")

	reviewCmd.AddCommand(reviewContextCmd)
	reviewCmd.AddCommand(reviewRenderCmd)
	rootCmd.AddCommand(reviewCmd)
}

func getReviewContextConfigFromFlags(cmd *cobra.Command) *ReviewContextConfig {
	config := NewReviewContextConfig()
	if scope, err := cmd.Flags().GetString("scope"); err == nil {
		config.Scope = scope
	}
	if commit, err := cmd.Flags().GetString("commit"); err == nil {
		config.Commit = commit
	}
	if instructions, err := cmd.Flags().GetString("instructions"); err == nil {
		config.Instructions = instructions
	}
	if doc, err := cmd.Flags().GetString("design-doc"); err == nil {
		config.DesignDoc = doc
	}
	return config
}

func getReviewRenderConfigFromFlags(cmd *cobra.Command) *ReviewRenderConfig {
	config := NewReviewRenderConfig()
	if input, err := cmd.Flags().GetString("input"); err == nil {
		config.Input = input
	}
	if verify, err := cmd.Flags().GetBool("verify"); err == nil {
		config.Verify = verify
	}
	if write, err := cmd.Flags().GetString("write"); err == nil {
		config.Write = write
	}
	return config
}

func reviewContextBlocks(ctx context.Context, config *ReviewContextConfig) ([]skills.ContextBlock, error) {
	scope, err := workflow.ParseScope(config.Scope)
	if err != nil {
		return nil, err
	}

	repo, err := openRepo(ctx)
	if err != nil {
		return nil, err
	}

	rc, err := workflow.GatherReview(ctx, repo, workflow.ReviewOptions{
		Scope:        scope,
		Base:         cfg.Base,
		Commit:       config.Commit,
		Instructions: config.Instructions,
		DesignDoc:    config.DesignDoc,
	})
	if err != nil {
		return nil, err
	}
	if rc.Empty() {
		presenter.Warning(fmt.Sprintf("No changes found in the %s scope", scope))
	}
	return rc.Blocks(), nil
}

func renderReview(ctx context.Context, config *ReviewRenderConfig, ui presenter.Presenter, stdin io.Reader) error {
	r, err := report.LoadReview(config.Input, stdin)
	if err != nil {
		return err
	}

	if config.Verify {
		runVerification(ctx, r, ui)
	}

	if err := workflow.CompleteReview(r, ui, noInput()); err != nil {
		return err
	}

	out, err := report.RenderReview(r)
	if err != nil {
		return err
	}
	ui.Document(out)

	if config.Write != "" {
		path, err := workflow.WriteDraft(ctx, ".", config.Write, out)
		if err != nil {
			return err
		}
		ui.Success(fmt.Sprintf("Wrote the review to %s", path))
	}
	return nil
}

// runVerification appends the results of the configured verification
// commands to r. Commands run at the repository root when there is one.
func runVerification(ctx context.Context, r *report.Review, ui presenter.Presenter) {
	if len(cfg.Review.Verify) == 0 {
		ui.Warning("--verify given but review.verify lists no commands")
		return
	}

	dir := "."
	if repo, err := openRepo(ctx); err == nil {
		dir = repo.Root()
	} else {
		logger.G(ctx).WithError(err).Debug("not in a repository, verifying in the working directory")
	}

	results := workflow.Verify(ctx, vcs.ExecRunner{Timeout: cfg.Review.VerifyTimeout}, dir, cfg.Review.Verify)
	r.Verification = append(r.Verification, results...)
	if r.VerificationFailed() {
		ui.Warning("Verification failed, low-priority review is paused")
	}
}
