package hosting

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/jingkaihe/prskill/pkg/logger"
	"github.com/jingkaihe/prskill/pkg/vcs"
	"github.com/pkg/errors"
)

const ghViewFields = "number,title,body,url,baseRefName,headRefName,state"

// GHCLI talks to the hosting service through the gh command-line tool.
type GHCLI struct {
	dir    string
	runner vcs.Runner
	policy RetryPolicy
}

// NewGHCLI returns a Host that runs gh in dir.
func NewGHCLI(dir string, runner vcs.Runner, policy RetryPolicy) *GHCLI {
	if runner == nil {
		runner = vcs.ExecRunner{}
	}
	return &GHCLI{dir: dir, runner: runner, policy: policy}
}

// Available reports whether gh is installed and authenticated.
func (g *GHCLI) Available(ctx context.Context) error {
	if _, err := g.runner.Run(ctx, g.dir, "gh", "--version"); err != nil {
		return errors.Wrap(err, "GitHub CLI (gh) is not installed")
	}
	if _, err := g.runner.Run(ctx, g.dir, "gh", "auth", "status"); err != nil {
		return errors.Wrap(err, "not authenticated with GitHub, run 'gh auth login'")
	}
	return nil
}

// ViewPR implements Host.
func (g *GHCLI) ViewPR(ctx context.Context, ref string) (*PullRequest, error) {
	args := []string{"pr", "view"}
	if ref != "" {
		args = append(args, ref)
	}
	args = append(args, "--json", ghViewFields)

	var out []byte
	err := withRetry(ctx, g.policy, "gh pr view", func() error {
		var err error
		out, err = g.runner.Run(ctx, g.dir, "gh", args...)
		return classifyGHError(err)
	}, ghRetryable)
	if err != nil {
		return nil, err
	}

	var pr PullRequest
	if err := json.Unmarshal(out, &pr); err != nil {
		return nil, errors.Wrap(err, "failed to decode gh pr view output")
	}
	logger.G(ctx).WithField("number", pr.Number).Debug("loaded pull request")
	return &pr, nil
}

// EditPRBody implements Host.
func (g *GHCLI) EditPRBody(ctx context.Context, ref, body string) error {
	f, err := os.CreateTemp("", "prskill-body-*.md")
	if err != nil {
		return errors.Wrap(err, "failed to create body file")
	}
	defer os.Remove(f.Name())

	if _, err := f.WriteString(body); err != nil {
		f.Close()
		return errors.Wrap(err, "failed to write body file")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "failed to close body file")
	}

	args := []string{"pr", "edit"}
	if ref != "" {
		args = append(args, ref)
	}
	args = append(args, "--body-file", f.Name())

	return withRetry(ctx, g.policy, "gh pr edit", func() error {
		_, err := g.runner.Run(ctx, g.dir, "gh", args...)
		return classifyGHError(err)
	}, ghRetryable)
}

func classifyGHError(err error) error {
	if err == nil {
		return nil
	}
	var cmdErr *vcs.CommandError
	if errors.As(err, &cmdErr) && strings.Contains(strings.ToLower(cmdErr.Stderr), "no pull requests found") {
		return errors.Wrap(ErrNoPR, cmdErr.Stderr)
	}
	return err
}

func ghRetryable(err error) bool {
	if errors.Is(err, ErrNoPR) {
		return false
	}
	var cmdErr *vcs.CommandError
	if errors.As(err, &cmdErr) {
		if errors.Is(cmdErr.Err, context.DeadlineExceeded) {
			return true
		}
		stderr := strings.ToLower(cmdErr.Stderr)
		for _, transient := range []string{"timeout", "timed out", "connection", "502", "503", "504", "rate limit"} {
			if strings.Contains(stderr, transient) {
				return true
			}
		}
		return false
	}
	return true
}
