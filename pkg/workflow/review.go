package workflow

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jingkaihe/prskill/pkg/logger"
	"github.com/jingkaihe/prskill/pkg/report"
	"github.com/jingkaihe/prskill/pkg/skills"
	"github.com/jingkaihe/prskill/pkg/vcs"
	"github.com/pkg/errors"
)

// Scope selects which changes a review covers.
type Scope string

// Review scopes.
const (
	ScopeBranch  Scope = "branch"
	ScopeWorking Scope = "working"
	ScopeCommit  Scope = "commit"
	ScopeCustom  Scope = "custom"
)

// Scopes lists the review scopes.
var Scopes = []Scope{ScopeBranch, ScopeWorking, ScopeCommit, ScopeCustom}

// ParseScope parses a scope name.
func ParseScope(s string) (Scope, error) {
	for _, scope := range Scopes {
		if strings.EqualFold(strings.TrimSpace(s), string(scope)) {
			return scope, nil
		}
	}
	return "", errors.Errorf("invalid review scope %q, expected one of %v", s, Scopes)
}

// ReviewOptions selects what GatherReview collects.
type ReviewOptions struct {
	Scope        Scope
	Base         string
	Commit       string
	Instructions string
	DesignDoc    string
}

// ReviewContext is the input of the code-review skill.
type ReviewContext struct {
	Scope         Scope
	RevRange      string
	MergeBase     *vcs.MergeBase
	Commit        string
	Instructions  string
	DesignDocPath string
	DesignDoc     string
	Status        string
	DiffStat      string
	Diff          string
	Log           string
	Untracked     []string
}

// GatherReview collects the changes in the requested scope:
//
//   - branch: merge-base(base, HEAD)..HEAD
//   - working: staged and unstaged changes against HEAD plus untracked files
//   - commit: a single commit
//   - custom: the user's instructions over the working tree
func GatherReview(ctx context.Context, repo vcs.Repository, opts ReviewOptions) (*ReviewContext, error) {
	rc := &ReviewContext{Scope: opts.Scope, Instructions: strings.TrimSpace(opts.Instructions)}
	log := logger.G(ctx).WithField("scope", opts.Scope)

	var err error
	switch opts.Scope {
	case ScopeBranch:
		rc.MergeBase, err = repo.MergeBase(ctx, opts.Base, "HEAD")
		if err != nil {
			return nil, err
		}
		rc.RevRange = rc.MergeBase.Hash + "..HEAD"
		if err := rc.collectRange(ctx, repo); err != nil {
			return nil, err
		}
		if rc.Log, err = repo.Log(ctx, rc.RevRange); err != nil {
			return nil, err
		}

	case ScopeCommit:
		if opts.Commit == "" {
			return nil, errors.Wrap(report.ErrMissingInput, "commit scope needs a commit")
		}
		rc.Commit = opts.Commit
		if rc.Diff, err = repo.Show(ctx, opts.Commit); err != nil {
			return nil, err
		}

	case ScopeCustom:
		if rc.Instructions == "" {
			return nil, errors.Wrap(report.ErrMissingInput, "custom scope needs instructions")
		}
		fallthrough

	case ScopeWorking:
		rc.RevRange = "HEAD"
		if rc.Status, err = repo.Status(ctx); err != nil {
			return nil, err
		}
		if err := rc.collectRange(ctx, repo); err != nil {
			return nil, err
		}
		if rc.Untracked, err = repo.UntrackedFiles(ctx); err != nil {
			return nil, err
		}

	default:
		return nil, errors.Errorf("invalid review scope %q", opts.Scope)
	}

	if opts.DesignDoc != "" {
		data, err := os.ReadFile(opts.DesignDoc)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read design doc")
		}
		rc.DesignDocPath = opts.DesignDoc
		rc.DesignDoc = string(data)
	}

	log.WithField("range", rc.RevRange).Debug("gathered review context")
	return rc, nil
}

func (rc *ReviewContext) collectRange(ctx context.Context, repo vcs.Repository) error {
	var err error
	if rc.DiffStat, err = repo.DiffStat(ctx, rc.RevRange); err != nil {
		return err
	}
	rc.Diff, err = repo.Diff(ctx, rc.RevRange)
	return err
}

// Empty reports whether the scope contains no changes at all.
func (rc *ReviewContext) Empty() bool {
	return strings.TrimSpace(rc.Diff) == "" && len(rc.Untracked) == 0
}

// Blocks lays the context out for skills.Render.
func (rc *ReviewContext) Blocks() []skills.ContextBlock {
	blocks := []skills.ContextBlock{{Title: "Scope", Body: rc.describeScope()}}

	if rc.Instructions != "" {
		blocks = append(blocks, skills.ContextBlock{Title: "Instructions", Body: rc.Instructions})
	}
	if rc.Status != "" {
		blocks = append(blocks, skills.ContextBlock{Title: "Status", Command: "git status --short --branch", Body: rc.Status})
	}
	if rc.Log != "" {
		blocks = append(blocks, skills.ContextBlock{Title: "Commits", Command: "git log --no-merges " + rc.RevRange, Body: rc.Log})
	}

	switch rc.Scope {
	case ScopeCommit:
		blocks = append(blocks, skills.ContextBlock{Title: "Commit", Command: "git show --stat --patch " + rc.Commit, Body: rc.Diff})
	default:
		blocks = append(blocks,
			skills.ContextBlock{Title: "Diff stat", Command: "git diff --stat " + rc.RevRange, Body: rc.DiffStat},
			skills.ContextBlock{Title: "Diff", Command: "git diff " + rc.RevRange, Body: rc.Diff},
		)
	}

	if len(rc.Untracked) > 0 {
		blocks = append(blocks, skills.ContextBlock{
			Title:   "Untracked files",
			Command: "git ls-files --others --exclude-standard",
			Body:    strings.Join(rc.Untracked, "\n"),
		})
	}
	if rc.DesignDocPath != "" {
		blocks = append(blocks, skills.ContextBlock{Title: "Design doc " + rc.DesignDocPath, Body: rc.DesignDoc})
	}
	return blocks
}

func (rc *ReviewContext) describeScope() string {
	switch rc.Scope {
	case ScopeBranch:
		return fmt.Sprintf("Branch changes since %s (merge base %s)", rc.MergeBase.BaseRef, rc.MergeBase.Hash)
	case ScopeCommit:
		return "Single commit " + rc.Commit
	case ScopeCustom:
		return "Custom review of the working tree"
	default:
		return "Staged and unstaged changes against HEAD"
	}
}

// CompleteReview asks for the summary, verdict and alternatives
// justification when they are missing. The verdict prompt offers the one
// suggested by the findings. With noInput set it fails with
// report.ErrMissingInput instead of asking.
func CompleteReview(r *report.Review, p Prompter, noInput bool) error {
	missing := r.Missing()
	if len(missing) == 0 {
		return nil
	}
	if noInput || p == nil {
		return missingInput(missing)
	}

	if strings.TrimSpace(r.Summary) == "" {
		r.Summary = p.Prompt("Summarize the change and its overall quality")
	}
	if r.Verdict == "" {
		suggested := report.SuggestVerdict(r.Findings)
		answer := p.Prompt(fmt.Sprintf("Verdict (suggested: %s)", suggested), verdictOptions()...)
		if answer == "" {
			r.Verdict = suggested
		} else {
			v, err := report.ParseVerdict(answer)
			if err != nil {
				return err
			}
			r.Verdict = v
		}
	}
	if len(r.Alternatives) == 0 && strings.TrimSpace(r.AlternativesJustification) == "" {
		r.AlternativesJustification = p.Prompt("No alternative perspectives were given. Why does none apply?")
	}

	if missing := r.Missing(); len(missing) > 0 {
		return missingInput(missing)
	}
	return nil
}

func verdictOptions() []string {
	options := make([]string, 0, len(report.Verdicts))
	for _, v := range report.Verdicts {
		options = append(options, string(v))
	}
	return options
}
