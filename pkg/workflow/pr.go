package workflow

import (
	"context"
	"fmt"

	"github.com/jingkaihe/prskill/pkg/hosting"
	"github.com/jingkaihe/prskill/pkg/logger"
	"github.com/jingkaihe/prskill/pkg/report"
	"github.com/jingkaihe/prskill/pkg/skills"
	"github.com/jingkaihe/prskill/pkg/vcs"
	"github.com/pkg/errors"
)

// PROptions selects what GatherPR collects.
type PROptions struct {
	Base  string
	PRRef string
}

// PRContext is the input of the pr-description skill.
type PRContext struct {
	Branch    string
	Base      string
	MergeBase *vcs.MergeBase
	Status    string
	DiffStat  string
	Diff      string
	Log       string
	PR        *hosting.PullRequest
}

// GatherPR collects the status, diff and commit log of HEAD against the
// merge base with opts.Base, and the existing pull request when host is set.
func GatherPR(ctx context.Context, repo vcs.Repository, host hosting.Host, opts PROptions) (*PRContext, error) {
	log := logger.G(ctx).WithField("base", opts.Base)

	pc := &PRContext{Base: opts.Base}
	branch, err := repo.CurrentBranch(ctx)
	if err != nil {
		log.WithError(err).Debug("no current branch")
	}
	pc.Branch = branch

	if pc.Status, err = repo.Status(ctx); err != nil {
		return nil, err
	}

	mb, err := repo.MergeBase(ctx, opts.Base, "HEAD")
	if err != nil {
		return nil, err
	}
	pc.MergeBase = mb

	revRange := mb.Hash + "..HEAD"
	if pc.DiffStat, err = repo.DiffStat(ctx, revRange); err != nil {
		return nil, err
	}
	if pc.Diff, err = repo.Diff(ctx, revRange); err != nil {
		return nil, err
	}
	if pc.Log, err = repo.Log(ctx, revRange); err != nil {
		return nil, err
	}

	if host != nil {
		pr, err := host.ViewPR(ctx, opts.PRRef)
		switch {
		case err == nil:
			pc.PR = pr
		case errors.Is(err, hosting.ErrNoPR) && opts.PRRef == "":
			log.Debug("current branch has no pull request yet")
		case opts.PRRef == "":
			log.WithError(err).Warn("failed to load pull request, continuing without it")
		default:
			return nil, errors.Wrapf(err, "failed to load pull request %s", opts.PRRef)
		}
	}

	log.WithField("merge_base", mb.Hash).WithField("base_ref", mb.BaseRef).Debug("gathered pull request context")
	return pc, nil
}

// Blocks lays the context out for skills.Render.
func (pc *PRContext) Blocks() []skills.ContextBlock {
	revRange := pc.MergeBase.Hash + "..HEAD"
	blocks := []skills.ContextBlock{
		{Title: "Branch", Body: fmt.Sprintf("%s compared with %s (merge base %s)", orDetached(pc.Branch), pc.MergeBase.BaseRef, pc.MergeBase.Hash)},
		{Title: "Status", Command: "git status --short --branch", Body: pc.Status},
		{Title: "Commits", Command: "git log --no-merges " + revRange, Body: pc.Log},
		{Title: "Diff stat", Command: "git diff --stat " + revRange, Body: pc.DiffStat},
		{Title: "Diff", Command: "git diff " + revRange, Body: pc.Diff},
	}
	if pc.PR != nil {
		blocks = append(blocks, skills.ContextBlock{
			Title:   fmt.Sprintf("Existing pull request #%d: %s", pc.PR.Number, pc.PR.Title),
			Command: "gh pr view",
			Body:    pc.PR.Body,
		})
	}
	return blocks
}

func orDetached(branch string) string {
	if branch == "" {
		return "detached HEAD"
	}
	return branch
}

// CompletePR asks for every required section the description lacks. With
// noInput set it fails with report.ErrMissingInput instead of asking.
func CompletePR(d *report.PRDescription, p Prompter, noInput bool) error {
	missing := d.Missing()
	if len(missing) == 0 {
		return nil
	}
	if noInput || p == nil {
		return missingInput(missing)
	}

	for _, section := range missing {
		switch section {
		case report.SectionContext:
			d.Context = p.Prompt("Why does this change exist? (Context)")
		case report.SectionWhatChanged:
			d.WhatChanged = splitItems(p.Prompt("What changed? Separate items with ';'"))
		case report.SectionHowToTest:
			d.HowToTest = splitItems(p.Prompt("How can a reviewer test it? Separate steps with ';'"))
		}
	}

	if missing := d.Missing(); len(missing) > 0 {
		return missingInput(missing)
	}
	return nil
}

// ApplyPR replaces the body of the pull request after showing the change.
// Unless yes is set the user must confirm. It reports whether the body was
// edited.
func ApplyPR(ctx context.Context, host hosting.Host, ui UI, ref, body string, yes bool) (bool, error) {
	if host == nil {
		return false, errors.New("no hosting backend configured")
	}

	pr, err := host.ViewPR(ctx, ref)
	if err != nil {
		return false, err
	}
	if pr.Number > 0 {
		ref = fmt.Sprint(pr.Number)
	}

	if !ui.Diff(fmt.Sprintf("#%d current", pr.Number), fmt.Sprintf("#%d proposed", pr.Number), pr.Body, body) {
		ui.Info(fmt.Sprintf("Pull request #%d already has this description", pr.Number))
		return false, nil
	}

	if !yes && !ui.Confirm(fmt.Sprintf("Replace the description of pull request #%d?", pr.Number)) {
		ui.Info("Left the pull request unchanged")
		return false, nil
	}

	if err := host.EditPRBody(ctx, ref, body); err != nil {
		return false, errors.Wrapf(err, "failed to update pull request #%d", pr.Number)
	}
	logger.G(ctx).WithField("number", pr.Number).Info("updated pull request description")
	return true, nil
}
