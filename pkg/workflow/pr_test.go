package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jingkaihe/prskill/pkg/hosting"
	"github.com/jingkaihe/prskill/pkg/report"
	"github.com/jingkaihe/prskill/pkg/vcs"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func branchRepo() *fakeRepo {
	return &fakeRepo{
		branch:    "feature/retry",
		status:    "## feature/retry\n M pkg/vcs/mergebase.go\n",
		mergeBase: &vcs.MergeBase{Hash: "abc123", BaseRef: "origin/main", Fetched: true},
		diffs:     map[string]string{"abc123..HEAD": "diff --git a/pkg/vcs/mergebase.go b/pkg/vcs/mergebase.go\n"},
		stats:     map[string]string{"abc123..HEAD": " pkg/vcs/mergebase.go | 12 ++++++------\n"},
		logs:      map[string]string{"abc123..HEAD": "f00d Retry fetch before falling back"},
	}
}

func TestGatherPR(t *testing.T) {
	ctx := context.Background()
	repo := branchRepo()
	host := &fakeHost{pr: &hosting.PullRequest{Number: 12, Title: "Retry fetch", Body: "old body"}}

	pc, err := GatherPR(ctx, repo, host, PROptions{Base: "main"})
	require.NoError(t, err)

	assert.Equal(t, "feature/retry", pc.Branch)
	assert.Equal(t, "origin/main", pc.MergeBase.BaseRef)
	assert.Equal(t, "f00d Retry fetch before falling back", pc.Log)
	assert.Equal(t, 12, pc.PR.Number)
	assert.Equal(t, []string{"status", "merge-base main HEAD", "diffstat abc123..HEAD", "diff abc123..HEAD", "log abc123..HEAD"}, repo.calls)
	assert.Equal(t, []string{""}, host.refs)

	blocks := pc.Blocks()
	var titles []string
	for _, b := range blocks {
		titles = append(titles, b.Title)
	}
	assert.Equal(t, []string{"Branch", "Status", "Commits", "Diff stat", "Diff", "Existing pull request #12: Retry fetch"}, titles)
	assert.Equal(t, "feature/retry compared with origin/main (merge base abc123)", blocks[0].Body)
	assert.Equal(t, "git diff abc123..HEAD", blocks[4].Command)
	assert.Equal(t, "old body", blocks[5].Body)
}

func TestGatherPRWithoutHost(t *testing.T) {
	repo := branchRepo()
	repo.branch = ""

	pc, err := GatherPR(context.Background(), repo, nil, PROptions{Base: "main"})
	require.NoError(t, err)
	assert.Nil(t, pc.PR)
	assert.Len(t, pc.Blocks(), 5)
	assert.True(t, strings.HasPrefix(pc.Blocks()[0].Body, "detached HEAD"))
}

func TestGatherPRHostErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("no pull request for branch", func(t *testing.T) {
		host := &fakeHost{viewErr: errors.Wrap(hosting.ErrNoPR, "feature/retry")}
		pc, err := GatherPR(ctx, branchRepo(), host, PROptions{Base: "main"})
		require.NoError(t, err)
		assert.Nil(t, pc.PR)
	})

	t.Run("explicit reference must resolve", func(t *testing.T) {
		host := &fakeHost{viewErr: errors.Wrap(hosting.ErrNoPR, "#99")}
		_, err := GatherPR(ctx, branchRepo(), host, PROptions{Base: "main", PRRef: "99"})
		require.Error(t, err)
		assert.ErrorIs(t, err, hosting.ErrNoPR)
	})

	t.Run("hosting outage is not fatal without a reference", func(t *testing.T) {
		host := &fakeHost{viewErr: errors.New("gh: connection refused")}
		pc, err := GatherPR(ctx, branchRepo(), host, PROptions{Base: "main"})
		require.NoError(t, err)
		assert.Nil(t, pc.PR)
	})
}

func TestGatherPRNoMergeBase(t *testing.T) {
	repo := branchRepo()
	repo.mbErr = errors.Wrap(vcs.ErrNoMergeBase, "between main (or origin/main) and HEAD")

	_, err := GatherPR(context.Background(), repo, nil, PROptions{Base: "main"})
	require.Error(t, err)
	assert.ErrorIs(t, err, vcs.ErrNoMergeBase)
}

func TestCompletePR(t *testing.T) {
	t.Run("nothing missing", func(t *testing.T) {
		d := &report.PRDescription{Context: "Why", WhatChanged: []string{"a"}, HowToTest: []string{"b"}}
		ui := &fakeUI{}
		require.NoError(t, CompletePR(d, ui, false))
		assert.Empty(t, ui.questions)
	})

	t.Run("asks for each missing section", func(t *testing.T) {
		d := &report.PRDescription{WhatChanged: []string{"Retry fetch"}}
		ui := &fakeUI{answers: []string{"Merge base lookups failed on fresh clones", "go test ./pkg/vcs/...; run prskill pr context"}}

		require.NoError(t, CompletePR(d, ui, false))
		assert.Len(t, ui.questions, 2)
		assert.Equal(t, "Merge base lookups failed on fresh clones", d.Context)
		assert.Equal(t, []string{"go test ./pkg/vcs/...", "run prskill pr context"}, d.HowToTest)
	})

	t.Run("empty answers keep the input missing", func(t *testing.T) {
		d := &report.PRDescription{}
		err := CompletePR(d, &fakeUI{}, false)
		require.Error(t, err)
		assert.ErrorIs(t, err, report.ErrMissingInput)
		assert.Contains(t, err.Error(), "Context, What changed, How to test")
	})

	t.Run("no input fails without asking", func(t *testing.T) {
		d := &report.PRDescription{Context: "Why"}
		ui := &fakeUI{answers: []string{"x"}}
		err := CompletePR(d, ui, true)
		require.Error(t, err)
		assert.ErrorIs(t, err, report.ErrMissingInput)
		assert.Empty(t, ui.questions)
	})
}

func TestApplyPR(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed", func(t *testing.T) {
		host := &fakeHost{pr: &hosting.PullRequest{Number: 7, Body: "old"}}
		ui := &fakeUI{confirm: true}

		applied, err := ApplyPR(ctx, host, ui, "", "new", false)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, []string{"new"}, host.edits)
		assert.Equal(t, []string{"", "7"}, host.refs)
		assert.Equal(t, 1, ui.diffs)
	})

	t.Run("declined", func(t *testing.T) {
		host := &fakeHost{pr: &hosting.PullRequest{Number: 7, Body: "old"}}
		ui := &fakeUI{confirm: false}

		applied, err := ApplyPR(ctx, host, ui, "7", "new", false)
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Empty(t, host.edits)
		assert.Contains(t, ui.infos, "Left the pull request unchanged")
	})

	t.Run("yes skips confirmation", func(t *testing.T) {
		host := &fakeHost{pr: &hosting.PullRequest{Number: 7, Body: "old"}}
		ui := &fakeUI{}

		applied, err := ApplyPR(ctx, host, ui, "7", "new", true)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Empty(t, ui.questions)
	})

	t.Run("unchanged body", func(t *testing.T) {
		host := &fakeHost{pr: &hosting.PullRequest{Number: 7, Body: "same"}}
		ui := &fakeUI{confirm: true}

		applied, err := ApplyPR(ctx, host, ui, "7", "same", false)
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Empty(t, host.edits)
		assert.Empty(t, ui.questions)
	})

	t.Run("edit failure", func(t *testing.T) {
		host := &fakeHost{pr: &hosting.PullRequest{Number: 7, Body: "old"}, editErr: errors.New("HTTP 403")}
		_, err := ApplyPR(ctx, host, &fakeUI{}, "7", "new", true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update pull request #7")
	})

	t.Run("no host", func(t *testing.T) {
		_, err := ApplyPR(ctx, nil, &fakeUI{}, "7", "new", true)
		assert.Error(t, err)
	})
}

func TestWriteDraft(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	path, err := WriteDraft(ctx, root, "", "## Context\n")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".prskill", "drafts"), filepath.Dir(path))
	assert.Equal(t, ".md", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "## Context\n", string(data))

	explicit := filepath.Join(root, "out", "pr.md")
	path, err = WriteDraft(ctx, root, explicit, "a longer first body")
	require.NoError(t, err)
	assert.Equal(t, explicit, path)

	_, err = WriteDraft(ctx, root, explicit, "body")
	require.NoError(t, err)
	data, err = os.ReadFile(explicit)
	require.NoError(t, err)
	assert.Equal(t, "body", string(data))
}
