package vcs

import (
	"context"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/jingkaihe/prskill/pkg/logger"
	"github.com/pkg/errors"
)

// ErrNotRepository is returned when the directory is not inside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Repository is the set of version-control queries the skills rely on.
type Repository interface {
	Root() string
	CurrentBranch(ctx context.Context) (string, error)
	HeadCommit(ctx context.Context) (*Commit, error)
	Status(ctx context.Context) (string, error)
	Diff(ctx context.Context, revRange string) (string, error)
	DiffStat(ctx context.Context, revRange string) (string, error)
	Log(ctx context.Context, revRange string) (string, error)
	Show(ctx context.Context, rev string) (string, error)
	MergeBase(ctx context.Context, base, head string) (*MergeBase, error)
	UntrackedFiles(ctx context.Context) ([]string, error)
}

// Commit is a short description of a commit.
type Commit struct {
	Hash    string
	Subject string
	Author  string
	When    time.Time
}

// Git implements Repository on top of the git binary and go-git.
type Git struct {
	root    string
	remote  string
	exclude []string
	fetch   FetchPolicy
	runner  Runner
}

// Option configures a Git adapter.
type Option func(*Git)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(g *Git) {
		g.runner = r
	}
}

// WithRemote sets the remote used by the merge-base fallback. Defaults to origin.
func WithRemote(remote string) Option {
	return func(g *Git) {
		if remote != "" {
			g.remote = remote
		}
	}
}

// WithFetchPolicy controls the fetch retried by MergeBase.
func WithFetchPolicy(policy FetchPolicy) Option {
	return func(g *Git) {
		g.fetch = policy
	}
}

// WithExclude drops paths matching any of the doublestar patterns from diffs.
func WithExclude(patterns ...string) Option {
	return func(g *Git) {
		g.exclude = append(g.exclude, patterns...)
	}
}

// Open locates the work tree containing dir.
func Open(ctx context.Context, dir string, opts ...Option) (*Git, error) {
	g := &Git{
		remote: "origin",
		fetch:  DefaultFetchPolicy,
		runner: ExecRunner{},
	}
	for _, opt := range opts {
		opt(g)
	}

	for _, pattern := range g.exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	out, err := g.runner.Run(ctx, dir, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, errors.Wrapf(ErrNotRepository, "%s", dir)
	}
	g.root = strings.TrimSpace(string(out))
	return g, nil
}

// Root returns the top-level directory of the work tree.
func (g *Git) Root() string {
	return g.root
}

// Remote returns the remote consulted by the merge-base fallback.
func (g *Git) Remote() string {
	return g.remote
}

func (g *Git) git(ctx context.Context, args ...string) (string, error) {
	out, err := g.runner.Run(ctx, g.root, "git", args...)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (g *Git) open() (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(g.root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open repository")
	}
	return repo, nil
}

// CurrentBranch returns the short name of the checked-out branch.
func (g *Git) CurrentBranch(_ context.Context) (string, error) {
	repo, err := g.open()
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve HEAD")
	}
	if !head.Name().IsBranch() {
		return "", errors.New("HEAD is detached")
	}
	return head.Name().Short(), nil
}

// HeadCommit describes the commit HEAD points at.
func (g *Git) HeadCommit(_ context.Context) (*Commit, error) {
	repo, err := g.open()
	if err != nil {
		return nil, err
	}
	head, err := repo.Head()
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve HEAD")
	}
	c, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, errors.Wrap(err, "failed to read HEAD commit")
	}
	subject, _, _ := strings.Cut(c.Message, "\n")
	return &Commit{
		Hash:    c.Hash.String(),
		Subject: strings.TrimSpace(subject),
		Author:  c.Author.Name,
		When:    c.Author.When,
	}, nil
}

// RemoteURL returns the first URL configured for the remote.
func (g *Git) RemoteURL(_ context.Context) (string, error) {
	repo, err := g.open()
	if err != nil {
		return "", err
	}
	remote, err := repo.Remote(g.remote)
	if err != nil {
		return "", errors.Wrapf(err, "failed to look up remote %s", g.remote)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", errors.Errorf("remote %s has no URL", g.remote)
	}
	return urls[0], nil
}

// HasLocalBranch reports whether refs/heads/<name> exists.
func (g *Git) HasLocalBranch(name string) bool {
	repo, err := g.open()
	if err != nil {
		return false
	}
	_, err = repo.Reference(plumbing.NewBranchReferenceName(name), true)
	return err == nil
}

// Status returns the short status of the work tree.
func (g *Git) Status(ctx context.Context) (string, error) {
	out, err := g.git(ctx, "status", "--short", "--branch")
	return out, errors.Wrap(err, "git status failed")
}

// Diff returns the patch for revRange, e.g. "abc123..HEAD" or "HEAD" for the
// whole working tree. Excluded paths are left out.
func (g *Git) Diff(ctx context.Context, revRange string) (string, error) {
	return g.diff(ctx, revRange, "--patch")
}

// DiffStat returns the --stat summary for revRange.
func (g *Git) DiffStat(ctx context.Context, revRange string) (string, error) {
	return g.diff(ctx, revRange, "--stat")
}

func (g *Git) diff(ctx context.Context, revRange, format string) (string, error) {
	args := []string{"diff", format}
	if revRange != "" {
		args = append(args, revRange)
	}

	paths, err := g.filteredPaths(ctx, revRange)
	if err != nil {
		return "", err
	}
	if paths != nil {
		if len(paths) == 0 {
			return "", nil
		}
		args = append(args, "--")
		args = append(args, paths...)
	}

	out, err := g.git(ctx, args...)
	return out, errors.Wrapf(err, "git diff %s failed", revRange)
}

// filteredPaths returns nil when nothing is excluded, otherwise the changed
// paths that survive the exclude patterns.
func (g *Git) filteredPaths(ctx context.Context, revRange string) ([]string, error) {
	if len(g.exclude) == 0 {
		return nil, nil
	}
	args := []string{"diff", "--name-only"}
	if revRange != "" {
		args = append(args, revRange)
	}
	out, err := g.git(ctx, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list changed files")
	}
	return g.filter(ctx, splitLines(out)), nil
}

func (g *Git) filter(ctx context.Context, paths []string) []string {
	kept := []string{}
	for _, p := range paths {
		if g.excluded(p) {
			logger.G(ctx).WithField("path", p).Debug("excluding path from diff")
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

func (g *Git) excluded(path string) bool {
	for _, pattern := range g.exclude {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// Log returns one entry per commit in revRange: short hash, subject and body.
func (g *Git) Log(ctx context.Context, revRange string) (string, error) {
	out, err := g.git(ctx, "log", "--no-merges", "--format=%h %s%n%b", revRange)
	return strings.TrimSpace(out), errors.Wrapf(err, "git log %s failed", revRange)
}

// Show returns the message and patch of a single commit.
func (g *Git) Show(ctx context.Context, rev string) (string, error) {
	args := []string{"show", "--stat", "--patch", rev}
	if len(g.exclude) > 0 {
		out, err := g.git(ctx, "show", "--name-only", "--format=", rev)
		if err != nil {
			return "", errors.Wrapf(err, "git show %s failed", rev)
		}
		paths := g.filter(ctx, splitLines(out))
		if len(paths) == 0 {
			args = []string{"show", "--no-patch", rev}
		} else {
			args = append(append(args, "--"), paths...)
		}
	}
	out, err := g.git(ctx, args...)
	return out, errors.Wrapf(err, "git show %s failed", rev)
}

// UntrackedFiles lists files git does not track and does not ignore.
func (g *Git) UntrackedFiles(ctx context.Context) ([]string, error) {
	out, err := g.git(ctx, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list untracked files")
	}
	return g.filter(ctx, splitLines(out)), nil
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
