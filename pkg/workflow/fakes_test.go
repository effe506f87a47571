package workflow

import (
	"context"
	"strings"

	"github.com/jingkaihe/prskill/pkg/hosting"
	"github.com/jingkaihe/prskill/pkg/vcs"
	"github.com/pkg/errors"
)

type fakeRepo struct {
	branch    string
	status    string
	mergeBase *vcs.MergeBase
	mbErr     error
	diffs     map[string]string
	stats     map[string]string
	logs      map[string]string
	shows     map[string]string
	untracked []string
	calls     []string
}

func (f *fakeRepo) record(call string) { f.calls = append(f.calls, call) }

func (f *fakeRepo) Root() string { return "/repo" }

func (f *fakeRepo) CurrentBranch(context.Context) (string, error) {
	if f.branch == "" {
		return "", errors.New("HEAD is detached")
	}
	return f.branch, nil
}

func (f *fakeRepo) HeadCommit(context.Context) (*vcs.Commit, error) {
	return &vcs.Commit{Hash: "head"}, nil
}

func (f *fakeRepo) Status(context.Context) (string, error) {
	f.record("status")
	return f.status, nil
}

func (f *fakeRepo) Diff(_ context.Context, revRange string) (string, error) {
	f.record("diff " + revRange)
	return f.diffs[revRange], nil
}

func (f *fakeRepo) DiffStat(_ context.Context, revRange string) (string, error) {
	f.record("diffstat " + revRange)
	return f.stats[revRange], nil
}

func (f *fakeRepo) Log(_ context.Context, revRange string) (string, error) {
	f.record("log " + revRange)
	return f.logs[revRange], nil
}

func (f *fakeRepo) Show(_ context.Context, rev string) (string, error) {
	f.record("show " + rev)
	out, ok := f.shows[rev]
	if !ok {
		return "", errors.Errorf("git show %s failed", rev)
	}
	return out, nil
}

func (f *fakeRepo) MergeBase(_ context.Context, base, head string) (*vcs.MergeBase, error) {
	f.record("merge-base " + base + " " + head)
	if f.mbErr != nil {
		return nil, f.mbErr
	}
	return f.mergeBase, nil
}

func (f *fakeRepo) UntrackedFiles(context.Context) ([]string, error) {
	f.record("untracked")
	return f.untracked, nil
}

type fakeHost struct {
	pr      *hosting.PullRequest
	viewErr error
	editErr error
	edits   []string
	refs    []string
}

func (f *fakeHost) ViewPR(_ context.Context, ref string) (*hosting.PullRequest, error) {
	f.refs = append(f.refs, ref)
	if f.viewErr != nil {
		return nil, f.viewErr
	}
	return f.pr, nil
}

func (f *fakeHost) EditPRBody(_ context.Context, ref, body string) error {
	f.refs = append(f.refs, ref)
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, body)
	return nil
}

type fakeUI struct {
	answers   []string
	confirm   bool
	questions []string
	options   [][]string
	diffs     int
	infos     []string
}

func (f *fakeUI) Prompt(question string, options ...string) string {
	f.questions = append(f.questions, question)
	f.options = append(f.options, options)
	if len(f.answers) == 0 {
		return ""
	}
	answer := f.answers[0]
	f.answers = f.answers[1:]
	return answer
}

func (f *fakeUI) Confirm(question string) bool {
	f.questions = append(f.questions, question)
	return f.confirm
}

func (f *fakeUI) Diff(_, _, oldText, newText string) bool {
	f.diffs++
	return oldText != newText
}

func (f *fakeUI) Info(message string) {
	f.infos = append(f.infos, message)
}

type shellResult struct {
	stdout string
	err    error
}

type fakeShell struct {
	results map[string]shellResult
	ran     []string
}

func (f *fakeShell) Run(_ context.Context, _ string, name string, args ...string) ([]byte, error) {
	command := strings.Join(args[1:], " ")
	f.ran = append(f.ran, name+" "+command)
	r := f.results[command]
	return []byte(r.stdout), r.err
}
