package workflow

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jingkaihe/prskill/pkg/report"
	"github.com/jingkaihe/prskill/pkg/vcs"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	shell := &fakeShell{results: map[string]shellResult{
		"go vet ./...": {stdout: "ok\n"},
		"go test ./...": {
			stdout: "--- FAIL: TestMergeBase\n",
			err:    &vcs.CommandError{Command: "sh -c go test ./...", Stderr: "FAIL\tgithub.com/jingkaihe/prskill/pkg/vcs", Err: errors.New("exit status 1")},
		},
		"make lint": {},
	}}

	results := Verify(context.Background(), shell, "/repo", []string{"go vet ./...", " ", "go test ./...", "make lint"})

	assert.Equal(t, []string{"sh go vet ./...", "sh go test ./...", "sh make lint"}, shell.ran)
	require.Len(t, results, 3)
	assert.Equal(t, report.VerificationResult{Command: "go vet ./...", Passed: true}, results[0])
	assert.False(t, results[1].Passed)
	assert.Equal(t, "--- FAIL: TestMergeBase\nFAIL\tgithub.com/jingkaihe/prskill/pkg/vcs\nexit status 1", results[1].Output)
	assert.True(t, results[2].Passed)

	r := &report.Review{Verification: results}
	assert.True(t, r.VerificationFailed())
}

func TestVerifyWithExecRunner(t *testing.T) {
	results := Verify(context.Background(), vcs.ExecRunner{}, t.TempDir(), []string{"echo fine", "echo broken >&2; exit 3"})
	require.Len(t, results, 2)
	assert.True(t, results[0].Passed)
	assert.False(t, results[1].Passed)
	assert.Contains(t, results[1].Output, "broken")
	assert.Contains(t, results[1].Output, "exit status 3")
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", tail("short", 10))

	long := strings.Repeat("a", 8) + "\n" + strings.Repeat("b", 8)
	assert.Equal(t, "...\n"+strings.Repeat("b", 8), tail(long, 12))

	t.Run("multibyte without newline", func(t *testing.T) {
		out := tail(strings.Repeat("é", 10), 5)
		assert.True(t, utf8.ValidString(out))
		assert.Equal(t, "...\néé", out)
	})
}
