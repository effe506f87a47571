package vcs

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noDelay = FetchPolicy{Attempts: 2}

func TestMergeBase(t *testing.T) {
	ctx := context.Background()
	failure := errors.New("exit status 1")

	tests := []struct {
		name      string
		runner    *fakeRunner
		wantHash  string
		wantRef   string
		wantFetch bool
		wantErr   error
		wantCalls []string
	}{
		{
			name:      "local base",
			runner:    newFakeRunner("/r").on("merge-base main HEAD", "abc123\n", nil),
			wantHash:  "abc123",
			wantRef:   "main",
			wantCalls: []string{"rev-parse --show-toplevel", "merge-base main HEAD"},
		},
		{
			name: "succeeds after fetch",
			runner: newFakeRunner("/r").
				on("merge-base main HEAD", "", failure).
				on("merge-base main HEAD", "def456\n", nil).
				on("fetch --quiet origin", "", nil),
			wantHash:  "def456",
			wantRef:   "main",
			wantFetch: true,
			wantCalls: []string{"rev-parse --show-toplevel", "merge-base main HEAD", "fetch --quiet origin", "merge-base main HEAD"},
		},
		{
			name: "falls back to remote-tracking branch",
			runner: newFakeRunner("/r").
				on("merge-base main HEAD", "", failure).
				on("fetch --quiet origin", "", nil).
				on("merge-base origin/main HEAD", "0ff1ce\n", nil),
			wantHash:  "0ff1ce",
			wantRef:   "origin/main",
			wantFetch: true,
		},
		{
			name: "fetch fails but upstream resolves",
			runner: newFakeRunner("/r").
				on("merge-base main HEAD", "", failure).
				on("fetch --quiet origin", "", errors.New("could not resolve host")).
				on("merge-base origin/main HEAD", "0ff1ce\n", nil),
			wantHash: "0ff1ce",
			wantRef:  "origin/main",
			wantCalls: []string{
				"rev-parse --show-toplevel",
				"merge-base main HEAD",
				"fetch --quiet origin",
				"fetch --quiet origin",
				"merge-base origin/main HEAD",
			},
		},
		{
			name: "nothing resolves",
			runner: newFakeRunner("/r").
				on("merge-base main HEAD", "", failure).
				on("fetch --quiet origin", "", nil).
				on("merge-base origin/main HEAD", "", failure),
			wantErr: ErrNoMergeBase,
		},
		{
			name: "empty output is a failure",
			runner: newFakeRunner("/r").
				on("merge-base main HEAD", "\n", nil).
				on("fetch --quiet origin", "", nil).
				on("merge-base origin/main HEAD", "", failure),
			wantErr: ErrNoMergeBase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Open(ctx, ".", WithRunner(tt.runner))
			require.NoError(t, err)

			mb, err := g.MergeBaseWithPolicy(ctx, "main", "", noDelay)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), "origin/main")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHash, mb.Hash)
			assert.Equal(t, tt.wantRef, mb.BaseRef)
			assert.Equal(t, tt.wantFetch, mb.Fetched)
			if tt.wantCalls != nil {
				assert.Equal(t, tt.wantCalls, tt.runner.calls)
			}
		})
	}
}

func TestMergeBaseCustomRemote(t *testing.T) {
	ctx := context.Background()
	runner := newFakeRunner("/r").
		on("merge-base develop HEAD", "", errors.New("exit status 1")).
		on("fetch --quiet upstream", "", nil).
		on("merge-base upstream/develop HEAD", "cafe01\n", nil)

	g, err := Open(ctx, ".", WithRunner(runner), WithRemote("upstream"))
	require.NoError(t, err)

	mb, err := g.MergeBaseWithPolicy(ctx, "develop", "HEAD", noDelay)
	require.NoError(t, err)
	assert.Equal(t, "upstream/develop", mb.BaseRef)
	assert.Equal(t, "cafe01", mb.Hash)
}

func TestMergeBaseUsesConfiguredFetchPolicy(t *testing.T) {
	ctx := context.Background()
	failure := errors.New("exit status 1")
	runner := newFakeRunner("/r").
		on("merge-base main HEAD", "", failure).
		on("fetch --quiet origin", "", failure).
		on("merge-base origin/main HEAD", "", failure)

	g, err := Open(ctx, ".", WithRunner(runner), WithFetchPolicy(FetchPolicy{Attempts: 4}))
	require.NoError(t, err)

	_, err = g.MergeBase(ctx, "main", "HEAD")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMergeBase)

	fetches := 0
	for _, call := range runner.calls {
		if call == "fetch --quiet origin" {
			fetches++
		}
	}
	assert.Equal(t, 4, fetches)
}
