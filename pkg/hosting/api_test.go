package hosting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/go-github/v58/github"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T, handler http.Handler, opts ...APIOption) *API {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]APIOption{WithBaseURL(server.URL), WithRetryPolicy(instant)}, opts...)
	a, err := NewAPI(context.Background(), "test-token", RepoSlug{Owner: "octo", Name: "prskill"}, opts...)
	require.NoError(t, err)
	return a
}

func TestAPIViewPRForBranch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/prskill/pulls", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "octo:feature/review", r.URL.Query().Get("head"))
		assert.Equal(t, "open", r.URL.Query().Get("state"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"number": 9}]`))
	})
	mux.HandleFunc("/repos/octo/prskill/pulls/9", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"number": 9,
			"title": "Review skill",
			"body": "draft",
			"html_url": "https://github.com/octo/prskill/pull/9",
			"state": "open",
			"base": {"ref": "main"},
			"head": {"ref": "feature/review"}
		}`))
	})

	a := newTestAPI(t, mux, WithBranch("feature/review"))
	pr, err := a.ViewPR(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, &PullRequest{
		Number:  9,
		Title:   "Review skill",
		Body:    "draft",
		URL:     "https://github.com/octo/prskill/pull/9",
		BaseRef: "main",
		HeadRef: "feature/review",
		State:   "OPEN",
	}, pr)
}

func TestAPIViewPRNotFound(t *testing.T) {
	var hits int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Not Found"}`))
	})

	a := newTestAPI(t, handler)
	_, err := a.ViewPR(context.Background(), "https://github.com/octo/prskill/pull/404")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoPR)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestAPINoOpenPRForBranch(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	a := newTestAPI(t, handler, WithBranch("lonely"))
	_, err := a.ViewPR(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoPR)
	assert.Contains(t, err.Error(), "lonely")
}

func TestAPIRequiresRefOrBranch(t *testing.T) {
	a := newTestAPI(t, http.NotFoundHandler())
	_, err := a.ViewPR(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no current branch")
}

func TestAPIEditPRBodyRetriesServerErrors(t *testing.T) {
	var hits int32
	var got map[string]any
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/repos/octo/prskill/pulls/12", r.URL.Path)
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"number": 12}`))
	})

	a := newTestAPI(t, handler)
	require.NoError(t, a.EditPRBody(context.Background(), "#12", "## Context\n\nnew\n"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, "## Context\n\nnew\n", got["body"])
}

func TestAPIRetryable(t *testing.T) {
	response := func(code int) *http.Response {
		return &http.Response{StatusCode: code, Request: &http.Request{Method: http.MethodGet}}
	}

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "rate limit", err: &github.RateLimitError{Response: response(http.StatusForbidden), Message: "API rate limit exceeded"}, expected: true},
		{name: "secondary rate limit", err: &github.AbuseRateLimitError{Response: response(http.StatusForbidden), Message: "secondary rate limit"}, expected: true},
		{name: "wrapped rate limit", err: errors.Wrap(&github.RateLimitError{Response: response(http.StatusForbidden)}, "failed to list pull requests"), expected: true},
		{name: "server error", err: &github.ErrorResponse{Response: response(http.StatusBadGateway)}, expected: true},
		{name: "not found", err: &github.ErrorResponse{Response: response(http.StatusNotFound)}, expected: false},
		{name: "no pull request", err: errors.Wrap(ErrNoPR, "#12"), expected: false},
		{name: "transport error", err: errors.New("connection reset by peer"), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, apiRetryable(tt.err))
		})
	}
}

func TestParseRemoteURL(t *testing.T) {
	tests := []struct {
		remote  string
		want    RepoSlug
		wantErr bool
	}{
		{remote: "git@github.com:octo/prskill.git", want: RepoSlug{Owner: "octo", Name: "prskill"}},
		{remote: "https://github.com/octo/prskill.git", want: RepoSlug{Owner: "octo", Name: "prskill"}},
		{remote: "https://github.com/octo/prskill", want: RepoSlug{Owner: "octo", Name: "prskill"}},
		{remote: "ssh://git@github.com/octo/prskill.git\n", want: RepoSlug{Owner: "octo", Name: "prskill"}},
		{remote: "/srv/git/prskill.git", wantErr: true},
		{remote: "https://github.com/octo", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			got, err := ParseRemoteURL(tt.remote)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "octo/prskill", got.String())
		})
	}
}

func TestParsePRNumber(t *testing.T) {
	valid := []struct {
		ref  string
		want int
	}{
		{ref: "12", want: 12},
		{ref: "#12", want: 12},
		{ref: "https://github.com/octo/r/pull/12", want: 12},
		{ref: "https://github.com/octo/r/pull/12/", want: 12},
		{ref: " 7 ", want: 7},
	}
	for _, tt := range valid {
		got, err := ParsePRNumber(tt.ref)
		require.NoError(t, err, tt.ref)
		assert.Equal(t, tt.want, got)
	}

	for _, ref := range []string{"", "abc", "0", "-3", "https://github.com/octo/r/issues/12"} {
		_, err := ParsePRNumber(ref)
		assert.Error(t, err, ref)
	}
}
