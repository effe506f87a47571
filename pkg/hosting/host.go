// Package hosting is the optional adapter over the code-hosting service. It
// can read a pull request's metadata and replace its body, either through
// the gh CLI or the GitHub REST API.
package hosting

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jingkaihe/prskill/pkg/logger"
	"github.com/pkg/errors"
)

// ErrNoPR is returned when no pull request matches the reference.
var ErrNoPR = errors.New("no pull request found")

// PullRequest is the metadata the pr-description skill reads.
type PullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	URL     string `json:"url"`
	BaseRef string `json:"baseRefName"`
	HeadRef string `json:"headRefName"`
	State   string `json:"state"`
}

// Host reads and edits pull requests. An empty ref means the pull request
// of the current branch.
type Host interface {
	ViewPR(ctx context.Context, ref string) (*PullRequest, error)
	EditPRBody(ctx context.Context, ref, body string) error
}

// RetryPolicy controls retries of transient hosting failures.
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
}

// DefaultRetryPolicy retries twice with a one second initial backoff.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Delay: time.Second}

func withRetry(ctx context.Context, policy RetryPolicy, op string, fn func() error, retryable func(error) bool) error {
	attempts := policy.Attempts
	if attempts == 0 {
		attempts = 1
	}
	return retry.Do(
		fn,
		retry.Attempts(attempts),
		retry.Delay(policy.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).WithField("operation", op).Warn("retrying hosting call")
		}),
	)
}

// RepoSlug identifies a repository on the hosting service.
type RepoSlug struct {
	Owner string
	Name  string
}

func (s RepoSlug) String() string {
	return s.Owner + "/" + s.Name
}

var scpLikeRemote = regexp.MustCompile(`^[\w.-]+@[\w.-]+:([^/]+)/(.+?)(\.git)?/?$`)

// ParseRemoteURL extracts owner and repository from a remote URL in
// https, ssh:// or scp-like form.
func ParseRemoteURL(remote string) (RepoSlug, error) {
	remote = strings.TrimSpace(remote)
	if m := scpLikeRemote.FindStringSubmatch(remote); m != nil {
		return RepoSlug{Owner: m[1], Name: m[2]}, nil
	}

	u, err := url.Parse(remote)
	if err != nil || u.Host == "" {
		return RepoSlug{}, errors.Errorf("unrecognised remote URL %q", remote)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RepoSlug{}, errors.Errorf("remote URL %q does not name owner/repo", remote)
	}
	return RepoSlug{Owner: parts[0], Name: strings.TrimSuffix(parts[1], ".git")}, nil
}

var pullURL = regexp.MustCompile(`/pull/(\d+)/?$`)

// ParsePRNumber accepts "123", "#123" or a pull request URL.
func ParsePRNumber(ref string) (int, error) {
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "#")
	if m := pullURL.FindStringSubmatch(ref); m != nil {
		ref = m[1]
	}
	n, err := strconv.Atoi(ref)
	if err != nil || n <= 0 {
		return 0, errors.Errorf("invalid pull request reference %q", ref)
	}
	return n, nil
}
