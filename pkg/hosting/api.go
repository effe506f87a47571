package hosting

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v58/github"
	"github.com/jingkaihe/prskill/pkg/logger"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// API talks to GitHub over the REST API. It needs the repository slug and,
// for ref-less calls, the current branch.
type API struct {
	client *github.Client
	repo   RepoSlug
	branch string
	policy RetryPolicy
}

// APIOption configures an API host.
type APIOption func(*API) error

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(raw string) APIOption {
	return func(a *API) error {
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return errors.Wrapf(err, "invalid base URL %q", raw)
		}
		a.client.BaseURL = u
		return nil
	}
}

// WithBranch sets the branch used to find the pull request when no ref is given.
func WithBranch(branch string) APIOption {
	return func(a *API) error {
		a.branch = branch
		return nil
	}
}

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(policy RetryPolicy) APIOption {
	return func(a *API) error {
		a.policy = policy
		return nil
	}
}

// NewAPI creates a REST host. Without a token requests are anonymous and
// heavily rate limited, and edits will fail.
func NewAPI(ctx context.Context, token string, repo RepoSlug, opts ...APIOption) (*API, error) {
	log := logger.G(ctx)

	var httpClient *http.Client
	if token == "" {
		log.Warn("No GitHub token provided - API rate limits will be restricted")
	} else {
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}

	a := &API{
		client: github.NewClient(httpClient),
		repo:   repo,
		policy: DefaultRetryPolicy,
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	log.WithField("repo", repo.String()).Debug("GitHub API host initialized")
	return a, nil
}

func (a *API) resolve(ctx context.Context, ref string) (int, error) {
	if ref != "" {
		return ParsePRNumber(ref)
	}
	if a.branch == "" {
		return 0, errors.New("no pull request reference and no current branch")
	}

	var prs []*github.PullRequest
	err := withRetry(ctx, a.policy, "list pull requests", func() error {
		var err error
		prs, _, err = a.client.PullRequests.List(ctx, a.repo.Owner, a.repo.Name, &github.PullRequestListOptions{
			Head:  a.repo.Owner + ":" + a.branch,
			State: "open",
		})
		return err
	}, apiRetryable)
	if err != nil {
		return 0, errors.Wrap(err, "failed to list pull requests")
	}
	if len(prs) == 0 {
		return 0, errors.Wrapf(ErrNoPR, "for branch %s", a.branch)
	}
	return prs[0].GetNumber(), nil
}

// ViewPR implements Host.
func (a *API) ViewPR(ctx context.Context, ref string) (*PullRequest, error) {
	number, err := a.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	var pr *github.PullRequest
	err = withRetry(ctx, a.policy, "get pull request", func() error {
		var resp *github.Response
		var err error
		pr, resp, err = a.client.PullRequests.Get(ctx, a.repo.Owner, a.repo.Name, number)
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return errors.Wrapf(ErrNoPR, "#%d", number)
		}
		return err
	}, apiRetryable)
	if err != nil {
		return nil, err
	}

	return &PullRequest{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		URL:     pr.GetHTMLURL(),
		BaseRef: pr.GetBase().GetRef(),
		HeadRef: pr.GetHead().GetRef(),
		State:   strings.ToUpper(pr.GetState()),
	}, nil
}

// EditPRBody implements Host.
func (a *API) EditPRBody(ctx context.Context, ref, body string) error {
	number, err := a.resolve(ctx, ref)
	if err != nil {
		return err
	}
	return withRetry(ctx, a.policy, "edit pull request", func() error {
		_, _, err := a.client.PullRequests.Edit(ctx, a.repo.Owner, a.repo.Name, number, &github.PullRequest{
			Body: github.String(body),
		})
		return err
	}, apiRetryable)
}

func apiRetryable(err error) bool {
	if errors.Is(err, ErrNoPR) {
		return false
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response.StatusCode >= http.StatusInternalServerError
	}
	return true
}
