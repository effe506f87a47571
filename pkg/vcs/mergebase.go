package vcs

import (
	"context"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jingkaihe/prskill/pkg/logger"
	"github.com/pkg/errors"
)

// ErrNoMergeBase is returned when no common ancestor could be found, even
// after refreshing remote references.
var ErrNoMergeBase = errors.New("no merge base found")

// MergeBase is the resolved common ancestor and the ref it was computed
// against, which is either the base branch or its remote-tracking branch.
type MergeBase struct {
	Hash    string
	BaseRef string
	Fetched bool
}

// FetchPolicy controls how remote references are refreshed.
type FetchPolicy struct {
	Attempts uint
	Delay    time.Duration
}

// DefaultFetchPolicy retries a failed fetch twice.
var DefaultFetchPolicy = FetchPolicy{Attempts: 3, Delay: time.Second}

// MergeBase finds the common ancestor of base and head.
//
// If the lookup fails the remote is fetched and the lookup retried; if that
// still fails the remote-tracking branch <remote>/<base> is tried.
func (g *Git) MergeBase(ctx context.Context, base, head string) (*MergeBase, error) {
	return g.MergeBaseWithPolicy(ctx, base, head, g.fetch)
}

// MergeBaseWithPolicy is MergeBase with an explicit fetch policy.
func (g *Git) MergeBaseWithPolicy(ctx context.Context, base, head string, policy FetchPolicy) (*MergeBase, error) {
	if head == "" {
		head = "HEAD"
	}
	log := logger.G(ctx).WithField("base", base).WithField("head", head)

	if !g.HasLocalBranch(base) {
		log.Debug("base branch is not local")
	}

	hash, err := g.mergeBase(ctx, base, head)
	if err == nil {
		return &MergeBase{Hash: hash, BaseRef: base}, nil
	}
	log.WithError(err).Debug("merge-base lookup failed, refreshing remote references")

	fetched := true
	if err := g.Fetch(ctx, policy); err != nil {
		fetched = false
		log.WithError(err).Warn("failed to fetch remote references")
	}

	if fetched {
		if hash, err := g.mergeBase(ctx, base, head); err == nil {
			return &MergeBase{Hash: hash, BaseRef: base, Fetched: true}, nil
		}
	}

	upstream := g.remote + "/" + base
	if hash, err := g.mergeBase(ctx, upstream, head); err == nil {
		log.WithField("upstream", upstream).Debug("resolved merge base against remote-tracking branch")
		return &MergeBase{Hash: hash, BaseRef: upstream, Fetched: fetched}, nil
	}

	return nil, errors.Wrapf(ErrNoMergeBase, "between %s (or %s) and %s", base, upstream, head)
}

func (g *Git) mergeBase(ctx context.Context, base, head string) (string, error) {
	out, err := g.git(ctx, "merge-base", base, head)
	if err != nil {
		return "", err
	}
	hash := strings.TrimSpace(out)
	if hash == "" {
		return "", errors.Errorf("git merge-base %s %s returned nothing", base, head)
	}
	return hash, nil
}

// Fetch refreshes references from the configured remote.
func (g *Git) Fetch(ctx context.Context, policy FetchPolicy) error {
	attempts := policy.Attempts
	if attempts == 0 {
		attempts = 1
	}
	return retry.Do(
		func() error {
			_, err := g.git(ctx, "fetch", "--quiet", g.remote)
			return err
		},
		retry.Attempts(attempts),
		retry.Delay(policy.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).WithField("remote", g.remote).Warn("retrying git fetch")
		}),
	)
}
