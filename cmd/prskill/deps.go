package main

import (
	"context"

	"github.com/jingkaihe/prskill/pkg/config"
	"github.com/jingkaihe/prskill/pkg/hosting"
	"github.com/jingkaihe/prskill/pkg/logger"
	"github.com/jingkaihe/prskill/pkg/vcs"
)

func commandRunner() vcs.Runner {
	return vcs.ExecRunner{Timeout: cfg.CommandTimeout}
}

// openRepo opens the git work tree containing the current directory.
func openRepo(ctx context.Context) (*vcs.Git, error) {
	return vcs.Open(ctx, ".",
		vcs.WithRunner(commandRunner()),
		vcs.WithRemote(cfg.Remote),
		vcs.WithExclude(cfg.Diff.Exclude...),
		vcs.WithFetchPolicy(vcs.FetchPolicy{Attempts: cfg.Retry.Attempts, Delay: cfg.Retry.Delay}),
	)
}

// newHost builds the configured hosting backend for repo.
func newHost(ctx context.Context, repo *vcs.Git) (hosting.Host, error) {
	policy := hosting.RetryPolicy{Attempts: cfg.Retry.Attempts, Delay: cfg.Retry.Delay}

	switch cfg.Host {
	case config.HostAPI:
		remote, err := repo.RemoteURL(ctx)
		if err != nil {
			return nil, err
		}
		slug, err := hosting.ParseRemoteURL(remote)
		if err != nil {
			return nil, err
		}
		branch, err := repo.CurrentBranch(ctx)
		if err != nil {
			logger.G(ctx).WithError(err).Debug("no current branch, pull requests need an explicit reference")
		}
		api, err := hosting.NewAPI(ctx, cfg.GitHubToken, slug,
			hosting.WithBranch(branch),
			hosting.WithRetryPolicy(policy),
		)
		if err != nil {
			return nil, err
		}
		return api, nil
	default:
		gh := hosting.NewGHCLI(repo.Root(), commandRunner(), policy)
		if err := gh.Available(ctx); err != nil {
			return nil, err
		}
		logger.G(ctx).Debug("using gh for pull request access")
		return gh, nil
	}
}
