package autorebase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/go-github/v43/github"
	"go.uber.org/zap"

	"github.com/cooltabs/autorebase/internal/logfields"
)

// ErrStateUnresolved is returned when GitHub did not finish computing the
// mergeable state of a pull request before the retry budget was exhausted.
var ErrStateUnresolved = errors.New("mergeable state unresolved")

// PullRequestGetter retrieves pull requests from GitHub.
type PullRequestGetter interface {
	GetPullRequest(ctx context.Context, owner, repo string, pullRequestNumber int) (*github.PullRequest, error)
}

// Resolver retrieves the state of pull requests and ensures that their
// mergeable state is known.
type Resolver struct {
	clt    PullRequestGetter
	label  string
	policy BackoffPolicy
	logger *zap.Logger
}

func NewResolver(clt PullRequestGetter, label string, policy BackoffPolicy) *Resolver {
	return &Resolver{
		clt:    clt,
		label:  label,
		policy: policy,
		logger: zap.L().Named(loggerName).Named("resolver"),
	}
}

// WaitForKnownMergeableState fetches the pull request until its mergeable
// state is not unknown anymore or it is closed.
// GitHub computes the mergeable state asynchronously after most changes, the
// state sent with webhook events can be outdated. Therefore the pull request
// is always fetched, also if a settled state is known from an event.
// When the state does not settle in time, an error wrapping
// ErrStateUnresolved is returned.
func (r *Resolver) WaitForKnownMergeableState(ctx context.Context, repo Repository, pullRequestNumber int) (*github.PullRequest, error) {
	logger := r.logger.With(repo.LogFields()...).With(logfields.PullRequest(pullRequestNumber))

	fetch := func(ctx context.Context) (*github.PullRequest, error) {
		pr, err := r.clt.GetPullRequest(ctx, repo.Owner, repo.RepositoryName, pullRequestNumber)
		if err != nil {
			return nil, err
		}

		logger.Debug(
			"fetched mergeable state",
			logfields.Event("mergeable_state_fetched"),
			logfields.MergeableState(pr.GetMergeableState()),
			zap.Bool("github.closed", isClosed(pr)),
		)

		return pr, nil
	}

	onRetry := func(retry int, delay time.Duration, lastErr error) {
		metrics.MergeableStatePollsInc()

		logger.Debug(
			"retrying to retrieve known mergeable state",
			logfields.Event("mergeable_state_retry_scheduled"),
			zap.Int("retry", retry),
			zap.Duration("retry_in", delay),
			zap.NamedError("last_error", lastErr),
		)
	}

	pr, err := AwaitSettled(ctx, fetch, isMergeableStateKnown, r.policy, onRetry)
	if err != nil {
		if errors.Is(err, ErrNotSettled) {
			return nil, fmt.Errorf("%w: pull request #%d: %w", ErrStateUnresolved, pullRequestNumber, err)
		}

		return nil, fmt.Errorf("fetching pull request #%d failed: %w", pullRequestNumber, err)
	}

	return pr, nil
}

// Resolve returns the state of a pull request with a known mergeable state.
func (r *Resolver) Resolve(ctx context.Context, repo Repository, pullRequestNumber int) (*PullRequestInfo, error) {
	pr, err := r.WaitForKnownMergeableState(ctx, repo, pullRequestNumber)
	if err != nil {
		return nil, err
	}

	info := NewPullRequestInfo(pr, r.label)

	r.logger.Debug(
		"pull request state resolved",
		append(repo.LogFields(), append(info.LogFields(), logfields.Event("pull_request_state_resolved"))...)...,
	)

	return info, nil
}
