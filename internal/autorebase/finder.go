package autorebase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cooltabs/autorebase/internal/logfields"
)

// DefaultSearchSettleDelay is the default time the Finder waits before it
// searches for pull requests.
const DefaultSearchSettleDelay = time.Second

// Finder searches for the oldest open pull request with the automation label
// that matches a predicate.
type Finder struct {
	clt         GithubClient
	resolver    *Resolver
	label       string
	settleDelay time.Duration
	logger      *zap.Logger
}

func NewFinder(clt GithubClient, resolver *Resolver, label string, settleDelay time.Duration) *Finder {
	return &Finder{
		clt:         clt,
		resolver:    resolver,
		label:       label,
		settleDelay: settleDelay,
		logger:      zap.L().Named(loggerName).Named("finder"),
	}
}

func (f *Finder) searchQuery(repo Repository, qualifiers string) string {
	q := fmt.Sprintf("is:pr is:open label:%q repo:%s", f.label, repo.String())
	if qualifiers = strings.TrimSpace(qualifiers); qualifiers != "" {
		q += " " + qualifiers
	}

	return q
}

// FindOldest returns the oldest open pull request that has the automation
// label, matches the search qualifiers and for that predicate returns true.
// Candidates are evaluated one after the other in ascending creation order,
// evaluation stops at the first match.
// If no pull request matches, nil is returned.
// If no automation label is configured, nil is returned without searching.
func (f *Finder) FindOldest(
	ctx context.Context,
	repo Repository,
	qualifiers string,
	predicate func(*PullRequestInfo) bool,
) (*PullRequestInfo, error) {
	if f.label == "" {
		return nil, nil
	}

	query := f.searchQuery(repo, qualifiers)
	logger := f.logger.With(repo.LogFields()...).With(zap.String("github.search_query", query))

	// the search index is updated asynchronously, label changes from
	// the last moments might not be reflected yet
	if f.settleDelay > 0 {
		timer := time.NewTimer(f.settleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	it := f.clt.SearchIssues(ctx, query, "created", "asc")
	for {
		issue, err := it.Next()
		if err != nil {
			return nil, fmt.Errorf("searching pull requests failed: %w", err)
		}

		if issue == nil {
			logger.Debug("no matching pull request found", logfields.Event("oldest_match_not_found"))
			return nil, nil
		}

		info, err := f.resolver.Resolve(ctx, repo, issue.GetNumber())
		if err != nil {
			return nil, err
		}

		if predicate(info) {
			logger.Debug(
				"found oldest matching pull request",
				append(info.LogFields(), logfields.Event("oldest_match_found"))...,
			)

			return info, nil
		}
	}
}

// FindBySHA returns the oldest rebaseable pull request whose head commit is
// sha.
func (f *Finder) FindBySHA(ctx context.Context, repo Repository, sha string) (*PullRequestInfo, error) {
	return f.FindOldest(ctx, repo, sha, func(pr *PullRequestInfo) bool {
		return pr.LabeledAndOpenedAndRebaseable && pr.SHA == sha
	})
}

// FindBehindOnBase returns the oldest labeled open pull request with base
// branch baseBranch that is behind it.
func (f *Finder) FindBehindOnBase(ctx context.Context, repo Repository, baseBranch string) (*PullRequestInfo, error) {
	return f.FindOldest(ctx, repo, "base:"+baseBranch, func(pr *PullRequestInfo) bool {
		return pr.MergeableState == MergeableStateBehind
	})
}
