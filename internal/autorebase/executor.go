package autorebase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cooltabs/autorebase/internal/logfields"
)

// ErrRebaseFailed is returned when rebasing a pull request failed.
// A comment with instructions to rebase it manually was posted to the pull
// request.
var ErrRebaseFailed = errors.New("rebase failed")

// Executor performs rebase and merge operations on pull requests.
type Executor struct {
	clt     GithubClient
	rebaser Rebaser
	// lock is nil when no automation label is configured.
	lock   Mutex
	logger *zap.Logger
}

func NewExecutor(clt GithubClient, rebaser Rebaser, lock Mutex) *Executor {
	return &Executor{
		clt:     clt,
		rebaser: rebaser,
		lock:    lock,
		logger:  zap.L().Named(loggerName).Named("executor"),
	}
}

// Merge merges the pull request with a merge commit and deletes its branch.
func (e *Executor) Merge(ctx context.Context, repo Repository, pullRequestNumber int, headBranch string) (Action, error) {
	logger := e.logger.With(repo.LogFields()...).With(
		logfields.PullRequest(pullRequestNumber),
		logfields.Branch(headBranch),
	)

	logger.Debug("merging pull request", logfields.Event("merging"))

	if err := e.clt.MergePullRequest(ctx, repo.Owner, repo.RepositoryName, pullRequestNumber); err != nil {
		return nil, fmt.Errorf("merging pull request #%d failed: %w", pullRequestNumber, err)
	}

	logger.Info("pull request merged", logfields.Event("merged"))

	if err := e.clt.DeleteBranch(ctx, repo.Owner, repo.RepositoryName, headBranch); err != nil {
		return nil, fmt.Errorf("deleting branch %q of merged pull request #%d failed: %w", headBranch, pullRequestNumber, err)
	}

	logger.Debug("branch deleted", logfields.Event("branch_deleted"))

	return Merge{PullRequestNumber: pullRequestNumber}, nil
}

// Rebase rebases the pull request onto its base branch.
// When a lock is configured, the rebase is done while holding it. If the
// lock is held by another process, Abort is returned.
// When rebasing fails, a comment describing how to rebase the pull request
// manually is created and an error wrapping ErrRebaseFailed is returned. The
// lock is not released in this case.
func (e *Executor) Rebase(ctx context.Context, repo Repository, pullRequestNumber int) (Action, error) {
	logger := e.logger.With(repo.LogFields()...).With(logfields.PullRequest(pullRequestNumber))

	logger.Debug("rebasing pull request", logfields.Event("rebasing"))

	doRebase := func(ctx context.Context) error {
		return e.rebaser.Rebase(ctx, repo.Owner, repo.RepositoryName, pullRequestNumber)
	}

	var err error
	if e.lock == nil {
		err = doRebase(ctx)
	} else {
		var acquired bool
		acquired, err = WithLock(ctx, e.lock, repo, pullRequestNumber, doRebase)
		if !acquired {
			logger.Info(
				"other process is already rebasing the pull request, aborting",
				logfields.Event("rebase_aborted"),
			)

			return Abort{PullRequestNumber: pullRequestNumber}, nil
		}
	}

	if err != nil {
		logger.Warn("rebasing pull request failed", logfields.Event("rebase_failed"), zap.Error(err))
		return nil, e.reportRebaseFailure(ctx, repo, pullRequestNumber, err)
	}

	logger.Info("pull request rebased", logfields.Event("rebased"))

	return Rebase{PullRequestNumber: pullRequestNumber}, nil
}

func (e *Executor) reportRebaseFailure(ctx context.Context, repo Repository, pullRequestNumber int, rebaseErr error) error {
	pr, err := e.clt.GetPullRequest(ctx, repo.Owner, repo.RepositoryName, pullRequestNumber)
	if err != nil {
		return fmt.Errorf("%w: %w, retrieving pull request for failure comment failed: %w", ErrRebaseFailed, rebaseErr, err)
	}

	comment := RebaseFailedComment(rebaseErr, pr.GetBase().GetRef(), pr.GetHead().GetRef())

	err = e.clt.CreateIssueComment(ctx, repo.Owner, repo.RepositoryName, pullRequestNumber, comment)
	if err != nil {
		return fmt.Errorf("%w: %w, creating failure comment failed: %w", ErrRebaseFailed, rebaseErr, err)
	}

	return fmt.Errorf("%w: %w", ErrRebaseFailed, rebaseErr)
}

// RebaseFailedComment returns the text of the comment that is created when
// rebasing a pull request failed.
func RebaseFailedComment(rebaseErr error, baseRef, headRef string) string {
	return strings.Join([]string{
		"The rebase failed:",
		"",
		"```",
		rebaseErr.Error(),
		"```",
		"To rebase manually, run these commands in your terminal:",
		"```bash",
		"# Fetch latest updates from GitHub.",
		"git fetch",
		"# Create new working tree.",
		"git worktree add .worktrees/rebase " + headRef,
		"# Navigate to the new directory.",
		"cd .worktrees/rebase",
		"# Rebase and resolve the likely conflicts.",
		"git rebase --interactive --autosquash " + baseRef,
		"# Push the new branch state to GitHub.",
		"git push --force",
		"# Go back to the original working tree.",
		"cd ../..",
		"# Delete the working tree.",
		"git worktree remove .worktrees/rebase",
		"```",
	}, "\n")
}
