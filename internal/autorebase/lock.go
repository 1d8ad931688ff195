package autorebase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cooltabs/autorebase/internal/githubclt"
	"github.com/cooltabs/autorebase/internal/logfields"
)

// Mutex is a mutual exclusion lock for a pull request that is shared between
// all processes acting on it.
type Mutex interface {
	// TryAcquire acquires the lock without blocking. It returns false
	// when the lock is held by another process or could not be acquired
	// because of an error.
	TryAcquire(ctx context.Context, repo Repository, pullRequestNumber int) bool
	// Release releases an acquired lock.
	Release(ctx context.Context, repo Repository, pullRequestNumber int) error
}

// LabelLock is a Mutex that uses the presence of a label on a pull request
// as lock state. A pull request that has the label is unlocked, the lock is
// acquired by removing the label and released by adding it again.
//
// GitHub only accepts one of multiple concurrent removals of the same label,
// the others fail with a not found error. This does not hold when the
// removals are done within ~10ms of each other, then GitHub can accept all of
// them and multiple processes acquire the lock. This is a known limitation.
type LabelLock struct {
	clt    GithubClient
	label  string
	logger *zap.Logger
}

func NewLabelLock(clt GithubClient, label string) *LabelLock {
	return &LabelLock{
		clt:    clt,
		label:  label,
		logger: zap.L().Named(loggerName).Named("label_lock"),
	}
}

func (l *LabelLock) TryAcquire(ctx context.Context, repo Repository, pullRequestNumber int) bool {
	logger := l.logger.With(repo.LogFields()...).With(
		logfields.PullRequest(pullRequestNumber),
		logfields.Label(l.label),
	)

	err := l.clt.RemoveLabel(ctx, repo.Owner, repo.RepositoryName, pullRequestNumber, l.label)
	if err == nil {
		logger.Debug("lock acquired", logfields.Event("lock_acquired"))
		return true
	}

	metrics.LockContentionsInc()

	if errors.Is(err, githubclt.ErrLabelNotFound) {
		logger.Debug(
			"lock is held by another process, label is not set",
			logfields.Event("lock_contention"),
			zap.Error(err),
		)

		return false
	}

	logger.Warn(
		"acquiring lock failed, removing label returned an error",
		logfields.Event("lock_acquire_failed"),
		zap.Error(err),
	)

	return false
}

func (l *LabelLock) Release(ctx context.Context, repo Repository, pullRequestNumber int) error {
	err := l.clt.AddLabel(ctx, repo.Owner, repo.RepositoryName, pullRequestNumber, l.label)
	if err != nil {
		return fmt.Errorf("adding label %q failed: %w", l.label, err)
	}

	l.logger.Debug(
		"lock released",
		append(repo.LogFields(),
			logfields.PullRequest(pullRequestNumber),
			logfields.Label(l.label),
			logfields.Event("lock_released"),
		)...,
	)

	return nil
}

// WithLock acquires mu and runs fn.
// If the lock could not be acquired, fn is not run and false is returned.
// When fn fails the lock stays acquired and the error is returned. The
// lock must then be released manually, e.g. by a user adding the label
// again, before the pull request is processed again.
func WithLock(ctx context.Context, mu Mutex, repo Repository, pullRequestNumber int, fn func(context.Context) error) (bool, error) {
	if !mu.TryAcquire(ctx, repo, pullRequestNumber) {
		return false, nil
	}

	if err := fn(ctx); err != nil {
		return true, err
	}

	if err := mu.Release(ctx, repo, pullRequestNumber); err != nil {
		return true, fmt.Errorf("releasing lock failed: %w", err)
	}

	return true, nil
}
