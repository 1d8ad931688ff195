package autorebase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cooltabs/autorebase/internal/logfields"
)

const loggerName = "autorebase"

// Engine decides which action is run for an event and runs it.
type Engine struct {
	clt              GithubClient
	rebaser          Rebaser
	label            string
	canRebaseOneTime PermissionPredicate

	settleDelay   time.Duration
	backoffPolicy BackoffPolicy

	resolver *Resolver
	finder   *Finder
	executor *Executor

	logger *zap.Logger
}

// Option configures optional Engine settings.
type Option func(*Engine)

// WithSearchSettleDelay sets the time that is waited before searching for
// pull requests.
func WithSearchSettleDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.settleDelay = d
	}
}

// WithBackoffPolicy sets the policy for fetching pull requests until their
// mergeable state is known.
func WithBackoffPolicy(p BackoffPolicy) Option {
	return func(e *Engine) {
		e.backoffPolicy = p
	}
}

// WithOneTimeRebasePredicate sets the predicate that decides if a user is
// allowed to submit rebase commands.
func WithOneTimeRebasePredicate(p PermissionPredicate) Option {
	return func(e *Engine) {
		e.canRebaseOneTime = p
	}
}

// NewEngine creates a new Engine.
// label is the name of the automation label, pull requests carrying it are
// rebased and merged automatically. The label is also used as lock.
// When label is empty, locking is disabled and only rebase commands are
// processed.
func NewEngine(clt GithubClient, rebaser Rebaser, label string, opts ...Option) *Engine {
	e := Engine{
		clt:              clt,
		rebaser:          rebaser,
		label:            label,
		canRebaseOneTime: RequirePermission(DefaultOneTimeRebasePermissions...),
		settleDelay:      DefaultSearchSettleDelay,
		backoffPolicy:    DefaultBackoffPolicy(),
		logger:           zap.L().Named(loggerName),
	}

	for _, opt := range opts {
		opt(&e)
	}

	var lock Mutex
	if label != "" {
		lock = NewLabelLock(clt, label)
	}

	e.resolver = NewResolver(clt, label, e.backoffPolicy)
	e.finder = NewFinder(clt, e.resolver, label, e.settleDelay)
	e.executor = NewExecutor(clt, rebaser, lock)

	return &e
}

// Label returns the name of the automation label.
func (e *Engine) Label() string {
	return e.label
}

// Handle processes an event of repo and returns the resulting action.
// forceRebase causes pull requests to be rebased, also when they are not
// behind their base branch.
// Exactly one Action is returned per event, failures are returned as error
// and never as Failed action.
func (e *Engine) Handle(ctx context.Context, repo Repository, ev Event, forceRebase bool) (Action, error) {
	startTime := time.Now()
	defer func() { metrics.DecisionDurationObserve(time.Since(startTime)) }()

	metrics.ProcessedEventsInc(ev.Name())

	logger := e.logger.With(repo.LogFields()...).With(ev.LogFields()...)

	c := Classify(ev, e.label, forceRebase)
	logger = logger.With(c.LogFields()...).With(zap.Bool("autorebase.force_rebase", forceRebase))

	logger.Debug("event classified", logfields.Event("event_classified"))

	action, err := e.route(ctx, logger, repo, c, forceRebase)
	if err != nil {
		return nil, err
	}

	metrics.ActionsInc(action.Type())

	return action, nil
}

func (e *Engine) route(ctx context.Context, logger *zap.Logger, repo Repository, c *Classification, forceRebase bool) (Action, error) {
	switch c.Route {
	case RouteNop:
		return Nop{}, nil

	case RouteOneTimeCommand:
		return e.rebaseOneTime(ctx, logger, repo, c.PullRequestNumber, c.CommentAuthor)

	case RouteCISignal:
		return e.processCISignal(ctx, logger, repo, c.SHA)

	case RouteLifecycle:
		return e.processLifecycle(ctx, logger, repo, c, forceRebase)

	default:
		panic(fmt.Sprintf("unsupported route: %s", c.Route))
	}
}

func (e *Engine) rebaseOneTime(ctx context.Context, logger *zap.Logger, repo Repository, pullRequestNumber int, username string) (Action, error) {
	permission, err := e.clt.CollaboratorPermission(ctx, repo.Owner, repo.RepositoryName, username)
	if err != nil {
		return nil, fmt.Errorf("retrieving repository permission of %q failed: %w", username, err)
	}

	logger = logger.With(zap.String("github.permission", permission))

	if !e.canRebaseOneTime(permission) {
		logger.Info("denied rebase command", logfields.Event("one_time_rebase_denied"))

		err := e.clt.CreateIssueComment(ctx, repo.Owner, repo.RepositoryName, pullRequestNumber, DenyOneTimeRebaseComment)
		if err != nil {
			return nil, fmt.Errorf("creating denial comment failed: %w", err)
		}

		return DenyOneTimeRebase{PullRequestNumber: pullRequestNumber}, nil
	}

	logger.Debug("processing rebase command", logfields.Event("one_time_rebase_accepted"))

	return e.executor.Rebase(ctx, repo, pullRequestNumber)
}

func (e *Engine) processCISignal(ctx context.Context, logger *zap.Logger, repo Repository, sha string) (Action, error) {
	pr, err := e.finder.FindBySHA(ctx, repo, sha)
	if err != nil {
		return nil, err
	}

	if pr == nil {
		logger.Debug("no rebaseable pull request with matching head commit found", logfields.Event("no_pull_request_for_commit"))
		return Nop{}, nil
	}

	logger = logger.With(pr.LogFields()...)

	switch pr.MergeableState {
	case MergeableStateClean:
		return e.executor.Merge(ctx, repo, pr.PullRequestNumber, pr.Head)

	case MergeableStateBlocked:
		// The pull request was most likely blocked by a failed check
		// on the commit created by an earlier rebase. It needs manual
		// intervention, rebasing another pull request for the same base
		// branch keeps the queue going in the meantime.
		logger.Info(
			"pull request is blocked, rebasing another pull request on the same base branch",
			logfields.Event("pull_request_blocked"),
		)

		return e.rebaseBehindOnSameBase(ctx, logger, repo, pr.Base)

	default:
		return Nop{}, nil
	}
}

func (e *Engine) processLifecycle(ctx context.Context, logger *zap.Logger, repo Repository, c *Classification, forceRebase bool) (Action, error) {
	pr, err := e.resolver.Resolve(ctx, repo, c.PullRequestNumber)
	if err != nil {
		return nil, err
	}

	logger = logger.With(pr.LogFields()...)

	if c.IsAutorebaseSamePullRequestEvent && (forceRebase || pr.LabeledAndOpenedAndRebaseable) {
		if !pr.LabeledAndOpenedAndRebaseable {
			logger.Debug("force rebasing pull request", logfields.Event("force_rebase"))
		}

		return e.autorebase(ctx, logger, repo, pr, forceRebase)
	}

	if c.IsRebasePullRequestOnSameBaseEvent {
		return e.rebaseBehindOnSameBase(ctx, logger, repo, pr.Base)
	}

	if pr.LabeledAndOpenedAndRebaseable {
		return e.executor.Merge(ctx, repo, pr.PullRequestNumber, pr.Head)
	}

	return Nop{}, nil
}

func (e *Engine) autorebase(ctx context.Context, logger *zap.Logger, repo Repository, pr *PullRequestInfo, forceRebase bool) (Action, error) {
	needsAutosquash, err := e.rebaser.NeedsAutosquash(ctx, repo.Owner, repo.RepositoryName, pr.PullRequestNumber)
	if err != nil {
		return nil, fmt.Errorf("checking if pull request #%d needs autosquashing failed: %w", pr.PullRequestNumber, err)
	}

	logger.Debug(
		"evaluating autorebase",
		logfields.Event("autorebase_evaluated"),
		zap.Bool("autorebase.needs_autosquash", needsAutosquash),
	)

	if forceRebase || needsAutosquash || pr.MergeableState == MergeableStateBehind {
		return e.executor.Rebase(ctx, repo, pr.PullRequestNumber)
	}

	if pr.MergeableState == MergeableStateClean {
		return e.executor.Merge(ctx, repo, pr.PullRequestNumber, pr.Head)
	}

	return Nop{}, nil
}

func (e *Engine) rebaseBehindOnSameBase(ctx context.Context, logger *zap.Logger, repo Repository, baseBranch string) (Action, error) {
	pr, err := e.finder.FindBehindOnBase(ctx, repo, baseBranch)
	if err != nil {
		return nil, err
	}

	if pr == nil {
		logger.Debug(
			"no pull request behind the base branch found",
			logfields.Event("no_pull_request_behind_base"),
			logfields.BaseBranch(baseBranch),
		)

		return Nop{}, nil
	}

	return e.executor.Rebase(ctx, repo, pr.PullRequestNumber)
}

