// Package evloop receives GitHub webhook events, runs them through the
// autorebase decision engine and passes the resulting actions to the
// configured action handlers.
package evloop

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/cooltabs/autorebase/internal/action"
	"github.com/cooltabs/autorebase/internal/autorebase"
	"github.com/cooltabs/autorebase/internal/logfields"
	github_prov "github.com/cooltabs/autorebase/internal/provider/github"
	"github.com/cooltabs/autorebase/internal/routines"
)

const (
	DefEventChannelBufferSize = 512
	DefRetryTimeout           = 2 * time.Hour
	DefMaxConcurrentEvents    = 16
)

const loggerName = "event-loop"

// Engine decides which action is taken for an event.
type Engine interface {
	Handle(ctx context.Context, repo autorebase.Repository, ev autorebase.Event, forceRebase bool) (autorebase.Action, error)
}

// EvLoop receives events, processes them concurrently with the Engine and
// runs matching action handlers for the resulting actions.
// Actions are executed asynchronously in go-routines and are retried until
// DefRetryTimeout expired.
type EvLoop struct {
	ch     chan *github_prov.Event
	logger *zap.Logger
	engine Engine

	repositories    map[autorebase.Repository]struct{}
	forceRebaseHook *ForceRebaseHook
	handlers        []*ActionHandler

	maxConcurrentEvents int
	pool                *routines.Pool
	loopDone            chan struct{}
	processedEvents     atomic.Uint64

	actionWg      sync.WaitGroup
	actionDeferFn func()
	retryer       *Retryer
}

type Option func(*EvLoop)

// WithActionRoutineDeferFunc sets a function to be run when a go-routine that
// processes an event or executes an action returns.
// It can be used to set a panic handler.
func WithActionRoutineDeferFunc(fn func()) Option {
	return func(e *EvLoop) {
		e.actionDeferFn = fn
	}
}

// WithRepositories restricts processing to events of the given repositories.
// By default events of all repositories are processed.
func WithRepositories(repos ...autorebase.Repository) Option {
	return func(e *EvLoop) {
		for _, r := range repos {
			e.repositories[r] = struct{}{}
		}
	}
}

func WithForceRebaseHook(hook *ForceRebaseHook) Option {
	return func(e *EvLoop) {
		e.forceRebaseHook = hook
	}
}

func WithActionHandlers(handlers ...*ActionHandler) Option {
	return func(e *EvLoop) {
		e.handlers = append(e.handlers, handlers...)
	}
}

// WithMaxConcurrentEvents sets how many events are processed in parallel.
func WithMaxConcurrentEvents(n int) Option {
	return func(e *EvLoop) {
		e.maxConcurrentEvents = n
	}
}

func NewEventLoop(engine Engine, opts ...Option) *EvLoop {
	evl := EvLoop{
		ch:                  make(chan *github_prov.Event, DefEventChannelBufferSize),
		engine:              engine,
		repositories:        map[autorebase.Repository]struct{}{},
		maxConcurrentEvents: DefMaxConcurrentEvents,
		loopDone:            make(chan struct{}),
		retryer:             NewRetryer(),
	}

	for _, opt := range opts {
		opt(&evl)
	}

	if evl.logger == nil {
		evl.logger = zap.L().Named(loggerName)
	}

	if evl.maxConcurrentEvents < 1 {
		evl.maxConcurrentEvents = 1
	}

	evl.pool = routines.NewPool(evl.maxConcurrentEvents)

	return &evl
}

// C returns the event channel.
// Events sent to this channel will be processed.
// The channel is closed when Stop() is called.
func (e *EvLoop) C() chan<- *github_prov.Event {
	return e.ch
}

// ProcessedEvents returns the number of events that were run through the
// Engine.
func (e *EvLoop) ProcessedEvents() uint64 {
	return e.processedEvents.Load()
}

// Start processes events until Stop() is called.
func (e *EvLoop) Start() {
	defer close(e.loopDone)

	ctx := context.Background()
	e.logger.Info("ready to process events", logfields.Event("eventloop_started"))

	for ev := range e.ch {
		ev := ev

		e.pool.Queue(func() {
			if e.actionDeferFn != nil {
				defer e.actionDeferFn()
			}

			e.processEvent(ctx, ev)
		})
	}

	e.logger.Info(
		"event loop terminated, event channel was closed",
		logfields.Event("eventloop_terminated"),
	)
}

func (e *EvLoop) isRepositoryEnabled(repo autorebase.Repository) bool {
	if len(e.repositories) == 0 {
		return true
	}

	_, exist := e.repositories[repo]
	return exist
}

func (e *EvLoop) processEvent(ctx context.Context, pev *github_prov.Event) {
	logger := e.logger.With(pev.LogFields...)

	logger.Debug("event received", logfields.Event("event_received"))

	repo, ev, err := autorebase.DecodeWebhookEvent(pev.DeliveryID, pev.Event)
	if err != nil {
		if errors.Is(err, autorebase.ErrUnsupportedEvent) {
			logger.Debug(
				"ignoring event, event type is not processed",
				logfields.Event("event_ignored"),
				zap.Error(err),
			)
			return
		}

		logger.Warn(
			"ignoring event, decoding failed",
			logfields.Event("event_decoding_failed"),
			zap.Error(err),
		)
		return
	}

	logger = logger.With(repo.LogFields()...)

	if !e.isRepositoryEnabled(repo) {
		logger.Debug(
			"ignoring event, repository is not enabled",
			logfields.Event("event_ignored_repository_not_enabled"),
		)
		return
	}

	var forceRebase bool
	if e.forceRebaseHook != nil {
		forceRebase = e.forceRebaseHook.Evaluate(ctx, pev)
	}

	act, err := e.engine.Handle(ctx, repo, ev, forceRebase)
	e.processedEvents.Inc()
	if err != nil {
		act = autorebase.Failed{Err: err}
		logger.Error(
			"processing event failed",
			logfields.Event("event_processing_failed"),
			logfields.Action(string(act.Type())),
			zap.Error(err),
		)
	}

	if act.Type() == autorebase.ActionTypeNop {
		logger.Debug(
			"event processed, no action taken",
			logfields.Event("event_processed"),
			logfields.Action(act.String()),
		)
		return
	}

	if err == nil {
		logger.Info(
			"event processed",
			logfields.Event("event_processed"),
			logfields.Action(act.String()),
		)
	}

	e.runActionHandlers(ctx, logger, NewActionEvent(pev.DeliveryID, repo, act))
}

func (e *EvLoop) runActionHandlers(ctx context.Context, logger *zap.Logger, ev *ActionEvent) {
	for _, h := range e.handlers {
		logger := logger.With(zap.String("action_handler", h.name))

		match, err := h.Match(ctx, ev)
		if err != nil {
			logger.Error(
				"matching action handler failed",
				logfields.Event("action_handler_matching_failed"),
				zap.Error(err),
			)
			continue
		}

		if !match {
			logger.Debug(
				"action handler does not match",
				logfields.Event("action_handler_mismatch"),
			)
			continue
		}

		runners, err := h.TemplateActions(ev)
		if err != nil {
			logger.Error(
				"templating action definition failed, action handler is skipped",
				logfields.Event("action_handler_templating_failed"),
				zap.Error(err),
			)
			continue
		}

		for _, runner := range runners {
			e.scheduleAction(ctx, logger, runner)
		}
	}
}

func logFieldActionResult(val string) zap.Field {
	return zap.String("action_result", val)
}

func (e *EvLoop) scheduleAction(ctx context.Context, logger *zap.Logger, runner action.Runner) {
	e.actionWg.Add(1)

	go func() {
		if e.actionDeferFn != nil {
			defer e.actionDeferFn()
		}

		defer e.actionWg.Done()

		err := e.retryer.Run(ctx, runner.Run, runner.LogFields())
		switch {
		case err == nil:
			metrics.ActionHandlerRunsInc(runResultSuccess)
		case errors.Is(err, ErrRetryerStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			metrics.ActionHandlerRunsInc(runResultCancelled)
		default:
			metrics.ActionHandlerRunsInc(runResultFailure)
			logger.Debug(
				"action handler action failed",
				logfields.Event("action_handler_action_failed"),
				zap.Stringer("action", runner),
				zap.Error(err),
			)
		}
	}()
}

// Stop stops the event loop and waits until all events that were received
// were processed and all scheduled action go-routines terminated.
// The event channel (Evloop.C()) will be closed.
// Stop must only be called after Start was called.
func (e *EvLoop) Stop() {
	e.logger.Debug("event loop terminating", logfields.Event("eventloop_terminating"))
	close(e.ch)

	<-e.loopDone

	e.logger.Debug(
		"waiting for in-flight events to be processed",
		logfields.Event("eventloop_terminating"),
	)
	e.pool.Wait()

	e.retryer.Stop()

	e.logger.Debug(
		"waiting for scheduled actions to terminate",
		logfields.Event("eventloop_terminating"),
	)
	e.actionWg.Wait()

	e.logger.Info("event loop terminated", logfields.Event("eventloop_terminated"))
}
