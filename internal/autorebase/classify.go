package autorebase

import (
	"strings"

	"go.uber.org/zap"
)

// Route is the decision branch an event is processed by.
type Route uint8

const (
	// RouteNop is used for events that do not require any processing.
	RouteNop Route = iota
	// RouteOneTimeCommand is used for rebase comment commands.
	RouteOneTimeCommand
	// RouteCISignal is used for check run and commit status events.
	RouteCISignal
	// RouteLifecycle is used for pull request and review events for which
	// one of the lifecycle flags is set.
	RouteLifecycle
)

var routeStrings = [...]string{
	RouteNop:            "nop",
	RouteOneTimeCommand: "one_time_command",
	RouteCISignal:       "ci_signal",
	RouteLifecycle:      "lifecycle",
}

func (r Route) String() string {
	if int(r) >= len(routeStrings) {
		return "undefined"
	}

	return routeStrings[r]
}

// Classification is the result of classifying an event.
type Classification struct {
	Route Route

	// PullRequestNumber is set for the RouteOneTimeCommand and
	// RouteLifecycle routes.
	PullRequestNumber int
	// SHA is set for the RouteCISignal route.
	SHA string
	// CommentAuthor is set for the RouteOneTimeCommand route.
	CommentAuthor string

	// Lifecycle flags, only set for RouteLifecycle.
	IsAutorebaseSamePullRequestEvent   bool
	IsRebasePullRequestOnSameBaseEvent bool
	IsMergeEvent                       bool
}

func (c *Classification) LogFields() []zap.Field {
	return []zap.Field{
		zap.Stringer("autorebase.route", c.Route),
		zap.Bool("autorebase.is_autorebase_same_pull_request_event", c.IsAutorebaseSamePullRequestEvent),
		zap.Bool("autorebase.is_rebase_pull_request_on_same_base_event", c.IsRebasePullRequestOnSameBaseEvent),
		zap.Bool("autorebase.is_merge_event", c.IsMergeEvent),
	}
}

// IsOneTimeRebaseCommand returns true if the comment body is a command to
// rebase the pull request once.
// Accepted commands are "/rebase" and "/<label>".
func IsOneTimeRebaseCommand(body, label string) bool {
	cmd := strings.TrimSpace(body)
	if cmd == "/rebase" {
		return true
	}

	return label != "" && cmd == "/"+label
}

// Classify determines which decision branch processes ev.
// It does not have side effects.
func Classify(ev Event, label string, forceRebase bool) *Classification {
	switch e := ev.(type) {
	case CommentCreatedEvent:
		if e.IsPullRequest && IsOneTimeRebaseCommand(e.Body, label) {
			return &Classification{
				Route:             RouteOneTimeCommand,
				PullRequestNumber: e.IssueNumber,
				CommentAuthor:     e.Author,
			}
		}

		return &Classification{Route: RouteNop}

	case CheckCompletedEvent:
		return &Classification{Route: RouteCISignal, SHA: e.SHA}

	case StatusChangedEvent:
		return &Classification{Route: RouteCISignal, SHA: e.SHA}

	case PullRequestChangedEvent:
		result := Classification{
			PullRequestNumber: e.PullRequestNumber,
			IsAutorebaseSamePullRequestEvent: (e.Action == "opened" ||
				e.Action == "synchronize" ||
				(e.Action == "labeled" && label != "" && e.LabelName == label)) &&
				(e.Mergeable || forceRebase) &&
				!e.Closed,
			IsRebasePullRequestOnSameBaseEvent: e.Action == "closed" && e.Merged,
		}

		if result.IsAutorebaseSamePullRequestEvent || result.IsRebasePullRequestOnSameBaseEvent {
			result.Route = RouteLifecycle
		}

		return &result

	case ReviewSubmittedEvent:
		return &Classification{
			Route:             RouteLifecycle,
			PullRequestNumber: e.PullRequestNumber,
			IsMergeEvent:      true,
		}

	default:
		return &Classification{Route: RouteNop}
	}
}
