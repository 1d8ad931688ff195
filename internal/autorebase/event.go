package autorebase

import (
	"errors"
	"fmt"

	"github.com/google/go-github/v43/github"
	"go.uber.org/zap"

	"github.com/cooltabs/autorebase/internal/logfields"
)

// ErrUnsupportedEvent is returned by DecodeWebhookEvent for webhook events
// that are not processed.
var ErrUnsupportedEvent = errors.New("unsupported event")

// EventName identifies the kind of an Event.
type EventName string

const (
	EventNameCheckCompleted     EventName = "check-completed"
	EventNameCommentCreated     EventName = "comment-created"
	EventNamePullRequestChanged EventName = "pull-request-changed"
	EventNameReviewSubmitted    EventName = "review-submitted"
	EventNameStatusChanged      EventName = "status-changed"
)

// Event is a decoded webhook event.
// The set of implementations is closed, they are: CheckCompletedEvent,
// StatusChangedEvent, CommentCreatedEvent, PullRequestChangedEvent and
// ReviewSubmittedEvent.
// Events are never modified after they were decoded.
type Event interface {
	Name() EventName
	// EventID returns the correlation token of the event, the GitHub
	// delivery ID.
	EventID() string
	LogFields() []zap.Field
	isEvent()
}

// EventMeta contains the fields that all events have.
type EventMeta struct {
	ID string
}

func (m EventMeta) EventID() string {
	return m.ID
}

// CheckCompletedEvent is sent when a check run finished.
type CheckCompletedEvent struct {
	EventMeta
	SHA string
}

// StatusChangedEvent is sent when the status of a commit changed.
type StatusChangedEvent struct {
	EventMeta
	SHA string
}

// CommentCreatedEvent is sent when a comment was added to an issue or pull
// request.
type CommentCreatedEvent struct {
	EventMeta
	// IssueNumber is the number of the issue or pull request the comment
	// belongs to.
	IssueNumber   int
	IsPullRequest bool
	Body          string
	Author        string
}

// PullRequestChangedEvent is sent when a pull request was e.g. opened,
// closed, labeled or its branch changed.
type PullRequestChangedEvent struct {
	EventMeta
	// Action is the GitHub pull_request event action, e.g. "opened",
	// "synchronize", "labeled" or "closed".
	Action            string
	PullRequestNumber int
	// LabelName is set for "labeled" and "unlabeled" actions.
	LabelName string
	// Mergeable is the mergeable flag of the pull request as sent with
	// the event, it can be outdated.
	Mergeable bool
	Closed    bool
	Merged    bool
}

// ReviewSubmittedEvent is sent when a review for a pull request was
// submitted.
type ReviewSubmittedEvent struct {
	EventMeta
	PullRequestNumber int
}

func (CheckCompletedEvent) Name() EventName     { return EventNameCheckCompleted }
func (StatusChangedEvent) Name() EventName      { return EventNameStatusChanged }
func (CommentCreatedEvent) Name() EventName     { return EventNameCommentCreated }
func (PullRequestChangedEvent) Name() EventName { return EventNamePullRequestChanged }
func (ReviewSubmittedEvent) Name() EventName    { return EventNameReviewSubmitted }

func (CheckCompletedEvent) isEvent()     {}
func (StatusChangedEvent) isEvent()      {}
func (CommentCreatedEvent) isEvent()     {}
func (PullRequestChangedEvent) isEvent() {}
func (ReviewSubmittedEvent) isEvent()    {}

func (e EventMeta) logFields(name EventName) []zap.Field {
	return []zap.Field{
		logfields.DeliveryID(e.ID),
		zap.String("autorebase.event", string(name)),
	}
}

func (e CheckCompletedEvent) LogFields() []zap.Field {
	return append(e.logFields(e.Name()), logfields.Commit(e.SHA))
}

func (e StatusChangedEvent) LogFields() []zap.Field {
	return append(e.logFields(e.Name()), logfields.Commit(e.SHA))
}

func (e CommentCreatedEvent) LogFields() []zap.Field {
	return append(
		e.logFields(e.Name()),
		zap.Int("github.issue", e.IssueNumber),
		zap.String("github.comment_author", e.Author),
	)
}

func (e PullRequestChangedEvent) LogFields() []zap.Field {
	fields := append(
		e.logFields(e.Name()),
		logfields.PullRequest(e.PullRequestNumber),
		zap.String("github.pull_request_event.action", e.Action),
	)

	if e.LabelName != "" {
		fields = append(fields, logfields.Label(e.LabelName))
	}

	return fields
}

func (e ReviewSubmittedEvent) LogFields() []zap.Field {
	return append(e.logFields(e.Name()), logfields.PullRequest(e.PullRequestNumber))
}

type repoGetter interface {
	GetRepo() *github.Repository
}

// DecodeWebhookEvent converts a webhook event, as returned by
// github.ParseWebHook(), to an Event and returns it together with the
// repository it belongs to.
// For events that are not processed, an error wrapping ErrUnsupportedEvent is
// returned.
func DecodeWebhookEvent(deliveryID string, ghEvent any) (Repository, Event, error) {
	var result Event
	meta := EventMeta{ID: deliveryID}

	switch ev := ghEvent.(type) {
	case *github.CheckRunEvent:
		if ev.GetAction() != "completed" {
			return Repository{}, nil, fmt.Errorf("%w: check_run event with action %q", ErrUnsupportedEvent, ev.GetAction())
		}

		sha := ev.GetCheckRun().GetHeadSHA()
		if sha == "" {
			return Repository{}, nil, errors.New("check_run event has an empty head sha")
		}

		result = CheckCompletedEvent{EventMeta: meta, SHA: sha}

	case *github.StatusEvent:
		if ev.GetSHA() == "" {
			return Repository{}, nil, errors.New("status event has an empty sha")
		}

		result = StatusChangedEvent{EventMeta: meta, SHA: ev.GetSHA()}

	case *github.IssueCommentEvent:
		if ev.GetAction() != "created" {
			return Repository{}, nil, fmt.Errorf("%w: issue_comment event with action %q", ErrUnsupportedEvent, ev.GetAction())
		}

		issue := ev.GetIssue()
		if issue == nil {
			return Repository{}, nil, errors.New("issue_comment event has no issue field")
		}

		result = CommentCreatedEvent{
			EventMeta:     meta,
			IssueNumber:   issue.GetNumber(),
			IsPullRequest: issue.IsPullRequest(),
			Body:          ev.GetComment().GetBody(),
			Author:        ev.GetComment().GetUser().GetLogin(),
		}

	case *github.PullRequestEvent:
		pr := ev.GetPullRequest()
		if pr == nil {
			return Repository{}, nil, errors.New("pull_request event has no pull request field")
		}

		result = PullRequestChangedEvent{
			EventMeta:         meta,
			Action:            ev.GetAction(),
			PullRequestNumber: pr.GetNumber(),
			LabelName:         ev.GetLabel().GetName(),
			Mergeable:         pr.GetMergeable(),
			Closed:            !pr.GetClosedAt().IsZero(),
			Merged:            pr.GetMerged(),
		}

	case *github.PullRequestReviewEvent:
		if ev.GetAction() != "submitted" {
			return Repository{}, nil, fmt.Errorf("%w: pull_request_review event with action %q", ErrUnsupportedEvent, ev.GetAction())
		}

		result = ReviewSubmittedEvent{
			EventMeta:         meta,
			PullRequestNumber: ev.GetPullRequest().GetNumber(),
		}

	default:
		return Repository{}, nil, fmt.Errorf("%w: %T", ErrUnsupportedEvent, ghEvent)
	}

	rg, ok := ghEvent.(repoGetter)
	if !ok {
		return Repository{}, nil, fmt.Errorf("event %T has no repository field", ghEvent)
	}

	repo, err := NewRepository(rg.GetRepo().GetOwner().GetLogin(), rg.GetRepo().GetName())
	if err != nil {
		return Repository{}, nil, fmt.Errorf("incomplete repository information: %w", err)
	}

	return repo, result, nil
}
