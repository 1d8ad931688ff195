package autorebase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsOneTimeRebaseCommand(t *testing.T) {
	tcs := []struct {
		body   string
		label  string
		result bool
	}{
		{body: "/rebase", label: "autorebase", result: true},
		{body: "  /rebase\r\n", label: "autorebase", result: true},
		{body: "/autorebase", label: "autorebase", result: true},
		{body: "/autorebase please", label: "autorebase", result: false},
		{body: "rebase", label: "autorebase", result: false},
		{body: "/", label: "", result: false},
		{body: "/rebase", label: "", result: true},
		{body: "/Rebase", label: "autorebase", result: false},
	}

	for _, tc := range tcs {
		t.Run(tc.body, func(t *testing.T) {
			assert.Equal(t, tc.result, IsOneTimeRebaseCommand(tc.body, tc.label))
		})
	}
}

func TestClassify(t *testing.T) {
	tcs := []struct {
		name        string
		event       Event
		forceRebase bool
		expected    Classification
	}{
		{
			name:     "rebase comment on pull request",
			event:    CommentCreatedEvent{IssueNumber: 3, IsPullRequest: true, Body: "/rebase", Author: "me"},
			expected: Classification{Route: RouteOneTimeCommand, PullRequestNumber: 3, CommentAuthor: "me"},
		},
		{
			name:     "rebase comment on issue",
			event:    CommentCreatedEvent{IssueNumber: 3, Body: "/rebase", Author: "me"},
			expected: Classification{Route: RouteNop},
		},
		{
			name:     "other comment on pull request",
			event:    CommentCreatedEvent{IssueNumber: 3, IsPullRequest: true, Body: "LGTM", Author: "me"},
			expected: Classification{Route: RouteNop},
		},
		{
			name:     "check completed",
			event:    CheckCompletedEvent{SHA: "abc"},
			expected: Classification{Route: RouteCISignal, SHA: "abc"},
		},
		{
			name:     "status changed",
			event:    StatusChangedEvent{SHA: "def"},
			expected: Classification{Route: RouteCISignal, SHA: "def"},
		},
		{
			name:  "mergeable pull request opened",
			event: PullRequestChangedEvent{Action: "opened", PullRequestNumber: 1, Mergeable: true},
			expected: Classification{
				Route:                            RouteLifecycle,
				PullRequestNumber:                1,
				IsAutorebaseSamePullRequestEvent: true,
			},
		},
		{
			name:     "unmergeable pull request synchronized",
			event:    PullRequestChangedEvent{Action: "synchronize", PullRequestNumber: 1},
			expected: Classification{Route: RouteNop, PullRequestNumber: 1},
		},
		{
			name:        "unmergeable pull request synchronized with force rebase",
			event:       PullRequestChangedEvent{Action: "synchronize", PullRequestNumber: 1},
			forceRebase: true,
			expected: Classification{
				Route:                            RouteLifecycle,
				PullRequestNumber:                1,
				IsAutorebaseSamePullRequestEvent: true,
			},
		},
		{
			name:  "automation label added",
			event: PullRequestChangedEvent{Action: "labeled", PullRequestNumber: 1, LabelName: testLabel, Mergeable: true},
			expected: Classification{
				Route:                            RouteLifecycle,
				PullRequestNumber:                1,
				IsAutorebaseSamePullRequestEvent: true,
			},
		},
		{
			name:     "other label added",
			event:    PullRequestChangedEvent{Action: "labeled", PullRequestNumber: 1, LabelName: "bug", Mergeable: true},
			expected: Classification{Route: RouteNop, PullRequestNumber: 1},
		},
		{
			name:     "label added to closed pull request",
			event:    PullRequestChangedEvent{Action: "labeled", PullRequestNumber: 1, LabelName: testLabel, Mergeable: true, Closed: true},
			expected: Classification{Route: RouteNop, PullRequestNumber: 1},
		},
		{
			name:  "pull request merged",
			event: PullRequestChangedEvent{Action: "closed", PullRequestNumber: 1, Closed: true, Merged: true},
			expected: Classification{
				Route:                              RouteLifecycle,
				PullRequestNumber:                  1,
				IsRebasePullRequestOnSameBaseEvent: true,
			},
		},
		{
			name:     "pull request closed without merge",
			event:    PullRequestChangedEvent{Action: "closed", PullRequestNumber: 1, Closed: true},
			expected: Classification{Route: RouteNop, PullRequestNumber: 1},
		},
		{
			name:     "review submitted",
			event:    ReviewSubmittedEvent{PullRequestNumber: 4},
			expected: Classification{Route: RouteLifecycle, PullRequestNumber: 4, IsMergeEvent: true},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			c := Classify(tc.event, testLabel, tc.forceRebase)
			assert.Equal(t, tc.expected, *c)
		})
	}
}

func TestClassifyWithoutLabelIgnoresLabeledEvents(t *testing.T) {
	ev := PullRequestChangedEvent{Action: "labeled", PullRequestNumber: 1, Mergeable: true}
	assert.Equal(t, RouteNop, Classify(ev, "", false).Route)
}
