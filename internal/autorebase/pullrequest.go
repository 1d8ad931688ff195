package autorebase

import (
	"go.uber.org/zap"

	"github.com/google/go-github/v43/github"

	"github.com/cooltabs/autorebase/internal/logfields"
)

// MergeableState is the mergeability of a pull request as computed by
// GitHub.
type MergeableState string

const (
	MergeableStateUnknown  MergeableState = "unknown"
	MergeableStateDirty    MergeableState = "dirty"
	MergeableStateClean    MergeableState = "clean"
	MergeableStateUnstable MergeableState = "unstable"
	MergeableStateBlocked  MergeableState = "blocked"
	MergeableStateBehind   MergeableState = "behind"
)

// PullRequestInfo is the state of a pull request that decisions are based
// on. It is retrieved from GitHub for every decision and never cached.
type PullRequestInfo struct {
	PullRequestNumber int
	// Base is the name of the base branch.
	Base string
	// Head is the name of the pull request branch.
	Head string
	// SHA is the head commit of the pull request.
	SHA            string
	MergeableState MergeableState
	Merged         bool
	// LabeledAndOpenedAndRebaseable is true if the pull request has the
	// automation label, is not closed and GitHub reports it as mergeable.
	LabeledAndOpenedAndRebaseable bool
}

// NewPullRequestInfo creates a PullRequestInfo from a GitHub pull request.
func NewPullRequestInfo(pr *github.PullRequest, label string) *PullRequestInfo {
	return &PullRequestInfo{
		PullRequestNumber: pr.GetNumber(),
		Base:              pr.GetBase().GetRef(),
		Head:              pr.GetHead().GetRef(),
		SHA:               pr.GetHead().GetSHA(),
		MergeableState:    MergeableState(pr.GetMergeableState()),
		Merged:            pr.GetMerged(),
		LabeledAndOpenedAndRebaseable: hasLabel(pr, label) &&
			!isClosed(pr) &&
			// the rebaseable flag reported by GitHub is sometimes
			// false for pull requests that can be rebased, the
			// mergeable flag is used instead
			pr.GetMergeable(),
	}
}

func (p *PullRequestInfo) LogFields() []zap.Field {
	return []zap.Field{
		logfields.PullRequest(p.PullRequestNumber),
		logfields.BaseBranch(p.Base),
		logfields.Branch(p.Head),
		logfields.Commit(p.SHA),
		logfields.MergeableState(string(p.MergeableState)),
		zap.Bool("github.merged", p.Merged),
		zap.Bool("autorebase.labeled_and_opened_and_rebaseable", p.LabeledAndOpenedAndRebaseable),
	}
}

func hasLabel(pr *github.PullRequest, label string) bool {
	if label == "" {
		return false
	}

	for _, l := range pr.Labels {
		if l.GetName() == label {
			return true
		}
	}

	return false
}

func isClosed(pr *github.PullRequest) bool {
	return !pr.GetClosedAt().IsZero()
}

// isMergeableStateKnown returns true if GitHub finished computing the
// mergeable state of the pull request.
// The state of closed pull requests is never computed, it is considered as
// known.
func isMergeableStateKnown(pr *github.PullRequest) bool {
	if isClosed(pr) {
		return true
	}

	state := MergeableState(pr.GetMergeableState())
	return state != MergeableStateUnknown && state != ""
}
