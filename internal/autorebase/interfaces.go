package autorebase

import (
	"context"

	"github.com/google/go-github/v43/github"

	"github.com/cooltabs/autorebase/internal/githubclt"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks . GithubClient,Rebaser

// GithubClient is the subset of the GitHub API the engine uses.
type GithubClient interface {
	GetPullRequest(ctx context.Context, owner, repo string, pullRequestNumber int) (*github.PullRequest, error)
	MergePullRequest(ctx context.Context, owner, repo string, pullRequestNumber int) error
	DeleteBranch(ctx context.Context, owner, repo, branch string) error
	AddLabel(ctx context.Context, owner, repo string, pullRequestOrIssueNumber int, label string) error
	RemoveLabel(ctx context.Context, owner, repo string, pullRequestOrIssueNumber int, label string) error
	CreateIssueComment(ctx context.Context, owner, repo string, issueOrPRNr int, comment string) error
	CollaboratorPermission(ctx context.Context, owner, repo, username string) (string, error)
	SearchIssues(ctx context.Context, query, sort, order string) githubclt.IssueIterator
}

// Rebaser rewrites the history of pull request branches.
type Rebaser interface {
	// Rebase rebases the branch of the pull request onto its base
	// branch, fixup and squash commits are folded into their targets.
	Rebase(ctx context.Context, owner, repo string, pullRequestNumber int) error
	// NeedsAutosquash returns true if the pull request contains commits
	// that are folded by an autosquash rebase.
	NeedsAutosquash(ctx context.Context, owner, repo string, pullRequestNumber int) (bool, error)
}
