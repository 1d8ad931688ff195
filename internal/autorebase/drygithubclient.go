package autorebase

import (
	"context"

	"github.com/google/go-github/v43/github"
	"go.uber.org/zap"

	"github.com/cooltabs/autorebase/internal/githubclt"
	"github.com/cooltabs/autorebase/internal/logfields"
)

// DryGithubClient is a github-client that does not do any changes on github.
// All operations that could cause a change are simulated and always succeed.
// All all other operations are forwarded to a wrapped GithubClient.
type DryGithubClient struct {
	clt    GithubClient
	logger *zap.Logger
}

func NewDryGithubClient(clt GithubClient, logger *zap.Logger) *DryGithubClient {
	return &DryGithubClient{
		clt:    clt,
		logger: logger.Named("dry_github_client"),
	}
}

func (c *DryGithubClient) GetPullRequest(ctx context.Context, owner, repo string, pullRequestNumber int) (*github.PullRequest, error) {
	return c.clt.GetPullRequest(ctx, owner, repo, pullRequestNumber)
}

func (c *DryGithubClient) MergePullRequest(_ context.Context, _, _ string, pullRequestNumber int) error {
	c.logger.Info("simulated merging of pull request", logfields.PullRequest(pullRequestNumber))
	return nil
}

func (c *DryGithubClient) DeleteBranch(_ context.Context, _, _, branch string) error {
	c.logger.Info("simulated deleting of branch", logfields.Branch(branch))
	return nil
}

func (c *DryGithubClient) AddLabel(_ context.Context, _, _ string, pullRequestOrIssueNumber int, label string) error {
	c.logger.Info("simulated adding of label",
		logfields.PullRequest(pullRequestOrIssueNumber),
		logfields.Label(label),
	)
	return nil
}

func (c *DryGithubClient) RemoveLabel(_ context.Context, _, _ string, pullRequestOrIssueNumber int, label string) error {
	c.logger.Info("simulated removing of label",
		logfields.PullRequest(pullRequestOrIssueNumber),
		logfields.Label(label),
	)
	return nil
}

func (c *DryGithubClient) CreateIssueComment(_ context.Context, _, _ string, issueOrPRNr int, _ string) error {
	c.logger.Info("simulated creating of github issue comment, no comment created on github",
		logfields.PullRequest(issueOrPRNr),
	)
	return nil
}

func (c *DryGithubClient) CollaboratorPermission(ctx context.Context, owner, repo, username string) (string, error) {
	return c.clt.CollaboratorPermission(ctx, owner, repo, username)
}

func (c *DryGithubClient) SearchIssues(ctx context.Context, query, sort, order string) githubclt.IssueIterator {
	return c.clt.SearchIssues(ctx, query, sort, order)
}

// DryRebaser is a Rebaser that does not change any branches.
// Rebases are simulated and always succeed.
type DryRebaser struct {
	rebaser Rebaser
	logger  *zap.Logger
}

func NewDryRebaser(rebaser Rebaser, logger *zap.Logger) *DryRebaser {
	return &DryRebaser{
		rebaser: rebaser,
		logger:  logger.Named("dry_rebaser"),
	}
}

func (r *DryRebaser) Rebase(_ context.Context, _, _ string, pullRequestNumber int) error {
	r.logger.Info("simulated rebasing of pull request", logfields.PullRequest(pullRequestNumber))
	return nil
}

func (r *DryRebaser) NeedsAutosquash(ctx context.Context, owner, repo string, pullRequestNumber int) (bool, error) {
	return r.rebaser.NeedsAutosquash(ctx, owner, repo, pullRequestNumber)
}
