// Package githubclt provides a github API client.
package githubclt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/google/go-github/v43/github"
	"github.com/shurcooL/githubv4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/cooltabs/autorebase/internal/goorderr"
	"github.com/cooltabs/autorebase/internal/logfields"
)

const DefaultHTTPClientTimeout = time.Minute

const loggerName = "github_client"

const mergeMethodMerge = "merge"

var (
	ErrPullRequestIsClosed = errors.New("pull request is closed")
	// ErrLabelNotFound is returned by RemoveLabel when the pull request
	// or issue does not carry the label.
	ErrLabelNotFound = errors.New("label not found")
)

// New returns a new github api client.
func New(oauthAPItoken string) *Client {
	httpClient := newHTTPClient(oauthAPItoken)
	return &Client{
		restClt:    github.NewClient(httpClient),
		graphQLClt: githubv4.NewClient(httpClient),
		logger:     zap.L().Named(loggerName),
	}
}

func newHTTPClient(apiToken string) *http.Client {
	if apiToken == "" {
		return &http.Client{
			Timeout: DefaultHTTPClientTimeout,
		}
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: apiToken},
	)

	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = DefaultHTTPClientTimeout

	return tc
}

// Client is an github API client.
// All methods return a goorderr.RetryableError when an operation can be retried.
// This can be e.g. the case when the API ratelimit is exceeded.
type Client struct {
	restClt    *github.Client
	graphQLClt *githubv4.Client
	logger     *zap.Logger
}

// GetPullRequest returns the current state of a pull request.
func (clt *Client) GetPullRequest(ctx context.Context, owner, repo string, pullRequestNumber int) (*github.PullRequest, error) {
	pr, _, err := clt.restClt.PullRequests.Get(ctx, owner, repo, pullRequestNumber)
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	return pr, nil
}

// MergePullRequest merges a pull request with the merge-commit strategy.
func (clt *Client) MergePullRequest(ctx context.Context, owner, repo string, pullRequestNumber int) error {
	res, _, err := clt.restClt.PullRequests.Merge(
		ctx,
		owner,
		repo,
		pullRequestNumber,
		"",
		&github.PullRequestOptions{MergeMethod: mergeMethodMerge},
	)
	if err != nil {
		return clt.wrapRetryableErrors(err)
	}

	if !res.GetMerged() {
		return fmt.Errorf("github did not merge the pull request: %s", res.GetMessage())
	}

	return nil
}

// DeleteBranch deletes the branch reference refs/heads/<branch>.
func (clt *Client) DeleteBranch(ctx context.Context, owner, repo, branch string) error {
	if branch == "" {
		return errors.New("provided branch name is empty")
	}

	_, err := clt.restClt.Git.DeleteRef(ctx, owner, repo, "heads/"+branch)
	return clt.wrapRetryableErrors(err)
}

// CreateIssueComment creates a comment in a issue or pull request
func (clt *Client) CreateIssueComment(ctx context.Context, owner, repo string, issueOrPRNr int, comment string) error {
	_, _, err := clt.restClt.Issues.CreateComment(ctx, owner, repo, issueOrPRNr, &github.IssueComment{Body: &comment})
	return clt.wrapRetryableErrors(err)
}

// CollaboratorPermission returns the permission level of a user for a
// repository. Possible values are "admin", "write", "read" and "none".
func (clt *Client) CollaboratorPermission(ctx context.Context, owner, repo, username string) (string, error) {
	lvl, _, err := clt.restClt.Repositories.GetPermissionLevel(ctx, owner, repo, username)
	if err != nil {
		return "", clt.wrapRetryableErrors(err)
	}

	return lvl.GetPermission(), nil
}

// AddLabel adds a label to Pull-Request or Issue.
func (clt *Client) AddLabel(ctx context.Context, owner, repo string, pullRequestOrIssueNumber int, label string) error {
	if label == "" {
		// by default github removes all labels when none is provided,
		// we do not need this functionality, as safe guard fail if
		// because of a bug an empty label value is passed:
		return errors.New("provided label is empty")
	}
	_, _, err := clt.restClt.Issues.AddLabelsToIssue(ctx, owner, repo, pullRequestOrIssueNumber, []string{label})
	return clt.wrapRetryableErrors(err)
}

// RemoveLabel removes a label from a Pull-Request or issue.
// If the issue or PR does not have the label, an error wrapping
// ErrLabelNotFound is returned.
func (clt *Client) RemoveLabel(ctx context.Context, owner, repo string, pullRequestOrIssueNumber int, label string) error {
	_, err := clt.restClt.Issues.RemoveLabelForIssue(
		ctx,
		owner,
		repo,
		pullRequestOrIssueNumber,
		label,
	)
	if err == nil {
		return nil
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound {
		clt.logger.Debug("removing label returned a not found response",
			logfields.RepositoryOwner(owner),
			logfields.Repository(repo),
			logfields.PullRequest(pullRequestOrIssueNumber),
			logfields.Label(label),
			logfields.Event("github_remove_label_returned_not_found"),
			zap.Error(err),
		)

		return fmt.Errorf("%w: %s", ErrLabelNotFound, err)
	}

	return clt.wrapRetryableErrors(err)
}

// IssueIterator iterates over issue search results.
type IssueIterator interface {
	Next() (*github.Issue, error)
}

// SearchIter is an IssueIterator that fetches the next page of search
// results from GitHub when the results of the current page were consumed.
type SearchIter struct {
	clt *Client

	ctx   context.Context
	query string

	sort  string
	order string

	unseen []*github.Issue

	nextPage int
	finished bool
}

// Next returns the next issue.
// When the last result was returned a nil Issue is returned.
func (it *SearchIter) Next() (*github.Issue, error) {
	if len(it.unseen) > 0 {
		result := it.unseen[0]
		it.unseen = it.unseen[1:]

		return result, nil
	}

	if it.finished {
		return nil, nil
	}

	res, resp, err := it.clt.restClt.Search.Issues(it.ctx, it.query, &github.SearchOptions{
		Sort:  it.sort,
		Order: it.order,
		ListOptions: github.ListOptions{
			Page:    it.nextPage,
			PerPage: 100,
		},
	})
	if err != nil {
		return nil, it.clt.wrapRetryableErrors(err)
	}

	if resp.NextPage == 0 || len(res.Issues) == 0 {
		it.finished = true
	} else {
		it.nextPage = resp.NextPage
	}

	it.unseen = res.Issues

	if len(it.unseen) == 0 {
		return nil, nil
	}

	return it.Next()
}

// SearchIssues returns an iterator over the results of an issue search
// query. The parameters sort and order expect the same values than their
// pendants in github.SearchOptions.
func (clt *Client) SearchIssues(ctx context.Context, query, sort, order string) IssueIterator { // interface is returned to make the method mockable
	return &SearchIter{
		clt:      clt,
		ctx:      ctx,
		query:    query,
		sort:     sort,
		order:    order,
		nextPage: 1,
	}
}

func (clt *Client) wrapRetryableErrors(err error) error {
	switch v := err.(type) {
	case *github.RateLimitError:
		clt.logger.Info(
			"rate limit exceeded",
			logfields.Event("github_api_rate_limit_exceeded"),
			zap.Int("github_api_rate_limit", v.Rate.Limit),
			zap.Time("github_api_rate_limit_reset_time", v.Rate.Reset.Time),
		)

		return goorderr.NewRetryableError(err, v.Rate.Reset.Time)

	case *github.ErrorResponse:
		if v.Response != nil && v.Response.StatusCode >= 500 && v.Response.StatusCode < 600 {
			return goorderr.NewRetryableAnytimeError(err)
		}
	}

	return err
}

var graphQlHTTPStatusErrRe = regexp.MustCompile(`^non-200 OK status code: ([0-9]+) .*`)

func (clt *Client) wrapGraphQLRetryableErrors(err error) error {
	matches := graphQlHTTPStatusErrRe.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return err
	}

	errcode, atoiErr := strconv.Atoi(matches[1])
	if atoiErr != nil {
		clt.logger.Info(
			"parsing http code from error string failed",
			zap.Error(atoiErr),
			zap.String("error_string", err.Error()),
			zap.String("http_errcode", matches[1]),
		)
		return err
	}

	if errcode >= 500 && errcode < 600 {
		return goorderr.NewRetryableAnytimeError(err)
	}

	return err
}
