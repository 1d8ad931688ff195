package githubclt

import (
	"context"
	"errors"

	"github.com/shurcooL/githubv4"
)

// PullRequestCommitMessages returns the messages of all commits of a pull
// request, ordered from the oldest to the newest commit.
func (clt *Client) PullRequestCommitMessages(ctx context.Context, owner, repo string, prNumber int) ([]string, error) {
	type graphQLQueryCommits struct {
		Repository struct {
			PullRequest struct {
				Commits struct {
					PageInfo struct {
						EndCursor   string
						HasNextPage bool
					}
					Nodes []struct {
						Commit struct {
							Message string
						}
					}
				} `graphql:"commits(first: $commitsFirst, after: $commitsAfter)"`
			} `graphql:"pullRequest(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}

	var result []string

	vars := map[string]any{
		"owner":        githubv4.String(owner),
		"name":         githubv4.String(repo),
		"number":       githubv4.Int(prNumber),
		"commitsFirst": githubv4.Int(100),
		"commitsAfter": (*githubv4.String)(nil),
	}

	for {
		var q graphQLQueryCommits

		err := clt.graphQLClt.Query(ctx, &q, vars)
		if err != nil {
			return nil, clt.wrapGraphQLRetryableErrors(err)
		}

		commits := q.Repository.PullRequest.Commits
		for _, node := range commits.Nodes {
			result = append(result, node.Commit.Message)
		}

		if !commits.PageInfo.HasNextPage {
			return result, nil
		}

		if commits.PageInfo.EndCursor == "" {
			return nil, errors.New("retrieving all commits failed, HasNextPage is true but EndCursor is empty")
		}

		cursor := githubv4.String(commits.PageInfo.EndCursor)
		vars["commitsAfter"] = &cursor
	}
}
