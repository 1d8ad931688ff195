package autorebase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v43/github"

	"github.com/cooltabs/autorebase/internal/githubclt"
)

const (
	repoOwner = "testman"
	repoName  = "repo"
	testLabel = "autorebase"
)

var testRepo = Repository{Owner: repoOwner, RepositoryName: repoName}

type fakePR struct {
	number    int
	base      string
	head      string
	sha       string
	state     MergeableState
	mergeable bool
	closed    bool
	merged    bool
	labels    map[string]struct{}
	createdAt time.Time

	// unknownFetches is the number of fetches for which the mergeable
	// state is reported as unknown.
	unknownFetches int
}

// fakeGithub is an in-memory GithubClient.
// Removing a label is atomic, only one of concurrent removals succeeds.
type fakeGithub struct {
	mu sync.Mutex

	prs         map[int]*fakePR
	permissions map[string]string

	comments        map[int][]string
	mergedPRs       []int
	deletedBranches []string
	searchQueries   []string
	fetches         map[int]int
}

func newFakeGithub(prs ...*fakePR) *fakeGithub {
	f := fakeGithub{
		prs:         map[int]*fakePR{},
		permissions: map[string]string{},
		comments:    map[int][]string{},
		fetches:     map[int]int{},
	}

	for _, pr := range prs {
		f.prs[pr.number] = pr
	}

	return &f
}

func newLabeledPR(number int, base string, state MergeableState, createdAt time.Time) *fakePR {
	return &fakePR{
		number:    number,
		base:      base,
		head:      fmt.Sprintf("pr-%d", number),
		sha:       fmt.Sprintf("%040d", number),
		state:     state,
		mergeable: state != MergeableStateDirty,
		labels:    map[string]struct{}{testLabel: {}},
		createdAt: createdAt,
	}
}

func (f *fakeGithub) hasLabel(prNumber int, label string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, exist := f.prs[prNumber].labels[label]
	return exist
}

func (f *fakeGithub) fetchCount(prNumber int) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.fetches[prNumber]
}

func (f *fakeGithub) GetPullRequest(_ context.Context, _, _ string, pullRequestNumber int) (*github.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pr, exist := f.prs[pullRequestNumber]
	if !exist {
		return nil, fmt.Errorf("pull request #%d not found", pullRequestNumber)
	}

	f.fetches[pullRequestNumber]++

	state := pr.state
	if f.fetches[pullRequestNumber] <= pr.unknownFetches {
		state = MergeableStateUnknown
	}

	result := github.PullRequest{
		Number:         github.Int(pr.number),
		Base:           &github.PullRequestBranch{Ref: github.String(pr.base)},
		Head:           &github.PullRequestBranch{Ref: github.String(pr.head), SHA: github.String(pr.sha)},
		MergeableState: github.String(string(state)),
		Mergeable:      github.Bool(pr.mergeable),
		Merged:         github.Bool(pr.merged),
		CreatedAt:      &pr.createdAt,
	}

	if pr.closed {
		closedAt := pr.createdAt.Add(time.Hour)
		result.ClosedAt = &closedAt
	}

	for l := range pr.labels {
		result.Labels = append(result.Labels, &github.Label{Name: github.String(l)})
	}

	return &result, nil
}

func (f *fakeGithub) MergePullRequest(_ context.Context, _, _ string, pullRequestNumber int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	pr := f.prs[pullRequestNumber]
	pr.merged = true
	pr.closed = true
	f.mergedPRs = append(f.mergedPRs, pullRequestNumber)

	return nil
}

func (f *fakeGithub) DeleteBranch(_ context.Context, _, _, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deletedBranches = append(f.deletedBranches, branch)
	return nil
}

func (f *fakeGithub) AddLabel(_ context.Context, _, _ string, pullRequestOrIssueNumber int, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.prs[pullRequestOrIssueNumber].labels[label] = struct{}{}
	return nil
}

func (f *fakeGithub) RemoveLabel(_ context.Context, _, _ string, pullRequestOrIssueNumber int, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	labels := f.prs[pullRequestOrIssueNumber].labels
	if _, exist := labels[label]; !exist {
		return fmt.Errorf("%w: label %q", githubclt.ErrLabelNotFound, label)
	}

	delete(labels, label)
	return nil
}

func (f *fakeGithub) CreateIssueComment(_ context.Context, _, _ string, issueOrPRNr int, comment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.comments[issueOrPRNr] = append(f.comments[issueOrPRNr], comment)
	return nil
}

func (f *fakeGithub) CollaboratorPermission(_ context.Context, _, _, username string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if perm, exist := f.permissions[username]; exist {
		return perm, nil
	}

	return "none", nil
}

// SearchIssues supports the qualifiers used by the Finder: label:, base:
// and a commit sha. Results are sorted by creation time ascending.
func (f *fakeGithub) SearchIssues(_ context.Context, query, _, _ string) githubclt.IssueIterator {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.searchQueries = append(f.searchQueries, query)

	var label, base, sha string
	for _, tok := range strings.Fields(query) {
		switch {
		case strings.HasPrefix(tok, "label:"):
			label = strings.Trim(strings.TrimPrefix(tok, "label:"), `"`)
		case strings.HasPrefix(tok, "base:"):
			base = strings.TrimPrefix(tok, "base:")
		case strings.HasPrefix(tok, "is:"), strings.HasPrefix(tok, "repo:"):
		default:
			sha = tok
		}
	}

	var matches []*fakePR
	for _, pr := range f.prs {
		if pr.closed {
			continue
		}

		if _, exist := pr.labels[label]; !exist {
			continue
		}

		if base != "" && pr.base != base {
			continue
		}

		if sha != "" && pr.sha != sha {
			continue
		}

		matches = append(matches, pr)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].createdAt.Before(matches[j].createdAt)
	})

	issues := make([]*github.Issue, 0, len(matches))
	for _, pr := range matches {
		issues = append(issues, &github.Issue{Number: github.Int(pr.number)})
	}

	return &sliceIssueIterator{issues: issues}
}

type sliceIssueIterator struct {
	issues []*github.Issue
}

func (it *sliceIssueIterator) Next() (*github.Issue, error) {
	if len(it.issues) == 0 {
		return nil, nil
	}

	result := it.issues[0]
	it.issues = it.issues[1:]

	return result, nil
}

func testBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
		MaxRetries:      10,
	}
}

func newTestEngine(clt GithubClient, rebaser Rebaser, label string, opts ...Option) *Engine {
	return NewEngine(
		clt,
		rebaser,
		label,
		append([]Option{WithSearchSettleDelay(0), WithBackoffPolicy(testBackoffPolicy())}, opts...)...,
	)
}
