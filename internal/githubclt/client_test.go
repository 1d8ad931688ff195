package githubclt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v43/github"
	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/cooltabs/autorebase/internal/goorderr"
)

func newRESTTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	restClt := github.NewClient(srv.Client())
	baseURL, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	restClt.BaseURL = baseURL

	return &Client{
		logger:  zap.L(),
		restClt: restClt,
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func TestWrapRetryableErrorsGraphql(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	// is the same then in vendor/github.com/shurcooL/graphql/graphql.go do()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(503)
	}))

	t.Cleanup(srv.Close)

	clt := Client{
		logger:     zap.L(),
		graphQLClt: githubv4.NewEnterpriseClient(srv.URL, srv.Client()),
	}

	msgs, err := clt.PullRequestCommitMessages(context.Background(), "test", "test", 123)
	require.Error(t, err)
	assert.Nil(t, msgs)

	var retryableErr *goorderr.RetryableError
	assert.ErrorAs(t, err, &retryableErr)
}

func TestWrapRetryableErrorsGraphqlWithNonStatusErr(t *testing.T) {
	err := errors.New("error")
	wrappedErr := (&Client{}).wrapGraphQLRetryableErrors(err)
	assert.Equal(t, err, wrappedErr)
}

func TestPullRequestCommitMessagesPaginates(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	var reqCnt int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reqCnt++
		w.Header().Set("Content-Type", "application/json")

		if reqCnt == 1 {
			fmt.Fprint(w, `{"data":{"repository":{"pullRequest":{"commits":{`+
				`"pageInfo":{"endCursor":"c1","hasNextPage":true},`+
				`"nodes":[{"commit":{"message":"first"}}]}}}}}`)
			return
		}

		fmt.Fprint(w, `{"data":{"repository":{"pullRequest":{"commits":{`+
			`"pageInfo":{"endCursor":"c2","hasNextPage":false},`+
			`"nodes":[{"commit":{"message":"fixup! first"}}]}}}}}`)
	}))
	t.Cleanup(srv.Close)

	clt := Client{
		logger:     zap.L(),
		graphQLClt: githubv4.NewEnterpriseClient(srv.URL, srv.Client()),
	}

	msgs, err := clt.PullRequestCommitMessages(context.Background(), "test", "test", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "fixup! first"}, msgs)
	assert.Equal(t, 2, reqCnt)
}

func TestRemoveLabelNotFound(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/issues/3/labels/autorebase", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Label does not exist"}`)
	})

	clt := newRESTTestClient(t, mux)

	err := clt.RemoveLabel(context.Background(), "o", "r", 3, "autorebase")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLabelNotFound)
}

func TestRemoveLabelServerErrorIsRetryable(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/issues/3/labels/autorebase", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	clt := newRESTTestClient(t, mux)

	err := clt.RemoveLabel(context.Background(), "o", "r", 3, "autorebase")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLabelNotFound)
	assert.True(t, goorderr.IsRetryable(err))
}

func TestAddLabelRejectsEmptyLabel(t *testing.T) {
	err := (&Client{}).AddLabel(context.Background(), "o", "r", 1, "")
	assert.Error(t, err)
}

func TestMergePullRequestUsesMergeCommitStrategy(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/pulls/5/merge", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)

		var body struct {
			MergeMethod string `json:"merge_method"`
		}
		require.NoError(t, decodeJSON(r, &body))
		assert.Equal(t, "merge", body.MergeMethod)

		fmt.Fprint(w, `{"merged":true,"message":"Pull Request successfully merged"}`)
	})

	clt := newRESTTestClient(t, mux)
	require.NoError(t, clt.MergePullRequest(context.Background(), "o", "r", 5))
}

func TestMergePullRequestNotMerged(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/pulls/5/merge", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"merged":false,"message":"nope"}`)
	})

	clt := newRESTTestClient(t, mux)
	assert.Error(t, clt.MergePullRequest(context.Background(), "o", "r", 5))
}

func TestDeleteBranch(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	var called bool
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/git/refs/heads/feature", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	clt := newRESTTestClient(t, mux)
	require.NoError(t, clt.DeleteBranch(context.Background(), "o", "r", "feature"))
	assert.True(t, called)
}

func TestCollaboratorPermission(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/collaborators/octocat/permission", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"permission":"write","user":{"login":"octocat"}}`)
	})

	clt := newRESTTestClient(t, mux)
	perm, err := clt.CollaboratorPermission(context.Background(), "o", "r", "octocat")
	require.NoError(t, err)
	assert.Equal(t, "write", perm)
}

func TestSearchIssuesIteratesAllPages(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/search/issues", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "created", r.URL.Query().Get("sort"))
		assert.Equal(t, "asc", r.URL.Query().Get("order"))
		assert.Equal(t, "is:pr is:open", r.URL.Query().Get("q"))

		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"total_count":3,"items":[{"number":3}]}`)
			return
		}

		w.Header().Set("Link", fmt.Sprintf(`<%s/search/issues?page=2>; rel="next", <%s/search/issues?page=2>; rel="last"`, srvURL, srvURL))
		fmt.Fprint(w, `{"total_count":3,"items":[{"number":1},{"number":2}]}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	restClt := github.NewClient(srv.Client())
	baseURL, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	restClt.BaseURL = baseURL

	clt := &Client{logger: zap.L(), restClt: restClt}

	it := clt.SearchIssues(context.Background(), "is:pr is:open", "created", "asc")

	var numbers []int
	for {
		issue, err := it.Next()
		require.NoError(t, err)
		if issue == nil {
			break
		}

		numbers = append(numbers, issue.GetNumber())
	}

	assert.Equal(t, []int{1, 2, 3}, numbers)
}
