package evloop

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cooltabs/autorebase/internal/autorebase"
	"github.com/cooltabs/autorebase/internal/cfg"
)

func TestTemplateQueryEscape(t *testing.T) {
	templFunc := renderFunc(&ActionEvent{})
	res, err := templFunc(`{{ queryescape "a&b+c" }}`)
	require.NoError(t, err)
	assert.Equal(t, "a%26b%2Bc", res)
}

func TestNewActionEvent(t *testing.T) {
	repo := autorebase.Repository{Owner: "o", RepositoryName: "r"}

	ev := NewActionEvent("d1", repo, autorebase.Rebase{PullRequestNumber: 4})
	assert.Equal(t, &ActionEvent{
		Type:              "rebase",
		PullRequestNumber: 4,
		DeliveryID:        "d1",
		Repository:        "r",
		RepositoryOwner:   "o",
	}, ev)

	ev = NewActionEvent("d2", repo, autorebase.Failed{Err: errors.New("boom")})
	assert.Equal(t, "failed", ev.Type)
	assert.Equal(t, "boom", ev.Error)
	assert.Zero(t, ev.PullRequestNumber)
}

func TestActionHandlerMatch(t *testing.T) {
	ev := &ActionEvent{Type: "merge", PullRequestNumber: 12, Repository: "r", RepositoryOwner: "o"}

	testcases := []struct {
		query       string
		expectMatch bool
		expectErr   bool
	}{
		{query: "", expectMatch: true},
		{query: `.type == "merge"`, expectMatch: true},
		{query: `.type == "rebase"`},
		{query: `.pull_request_number > 10 and .repository_owner == "o"`, expectMatch: true},
		{query: `.type`, expectErr: true},
		{query: `.[]`, expectErr: true},
		{query: `empty`, expectErr: true},
	}

	for _, tc := range testcases {
		t.Run(tc.query, func(t *testing.T) {
			h, err := NewActionHandler("test", tc.query, nil)
			require.NoError(t, err)

			match, err := h.Match(context.Background(), ev)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expectMatch, match)
		})
	}
}

func TestNewActionHandlerInvalidQuery(t *testing.T) {
	_, err := NewActionHandler("test", `.type ==`, nil)
	assert.Error(t, err)
}

func TestHandlersFromCfg(t *testing.T) {
	config := cfg.Config{
		ActionHandlers: []*cfg.ActionHandler{
			{
				Name:        "notify",
				FilterQuery: `.type == "failed"`,
				Actions: []map[string]any{
					{"action": "httprequest", "url": "http://localhost/{{ .Action.Type }}"},
				},
			},
		},
	}

	handlers, err := HandlersFromCfg(&config)
	require.NoError(t, err)
	require.Len(t, handlers, 1)
	assert.Equal(t, "notify", handlers[0].String())
	assert.Contains(t, handlers[0].DetailedString(), "http-request")

	runners, err := handlers[0].TemplateActions(&ActionEvent{Type: "failed"})
	require.NoError(t, err)
	require.Len(t, runners, 1)
	assert.Contains(t, runners[0].String(), "http://localhost/failed")
}

func TestHandlersFromCfgErrors(t *testing.T) {
	testcases := map[string][]*cfg.ActionHandler{
		"unsupported action": {
			{Name: "a", Actions: []map[string]any{{"action": "updatebranch"}}},
		},
		"missing action field": {
			{Name: "a", Actions: []map[string]any{{"url": "http://localhost"}}},
		},
		"duplicate names": {
			{Name: "a", Actions: []map[string]any{{"action": "httprequest", "url": "http://localhost"}}},
			{Name: "a", Actions: []map[string]any{{"action": "httprequest", "url": "http://localhost"}}},
		},
		"invalid filter query": {
			{Name: "a", FilterQuery: "(", Actions: []map[string]any{{"action": "httprequest", "url": "http://localhost"}}},
		},
	}

	for name, handlers := range testcases {
		t.Run(name, func(t *testing.T) {
			_, err := HandlersFromCfg(&cfg.Config{ActionHandlers: handlers})
			assert.Error(t, err)
		})
	}
}

func TestTemplateActionsFailsOnInvalidTemplate(t *testing.T) {
	h := newHTTPHandler(t, "", "http://localhost/{{ .Action.Unknown }}")

	_, err := h.TemplateActions(&ActionEvent{})
	assert.Error(t, err)
}
