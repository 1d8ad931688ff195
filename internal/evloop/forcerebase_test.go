package evloop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	github_prov "github.com/cooltabs/autorebase/internal/provider/github"
)

func TestForceRebaseHookEvaluate(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	testcases := []struct {
		name    string
		query   string
		payload string
		expect  bool
	}{
		{
			name:    "label present",
			query:   `.pull_request.labels | any(.name == "force-rebase")`,
			payload: `{"pull_request":{"labels":[{"name":"force-rebase"}]}}`,
			expect:  true,
		},
		{
			name:    "label missing",
			query:   `.pull_request.labels | any(.name == "force-rebase")`,
			payload: `{"pull_request":{"labels":[]}}`,
		},
		{
			name:    "non bool result",
			query:   `.action`,
			payload: `{"action":"opened"}`,
		},
		{
			name:    "query error",
			query:   `.action | keys`,
			payload: `{"action":"opened"}`,
		},
		{
			name:    "invalid json",
			query:   `true`,
			payload: `{`,
		},
		{
			name:   "empty payload",
			query:  `true`,
			expect: false,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			hook, err := NewForceRebaseHook(tc.query)
			require.NoError(t, err)

			result := hook.Evaluate(context.Background(), &github_prov.Event{JSON: []byte(tc.payload)})
			assert.Equal(t, tc.expect, result)
		})
	}
}
