package evloop

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/itchyny/gojq"
	"go.uber.org/zap"

	"github.com/cooltabs/autorebase/internal/logfields"
	github_prov "github.com/cooltabs/autorebase/internal/provider/github"
)

// ForceRebaseHook decides if pull requests referenced by a webhook event are
// rebased also when they are up to date with their base branch.
type ForceRebaseHook struct {
	query  *gojq.Query
	logger *zap.Logger
}

// NewForceRebaseHook parses jqQuery. The query is run on the JSON payload of
// webhook events and must return a single boolean.
func NewForceRebaseHook(jqQuery string) (*ForceRebaseHook, error) {
	query, err := gojq.Parse(jqQuery)
	if err != nil {
		return nil, err
	}

	return &ForceRebaseHook{
		query:  query,
		logger: zap.L().Named(loggerName).Named("force_rebase_hook"),
	}, nil
}

// Evaluate returns the result of the query for ev.
// Evaluation errors are logged and false is returned.
func (h *ForceRebaseHook) Evaluate(ctx context.Context, ev *github_prov.Event) bool {
	result, err := h.evaluate(ctx, ev)
	if err != nil {
		h.logger.With(ev.LogFields...).Warn(
			"evaluating force rebase query failed, assuming false",
			logfields.Event("force_rebase_query_failed"),
			zap.Error(err),
		)

		return false
	}

	return result
}

func (h *ForceRebaseHook) evaluate(ctx context.Context, ev *github_prov.Event) (bool, error) {
	var evUn any

	if len(ev.JSON) == 0 {
		return false, errors.New("json field of event is empty")
	}

	if err := json.Unmarshal(ev.JSON, &evUn); err != nil {
		return false, err
	}

	return evalBool(ctx, h.query, evUn)
}
