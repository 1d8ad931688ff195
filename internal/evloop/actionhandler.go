package evloop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"text/template"

	"github.com/itchyny/gojq"

	"github.com/cooltabs/autorebase/internal/action"
	"github.com/cooltabs/autorebase/internal/action/httprequest"
	"github.com/cooltabs/autorebase/internal/autorebase"
	"github.com/cooltabs/autorebase/internal/cfg"
	"github.com/cooltabs/autorebase/internal/stringutils"
)

// ActionEvent describes an action that was produced by the decision engine.
// It is the input for the filter query and action templates of
// ActionHandlers.
type ActionEvent struct {
	Type              string
	PullRequestNumber int
	// Error is the error message of Failed actions.
	Error           string
	DeliveryID      string
	Repository      string
	RepositoryOwner string
}

func NewActionEvent(deliveryID string, repo autorebase.Repository, a autorebase.Action) *ActionEvent {
	result := ActionEvent{
		Type:              string(a.Type()),
		PullRequestNumber: autorebase.PullRequestNumberOf(a),
		DeliveryID:        deliveryID,
		Repository:        repo.RepositoryName,
		RepositoryOwner:   repo.Owner,
	}

	if failed, ok := a.(autorebase.Failed); ok && failed.Err != nil {
		result.Error = failed.Err.Error()
	}

	return &result
}

// jqInput returns the representation of the event that filter queries are
// run on.
func (e *ActionEvent) jqInput() map[string]any {
	return map[string]any{
		"type":                e.Type,
		"pull_request_number": e.PullRequestNumber,
		"error":               e.Error,
		"delivery_id":         e.DeliveryID,
		"repository":          e.Repository,
		"repository_owner":    e.RepositoryOwner,
	}
}

// ActionConfig is an interface for an action that is executed as part of an
// ActionHandler.
type ActionConfig interface {
	// Render runs renderFunc for all configuration options of the
	// action that are templated and returns a runnable action.
	Render(renderFunc func(string) (string, error)) (action.Runner, error)
	// String returns a short representation of the ActionConfig
	String() string
	// DetailedString returns a formatted detailed description.
	DetailedString() string
}

// ActionHandler defines the condition that must apply for an ActionEvent and
// the actions that are run when it matches.
type ActionHandler struct {
	name        string
	filterQuery *gojq.Query
	actions     []ActionConfig
}

// NewActionHandler creates an ActionHandler.
// When jqQuery is empty, the handler matches all events.
func NewActionHandler(name, jqQuery string, actions []ActionConfig) (*ActionHandler, error) {
	if jqQuery == "" {
		jqQuery = "true"
	}

	query, err := gojq.Parse(jqQuery)
	if err != nil {
		return nil, err
	}

	return &ActionHandler{
		name:        name,
		filterQuery: query,
		actions:     actions,
	}, nil
}

// Match returns true if the filter query of the handler evaluates to true for
// ev.
func (h *ActionHandler) Match(ctx context.Context, ev *ActionEvent) (bool, error) {
	return evalBool(ctx, h.filterQuery, ev.jqInput())
}

var templateFuncs = template.FuncMap{
	"queryescape": url.QueryEscape,
}

func renderFunc(ev *ActionEvent) func(in string) (string, error) {
	return func(text string) (string, error) {
		templ, err := template.New("action").Funcs(templateFuncs).Parse(text)
		if err != nil {
			return "", err
		}

		var out bytes.Buffer

		templateContext := struct{ Action *ActionEvent }{
			Action: ev,
		}

		err = templ.Execute(&out, &templateContext)
		if err != nil {
			return "", err
		}

		return out.String(), nil
	}
}

// TemplateActions renders the templated configuration options of all actions
// of the handler for ev.
func (h *ActionHandler) TemplateActions(ev *ActionEvent) ([]action.Runner, error) {
	result := make([]action.Runner, 0, len(h.actions))

	for _, actionDef := range h.actions {
		runner, err := actionDef.Render(renderFunc(ev))
		if err != nil {
			return nil, fmt.Errorf("templating action definition %q failed: %w", actionDef, err)
		}

		result = append(result, runner)
	}

	return result, nil
}

// HandlersFromCfg instantiates ActionHandlers from the action_handler
// sections of the configuration.
func HandlersFromCfg(config *cfg.Config) ([]*ActionHandler, error) {
	result := make([]*ActionHandler, 0, len(config.ActionHandlers))
	seen := make(map[string]struct{}, len(config.ActionHandlers))

	for _, cfgHandler := range config.ActionHandlers {
		var actions []ActionConfig

		if cfgHandler.Name == "" {
			return nil, errors.New("action_handler: missing field: 'name'")
		}

		if _, exist := seen[cfgHandler.Name]; exist {
			return nil, fmt.Errorf("action_handler %s: name is not unique", cfgHandler.Name)
		}
		seen[cfgHandler.Name] = struct{}{}

		if len(cfgHandler.Actions) == 0 {
			return nil, fmt.Errorf("action_handler %s: missing array field: 'action'", cfgHandler.Name)
		}

		for _, cfgAction := range cfgHandler.Actions {
			val, ok := cfgAction["action"]
			if !ok {
				return nil, fmt.Errorf("action_handler %s: action: missing string field 'action'", cfgHandler.Name)
			}

			actionName, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("action_handler %s: action: action field is not a string field", cfgHandler.Name)
			}

			switch strings.ToLower(actionName) {
			case "httprequest":
				c, err := httprequest.NewConfigFromMap(cfgAction)
				if err != nil {
					return nil, fmt.Errorf(
						"action_handler %s: action %s: parsing failed: %w",
						cfgHandler.Name, actionName, err,
					)
				}

				actions = append(actions, c)

			default:
				return nil, fmt.Errorf("action_handler %s: unsupported action: %q", cfgHandler.Name, actionName)
			}
		}

		handler, err := NewActionHandler(cfgHandler.Name, cfgHandler.FilterQuery, actions)
		if err != nil {
			return nil, fmt.Errorf("action_handler %s: parsing filter_query failed: %w", cfgHandler.Name, err)
		}

		result = append(result, handler)
	}

	return result, nil
}

func (h *ActionHandler) String() string {
	return h.name
}

func (h *ActionHandler) DetailedString() string {
	var result strings.Builder

	result.WriteString(fmt.Sprintf("Name: %s\nFilterQuery: %s\n", h.name, h.filterQuery))

	for i, a := range h.actions {
		if i == 0 {
			result.WriteString("Actions:\n")
		}

		result.WriteString(stringutils.IndentString(a.DetailedString(), "  "))
	}

	return result.String()
}
