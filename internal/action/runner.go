// Package action defines the interface of actions that are run when the
// decision engine produced an action matching a configured handler.
package action

import (
	"context"

	"go.uber.org/zap"
)

type Runner interface {
	Run(ctx context.Context) error
	String() string
	LogFields() []zap.Field
}
