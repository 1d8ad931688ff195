package evloop

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/cooltabs/autorebase/internal/logfields"
)

const metricNamespace = "autorebase"

const actionHandlerRunsMetricName = "action_handler_runs_total"

const resultLabel = "result"

const (
	runResultSuccess   = "success"
	runResultFailure   = "failure"
	runResultCancelled = "cancelled"
)

type metricCollector struct {
	logger            *zap.Logger
	actionHandlerRuns *prometheus.CounterVec
}

var metrics = newMetricCollector()

func newMetricCollector() *metricCollector {
	return &metricCollector{
		logger: zap.L().Named(loggerName).Named("metrics"),
		actionHandlerRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      actionHandlerRunsMetricName,
				Help:      "count of action handler runs by result",
			},
			[]string{resultLabel},
		),
	}
}

func (m *metricCollector) ActionHandlerRunsInc(result string) {
	cnt, err := m.actionHandlerRuns.GetMetricWith(prometheus.Labels{resultLabel: result})
	if err != nil {
		m.logger.Warn(
			"could not record metric",
			zap.String("metric", actionHandlerRunsMetricName),
			logfields.Event("recording_metric_failed"),
			zap.Error(err),
		)
		return
	}

	cnt.Inc()
}
