package autorebase

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/cooltabs/autorebase/internal/logfields"
)

const metricNamespace = "autorebase"

const (
	processedEventsMetricName     = "processed_events_total"
	actionsMetricName             = "actions_total"
	lockContentionsMetricName     = "lock_contentions_total"
	mergeableStatePollsMetricName = "mergeable_state_polls_total"
	decisionDurationMetricName    = "decision_duration_seconds"
)

const (
	eventLabel  = "event"
	actionLabel = "action"
)

type metricCollector struct {
	logger              *zap.Logger
	processedEvents     *prometheus.CounterVec
	actions             *prometheus.CounterVec
	lockContentions     prometheus.Counter
	mergeableStatePolls prometheus.Counter
	decisionDuration    prometheus.Histogram
}

var metrics = newMetricCollector()

func newMetricCollector() *metricCollector {
	return &metricCollector{
		logger: zap.L().Named(loggerName).Named("metrics"),
		processedEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      processedEventsMetricName,
				Help:      "count of events processed by the decision engine",
			},
			[]string{eventLabel},
		),
		actions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      actionsMetricName,
				Help:      "count of actions produced by the decision engine",
			},
			[]string{actionLabel},
		),
		lockContentions: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      lockContentionsMetricName,
				Help:      "count of rebases that were aborted because the label lock was held",
			},
		),
		mergeableStatePolls: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      mergeableStatePollsMetricName,
				Help:      "count of retried pull request fetches because the mergeable state was unknown",
			},
		),
		decisionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricNamespace,
				Name:      decisionDurationMetricName,
				Help:      "duration of processing an event by the decision engine",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
	}
}

func (m *metricCollector) logGetMetricFailed(metricName string, err error) {
	m.logger.Warn(
		"could not record metric",
		zap.String("metric", metricName),
		logfields.Event("recording_metric_failed"),
		zap.Error(err),
	)
}

func (m *metricCollector) ProcessedEventsInc(name EventName) {
	cnt, err := m.processedEvents.GetMetricWith(prometheus.Labels{eventLabel: string(name)})
	if err != nil {
		m.logGetMetricFailed(processedEventsMetricName, err)
		return
	}

	cnt.Inc()
}

func (m *metricCollector) ActionsInc(actionType ActionType) {
	cnt, err := m.actions.GetMetricWith(prometheus.Labels{actionLabel: string(actionType)})
	if err != nil {
		m.logGetMetricFailed(actionsMetricName, err)
		return
	}

	cnt.Inc()
}

func (m *metricCollector) LockContentionsInc() {
	m.lockContentions.Inc()
}

func (m *metricCollector) MergeableStatePollsInc() {
	m.mergeableStatePolls.Inc()
}

func (m *metricCollector) DecisionDurationObserve(d time.Duration) {
	m.decisionDuration.Observe(d.Seconds())
}
