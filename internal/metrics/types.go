package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
// By defining them all in one place, we ensure consistency in naming and labeling.
type Service struct {
	StatAdjustments    *prometheus.CounterVec
	StatWriteFailures  prometheus.Counter
	JamsCompleted      prometheus.Counter
	BoutsCompleted     prometheus.Counter
	ScoreFoldDuration  prometheus.Histogram
	ActiveSessions     prometheus.Gauge
	SlackNotifSent     prometheus.Counter
	SlackNotifFailed   prometheus.Counter
	StartupTimeSeconds prometheus.Gauge
}
