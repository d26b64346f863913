package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		StatAdjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "derby_stat_adjustments_total",
			Help: "The total number of persisted stat adjustments, by field.",
		}, []string{"field"}),
		StatWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "derby_stat_write_failures_total",
			Help: "The total number of stat, score or status writes that failed and were rolled back.",
		}),
		JamsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "derby_jams_completed_total",
			Help: "The total number of jams ended.",
		}),
		BoutsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "derby_bouts_completed_total",
			Help: "The total number of bouts marked completed from a live session.",
		}),
		ScoreFoldDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "derby_score_fold_duration_seconds",
			Help:    "The duration of folding a jam's points into the bout score.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "derby_live_sessions",
			Help: "The number of live bout sessions currently open.",
		}),
		SlackNotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "derby_slack_notifications_sent_total",
			Help: "The total number of Slack notifications successfully sent.",
		}),
		SlackNotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "derby_slack_notifications_failed_total",
			Help: "The total number of Slack notifications that failed to send.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "derby_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.StatAdjustments,
		s.StatWriteFailures,
		s.JamsCompleted,
		s.BoutsCompleted,
		s.ScoreFoldDuration,
		s.ActiveSessions,
		s.SlackNotifSent,
		s.SlackNotifFailed,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncStatAdjustment(field string) {
	s.StatAdjustments.WithLabelValues(field).Inc()
}

func (s *Service) IncStatWriteFailure() {
	s.StatWriteFailures.Inc()
}

func (s *Service) IncJamsCompleted() {
	s.JamsCompleted.Inc()
}

func (s *Service) IncBoutsCompleted() {
	s.BoutsCompleted.Inc()
}

func (s *Service) ObserveScoreFoldDuration(duration float64) {
	s.ScoreFoldDuration.Observe(duration)
}

func (s *Service) SetActiveSessions(n int) {
	s.ActiveSessions.Set(float64(n))
}

func (s *Service) IncSlackNotifSent() {
	s.SlackNotifSent.Inc()
}

func (s *Service) IncSlackNotifFailed() {
	s.SlackNotifFailed.Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
