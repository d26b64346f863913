package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncStatAdjustment(field string)
	IncStatWriteFailure()
	IncJamsCompleted()
	IncBoutsCompleted()
	ObserveScoreFoldDuration(duration float64)
	SetActiveSessions(n int)
	IncSlackNotifSent()
	IncSlackNotifFailed()
	SetStartupTime(duration float64)
}
