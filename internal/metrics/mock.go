package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                 sync.Mutex
	statAdjustments    map[string]int
	statWriteFailures  int
	jamsCompleted      int
	boutsCompleted     int
	scoreFoldDurations []float64
	activeSessions     int
	slackNotifSent     int
	slackNotifFailed   int
	startupTime        float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		statAdjustments:    make(map[string]int),
		scoreFoldDurations: make([]float64, 0),
	}
}

func (m *Mock) IncStatAdjustment(field string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statAdjustments[field]++
}

func (m *Mock) IncStatWriteFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statWriteFailures++
}

func (m *Mock) IncJamsCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jamsCompleted++
}

func (m *Mock) IncBoutsCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boutsCompleted++
}

func (m *Mock) ObserveScoreFoldDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scoreFoldDurations = append(m.scoreFoldDurations, duration)
}

func (m *Mock) SetActiveSessions(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeSessions = n
}

func (m *Mock) IncSlackNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifSent++
}

func (m *Mock) IncSlackNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifFailed++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// StatAdjustments returns how often IncStatAdjustment was called for field.
func (m *Mock) StatAdjustments(field string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statAdjustments[field]
}

func (m *Mock) StatWriteFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statWriteFailures
}

func (m *Mock) JamsCompleted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jamsCompleted
}

func (m *Mock) BoutsCompleted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.boutsCompleted
}

// ScoreFolds returns the number of observed score folds.
func (m *Mock) ScoreFolds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.scoreFoldDurations)
}

func (m *Mock) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeSessions
}

// SlackNotifSent returns the number of times IncSlackNotifSent was called.
func (m *Mock) SlackNotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifSent
}

// SlackNotifFailed returns the number of times IncSlackNotifFailed was called.
func (m *Mock) SlackNotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifFailed
}
