package notifier

import (
	"sync"

	"github.com/mauv0809/derby-tracker/internal/summary"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Spies for method calls
	SendBoutResultFunc func(result *summary.Summary, dryRun bool) error

	// Call records
	SendBoutResultCalls []struct {
		Result *summary.Summary
		DryRun bool
	}
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendBoutResultCalls = nil
}

func (m *Mock) SendBoutResult(result *summary.Summary, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendBoutResultCalls = append(m.SendBoutResultCalls, struct {
		Result *summary.Summary
		DryRun bool
	}{result, dryRun})
	if m.SendBoutResultFunc != nil {
		return m.SendBoutResultFunc(result, dryRun)
	}
	return nil
}
