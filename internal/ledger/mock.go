package ledger

import (
	"context"
	"fmt"
	"sync"
)

// MockStore is an in-memory Store for testing. Without spies it behaves like
// the real store, keeping one line per (player, bout).
type MockStore struct {
	mu    sync.Mutex
	lines map[string]Line
	seq   int

	// Spies for method calls
	ListByBoutFunc  func(ctx context.Context, boutID string) ([]Line, error)
	EnsureLinesFunc func(ctx context.Context, boutID string, playerIDs []string) ([]Line, error)
	UpdateLineFunc  func(ctx context.Context, line Line) error

	// Call records
	EnsureLinesCalls [][]string
	UpdateLineCalls  []Line
}

// NewMock creates a new mock instance.
func NewMock() *MockStore {
	return &MockStore{lines: make(map[string]Line)}
}

// Reset clears all call records.
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnsureLinesCalls = nil
	m.UpdateLineCalls = nil
}

// Seed stores a line as if it had been persisted earlier.
func (m *MockStore) Seed(line Line) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if line.ID == "" {
		m.seq++
		line.ID = fmt.Sprintf("line-%d", m.seq)
	}
	m.lines[line.PlayerID+"/"+line.BoutID] = line
}

func (m *MockStore) ListByBout(ctx context.Context, boutID string) ([]Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListByBoutFunc != nil {
		return m.ListByBoutFunc(ctx, boutID)
	}
	return m.byBout(boutID), nil
}

func (m *MockStore) EnsureLines(ctx context.Context, boutID string, playerIDs []string) ([]Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnsureLinesCalls = append(m.EnsureLinesCalls, playerIDs)
	if m.EnsureLinesFunc != nil {
		return m.EnsureLinesFunc(ctx, boutID, playerIDs)
	}
	for _, id := range playerIDs {
		key := id + "/" + boutID
		if _, ok := m.lines[key]; ok {
			continue
		}
		m.seq++
		m.lines[key] = Line{ID: fmt.Sprintf("line-%d", m.seq), PlayerID: id, BoutID: boutID}
	}
	return m.byBout(boutID), nil
}

func (m *MockStore) UpdateLine(ctx context.Context, line Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateLineCalls = append(m.UpdateLineCalls, line)
	if m.UpdateLineFunc != nil {
		return m.UpdateLineFunc(ctx, line)
	}
	m.lines[line.PlayerID+"/"+line.BoutID] = line
	return nil
}

// Stored returns the persisted line for a player in a bout.
func (m *MockStore) Stored(boutID, playerID string) (Line, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lines[playerID+"/"+boutID]
	return l, ok
}

func (m *MockStore) byBout(boutID string) []Line {
	var out []Line
	for _, l := range m.lines {
		if l.BoutID == boutID {
			out = append(out, l)
		}
	}
	return out
}
