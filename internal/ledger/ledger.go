package ledger

import (
	"context"
	"fmt"
	"math"

	"github.com/charmbracelet/log"
)

// Ledger is the single writer of a bout's stat lines. It keeps the lines of the
// bout in memory and persists every mutation. A Ledger is not safe for
// concurrent use; the owning session serialises access.
type Ledger struct {
	store  Store
	boutID string
	lines  map[string]Line
}

func New(store Store, boutID string) *Ledger {
	return &Ledger{
		store:  store,
		boutID: boutID,
		lines:  make(map[string]Line),
	}
}

func (l *Ledger) BoutID() string {
	return l.boutID
}

// EnsureInitialized makes sure every player has exactly one stat line for the
// bout and returns the merged player id -> line map. Cached lines are kept;
// missing ones are created with a single duplicate-tolerant upsert.
func (l *Ledger) EnsureInitialized(ctx context.Context, playerIDs []string) (map[string]Line, error) {
	var missing []string
	for _, id := range playerIDs {
		if _, ok := l.lines[id]; !ok {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 || len(l.lines) == 0 {
		stored, err := l.store.EnsureLines(ctx, l.boutID, missing)
		if err != nil {
			return nil, fmt.Errorf("failed to initialise stat lines: %w", err)
		}
		for _, line := range stored {
			if _, ok := l.lines[line.PlayerID]; !ok {
				l.lines[line.PlayerID] = line
			}
		}
	}
	return l.Lines(), nil
}

// Lines returns a copy of the cached lines keyed by player id.
func (l *Ledger) Lines() map[string]Line {
	out := make(map[string]Line, len(l.lines))
	for k, v := range l.lines {
		out[k] = v
	}
	return out
}

func (l *Ledger) Line(playerID string) (Line, bool) {
	line, ok := l.lines[playerID]
	return line, ok
}

// Adjust applies max(0, current+delta) to one counter and persists the line.
// When the write fails the cached line is restored and an error wrapping
// ErrWriteFailed is returned together with the unchanged value.
func (l *Ledger) Adjust(ctx context.Context, playerID string, field Field, delta int) (Adjustment, error) {
	previous, ok := l.lines[playerID]
	if !ok {
		return Adjustment{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	if previous.counter(field) == nil {
		return Adjustment{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	before := previous.Value(field)
	after := clampedAdd(before, delta)

	updated := previous
	updated.Set(field, after)
	l.lines[playerID] = updated

	if err := l.store.UpdateLine(ctx, updated); err != nil {
		l.lines[playerID] = previous
		log.Warn("Rolled back stat adjustment", "bout_id", l.boutID, "player_id", playerID, "field", field, "error", err)
		return Adjustment{PlayerID: playerID, Field: field, Before: before, After: before},
			fmt.Errorf("%w: %s %s: %w", ErrWriteFailed, playerID, field, err)
	}

	return Adjustment{PlayerID: playerID, Field: field, Before: before, After: after}, nil
}

// clampedAdd returns max(0, current+delta), saturating instead of wrapping
// when the sum does not fit in an int.
func clampedAdd(current, delta int) int {
	switch {
	case delta > 0 && current > math.MaxInt-delta:
		return math.MaxInt
	case delta < 0 && current < math.MinInt-delta:
		return 0
	}
	return max(0, current+delta)
}
