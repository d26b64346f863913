package ledger

import "context"

// Store persists stat lines.
type Store interface {
	ListByBout(ctx context.Context, boutID string) ([]Line, error)
	// EnsureLines creates a zero line for every player that has none in the bout
	// and returns all lines of the bout. Existing lines are left untouched.
	EnsureLines(ctx context.Context, boutID string, playerIDs []string) ([]Line, error)
	UpdateLine(ctx context.Context, line Line) error
}
