package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/mauv0809/derby-tracker/internal/database"
)

var (
	// ErrWriteFailed wraps every persistence failure of an adjustment. The
	// in-memory line has already been rolled back when it is returned.
	ErrWriteFailed   = errors.New("stat write failed")
	ErrUnknownPlayer = errors.New("player has no stat line in this bout")
	ErrUnknownField  = errors.New("unknown stat field")
	ErrLineNotFound  = errors.New("stat line not found")
)

// Field names one of the six counters of a stat line.
type Field string

const (
	FieldJamsPlayed   Field = "jams_played"
	FieldLeadJammer   Field = "lead_jammer"
	FieldPointsScored Field = "points_scored"
	FieldPenalties    Field = "penalties"
	FieldBlocks       Field = "blocks"
	FieldAssists      Field = "assists"
)

// Fields lists every counter in display order.
var Fields = []Field{FieldJamsPlayed, FieldLeadJammer, FieldPointsScored, FieldPenalties, FieldBlocks, FieldAssists}

func ParseField(s string) (Field, error) {
	for _, f := range Fields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Line is the persisted counter record for one player in one bout.
type Line struct {
	ID           string `json:"id" msgpack:"id"`
	PlayerID     string `json:"player_id" msgpack:"player_id"`
	BoutID       string `json:"bout_id" msgpack:"bout_id"`
	JamsPlayed   int    `json:"jams_played" msgpack:"jams_played"`
	LeadJammer   int    `json:"lead_jammer" msgpack:"lead_jammer"`
	PointsScored int    `json:"points_scored" msgpack:"points_scored"`
	Penalties    int    `json:"penalties" msgpack:"penalties"`
	Blocks       int    `json:"blocks" msgpack:"blocks"`
	Assists      int    `json:"assists" msgpack:"assists"`
	CreatedAt    int64  `json:"created_at" msgpack:"created_at"`
	UpdatedAt    int64  `json:"updated_at" msgpack:"updated_at"`
}

func (l *Line) counter(f Field) *int {
	switch f {
	case FieldJamsPlayed:
		return &l.JamsPlayed
	case FieldLeadJammer:
		return &l.LeadJammer
	case FieldPointsScored:
		return &l.PointsScored
	case FieldPenalties:
		return &l.Penalties
	case FieldBlocks:
		return &l.Blocks
	case FieldAssists:
		return &l.Assists
	}
	return nil
}

// Value returns the counter for f, or 0 for an unknown field.
func (l Line) Value(f Field) int {
	if c := l.counter(f); c != nil {
		return *c
	}
	return 0
}

// Set overwrites the counter for f. Unknown fields are ignored.
func (l *Line) Set(f Field, v int) {
	if c := l.counter(f); c != nil {
		*c = v
	}
}

// Adjustment reports the outcome of one clamped counter mutation.
type Adjustment struct {
	PlayerID string `json:"player_id"`
	Field    Field  `json:"field"`
	Before   int    `json:"before"`
	After    int    `json:"after"`
}

// Delta is the effective change after clamping.
func (a Adjustment) Delta() int {
	return a.After - a.Before
}

// store handles player_stats persistence.
type store struct {
	db    *database.DB
	clock clockwork.Clock
	mu    sync.RWMutex
}
