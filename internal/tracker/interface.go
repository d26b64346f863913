package tracker

import (
	"context"

	"github.com/mauv0809/derby-tracker/internal/league"
	"github.com/mauv0809/derby-tracker/internal/roster"
)

// BoutStore defines the bout operations required by the tracker.
type BoutStore interface {
	GetBout(ctx context.Context, id string) (*league.BoutWithTeams, error)
	UpdateBoutScore(ctx context.Context, id string, home, away int) error
	UpdateBoutStatus(ctx context.Context, id string, status league.BoutStatus) error
}

// RosterResolver resolves the active players of both sides of a bout.
type RosterResolver interface {
	Resolve(ctx context.Context, homeTeamID, awayTeamID string) (*roster.Rosters, error)
}

// Broadcaster fans session snapshots out to everyone watching a bout.
type Broadcaster interface {
	BroadcastToRoom(roomID string, message any)
}
