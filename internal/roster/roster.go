// Package roster resolves the active players of both sides of a bout.
package roster

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/derby-tracker/internal/league"
	"golang.org/x/sync/errgroup"
)

// Source is the subset of the league store the resolver reads from.
type Source interface {
	ListActiveMemberships(ctx context.Context, teamID string) ([]league.Membership, error)
	GetPlayers(ctx context.Context, ids []string) ([]league.Player, error)
}

// Player is a roster entry: a player annotated with its team-scoped membership data.
type Player struct {
	ID              string          `json:"id" msgpack:"id"`
	DerbyName       string          `json:"derby_name" msgpack:"derby_name"`
	PreferredNumber string          `json:"preferred_number" msgpack:"preferred_number"`
	TeamID          string          `json:"team_id" msgpack:"team_id"`
	Number          string          `json:"number" msgpack:"number"`
	Position        league.Position `json:"position" msgpack:"position"`
	IsActive        bool            `json:"is_active" msgpack:"is_active"`
}

type Side string

const (
	SideNone Side = ""
	SideHome Side = "home"
	SideAway Side = "away"
)

// Rosters holds the active players of both teams of a bout.
type Rosters struct {
	HomeTeamID string   `json:"home_team_id"`
	AwayTeamID string   `json:"away_team_id"`
	Home       []Player `json:"home"`
	Away       []Player `json:"away"`
}

// Side reports which roster contains the player. A player rostered on both
// teams is attributed to the home side.
func (r *Rosters) Side(playerID string) Side {
	for _, p := range r.Home {
		if p.ID == playerID {
			return SideHome
		}
	}
	for _, p := range r.Away {
		if p.ID == playerID {
			return SideAway
		}
	}
	return SideNone
}

// Find returns the roster entry for a player, home side first.
func (r *Rosters) Find(playerID string) (Player, bool) {
	for _, p := range r.Home {
		if p.ID == playerID {
			return p, true
		}
	}
	for _, p := range r.Away {
		if p.ID == playerID {
			return p, true
		}
	}
	return Player{}, false
}

// Players returns the roster of one side.
func (r *Rosters) Players(side Side) []Player {
	switch side {
	case SideHome:
		return r.Home
	case SideAway:
		return r.Away
	}
	return nil
}

// PlayerIDs returns the distinct ids of every rostered player.
func (r *Rosters) PlayerIDs() []string {
	seen := make(map[string]bool, len(r.Home)+len(r.Away))
	ids := make([]string, 0, len(r.Home)+len(r.Away))
	for _, list := range [][]Player{r.Home, r.Away} {
		for _, p := range list {
			if !seen[p.ID] {
				seen[p.ID] = true
				ids = append(ids, p.ID)
			}
		}
	}
	return ids
}

type Resolver struct {
	source Source
}

func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

// Resolve fetches the active memberships of both teams, loads the referenced
// players in one batch and splices them together. Memberships whose player
// cannot be found are dropped. The operation is read-only, so callers may
// simply retry on error.
func (r *Resolver) Resolve(ctx context.Context, homeTeamID, awayTeamID string) (*Rosters, error) {
	var homeRows, awayRows []league.Membership

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.source.ListActiveMemberships(gctx, homeTeamID)
		if err != nil {
			return fmt.Errorf("failed to fetch home roster: %w", err)
		}
		homeRows = rows
		return nil
	})
	g.Go(func() error {
		rows, err := r.source.ListActiveMemberships(gctx, awayTeamID)
		if err != nil {
			return fmt.Errorf("failed to fetch away roster: %w", err)
		}
		awayRows = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := uniquePlayerIDs(homeRows, awayRows)
	players, err := r.source.GetPlayers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rostered players: %w", err)
	}
	byID := make(map[string]league.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	return &Rosters{
		HomeTeamID: homeTeamID,
		AwayTeamID: awayTeamID,
		Home:       splice(homeRows, byID),
		Away:       splice(awayRows, byID),
	}, nil
}

func uniquePlayerIDs(groups ...[]league.Membership) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, rows := range groups {
		for _, m := range rows {
			if !seen[m.PlayerID] {
				seen[m.PlayerID] = true
				ids = append(ids, m.PlayerID)
			}
		}
	}
	return ids
}

func splice(rows []league.Membership, players map[string]league.Player) []Player {
	out := make([]Player, 0, len(rows))
	for _, m := range rows {
		p, ok := players[m.PlayerID]
		if !ok {
			log.Debug("Dropping membership without player", "player_id", m.PlayerID, "team_id", m.TeamID)
			continue
		}
		out = append(out, Player{
			ID:              p.ID,
			DerbyName:       p.DerbyName,
			PreferredNumber: p.PreferredNumber,
			TeamID:          m.TeamID,
			Number:          m.Number,
			Position:        m.Position,
			IsActive:        m.IsActive,
		})
	}
	return out
}

// Team resolves the active roster of a single team.
func (r *Resolver) Team(ctx context.Context, teamID string) ([]Player, error) {
	rows, err := r.source.ListActiveMemberships(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster: %w", err)
	}
	players, err := r.source.GetPlayers(ctx, uniquePlayerIDs(rows))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rostered players: %w", err)
	}
	byID := make(map[string]league.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}
	return splice(rows, byID), nil
}
