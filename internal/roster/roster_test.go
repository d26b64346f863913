package roster

import (
	"context"
	"errors"
	"testing"

	"github.com/mauv0809/derby-tracker/internal/league"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSource() *league.MockStore {
	m := league.NewMock()
	m.ListActiveMembershipsFunc = func(ctx context.Context, teamID string) ([]league.Membership, error) {
		switch teamID {
		case "home":
			return []league.Membership{
				{PlayerID: "p1", TeamID: "home", Number: "12", Position: league.PositionJammer, IsActive: true},
				{PlayerID: "p2", TeamID: "home", Number: "3", Position: league.PositionBlocker, IsActive: true},
				{PlayerID: "ghost", TeamID: "home", Number: "0", Position: league.PositionPivot, IsActive: true},
			}, nil
		case "away":
			return []league.Membership{
				{PlayerID: "p3", TeamID: "away", Number: "77", Position: league.PositionJammer, IsActive: true},
				{PlayerID: "p2", TeamID: "away", Number: "30", Position: league.PositionPivot, IsActive: true},
			}, nil
		}
		return nil, nil
	}
	m.GetPlayersFunc = func(ctx context.Context, ids []string) ([]league.Player, error) {
		all := map[string]league.Player{
			"p1": {ID: "p1", DerbyName: "Jam Slam", PreferredNumber: "12"},
			"p2": {ID: "p2", DerbyName: "Two Teams", PreferredNumber: "3"},
			"p3": {ID: "p3", DerbyName: "Away Ace", PreferredNumber: "77"},
		}
		var out []league.Player
		for _, id := range ids {
			if p, ok := all[id]; ok {
				out = append(out, p)
			}
		}
		return out, nil
	}
	return m
}

func TestResolve(t *testing.T) {
	source := newSource()
	rosters, err := NewResolver(source).Resolve(context.Background(), "home", "away")
	require.NoError(t, err)

	require.Len(t, rosters.Home, 2, "memberships without a player record are dropped")
	require.Len(t, rosters.Away, 2)

	require.Len(t, source.GetPlayersCalls, 1, "players are fetched in one batch")
	assert.ElementsMatch(t, []string{"p1", "p2", "ghost", "p3"}, source.GetPlayersCalls[0])

	home2, ok := rosters.Find("p2")
	require.True(t, ok)
	assert.Equal(t, "3", home2.Number, "numbers are membership-scoped")
	assert.Equal(t, league.PositionBlocker, home2.Position)

	var away2 Player
	for _, p := range rosters.Away {
		if p.ID == "p2" {
			away2 = p
		}
	}
	assert.Equal(t, "30", away2.Number)
	assert.Equal(t, league.PositionPivot, away2.Position)

	assert.Equal(t, SideHome, rosters.Side("p1"))
	assert.Equal(t, SideHome, rosters.Side("p2"), "players on both rosters count for home")
	assert.Equal(t, SideAway, rosters.Side("p3"))
	assert.Equal(t, SideNone, rosters.Side("ghost"))
	assert.ElementsMatch(t, []string{"p1", "p2", "p3"}, rosters.PlayerIDs())
}

func TestResolve_FetchError(t *testing.T) {
	source := newSource()
	source.ListActiveMembershipsFunc = func(ctx context.Context, teamID string) ([]league.Membership, error) {
		if teamID == "away" {
			return nil, errors.New("connection reset")
		}
		return nil, nil
	}

	_, err := NewResolver(source).Resolve(context.Background(), "home", "away")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "away roster")
	assert.Empty(t, source.GetPlayersCalls)
}

func TestResolve_EmptyTeams(t *testing.T) {
	source := league.NewMock()
	rosters, err := NewResolver(source).Resolve(context.Background(), "home", "away")
	require.NoError(t, err)
	assert.Empty(t, rosters.Home)
	assert.Empty(t, rosters.Away)
	assert.Empty(t, rosters.PlayerIDs())
}

func TestTeam(t *testing.T) {
	source := newSource()
	players, err := NewResolver(source).Team(context.Background(), "away")
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "p3", players[0].ID)
	assert.Equal(t, "77", players[0].Number)
	assert.Equal(t, "away", players[1].TeamID)
	assert.Equal(t, league.PositionPivot, players[1].Position)
}
