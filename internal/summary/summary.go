// Package summary projects a finished bout into a presentation-ready result.
package summary

import (
	"github.com/mauv0809/derby-tracker/internal/ledger"
	"github.com/mauv0809/derby-tracker/internal/league"
	"github.com/mauv0809/derby-tracker/internal/roster"
)

type Outcome string

const (
	OutcomeHomeWin Outcome = "home_win"
	OutcomeAwayWin Outcome = "away_win"
	OutcomeTie     Outcome = "tie"
)

// PlayerLine is one row of the per-player breakdown.
type PlayerLine struct {
	PlayerID     string          `json:"player_id" msgpack:"player_id"`
	DerbyName    string          `json:"derby_name" msgpack:"derby_name"`
	Number       string          `json:"number" msgpack:"number"`
	Position     league.Position `json:"position" msgpack:"position"`
	JamsPlayed   int             `json:"jams_played" msgpack:"jams_played"`
	PointsScored int             `json:"points_scored" msgpack:"points_scored"`
	LeadJammer   int             `json:"lead_jammer" msgpack:"lead_jammer"`
	Penalties    int             `json:"penalties" msgpack:"penalties"`
	Blocks       int             `json:"blocks" msgpack:"blocks"`
	Assists      int             `json:"assists" msgpack:"assists"`
}

type Side struct {
	TeamID   string       `json:"team_id" msgpack:"team_id"`
	TeamName string       `json:"team_name" msgpack:"team_name"`
	LogoURL  *string      `json:"logo_url,omitempty" msgpack:"logo_url,omitempty"`
	Score    int          `json:"score" msgpack:"score"`
	Players  []PlayerLine `json:"players" msgpack:"players"`
}

type Summary struct {
	BoutID   string            `json:"bout_id" msgpack:"bout_id"`
	Status   league.BoutStatus `json:"status" msgpack:"status"`
	BoutDate int64             `json:"bout_date" msgpack:"bout_date"`
	Venue    string            `json:"venue" msgpack:"venue"`
	Home     Side              `json:"home" msgpack:"home"`
	Away     Side              `json:"away" msgpack:"away"`
	Outcome  Outcome           `json:"outcome" msgpack:"outcome"`
}

// Winner returns the winning side, or nil on a tie.
func (s *Summary) Winner() *Side {
	switch s.Outcome {
	case OutcomeHomeWin:
		return &s.Home
	case OutcomeAwayWin:
		return &s.Away
	}
	return nil
}

// Project folds a bout, its rosters and the stat lines into a Summary. Players
// without a stat line are reported with zero counters. Inputs are never mutated.
func Project(bout league.BoutWithTeams, rosters *roster.Rosters, lines map[string]ledger.Line) Summary {
	homeScore, awayScore := bout.Scores()

	s := Summary{
		BoutID:   bout.ID,
		Status:   bout.Status,
		BoutDate: bout.BoutDate,
		Venue:    bout.Venue,
		Home:     side(bout.HomeTeam, homeScore),
		Away:     side(bout.AwayTeam, awayScore),
		Outcome:  outcome(homeScore, awayScore),
	}
	if rosters != nil {
		s.Home.Players = breakdown(rosters.Home, lines)
		s.Away.Players = breakdown(rosters.Away, lines)
	}
	return s
}

func side(team league.Team, score int) Side {
	return Side{TeamID: team.ID, TeamName: team.Name, LogoURL: team.LogoURL, Score: score, Players: []PlayerLine{}}
}

func outcome(home, away int) Outcome {
	switch {
	case home > away:
		return OutcomeHomeWin
	case away > home:
		return OutcomeAwayWin
	}
	return OutcomeTie
}

func breakdown(players []roster.Player, lines map[string]ledger.Line) []PlayerLine {
	out := make([]PlayerLine, 0, len(players))
	for _, p := range players {
		line := lines[p.ID]
		out = append(out, PlayerLine{
			PlayerID:     p.ID,
			DerbyName:    p.DerbyName,
			Number:       p.Number,
			Position:     p.Position,
			JamsPlayed:   line.JamsPlayed,
			PointsScored: line.PointsScored,
			LeadJammer:   line.LeadJammer,
			Penalties:    line.Penalties,
			Blocks:       line.Blocks,
			Assists:      line.Assists,
		})
	}
	return out
}
