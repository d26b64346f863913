package league

import (
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/mauv0809/derby-tracker/internal/database"
)

// store handles all database operations for the league.
type store struct {
	db    *database.DB
	clock clockwork.Clock
	mu    sync.RWMutex
}

// Position is the membership-scoped role a player skates.
type Position string

const (
	PositionJammer  Position = "jammer"
	PositionPivot   Position = "pivot"
	PositionBlocker Position = "blocker"
)

func (p Position) Valid() bool {
	switch p {
	case PositionJammer, PositionPivot, PositionBlocker:
		return true
	}
	return false
}

// BoutStatus is the lifecycle state of a bout.
type BoutStatus string

const (
	BoutScheduled  BoutStatus = "scheduled"
	BoutInProgress BoutStatus = "in_progress"
	BoutCompleted  BoutStatus = "completed"
	BoutCancelled  BoutStatus = "cancelled"
)

func (s BoutStatus) Valid() bool {
	switch s {
	case BoutScheduled, BoutInProgress, BoutCompleted, BoutCancelled:
		return true
	}
	return false
}

type Team struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	LogoURL   *string `json:"logo_url,omitempty"`
	CreatedAt int64   `json:"created_at"`
	UpdatedAt int64   `json:"updated_at"`
}

type Player struct {
	ID              string `json:"id"`
	DerbyName       string `json:"derby_name"`
	PreferredNumber string `json:"preferred_number"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
}

// Membership is a player_teams row. Number and position belong to the membership,
// not the player.
type Membership struct {
	ID         string   `json:"id"`
	PlayerID   string   `json:"player_id"`
	TeamID     string   `json:"team_id"`
	Number     string   `json:"number"`
	Position   Position `json:"position"`
	IsActive   bool     `json:"is_active"`
	JoinedDate int64    `json:"joined_date"`
	CreatedAt  int64    `json:"created_at"`
	UpdatedAt  int64    `json:"updated_at"`
}

// TeamAssignment is a membership as seen from the player's side.
type TeamAssignment struct {
	TeamID   string   `json:"team_id"`
	TeamName string   `json:"team_name"`
	Number   string   `json:"number"`
	Position Position `json:"position"`
	IsActive bool     `json:"is_active"`
}

type PlayerWithTeams struct {
	Player
	Teams []TeamAssignment `json:"teams"`
}

type Bout struct {
	ID         string     `json:"id"`
	HomeTeamID string     `json:"home_team_id"`
	AwayTeamID string     `json:"away_team_id"`
	BoutDate   int64      `json:"bout_date"`
	Venue      string     `json:"venue"`
	HomeScore  *int       `json:"home_score"`
	AwayScore  *int       `json:"away_score"`
	Status     BoutStatus `json:"status"`
	Notes      *string    `json:"notes,omitempty"`
	CreatedAt  int64      `json:"created_at"`
	UpdatedAt  int64      `json:"updated_at"`
}

// Scores returns the running scores, treating absent values as zero.
func (b Bout) Scores() (home, away int) {
	if b.HomeScore != nil {
		home = *b.HomeScore
	}
	if b.AwayScore != nil {
		away = *b.AwayScore
	}
	return home, away
}

// BoutWithTeams is a bout with its home and away teams expanded.
type BoutWithTeams struct {
	Bout
	HomeTeam Team `json:"home_team"`
	AwayTeam Team `json:"away_team"`
}

type TeamInput struct {
	Name    string  `json:"name" yaml:"name"`
	LogoURL *string `json:"logo_url,omitempty" yaml:"logo_url,omitempty"`
}

func (in *TeamInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return invalid("name", "team name is required")
	}
	if in.LogoURL != nil && strings.TrimSpace(*in.LogoURL) == "" {
		in.LogoURL = nil
	}
	return nil
}

type AssignmentInput struct {
	TeamID   string   `json:"team_id" yaml:"team_id"`
	Number   string   `json:"number" yaml:"number"`
	Position Position `json:"position" yaml:"position"`
	IsActive *bool    `json:"is_active,omitempty" yaml:"is_active,omitempty"`
}

func (a AssignmentInput) active() bool {
	return a.IsActive == nil || *a.IsActive
}

type PlayerInput struct {
	DerbyName       string            `json:"derby_name" yaml:"derby_name"`
	PreferredNumber string            `json:"preferred_number" yaml:"preferred_number"`
	Teams           []AssignmentInput `json:"teams" yaml:"teams"`
}

func (in *PlayerInput) Validate() error {
	in.DerbyName = strings.TrimSpace(in.DerbyName)
	in.PreferredNumber = strings.TrimSpace(in.PreferredNumber)
	if in.DerbyName == "" {
		return invalid("derby_name", "derby name is required")
	}
	if in.PreferredNumber == "" {
		return invalid("preferred_number", "preferred number is required")
	}
	if len(in.Teams) == 0 {
		return invalid("teams", "at least one team assignment is required")
	}
	seen := make(map[string]bool, len(in.Teams))
	for i := range in.Teams {
		a := &in.Teams[i]
		a.Number = strings.TrimSpace(a.Number)
		if a.TeamID == "" {
			return invalid("teams", "team assignment is missing a team")
		}
		if seen[a.TeamID] {
			return invalid("teams", "player is assigned to the same team twice")
		}
		seen[a.TeamID] = true
		if a.Number == "" {
			a.Number = in.PreferredNumber
		}
		if !a.Position.Valid() {
			return invalid("teams", "position must be one of jammer, pivot, blocker")
		}
	}
	return nil
}

type BoutInput struct {
	HomeTeamID string     `json:"home_team_id" yaml:"home_team_id"`
	AwayTeamID string     `json:"away_team_id" yaml:"away_team_id"`
	BoutDate   int64      `json:"bout_date" yaml:"bout_date"`
	Venue      string     `json:"venue" yaml:"venue"`
	HomeScore  *int       `json:"home_score,omitempty" yaml:"home_score,omitempty"`
	AwayScore  *int       `json:"away_score,omitempty" yaml:"away_score,omitempty"`
	Status     BoutStatus `json:"status,omitempty" yaml:"status,omitempty"`
	Notes      *string    `json:"notes,omitempty" yaml:"notes,omitempty"`
}

func (in *BoutInput) Validate() error {
	in.Venue = strings.TrimSpace(in.Venue)
	switch {
	case in.HomeTeamID == "":
		return invalid("home_team_id", "home team is required")
	case in.AwayTeamID == "":
		return invalid("away_team_id", "away team is required")
	case in.HomeTeamID == in.AwayTeamID:
		return invalid("away_team_id", "home and away teams must be different")
	case in.BoutDate <= 0:
		return invalid("bout_date", "bout date is required")
	case in.Venue == "":
		return invalid("venue", "venue is required")
	case in.Status != "" && !in.Status.Valid():
		return invalid("status", "unknown bout status "+string(in.Status))
	case in.HomeScore != nil && *in.HomeScore < 0:
		return invalid("home_score", "score cannot be negative")
	case in.AwayScore != nil && *in.AwayScore < 0:
		return invalid("away_score", "score cannot be negative")
	}
	if in.Notes != nil && strings.TrimSpace(*in.Notes) == "" {
		in.Notes = nil
	}
	return nil
}

// Dashboard is the league overview shown on the landing page.
type Dashboard struct {
	Totals   Totals         `json:"totals"`
	Teams    []TeamOverview `json:"teams"`
	Activity []Activity     `json:"recent_activity"`
}

type Totals struct {
	Teams         int `json:"teams"`
	Players       int `json:"players"`
	Bouts         int `json:"bouts"`
	ActivePlayers int `json:"active_players"`
}

type TeamOverview struct {
	Team
	PlayerCount   int      `json:"player_count"`
	ActiveCount   int      `json:"active_count"`
	ActivePlayers []string `json:"active_players"`
}

type ActivityKind string

const (
	ActivityPlayer ActivityKind = "player"
	ActivityTeam   ActivityKind = "team"
	ActivityBout   ActivityKind = "bout"
)

type Activity struct {
	Kind      ActivityKind `json:"kind"`
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	CreatedAt int64        `json:"created_at"`
}
