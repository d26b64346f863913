package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/derby-tracker/internal/league"
	"gopkg.in/yaml.v3"
)

// LeagueFile is the seed document. Players and bouts refer to teams by name.
type LeagueFile struct {
	Teams   []league.TeamInput `yaml:"teams"`
	Players []SeedPlayer       `yaml:"players"`
	Bouts   []SeedBout         `yaml:"bouts"`
}

type SeedPlayer struct {
	DerbyName       string           `yaml:"derby_name"`
	PreferredNumber string           `yaml:"preferred_number"`
	Teams           []SeedAssignment `yaml:"teams"`
}

type SeedAssignment struct {
	Team     string          `yaml:"team"`
	Number   string          `yaml:"number"`
	Position league.Position `yaml:"position"`
	IsActive *bool           `yaml:"is_active"`
}

type SeedBout struct {
	Home      string            `yaml:"home"`
	Away      string            `yaml:"away"`
	Date      time.Time         `yaml:"date"`
	Venue     string            `yaml:"venue"`
	Status    league.BoutStatus `yaml:"status"`
	HomeScore *int              `yaml:"home_score"`
	AwayScore *int              `yaml:"away_score"`
	Notes     *string           `yaml:"notes"`
}

// Result counts what a seed run created.
type Result struct {
	Teams   int
	Players int
	Bouts   int
}

func parse(r io.Reader) (*LeagueFile, error) {
	var file LeagueFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse league file: %w", err)
	}
	return &file, nil
}

// seed creates the file's teams, then players, then bouts. Teams that
// already exist by name are reused, so the same file can be applied twice
// without duplicating teams.
func seed(ctx context.Context, store league.Store, file *LeagueFile) (Result, error) {
	var res Result

	existing, err := store.ListTeams(ctx)
	if err != nil {
		return res, err
	}
	teamIDs := make(map[string]string, len(existing)+len(file.Teams))
	for _, t := range existing {
		teamIDs[t.Name] = t.ID
	}

	for _, in := range file.Teams {
		if _, ok := teamIDs[in.Name]; ok {
			log.Info("Team already exists, skipping", "name", in.Name)
			continue
		}
		team, err := store.CreateTeam(ctx, in)
		if err != nil {
			return res, fmt.Errorf("team %q: %w", in.Name, err)
		}
		teamIDs[team.Name] = team.ID
		res.Teams++
	}

	lookup := func(name string) (string, error) {
		id, ok := teamIDs[name]
		if !ok {
			return "", fmt.Errorf("unknown team %q", name)
		}
		return id, nil
	}

	for _, p := range file.Players {
		in := league.PlayerInput{DerbyName: p.DerbyName, PreferredNumber: p.PreferredNumber}
		for _, a := range p.Teams {
			teamID, err := lookup(a.Team)
			if err != nil {
				return res, fmt.Errorf("player %q: %w", p.DerbyName, err)
			}
			in.Teams = append(in.Teams, league.AssignmentInput{
				TeamID:   teamID,
				Number:   a.Number,
				Position: a.Position,
				IsActive: a.IsActive,
			})
		}
		if _, err := store.CreatePlayer(ctx, in); err != nil {
			return res, fmt.Errorf("player %q: %w", p.DerbyName, err)
		}
		res.Players++
	}

	for _, b := range file.Bouts {
		homeID, err := lookup(b.Home)
		if err != nil {
			return res, fmt.Errorf("bout at %s: %w", b.Venue, err)
		}
		awayID, err := lookup(b.Away)
		if err != nil {
			return res, fmt.Errorf("bout at %s: %w", b.Venue, err)
		}
		bout, err := store.CreateBout(ctx, league.BoutInput{
			HomeTeamID: homeID,
			AwayTeamID: awayID,
			BoutDate:   b.Date.Unix(),
			Venue:      b.Venue,
			Status:     b.Status,
			HomeScore:  b.HomeScore,
			AwayScore:  b.AwayScore,
			Notes:      b.Notes,
		})
		if err != nil {
			return res, fmt.Errorf("bout %s vs %s: %w", b.Home, b.Away, err)
		}
		log.Debug("Seeded bout", "bout_id", bout.ID, "home", b.Home, "away", b.Away)
		res.Bouts++
	}
	return res, nil
}
