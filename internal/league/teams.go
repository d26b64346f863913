package league

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const teamColumns = `id, name, logo_url, created_at, updated_at`

func scanTeam(scanner interface{ Scan(...any) error }) (Team, error) {
	var t Team
	var logo sql.NullString
	if err := scanner.Scan(&t.ID, &t.Name, &logo, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Team{}, err
	}
	t.LogoURL = nullString(logo)
	return t, nil
}

// ListTeams returns every team ordered by name.
func (s *store) ListTeams(ctx context.Context) ([]Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.query(ctx, `SELECT `+teamColumns+` FROM teams ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := []Team{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (s *store) GetTeam(ctx context.Context, id string) (*Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getTeam(ctx, id)
}

func (s *store) getTeam(ctx context.Context, id string) (*Team, error) {
	t, err := scanTeam(s.queryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "team", id)
	}
	return &t, nil
}

func (s *store) CreateTeam(ctx context.Context, in TeamInput) (*Team, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t := Team{ID: uuid.NewString(), Name: in.Name, LogoURL: in.LogoURL, CreatedAt: now, UpdatedAt: now}
	_, err := s.exec(ctx, `INSERT INTO teams (id, name, logo_url, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.LogoURL, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	log.Debug("Created team", "id", t.ID, "name", t.Name)
	return &t, nil
}

// UpdateTeam edits the name and logo of an existing team.
func (s *store) UpdateTeam(ctx context.Context, id string, in TeamInput) (*Team, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.exec(ctx, `UPDATE teams SET name = ?, logo_url = ?, updated_at = ? WHERE id = ?`,
		in.Name, in.LogoURL, s.now(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update team %s: %w", id, err)
	}
	if err := expectOne(res, "team", id); err != nil {
		return nil, err
	}
	return s.getTeam(ctx, id)
}

func (s *store) SetTeamLogo(ctx context.Context, id, logoURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.exec(ctx, `UPDATE teams SET logo_url = ?, updated_at = ? WHERE id = ?`, logoURL, s.now(), id)
	if err != nil {
		return fmt.Errorf("failed to set logo for team %s: %w", id, err)
	}
	return expectOne(res, "team", id)
}

// DeleteTeam removes a team; memberships, bouts and their stat lines cascade.
func (s *store) DeleteTeam(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.exec(ctx, `DELETE FROM teams WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete team %s: %w", id, err)
	}
	return expectOne(res, "team", id)
}
