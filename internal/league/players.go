package league

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/mauv0809/derby-tracker/internal/database"
)

const playerColumns = `id, derby_name, preferred_number, created_at, updated_at`

func scanPlayer(scanner interface{ Scan(...any) error }) (Player, error) {
	var p Player
	err := scanner.Scan(&p.ID, &p.DerbyName, &p.PreferredNumber, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListPlayers returns every player ordered by derby name, with their team assignments.
func (s *store) ListPlayers(ctx context.Context) ([]PlayerWithTeams, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPlayers(ctx, "")
}

func (s *store) listPlayers(ctx context.Context, onlyID string) ([]PlayerWithTeams, error) {
	q := `SELECT ` + playerColumns + ` FROM players`
	var args []any
	if onlyID != "" {
		q += ` WHERE id = ?`
		args = append(args, onlyID)
	}
	rows, err := s.query(ctx, q+` ORDER BY derby_name`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	players := []PlayerWithTeams{}
	index := make(map[string]int)
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		index[p.ID] = len(players)
		players = append(players, PlayerWithTeams{Player: p, Teams: []TeamAssignment{}})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	aq := `SELECT pt.player_id, pt.team_id, t.name, pt.number, pt.position, pt.is_active
		FROM player_teams pt JOIN teams t ON t.id = pt.team_id`
	if onlyID != "" {
		aq += ` WHERE pt.player_id = ?`
	}
	arows, err := s.query(ctx, aq+` ORDER BY t.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list team assignments: %w", err)
	}
	defer arows.Close()

	for arows.Next() {
		var playerID string
		var a TeamAssignment
		if err := arows.Scan(&playerID, &a.TeamID, &a.TeamName, &a.Number, &a.Position, &a.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan team assignment: %w", err)
		}
		if i, ok := index[playerID]; ok {
			players[i].Teams = append(players[i].Teams, a)
		}
	}
	return players, arows.Err()
}

// GetPlayers fetches the given players in one batch. Unknown ids are skipped.
func (s *store) GetPlayers(ctx context.Context, ids []string) ([]Player, error) {
	if len(ids) == 0 {
		return []Player{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.query(ctx, `SELECT `+playerColumns+` FROM players WHERE id IN (`+database.Placeholders(len(ids))+`) ORDER BY derby_name`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}
	defer rows.Close()

	players := make([]Player, 0, len(ids))
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// CreatePlayer inserts the player and its team memberships in one transaction.
func (s *store) CreatePlayer(ctx context.Context, in PlayerInput) (*PlayerWithTeams, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	now := s.now()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.db.Rebind(`INSERT INTO players (id, derby_name, preferred_number, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`),
			id, in.DerbyName, in.PreferredNumber, now, now)
		if err != nil {
			return fmt.Errorf("failed to create player: %w", err)
		}
		return s.insertMemberships(ctx, tx, id, in.Teams, now)
	})
	if err != nil {
		return nil, err
	}
	return s.getPlayerWithTeams(ctx, id)
}

// UpdatePlayer replaces the player's fields and its full set of memberships.
func (s *store) UpdatePlayer(ctx context.Context, id string, in PlayerInput) (*PlayerWithTeams, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.db.Rebind(`UPDATE players SET derby_name = ?, preferred_number = ?, updated_at = ? WHERE id = ?`),
			in.DerbyName, in.PreferredNumber, now, id)
		if err != nil {
			return fmt.Errorf("failed to update player %s: %w", id, err)
		}
		if err := expectOne(res, "player", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM player_teams WHERE player_id = ?`), id); err != nil {
			return fmt.Errorf("failed to clear memberships for player %s: %w", id, err)
		}
		return s.insertMemberships(ctx, tx, id, in.Teams, now)
	})
	if err != nil {
		return nil, err
	}
	return s.getPlayerWithTeams(ctx, id)
}

func (s *store) insertMemberships(ctx context.Context, tx *sql.Tx, playerID string, teams []AssignmentInput, now int64) error {
	stmt, err := tx.PrepareContext(ctx, s.db.Rebind(`
		INSERT INTO player_teams (id, player_id, team_id, number, position, is_active, joined_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare membership insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range teams {
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), playerID, a.TeamID, a.Number, string(a.Position), a.active(), now, now, now); err != nil {
			return fmt.Errorf("failed to add player %s to team %s: %w", playerID, a.TeamID, err)
		}
	}
	return nil
}

func (s *store) getPlayerWithTeams(ctx context.Context, id string) (*PlayerWithTeams, error) {
	players, err := s.listPlayers(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("player %s: %w", id, ErrNotFound)
	}
	return &players[0], nil
}

// DeletePlayer removes a player; memberships and stat lines cascade.
func (s *store) DeletePlayer(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.exec(ctx, `DELETE FROM players WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete player %s: %w", id, err)
	}
	return expectOne(res, "player", id)
}

// ListActiveMemberships returns the active membership rows of a team.
func (s *store) ListActiveMemberships(ctx context.Context, teamID string) ([]Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.query(ctx, `
		SELECT id, player_id, team_id, number, position, is_active, joined_date, created_at, updated_at
		FROM player_teams
		WHERE team_id = ? AND is_active = ?`, teamID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships for team %s: %w", teamID, err)
	}
	defer rows.Close()

	memberships := []Membership{}
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.ID, &m.PlayerID, &m.TeamID, &m.Number, &m.Position, &m.IsActive, &m.JoinedDate, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}
