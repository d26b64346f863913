package league

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const boutSelect = `
	SELECT b.id, b.home_team_id, b.away_team_id, b.bout_date, b.venue, b.home_score, b.away_score, b.status, b.notes, b.created_at, b.updated_at,
		h.id, h.name, h.logo_url, h.created_at, h.updated_at,
		a.id, a.name, a.logo_url, a.created_at, a.updated_at
	FROM bouts b
	JOIN teams h ON h.id = b.home_team_id
	JOIN teams a ON a.id = b.away_team_id`

// scanBout maps one joined bouts/teams row onto a BoutWithTeams.
func scanBout(scanner interface{ Scan(...any) error }) (BoutWithTeams, error) {
	var b BoutWithTeams
	var homeScore, awayScore sql.NullInt64
	var notes, homeLogo, awayLogo sql.NullString

	err := scanner.Scan(
		&b.ID, &b.HomeTeamID, &b.AwayTeamID, &b.BoutDate, &b.Venue, &homeScore, &awayScore, &b.Status, &notes, &b.CreatedAt, &b.UpdatedAt,
		&b.HomeTeam.ID, &b.HomeTeam.Name, &homeLogo, &b.HomeTeam.CreatedAt, &b.HomeTeam.UpdatedAt,
		&b.AwayTeam.ID, &b.AwayTeam.Name, &awayLogo, &b.AwayTeam.CreatedAt, &b.AwayTeam.UpdatedAt,
	)
	if err != nil {
		return BoutWithTeams{}, err
	}
	b.HomeScore = nullInt(homeScore)
	b.AwayScore = nullInt(awayScore)
	b.Notes = nullString(notes)
	b.HomeTeam.LogoURL = nullString(homeLogo)
	b.AwayTeam.LogoURL = nullString(awayLogo)
	return b, nil
}

// ListBouts returns all bouts with both teams expanded, newest first.
func (s *store) ListBouts(ctx context.Context) ([]BoutWithTeams, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.query(ctx, boutSelect+` ORDER BY b.bout_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bouts: %w", err)
	}
	defer rows.Close()

	bouts := []BoutWithTeams{}
	for rows.Next() {
		b, err := scanBout(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bout: %w", err)
		}
		bouts = append(bouts, b)
	}
	return bouts, rows.Err()
}

func (s *store) GetBout(ctx context.Context, id string) (*BoutWithTeams, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getBout(ctx, id)
}

func (s *store) getBout(ctx context.Context, id string) (*BoutWithTeams, error) {
	b, err := scanBout(s.queryRow(ctx, boutSelect+` WHERE b.id = ?`, id))
	if err != nil {
		return nil, notFound(err, "bout", id)
	}
	return &b, nil
}

// CreateBout schedules a new bout. Status defaults to scheduled.
func (s *store) CreateBout(ctx context.Context, in BoutInput) (*BoutWithTeams, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = BoutScheduled
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	now := s.now()
	_, err := s.exec(ctx, `
		INSERT INTO bouts (id, home_team_id, away_team_id, bout_date, venue, home_score, away_score, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.HomeTeamID, in.AwayTeamID, in.BoutDate, in.Venue, in.HomeScore, in.AwayScore, string(in.Status), in.Notes, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create bout: %w", err)
	}
	log.Debug("Created bout", "id", id, "home", in.HomeTeamID, "away", in.AwayTeamID)
	return s.getBout(ctx, id)
}

// UpdateBout replaces every editable field. An empty status keeps the current one.
func (s *store) UpdateBout(ctx context.Context, id string, in BoutInput) (*BoutWithTeams, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.getBout(ctx, id)
	if err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = existing.Status
	}

	res, err := s.exec(ctx, `
		UPDATE bouts SET home_team_id = ?, away_team_id = ?, bout_date = ?, venue = ?, home_score = ?, away_score = ?, status = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		in.HomeTeamID, in.AwayTeamID, in.BoutDate, in.Venue, in.HomeScore, in.AwayScore, string(status), in.Notes, s.now(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update bout %s: %w", id, err)
	}
	if err := expectOne(res, "bout", id); err != nil {
		return nil, err
	}
	return s.getBout(ctx, id)
}

func (s *store) UpdateBoutScore(ctx context.Context, id string, home, away int) error {
	if home < 0 || away < 0 {
		return invalid("score", "score cannot be negative")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.exec(ctx, `UPDATE bouts SET home_score = ?, away_score = ?, updated_at = ? WHERE id = ?`, home, away, s.now(), id)
	if err != nil {
		return fmt.Errorf("failed to update score for bout %s: %w", id, err)
	}
	return expectOne(res, "bout", id)
}

func (s *store) UpdateBoutStatus(ctx context.Context, id string, status BoutStatus) error {
	if !status.Valid() {
		return invalid("status", "unknown bout status "+string(status))
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.exec(ctx, `UPDATE bouts SET status = ?, updated_at = ? WHERE id = ?`, string(status), s.now(), id)
	if err != nil {
		return fmt.Errorf("failed to update status for bout %s: %w", id, err)
	}
	return expectOne(res, "bout", id)
}

// DeleteBout removes a bout; its stat lines cascade.
func (s *store) DeleteBout(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.exec(ctx, `DELETE FROM bouts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bout %s: %w", id, err)
	}
	return expectOne(res, "bout", id)
}
