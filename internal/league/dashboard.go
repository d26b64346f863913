package league

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

const (
	dashboardActivePlayers = 3
	recentPlayers          = 5
	recentTeams            = 3
	recentBouts            = 3
	recentActivityLimit    = 6
)

// Dashboard aggregates league totals, per-team membership counts and a recent activity feed.
func (s *store) Dashboard(ctx context.Context) (*Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := &Dashboard{Teams: []TeamOverview{}, Activity: []Activity{}}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM teams`, &d.Totals.Teams},
		{`SELECT COUNT(*) FROM players`, &d.Totals.Players},
		{`SELECT COUNT(*) FROM bouts`, &d.Totals.Bouts},
	}
	for _, c := range counts {
		if err := s.queryRow(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count dashboard totals: %w", err)
		}
	}
	if err := s.queryRow(ctx, `SELECT COUNT(DISTINCT player_id) FROM player_teams WHERE is_active = ?`, true).Scan(&d.Totals.ActivePlayers); err != nil {
		return nil, fmt.Errorf("failed to count active players: %w", err)
	}

	if err := s.teamOverviews(ctx, d); err != nil {
		return nil, err
	}
	if err := s.recentActivity(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *store) teamOverviews(ctx context.Context, d *Dashboard) error {
	rows, err := s.query(ctx, `
		SELECT t.id, t.name, t.logo_url, t.created_at, t.updated_at,
			COUNT(pt.id), COALESCE(SUM(CASE WHEN pt.is_active THEN 1 ELSE 0 END), 0)
		FROM teams t
		LEFT JOIN player_teams pt ON pt.team_id = t.id
		GROUP BY t.id, t.name, t.logo_url, t.created_at, t.updated_at
		ORDER BY t.name`)
	if err != nil {
		return fmt.Errorf("failed to load team overviews: %w", err)
	}
	defer rows.Close()

	index := make(map[string]int)
	for rows.Next() {
		var o TeamOverview
		var logo sql.NullString
		if err := rows.Scan(&o.ID, &o.Name, &logo, &o.CreatedAt, &o.UpdatedAt, &o.PlayerCount, &o.ActiveCount); err != nil {
			return fmt.Errorf("failed to scan team overview: %w", err)
		}
		o.LogoURL = nullString(logo)
		o.ActivePlayers = []string{}
		index[o.ID] = len(d.Teams)
		d.Teams = append(d.Teams, o)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	prows, err := s.query(ctx, `
		SELECT pt.team_id, p.derby_name
		FROM player_teams pt JOIN players p ON p.id = pt.player_id
		WHERE pt.is_active = ?
		ORDER BY p.derby_name`, true)
	if err != nil {
		return fmt.Errorf("failed to load active players: %w", err)
	}
	defer prows.Close()

	for prows.Next() {
		var teamID, name string
		if err := prows.Scan(&teamID, &name); err != nil {
			return fmt.Errorf("failed to scan active player: %w", err)
		}
		i, ok := index[teamID]
		if !ok || len(d.Teams[i].ActivePlayers) >= dashboardActivePlayers {
			continue
		}
		d.Teams[i].ActivePlayers = append(d.Teams[i].ActivePlayers, name)
	}
	return prows.Err()
}

func (s *store) recentActivity(ctx context.Context, d *Dashboard) error {
	sources := []struct {
		kind  ActivityKind
		query string
		limit int
	}{
		{ActivityPlayer, `SELECT id, derby_name, created_at FROM players ORDER BY created_at DESC LIMIT ?`, recentPlayers},
		{ActivityTeam, `SELECT id, name, created_at FROM teams ORDER BY created_at DESC LIMIT ?`, recentTeams},
		{ActivityBout, `
			SELECT b.id, h.name || ' vs ' || a.name, b.created_at
			FROM bouts b
			JOIN teams h ON h.id = b.home_team_id
			JOIN teams a ON a.id = b.away_team_id
			ORDER BY b.created_at DESC LIMIT ?`, recentBouts},
	}

	for _, src := range sources {
		rows, err := s.query(ctx, src.query, src.limit)
		if err != nil {
			return fmt.Errorf("failed to load recent %s activity: %w", src.kind, err)
		}
		for rows.Next() {
			a := Activity{Kind: src.kind}
			if err := rows.Scan(&a.ID, &a.Title, &a.CreatedAt); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan %s activity: %w", src.kind, err)
			}
			d.Activity = append(d.Activity, a)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return err
		}
	}

	sort.SliceStable(d.Activity, func(i, j int) bool {
		return d.Activity[i].CreatedAt > d.Activity[j].CreatedAt
	})
	if len(d.Activity) > recentActivityLimit {
		d.Activity = d.Activity[:recentActivityLimit]
	}
	return nil
}
