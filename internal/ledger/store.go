package ledger

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mauv0809/derby-tracker/internal/database"
)

const lineColumns = `id, player_id, bout_id, jams_played, lead_jammer, points_scored, penalties, blocks, assists, created_at, updated_at`

// NewStore creates a player_stats Store.
func NewStore(db *database.DB, clock clockwork.Clock) Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &store{db: db, clock: clock}
}

func (s *store) ListByBout(ctx context.Context, boutID string) ([]Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listByBout(ctx, boutID)
}

func (s *store) listByBout(ctx context.Context, boutID string) ([]Line, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`SELECT `+lineColumns+` FROM player_stats WHERE bout_id = ?`), boutID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stat lines for bout %s: %w", boutID, err)
	}
	defer rows.Close()

	lines := []Line{}
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.PlayerID, &l.BoutID, &l.JamsPlayed, &l.LeadJammer, &l.PointsScored,
			&l.Penalties, &l.Blocks, &l.Assists, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stat line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// EnsureLines inserts missing zero lines keyed on (player_id, bout_id). Conflicting
// rows are skipped so concurrent initialisation never duplicates or resets a line.
func (s *store) EnsureLines(ctx context.Context, boutID string, playerIDs []string) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(playerIDs) > 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, s.db.Rebind(`
			INSERT INTO player_stats (id, player_id, bout_id, jams_played, lead_jammer, points_scored, penalties, blocks, assists, created_at, updated_at)
			VALUES (?, ?, ?, 0, 0, 0, 0, 0, 0, ?, ?)
			ON CONFLICT (player_id, bout_id) DO NOTHING`))
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to prepare stat line upsert: %w", err)
		}
		now := s.clock.Now().Unix()
		for _, playerID := range playerIDs {
			if _, err := stmt.ExecContext(ctx, uuid.NewString(), playerID, boutID, now, now); err != nil {
				stmt.Close()
				tx.Rollback()
				return nil, fmt.Errorf("failed to initialise stat line for player %s: %w", playerID, err)
			}
		}
		stmt.Close()
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit stat lines: %w", err)
		}
		log.Debug("Ensured stat lines", "bout_id", boutID, "players", len(playerIDs))
	}

	return s.listByBout(ctx, boutID)
}

// UpdateLine writes every counter of the line, keyed by the line's own id.
func (s *store) UpdateLine(ctx context.Context, line Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE player_stats
		SET jams_played = ?, lead_jammer = ?, points_scored = ?, penalties = ?, blocks = ?, assists = ?, updated_at = ?
		WHERE id = ?`),
		line.JamsPlayed, line.LeadJammer, line.PointsScored, line.Penalties, line.Blocks, line.Assists, s.clock.Now().Unix(), line.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrLineNotFound, line.ID)
	}
	return nil
}
