package tracker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/derby-tracker/internal/ledger"
	"github.com/mauv0809/derby-tracker/internal/league"
	"github.com/mauv0809/derby-tracker/internal/live"
	"github.com/mauv0809/derby-tracker/internal/pubsub"
	"github.com/mauv0809/derby-tracker/internal/roster"
	"github.com/mauv0809/derby-tracker/internal/summary"
)

func newSession(d *deps, bout league.BoutWithTeams, rosters *roster.Rosters, l *ledger.Ledger) *Session {
	s := &Session{
		deps:    d,
		bout:    bout,
		rosters: rosters,
		ledger:  l,
		phase:   PhaseSelectingLineup,
		jam:     1,
		tally:   make(map[string]int),
	}
	if bout.Status == league.BoutCompleted {
		s.phase = PhaseBoutComplete
	}
	return s
}

func (s *Session) BoutID() string {
	return s.bout.ID
}

// Snapshot returns the current state of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Summary projects the bout summary from the session's current state.
func (s *Session) Summary() summary.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return summary.Project(s.bout, s.rosters, s.ledger.Lines())
}

// StartJam validates both lineups and starts the current jam. Each lineup must
// hold between 1 and MaxLineupSize distinct players from that side's roster,
// and nobody may skate for both sides. Once the jam is active every selected
// player gets one jams_played; failures of those writes are reported but do
// not undo the transition.
func (s *Session) StartJam(ctx context.Context, home, away []string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requirePhase(PhaseSelectingLineup); err != nil {
		return s.snapshotLocked(), err
	}
	if err := s.validateLineups(home, away); err != nil {
		return s.snapshotLocked(), err
	}

	s.homeLineup = slices.Clone(home)
	s.awayLineup = slices.Clone(away)
	s.tally = make(map[string]int)
	s.phase = PhaseJamActive
	s.armJamClockLocked()
	log.Info("Jam started", "bout_id", s.bout.ID, "jam", s.jam, "home", len(home), "away", len(away))

	if s.bout.Status == league.BoutScheduled {
		if err := s.deps.store.UpdateBoutStatus(ctx, s.bout.ID, league.BoutInProgress); err != nil {
			log.Warn("Failed to mark bout in progress", "bout_id", s.bout.ID, "error", err)
		} else {
			s.bout.Status = league.BoutInProgress
		}
	}

	var errs []error
	for _, id := range append(slices.Clone(home), away...) {
		if _, err := s.adjustLocked(ctx, id, ledger.FieldJamsPlayed, 1); err != nil {
			errs = append(errs, err)
		}
	}

	s.broadcastLocked()
	return s.snapshotLocked(), errors.Join(errs...)
}

// EndJam folds the jam's point tally into the bout score and moves on to the
// lineup selection of the next jam. When the score cannot be persisted the
// jam stays active so the fold can be retried.
func (s *Session) EndJam(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.endJamLocked(ctx); err != nil {
		return s.snapshotLocked(), err
	}
	s.broadcastLocked()
	return s.snapshotLocked(), nil
}

func (s *Session) endJamLocked(ctx context.Context) error {
	if err := s.requirePhase(PhaseJamActive); err != nil {
		return err
	}
	if err := s.foldLocked(ctx); err != nil {
		return err
	}
	s.stopJamClockLocked()
	log.Info("Jam ended", "bout_id", s.bout.ID, "jam", s.jam)
	s.jam++
	s.phase = PhaseSelectingLineup
	s.clearJamLocked()
	s.deps.metrics.IncJamsCompleted()
	return nil
}

// CancelLineupSelection abandons the lineup selection and returns to the view
// of the previous jam. On the first jam there is nothing to return to and the
// session is left unchanged. No score is written.
func (s *Session) CancelLineupSelection() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requirePhase(PhaseSelectingLineup); err != nil {
		return s.snapshotLocked(), err
	}
	if s.jam <= 1 {
		return s.snapshotLocked(), ErrNoPreviousJam
	}
	s.jam--
	s.phase = PhaseBetweenJams
	s.broadcastLocked()
	return s.snapshotLocked(), nil
}

// OpenLineupSelection reopens lineup selection after it was cancelled.
func (s *Session) OpenLineupSelection() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requirePhase(PhaseBetweenJams); err != nil {
		return s.snapshotLocked(), err
	}
	s.phase = PhaseSelectingLineup
	s.broadcastLocked()
	return s.snapshotLocked(), nil
}

// EndBout completes the bout. An active jam is folded first, without
// advancing the jam counter. The completed summary is published once the
// status has been persisted.
func (s *Session) EndBout(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseBoutComplete {
		return s.snapshotLocked(), ErrBoutComplete
	}

	if s.phase == PhaseJamActive {
		if err := s.foldLocked(ctx); err != nil {
			return s.snapshotLocked(), err
		}
		s.stopJamClockLocked()
		s.phase = PhaseBetweenJams
		s.clearJamLocked()
	}

	if err := s.deps.store.UpdateBoutStatus(ctx, s.bout.ID, league.BoutCompleted); err != nil {
		log.Error("Failed to complete bout", "bout_id", s.bout.ID, "error", err)
		s.broadcastLocked()
		return s.snapshotLocked(), fmt.Errorf("%w: %w", ErrStatusWriteFailed, err)
	}
	s.bout.Status = league.BoutCompleted
	s.phase = PhaseBoutComplete
	s.deps.metrics.IncBoutsCompleted()

	result := summary.Project(s.bout, s.rosters, s.ledger.Lines())
	log.Info("Bout completed", "bout_id", s.bout.ID, "home_score", result.Home.Score, "away_score", result.Away.Score, "outcome", result.Outcome)
	if err := s.deps.pubsub.SendMessage(pubsub.EventBoutCompleted, result); err != nil {
		log.Error("Failed to publish bout result", "bout_id", s.bout.ID, "error", err)
	}

	s.broadcastLocked()
	return s.snapshotLocked(), nil
}

// Adjust changes one stat counter of a player. Points scored while a jam is
// active are also added to the jam tally, using the delta that was actually
// applied after clamping.
func (s *Session) Adjust(ctx context.Context, playerID string, field ledger.Field, delta int) (ledger.Adjustment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseBoutComplete {
		return ledger.Adjustment{}, ErrBoutComplete
	}
	adj, err := s.adjustLocked(ctx, playerID, field, delta)
	if err != nil {
		return adj, err
	}
	s.broadcastLocked()
	return adj, nil
}

// ToggleLeadJammer clears the player's lead jammer count when it is set and
// grants one otherwise.
func (s *Session) ToggleLeadJammer(ctx context.Context, playerID string) (ledger.Adjustment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseBoutComplete {
		return ledger.Adjustment{}, ErrBoutComplete
	}
	line, ok := s.ledger.Line(playerID)
	if !ok {
		return ledger.Adjustment{}, fmt.Errorf("%w: %s", ledger.ErrUnknownPlayer, playerID)
	}
	delta := 1
	if current := line.LeadJammer; current > 0 {
		delta = -current
	}
	adj, err := s.adjustLocked(ctx, playerID, ledger.FieldLeadJammer, delta)
	if err != nil {
		return adj, err
	}
	s.broadcastLocked()
	return adj, nil
}

func (s *Session) adjustLocked(ctx context.Context, playerID string, field ledger.Field, delta int) (ledger.Adjustment, error) {
	adj, err := s.ledger.Adjust(ctx, playerID, field, delta)
	if err != nil {
		if errors.Is(err, ledger.ErrWriteFailed) {
			s.deps.metrics.IncStatWriteFailure()
		}
		return adj, err
	}
	s.deps.metrics.IncStatAdjustment(string(field))

	if field == ledger.FieldPointsScored && s.phase == PhaseJamActive && adj.Delta() != 0 {
		s.tally[playerID] += adj.Delta()
	}
	return adj, nil
}

// foldLocked adds the jam tally to the bout score. Nothing is written when
// neither side scored.
func (s *Session) foldLocked(ctx context.Context) error {
	start := s.deps.clock.Now()
	homePoints, awayPoints := s.jamTotalsLocked()
	if homePoints == 0 && awayPoints == 0 {
		log.Debug("Nothing to fold", "bout_id", s.bout.ID, "jam", s.jam)
		return nil
	}

	home, away := s.bout.Scores()
	home = max(0, home+homePoints)
	away = max(0, away+awayPoints)
	if err := s.deps.store.UpdateBoutScore(ctx, s.bout.ID, home, away); err != nil {
		log.Error("Failed to fold jam score", "bout_id", s.bout.ID, "jam", s.jam, "error", err)
		return fmt.Errorf("%w: %w", ErrScoreWriteFailed, err)
	}
	s.bout.HomeScore = &home
	s.bout.AwayScore = &away
	s.deps.metrics.ObserveScoreFoldDuration(s.deps.clock.Since(start).Seconds())
	log.Debug("Folded jam score", "bout_id", s.bout.ID, "jam", s.jam, "home", homePoints, "away", awayPoints)
	return nil
}

// jamTotalsLocked sums the tally per side. A player is attributed by the
// lineup they skate in, falling back to the roster that contains them.
func (s *Session) jamTotalsLocked() (home, away int) {
	for playerID, points := range s.tally {
		switch s.sideOf(playerID) {
		case roster.SideHome:
			home += points
		case roster.SideAway:
			away += points
		default:
			log.Warn("Dropping jam points of unrostered player", "bout_id", s.bout.ID, "player_id", playerID, "points", points)
		}
	}
	return home, away
}

func (s *Session) sideOf(playerID string) roster.Side {
	switch {
	case slices.Contains(s.homeLineup, playerID):
		return roster.SideHome
	case slices.Contains(s.awayLineup, playerID):
		return roster.SideAway
	}
	return s.rosters.Side(playerID)
}

func (s *Session) validateLineups(home, away []string) error {
	seen := make(map[string]roster.Side, len(home)+len(away))
	for _, lineup := range []struct {
		side roster.Side
		ids  []string
	}{{roster.SideHome, home}, {roster.SideAway, away}} {
		if len(lineup.ids) == 0 {
			return fmt.Errorf("%w: %s lineup needs at least one player", ErrInvalidLineup, lineup.side)
		}
		if len(lineup.ids) > MaxLineupSize {
			return fmt.Errorf("%w: %s lineup has %d players, at most %d are allowed", ErrInvalidLineup, lineup.side, len(lineup.ids), MaxLineupSize)
		}
		for _, id := range lineup.ids {
			if prev, ok := seen[id]; ok {
				if prev == lineup.side {
					return fmt.Errorf("%w: player %s is selected twice", ErrInvalidLineup, id)
				}
				return fmt.Errorf("%w: player %s cannot skate for both teams", ErrInvalidLineup, id)
			}
			seen[id] = lineup.side
			if !rostered(s.rosters.Players(lineup.side), id) {
				return fmt.Errorf("%w: player %s is not on the active %s roster", ErrInvalidLineup, id, lineup.side)
			}
		}
	}
	return nil
}

func rostered(players []roster.Player, id string) bool {
	return slices.ContainsFunc(players, func(p roster.Player) bool { return p.ID == id })
}

func (s *Session) requirePhase(want Phase) error {
	switch {
	case s.phase == want:
		return nil
	case s.phase == PhaseBoutComplete:
		return ErrBoutComplete
	}
	return fmt.Errorf("%w: session is %s, expected %s", ErrInvalidTransition, s.phase, want)
}

func (s *Session) clearJamLocked() {
	s.homeLineup = nil
	s.awayLineup = nil
	s.tally = make(map[string]int)
}

// armJamClockLocked starts the jam clock for the current jam. When it runs
// out while the same jam is still active the jam is ended automatically.
func (s *Session) armJamClockLocked() {
	s.stopJamClockLocked()
	if s.deps.jamDuration <= 0 {
		return
	}
	jam := s.jam
	s.jamEndsAt = s.deps.clock.Now().Add(s.deps.jamDuration)
	s.timer = s.deps.clock.AfterFunc(s.deps.jamDuration, func() {
		s.expireJam(jam)
	})
}

func (s *Session) expireJam(jam int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != PhaseJamActive || s.jam != jam {
		return
	}
	log.Info("Jam clock expired", "bout_id", s.bout.ID, "jam", jam)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.endJamLocked(ctx); err != nil {
		log.Error("Failed to end jam on expiry", "bout_id", s.bout.ID, "jam", jam, "error", err)
		return
	}
	s.broadcastLocked()
}

func (s *Session) stopJamClockLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.jamEndsAt = time.Time{}
}

// refresh replaces the cached bout with the stored one. A bout completed
// elsewhere ends the session's jam cycle without folding the open jam; a
// bout reopened elsewhere goes back to lineup selection. It reports false
// when the session can no longer track the bout.
func (s *Session) refresh(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bout, err := s.deps.store.GetBout(ctx, s.bout.ID)
	if err != nil {
		return true, fmt.Errorf("failed to reload bout %s: %w", s.bout.ID, err)
	}
	if bout.Status == league.BoutCancelled || bout.HomeTeamID != s.bout.HomeTeamID || bout.AwayTeamID != s.bout.AwayTeamID {
		log.Info("Bout can no longer be tracked live", "bout_id", s.bout.ID, "status", bout.Status)
		return false, nil
	}

	s.bout = *bout
	switch {
	case bout.Status == league.BoutCompleted && s.phase != PhaseBoutComplete:
		s.stopJamClockLocked()
		s.clearJamLocked()
		s.phase = PhaseBoutComplete
	case bout.Status != league.BoutCompleted && s.phase == PhaseBoutComplete:
		s.phase = PhaseSelectingLineup
	}
	log.Debug("Refreshed live bout", "bout_id", s.bout.ID, "phase", s.phase)
	s.broadcastLocked()
	return true, nil
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopJamClockLocked()
	s.closed = true
}

func (s *Session) broadcastLocked() {
	if s.deps.broadcaster == nil {
		return
	}
	s.deps.broadcaster.BroadcastToRoom(s.bout.ID, live.Message{
		Type:    MessageSnapshot,
		Payload: s.snapshotLocked(),
		RoomID:  s.bout.ID,
	})
}

func (s *Session) snapshotLocked() Snapshot {
	home, away := s.bout.Scores()
	tally := make(map[string]int, len(s.tally))
	for k, v := range s.tally {
		tally[k] = v
	}
	snap := Snapshot{
		BoutID:     s.bout.ID,
		Bout:       s.bout,
		Phase:      s.phase,
		Jam:        s.jam,
		HomeScore:  home,
		AwayScore:  away,
		HomeLineup: slices.Clone(s.homeLineup),
		AwayLineup: slices.Clone(s.awayLineup),
		JamPoints:  tally,
		Rosters:    s.rosters,
		Lines:      s.ledger.Lines(),
	}
	if !s.jamEndsAt.IsZero() {
		endsAt := s.jamEndsAt
		snap.JamEndsAt = &endsAt
	}
	return snap
}
