package tracker

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mauv0809/derby-tracker/internal/ledger"
	"github.com/mauv0809/derby-tracker/internal/league"
	"github.com/mauv0809/derby-tracker/internal/live"
	"github.com/mauv0809/derby-tracker/internal/metrics"
	"github.com/mauv0809/derby-tracker/internal/pubsub"
	"github.com/mauv0809/derby-tracker/internal/roster"
	"github.com/mauv0809/derby-tracker/internal/summary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []live.Message
}

func (b *recordingBroadcaster) BroadcastToRoom(roomID string, message any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, message.(live.Message))
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}

type fixture struct {
	store    *league.MockStore
	lines    *ledger.MockStore
	pubsub   *pubsub.MockPubSubClient
	metrics  *metrics.Mock
	clock    *clockwork.FakeClock
	hub      *recordingBroadcaster
	registry *Registry
}

var (
	homeRoster = []string{"h1", "h2", "h3", "h4", "h5", "h6"}
	awayRoster = []string{"a1", "a2", "a3"}
)

func newFixture(t *testing.T, status league.BoutStatus, jamDuration time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		store:   league.NewMock(),
		lines:   ledger.NewMock(),
		pubsub:  pubsub.NewMock(),
		metrics: metrics.NewMock(),
		clock:   clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)),
		hub:     &recordingBroadcaster{},
	}

	f.store.GetBoutFunc = func(ctx context.Context, id string) (*league.BoutWithTeams, error) {
		if id != "b1" {
			return nil, league.ErrNotFound
		}
		return &league.BoutWithTeams{
			Bout:     league.Bout{ID: "b1", HomeTeamID: "home", AwayTeamID: "away", Venue: "Rink", Status: status},
			HomeTeam: league.Team{ID: "home", Name: "Rollin' Thunder"},
			AwayTeam: league.Team{ID: "away", Name: "Derby Dolls"},
		}, nil
	}
	f.store.ListActiveMembershipsFunc = func(ctx context.Context, teamID string) ([]league.Membership, error) {
		ids := homeRoster
		if teamID == "away" {
			ids = awayRoster
		}
		var out []league.Membership
		for _, id := range ids {
			out = append(out, league.Membership{PlayerID: id, TeamID: teamID, Number: id, Position: league.PositionBlocker, IsActive: true})
		}
		return out, nil
	}
	f.store.GetPlayersFunc = func(ctx context.Context, ids []string) ([]league.Player, error) {
		var out []league.Player
		for _, id := range ids {
			out = append(out, league.Player{ID: id, DerbyName: "Skater " + id, PreferredNumber: id})
		}
		return out, nil
	}

	f.registry = NewRegistry(f.store, f.lines, roster.NewResolver(f.store), f.hub, f.pubsub, f.metrics, Options{
		Clock:       f.clock,
		JamDuration: jamDuration,
	})
	return f
}

func (f *fixture) open(t *testing.T) *Session {
	t.Helper()
	s, err := f.registry.Open(context.Background(), "b1")
	require.NoError(t, err)
	return s
}

func stored(t *testing.T, f *fixture, playerID string) ledger.Line {
	t.Helper()
	line, ok := f.lines.Stored("b1", playerID)
	require.True(t, ok, "player %s should have a stat line", playerID)
	return line
}

func TestStartJam_RejectsInvalidLineups(t *testing.T) {
	tests := []struct {
		name string
		home []string
		away []string
	}{
		{"empty home lineup", nil, []string{"a1"}},
		{"empty away lineup", []string{"h1"}, []string{}},
		{"both empty", nil, nil},
		{"more than five", homeRoster, []string{"a1"}},
		{"duplicate player", []string{"h1", "h1"}, []string{"a1"}},
		{"player on both sides", []string{"h1"}, []string{"h1"}},
		{"player not on roster", []string{"h1"}, []string{"h2"}},
		{"unknown player", []string{"nobody"}, []string{"a1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, league.BoutScheduled, 0)
			s := f.open(t)

			snap, err := s.StartJam(context.Background(), tt.home, tt.away)
			require.ErrorIs(t, err, ErrInvalidLineup)
			assert.Equal(t, PhaseSelectingLineup, snap.Phase, "rejected lineups must not change the phase")
			assert.Equal(t, 1, snap.Jam)
			assert.Empty(t, f.lines.UpdateLineCalls, "no stat is written for a rejected lineup")
			assert.Empty(t, f.store.UpdateBoutStatusCalls)
		})
	}
}

func TestStartJam_AcceptsLineupsUpToFive(t *testing.T) {
	for size := 1; size <= MaxLineupSize; size++ {
		f := newFixture(t, league.BoutScheduled, 0)
		s := f.open(t)

		home := homeRoster[:size]
		snap, err := s.StartJam(context.Background(), home, []string{"a1"})
		require.NoError(t, err, "lineup of %d should be accepted", size)
		assert.Equal(t, PhaseJamActive, snap.Phase)
		assert.Equal(t, home, snap.HomeLineup)

		for _, id := range append(slices.Clone(home), "a1") {
			assert.Equal(t, 1, stored(t, f, id).JamsPlayed, "jams_played of %s", id)
		}
		assert.Equal(t, 0, stored(t, f, "a2").JamsPlayed, "bench players are not counted")
		assert.Equal(t, size+1, f.metrics.StatAdjustments(string(ledger.FieldJamsPlayed)))
	}
}

func TestStartJam_MarksScheduledBoutInProgress(t *testing.T) {
	f := newFixture(t, league.BoutScheduled, 0)
	s := f.open(t)

	snap, err := s.StartJam(context.Background(), []string{"h1"}, []string{"a1"})
	require.NoError(t, err)
	require.Len(t, f.store.UpdateBoutStatusCalls, 1)
	assert.Equal(t, league.BoutInProgress, f.store.UpdateBoutStatusCalls[0].Status)
	assert.Equal(t, league.BoutInProgress, snap.Bout.Status)
}

func TestStartJam_ReportsJamsPlayedFailures(t *testing.T) {
	f := newFixture(t, league.BoutInProgress, 0)
	s := f.open(t)
	f.lines.UpdateLineFunc = func(ctx context.Context, line ledger.Line) error {
		if line.PlayerID == "a1" {
			return errors.New("connection reset")
		}
		return nil
	}

	snap, err := s.StartJam(context.Background(), []string{"h1"}, []string{"a1"})
	require.ErrorIs(t, err, ledger.ErrWriteFailed)
	assert.Equal(t, PhaseJamActive, snap.Phase, "the jam still starts")
	assert.Equal(t, 1, snap.Lines["h1"].JamsPlayed)
	assert.Equal(t, 0, snap.Lines["a1"].JamsPlayed, "the failed write is rolled back")
	assert.Equal(t, 1, f.metrics.StatWriteFailures())
}

func TestEndJam_FoldsTallyIntoScore(t *testing.T) {
	f := newFixture(t, league.BoutInProgress, 0)
	s := f.open(t)
	ctx := context.Background()

	_, err := s.StartJam(ctx, []string{"h1"}, []string{"a1"})
	require.NoError(t, err)

	_, err = s.Adjust(ctx, "h1", ledger.FieldPointsScored, 4)
	require.NoError(t, err)
	_, err = s.Adjust(ctx, "h1", ledger.FieldPointsScored, 4)
	require.NoError(t, err)
	assert.Empty(t, f.store.UpdateBoutScoreCalls, "scores only move at jam boundaries")

	snap, err := s.EndJam(ctx)
	require.NoError(t, err)

	assert.Equal(t, 8, stored(t, f, "h1").PointsScored)
	assert.Equal(t, 8, snap.HomeScore)
	assert.Equal(t, 0, snap.AwayScore)
	assert.Equal(t, 2, snap.Jam)
	assert.Equal(t, PhaseSelectingLineup, snap.Phase)
	assert.Empty(t, snap.JamPoints, "the tally is empty after the jam")
	assert.Empty(t, snap.HomeLineup)

	require.Len(t, f.store.UpdateBoutScoreCalls, 1)
	assert.Equal(t, 8, f.store.UpdateBoutScoreCalls[0].Home)
	assert.Equal(t, 0, f.store.UpdateBoutScoreCalls[0].Away)
	assert.Equal(t, 1, f.metrics.JamsCompleted())
	assert.Equal(t, 1, f.metrics.ScoreFolds())
}

func TestEndJam_AttributesPointsPerSide(t *testing.T) {
	f := newFixture(t, league.BoutInProgress, 0)
	s := f.open(t)
	ctx := context.Background()

	// jam 1: 5 home, 3 away
	_, err := s.StartJam(ctx, []string{"h1", "h2"}, []string{"a1"})
	require.NoError(t, err)
	for _, adj := range []struct {
		player string
		delta  int
	}{{"h1", 4}, {"a1", 3}, {"h2", 1}} {
		_, err := s.Adjust(ctx, adj.player, ledger.FieldPointsScored, adj.delta)
		require.NoError(t, err)
	}
	_, err = s.EndJam(ctx)
	require.NoError(t, err)

	// jam 2: a bench player corrects points, and a decrement is clamped at zero
	_, err = s.StartJam(ctx, []string{"h3"}, []string{"a2"})
	require.NoError(t, err)
	_, err = s.Adjust(ctx, "a3", ledger.FieldPointsScored, 2)
	require.NoError(t, err)
	_, err = s.Adjust(ctx, "h3", ledger.FieldPointsScored, -4)
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.Equal(t, map[string]int{"a3": 2}, snap.JamPoints, "a clamped adjustment adds nothing to the tally")

	snap, err = s.EndJam(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, snap.HomeScore)
	assert.Equal(t, 5, snap.AwayScore)
	assert.Equal(t, 3, snap.Jam)
}

func TestEndJam_SkipsScoreWriteWhenNothingScored(t *testing.T) {
	f := newFixture(t, league.BoutInProgress, 0)
	s := f.open(t)
	ctx := context.Background()

	_, err := s.StartJam(ctx, []string{"h1"}, []string{"a1"})
	require.NoError(t, err)
	_, err = s.Adjust(ctx, "h1", ledger.FieldPenalties, 1)
	require.NoError(t, err)

	snap, err := s.EndJam(ctx)
	require.NoError(t, err)
	assert.Empty(t, f.store.UpdateBoutScoreCalls)
	assert.Equal(t, 2, snap.Jam)
	assert.Equal(t, PhaseSelectingLineup, snap.Phase)
}

func TestEndJam_ScoreWriteFailureKeepsJamActive(t *testing.T) {
	f := newFixture(t, league.BoutInProgress, 0)
	s := f.open(t)
	ctx := context.Background()
	f.store.UpdateBoutScoreFunc = func(ctx context.Context, id string, home, away int) error {
		return errors.New("store unavailable")
	}

	_, err := s.StartJam(ctx, []string{"h1"}, []string{"a1"})
	require.NoError(t, err)
	_, err = s.Adjust(ctx, "a1", ledger.FieldPointsScored, 4)
	require.NoError(t, err)

	snap, err := s.EndJam(ctx)
	require.ErrorIs(t, err, ErrScoreWriteFailed)
	assert.Equal(t, PhaseJamActive, snap.Phase)
	assert.Equal(t, 1, snap.Jam)
	assert.Equal(t, 0, snap.AwayScore)
	assert.Equal(t, map[string]int{"a1": 4}, snap.JamPoints, "the tally survives for a retry")

	f.store.UpdateBoutScoreFunc = nil
	snap, err = s.EndJam(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, snap.AwayScore)
}

func TestEndJam_RequiresActiveJam(t *testing.T) {
	f := newFixture(t, league.BoutInProgress, 0)
	s := f.open(t)

	_, err := s.EndJam(context.Background())
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelLineupSelection(t *testing.T) {
	t.Run("first jam is left unchanged", func(t *testing.T) {
		f := newFixture(t, league.BoutInProgress, 0)
		s := f.open(t)
		before := s.Snapshot()

		snap, err := s.CancelLineupSelection()
		require.ErrorIs(t, err, ErrNoPreviousJam)
		assert.Equal(t, before.Phase, snap.Phase)
		assert.Equal(t, before.Jam, snap.Jam)
	})

	t.Run("later jam returns to the previous jam", func(t *testing.T) {
		f := newFixture(t, league.BoutInProgress, 0)
		s := f.open(t)
		ctx := context.Background()

		_, err := s.StartJam(ctx, []string{"h1"}, []string{"a1"})
		require.NoError(t, err)
		_, err = s.Adjust(ctx, "h1", ledger.FieldPointsScored, 3)
		require.NoError(t, err)
		_, err = s.EndJam(ctx)
		require.NoError(t, err)
		scoreWrites := len(f.store.UpdateBoutScoreCalls)

		snap, err := s.CancelLineupSelection()
		require.NoError(t, err)
		assert.Equal(t, 1, snap.Jam)
		assert.Equal(t, PhaseBetweenJams, snap.Phase)
		assert.Equal(t, 3, snap.HomeScore)
		assert.Len(t, f.store.UpdateBoutScoreCalls, scoreWrites, "cancelling never writes a score")

		_, err = s.StartJam(ctx, []string{"h1"}, []string{"a1"})
		require.ErrorIs(t, err, ErrInvalidTransition)

		snap, err = s.OpenLineupSelection()
		require.NoError(t, err)
		assert.Equal(t, PhaseSelectingLineup, snap.Phase)
		assert.Equal(t, 1, snap.Jam)
	})
}

func TestEndBout(t *testing.T) {
	t.Run("active jam is folded exactly once", func(t *testing.T) {
		f := newFixture(t, league.BoutInProgress, 0)
		s := f.open(t)
		ctx := context.Background()

		_, err := s.StartJam(ctx, []string{"h1"}, []string{"a1"})
		require.NoError(t, err)
		_, err = s.Adjust(ctx, "a1", ledger.FieldPointsScored, 4)
		require.NoError(t, err)

		snap, err := s.EndBout(ctx)
		require.NoError(t, err)
		assert.Equal(t, PhaseBoutComplete, snap.Phase)
		assert.Equal(t, 1, snap.Jam, "ending the bout does not advance the jam counter")
		assert.Equal(t, 4, snap.AwayScore)
		assert.Equal(t, league.BoutCompleted, snap.Bout.Status)

		require.Len(t, f.store.UpdateBoutScoreCalls, 1)
		require.Len(t, f.store.UpdateBoutStatusCalls, 1)
		assert.Equal(t, league.BoutCompleted, f.store.UpdateBoutStatusCalls[0].Status)
		assert.Equal(t, 1, f.metrics.BoutsCompleted())
		assert.Equal(t, 0, f.metrics.JamsCompleted())

		sent := f.pubsub.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, pubsub.EventBoutCompleted, sent[0].Topic)
		result, ok := sent[0].Data.(summary.Summary)
		require.True(t, ok)
		assert.Equal(t, summary.OutcomeAwayWin, result.Outcome)
		assert.Equal(t, 4, result.Away.Score)
	})

	t.Run("no active jam performs no fold", func(t *testing.T) {
		f := newFixture(t, league.BoutInProgress, 0)
		s := f.open(t)

		snap, err := s.EndBout(context.Background())
		require.NoError(t, err)
		assert.Equal(t, PhaseBoutComplete, snap.Phase)
		assert.Empty(t, f.store.UpdateBoutScoreCalls)
		require.Len(t, f.store.UpdateBoutStatusCalls, 1)
	})

	t.Run("status write failure keeps the session open", func(t *testing.T) {
		f := newFixture(t, league.BoutInProgress, 0)
		s := f.open(t)
		ctx := context.Background()
		f.store.UpdateBoutStatusFunc = func(ctx context.Context, id string, status league.BoutStatus) error {
			return errors.New("timeout")
		}

		_, err := s.StartJam(ctx, []string{"h1"}, []string{"a1"})
		require.NoError(t, err)
		snap, err := s.EndBout(ctx)
		require.ErrorIs(t, err, ErrStatusWriteFailed)
		assert.Equal(t, PhaseBetweenJams, snap.Phase)
		assert.Empty(t, f.pubsub.Sent())

		f.store.UpdateBoutStatusFunc = nil
		snap, err = s.EndBout(ctx)
		require.NoError(t, err)
		assert.Equal(t, PhaseBoutComplete, snap.Phase)
	})

	t.Run("completed bout rejects further changes", func(t *testing.T) {
		f := newFixture(t, league.BoutInProgress, 0)
		s := f.open(t)
		ctx := context.Background()

		_, err := s.EndBout(ctx)
		require.NoError(t, err)

		_, err = s.EndBout(ctx)
		assert.ErrorIs(t, err, ErrBoutComplete)
		_, err = s.Adjust(ctx, "h1", ledger.FieldBlocks, 1)
		assert.ErrorIs(t, err, ErrBoutComplete)
		_, err = s.StartJam(ctx, []string{"h1"}, []string{"a1"})
		assert.ErrorIs(t, err, ErrBoutComplete)
	})
}

func TestAdjust(t *testing.T) {
	t.Run("points outside a jam are not tallied", func(t *testing.T) {
		f := newFixture(t, league.BoutInProgress, 0)
		s := f.open(t)

		adj, err := s.Adjust(context.Background(), "h1", ledger.FieldPointsScored, 4)
		require.NoError(t, err)
		assert.Equal(t, 4, adj.After)
		assert.Empty(t, s.Snapshot().JamPoints)
	})

	t.Run("penalties are clamped at zero", func(t *testing.T) {
		f := newFixture(t, league.BoutInProgress, 0)
		s := f.open(t)

		adj, err := s.Adjust(context.Background(), "h1", ledger.FieldPenalties, -1)
		require.NoError(t, err)
		assert.Equal(t, 0, adj.After)
		assert.Equal(t, 0, stored(t, f, "h1").Penalties)
	})

	t.Run("failed write is not tallied", func(t *testing.T) {
		f := newFixture(t, league.BoutInProgress, 0)
		s := f.open(t)
		ctx := context.Background()

		_, err := s.StartJam(ctx, []string{"h1"}, []string{"a1"})
		require.NoError(t, err)
		f.lines.UpdateLineFunc = func(ctx context.Context, line ledger.Line) error {
			return errors.New("offline")
		}

		adj, err := s.Adjust(ctx, "h1", ledger.FieldPointsScored, 4)
		require.ErrorIs(t, err, ledger.ErrWriteFailed)
		assert.Equal(t, adj.Before, adj.After)
		assert.Empty(t, s.Snapshot().JamPoints)
		assert.Equal(t, 0, s.Snapshot().Lines["h1"].PointsScored)
	})

	t.Run("every change is broadcast", func(t *testing.T) {
		f := newFixture(t, league.BoutInProgress, 0)
		s := f.open(t)

		_, err := s.Adjust(context.Background(), "a2", ledger.FieldAssists, 1)
		require.NoError(t, err)
		require.Equal(t, 1, f.hub.count())
		msg := f.hub.messages[0]
		assert.Equal(t, MessageSnapshot, msg.Type)
		assert.Equal(t, "b1", msg.RoomID)
		assert.Equal(t, 1, msg.Payload.(Snapshot).Lines["a2"].Assists)
	})
}

func TestToggleLeadJammer(t *testing.T) {
	f := newFixture(t, league.BoutInProgress, 0)
	s := f.open(t)
	ctx := context.Background()

	adj, err := s.ToggleLeadJammer(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, 1, adj.After)

	adj, err = s.ToggleLeadJammer(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, 0, adj.After)

	_, err = s.ToggleLeadJammer(ctx, "nobody")
	assert.ErrorIs(t, err, ledger.ErrUnknownPlayer)
}

func TestJamClock(t *testing.T) {
	t.Run("expired jam is ended automatically", func(t *testing.T) {
		f := newFixture(t, league.BoutInProgress, 2*time.Minute)
		s := f.open(t)
		ctx := context.Background()

		snap, err := s.StartJam(ctx, []string{"h1"}, []string{"a1"})
		require.NoError(t, err)
		require.NotNil(t, snap.JamEndsAt)
		assert.Equal(t, f.clock.Now().Add(2*time.Minute), *snap.JamEndsAt)

		_, err = s.Adjust(ctx, "h1", ledger.FieldPointsScored, 4)
		require.NoError(t, err)

		f.clock.Advance(2 * time.Minute)
		require.Eventually(t, func() bool {
			return s.Snapshot().Jam == 2
		}, time.Second, 5*time.Millisecond)

		snap = s.Snapshot()
		assert.Equal(t, PhaseSelectingLineup, snap.Phase)
		assert.Equal(t, 4, snap.HomeScore)
		assert.Nil(t, snap.JamEndsAt)
	})

	t.Run("manually ended jam is not ended again", func(t *testing.T) {
		f := newFixture(t, league.BoutInProgress, 2*time.Minute)
		s := f.open(t)
		ctx := context.Background()

		_, err := s.StartJam(ctx, []string{"h1"}, []string{"a1"})
		require.NoError(t, err)
		f.clock.Advance(90 * time.Second)
		_, err = s.EndJam(ctx)
		require.NoError(t, err)
		_, err = s.StartJam(ctx, []string{"h2"}, []string{"a2"})
		require.NoError(t, err)

		// past the first jam's deadline, before the second's
		f.clock.Advance(time.Minute)
		time.Sleep(20 * time.Millisecond)
		snap := s.Snapshot()
		assert.Equal(t, 2, snap.Jam)
		assert.Equal(t, PhaseJamActive, snap.Phase)
	})

	t.Run("zero duration disables the clock", func(t *testing.T) {
		f := newFixture(t, league.BoutInProgress, 0)
		s := f.open(t)

		snap, err := s.StartJam(context.Background(), []string{"h1"}, []string{"a1"})
		require.NoError(t, err)
		assert.Nil(t, snap.JamEndsAt)
	})
}
