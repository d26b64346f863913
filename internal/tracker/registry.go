package tracker

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
	"github.com/mauv0809/derby-tracker/internal/ledger"
	"github.com/mauv0809/derby-tracker/internal/league"
	"github.com/mauv0809/derby-tracker/internal/metrics"
	"github.com/mauv0809/derby-tracker/internal/pubsub"
	"github.com/mauv0809/derby-tracker/internal/summary"
)

// NewRegistry creates a new Registry.
func NewRegistry(store BoutStore, lines ledger.Store, resolver RosterResolver, broadcaster Broadcaster, pubsub pubsub.PubSubClient, metrics metrics.Metrics, opts Options) *Registry {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		deps: &deps{
			store:       store,
			lines:       lines,
			resolver:    resolver,
			broadcaster: broadcaster,
			pubsub:      pubsub,
			metrics:     metrics,
			clock:       clock,
			jamDuration: opts.JamDuration,
		},
		sessions: make(map[string]*Session),
	}
}

// Open returns the live session of a bout, loading it on first use. Concurrent
// opens of the same bout share a single load.
func (r *Registry) Open(ctx context.Context, boutID string) (*Session, error) {
	if s, err := r.Get(boutID); err == nil {
		return s, nil
	}

	v, err, _ := r.loads.Do(boutID, func() (any, error) {
		if s, err := r.Get(boutID); err == nil {
			return s, nil
		}
		// The load is shared, so it must outlive the request that started it.
		s, err := r.load(context.WithoutCancel(ctx), boutID)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.sessions[boutID] = s
		active := len(r.sessions)
		r.mu.Unlock()

		r.deps.metrics.SetActiveSessions(active)
		log.Info("Opened live session", "bout_id", boutID, "phase", s.phase, "active_sessions", active)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (r *Registry) load(ctx context.Context, boutID string) (*Session, error) {
	bout, err := r.deps.store.GetBout(ctx, boutID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bout %s: %w", boutID, err)
	}
	if bout.Status == league.BoutCancelled {
		return nil, fmt.Errorf("%w: %s", ErrBoutCancelled, boutID)
	}

	rosters, err := r.deps.resolver.Resolve(ctx, bout.HomeTeamID, bout.AwayTeamID)
	if err != nil {
		return nil, err
	}

	l := ledger.New(r.deps.lines, boutID)
	if _, err := l.EnsureInitialized(ctx, rosters.PlayerIDs()); err != nil {
		return nil, err
	}
	return newSession(r.deps, *bout, rosters, l), nil
}

// Get returns an already opened session.
func (r *Registry) Get(boutID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[boutID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, boutID)
	}
	return s, nil
}

// Refresh reloads the bout of an open session after it was edited elsewhere,
// so later folds build on the stored score. A bout that was cancelled,
// moved to other teams or could not be reloaded has its session closed.
func (r *Registry) Refresh(ctx context.Context, boutID string) error {
	s, err := r.Get(boutID)
	if err != nil {
		return err
	}
	keep, err := s.refresh(ctx)
	if err != nil || !keep {
		// The next Open loads the bout afresh. Close only fails when a
		// concurrent Close got there first.
		r.Close(boutID)
	}
	return err
}

// Close drops the session of a bout and stops its jam clock. Stats and scores
// already persisted are unaffected.
func (r *Registry) Close(boutID string) error {
	r.mu.Lock()
	s, ok := r.sessions[boutID]
	delete(r.sessions, boutID)
	active := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, boutID)
	}
	s.close()
	r.deps.metrics.SetActiveSessions(active)
	log.Info("Closed live session", "bout_id", boutID, "active_sessions", active)
	return nil
}

// CloseAll drops every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
	r.deps.metrics.SetActiveSessions(0)
}

// Active returns the number of open sessions.
func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Summary returns the summary of a bout. A live session is used when one is
// open; otherwise the summary is projected from the stored stat lines.
func (r *Registry) Summary(ctx context.Context, boutID string) (summary.Summary, error) {
	if s, err := r.Get(boutID); err == nil {
		return s.Summary(), nil
	}

	bout, err := r.deps.store.GetBout(ctx, boutID)
	if err != nil {
		return summary.Summary{}, fmt.Errorf("failed to load bout %s: %w", boutID, err)
	}
	rosters, err := r.deps.resolver.Resolve(ctx, bout.HomeTeamID, bout.AwayTeamID)
	if err != nil {
		return summary.Summary{}, err
	}
	stored, err := r.deps.lines.ListByBout(ctx, boutID)
	if err != nil {
		return summary.Summary{}, fmt.Errorf("failed to load stat lines: %w", err)
	}
	lines := make(map[string]ledger.Line, len(stored))
	for _, l := range stored {
		lines[l.PlayerID] = l
	}
	return summary.Project(*bout, rosters, lines), nil
}
