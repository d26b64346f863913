package tracker

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mauv0809/derby-tracker/internal/ledger"
	"github.com/mauv0809/derby-tracker/internal/league"
	"github.com/mauv0809/derby-tracker/internal/metrics"
	"github.com/mauv0809/derby-tracker/internal/pubsub"
	"github.com/mauv0809/derby-tracker/internal/roster"
	"golang.org/x/sync/singleflight"
)

// Phase is the state of the jam cycle of a live bout.
type Phase string

const (
	PhaseSelectingLineup Phase = "selecting_lineup"
	PhaseJamActive       Phase = "jam_active"
	PhaseBetweenJams     Phase = "between_jams"
	PhaseBoutComplete    Phase = "bout_complete"
)

const (
	MaxLineupSize = 5

	// MessageSnapshot is the type of every message broadcast to bout observers.
	MessageSnapshot = "snapshot"
)

// Options configures a Registry.
type Options struct {
	Clock clockwork.Clock
	// JamDuration is how long a jam runs before it is ended automatically.
	// Zero disables the jam clock.
	JamDuration time.Duration
}

// deps is shared by the registry and every session it opens.
type deps struct {
	store       BoutStore
	lines       ledger.Store
	resolver    RosterResolver
	broadcaster Broadcaster
	pubsub      pubsub.PubSubClient
	metrics     metrics.Metrics
	clock       clockwork.Clock
	jamDuration time.Duration
}

// Registry owns the live session of every bout being tracked.
type Registry struct {
	deps *deps

	mu       sync.RWMutex
	sessions map[string]*Session
	loads    singleflight.Group
}

// Session is the live tracking state of one bout. Every observer of the bout
// shares the same session; its mutex serialises all mutations, so a stat
// adjustment can never interleave with a score fold.
type Session struct {
	deps *deps

	mu         sync.Mutex
	bout       league.BoutWithTeams
	rosters    *roster.Rosters
	ledger     *ledger.Ledger
	phase      Phase
	jam        int
	homeLineup []string
	awayLineup []string
	// tally holds the effective points_scored deltas of the active jam per player.
	tally     map[string]int
	timer     clockwork.Timer
	jamEndsAt time.Time
	closed    bool
}

// Snapshot is a consistent, serialisable view of a session.
type Snapshot struct {
	BoutID     string                 `json:"bout_id"`
	Bout       league.BoutWithTeams   `json:"bout"`
	Phase      Phase                  `json:"phase"`
	Jam        int                    `json:"jam"`
	HomeScore  int                    `json:"home_score"`
	AwayScore  int                    `json:"away_score"`
	HomeLineup []string               `json:"home_lineup"`
	AwayLineup []string               `json:"away_lineup"`
	JamPoints  map[string]int         `json:"jam_points"`
	JamEndsAt  *time.Time             `json:"jam_ends_at,omitempty"`
	Rosters    *roster.Rosters        `json:"rosters"`
	Lines      map[string]ledger.Line `json:"lines"`
}
