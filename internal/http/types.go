package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mauv0809/derby-tracker/internal/config"
	"github.com/mauv0809/derby-tracker/internal/league"
	"github.com/mauv0809/derby-tracker/internal/live"
	"github.com/mauv0809/derby-tracker/internal/notifier"
	"github.com/mauv0809/derby-tracker/internal/pubsub"
	"github.com/mauv0809/derby-tracker/internal/roster"
	"github.com/mauv0809/derby-tracker/internal/storage"
	"github.com/mauv0809/derby-tracker/internal/tracker"
)

type Server struct {
	League         league.Store
	Rosters        *roster.Resolver
	Tracker        *tracker.Registry
	Hub            *live.Hub
	Uploader       storage.FileUploader
	Notifier       notifier.Notifier
	PubSub         pubsub.PubSubClient
	MetricsHandler http.Handler
	Cfg            config.Config
	Router         *chi.Mux
}

type liveResponse struct {
	Snapshot   tracker.Snapshot `json:"snapshot"`
	Adjustment any              `json:"adjustment,omitempty"`
	Warning    string           `json:"warning,omitempty"`
}

type jamStartRequest struct {
	Home []string `json:"home"`
	Away []string `json:"away"`
}

type adjustRequest struct {
	PlayerID string `json:"player_id"`
	Field    string `json:"field"`
	Delta    int    `json:"delta"`
}

type leadJammerRequest struct {
	PlayerID string `json:"player_id"`
}
