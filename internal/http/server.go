package http

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mauv0809/derby-tracker/internal/config"
	"github.com/mauv0809/derby-tracker/internal/league"
	"github.com/mauv0809/derby-tracker/internal/live"
	"github.com/mauv0809/derby-tracker/internal/notifier"
	"github.com/mauv0809/derby-tracker/internal/pubsub"
	"github.com/mauv0809/derby-tracker/internal/roster"
	"github.com/mauv0809/derby-tracker/internal/storage"
	"github.com/mauv0809/derby-tracker/internal/tracker"
)

func NewServer(store league.Store, rosters *roster.Resolver, registry *tracker.Registry, hub *live.Hub, uploader storage.FileUploader, notifier notifier.Notifier, pubsub pubsub.PubSubClient, metricsHandler http.Handler, cfg config.Config) *Server {
	server := &Server{
		League:         store,
		Rosters:        rosters,
		Tracker:        registry,
		Hub:            hub,
		Uploader:       uploader,
		Notifier:       notifier,
		PubSub:         pubsub,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Router:         chi.NewRouter(),
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.Cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s.Router.Handle("/metrics", s.MetricsHandler)
	s.Router.Get("/ws/bouts/{boutID}", s.WatchBoutHandler())

	// Everything else shares the request params middleware.
	// e.g. ?verbose=true for request-scoped debug logs, ?dry_run=true to skip Slack.
	s.Router.Group(func(r chi.Router) {
		r.Use(paramsMiddleware)

		r.Get("/health", s.HealthCheckHandler())
		r.Post("/pubsub/bout-completed", s.BoutCompletedPushHandler())

		r.Route("/api", func(r chi.Router) {
			r.Get("/dashboard", s.DashboardHandler())

			r.Route("/teams", func(r chi.Router) {
				r.Get("/", s.ListTeamsHandler())
				r.Post("/", s.CreateTeamHandler())
				r.Route("/{teamID}", func(r chi.Router) {
					r.Get("/", s.GetTeamHandler())
					r.Put("/", s.UpdateTeamHandler())
					r.Delete("/", s.DeleteTeamHandler())
					r.Post("/logo", s.UploadTeamLogoHandler())
					r.Get("/roster", s.TeamRosterHandler())
				})
			})

			r.Route("/players", func(r chi.Router) {
				r.Get("/", s.ListPlayersHandler())
				r.Post("/", s.CreatePlayerHandler())
				r.Put("/{playerID}", s.UpdatePlayerHandler())
				r.Delete("/{playerID}", s.DeletePlayerHandler())
			})

			r.Route("/bouts", func(r chi.Router) {
				r.Get("/", s.ListBoutsHandler())
				r.Post("/", s.CreateBoutHandler())
				r.Route("/{boutID}", func(r chi.Router) {
					r.Get("/", s.GetBoutHandler())
					r.Put("/", s.UpdateBoutHandler())
					r.Delete("/", s.DeleteBoutHandler())
					r.Get("/summary", s.BoutSummaryHandler())

					r.Route("/live", func(r chi.Router) {
						r.Post("/", s.OpenLiveHandler())
						r.Get("/", s.GetLiveHandler())
						r.Delete("/", s.CloseLiveHandler())
						r.Post("/lineup", s.OpenLineupHandler())
						r.Post("/lineup/cancel", s.CancelLineupHandler())
						r.Post("/jam/start", s.StartJamHandler())
						r.Post("/jam/end", s.EndJamHandler())
						r.Post("/stats", s.AdjustStatHandler())
						r.Post("/stats/lead-jammer", s.ToggleLeadJammerHandler())
						r.Post("/end", s.EndBoutHandler())
						r.Get("/summary", s.LiveSummaryHandler())
					})
				})
			})
		})
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// NewConfigErrorHandler answers every request with the configuration error.
// It is served instead of the API when the store settings are missing, so no
// data operation is ever attempted.
func NewConfigErrorHandler(cfgErr *config.MissingConfigError) http.Handler {
	body := map[string]any{
		"error":       "configuration_error",
		"message":     cfgErr.Error(),
		"missing":     cfgErr.Missing,
		"set":         cfgErr.Set,
		"remediation": cfgErr.Remediation(),
	}
	return Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Rejecting request, service is not configured", "path", r.URL.Path)
		writeJSON(w, http.StatusServiceUnavailable, body)
	}), paramsMiddleware)
}
