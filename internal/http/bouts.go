package http

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/mauv0809/derby-tracker/internal/league"
	"github.com/mauv0809/derby-tracker/internal/tracker"
)

func (s *Server) ListBoutsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bouts, err := s.League.ListBouts(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, bouts)
	}
}

func (s *Server) GetBoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bout, err := s.League.GetBout(r.Context(), chi.URLParam(r, "boutID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, bout)
	}
}

func (s *Server) CreateBoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in league.BoutInput
		if err := readJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		bout, err := s.League.CreateBout(r.Context(), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		log.Info("Bout created", "bout_id", bout.ID, "home", bout.HomeTeam.Name, "away", bout.AwayTeam.Name)
		writeJSON(w, http.StatusCreated, bout)
	}
}

func (s *Server) UpdateBoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in league.BoutInput
		if err := readJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		bout, err := s.League.UpdateBout(r.Context(), chi.URLParam(r, "boutID"), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.Tracker.Refresh(r.Context(), bout.ID); err != nil && !errors.Is(err, tracker.ErrSessionNotFound) {
			log.Warn("Failed to refresh live session of updated bout", "bout_id", bout.ID, "error", err)
		}
		writeJSON(w, http.StatusOK, bout)
	}
}

// DeleteBoutHandler deletes the bout and drops its live session, if any.
func (s *Server) DeleteBoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		boutID := chi.URLParam(r, "boutID")
		if err := s.League.DeleteBout(r.Context(), boutID); err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.Tracker.Close(boutID); err != nil && !errors.Is(err, tracker.ErrSessionNotFound) {
			log.Warn("Failed to close live session of deleted bout", "bout_id", boutID, "error", err)
		}
		log.Info("Bout deleted", "bout_id", boutID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) BoutSummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := s.Tracker.Summary(r.Context(), chi.URLParam(r, "boutID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
