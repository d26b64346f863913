package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mauv0809/derby-tracker/internal/ledger"
	"github.com/mauv0809/derby-tracker/internal/league"
	"github.com/mauv0809/derby-tracker/internal/live"
	"github.com/mauv0809/derby-tracker/internal/tracker"
)

// maxStatDelta bounds a single stat adjustment.
const maxStatDelta = 1000

// session resolves the open live session of the bout in the URL.
func (s *Server) session(r *http.Request) (*tracker.Session, error) {
	return s.Tracker.Get(chi.URLParam(r, "boutID"))
}

// transition runs a session operation and writes the resulting snapshot.
func (s *Server) transition(op func(ctx context.Context, session *tracker.Session) (tracker.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.session(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		snap, err := op(r.Context(), session)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, liveResponse{Snapshot: snap})
	}
}

func (s *Server) OpenLiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.Tracker.Open(r.Context(), chi.URLParam(r, "boutID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, liveResponse{Snapshot: session.Snapshot()})
	}
}

func (s *Server) GetLiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.session(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, liveResponse{Snapshot: session.Snapshot()})
	}
}

func (s *Server) CloseLiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Tracker.Close(chi.URLParam(r, "boutID")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) OpenLineupHandler() http.HandlerFunc {
	return s.transition(func(ctx context.Context, session *tracker.Session) (tracker.Snapshot, error) {
		return session.OpenLineupSelection()
	})
}

func (s *Server) CancelLineupHandler() http.HandlerFunc {
	return s.transition(func(ctx context.Context, session *tracker.Session) (tracker.Snapshot, error) {
		return session.CancelLineupSelection()
	})
}

func (s *Server) EndJamHandler() http.HandlerFunc {
	return s.transition(func(ctx context.Context, session *tracker.Session) (tracker.Snapshot, error) {
		return session.EndJam(ctx)
	})
}

func (s *Server) EndBoutHandler() http.HandlerFunc {
	return s.transition(func(ctx context.Context, session *tracker.Session) (tracker.Snapshot, error) {
		return session.EndBout(ctx)
	})
}

// StartJamHandler starts the jam. Failing jams_played writes do not stop the
// jam; they are reported as a warning next to the snapshot.
func (s *Server) StartJamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.session(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req jamStartRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		snap, err := session.StartJam(r.Context(), req.Home, req.Away)
		resp := liveResponse{Snapshot: snap}
		switch {
		case err == nil:
		case errors.Is(err, ledger.ErrWriteFailed) && snap.Phase == tracker.PhaseJamActive:
			resp.Warning = err.Error()
		default:
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) AdjustStatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.session(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req adjustRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		field, err := ledger.ParseField(req.Field)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if req.Delta > maxStatDelta || req.Delta < -maxStatDelta {
			writeError(w, r, &league.ValidationError{Field: "delta", Message: fmt.Sprintf("delta must be between -%d and %d", maxStatDelta, maxStatDelta)})
			return
		}

		adj, err := session.Adjust(r.Context(), req.PlayerID, field, req.Delta)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, liveResponse{Snapshot: session.Snapshot(), Adjustment: adj})
	}
}

func (s *Server) ToggleLeadJammerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.session(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req leadJammerRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		adj, err := session.ToggleLeadJammer(r.Context(), req.PlayerID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, liveResponse{Snapshot: session.Snapshot(), Adjustment: adj})
	}
}

func (s *Server) LiveSummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.session(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, session.Summary())
	}
}

// WatchBoutHandler subscribes a WebSocket to the bout's snapshots, opening the
// live session when nobody has yet.
func (s *Server) WatchBoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.Tracker.Open(r.Context(), chi.URLParam(r, "boutID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.Hub.Serve(w, r, session.BoutID(), live.Message{
			Type:    tracker.MessageSnapshot,
			Payload: session.Snapshot(),
			RoomID:  session.BoutID(),
		})
	}
}
