package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/mauv0809/derby-tracker/internal/league"
	"github.com/mauv0809/derby-tracker/internal/storage"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dashboard, err := s.League.Dashboard(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, dashboard)
	}
}

func (s *Server) ListTeamsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teams, err := s.League.ListTeams(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, teams)
	}
}

func (s *Server) GetTeamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team, err := s.League.GetTeam(r.Context(), chi.URLParam(r, "teamID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, team)
	}
}

func (s *Server) CreateTeamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in league.TeamInput
		if err := readJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		team, err := s.League.CreateTeam(r.Context(), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		log.Info("Team created", "team_id", team.ID, "name", team.Name)
		writeJSON(w, http.StatusCreated, team)
	}
}

func (s *Server) UpdateTeamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in league.TeamInput
		if err := readJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		team, err := s.League.UpdateTeam(r.Context(), chi.URLParam(r, "teamID"), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, team)
	}
}

func (s *Server) DeleteTeamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID := chi.URLParam(r, "teamID")
		if err := s.League.DeleteTeam(r.Context(), teamID); err != nil {
			writeError(w, r, err)
			return
		}
		log.Info("Team deleted", "team_id", teamID)
		w.WriteHeader(http.StatusNoContent)
	}
}

// UploadTeamLogoHandler stores the multipart "logo" file and points the team at it.
func (s *Server) UploadTeamLogoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		team, err := s.League.GetTeam(ctx, chi.URLParam(r, "teamID"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, storage.MaxLogoSize+64<<10)
		if err := r.ParseMultipartForm(storage.MaxLogoSize); err != nil {
			writeError(w, r, fmt.Errorf("%w: logo must be a multipart upload of at most %d bytes", errBadRequest, storage.MaxLogoSize))
			return
		}
		file, header, err := r.FormFile("logo")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: missing \"logo\" file", errBadRequest))
			return
		}
		defer file.Close()

		// Sniff the type when the client did not send a usable one.
		var body io.Reader = file
		contentType := header.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			head := make([]byte, 512)
			n, _ := io.ReadFull(file, head)
			contentType = http.DetectContentType(head[:n])
			body = io.MultiReader(bytes.NewReader(head[:n]), file)
		}

		key, err := storage.LogoKey(team.ID, contentType)
		if err != nil {
			writeError(w, r, err)
			return
		}
		result, err := s.Uploader.Upload(ctx, key, contentType, body)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.League.SetTeamLogo(ctx, team.ID, result.Location); err != nil {
			writeError(w, r, err)
			return
		}
		log.Info("Team logo uploaded", "team_id", team.ID, "key", result.Key, "size", header.Size)

		team.LogoURL = &result.Location
		writeJSON(w, http.StatusOK, team)
	}
}

func (s *Server) TeamRosterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team, err := s.League.GetTeam(r.Context(), chi.URLParam(r, "teamID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		players, err := s.Rosters.Team(r.Context(), team.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, players)
	}
}

func (s *Server) ListPlayersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := s.League.ListPlayers(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, players)
	}
}

func (s *Server) CreatePlayerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in league.PlayerInput
		if err := readJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		player, err := s.League.CreatePlayer(r.Context(), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		log.Info("Player created", "player_id", player.ID, "derby_name", player.DerbyName, "teams", len(player.Teams))
		writeJSON(w, http.StatusCreated, player)
	}
}

func (s *Server) UpdatePlayerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in league.PlayerInput
		if err := readJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		player, err := s.League.UpdatePlayer(r.Context(), chi.URLParam(r, "playerID"), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, player)
	}
}

func (s *Server) DeletePlayerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := chi.URLParam(r, "playerID")
		if err := s.League.DeletePlayer(r.Context(), playerID); err != nil {
			writeError(w, r, err)
			return
		}
		log.Info("Player deleted", "player_id", playerID)
		w.WriteHeader(http.StatusNoContent)
	}
}
