package http

import (
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/derby-tracker/internal/pubsub"
	"github.com/mauv0809/derby-tracker/internal/summary"
)

// BoutCompletedPushHandler receives bout-completed events from the push
// subscription and posts the result to Slack.
func (s *Server) BoutCompletedPushHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bodyBytes, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			log.Error("Failed to read request body", "error", err)
			writeError(w, r, fmt.Errorf("%w: failed to read request body", errBadRequest))
			return
		}
		log.Debug("Received bout completed message", "body", string(bodyBytes))

		rawData, err := pubsub.DecodePush(bodyBytes)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
			return
		}

		var result summary.Summary
		if err := s.PubSub.ProcessMessage(rawData, &result); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid bout result payload", errBadRequest))
			return
		}

		isDryRun := isDryRunFromContext(r)
		if err := s.Notifier.SendBoutResult(&result, isDryRun); err != nil {
			log.Error("Failed to notify bout result", "bout_id", result.BoutID, "error", err)
			http.Error(w, "Failed to notify bout result", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("OK"))
	}
}
