package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/derby-tracker/internal/ledger"
	"github.com/mauv0809/derby-tracker/internal/league"
	"github.com/mauv0809/derby-tracker/internal/storage"
	"github.com/mauv0809/derby-tracker/internal/tracker"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

// readJSON decodes a single JSON value from the request body into dst.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("%w: body contains badly-formed JSON (at character %d)", errBadRequest, syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return fmt.Errorf("%w: body contains badly-formed JSON", errBadRequest)
		case errors.As(err, &unmarshalTypeError):
			return fmt.Errorf("%w: body contains incorrect JSON type for field %q", errBadRequest, unmarshalTypeError.Field)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: body must not be empty", errBadRequest)
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return fmt.Errorf("%w: body contains unknown key %s", errBadRequest, strings.TrimPrefix(err.Error(), "json: unknown field "))
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("%w: body must not be larger than %d bytes", errBadRequest, maxBodyBytes)
		default:
			return fmt.Errorf("%w: %w", errBadRequest, err)
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must only contain a single JSON value", errBadRequest)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("Failed to write JSON response", "error", err)
	}
}

// writeError maps err onto a status code and writes it as {"error": "..."}.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := map[string]any{"error": err.Error()}

	var validation *league.ValidationError
	if errors.As(err, &validation) {
		body["field"] = validation.Field
		body["error"] = validation.Message
	}

	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		log.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, league.ErrNotFound),
		errors.Is(err, tracker.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, tracker.ErrInvalidTransition),
		errors.Is(err, tracker.ErrNoPreviousJam),
		errors.Is(err, tracker.ErrBoutComplete):
		return http.StatusConflict
	case errors.Is(err, league.ErrValidation),
		errors.Is(err, tracker.ErrInvalidLineup),
		errors.Is(err, tracker.ErrBoutCancelled),
		errors.Is(err, ledger.ErrUnknownField),
		errors.Is(err, ledger.ErrUnknownPlayer),
		errors.Is(err, storage.ErrUnsupportedType):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrWriteFailed),
		errors.Is(err, tracker.ErrScoreWriteFailed),
		errors.Is(err, tracker.ErrStatusWriteFailed):
		return http.StatusBadGateway
	case errors.Is(err, storage.ErrDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
