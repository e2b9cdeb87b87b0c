package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/petrijr/formflow/pkg/api"
)

// errorBody is the envelope of failures that carry no snapshot.
type errorBody struct {
	Reason string `json:"reason"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, snap *api.Snapshot, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// writeError maps the error taxonomy onto status codes. Validation and
// stale-state failures answer with the snapshot so clients can render the
// field errors.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr   *api.ValidationError
		stale  *api.StaleStateError
		navErr *api.NavigationError
		badReq *badRequestError
	)
	switch {
	case errors.As(err, &vErr) && vErr.Snapshot != nil:
		writeJSON(w, http.StatusBadRequest, vErr.Snapshot)
	case errors.As(err, &stale) && stale.Snapshot != nil:
		s.logger.WarnContext(r.Context(), "commit rejected", slog.String("step", stale.Step))
		writeJSON(w, http.StatusBadRequest, stale.Snapshot)
	case errors.As(err, &navErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Reason: navErr.Reason})
	case errors.As(err, &badReq):
		writeJSON(w, http.StatusBadRequest, errorBody{Reason: badReq.Error()})
	default:
		s.logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Reason: err.Error()})
	}
}
