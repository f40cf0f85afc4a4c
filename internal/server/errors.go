package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/KaramelBytes/dqv-cli/internal/analysis"
	"github.com/KaramelBytes/dqv-cli/internal/clean"
	"github.com/KaramelBytes/dqv-cli/internal/session"
	"github.com/KaramelBytes/dqv-cli/internal/table"
)

type errorBody struct {
	Error string `json:"error"`
}

// softBody carries undefined statistics and empty selections. They are
// answered with 200 so clients show a note instead of a failure.
type softBody struct {
	Undefined *analysis.UndefinedStatistic `json:"undefined,omitempty"`
	Note      string                       `json:"note"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var ue *table.UnsupportedFormatError
	var pe *table.ParseError
	switch {
	case errors.As(err, &ue):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, table.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &pe):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNoTable):
		return http.StatusConflict
	case errors.Is(err, analysis.ErrUnknownColumn),
		errors.Is(err, analysis.ErrNotNumeric),
		errors.Is(err, clean.ErrUnknownFix):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var u *analysis.UndefinedStatistic
	var es *analysis.EmptySelectionError
	switch {
	case errors.As(err, &u):
		writeJSON(w, http.StatusOK, softBody{Undefined: u, Note: u.Error()})
		return
	case errors.As(err, &es):
		writeJSON(w, http.StatusOK, softBody{Note: "No numerical columns found. " + es.Error()})
		return
	}
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}
