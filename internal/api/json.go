package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/starford/temple/internal/apperr"
	"github.com/starford/temple/internal/noteservice"
)

const maxBody = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("api: json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
	Kind  string `json:"kind" example:"datetime_parsing" validate:"required"`
}

func errorBody(msg, kind string) errResponse {
	return errResponse{Error: msg, Kind: kind}
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case apperr.IsRenderFailure(err), errors.Is(err, apperr.ErrInvalidSpan):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrCommandDisabled):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError reports err with its verbatim message; unclassified errors are hidden.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	kind := noteservice.Kind(err)
	msg := err.Error()
	if kind == "internal" {
		slog.Error("api: request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", msg))
		msg = "internal error"
	}
	writeJSON(w, status, errorBody(msg, kind))
}

type validatable interface {
	Validate() error
}

// decode reads a JSON body into v and validates it.
func decode(w http.ResponseWriter, r *http.Request, v validatable) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body", "bad_request"))
		return false
	}
	if err := v.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error(), "bad_request"))
		return false
	}
	return true
}
