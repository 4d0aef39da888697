package endpoints

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jackzampolin/lectern/internal/failure"
	"github.com/jackzampolin/lectern/internal/lesson"
	"github.com/jackzampolin/lectern/internal/pdfsource"
	"github.com/jackzampolin/lectern/internal/providers"
)

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string       `json:"error"`
	Kind  failure.Kind `json:"kind,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeFailure maps err to a status code and writes it with its kind.
func writeFailure(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(err), ErrorResponse{Error: err.Error(), Kind: failure.KindOf(err)})
}

// StatusFor maps lesson and packet errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, lesson.ErrUnknownSession), errors.Is(err, pdfsource.ErrNoCover):
		return http.StatusNotFound
	case errors.Is(err, lesson.ErrInvalidTransition),
		errors.Is(err, lesson.ErrBusy),
		errors.Is(err, lesson.ErrStopped):
		return http.StatusConflict
	case errors.Is(err, providers.ErrSpeechNotConfigured):
		return http.StatusServiceUnavailable
	}

	switch failure.KindOf(err) {
	case failure.KindConfiguration:
		return http.StatusBadRequest
	case failure.KindRange, failure.KindAsset:
		return http.StatusUnprocessableEntity
	case failure.KindUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// decodeJSON reads an optional JSON body into v. An empty body leaves v
// unchanged.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
