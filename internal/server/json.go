package server

import (
	"encoding/json"
	"net/http"

	"github.com/neon-beat/neon-beat-back/internal/game"
)

// ErrorBody is the payload under the "error" key of every error response.
type ErrorBody struct {
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// readJSON decodes the body strictly: unknown fields are a validation error.
func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return game.Validationf("invalid request body: %v", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, err error) {
	tag := game.TagOf(err)
	writeJSON(w, statusOf(tag), ErrorResponse{Error: ErrorBody{
		Tag:     string(tag),
		Message: err.Error(),
	}})
}

func statusOf(tag game.Tag) int {
	switch tag {
	case game.TagValidation:
		return http.StatusBadRequest
	case game.TagPhaseRejected, game.TagConflict:
		return http.StatusConflict
	case game.TagNotFound:
		return http.StatusNotFound
	case game.TagPrecondition:
		return http.StatusPreconditionFailed
	case game.TagDegraded:
		return http.StatusServiceUnavailable
	case game.TagUnauthorized:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}
