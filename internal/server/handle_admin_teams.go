package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/neon-beat/neon-beat-back/internal/engine"
)

func handleCreateTeam(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in engine.TeamInput
		if err := readJSON(r, &in); err != nil {
			writeError(w, err)
			return
		}
		view, err := eng.AddTeam(r.Context(), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, view)
	}
}

func handleUpdateTeam(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in engine.TeamInput
		if err := readJSON(r, &in); err != nil {
			writeError(w, err)
			return
		}
		view, err := eng.UpdateTeam(r.Context(), chi.URLParam(r, "teamID"), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func handleDeleteTeam(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := eng.RemoveTeam(r.Context(), chi.URLParam(r, "teamID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ScoreRequest adjusts a team's score by a signed delta.
type ScoreRequest struct {
	Delta int `json:"delta"`
}

func handleAdjustScore(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScoreRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		view, err := eng.AdjustScore(r.Context(), chi.URLParam(r, "teamID"), req.Delta)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// PairingRequest opens a pairing round, optionally naming the team to pair
// first.
type PairingRequest struct {
	FirstTeamID string `json:"first_team_id"`
}

func handleStartPairing(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PairingRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		status, err := eng.StartPairing(r.Context(), req.FirstTeamID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func handleAbortPairing(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restored, err := eng.AbortPairing(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, restored)
	}
}
