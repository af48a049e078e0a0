package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/neon-beat/neon-beat-back/internal/engine"
	"github.com/neon-beat/neon-beat-back/internal/store"
)

// HealthResponse is the body of GET /healthcheck.
type HealthResponse struct {
	Status string `json:"status"`
}

func handleHealth(logger *slog.Logger, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		resp := HealthResponse{Status: "ok"}
		if err := st.Ping(ctx); err != nil {
			logger.Error("health check failed", "name", "store", "error", err)
			status = http.StatusServiceUnavailable
			resp.Status = "error"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(resp)
	}
}

func handlePublicPhase(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := eng.PublicPhase(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func handlePublicTeams(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teams, err := eng.PublicTeams(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, teams)
	}
}

func handlePublicSong(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		song, err := eng.PublicSong(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, song)
	}
}

func handlePairingStatus(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := eng.PairingState(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}
