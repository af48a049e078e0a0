package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/neon-beat/neon-beat-back/internal/engine"
	"github.com/neon-beat/neon-beat-back/internal/game"
)

func handleListGames(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		games, err := eng.ListGames(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, games)
	}
}

func handleCreateGame(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in engine.GameInput
		if err := readJSON(r, &in); err != nil {
			writeError(w, err)
			return
		}
		detail, err := eng.CreateGame(r.Context(), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, detail)
	}
}

// GameWithPlaylistRequest ingests the playlist and creates the game in one
// call.
type GameWithPlaylistRequest struct {
	Name     string             `json:"name"`
	Shuffle  bool               `json:"shuffle"`
	Teams    []engine.TeamInput `json:"teams"`
	Playlist game.Playlist      `json:"playlist"`
}

func handleCreateGameWithPlaylist(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GameWithPlaylistRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		in := engine.GameInput{Name: req.Name, Shuffle: req.Shuffle, Teams: req.Teams}
		detail, err := eng.CreateGameWithPlaylist(r.Context(), in, req.Playlist)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, detail)
	}
}

func handleGetGame(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := eng.GetGame(r.Context(), chi.URLParam(r, "gameID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

func handleLoadGame(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := eng.LoadGame(r.Context(), chi.URLParam(r, "gameID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

func handleDeleteGame(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := eng.DeleteGame(r.Context(), chi.URLParam(r, "gameID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
