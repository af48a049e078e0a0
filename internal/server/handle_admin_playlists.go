package server

import (
	"net/http"

	"github.com/neon-beat/neon-beat-back/internal/engine"
	"github.com/neon-beat/neon-beat-back/internal/game"
)

func handleListPlaylists(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := eng.ListPlaylists(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleCreatePlaylist(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var pl game.Playlist
		if err := readJSON(r, &pl); err != nil {
			writeError(w, err)
			return
		}
		stored, err := eng.CreatePlaylist(r.Context(), pl)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, stored)
	}
}
