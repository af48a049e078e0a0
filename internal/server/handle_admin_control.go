package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/neon-beat/neon-beat-back/internal/engine"
	"github.com/neon-beat/neon-beat-back/internal/game"
)

func handleStartGame(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shuffle := false
		if raw := r.URL.Query().Get("shuffle"); raw != "" {
			var err error
			if shuffle, err = strconv.ParseBool(raw); err != nil {
				writeError(w, game.Validationf("invalid shuffle value %q", raw))
				return
			}
		}
		snap, err := eng.StartGame(r.Context(), shuffle)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func handlePause(eng *engine.Engine) http.HandlerFunc {
	return phaseCommand(eng.Pause)
}

func handleResume(eng *engine.Engine) http.HandlerFunc {
	return phaseCommand(eng.Resume)
}

func handleReveal(eng *engine.Engine) http.HandlerFunc {
	return phaseCommand(eng.Reveal)
}

func handleNextSong(eng *engine.Engine) http.HandlerFunc {
	return phaseCommand(eng.NextSong)
}

func handleStop(eng *engine.Engine) http.HandlerFunc {
	return phaseCommand(eng.Stop)
}

func handleEnd(eng *engine.Engine) http.HandlerFunc {
	return phaseCommand(eng.End)
}

// AnswerRequest records the game master's verdict on a buzzed answer.
type AnswerRequest struct {
	Validation string `json:"validation"`
}

func handleValidateAnswer(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnswerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := eng.ValidateAnswer(r.Context(), game.AnswerValidation(req.Validation)); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// FieldRequest marks a song field as identified.
type FieldRequest struct {
	SongID string `json:"song_id"`
	Key    string `json:"key"`
	Bonus  bool   `json:"bonus"`
}

func handleMarkField(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FieldRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		found, err := eng.MarkField(r.Context(), req.SongID, req.Key, req.Bonus)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, found)
	}
}

// phaseCommand wraps the bodyless control commands that all return the phase
// snapshot.
func phaseCommand(fn func(ctx context.Context) (engine.PhaseSnapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := fn(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}
