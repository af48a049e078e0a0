package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/neon-beat/neon-beat-back/internal/game"
	"github.com/neon-beat/neon-beat-back/internal/hub"
	"github.com/neon-beat/neon-beat-back/internal/store"
)

// StartGame moves from Prep::Ready into Playing. A completed sequence is
// reset first (fresh run of the same game); shuffling a partially played
// sequence is refused.
func (e *Engine) StartGame(ctx context.Context, shuffle bool) (PhaseSnapshot, error) {
	return exec(ctx, e, func() (PhaseSnapshot, error) {
		if err := e.requireSession(); err != nil {
			return PhaseSnapshot{}, err
		}
		if len(e.session.Teams()) == 0 {
			return PhaseSnapshot{}, game.Preconditionf("cannot start a game without teams")
		}
		if shuffle && e.session.Started() && !e.session.Completed() {
			return PhaseSnapshot{}, game.Preconditionf("cannot shuffle a partially played playlist")
		}
		err := e.transition(game.Event{Kind: game.EventStartGame}, func() error {
			if e.session.Completed() {
				e.session.ResetSequence(shuffle)
			} else if shuffle {
				e.session.ShuffleRemaining()
			}
			return nil
		})
		if err != nil {
			return PhaseSnapshot{}, err
		}
		e.persistSession()
		e.emitPhase()
		e.syncPatterns()
		e.log.Info("game started", "game_id", e.session.GameID, "song_index", e.session.Current)
		return e.phaseSnapshot(), nil
	})
}

// Pause suspends playback manually.
func (e *Engine) Pause(ctx context.Context) (PhaseSnapshot, error) {
	return e.simpleTransition(ctx, game.Event{Kind: game.EventPauseManual})
}

// Resume reopens the floor and returns to Playing.
func (e *Engine) Resume(ctx context.Context) (PhaseSnapshot, error) {
	return exec(ctx, e, func() (PhaseSnapshot, error) {
		if err := e.requireSession(); err != nil {
			return PhaseSnapshot{}, err
		}
		err := e.transition(game.Event{Kind: game.EventContinue}, func() error {
			e.session.LastBuzzed = uuid.UUID{}
			return nil
		})
		if err != nil {
			return PhaseSnapshot{}, err
		}
		e.persistSession()
		e.emitPhase()
		e.syncPatterns()
		return e.phaseSnapshot(), nil
	})
}

// Reveal discloses the current song. When every point field was identified
// the song is durably marked found.
func (e *Engine) Reveal(ctx context.Context) (PhaseSnapshot, error) {
	return exec(ctx, e, func() (PhaseSnapshot, error) {
		if err := e.requireSession(); err != nil {
			return PhaseSnapshot{}, err
		}
		err := e.transition(game.Event{Kind: game.EventReveal}, func() error {
			e.session.MarkRevealed()
			return nil
		})
		if err != nil {
			return PhaseSnapshot{}, err
		}
		e.persistSession()
		e.emitPhase()
		e.syncPatterns()
		return e.phaseSnapshot(), nil
	})
}

// NextSong marks the current song played and advances, landing on the
// scoreboard when the sequence is exhausted.
func (e *Engine) NextSong(ctx context.Context) (PhaseSnapshot, error) {
	return exec(ctx, e, func() (PhaseSnapshot, error) {
		if err := e.requireSession(); err != nil {
			return PhaseSnapshot{}, err
		}
		if e.machine.Phase().Kind != game.PhaseReveal {
			return PhaseSnapshot{}, game.PhaseRejectedf("next song is only valid from reveal")
		}
		// Peek whether this advance exhausts the sequence to pick the
		// transition target before mutating.
		last := e.session.Current+1 >= len(e.session.Sequence)
		err := e.transition(game.Event{Kind: game.EventNextSong, LastSong: last}, func() error {
			e.session.AdvanceSong()
			return nil
		})
		if err != nil {
			return PhaseSnapshot{}, err
		}
		e.persistSession()
		e.emitPhase()
		e.syncPatterns()
		e.log.Info("song advanced", "game_id", e.session.GameID, "song_index", e.session.Current, "finished", last)
		return e.phaseSnapshot(), nil
	})
}

// Stop ends the running game manually. Playlist progress is left untouched
// so the game can be resumed by loading it again.
func (e *Engine) Stop(ctx context.Context) (PhaseSnapshot, error) {
	return e.simpleTransition(ctx, game.Event{Kind: game.EventFinish})
}

// End closes the scoreboard, persists final state, and returns to Idle.
func (e *Engine) End(ctx context.Context) (PhaseSnapshot, error) {
	return exec(ctx, e, func() (PhaseSnapshot, error) {
		if err := e.requireSession(); err != nil {
			return PhaseSnapshot{}, err
		}
		session := e.session
		err := e.transition(game.Event{Kind: game.EventEndGame}, func() error {
			e.session = nil
			return nil
		})
		if err != nil {
			return PhaseSnapshot{}, err
		}
		for _, t := range session.Teams() {
			e.persistTeam(t)
		}
		// The stored record keeps the scoreboard phase so the list shows a
		// finished game, not an idle server.
		e.coord.PersistGame(store.FromSession(session, game.Phase{Kind: game.PhaseShowScores}))
		e.emitPhase()
		e.syncPatterns()
		e.log.Info("game ended", "game_id", session.GameID)
		return e.phaseSnapshot(), nil
	})
}

// ValidateAnswer records the master's verdict on the buzzed answer. It only
// makes sense while a team holds the floor.
func (e *Engine) ValidateAnswer(ctx context.Context, verdict game.AnswerValidation) error {
	if !verdict.Valid() {
		return game.Validationf("unknown validation %q", verdict)
	}
	_, err := exec(ctx, e, func() (struct{}, error) {
		var zero struct{}
		if err := e.requireSession(); err != nil {
			return zero, err
		}
		phase := e.machine.Phase()
		if phase.Kind != game.PhasePausedBuzz {
			return zero, game.PhaseRejectedf("no buzzed answer to validate")
		}
		e.hubs.Broadcast(hub.NewEvent(hub.EventAnswerValidation, answerValidationPayload{
			TeamID:     phase.BuzzedTeam.String(),
			Validation: string(verdict),
		}))
		return zero, nil
	})
	return err
}

type answerValidationPayload struct {
	TeamID     string `json:"team_id"`
	Validation string `json:"validation"`
}

// MarkField flags a point or bonus field of the current song as identified.
func (e *Engine) MarkField(ctx context.Context, rawSongID, key string, bonus bool) (game.FoundFields, error) {
	songID, err := parseID("song", rawSongID)
	if err != nil {
		return game.FoundFields{}, err
	}
	if key == "" {
		return game.FoundFields{}, game.Validationf("field key is required")
	}
	return exec(ctx, e, func() (game.FoundFields, error) {
		if err := e.requireSession(); err != nil {
			return game.FoundFields{}, err
		}
		phase := e.machine.Phase()
		if phase.Kind != game.PhasePlaying && !phase.Paused() && phase.Kind != game.PhaseReveal {
			return game.FoundFields{}, game.PhaseRejectedf("fields can only be marked during a round")
		}
		found, err := e.session.MarkField(songID, key, bonus)
		if err != nil {
			return game.FoundFields{}, err
		}
		e.hubs.Broadcast(hub.NewEvent(hub.EventFieldsFound, fieldsFoundPayload{
			SongID: songID.String(),
			Found:  found,
		}))
		return found, nil
	})
}

type fieldsFoundPayload struct {
	SongID string           `json:"song_id"`
	Found  game.FoundFields `json:"found"`
}

// simpleTransition covers the commands that only move the phase.
func (e *Engine) simpleTransition(ctx context.Context, ev game.Event) (PhaseSnapshot, error) {
	return exec(ctx, e, func() (PhaseSnapshot, error) {
		if err := e.requireSession(); err != nil {
			return PhaseSnapshot{}, err
		}
		if err := e.transition(ev, nil); err != nil {
			return PhaseSnapshot{}, err
		}
		e.persistSession()
		e.emitPhase()
		e.syncPatterns()
		return e.phaseSnapshot(), nil
	})
}
