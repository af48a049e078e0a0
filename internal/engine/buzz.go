package engine

import (
	"github.com/google/uuid"

	"github.com/neon-beat/neon-beat-back/internal/buzzer"
	"github.com/neon-beat/neon-beat-back/internal/game"
	"github.com/neon-beat/neon-beat-back/internal/hub"
)

type testBuzzPayload struct {
	TeamID   string `json:"team_id"`
	BuzzerID string `json:"buzzer_id"`
}

// handleBuzz runs on the dispatcher goroutine. What a press means depends
// entirely on the phase; in non-receptive phases it is silently ignored.
func (e *Engine) handleBuzz(buzzerID string) {
	if e.session == nil {
		return
	}
	switch e.machine.Phase().Kind {
	case game.PhasePrepPairing:
		e.assignBuzz(buzzerID)

	case game.PhasePrepReady:
		// Paired devices get a visible test loop while setting up.
		if team, ok := e.session.TeamByBuzzer(buzzerID); ok {
			e.hubs.Broadcast(hub.NewEvent(hub.EventTestBuzz, testBuzzPayload{
				TeamID:   team.ID.String(),
				BuzzerID: buzzerID,
			}))
		}

	case game.PhasePlaying:
		team, ok := e.session.TeamByBuzzer(buzzerID)
		if !ok || e.session.LastBuzzed != (uuid.UUID{}) {
			// Not paired, or someone already holds the floor: tell the
			// device it lost the race.
			e.reg.Send(buzzerID, e.app.Patterns.Waiting)
			return
		}
		err := e.transition(game.Event{Kind: game.EventBuzz, Team: team.ID}, func() error {
			e.session.LastBuzzed = team.ID
			return nil
		})
		if err != nil {
			e.log.Error("buzz transition failed", "buzzer_id", buzzerID, "error", err)
			return
		}
		e.persistSession()
		e.emitPhase()
		e.syncPatterns()
		e.log.Info("floor claimed", "team_id", team.ID, "buzzer_id", buzzerID)
	}
}

// syncPatterns pushes the LED preset matching the current phase to every
// buzzer. Send remembers the pattern per id, so devices reconnecting later
// catch up automatically.
func (e *Engine) syncPatterns() {
	if e.session == nil {
		e.reg.Broadcast(e.app.Patterns.Waiting, nil)
		return
	}

	paired := map[string]game.Color{}
	for _, t := range e.session.Teams() {
		if t.BuzzerID != "" {
			paired[t.BuzzerID] = t.Color
		}
	}
	unpaired := func(id string) bool {
		_, ok := paired[id]
		return !ok
	}

	phase := e.machine.Phase()
	switch phase.Kind {
	case game.PhasePrepPairing:
		// Any device may claim the waiting team.
		e.reg.Broadcast(e.app.Patterns.WaitingForPairing, nil)

	case game.PhasePlaying:
		for id := range paired {
			e.reg.Send(id, e.app.Patterns.Playing)
		}
		e.reg.Broadcast(e.app.Patterns.Waiting, unpaired)

	case game.PhasePausedBuzz:
		var answering string
		if t, ok := e.session.Team(phase.BuzzedTeam); ok {
			answering = t.BuzzerID
		}
		for id, c := range paired {
			if id == answering {
				e.reg.Send(id, buzzer.Tinted(e.app.Patterns.Answering, c))
			} else {
				e.reg.Send(id, e.app.Patterns.Waiting)
			}
		}
		e.reg.Broadcast(e.app.Patterns.Waiting, unpaired)

	default:
		for id, c := range paired {
			e.reg.Send(id, buzzer.Tinted(e.app.Patterns.Standby, c))
		}
		e.reg.Broadcast(e.app.Patterns.Waiting, unpaired)
	}
}
