package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/neon-beat/neon-beat-back/internal/buzzer"
	"github.com/neon-beat/neon-beat-back/internal/game"
	"github.com/neon-beat/neon-beat-back/internal/hub"
)

type pairingWaitingPayload struct {
	TeamID string `json:"team_id"`
}

type pairingAssignedPayload struct {
	TeamID   string `json:"team_id"`
	BuzzerID string `json:"buzzer_id"`
}

// StartPairing snapshots the teams and opens a pairing round on the first
// unpaired team (or the requested one).
func (e *Engine) StartPairing(ctx context.Context, firstTeam string) (PairingStatus, error) {
	var first uuid.UUID
	if firstTeam != "" {
		var err error
		if first, err = parseID("team", firstTeam); err != nil {
			return PairingStatus{}, err
		}
	}
	return exec(ctx, e, func() (PairingStatus, error) {
		if err := e.requireSession(); err != nil {
			return PairingStatus{}, err
		}
		return e.startPairing(first)
	})
}

// startPairing runs on the dispatcher goroutine.
func (e *Engine) startPairing(first uuid.UUID) (PairingStatus, error) {
	waiting, ok := e.session.NextUnpaired(first)
	if !ok {
		return PairingStatus{}, game.Preconditionf("no team is waiting for a buzzer")
	}
	err := e.transition(game.Event{Kind: game.EventEnterPairing}, func() error {
		e.session.Pairing = &game.PairingSession{
			Waiting:  waiting.ID,
			Snapshot: e.session.SnapshotTeams(),
		}
		return nil
	})
	if err != nil {
		return PairingStatus{}, err
	}
	e.persistSession()
	e.emitPhase()
	e.hubs.Broadcast(hub.NewEvent(hub.EventPairingWaiting, pairingWaitingPayload{TeamID: waiting.ID.String()}))
	e.syncPatterns()
	e.log.Info("pairing started", "waiting_team", waiting.ID)
	return PairingStatus{Active: true, WaitingTeamID: waiting.ID.String()}, nil
}

// AbortPairing rolls every team back to the snapshot taken when the round
// opened and returns the restored list.
func (e *Engine) AbortPairing(ctx context.Context) ([]TeamView, error) {
	return exec(ctx, e, func() ([]TeamView, error) {
		if err := e.requireSession(); err != nil {
			return nil, err
		}
		pairing := e.session.Pairing
		if pairing == nil {
			return nil, game.PhaseRejectedf("no pairing round in progress")
		}
		err := e.transition(game.Event{Kind: game.EventAbortPairing}, func() error {
			e.session.RestoreTeams(pairing.Snapshot)
			e.session.Pairing = nil
			return nil
		})
		if err != nil {
			return nil, err
		}
		restored := e.session.Teams()
		for _, t := range restored {
			e.persistTeam(t)
		}
		e.persistSession()
		views := toTeamViews(restored)
		e.hubs.Broadcast(hub.NewEvent(hub.EventPairingRestored, views))
		e.emitPhase()
		e.syncPatterns()
		e.log.Info("pairing aborted")
		return views, nil
	})
}

// assignBuzz handles a device press during a pairing round: bind the buzzer
// to the waiting team, stealing it from any current owner, then move on.
func (e *Engine) assignBuzz(buzzerID string) {
	waiting := e.session.Pairing.Waiting
	team, victims, err := e.session.AssignBuzzer(waiting, buzzerID)
	if err != nil {
		e.log.Error("pairing assignment failed", "team_id", waiting, "error", err)
		return
	}
	for _, v := range victims {
		e.persistTeam(v)
		e.hubs.Public.Publish(hub.NewEvent(hub.EventTeamUpdated, toTeamView(v)))
	}
	e.persistTeam(team)
	e.hubs.Broadcast(hub.NewEvent(hub.EventPairingAssigned, pairingAssignedPayload{
		TeamID:   team.ID.String(),
		BuzzerID: buzzerID,
	}))
	e.reg.Send(buzzerID, buzzer.Tinted(e.app.Patterns.Standby, team.Color))
	e.log.Info("buzzer paired", "team_id", team.ID, "buzzer_id", buzzerID)
	idx, _ := e.session.TeamIndex(team.ID)
	e.advancePairing(idx + 1)
}

// advancePairing moves the queue to the next unpaired team at or after
// position from, or closes the round. The queue never revisits earlier
// teams, so a steal victim stays unpaired until the next round.
func (e *Engine) advancePairing(from int) {
	next, ok := e.session.NextUnpairedFrom(from)
	if ok {
		e.session.Pairing.Waiting = next.ID
		e.hubs.Broadcast(hub.NewEvent(hub.EventPairingWaiting, pairingWaitingPayload{TeamID: next.ID.String()}))
		return
	}
	err := e.transition(game.Event{Kind: game.EventPairingDone}, func() error {
		e.session.Pairing = nil
		return nil
	})
	if err != nil {
		e.log.Error("closing pairing failed", "error", err)
		return
	}
	e.persistSession()
	e.emitPhase()
	e.syncPatterns()
	e.log.Info("pairing finished")
}
