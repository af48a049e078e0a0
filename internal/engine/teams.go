package engine

import (
	"context"

	"github.com/neon-beat/neon-beat-back/internal/game"
	"github.com/neon-beat/neon-beat-back/internal/hub"
)

// AddTeam creates a team in the active game. Allowed only while preparing.
func (e *Engine) AddTeam(ctx context.Context, in TeamInput) (TeamView, error) {
	return exec(ctx, e, func() (TeamView, error) {
		if err := e.requireSession(); err != nil {
			return TeamView{}, err
		}
		if !e.machine.Phase().Prep() {
			return TeamView{}, game.PhaseRejectedf("teams can only be added while preparing")
		}
		team, err := e.buildTeam(e.session, in)
		if err != nil {
			return TeamView{}, err
		}
		if err := e.session.InsertTeam(team); err != nil {
			return TeamView{}, err
		}
		inserted, _ := e.session.Team(team.ID)
		e.persistTeam(inserted)
		e.persistSession()
		view := toTeamView(inserted)
		e.hubs.Broadcast(hub.NewEvent(hub.EventTeamCreated, view))
		e.syncPatterns()
		return view, nil
	})
}

// UpdateTeam changes a team's name, color, or pairing. Allowed only while
// preparing; scores move through AdjustScore.
func (e *Engine) UpdateTeam(ctx context.Context, rawID string, in TeamInput) (TeamView, error) {
	id, err := parseID("team", rawID)
	if err != nil {
		return TeamView{}, err
	}
	return exec(ctx, e, func() (TeamView, error) {
		if err := e.requireSession(); err != nil {
			return TeamView{}, err
		}
		if !e.machine.Phase().Prep() {
			return TeamView{}, game.PhaseRejectedf("teams can only be edited while preparing")
		}
		current, ok := e.session.Team(id)
		if !ok {
			return TeamView{}, game.NotFoundf("team %s not found", id)
		}
		color := current.Color
		if in.Color != nil {
			color = *in.Color
		}
		if err := game.ValidateTeamInput(in.Name, color, in.BuzzerID); err != nil {
			return TeamView{}, err
		}
		updated, err := e.session.UpdateTeam(id, in.Name, color, in.BuzzerID)
		if err != nil {
			return TeamView{}, err
		}
		e.persistTeam(updated)
		view := toTeamView(updated)
		e.hubs.Public.Publish(hub.NewEvent(hub.EventTeamUpdated, view))
		e.syncPatterns()
		return view, nil
	})
}

// RemoveTeam deletes a team. If it was waiting in a pairing round the round
// advances past it.
func (e *Engine) RemoveTeam(ctx context.Context, rawID string) error {
	id, err := parseID("team", rawID)
	if err != nil {
		return err
	}
	_, err = exec(ctx, e, func() (struct{}, error) {
		var zero struct{}
		if err := e.requireSession(); err != nil {
			return zero, err
		}
		if !e.machine.Phase().Prep() {
			return zero, game.PhaseRejectedf("teams can only be removed while preparing")
		}
		idx, _ := e.session.TeamIndex(id)
		removed, err := e.session.RemoveTeam(id)
		if err != nil {
			return zero, err
		}
		if err := e.coord.DeleteTeam(ctx, id.String()); err != nil && game.TagOf(err) != game.TagNotFound {
			// The document write failed but memory already moved on; report
			// and keep going.
			e.log.Error("team document delete failed", "team_id", id, "error", err)
		}
		e.persistSession()
		e.hubs.Broadcast(hub.NewEvent(hub.EventTeamDeleted, map[string]string{"team_id": id.String()}))
		if removed.BuzzerID != "" {
			e.reg.Forget(removed.BuzzerID)
		}

		// Deleting the waiting team moves the pairing queue along.
		if e.session.Pairing != nil && e.session.Pairing.Waiting == id {
			e.advancePairing(idx)
		}
		e.syncPatterns()
		return zero, nil
	})
	return err
}

// AdjustScore adds a delta to a team's score, allowed at any point of a
// running game.
func (e *Engine) AdjustScore(ctx context.Context, rawID string, delta int) (TeamView, error) {
	id, err := parseID("team", rawID)
	if err != nil {
		return TeamView{}, err
	}
	return exec(ctx, e, func() (TeamView, error) {
		if err := e.requireSession(); err != nil {
			return TeamView{}, err
		}
		phase := e.machine.Phase()
		if !phase.Running() && phase.Kind != game.PhaseShowScores {
			return TeamView{}, game.PhaseRejectedf("no running game to score")
		}
		team, err := e.session.AdjustScore(id, delta)
		if err != nil {
			return TeamView{}, err
		}
		e.persistTeam(team)
		view := toTeamView(team)
		e.hubs.Broadcast(hub.NewEvent(hub.EventScoreAdjustment, scoreAdjustmentPayload{
			TeamID: view.ID,
			Delta:  delta,
			Score:  team.Score,
		}))
		return view, nil
	})
}

type scoreAdjustmentPayload struct {
	TeamID string `json:"team_id"`
	Delta  int    `json:"delta"`
	Score  int    `json:"score"`
}

func (e *Engine) requireSession() error {
	if e.session == nil {
		return game.PhaseRejectedf("no active game")
	}
	return nil
}
