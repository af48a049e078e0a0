package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/neon-beat/neon-beat-back/internal/game"
)

// TeamView is the wire shape of a team.
type TeamView struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	BuzzerID *string    `json:"buzzer_id"`
	Color    game.Color `json:"color"`
	Score    int        `json:"score"`
}

func toTeamView(t game.Team) TeamView {
	v := TeamView{ID: t.ID.String(), Name: t.Name, Color: t.Color, Score: t.Score}
	if t.BuzzerID != "" {
		b := t.BuzzerID
		v.BuzzerID = &b
	}
	return v
}

func toTeamViews(ts []game.Team) []TeamView {
	out := make([]TeamView, len(ts))
	for i, t := range ts {
		out[i] = toTeamView(t)
	}
	return out
}

// SongTeaser is the part of the current song safe to show mid-round.
type SongTeaser struct {
	Index           int `json:"index"`
	Total           int `json:"total"`
	StartsAtMs      int `json:"starts_at_ms"`
	GuessDurationMs int `json:"guess_duration_ms"`
}

// PhaseSnapshot is the payload of phase_changed and GET /public/phase.
type PhaseSnapshot struct {
	Phase          string      `json:"phase"`
	GameID         string      `json:"game_id,omitempty"`
	Degraded       bool        `json:"degraded"`
	CurrentSong    *SongTeaser `json:"current_song,omitempty"`
	BuzzedTeamID   string      `json:"buzzed_team_id,omitempty"`
	BuzzedBuzzerID string      `json:"buzzed_buzzer_id,omitempty"`
}

// SongFieldView redacts field values outside Reveal.
type SongFieldView struct {
	Key    string  `json:"key"`
	Value  *string `json:"value"`
	Points int     `json:"points"`
	Found  bool    `json:"found"`
}

// SongView is the current song as shown on the public display.
type SongView struct {
	ID          string          `json:"id"`
	Index       int             `json:"index"`
	Total       int             `json:"total"`
	URL         *string         `json:"url"`
	PointFields []SongFieldView `json:"point_fields"`
	BonusFields []SongFieldView `json:"bonus_fields"`
}

// PairingStatus is the payload of GET /public/pairing-status.
type PairingStatus struct {
	Active        bool   `json:"active"`
	WaitingTeamID string `json:"waiting_team_id,omitempty"`
}

// GameSummary mirrors the stored game list plus the live phase for the
// active game.
type GameSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PlaylistID string `json:"playlist_id"`
	Phase      string `json:"phase"`
	CreatedAt  string `json:"created_at"`
}

// phaseSnapshot runs on the dispatcher goroutine.
func (e *Engine) phaseSnapshot() PhaseSnapshot {
	phase := e.machine.Phase()
	snap := PhaseSnapshot{Phase: phase.Label(), Degraded: e.coord.Degraded()}
	if e.session == nil {
		return snap
	}
	snap.GameID = e.session.GameID.String()
	if song, ok := e.session.CurrentSong(); ok && (phase.Kind == game.PhasePlaying || phase.Paused() || phase.Kind == game.PhaseReveal) {
		snap.CurrentSong = &SongTeaser{
			Index:           e.session.Current,
			Total:           len(e.session.Sequence),
			StartsAtMs:      song.StartsAtMs,
			GuessDurationMs: song.GuessDurationMs,
		}
	}
	if phase.Kind == game.PhasePausedBuzz {
		snap.BuzzedTeamID = phase.BuzzedTeam.String()
		if t, ok := e.session.Team(phase.BuzzedTeam); ok && t.BuzzerID != "" {
			snap.BuzzedBuzzerID = t.BuzzerID
		}
	}
	return snap
}

// PublicPhase returns the authoritative phase snapshot.
func (e *Engine) PublicPhase(ctx context.Context) (PhaseSnapshot, error) {
	return exec(ctx, e, func() (PhaseSnapshot, error) {
		return e.phaseSnapshot(), nil
	})
}

// PublicTeams returns the scoreboard in insertion order.
func (e *Engine) PublicTeams(ctx context.Context) ([]TeamView, error) {
	return exec(ctx, e, func() ([]TeamView, error) {
		if e.session == nil {
			return []TeamView{}, nil
		}
		return toTeamViews(e.session.Teams()), nil
	})
}

// PublicSong returns the current song view. Values and the URL are disclosed
// only in Reveal.
func (e *Engine) PublicSong(ctx context.Context) (SongView, error) {
	return exec(ctx, e, func() (SongView, error) {
		if e.session == nil {
			return SongView{}, game.NotFoundf("no active game")
		}
		song, ok := e.session.CurrentSong()
		if !ok {
			return SongView{}, game.NotFoundf("no current song")
		}
		return e.songView(song), nil
	})
}

func (e *Engine) songView(song game.Song) SongView {
	reveal := e.machine.Phase().Kind == game.PhaseReveal
	found := e.session.Found()
	view := SongView{
		ID:    song.ID.String(),
		Index: e.session.Current,
		Total: len(e.session.Sequence),
	}
	if reveal {
		u := song.URL
		view.URL = &u
	}
	view.PointFields = fieldViews(song.PointFields, found.Points, reveal)
	view.BonusFields = fieldViews(song.BonusFields, found.Bonus, reveal)
	return view
}

func fieldViews(fields []game.PointField, foundKeys []string, reveal bool) []SongFieldView {
	foundSet := map[string]bool{}
	for _, k := range foundKeys {
		foundSet[k] = true
	}
	out := make([]SongFieldView, len(fields))
	for i, f := range fields {
		v := SongFieldView{Key: f.Key, Points: f.Points, Found: foundSet[f.Key]}
		// A found field's value is public; hidden ones only show in Reveal.
		if reveal || v.Found {
			val := f.Value
			v.Value = &val
		}
		out[i] = v
	}
	return out
}

// PairingState reports the waiting team, if a pairing round is running.
func (e *Engine) PairingState(ctx context.Context) (PairingStatus, error) {
	return exec(ctx, e, func() (PairingStatus, error) {
		if e.session == nil || e.session.Pairing == nil {
			return PairingStatus{}, nil
		}
		return PairingStatus{Active: true, WaitingTeamID: e.session.Pairing.Waiting.String()}, nil
	})
}

// usedColors collects the palette entries already assigned.
func (e *Engine) usedColors() []game.Color {
	if e.session == nil {
		return nil
	}
	teams := e.session.Teams()
	out := make([]game.Color, len(teams))
	for i, t := range teams {
		out[i] = t.Color
	}
	return out
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, game.Validationf("invalid %s id %q", kind, raw)
	}
	return id, nil
}
