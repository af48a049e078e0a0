package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/neon-beat/neon-beat-back/internal/game"
)

// Document types, one collection per model. A game references its playlist
// and teams by id; teams are separate documents so score updates do not
// rewrite the game.

type ColorDoc struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	V float64 `json:"v"`
}

type FieldDoc struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Points int    `json:"points"`
}

type SongDoc struct {
	ID              string     `json:"id"`
	StartsAtMs      int        `json:"starts_at_ms"`
	GuessDurationMs int        `json:"guess_duration_ms"`
	URL             string     `json:"url"`
	PointFields     []FieldDoc `json:"point_fields"`
	BonusFields     []FieldDoc `json:"bonus_fields"`
}

type PlaylistDoc struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Songs []SongDoc `json:"songs"`
}

type SongStateDoc struct {
	SongID string `json:"song_id"`
	Played bool   `json:"played"`
	Found  bool   `json:"found"`
}

type GameDoc struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	PlaylistID string         `json:"playlist_id"`
	Phase      string         `json:"phase"`
	Sequence   []SongStateDoc `json:"sequence"`
	Current    int            `json:"current_song_index"`
	LastBuzzed string         `json:"last_buzzed_team,omitempty"`
	TeamIDs    []string       `json:"team_ids"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
}

type TeamDoc struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	BuzzerID  string   `json:"buzzer_id,omitempty"`
	Color     ColorDoc `json:"color"`
	Score     int      `json:"score"`
	UpdatedAt string   `json:"updated_at"`
}

const timeLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Conversions between documents and domain values.

func FromTeam(t game.Team) TeamDoc {
	return TeamDoc{
		ID:        t.ID.String(),
		Name:      t.Name,
		BuzzerID:  t.BuzzerID,
		Color:     ColorDoc{H: t.Color.H, S: t.Color.S, V: t.Color.V},
		Score:     t.Score,
		UpdatedAt: formatTime(t.UpdatedAt),
	}
}

func ToTeam(d TeamDoc) (game.Team, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return game.Team{}, err
	}
	return game.Team{
		ID:        id,
		Name:      d.Name,
		BuzzerID:  d.BuzzerID,
		Color:     game.Color{H: d.Color.H, S: d.Color.S, V: d.Color.V},
		Score:     d.Score,
		UpdatedAt: parseTime(d.UpdatedAt),
	}, nil
}

func FromPlaylist(pl game.Playlist) PlaylistDoc {
	doc := PlaylistDoc{ID: pl.ID.String(), Name: pl.Name}
	for _, s := range pl.Songs {
		doc.Songs = append(doc.Songs, SongDoc{
			ID:              s.ID.String(),
			StartsAtMs:      s.StartsAtMs,
			GuessDurationMs: s.GuessDurationMs,
			URL:             s.URL,
			PointFields:     fromFields(s.PointFields),
			BonusFields:     fromFields(s.BonusFields),
		})
	}
	return doc
}

func ToPlaylist(d PlaylistDoc) (game.Playlist, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return game.Playlist{}, err
	}
	pl := game.Playlist{ID: id, Name: d.Name}
	for _, sd := range d.Songs {
		sid, err := uuid.Parse(sd.ID)
		if err != nil {
			return game.Playlist{}, err
		}
		pl.Songs = append(pl.Songs, game.Song{
			ID:              sid,
			StartsAtMs:      sd.StartsAtMs,
			GuessDurationMs: sd.GuessDurationMs,
			URL:             sd.URL,
			PointFields:     toFields(sd.PointFields),
			BonusFields:     toFields(sd.BonusFields),
		})
	}
	return pl, nil
}

// FromSession snapshots the persistent part of a session as a game document.
// Ephemeral found-fields are deliberately absent.
func FromSession(s *game.Session, phase game.Phase) GameDoc {
	doc := GameDoc{
		ID:         s.GameID.String(),
		Name:       s.Name,
		PlaylistID: s.PlaylistID.String(),
		Phase:      phase.Label(),
		Current:    s.Current,
		CreatedAt:  formatTime(s.CreatedAt),
		UpdatedAt:  formatTime(time.Now()),
	}
	for _, f := range s.Sequence {
		doc.Sequence = append(doc.Sequence, SongStateDoc{SongID: f.SongID.String(), Played: f.Played, Found: f.Found})
	}
	if s.LastBuzzed != (uuid.UUID{}) {
		doc.LastBuzzed = s.LastBuzzed.String()
	}
	for _, t := range s.Teams() {
		doc.TeamIDs = append(doc.TeamIDs, t.ID.String())
	}
	return doc
}

// ToSession rebuilds a session from a game document, its playlist, and the
// team documents resolved from doc.TeamIDs.
func ToSession(doc GameDoc, pl game.Playlist, teams []game.Team) (*game.Session, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, err
	}
	seq := make([]game.SongFlags, 0, len(doc.Sequence))
	for _, sd := range doc.Sequence {
		sid, err := uuid.Parse(sd.SongID)
		if err != nil {
			return nil, err
		}
		seq = append(seq, game.SongFlags{SongID: sid, Played: sd.Played, Found: sd.Found})
	}
	s, err := game.RestoreSession(id, doc.Name, pl, seq, doc.Current, teams, parseTime(doc.CreatedAt), parseTime(doc.UpdatedAt))
	if err != nil {
		return nil, err
	}
	if doc.LastBuzzed != "" {
		buzzed, err := uuid.Parse(doc.LastBuzzed)
		if err != nil {
			return nil, err
		}
		s.LastBuzzed = buzzed
	}
	return s, nil
}

func fromFields(fs []game.PointField) []FieldDoc {
	out := make([]FieldDoc, len(fs))
	for i, f := range fs {
		out[i] = FieldDoc{Key: f.Key, Value: f.Value, Points: f.Points}
	}
	return out
}

func toFields(ds []FieldDoc) []game.PointField {
	out := make([]game.PointField, len(ds))
	for i, d := range ds {
		out[i] = game.PointField{Key: d.Key, Value: d.Value, Points: d.Points}
	}
	return out
}
