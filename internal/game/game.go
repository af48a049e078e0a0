// Package game defines the core domain types, the gameplay state machine,
// and the in-memory session for the active game.
package game

import (
	"time"

	"github.com/google/uuid"
)

func nowUTC() time.Time {
	return time.Now().UTC()
}

// Color is an HSV color assigned to a team and mirrored on its buzzer LED.
type Color struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	V float64 `json:"v"`
}

// PointField is a named attribute of a song that teams must identify
// (e.g. key "artist", value "Daft Punk").
type PointField struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Points int    `json:"points"`
}

// Song is one entry of a playlist.
type Song struct {
	ID              uuid.UUID    `json:"id"`
	StartsAtMs      int          `json:"starts_at_ms"`
	GuessDurationMs int          `json:"guess_duration_ms"`
	URL             string       `json:"url"`
	PointFields     []PointField `json:"point_fields"`
	BonusFields     []PointField `json:"bonus_fields"`
}

// Playlist is an immutable ordered list of songs.
type Playlist struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Songs []Song    `json:"songs"`
}

// Song returns the playlist entry with the given id.
func (p *Playlist) Song(id uuid.UUID) (Song, bool) {
	for _, s := range p.Songs {
		if s.ID == id {
			return s, true
		}
	}
	return Song{}, false
}

// Team is a participating team. BuzzerID is empty until a buzzer is paired.
type Team struct {
	ID        uuid.UUID
	Name      string
	BuzzerID  string
	Color     Color
	Score     int
	UpdatedAt time.Time
}

// SongFlags tracks the durable per-song progress of the play sequence.
type SongFlags struct {
	SongID uuid.UUID `json:"song_id"`
	Played bool      `json:"played"`
	Found  bool      `json:"found"`
}

// AnswerValidation is the tri-state outcome of a buzzed answer.
type AnswerValidation string

const (
	AnswerCorrect    AnswerValidation = "correct"
	AnswerIncomplete AnswerValidation = "incomplete"
	AnswerWrong      AnswerValidation = "wrong"
)

// Valid reports whether v is one of the three accepted values.
func (v AnswerValidation) Valid() bool {
	switch v {
	case AnswerCorrect, AnswerIncomplete, AnswerWrong:
		return true
	}
	return false
}
