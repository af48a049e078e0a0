package game

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// FoundFields is the ephemeral per-song record of identified fields. It is
// never persisted.
type FoundFields struct {
	Points []string `json:"point_fields_found"`
	Bonus  []string `json:"bonus_fields_found"`
}

// PairingSession is the transient state of a pairing round: the team
// currently waiting for a buzz and the snapshot taken on entry, used to roll
// everything back on abort.
type PairingSession struct {
	Waiting  uuid.UUID
	Snapshot []Team
}

// Session is the in-memory authoritative state of the active game. It is
// owned exclusively by the dispatcher goroutine.
type Session struct {
	GameID     uuid.UUID
	Name       string
	PlaylistID uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Playlist Playlist
	// Sequence is the frozen play order with per-song progress flags.
	Sequence []SongFlags
	Current  int

	// LastBuzzed is the team holding the floor, zero when open.
	LastBuzzed uuid.UUID

	teams   []*Team
	teamIdx map[uuid.UUID]int

	foundPoints map[string]bool
	foundBonus  map[string]bool

	Pairing *PairingSession
}

// NewSession freezes the playlist into a play sequence, shuffled when asked.
func NewSession(id uuid.UUID, name string, pl Playlist, shuffle bool) *Session {
	s := &Session{
		GameID:      id,
		Name:        name,
		PlaylistID:  pl.ID,
		CreatedAt:   nowUTC(),
		UpdatedAt:   nowUTC(),
		Playlist:    pl,
		teamIdx:     map[uuid.UUID]int{},
		foundPoints: map[string]bool{},
		foundBonus:  map[string]bool{},
	}
	s.Sequence = make([]SongFlags, len(pl.Songs))
	for i, song := range pl.Songs {
		s.Sequence[i] = SongFlags{SongID: song.ID}
	}
	if shuffle {
		s.ShuffleRemaining()
	}
	return s
}

// RestoreSession rebuilds a session from persisted state. The sequence's id
// multiset must match the playlist's.
func RestoreSession(id uuid.UUID, name string, pl Playlist, seq []SongFlags, current int, teams []Team, created, updated time.Time) (*Session, error) {
	if len(seq) != len(pl.Songs) {
		return nil, Internalf("play sequence has %d songs, playlist %q has %d", len(seq), pl.Name, len(pl.Songs))
	}
	want := map[uuid.UUID]int{}
	for _, song := range pl.Songs {
		want[song.ID]++
	}
	for _, f := range seq {
		if want[f.SongID] == 0 {
			return nil, Internalf("play sequence references song %s absent from playlist %q", f.SongID, pl.Name)
		}
		want[f.SongID]--
	}
	if current < 0 || current > len(seq) {
		return nil, Internalf("current song index %d out of range", current)
	}
	s := &Session{
		GameID:      id,
		Name:        name,
		PlaylistID:  pl.ID,
		CreatedAt:   created,
		UpdatedAt:   updated,
		Playlist:    pl,
		Sequence:    append([]SongFlags(nil), seq...),
		Current:     current,
		teamIdx:     map[uuid.UUID]int{},
		foundPoints: map[string]bool{},
		foundBonus:  map[string]bool{},
	}
	for i := range teams {
		t := teams[i]
		s.teamIdx[t.ID] = len(s.teams)
		s.teams = append(s.teams, &t)
	}
	return s, nil
}

// Teams returns the teams in insertion order.
func (s *Session) Teams() []Team {
	out := make([]Team, len(s.teams))
	for i, t := range s.teams {
		out[i] = *t
	}
	return out
}

// Team looks a team up by id.
func (s *Session) Team(id uuid.UUID) (Team, bool) {
	i, ok := s.teamIdx[id]
	if !ok {
		return Team{}, false
	}
	return *s.teams[i], true
}

// InsertTeam appends a team; insertion order drives the pairing queue and the
// scoreboard.
func (s *Session) InsertTeam(t Team) error {
	if _, ok := s.teamIdx[t.ID]; ok {
		return Conflictf("team %s already exists", t.ID)
	}
	if t.BuzzerID != "" {
		if owner, taken := s.buzzerOwner(t.BuzzerID); taken {
			return Conflictf("buzzer %s already paired to team %s", t.BuzzerID, owner)
		}
	}
	t.UpdatedAt = nowUTC()
	s.teamIdx[t.ID] = len(s.teams)
	s.teams = append(s.teams, &t)
	return nil
}

// UpdateTeam replaces the stored name, color and buzzer of an existing team.
func (s *Session) UpdateTeam(id uuid.UUID, name string, color Color, buzzerID string) (Team, error) {
	i, ok := s.teamIdx[id]
	if !ok {
		return Team{}, NotFoundf("team %s not found", id)
	}
	if buzzerID != "" {
		if owner, taken := s.buzzerOwner(buzzerID); taken && owner != id {
			return Team{}, Conflictf("buzzer %s already paired to team %s", buzzerID, owner)
		}
	}
	t := s.teams[i]
	t.Name = name
	t.Color = color
	t.BuzzerID = buzzerID
	t.UpdatedAt = nowUTC()
	return *t, nil
}

// RemoveTeam deletes a team, preserving the order of the remaining ones.
func (s *Session) RemoveTeam(id uuid.UUID) (Team, error) {
	i, ok := s.teamIdx[id]
	if !ok {
		return Team{}, NotFoundf("team %s not found", id)
	}
	removed := *s.teams[i]
	s.teams = append(s.teams[:i], s.teams[i+1:]...)
	delete(s.teamIdx, id)
	for j := i; j < len(s.teams); j++ {
		s.teamIdx[s.teams[j].ID] = j
	}
	return removed, nil
}

// AssignBuzzer pairs id to the team, stealing it from any current owner.
// It returns the updated team and the victim teams whose pairing was cleared.
func (s *Session) AssignBuzzer(teamID uuid.UUID, buzzerID string) (Team, []Team, error) {
	i, ok := s.teamIdx[teamID]
	if !ok {
		return Team{}, nil, NotFoundf("team %s not found", teamID)
	}
	var victims []Team
	for _, t := range s.teams {
		if t.ID != teamID && t.BuzzerID == buzzerID {
			t.BuzzerID = ""
			t.UpdatedAt = nowUTC()
			victims = append(victims, *t)
		}
	}
	t := s.teams[i]
	t.BuzzerID = buzzerID
	t.UpdatedAt = nowUTC()
	return *t, victims, nil
}

// ClearBuzzer unpairs the team's buzzer, if any.
func (s *Session) ClearBuzzer(teamID uuid.UUID) (Team, error) {
	i, ok := s.teamIdx[teamID]
	if !ok {
		return Team{}, NotFoundf("team %s not found", teamID)
	}
	t := s.teams[i]
	t.BuzzerID = ""
	t.UpdatedAt = nowUTC()
	return *t, nil
}

// TeamByBuzzer resolves a buzzer id to its owning team.
func (s *Session) TeamByBuzzer(buzzerID string) (Team, bool) {
	id, ok := s.buzzerOwner(buzzerID)
	if !ok {
		return Team{}, false
	}
	return s.Team(id)
}

func (s *Session) buzzerOwner(buzzerID string) (uuid.UUID, bool) {
	for _, t := range s.teams {
		if t.BuzzerID == buzzerID {
			return t.ID, true
		}
	}
	return uuid.UUID{}, false
}

// AdjustScore adds delta to the team's score. Scores may go negative.
func (s *Session) AdjustScore(teamID uuid.UUID, delta int) (Team, error) {
	i, ok := s.teamIdx[teamID]
	if !ok {
		return Team{}, NotFoundf("team %s not found", teamID)
	}
	t := s.teams[i]
	t.Score += delta
	t.UpdatedAt = nowUTC()
	return *t, nil
}

// NextUnpaired returns the first team in insertion order without a buzzer,
// starting from prefer when it is itself unpaired.
func (s *Session) NextUnpaired(prefer uuid.UUID) (Team, bool) {
	if prefer != (uuid.UUID{}) {
		if t, ok := s.Team(prefer); ok && t.BuzzerID == "" {
			return t, true
		}
	}
	for _, t := range s.teams {
		if t.BuzzerID == "" {
			return *t, true
		}
	}
	return Team{}, false
}

// TeamIndex returns the insertion position of a team.
func (s *Session) TeamIndex(id uuid.UUID) (int, bool) {
	i, ok := s.teamIdx[id]
	return i, ok
}

// NextUnpairedFrom returns the first team without a buzzer at or after
// position idx. The pairing queue never wraps around.
func (s *Session) NextUnpairedFrom(idx int) (Team, bool) {
	for i := idx; i < len(s.teams); i++ {
		if s.teams[i].BuzzerID == "" {
			return *s.teams[i], true
		}
	}
	return Team{}, false
}

// SnapshotTeams copies the current team list for pairing rollback.
func (s *Session) SnapshotTeams() []Team {
	return s.Teams()
}

// RestoreTeams replaces the team list with the snapshot, order included.
func (s *Session) RestoreTeams(snapshot []Team) {
	s.teams = s.teams[:0]
	s.teamIdx = map[uuid.UUID]int{}
	for i := range snapshot {
		t := snapshot[i]
		s.teamIdx[t.ID] = len(s.teams)
		s.teams = append(s.teams, &t)
	}
}

// CurrentSong returns the song at the play cursor.
func (s *Session) CurrentSong() (Song, bool) {
	if s.Current >= len(s.Sequence) {
		return Song{}, false
	}
	return s.Playlist.Song(s.Sequence[s.Current].SongID)
}

// MarkField records a point or bonus field of the current song as found.
// Idempotent; rejects a stale song id. Returns the full found set.
func (s *Session) MarkField(songID uuid.UUID, key string, bonus bool) (FoundFields, error) {
	song, ok := s.CurrentSong()
	if !ok {
		return FoundFields{}, PhaseRejectedf("no current song")
	}
	if song.ID != songID {
		return FoundFields{}, Validationf("song %s is not the current song", songID)
	}
	fields := song.PointFields
	if bonus {
		fields = song.BonusFields
	}
	known := false
	for _, f := range fields {
		if f.Key == key {
			known = true
			break
		}
	}
	if !known {
		return FoundFields{}, NotFoundf("song has no %s field %q", fieldClass(bonus), key)
	}
	if bonus {
		s.foundBonus[key] = true
	} else {
		s.foundPoints[key] = true
	}
	return s.Found(), nil
}

func fieldClass(bonus bool) string {
	if bonus {
		return "bonus"
	}
	return "point"
}

// Found returns the found-fields sets in the current song's field order.
func (s *Session) Found() FoundFields {
	out := FoundFields{Points: []string{}, Bonus: []string{}}
	song, ok := s.CurrentSong()
	if !ok {
		return out
	}
	for _, f := range song.PointFields {
		if s.foundPoints[f.Key] {
			out.Points = append(out.Points, f.Key)
		}
	}
	for _, f := range song.BonusFields {
		if s.foundBonus[f.Key] {
			out.Bonus = append(out.Bonus, f.Key)
		}
	}
	return out
}

// AllFieldsFound reports whether every point field of the current song was
// identified.
func (s *Session) AllFieldsFound() bool {
	song, ok := s.CurrentSong()
	if !ok {
		return false
	}
	for _, f := range song.PointFields {
		if !s.foundPoints[f.Key] {
			return false
		}
	}
	return true
}

// ClearFound drops the ephemeral found-fields, on song advance.
func (s *Session) ClearFound() {
	s.foundPoints = map[string]bool{}
	s.foundBonus = map[string]bool{}
}

// MarkRevealed sets the durable found flag on the current song when every
// point field was identified.
func (s *Session) MarkRevealed() {
	if s.Current < len(s.Sequence) && s.AllFieldsFound() {
		s.Sequence[s.Current].Found = true
	}
}

// AdvanceSong marks the current song played and moves the cursor. It reports
// whether the sequence is exhausted.
func (s *Session) AdvanceSong() (done bool) {
	if s.Current < len(s.Sequence) {
		s.Sequence[s.Current].Played = true
		s.Current++
	}
	s.ClearFound()
	s.LastBuzzed = uuid.UUID{}
	return s.Current >= len(s.Sequence)
}

// Completed reports whether every song of the sequence was played.
func (s *Session) Completed() bool {
	for _, f := range s.Sequence {
		if !f.Played {
			return false
		}
	}
	return len(s.Sequence) > 0
}

// Started reports whether any song was played.
func (s *Session) Started() bool {
	for _, f := range s.Sequence {
		if f.Played {
			return true
		}
	}
	return false
}

// ResetSequence clears all progress flags and re-freezes the order from the
// playlist, for a fresh run of a completed game.
func (s *Session) ResetSequence(shuffle bool) {
	s.Sequence = s.Sequence[:0]
	for _, song := range s.Playlist.Songs {
		s.Sequence = append(s.Sequence, SongFlags{SongID: song.ID})
	}
	s.Current = 0
	s.ClearFound()
	s.LastBuzzed = uuid.UUID{}
	if shuffle {
		s.ShuffleRemaining()
	}
}

// ShuffleRemaining shuffles the unplayed tail of the sequence in place.
func (s *Session) ShuffleRemaining() {
	tail := s.Sequence[s.Current:]
	rand.Shuffle(len(tail), func(i, j int) {
		tail[i], tail[j] = tail[j], tail[i]
	})
}

// PlayOrder returns the frozen song-id sequence.
func (s *Session) PlayOrder() []uuid.UUID {
	out := make([]uuid.UUID, len(s.Sequence))
	for i, f := range s.Sequence {
		out[i] = f.SongID
	}
	return out
}
