package game

import (
	"testing"

	"github.com/google/uuid"
)

func testPlaylist(songs int) Playlist {
	pl := Playlist{ID: uuid.New(), Name: "test"}
	for i := 0; i < songs; i++ {
		pl.Songs = append(pl.Songs, Song{
			ID:              uuid.New(),
			GuessDurationMs: 30000,
			URL:             "https://example.com/song",
			PointFields: []PointField{
				{Key: "title", Value: "t", Points: 1},
				{Key: "artist", Value: "a", Points: 1},
			},
			BonusFields: []PointField{{Key: "year", Value: "1999", Points: 1}},
		})
	}
	return pl
}

func TestSessionTeamOrder(t *testing.T) {
	s := NewSession(uuid.New(), "g", testPlaylist(1), false)
	var ids []uuid.UUID
	for _, name := range []string{"alpha", "beta", "gamma"} {
		team := Team{ID: uuid.New(), Name: name}
		ids = append(ids, team.ID)
		if err := s.InsertTeam(team); err != nil {
			t.Fatalf("insert %s: %v", name, err)
		}
	}
	if _, err := s.RemoveTeam(ids[1]); err != nil {
		t.Fatalf("remove: %v", err)
	}
	teams := s.Teams()
	if len(teams) != 2 || teams[0].ID != ids[0] || teams[1].ID != ids[2] {
		t.Fatalf("order after remove = %v, want [alpha gamma]", teams)
	}
	if _, ok := s.Team(ids[1]); ok {
		t.Error("removed team still resolvable")
	}
}

func TestSessionBuzzerUniqueness(t *testing.T) {
	s := NewSession(uuid.New(), "g", testPlaylist(1), false)
	t1 := Team{ID: uuid.New(), Name: "one", BuzzerID: "aaaaaaaaaaaa"}
	t2 := Team{ID: uuid.New(), Name: "two"}
	if err := s.InsertTeam(t1); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.InsertTeam(t2); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.InsertTeam(Team{ID: uuid.New(), Name: "dup", BuzzerID: "aaaaaaaaaaaa"}); TagOf(err) != TagConflict {
		t.Errorf("insert with taken buzzer: tag = %s, want conflict", TagOf(err))
	}

	got, victims, err := s.AssignBuzzer(t2.ID, "aaaaaaaaaaaa")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got.BuzzerID != "aaaaaaaaaaaa" {
		t.Errorf("assignee buzzer = %q", got.BuzzerID)
	}
	if len(victims) != 1 || victims[0].ID != t1.ID || victims[0].BuzzerID != "" {
		t.Fatalf("victims = %v, want cleared %s", victims, t1.ID)
	}

	owners := 0
	for _, team := range s.Teams() {
		if team.BuzzerID == "aaaaaaaaaaaa" {
			owners++
		}
	}
	if owners != 1 {
		t.Errorf("buzzer owned by %d teams, want 1", owners)
	}
}

func TestSessionPairingSnapshotRestore(t *testing.T) {
	s := NewSession(uuid.New(), "g", testPlaylist(1), false)
	t1 := Team{ID: uuid.New(), Name: "one", Score: 3}
	t2 := Team{ID: uuid.New(), Name: "two"}
	for _, team := range []Team{t1, t2} {
		if err := s.InsertTeam(team); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	snap := s.SnapshotTeams()

	if _, _, err := s.AssignBuzzer(t1.ID, "aaaaaaaaaaaa"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := s.AdjustScore(t2.ID, 5); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	s.RestoreTeams(snap)
	teams := s.Teams()
	if teams[0].BuzzerID != "" {
		t.Errorf("buzzer survived restore: %q", teams[0].BuzzerID)
	}
	if teams[1].Score != 0 {
		t.Errorf("score survived restore: %d", teams[1].Score)
	}
	if teams[0].ID != t1.ID || teams[1].ID != t2.ID {
		t.Errorf("restore lost ordering")
	}
}

func TestSessionNextUnpaired(t *testing.T) {
	s := NewSession(uuid.New(), "g", testPlaylist(1), false)
	t1 := Team{ID: uuid.New(), Name: "one", BuzzerID: "aaaaaaaaaaaa"}
	t2 := Team{ID: uuid.New(), Name: "two"}
	t3 := Team{ID: uuid.New(), Name: "three"}
	for _, team := range []Team{t1, t2, t3} {
		if err := s.InsertTeam(team); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	if got, ok := s.NextUnpaired(uuid.UUID{}); !ok || got.ID != t2.ID {
		t.Errorf("next unpaired = %v, want %s", got.ID, t2.ID)
	}
	if got, ok := s.NextUnpaired(t3.ID); !ok || got.ID != t3.ID {
		t.Errorf("preferred unpaired = %v, want %s", got.ID, t3.ID)
	}
	// A paired preference falls back to insertion order.
	if got, ok := s.NextUnpaired(t1.ID); !ok || got.ID != t2.ID {
		t.Errorf("paired preference = %v, want %s", got.ID, t2.ID)
	}
}

func TestSessionMarkField(t *testing.T) {
	pl := testPlaylist(2)
	s := NewSession(uuid.New(), "g", pl, false)
	cur, _ := s.CurrentSong()

	if _, err := s.MarkField(uuid.New(), "title", false); TagOf(err) != TagValidation {
		t.Errorf("stale song id: tag = %s, want validation", TagOf(err))
	}
	if _, err := s.MarkField(cur.ID, "composer", false); TagOf(err) != TagNotFound {
		t.Errorf("unknown field: tag = %s, want not_found", TagOf(err))
	}

	found, err := s.MarkField(cur.ID, "title", false)
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if len(found.Points) != 1 || found.Points[0] != "title" {
		t.Fatalf("found = %v", found)
	}
	// Idempotent.
	found, err = s.MarkField(cur.ID, "title", false)
	if err != nil || len(found.Points) != 1 {
		t.Fatalf("second mark: %v %v", found, err)
	}

	if s.AllFieldsFound() {
		t.Error("all fields found with artist missing")
	}
	if _, err := s.MarkField(cur.ID, "artist", false); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if !s.AllFieldsFound() {
		t.Error("all point fields marked but AllFieldsFound is false")
	}
	if _, err := s.MarkField(cur.ID, "year", true); err != nil {
		t.Fatalf("bonus mark: %v", err)
	}
}

func TestSessionAdvanceKeepsIndexInvariant(t *testing.T) {
	s := NewSession(uuid.New(), "g", testPlaylist(3), false)
	for i := 0; i < 3; i++ {
		played := 0
		for _, f := range s.Sequence {
			if f.Played {
				played++
			}
		}
		if played != s.Current {
			t.Fatalf("played count %d != index %d", played, s.Current)
		}
		done := s.AdvanceSong()
		if want := i == 2; done != want {
			t.Fatalf("advance %d: done = %v, want %v", i, done, want)
		}
	}
	if !s.Completed() {
		t.Error("sequence not completed after full run")
	}
}

func TestSessionRevealSetsDurableFound(t *testing.T) {
	s := NewSession(uuid.New(), "g", testPlaylist(1), false)
	cur, _ := s.CurrentSong()

	s.MarkRevealed()
	if s.Sequence[0].Found {
		t.Fatal("found flag set with no fields identified")
	}
	if _, err := s.MarkField(cur.ID, "title", false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.MarkField(cur.ID, "artist", false); err != nil {
		t.Fatal(err)
	}
	s.MarkRevealed()
	if !s.Sequence[0].Found {
		t.Fatal("found flag not set after all point fields identified")
	}
	s.AdvanceSong()
	if got := s.Found(); len(got.Points) != 0 {
		t.Errorf("found fields survived advance: %v", got)
	}
}

func TestSessionResetSequence(t *testing.T) {
	s := NewSession(uuid.New(), "g", testPlaylist(2), false)
	s.AdvanceSong()
	s.AdvanceSong()
	if !s.Completed() {
		t.Fatal("setup: sequence not completed")
	}
	s.ResetSequence(false)
	if s.Current != 0 || s.Started() {
		t.Errorf("reset left index %d, started %v", s.Current, s.Started())
	}
	if len(s.Sequence) != 2 {
		t.Errorf("reset sequence length = %d", len(s.Sequence))
	}
}

func TestRestoreSessionChecksMultiset(t *testing.T) {
	pl := testPlaylist(2)
	good := []SongFlags{{SongID: pl.Songs[1].ID, Played: true}, {SongID: pl.Songs[0].ID}}
	s, err := RestoreSession(uuid.New(), "g", pl, good, 1, nil, nowUTC(), nowUTC())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if cur, _ := s.CurrentSong(); cur.ID != pl.Songs[0].ID {
		t.Errorf("cursor song = %s, want %s", cur.ID, pl.Songs[0].ID)
	}

	bad := []SongFlags{{SongID: pl.Songs[0].ID}, {SongID: uuid.New()}}
	if _, err := RestoreSession(uuid.New(), "g", pl, bad, 0, nil, nowUTC(), nowUTC()); err == nil {
		t.Error("mismatched multiset accepted")
	}
}

func TestValidateInputs(t *testing.T) {
	if !ValidBuzzerID("0123456789ab") {
		t.Error("valid buzzer id rejected")
	}
	for _, id := range []string{"", "0123456789AB", "0123456789abc", "0123456789a"} {
		if ValidBuzzerID(id) {
			t.Errorf("invalid buzzer id %q accepted", id)
		}
	}
	if err := ValidateTeamInput("x", Color{H: 120, S: 0.5, V: 1}, "aaaaaaaaaaaa"); err != nil {
		t.Errorf("valid team rejected: %v", err)
	}
	if err := ValidateTeamInput("", Color{}, ""); TagOf(err) != TagValidation {
		t.Error("empty name accepted")
	}
	if err := ValidateTeamInput("x", Color{S: 1.5}, ""); TagOf(err) != TagValidation {
		t.Error("saturation out of range accepted")
	}

	pl := testPlaylist(1)
	if err := ValidatePlaylist(pl); err != nil {
		t.Errorf("valid playlist rejected: %v", err)
	}
	pl.Songs[0].PointFields = nil
	if err := ValidatePlaylist(pl); TagOf(err) != TagValidation {
		t.Error("playlist with no point fields accepted")
	}
	if err := ValidatePlaylist(Playlist{Name: "x"}); TagOf(err) != TagValidation {
		t.Error("empty playlist accepted")
	}
}
