package game

import (
	"testing"

	"github.com/google/uuid"
)

func advance(t *testing.T, m *Machine, ev Event) {
	t.Helper()
	plan, err := m.Prepare(ev)
	if err != nil {
		t.Fatalf("prepare %s in %s: %v", ev.Kind, m.Phase().Label(), err)
	}
	if err := m.Apply(plan.ID); err != nil {
		t.Fatalf("apply %s: %v", ev.Kind, err)
	}
}

func TestMachineFullRound(t *testing.T) {
	m := NewMachine()
	team := uuid.New()

	steps := []struct {
		ev   Event
		want PhaseKind
	}{
		{Event{Kind: EventBootstrap}, PhasePrepReady},
		{Event{Kind: EventEnterPairing}, PhasePrepPairing},
		{Event{Kind: EventPairingDone}, PhasePrepReady},
		{Event{Kind: EventStartGame}, PhasePlaying},
		{Event{Kind: EventBuzz, Team: team}, PhasePausedBuzz},
		{Event{Kind: EventContinue}, PhasePlaying},
		{Event{Kind: EventPauseManual}, PhasePausedManual},
		{Event{Kind: EventReveal}, PhaseReveal},
		{Event{Kind: EventNextSong}, PhasePlaying},
		{Event{Kind: EventReveal}, PhaseReveal},
		{Event{Kind: EventNextSong, LastSong: true}, PhaseShowScores},
		{Event{Kind: EventEndGame}, PhaseIdle},
	}
	for _, step := range steps {
		advance(t, m, step.ev)
		if got := m.Phase().Kind; got != step.want {
			t.Fatalf("after %s: phase = %v, want %v", step.ev.Kind, got, step.want)
		}
	}
}

func TestMachineBuzzRecordsTeam(t *testing.T) {
	m := NewMachine()
	advance(t, m, Event{Kind: EventBootstrap})
	advance(t, m, Event{Kind: EventStartGame})

	team := uuid.New()
	advance(t, m, Event{Kind: EventBuzz, Team: team})
	if got := m.Phase().BuzzedTeam; got != team {
		t.Errorf("buzzed team = %s, want %s", got, team)
	}
	advance(t, m, Event{Kind: EventContinue})
	if got := m.Phase().BuzzedTeam; got != (uuid.UUID{}) {
		t.Errorf("buzzed team after continue = %s, want zero", got)
	}
}

func TestMachineRejectsInvalidEvents(t *testing.T) {
	m := NewMachine()

	cases := []Event{
		{Kind: EventStartGame},
		{Kind: EventPauseManual},
		{Kind: EventReveal},
		{Kind: EventNextSong},
		{Kind: EventEndGame},
	}
	for _, ev := range cases {
		if _, err := m.Prepare(ev); err == nil {
			t.Errorf("prepare %s in idle: want error, got nil", ev.Kind)
		} else if TagOf(err) != TagPhaseRejected {
			t.Errorf("prepare %s in idle: tag = %s, want %s", ev.Kind, TagOf(err), TagPhaseRejected)
		}
	}
	if m.Phase().Kind != PhaseIdle {
		t.Fatalf("rejected events mutated the phase to %s", m.Phase().Label())
	}
}

func TestMachineAbortLeavesPhaseUnchanged(t *testing.T) {
	m := NewMachine()
	advance(t, m, Event{Kind: EventBootstrap})

	plan, err := m.Prepare(Event{Kind: EventEnterPairing})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := m.Abort(plan.ID); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if m.Phase().Kind != PhasePrepReady {
		t.Fatalf("phase after abort = %s, want prep_ready", m.Phase().Label())
	}
	if err := m.Apply(plan.ID); err == nil {
		t.Error("apply after abort: want error, got nil")
	}
}

func TestMachineStaleApplyRejected(t *testing.T) {
	m := NewMachine()
	plan, err := m.Prepare(Event{Kind: EventBootstrap})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := m.Apply(plan.ID + 1); err == nil {
		t.Error("apply with wrong plan id: want error, got nil")
	}
	if err := m.Apply(plan.ID); err != nil {
		t.Fatalf("apply with correct id: %v", err)
	}
}

func TestMachineStopFromAnyRunningPhase(t *testing.T) {
	for _, setup := range [][]Event{
		{{Kind: EventBootstrap}},
		{{Kind: EventBootstrap}, {Kind: EventStartGame}},
		{{Kind: EventBootstrap}, {Kind: EventStartGame}, {Kind: EventPauseManual}},
		{{Kind: EventBootstrap}, {Kind: EventStartGame}, {Kind: EventReveal}},
	} {
		m := NewMachine()
		for _, ev := range setup {
			advance(t, m, ev)
		}
		advance(t, m, Event{Kind: EventFinish})
		if m.Phase().Kind != PhaseShowScores {
			t.Errorf("finish from %s: phase = %s, want scores", setup[len(setup)-1].Kind, m.Phase().Label())
		}
	}
}
