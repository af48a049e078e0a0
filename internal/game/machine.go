package game

import "github.com/google/uuid"

// PhaseKind is the flattened phase of the state machine.
type PhaseKind int

const (
	PhaseIdle PhaseKind = iota
	PhasePrepReady
	PhasePrepPairing
	PhasePlaying
	PhasePausedManual
	PhasePausedBuzz
	PhaseReveal
	PhaseShowScores
)

// Phase is the machine's current state. BuzzedTeam is set only for PhasePausedBuzz.
type Phase struct {
	Kind       PhaseKind
	BuzzedTeam uuid.UUID
}

// Running reports whether the phase is inside the game-running superstate.
func (p Phase) Running() bool {
	switch p.Kind {
	case PhasePrepReady, PhasePrepPairing, PhasePlaying, PhasePausedManual, PhasePausedBuzz, PhaseReveal:
		return true
	}
	return false
}

// Prep reports whether the phase is one of the preparation states.
func (p Phase) Prep() bool {
	return p.Kind == PhasePrepReady || p.Kind == PhasePrepPairing
}

// Paused reports whether the phase is one of the paused states.
func (p Phase) Paused() bool {
	return p.Kind == PhasePausedManual || p.Kind == PhasePausedBuzz
}

// Label is the wire name of the phase, as shown on the public endpoints.
func (p Phase) Label() string {
	switch p.Kind {
	case PhaseIdle:
		return "idle"
	case PhasePrepReady:
		return "prep_ready"
	case PhasePrepPairing:
		return "prep_pairing"
	case PhasePlaying:
		return "playing"
	case PhasePausedManual, PhasePausedBuzz:
		return "pause"
	case PhaseReveal:
		return "reveal"
	case PhaseShowScores:
		return "scores"
	}
	return "unknown"
}

// EventKind names a state-machine event.
type EventKind int

const (
	EventBootstrap EventKind = iota
	EventEnterPairing
	EventPairingDone
	EventAbortPairing
	EventStartGame
	EventPauseManual
	EventBuzz
	EventContinue
	EventReveal
	EventNextSong
	EventFinish
	EventEndGame
)

// Event is an input to the machine. Team is used by EventBuzz.
type Event struct {
	Kind EventKind
	Team uuid.UUID
	// LastSong makes EventNextSong land on ShowScores instead of Playing.
	LastSong bool
}

// Plan is a reserved transition. It commits via Apply or is discarded via Abort.
type Plan struct {
	ID   uint64
	From Phase
	To   Phase
}

// Machine is the authoritative phase graph. It is not safe for concurrent
// use; the dispatcher goroutine owns it.
type Machine struct {
	phase   Phase
	version uint64
	pending *Plan
}

// NewMachine starts in Idle.
func NewMachine() *Machine {
	return &Machine{phase: Phase{Kind: PhaseIdle}}
}

// Phase returns the committed phase.
func (m *Machine) Phase() Phase {
	return m.phase
}

// Prepare validates ev against the current phase and reserves the transition.
// Only one plan may be outstanding at a time.
func (m *Machine) Prepare(ev Event) (Plan, error) {
	if m.pending != nil {
		return Plan{}, Internalf("a transition is already prepared")
	}
	to, err := m.target(ev)
	if err != nil {
		return Plan{}, err
	}
	m.version++
	plan := Plan{ID: m.version, From: m.phase, To: to}
	m.pending = &plan
	return plan, nil
}

// Apply commits the plan identified by id.
func (m *Machine) Apply(id uint64) error {
	if m.pending == nil || m.pending.ID != id {
		return Internalf("no prepared transition with id %d", id)
	}
	m.phase = m.pending.To
	m.pending = nil
	return nil
}

// Abort discards the plan identified by id, leaving the phase unchanged.
func (m *Machine) Abort(id uint64) error {
	if m.pending == nil || m.pending.ID != id {
		return Internalf("no prepared transition with id %d", id)
	}
	m.pending = nil
	return nil
}

func (m *Machine) target(ev Event) (Phase, error) {
	cur := m.phase
	switch ev.Kind {
	case EventBootstrap:
		if cur.Kind != PhaseIdle {
			return Phase{}, m.reject(ev)
		}
		return Phase{Kind: PhasePrepReady}, nil
	case EventEnterPairing:
		if cur.Kind != PhasePrepReady {
			return Phase{}, m.reject(ev)
		}
		return Phase{Kind: PhasePrepPairing}, nil
	case EventPairingDone, EventAbortPairing:
		if cur.Kind != PhasePrepPairing {
			return Phase{}, m.reject(ev)
		}
		return Phase{Kind: PhasePrepReady}, nil
	case EventStartGame:
		if cur.Kind != PhasePrepReady {
			return Phase{}, m.reject(ev)
		}
		return Phase{Kind: PhasePlaying}, nil
	case EventPauseManual:
		if cur.Kind != PhasePlaying {
			return Phase{}, m.reject(ev)
		}
		return Phase{Kind: PhasePausedManual}, nil
	case EventBuzz:
		if cur.Kind != PhasePlaying {
			return Phase{}, m.reject(ev)
		}
		return Phase{Kind: PhasePausedBuzz, BuzzedTeam: ev.Team}, nil
	case EventContinue:
		if !cur.Paused() {
			return Phase{}, m.reject(ev)
		}
		return Phase{Kind: PhasePlaying}, nil
	case EventReveal:
		if cur.Kind != PhasePlaying && !cur.Paused() {
			return Phase{}, m.reject(ev)
		}
		return Phase{Kind: PhaseReveal}, nil
	case EventNextSong:
		if cur.Kind != PhaseReveal {
			return Phase{}, m.reject(ev)
		}
		if ev.LastSong {
			return Phase{Kind: PhaseShowScores}, nil
		}
		return Phase{Kind: PhasePlaying}, nil
	case EventFinish:
		if !cur.Running() {
			return Phase{}, m.reject(ev)
		}
		return Phase{Kind: PhaseShowScores}, nil
	case EventEndGame:
		if cur.Kind != PhaseShowScores {
			return Phase{}, m.reject(ev)
		}
		return Phase{Kind: PhaseIdle}, nil
	}
	return Phase{}, Internalf("unknown event kind %d", ev.Kind)
}

func (m *Machine) reject(ev Event) error {
	return PhaseRejectedf("event %s not allowed in phase %s", ev.Kind.String(), m.phase.Label())
}

func (k EventKind) String() string {
	switch k {
	case EventBootstrap:
		return "bootstrap"
	case EventEnterPairing:
		return "enter_pairing"
	case EventPairingDone:
		return "pairing_done"
	case EventAbortPairing:
		return "abort_pairing"
	case EventStartGame:
		return "start_game"
	case EventPauseManual:
		return "pause"
	case EventBuzz:
		return "buzz"
	case EventContinue:
		return "continue"
	case EventReveal:
		return "reveal"
	case EventNextSong:
		return "next_song"
	case EventFinish:
		return "finish"
	case EventEndGame:
		return "end_game"
	}
	return "unknown"
}
