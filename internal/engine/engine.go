// Package engine is the single-threaded owner of the game session and state
// machine. Admin commands and buzzer frames are turned into closures and run
// one at a time on the dispatcher goroutine; every mutation follows
// prepare, mutate, apply, persist, emit.
package engine

import (
	"context"
	"log/slog"

	"github.com/neon-beat/neon-beat-back/internal/buzzer"
	"github.com/neon-beat/neon-beat-back/internal/config"
	"github.com/neon-beat/neon-beat-back/internal/game"
	"github.com/neon-beat/neon-beat-back/internal/hub"
	"github.com/neon-beat/neon-beat-back/internal/persist"
	"github.com/neon-beat/neon-beat-back/internal/store"
)

type Engine struct {
	log   *slog.Logger
	store store.Store
	coord *persist.Coordinator
	hubs  *hub.Hubs
	reg   *buzzer.Registry
	app   *config.Appearance

	cmds chan func()

	// Owned by the dispatcher goroutine.
	machine *game.Machine
	session *game.Session
}

func New(log *slog.Logger, st store.Store, coord *persist.Coordinator, hubs *hub.Hubs, reg *buzzer.Registry, app *config.Appearance) *Engine {
	e := &Engine{
		log:     log,
		store:   st,
		coord:   coord,
		hubs:    hubs,
		reg:     reg,
		app:     app,
		cmds:    make(chan func(), 64),
		machine: game.NewMachine(),
	}
	reg.SetOnBuzz(e.onBuzz)
	return e
}

// Run drains the command queue until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-e.cmds:
			cmd()
		}
	}
}

// onBuzz funnels a device press into the dispatcher without blocking the
// socket reader. Arrival order into the queue decides who wins the floor.
func (e *Engine) onBuzz(id string) {
	select {
	case e.cmds <- func() { e.handleBuzz(id) }:
	default:
		e.log.Warn("command queue full, buzz dropped", "buzzer_id", id)
	}
}

// exec runs fn on the dispatcher goroutine and waits for its result.
func exec[T any](ctx context.Context, e *Engine, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	select {
	case e.cmds <- func() {
		v, err := fn()
		ch <- result{v, err}
	}:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// transition is the prepare/mutate/apply skeleton. mutate runs between the
// reservation and the commit; an error anywhere leaves phase and session
// untouched.
func (e *Engine) transition(ev game.Event, mutate func() error) error {
	plan, err := e.machine.Prepare(ev)
	if err != nil {
		return err
	}
	if mutate != nil {
		if err := mutate(); err != nil {
			e.machine.Abort(plan.ID)
			return err
		}
	}
	return e.machine.Apply(plan.ID)
}

// persistSession enqueues a debounced write of the active game document.
func (e *Engine) persistSession() {
	if e.session == nil {
		return
	}
	e.coord.PersistGame(store.FromSession(e.session, e.machine.Phase()))
}

func (e *Engine) persistTeam(t game.Team) {
	e.coord.PersistTeam(store.FromTeam(t))
}

// emitPhase publishes the authoritative phase snapshot on both streams.
func (e *Engine) emitPhase() {
	e.hubs.Broadcast(hub.NewEvent(hub.EventPhaseChanged, e.phaseSnapshot()))
}
