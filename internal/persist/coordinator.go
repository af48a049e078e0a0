// Package persist is the debounced write-behind layer between the in-memory
// session and the document store. Entities are flushed at most once per
// cooldown window, conflicting writes are retried against the freshly
// observed revision, and repeated transport failures flip a shared degraded
// flag without ever rolling back in-memory state.
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/neon-beat/neon-beat-back/internal/game"
	"github.com/neon-beat/neon-beat-back/internal/store"
)

// DefaultCooldown is the per-entity debounce window.
const DefaultCooldown = 200 * time.Millisecond

// conflictDelays is the retry schedule for optimistic-concurrency misses.
var conflictDelays = [4]time.Duration{
	50 * time.Millisecond,
	100 * time.Millisecond,
	200 * time.Millisecond,
	400 * time.Millisecond,
}

const attemptTimeout = 5 * time.Second

type kind int

const (
	kindGame kind = iota
	kindTeam
	kindPlaylist
)

func (k kind) String() string {
	switch k {
	case kindGame:
		return "game"
	case kindTeam:
		return "team"
	case kindPlaylist:
		return "playlist"
	}
	return "unknown"
}

// entry is the debounce state of one persisted entity. Game and playlist
// entries share a single mutex; each team entry has its own, so distinct
// teams flush in parallel while the same entity is linearised.
type entry struct {
	mu   *sync.Mutex
	kind kind
	id   string

	rev       string
	lastWrite time.Time
	pending   any
	scheduled bool
}

// Coordinator debounces and serialises writes to the store.
type Coordinator struct {
	store    store.Store
	log      *slog.Logger
	cooldown time.Duration

	// onDegraded is invoked outside all locks when the flag flips.
	onDegraded func(bool)

	mu       sync.Mutex
	entries  map[string]*entry
	gameMu   sync.Mutex
	degraded bool
	closed   bool

	done chan struct{}
	wg   sync.WaitGroup
}

// New builds a coordinator. cooldown <= 0 selects DefaultCooldown; onDegraded
// may be nil.
func New(st store.Store, log *slog.Logger, cooldown time.Duration, onDegraded func(bool)) *Coordinator {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Coordinator{
		store:      st,
		log:        log,
		cooldown:   cooldown,
		onDegraded: onDegraded,
		entries:    map[string]*entry{},
		done:       make(chan struct{}),
	}
}

func (c *Coordinator) entryFor(k kind, id string) *entry {
	key := k.String() + ":" + id
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{kind: k, id: id}
		if k == kindTeam {
			e.mu = &sync.Mutex{}
		} else {
			e.mu = &c.gameMu
		}
		c.entries[key] = e
	}
	return e
}

// Degraded reports whether the store is currently considered unavailable.
func (c *Coordinator) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded
}

func (c *Coordinator) setDegraded(v bool) {
	c.mu.Lock()
	changed := c.degraded != v
	c.degraded = v
	c.mu.Unlock()
	if changed {
		if v {
			c.log.Warn("persistence degraded")
		} else {
			c.log.Info("persistence recovered")
		}
		if c.onDegraded != nil {
			c.onDegraded(v)
		}
	}
}

// TrackGame seeds the revision of a game loaded from the store.
func (c *Coordinator) TrackGame(id, rev string) {
	c.track(kindGame, id, rev)
}

// TrackTeam seeds the revision of a team loaded from the store.
func (c *Coordinator) TrackTeam(id, rev string) {
	c.track(kindTeam, id, rev)
}

func (c *Coordinator) track(k kind, id, rev string) {
	e := c.entryFor(k, id)
	e.mu.Lock()
	e.rev = rev
	e.mu.Unlock()
}

// PersistGame enqueues a debounced write of the game document.
func (c *Coordinator) PersistGame(doc store.GameDoc) {
	c.persist(kindGame, doc.ID, doc)
}

// PersistTeam enqueues a debounced write of the team document.
func (c *Coordinator) PersistTeam(doc store.TeamDoc) {
	c.persist(kindTeam, doc.ID, doc)
}

// persist is the debounce step: write immediately when the cooldown has
// elapsed, otherwise record the payload (latest wins) and make sure exactly
// one delayed flush is scheduled.
func (c *Coordinator) persist(k kind, id string, doc any) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.log.Warn("persist after shutdown dropped", "entity", k.String(), "id", id)
		return
	}
	c.mu.Unlock()

	e := c.entryFor(k, id)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pending = doc
	if e.scheduled {
		return
	}
	delay := c.cooldown - time.Since(e.lastWrite)
	if delay < 0 {
		delay = 0
	}
	e.scheduled = true
	c.wg.Add(1)
	go c.flushAfter(e, delay)
}

// flushAfter waits out the remaining cooldown and writes the latest pending
// payload. Shutdown short-circuits the wait.
func (c *Coordinator) flushAfter(e *entry, delay time.Duration) {
	defer c.wg.Done()
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-c.done:
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	doc := e.pending
	e.pending = nil
	e.scheduled = false
	if doc == nil {
		return
	}
	e.lastWrite = time.Now()
	if err := c.writeLocked(e, doc); err != nil {
		c.log.Error("flush failed", "entity", e.kind.String(), "id", e.id, "error", err)
	}
}

// writeLocked pushes doc to the store with conflict retries. The entry lock
// is held by the caller for the whole write.
func (c *Coordinator) writeLocked(e *entry, doc any) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), attemptTimeout)
		rev, err := c.put(ctx, e.kind, doc, e.rev)
		cancel()

		if err == nil {
			e.rev = rev
			writesTotal.WithLabelValues(e.kind.String()).Inc()
			c.setDegraded(false)
			return nil
		}
		if !errors.Is(err, store.ErrConflict) {
			// Transport failure: keep the payload for an opportunistic
			// retry on the next flush of this entity.
			if e.pending == nil {
				e.pending = doc
			}
			c.setDegraded(true)
			return err
		}

		conflictsTotal.WithLabelValues(e.kind.String()).Inc()
		lastErr = err
		if attempt >= len(conflictDelays) {
			break
		}
		time.Sleep(conflictDelays[attempt])

		// Memory is authoritative: refresh the revision and resubmit the
		// same payload.
		ctx, cancel = context.WithTimeout(context.Background(), attemptTimeout)
		fresh, err := c.fetchRev(ctx, e.kind, e.id)
		cancel()
		if err != nil {
			c.setDegraded(true)
			return err
		}
		e.rev = fresh
	}
	return fmt.Errorf("revision conflict persisted after %d retries: %w", len(conflictDelays), lastErr)
}

func (c *Coordinator) put(ctx context.Context, k kind, doc any, rev string) (string, error) {
	switch k {
	case kindGame:
		return c.store.PutGame(ctx, doc.(store.GameDoc), rev)
	case kindTeam:
		return c.store.PutTeam(ctx, doc.(store.TeamDoc), rev)
	case kindPlaylist:
		return c.store.PutPlaylist(ctx, doc.(store.PlaylistDoc), rev)
	}
	return "", fmt.Errorf("unknown entity kind %d", k)
}

func (c *Coordinator) fetchRev(ctx context.Context, k kind, id string) (string, error) {
	var (
		rev string
		err error
	)
	switch k {
	case kindGame:
		_, rev, err = c.store.GetGame(ctx, id)
	case kindTeam:
		_, rev, err = c.store.GetTeam(ctx, id)
	case kindPlaylist:
		_, rev, err = c.store.GetPlaylist(ctx, id)
	}
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	return rev, err
}

// PersistPlaylist writes a playlist synchronously; playlists only change at
// ingest so they skip the debounce entirely.
func (c *Coordinator) PersistPlaylist(ctx context.Context, doc store.PlaylistDoc) error {
	e := c.entryFor(kindPlaylist, doc.ID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastWrite = time.Now()
	return c.writeLocked(e, doc)
}

// DeleteTeam removes the team document. Conflicts are not retried: a delete
// conflict means concurrent mutation and the business layer decides.
func (c *Coordinator) DeleteTeam(ctx context.Context, id string) error {
	return c.delete(ctx, kindTeam, id, c.store.DeleteTeam)
}

// DeleteGame removes the game document, same delete semantics as teams.
func (c *Coordinator) DeleteGame(ctx context.Context, id string) error {
	return c.delete(ctx, kindGame, id, c.store.DeleteGame)
}

func (c *Coordinator) delete(ctx context.Context, k kind, id string, del func(context.Context, string, string) error) error {
	e := c.entryFor(k, id)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pending = nil
	rev := e.rev
	if rev == "" {
		var err error
		if rev, err = c.fetchRev(ctx, k, id); err != nil {
			return err
		}
		if rev == "" {
			return game.NotFoundf("%s %s not found", k.String(), id)
		}
	}
	err := del(ctx, id, rev)
	switch {
	case errors.Is(err, store.ErrConflict):
		return game.Conflictf("%s %s was modified concurrently, retry", k.String(), id)
	case errors.Is(err, store.ErrNotFound):
		return game.NotFoundf("%s %s not found", k.String(), id)
	case err != nil:
		c.setDegraded(true)
		return err
	}
	e.rev = ""
	c.forget(k, id)
	return nil
}

func (c *Coordinator) forget(k kind, id string) {
	c.mu.Lock()
	delete(c.entries, k.String()+":"+id)
	c.mu.Unlock()
}

// Close stops accepting writes, wakes every scheduled flush, and drains what
// is left synchronously, logging per entity.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	close(c.done)

	finished := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		return ctx.Err()
	}

	// Flush tasks that hit transport errors leave their payload pending;
	// give each one a final synchronous attempt.
	c.mu.Lock()
	remaining := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		remaining = append(remaining, e)
	}
	c.mu.Unlock()

	var firstErr error
	for _, e := range remaining {
		e.mu.Lock()
		doc := e.pending
		e.pending = nil
		if doc == nil {
			e.mu.Unlock()
			continue
		}
		err := c.writeLocked(e, doc)
		e.mu.Unlock()
		if err != nil {
			c.log.Error("shutdown flush failed", "entity", e.kind.String(), "id", e.id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		} else {
			c.log.Info("shutdown flush ok", "entity", e.kind.String(), "id", e.id)
		}
	}
	return firstErr
}
