package hub

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
)

// Stream event names.
const (
	EventHandshake        = "handshake"
	EventSystemStatus     = "system_status"
	EventPhaseChanged     = "phase_changed"
	EventTeamCreated      = "team.created"
	EventTeamUpdated      = "team.updated"
	EventTeamDeleted      = "team.deleted"
	EventGameSession      = "game.session"
	EventFieldsFound      = "fields_found"
	EventAnswerValidation = "answer_validation"
	EventScoreAdjustment  = "score_adjustment"
	EventPairingWaiting   = "pairing.waiting"
	EventPairingAssigned  = "pairing.assigned"
	EventPairingRestored  = "pairing.restored"
	EventTestBuzz         = "test.buzz"
)

// AdminSub is an active admin subscription. Done is closed when a newer
// connection evicts this one.
type AdminSub struct {
	Ch    chan Event
	Done  chan struct{}
	Token string
}

// Hubs bundles the two streams with the single-admin session. Admin REST
// calls authenticate against the token issued to the live admin subscriber.
type Hubs struct {
	Public *Hub
	Admin  *Hub

	mu       sync.Mutex
	admin    *AdminSub
	degraded bool
}

func NewHubs() *Hubs {
	return &Hubs{Public: New("public"), Admin: New("admin")}
}

func newToken() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// ClaimAdmin registers a new admin subscriber, evicting and invalidating any
// prior one. The returned subscription carries the freshly issued token.
func (h *Hubs) ClaimAdmin() *AdminSub {
	sub := &AdminSub{
		Ch:    h.Admin.Subscribe(),
		Done:  make(chan struct{}),
		Token: newToken(),
	}
	h.mu.Lock()
	prev := h.admin
	h.admin = sub
	h.mu.Unlock()
	if prev != nil {
		close(prev.Done)
		h.Admin.Unsubscribe(prev.Ch)
	}
	return sub
}

// ReleaseAdmin drops the subscription if it is still the active one.
func (h *Hubs) ReleaseAdmin(sub *AdminSub) {
	h.mu.Lock()
	if h.admin == sub {
		h.admin = nil
	}
	h.mu.Unlock()
	h.Admin.Unsubscribe(sub.Ch)
}

// AdminTokenValid compares token against the live admin session.
func (h *Hubs) AdminTokenValid(token string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return token != "" && h.admin != nil && h.admin.Token == token
}

// Broadcast publishes the event on both streams.
func (h *Hubs) Broadcast(ev Event) {
	h.Public.Publish(ev)
	h.Admin.Publish(ev)
}

// SetDegraded records the persistence health flag and, on change, emits a
// system_status event on both streams.
func (h *Hubs) SetDegraded(degraded bool) {
	h.mu.Lock()
	changed := h.degraded != degraded
	h.degraded = degraded
	h.mu.Unlock()
	if changed {
		h.Broadcast(NewEvent(EventSystemStatus, map[string]bool{"degraded": degraded}))
	}
}

// Degraded reports the current persistence health flag.
func (h *Hubs) Degraded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.degraded
}
