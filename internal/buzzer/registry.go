package buzzer

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/neon-beat/neon-beat-back/internal/game"
)

const (
	identifyTimeout = 10 * time.Second
	writeTimeout    = 5 * time.Second
)

// frame is the inbound device message.
type frame struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type conn struct {
	id      string
	ws      *websocket.Conn
	writeMu sync.Mutex
	cancel  context.CancelFunc
}

// Registry maps buzzer ids to live sockets, one socket per id. The last
// pattern sent to an id is remembered and replayed when the device
// reconnects.
type Registry struct {
	log    *slog.Logger
	onBuzz func(id string)

	mu    sync.Mutex
	conns map[string]*conn
	last  map[string]Pattern
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:   log,
		conns: map[string]*conn{},
		last:  map[string]Pattern{},
	}
}

// SetOnBuzz installs the buzz callback. Must be called before Handler serves
// traffic.
func (r *Registry) SetOnBuzz(fn func(id string)) {
	r.onBuzz = fn
}

// Handler accepts a buzzer socket: the device has 10 s to send its
// identification frame, after which buzz frames are forwarded until the
// socket dies.
func (r *Registry) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ws, err := websocket.Accept(w, req, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			r.log.Error("websocket accept failed", "error", err)
			return
		}
		defer ws.CloseNow()

		ctx, cancel := context.WithCancel(req.Context())
		defer cancel()

		idCtx, idCancel := context.WithTimeout(ctx, identifyTimeout)
		f, err := readFrame(idCtx, ws)
		idCancel()
		if err != nil || f.Type != "identification" || !game.ValidBuzzerID(f.ID) {
			ws.Close(websocket.StatusPolicyViolation, "identification required")
			return
		}

		c := &conn{id: f.ID, ws: ws, cancel: cancel}
		r.register(c)
		defer r.unregister(c)
		r.log.Info("buzzer connected", "buzzer_id", f.ID)

		for {
			f, err := readFrame(ctx, ws)
			if err != nil {
				r.log.Debug("buzzer read ended", "buzzer_id", c.id, "error", err)
				return
			}
			// Frames must match the socket's identification; anything else
			// is ignored.
			if f.Type == "buzz" && f.ID == c.id && r.onBuzz != nil {
				r.onBuzz(c.id)
			}
		}
	}
}

func readFrame(ctx context.Context, ws *websocket.Conn) (frame, error) {
	var f frame
	_, data, err := ws.Read(ctx)
	if err != nil {
		return f, err
	}
	// Malformed frames decode to the zero frame and fall through as ignored.
	_ = json.Unmarshal(data, &f)
	return f, nil
}

// register installs c, closing any prior socket for the same id, and replays
// the last pattern the id was shown.
func (r *Registry) register(c *conn) {
	r.mu.Lock()
	prev := r.conns[c.id]
	r.conns[c.id] = c
	replay, hasReplay := r.last[c.id]
	r.mu.Unlock()

	if prev != nil {
		prev.ws.Close(websocket.StatusPolicyViolation, "superseded by new connection")
		prev.cancel()
	}
	if hasReplay {
		r.write(c, replay)
	}
}

func (r *Registry) unregister(c *conn) {
	r.mu.Lock()
	if r.conns[c.id] == c {
		delete(r.conns, c.id)
	}
	r.mu.Unlock()
	r.log.Info("buzzer disconnected", "buzzer_id", c.id)
}

// Send delivers a pattern to one buzzer, best effort. The pattern is
// remembered for replay even when the device is offline.
func (r *Registry) Send(id string, p Pattern) {
	r.mu.Lock()
	r.last[id] = p
	c := r.conns[id]
	r.mu.Unlock()
	if c != nil {
		r.write(c, p)
	}
}

// Broadcast sends the pattern to every connected buzzer accepted by include
// (nil means all).
func (r *Registry) Broadcast(p Pattern, include func(id string) bool) {
	r.mu.Lock()
	targets := make([]*conn, 0, len(r.conns))
	for id, c := range r.conns {
		if include == nil || include(id) {
			targets = append(targets, c)
			r.last[id] = p
		}
	}
	r.mu.Unlock()
	for _, c := range targets {
		r.write(c, p)
	}
}

// Forget drops the remembered pattern for an id, e.g. when its pairing goes
// away with a deleted game.
func (r *Registry) Forget(id string) {
	r.mu.Lock()
	delete(r.last, id)
	r.mu.Unlock()
}

// Connected reports whether a live socket exists for id.
func (r *Registry) Connected(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns[id] != nil
}

func (r *Registry) write(c *conn, p Pattern) {
	data, err := json.Marshal(Message{Pattern: p})
	if err != nil {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
		r.log.Debug("buzzer write failed", "buzzer_id", c.id, "error", err)
	}
}
