package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/neon-beat/neon-beat-back/internal/buzzer"
	"github.com/neon-beat/neon-beat-back/internal/config"
	"github.com/neon-beat/neon-beat-back/internal/engine"
	"github.com/neon-beat/neon-beat-back/internal/game"
	"github.com/neon-beat/neon-beat-back/internal/hub"
	"github.com/neon-beat/neon-beat-back/internal/persist"
	"github.com/neon-beat/neon-beat-back/internal/store"
)

// fakeStore is an in-memory Store for routing tests. Revisions are accepted
// as-is; concurrency behavior is covered by the store and persist tests.
type fakeStore struct {
	mu        sync.Mutex
	pingErr   error
	games     map[string]store.GameDoc
	teams     map[string]store.TeamDoc
	playlists map[string]store.PlaylistDoc
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		games:     map[string]store.GameDoc{},
		teams:     map[string]store.TeamDoc{},
		playlists: map[string]store.PlaylistDoc{},
	}
}

func (f *fakeStore) GetGame(ctx context.Context, id string) (store.GameDoc, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.games[id]
	if !ok {
		return store.GameDoc{}, "", store.ErrNotFound
	}
	return doc, "1", nil
}

func (f *fakeStore) PutGame(ctx context.Context, doc store.GameDoc, rev string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.games[doc.ID] = doc
	return "1", nil
}

func (f *fakeStore) DeleteGame(ctx context.Context, id, rev string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.games[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.games, id)
	return nil
}

func (f *fakeStore) ListGames(ctx context.Context) ([]store.GameListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.GameListItem
	for _, doc := range f.games {
		out = append(out, store.GameListItem{ID: doc.ID, Name: doc.Name, PlaylistID: doc.PlaylistID, Phase: doc.Phase, CreatedAt: doc.CreatedAt})
	}
	return out, nil
}

func (f *fakeStore) GetTeam(ctx context.Context, id string) (store.TeamDoc, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.teams[id]
	if !ok {
		return store.TeamDoc{}, "", store.ErrNotFound
	}
	return doc, "1", nil
}

func (f *fakeStore) PutTeam(ctx context.Context, doc store.TeamDoc, rev string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teams[doc.ID] = doc
	return "1", nil
}

func (f *fakeStore) DeleteTeam(ctx context.Context, id, rev string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.teams, id)
	return nil
}

func (f *fakeStore) GetPlaylist(ctx context.Context, id string) (store.PlaylistDoc, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.playlists[id]
	if !ok {
		return store.PlaylistDoc{}, "", store.ErrNotFound
	}
	return doc, "1", nil
}

func (f *fakeStore) PutPlaylist(ctx context.Context, doc store.PlaylistDoc, rev string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playlists[doc.ID] = doc
	return "1", nil
}

func (f *fakeStore) ListPlaylists(ctx context.Context) ([]store.PlaylistListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.PlaylistListItem
	for _, doc := range f.playlists {
		out = append(out, store.PlaylistListItem{ID: doc.ID, Name: doc.Name, SongCount: len(doc.Songs)})
	}
	return out, nil
}

func (f *fakeStore) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeStore) Close() error { return nil }

type testServer struct {
	ts   *httptest.Server
	hubs *hub.Hubs
	st   *fakeStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := newFakeStore()
	hubs := hub.NewHubs()
	reg := buzzer.NewRegistry(logger)
	app, err := config.LoadAppearance("")
	if err != nil {
		t.Fatal(err)
	}
	coord := persist.New(st, logger, 10*time.Millisecond, hubs.SetDegraded)
	eng := engine.New(logger, st, coord, hubs, reg, app)

	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)

	r := chi.NewRouter()
	addRoutes(r, logger, eng, hubs, reg, st)
	ts := httptest.NewServer(r)
	t.Cleanup(func() {
		ts.Close()
		cancel()
		coord.Close(context.Background())
	})
	return &testServer{ts: ts, hubs: hubs, st: st}
}

// adminToken claims the admin session directly, standing in for the SSE
// handshake.
func (s *testServer) adminToken() string {
	return s.hubs.ClaimAdmin().Token
}

func (s *testServer) do(t *testing.T, method, path, token string, body string) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.ts.URL+path, rdr)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set(adminTokenHeader, token)
	}
	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

const playlistBody = `{
	"name": "eighties",
	"songs": [{
		"guess_duration_ms": 30000,
		"url": "https://example.com/one",
		"point_fields": [{"key": "title", "value": "t", "points": 1}],
		"bonus_fields": []
	}]
}`

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/healthcheck", "", "")
	var body HealthResponse
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusOK || body.Status != "ok" {
		t.Errorf("healthy store: status %d body %+v", resp.StatusCode, body)
	}

	s.st.mu.Lock()
	s.st.pingErr = context.DeadlineExceeded
	s.st.mu.Unlock()

	resp = s.do(t, http.MethodGet, "/healthcheck", "", "")
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusServiceUnavailable || body.Status != "error" {
		t.Errorf("dead store: status %d body %+v", resp.StatusCode, body)
	}
}

func TestHandleOpenAPI(t *testing.T) {
	h := handleOpenAPI()
	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	rec := httptest.NewRecorder()

	h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "application/json") {
		t.Fatalf("content-type = %q, want application/json", got)
	}
	body := rec.Body.String()
	for _, path := range []string{`"/healthcheck"`, `"/public/phase"`, `"/admin/games"`, `"/admin/game/field"`} {
		if !strings.Contains(body, path) {
			t.Errorf("spec missing %s", path)
		}
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/admin/games", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", resp.StatusCode)
	}
	var errBody ErrorResponse
	decodeBody(t, resp, &errBody)
	if errBody.Error.Tag != "unauthorized" {
		t.Errorf("tag = %q, want unauthorized", errBody.Error.Tag)
	}

	resp = s.do(t, http.MethodGet, "/admin/games", "bogus", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("stale token: status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()

	token := s.adminToken()
	resp = s.do(t, http.MethodGet, "/admin/games", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	// A second admin connection invalidates the first token.
	second := s.adminToken()
	resp = s.do(t, http.MethodGet, "/admin/games", token, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("evicted token: status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
	resp = s.do(t, http.MethodGet, "/admin/games", second, "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("fresh token: status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGameLifecycleRoutes(t *testing.T) {
	s := newTestServer(t)
	token := s.adminToken()

	resp := s.do(t, http.MethodPost, "/admin/playlists", token, playlistBody)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create playlist: status = %d", resp.StatusCode)
	}
	var pl game.Playlist
	decodeBody(t, resp, &pl)

	gameBody := `{"name":"friday night","playlist_id":"` + pl.ID.String() + `","teams":[{"name":"T1"},{"name":"T2"}]}`
	resp = s.do(t, http.MethodPost, "/admin/games", token, gameBody)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create game: status = %d", resp.StatusCode)
	}
	var detail engine.GameDetail
	decodeBody(t, resp, &detail)
	if len(detail.Teams) != 2 || detail.Phase != "prep_ready" {
		t.Fatalf("detail = %+v", detail)
	}

	resp = s.do(t, http.MethodGet, "/public/teams", "", "")
	var teams []engine.TeamView
	decodeBody(t, resp, &teams)
	if len(teams) != 2 || teams[0].Name != "T1" {
		t.Errorf("public teams = %+v", teams)
	}

	resp = s.do(t, http.MethodGet, "/public/phase", "", "")
	var snap engine.PhaseSnapshot
	decodeBody(t, resp, &snap)
	if snap.Phase != "prep_ready" || snap.GameID != detail.ID {
		t.Errorf("phase = %+v", snap)
	}

	// Deleting the active game is refused.
	resp = s.do(t, http.MethodDelete, "/admin/games/"+detail.ID, token, "")
	if resp.StatusCode != http.StatusPreconditionFailed {
		t.Errorf("delete active game: status = %d, want 412", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUnknownJSONFieldRejected(t *testing.T) {
	s := newTestServer(t)
	token := s.adminToken()

	resp := s.do(t, http.MethodPost, "/admin/teams", token, `{"name":"T1","surprise":true}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var errBody ErrorResponse
	decodeBody(t, resp, &errBody)
	if errBody.Error.Tag != "validation" {
		t.Errorf("tag = %q, want validation", errBody.Error.Tag)
	}
}

func TestPhaseGatedCommandMapsToConflict(t *testing.T) {
	s := newTestServer(t)
	token := s.adminToken()

	// No active game: pausing is rejected by phase.
	resp := s.do(t, http.MethodPost, "/admin/game/pause", token, "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	var errBody ErrorResponse
	decodeBody(t, resp, &errBody)
	if errBody.Error.Tag != "phase_rejected" {
		t.Errorf("tag = %q, want phase_rejected", errBody.Error.Tag)
	}
}

func readSSEEvent(t *testing.T, br *bufio.Reader) (name, data string) {
	t.Helper()
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("reading stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
}

func TestPublicStreamHandshake(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, s.ts.URL+"/sse/public", nil)
	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	name, data := readSSEEvent(t, bufio.NewReader(resp.Body))
	if name != hub.EventHandshake {
		t.Fatalf("first event = %q, want handshake", name)
	}
	var hs Handshake
	if err := json.Unmarshal([]byte(data), &hs); err != nil {
		t.Fatal(err)
	}
	if hs.Stream != "public" || hs.Token != "" {
		t.Errorf("handshake = %+v", hs)
	}
}

func TestAdminStreamIssuesWorkingToken(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, s.ts.URL+"/sse/admin", nil)
	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	name, data := readSSEEvent(t, bufio.NewReader(resp.Body))
	if name != hub.EventHandshake {
		t.Fatalf("first event = %q, want handshake", name)
	}
	var hs Handshake
	if err := json.Unmarshal([]byte(data), &hs); err != nil {
		t.Fatal(err)
	}
	if hs.Stream != "admin" || len(hs.Token) != 32 {
		t.Fatalf("handshake = %+v", hs)
	}

	check := s.do(t, http.MethodGet, "/admin/games", hs.Token, "")
	if check.StatusCode != http.StatusOK {
		t.Errorf("token from handshake: status = %d, want 200", check.StatusCode)
	}
	check.Body.Close()
}
