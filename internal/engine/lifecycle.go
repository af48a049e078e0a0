package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/neon-beat/neon-beat-back/internal/game"
	"github.com/neon-beat/neon-beat-back/internal/hub"
	"github.com/neon-beat/neon-beat-back/internal/store"
)

// TeamInput is the client-supplied part of a team. A nil color picks the
// first free palette entry.
type TeamInput struct {
	Name     string      `json:"name"`
	Color    *game.Color `json:"color"`
	BuzzerID string      `json:"buzzer_id"`
}

// GameInput creates a game against an already stored playlist.
type GameInput struct {
	Name       string      `json:"name"`
	PlaylistID string      `json:"playlist_id"`
	Shuffle    bool        `json:"shuffle"`
	Teams      []TeamInput `json:"teams"`
}

// GameDetail is the full admin view of one game.
type GameDetail struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	PlaylistID       string     `json:"playlist_id"`
	Phase            string     `json:"phase"`
	CurrentSongIndex int        `json:"current_song_index"`
	SongsTotal       int        `json:"songs_total"`
	Teams            []TeamView `json:"teams"`
	CreatedAt        string     `json:"created_at"`
}

type gameSessionPayload struct {
	GameID           string     `json:"game_id"`
	Name             string     `json:"name"`
	PlaylistID       string     `json:"playlist_id"`
	Phase            string     `json:"phase"`
	Teams            []TeamView `json:"teams"`
	SongsTotal       int        `json:"songs_total"`
	CurrentSongIndex int        `json:"current_song_index"`
}

// CreatePlaylist validates and stores an ingested playlist. Playlists are
// immutable once stored.
func (e *Engine) CreatePlaylist(ctx context.Context, pl game.Playlist) (game.Playlist, error) {
	if pl.ID == (uuid.UUID{}) {
		pl.ID = uuid.New()
	}
	for i := range pl.Songs {
		if pl.Songs[i].ID == (uuid.UUID{}) {
			pl.Songs[i].ID = uuid.New()
		}
	}
	if err := game.ValidatePlaylist(pl); err != nil {
		return game.Playlist{}, err
	}
	if err := e.coord.PersistPlaylist(ctx, store.FromPlaylist(pl)); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return game.Playlist{}, game.Conflictf("playlist %s already exists", pl.ID)
		}
		return game.Playlist{}, game.Degradedf("storing playlist: %v", err)
	}
	e.log.Info("playlist stored", "playlist_id", pl.ID, "songs", len(pl.Songs))
	return pl, nil
}

// ListPlaylists returns stored playlist summaries.
func (e *Engine) ListPlaylists(ctx context.Context) ([]store.PlaylistListItem, error) {
	items, err := e.store.ListPlaylists(ctx)
	if err != nil {
		return nil, game.Degradedf("listing playlists: %v", err)
	}
	if items == nil {
		items = []store.PlaylistListItem{}
	}
	return items, nil
}

// ListGames returns stored games, with the live phase patched onto the
// active one.
func (e *Engine) ListGames(ctx context.Context) ([]GameSummary, error) {
	items, err := e.store.ListGames(ctx)
	if err != nil {
		return nil, game.Degradedf("listing games: %v", err)
	}
	activeID, activePhase, _ := exec2(ctx, e, func() (string, string) {
		if e.session == nil {
			return "", ""
		}
		return e.session.GameID.String(), e.machine.Phase().Label()
	})
	out := make([]GameSummary, len(items))
	for i, it := range items {
		out[i] = GameSummary(it)
		if it.ID == activeID {
			out[i].Phase = activePhase
		}
	}
	return out, nil
}

// exec2 is exec for two-value reads that cannot fail.
func exec2[A, B any](ctx context.Context, e *Engine, fn func() (A, B)) (A, B, error) {
	type pair struct {
		a A
		b B
	}
	p, err := exec(ctx, e, func() (pair, error) {
		a, b := fn()
		return pair{a, b}, nil
	})
	return p.a, p.b, err
}

// CreateGame bootstraps a new session from a stored playlist.
func (e *Engine) CreateGame(ctx context.Context, in GameInput) (GameDetail, error) {
	if in.Name == "" {
		return GameDetail{}, game.Validationf("game name is required")
	}
	plID, err := parseID("playlist", in.PlaylistID)
	if err != nil {
		return GameDetail{}, err
	}
	return exec(ctx, e, func() (GameDetail, error) {
		pl, err := e.fetchPlaylist(ctx, plID)
		if err != nil {
			return GameDetail{}, err
		}
		return e.bootstrap(in, pl)
	})
}

// CreateGameWithPlaylist ingests the playlist and creates the game in one
// call.
func (e *Engine) CreateGameWithPlaylist(ctx context.Context, in GameInput, pl game.Playlist) (GameDetail, error) {
	if in.Name == "" {
		return GameDetail{}, game.Validationf("game name is required")
	}
	stored, err := e.CreatePlaylist(ctx, pl)
	if err != nil {
		return GameDetail{}, err
	}
	return exec(ctx, e, func() (GameDetail, error) {
		return e.bootstrap(in, stored)
	})
}

// bootstrap runs on the dispatcher goroutine.
func (e *Engine) bootstrap(in GameInput, pl game.Playlist) (GameDetail, error) {
	session := game.NewSession(uuid.New(), in.Name, pl, in.Shuffle)
	for _, ti := range in.Teams {
		team, err := e.buildTeam(session, ti)
		if err != nil {
			return GameDetail{}, err
		}
		if err := session.InsertTeam(team); err != nil {
			return GameDetail{}, err
		}
	}
	err := e.transition(game.Event{Kind: game.EventBootstrap}, func() error {
		e.session = session
		return nil
	})
	if err != nil {
		return GameDetail{}, err
	}

	for _, t := range session.Teams() {
		e.persistTeam(t)
	}
	e.persistSession()
	e.emitSession()
	e.emitPhase()
	e.syncPatterns()
	e.log.Info("game created", "game_id", session.GameID, "teams", len(in.Teams), "songs", len(pl.Songs))
	return e.gameDetailFromSession(), nil
}

func (e *Engine) buildTeam(s *game.Session, in TeamInput) (game.Team, error) {
	color := e.app.PickColor(usedColorsOf(s))
	if in.Color != nil {
		color = *in.Color
	}
	if err := game.ValidateTeamInput(in.Name, color, in.BuzzerID); err != nil {
		return game.Team{}, err
	}
	return game.Team{ID: uuid.New(), Name: in.Name, Color: color, BuzzerID: in.BuzzerID}, nil
}

func usedColorsOf(s *game.Session) []game.Color {
	teams := s.Teams()
	out := make([]game.Color, len(teams))
	for i, t := range teams {
		out[i] = t.Color
	}
	return out
}

// GetGame returns the stored game, or the live session when it is active.
func (e *Engine) GetGame(ctx context.Context, rawID string) (GameDetail, error) {
	id, err := parseID("game", rawID)
	if err != nil {
		return GameDetail{}, err
	}
	detail, err := exec(ctx, e, func() (GameDetail, error) {
		if e.session != nil && e.session.GameID == id {
			return e.gameDetailFromSession(), nil
		}
		return GameDetail{}, game.NotFoundf("game %s is not active", id)
	})
	if err == nil {
		return detail, nil
	}
	if game.TagOf(err) != game.TagNotFound {
		return GameDetail{}, err
	}
	return e.gameDetailFromStore(ctx, id)
}

func (e *Engine) gameDetailFromSession() GameDetail {
	s := e.session
	return GameDetail{
		ID:               s.GameID.String(),
		Name:             s.Name,
		PlaylistID:       s.PlaylistID.String(),
		Phase:            e.machine.Phase().Label(),
		CurrentSongIndex: s.Current,
		SongsTotal:       len(s.Sequence),
		Teams:            toTeamViews(s.Teams()),
		CreatedAt:        s.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
	}
}

func (e *Engine) gameDetailFromStore(ctx context.Context, id uuid.UUID) (GameDetail, error) {
	doc, _, err := e.store.GetGame(ctx, id.String())
	if errors.Is(err, store.ErrNotFound) {
		return GameDetail{}, game.NotFoundf("game %s not found", id)
	}
	if err != nil {
		return GameDetail{}, game.Degradedf("loading game: %v", err)
	}
	detail := GameDetail{
		ID:               doc.ID,
		Name:             doc.Name,
		PlaylistID:       doc.PlaylistID,
		Phase:            doc.Phase,
		CurrentSongIndex: doc.Current,
		SongsTotal:       len(doc.Sequence),
		Teams:            []TeamView{},
		CreatedAt:        doc.CreatedAt,
	}
	for _, teamID := range doc.TeamIDs {
		td, _, err := e.store.GetTeam(ctx, teamID)
		if err != nil {
			return GameDetail{}, game.Degradedf("loading team %s: %v", teamID, err)
		}
		t, err := store.ToTeam(td)
		if err != nil {
			return GameDetail{}, game.Internalf("corrupt team document %s: %v", teamID, err)
		}
		detail.Teams = append(detail.Teams, toTeamView(t))
	}
	return detail, nil
}

// LoadGame resurrects a stored game as the active session, resuming at the
// next unplayed song. An interrupted pairing round is re-entered.
func (e *Engine) LoadGame(ctx context.Context, rawID string) (GameDetail, error) {
	id, err := parseID("game", rawID)
	if err != nil {
		return GameDetail{}, err
	}
	return exec(ctx, e, func() (GameDetail, error) {
		doc, rev, err := e.store.GetGame(ctx, id.String())
		if errors.Is(err, store.ErrNotFound) {
			return GameDetail{}, game.NotFoundf("game %s not found", id)
		}
		if err != nil {
			return GameDetail{}, game.Degradedf("loading game: %v", err)
		}
		plID, err := uuid.Parse(doc.PlaylistID)
		if err != nil {
			return GameDetail{}, game.Internalf("corrupt game document %s: %v", doc.ID, err)
		}
		pl, err := e.fetchPlaylist(ctx, plID)
		if err != nil {
			return GameDetail{}, err
		}
		teams := make([]game.Team, 0, len(doc.TeamIDs))
		teamRevs := map[string]string{}
		for _, teamID := range doc.TeamIDs {
			td, trev, err := e.store.GetTeam(ctx, teamID)
			if err != nil {
				return GameDetail{}, game.Degradedf("loading team %s: %v", teamID, err)
			}
			t, err := store.ToTeam(td)
			if err != nil {
				return GameDetail{}, game.Internalf("corrupt team document %s: %v", teamID, err)
			}
			teams = append(teams, t)
			teamRevs[teamID] = trev
		}
		session, err := store.ToSession(doc, pl, teams)
		if err != nil {
			return GameDetail{}, err
		}

		err = e.transition(game.Event{Kind: game.EventBootstrap}, func() error {
			e.session = session
			return nil
		})
		if err != nil {
			return GameDetail{}, err
		}
		e.coord.TrackGame(doc.ID, rev)
		for id, trev := range teamRevs {
			e.coord.TrackTeam(id, trev)
		}

		e.emitSession()
		e.emitPhase()
		e.syncPatterns()
		e.log.Info("game loaded", "game_id", doc.ID, "phase", doc.Phase, "song_index", doc.Current)

		// The stored phase may say a pairing round was cut short; resume it.
		if doc.Phase == "prep_pairing" {
			if _, err := e.startPairing(uuid.UUID{}); err == nil {
				e.log.Info("pairing resumed", "game_id", doc.ID)
			}
		}
		return e.gameDetailFromSession(), nil
	})
}

func (e *Engine) fetchPlaylist(ctx context.Context, id uuid.UUID) (game.Playlist, error) {
	doc, _, err := e.store.GetPlaylist(ctx, id.String())
	if errors.Is(err, store.ErrNotFound) {
		return game.Playlist{}, game.NotFoundf("playlist %s not found", id)
	}
	if err != nil {
		return game.Playlist{}, game.Degradedf("loading playlist: %v", err)
	}
	pl, err := store.ToPlaylist(doc)
	if err != nil {
		return game.Playlist{}, game.Internalf("corrupt playlist document %s: %v", id, err)
	}
	return pl, nil
}

// DeleteGame removes a stored game and its teams. The active game must be
// ended first.
func (e *Engine) DeleteGame(ctx context.Context, rawID string) error {
	id, err := parseID("game", rawID)
	if err != nil {
		return err
	}
	_, err = exec(ctx, e, func() (struct{}, error) {
		var zero struct{}
		if e.session != nil && e.session.GameID == id {
			return zero, game.Preconditionf("game %s is currently active", id)
		}
		doc, _, err := e.store.GetGame(ctx, id.String())
		if errors.Is(err, store.ErrNotFound) {
			return zero, game.NotFoundf("game %s not found", id)
		}
		if err != nil {
			return zero, game.Degradedf("loading game: %v", err)
		}
		for _, teamID := range doc.TeamIDs {
			if err := e.coord.DeleteTeam(ctx, teamID); err != nil && game.TagOf(err) != game.TagNotFound {
				return zero, err
			}
		}
		if err := e.coord.DeleteGame(ctx, id.String()); err != nil {
			return zero, err
		}
		e.log.Info("game deleted", "game_id", id)
		return zero, nil
	})
	return err
}

func (e *Engine) emitSession() {
	if e.session == nil {
		return
	}
	e.hubs.Broadcast(hub.NewEvent(hub.EventGameSession, gameSessionPayload{
		GameID:           e.session.GameID.String(),
		Name:             e.session.Name,
		PlaylistID:       e.session.PlaylistID.String(),
		Phase:            e.machine.Phase().Label(),
		Teams:            toTeamViews(e.session.Teams()),
		SongsTotal:       len(e.session.Sequence),
		CurrentSongIndex: e.session.Current,
	}))
}
