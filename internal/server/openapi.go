package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/neon-beat/neon-beat-back/internal/engine"
	"github.com/neon-beat/neon-beat-back/internal/game"
	"github.com/neon-beat/neon-beat-back/internal/store"
)

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Neon Beat API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the Neon Beat blind test. Admin routes require the X-Admin-Token header issued by the admin SSE handshake.")

	// GET /healthcheck
	getHealth, _ := r.NewOperationContext(http.MethodGet, "/healthcheck")
	getHealth.SetSummary("Health check")
	getHealth.SetDescription("Returns the health status of the document store.")
	getHealth.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealth.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealth)

	// GET /public/phase
	getPhase, _ := r.NewOperationContext(http.MethodGet, "/public/phase")
	getPhase.SetSummary("Current phase")
	getPhase.SetDescription("Authoritative phase snapshot, including the current-song teaser and the buzzed team when paused on a buzz.")
	getPhase.AddRespStructure(engine.PhaseSnapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getPhase)

	// GET /public/teams
	getTeams, _ := r.NewOperationContext(http.MethodGet, "/public/teams")
	getTeams.SetSummary("Scoreboard")
	getTeams.SetDescription("Teams of the active game in insertion order.")
	getTeams.AddRespStructure([]engine.TeamView{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getTeams)

	// GET /public/song
	getSong, _ := r.NewOperationContext(http.MethodGet, "/public/song")
	getSong.SetSummary("Current song")
	getSong.SetDescription("Current song view. Field values show once found; the URL is disclosed only in reveal.")
	getSong.AddRespStructure(engine.SongView{}, openapi.WithHTTPStatus(http.StatusOK))
	getSong.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getSong)

	// GET /public/pairing-status
	getPairing, _ := r.NewOperationContext(http.MethodGet, "/public/pairing-status")
	getPairing.SetSummary("Pairing status")
	getPairing.SetDescription("The team currently waiting for a buzzer, if a pairing round is open.")
	getPairing.AddRespStructure(engine.PairingStatus{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getPairing)

	// GET /sse/public
	getPublicSSE, _ := r.NewOperationContext(http.MethodGet, "/sse/public")
	getPublicSSE.SetSummary("Public event stream")
	getPublicSSE.SetDescription("Server-Sent Events stream of game events. Starts with a handshake event.")
	getPublicSSE.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getPublicSSE)

	// GET /sse/admin
	getAdminSSE, _ := r.NewOperationContext(http.MethodGet, "/sse/admin")
	getAdminSSE.SetSummary("Admin event stream")
	getAdminSSE.SetDescription("Single-subscriber admin stream. The handshake carries the admin token; a newer connection evicts the previous one and invalidates its token.")
	getAdminSSE.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getAdminSSE)

	// GET /ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/ws")
	getWS.SetSummary("Buzzer WebSocket")
	getWS.SetDescription("Buzzer device socket. The device must send an identification frame within 10 seconds, then buzz frames; the server pushes LED patterns.")
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	// GET /admin/games
	listGames, _ := r.NewOperationContext(http.MethodGet, "/admin/games")
	listGames.SetSummary("List games")
	listGames.SetDescription("Stored games, with the live phase patched onto the active one.")
	listGames.AddRespStructure([]engine.GameSummary{}, openapi.WithHTTPStatus(http.StatusOK))
	listGames.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listGames)

	// POST /admin/games
	createGame, _ := r.NewOperationContext(http.MethodPost, "/admin/games")
	createGame.SetSummary("Create game")
	createGame.SetDescription("Creates a game from a stored playlist with an initial team list.")
	createGame.AddReqStructure(engine.GameInput{})
	createGame.AddRespStructure(engine.GameDetail{}, openapi.WithHTTPStatus(http.StatusCreated))
	createGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(createGame)

	// POST /admin/games/with-playlist
	createGamePl, _ := r.NewOperationContext(http.MethodPost, "/admin/games/with-playlist")
	createGamePl.SetSummary("Create game with playlist")
	createGamePl.SetDescription("Ingests the playlist and creates the game in one call.")
	createGamePl.AddReqStructure(GameWithPlaylistRequest{})
	createGamePl.AddRespStructure(engine.GameDetail{}, openapi.WithHTTPStatus(http.StatusCreated))
	createGamePl.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(createGamePl)

	// GET /admin/games/{gameID}
	getGame, _ := r.NewOperationContext(http.MethodGet, "/admin/games/{gameID}")
	getGame.SetSummary("Get game")
	getGame.AddRespStructure(engine.GameDetail{}, openapi.WithHTTPStatus(http.StatusOK))
	getGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getGame)

	// POST /admin/games/{gameID}/load
	loadGame, _ := r.NewOperationContext(http.MethodPost, "/admin/games/{gameID}/load")
	loadGame.SetSummary("Load game")
	loadGame.SetDescription("Resurrects a stored game as the active session, resuming at the next unplayed song. An interrupted pairing round is re-entered.")
	loadGame.AddRespStructure(engine.GameDetail{}, openapi.WithHTTPStatus(http.StatusOK))
	loadGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	loadGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(loadGame)

	// DELETE /admin/games/{gameID}
	deleteGame, _ := r.NewOperationContext(http.MethodDelete, "/admin/games/{gameID}")
	deleteGame.SetSummary("Delete game")
	deleteGame.SetDescription("Deletes a stored game and its teams. The active game must be ended first.")
	deleteGame.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	deleteGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusPreconditionFailed))
	_ = r.AddOperation(deleteGame)

	// GET /admin/playlists
	listPlaylists, _ := r.NewOperationContext(http.MethodGet, "/admin/playlists")
	listPlaylists.SetSummary("List playlists")
	listPlaylists.AddRespStructure([]store.PlaylistListItem{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listPlaylists)

	// POST /admin/playlists
	createPlaylist, _ := r.NewOperationContext(http.MethodPost, "/admin/playlists")
	createPlaylist.SetSummary("Ingest playlist")
	createPlaylist.SetDescription("Stores an immutable playlist. Songs need at least one point field.")
	createPlaylist.AddReqStructure(game.Playlist{})
	createPlaylist.AddRespStructure(game.Playlist{}, openapi.WithHTTPStatus(http.StatusCreated))
	createPlaylist.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(createPlaylist)

	// POST /admin/teams
	createTeam, _ := r.NewOperationContext(http.MethodPost, "/admin/teams")
	createTeam.SetSummary("Add team")
	createTeam.SetDescription("Adds a team to the active game. Allowed only while preparing.")
	createTeam.AddReqStructure(engine.TeamInput{})
	createTeam.AddRespStructure(engine.TeamView{}, openapi.WithHTTPStatus(http.StatusCreated))
	createTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(createTeam)

	// PUT /admin/teams/{teamID}
	updateTeam, _ := r.NewOperationContext(http.MethodPut, "/admin/teams/{teamID}")
	updateTeam.SetSummary("Update team")
	updateTeam.AddReqStructure(engine.TeamInput{})
	updateTeam.AddRespStructure(engine.TeamView{}, openapi.WithHTTPStatus(http.StatusOK))
	updateTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(updateTeam)

	// DELETE /admin/teams/{teamID}
	deleteTeam, _ := r.NewOperationContext(http.MethodDelete, "/admin/teams/{teamID}")
	deleteTeam.SetSummary("Delete team")
	deleteTeam.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteTeam)

	// POST /admin/teams/{teamID}/score
	score, _ := r.NewOperationContext(http.MethodPost, "/admin/teams/{teamID}/score")
	score.SetSummary("Adjust score")
	score.AddReqStructure(ScoreRequest{})
	score.AddRespStructure(engine.TeamView{}, openapi.WithHTTPStatus(http.StatusOK))
	score.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(score)

	// POST /admin/teams/pairing
	pairing, _ := r.NewOperationContext(http.MethodPost, "/admin/teams/pairing")
	pairing.SetSummary("Start pairing")
	pairing.SetDescription("Opens a buzzer pairing round on the first unpaired team, or the requested one.")
	pairing.AddReqStructure(PairingRequest{})
	pairing.AddRespStructure(engine.PairingStatus{}, openapi.WithHTTPStatus(http.StatusOK))
	pairing.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusPreconditionFailed))
	_ = r.AddOperation(pairing)

	// POST /admin/teams/pairing/abort
	abortPairing, _ := r.NewOperationContext(http.MethodPost, "/admin/teams/pairing/abort")
	abortPairing.SetSummary("Abort pairing")
	abortPairing.SetDescription("Rolls every team back to the snapshot taken when the round opened.")
	abortPairing.AddRespStructure([]engine.TeamView{}, openapi.WithHTTPStatus(http.StatusOK))
	abortPairing.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(abortPairing)

	// POST /admin/game/start
	start, _ := r.NewOperationContext(http.MethodPost, "/admin/game/start")
	start.SetSummary("Start game")
	start.SetDescription("Moves into playing. shuffle=true reorders the remaining songs; rejected once the playlist is partially played.")
	start.AddRespStructure(engine.PhaseSnapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	start.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusPreconditionFailed))
	_ = r.AddOperation(start)

	for _, op := range []struct{ path, summary string }{
		{"/admin/game/pause", "Pause playback"},
		{"/admin/game/resume", "Resume playback"},
		{"/admin/game/reveal", "Reveal current song"},
		{"/admin/game/next", "Advance to next song"},
		{"/admin/game/stop", "Stop game"},
		{"/admin/game/end", "End game"},
	} {
		oc, _ := r.NewOperationContext(http.MethodPost, op.path)
		oc.SetSummary(op.summary)
		oc.AddRespStructure(engine.PhaseSnapshot{}, openapi.WithHTTPStatus(http.StatusOK))
		oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
		_ = r.AddOperation(oc)
	}

	// POST /admin/game/answer
	answer, _ := r.NewOperationContext(http.MethodPost, "/admin/game/answer")
	answer.SetSummary("Validate answer")
	answer.SetDescription("Records the verdict (correct, incomplete, wrong) on the buzzed answer.")
	answer.AddReqStructure(AnswerRequest{})
	answer.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	answer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(answer)

	// POST /admin/game/field
	field, _ := r.NewOperationContext(http.MethodPost, "/admin/game/field")
	field.SetSummary("Mark field found")
	field.SetDescription("Flags a point or bonus field of the current song as identified.")
	field.AddReqStructure(FieldRequest{})
	field.AddRespStructure(game.FoundFields{}, openapi.WithHTTPStatus(http.StatusOK))
	field.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(field)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
