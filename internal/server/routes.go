package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"

	"github.com/neon-beat/neon-beat-back/internal/buzzer"
	"github.com/neon-beat/neon-beat-back/internal/engine"
	"github.com/neon-beat/neon-beat-back/internal/hub"
	"github.com/neon-beat/neon-beat-back/internal/store"
)

func addRoutes(r chi.Router, logger *slog.Logger, eng *engine.Engine, hubs *hub.Hubs, reg *buzzer.Registry, st store.Store) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Neon Beat API", "/openapi.json", "/docs"))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthcheck", handleHealth(logger, st))

	// Public display — read-only, no auth.
	r.Get("/public/phase", handlePublicPhase(eng))
	r.Get("/public/teams", handlePublicTeams(eng))
	r.Get("/public/song", handlePublicSong(eng))
	r.Get("/public/pairing-status", handlePairingStatus(eng))

	// Streams. The admin stream doubles as session bootstrap: its handshake
	// carries the token the /admin routes require.
	r.Get("/sse/public", handlePublicEvents(hubs))
	r.Get("/sse/admin", handleAdminEvents(hubs))

	// Buzzer devices.
	r.Get("/ws", reg.Handler())

	r.Route("/admin", func(r chi.Router) {
		r.Use(adminAuthMiddleware(hubs))

		r.Get("/games", handleListGames(eng))
		r.Post("/games", handleCreateGame(eng))
		r.Post("/games/with-playlist", handleCreateGameWithPlaylist(eng))
		r.Get("/games/{gameID}", handleGetGame(eng))
		r.Post("/games/{gameID}/load", handleLoadGame(eng))
		r.Delete("/games/{gameID}", handleDeleteGame(eng))

		r.Get("/playlists", handleListPlaylists(eng))
		r.Post("/playlists", handleCreatePlaylist(eng))

		r.Post("/teams", handleCreateTeam(eng))
		r.Put("/teams/{teamID}", handleUpdateTeam(eng))
		r.Delete("/teams/{teamID}", handleDeleteTeam(eng))
		r.Post("/teams/{teamID}/score", handleAdjustScore(eng))
		r.Post("/teams/pairing", handleStartPairing(eng))
		r.Post("/teams/pairing/abort", handleAbortPairing(eng))

		r.Post("/game/start", handleStartGame(eng))
		r.Post("/game/pause", handlePause(eng))
		r.Post("/game/resume", handleResume(eng))
		r.Post("/game/reveal", handleReveal(eng))
		r.Post("/game/next", handleNextSong(eng))
		r.Post("/game/stop", handleStop(eng))
		r.Post("/game/end", handleEnd(eng))
		r.Post("/game/answer", handleValidateAnswer(eng))
		r.Post("/game/field", handleMarkField(eng))
	})
}
