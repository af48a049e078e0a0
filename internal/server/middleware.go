package server

import (
	"net/http"

	"github.com/neon-beat/neon-beat-back/internal/game"
	"github.com/neon-beat/neon-beat-back/internal/hub"
)

const adminTokenHeader = "X-Admin-Token"

// adminAuthMiddleware gates admin routes on the token issued to the live
// admin SSE subscriber. A new admin connection invalidates the old token.
func adminAuthMiddleware(hubs *hub.Hubs) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hubs.AdminTokenValid(r.Header.Get(adminTokenHeader)) {
				writeError(w, game.Unauthorizedf("missing or stale admin token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
