package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/neon-beat/neon-beat-back/internal/hub"
)

const keepAliveInterval = 15 * time.Second

// Handshake is the first event on every stream. The admin variant carries the
// freshly issued session token.
type Handshake struct {
	Stream   string `json:"stream"`
	Message  string `json:"message"`
	Degraded bool   `json:"degraded"`
	Token    string `json:"token,omitempty"`
}

func handlePublicEvents(hubs *hub.Hubs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := sseHeaders(w)
		if !ok {
			return
		}

		ch := hubs.Public.Subscribe()
		defer hubs.Public.Unsubscribe(ch)

		writeSSE(w, flusher, hub.NewEvent(hub.EventHandshake, Handshake{
			Stream:   "public",
			Message:  "connected",
			Degraded: hubs.Degraded(),
		}))

		ping := time.NewTicker(keepAliveInterval)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case ev := <-ch:
				writeSSE(w, flusher, ev)
			case <-ping.C:
				fmt.Fprintf(w, ": keep-alive\n\n")
				flusher.Flush()
			}
		}
	}
}

// handleAdminEvents admits at most one admin: a newer connection evicts this
// one, invalidating its token.
func handleAdminEvents(hubs *hub.Hubs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := sseHeaders(w)
		if !ok {
			return
		}

		sub := hubs.ClaimAdmin()
		defer hubs.ReleaseAdmin(sub)

		writeSSE(w, flusher, hub.NewEvent(hub.EventHandshake, Handshake{
			Stream:   "admin",
			Message:  "connected",
			Degraded: hubs.Degraded(),
			Token:    sub.Token,
		}))

		ping := time.NewTicker(keepAliveInterval)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-sub.Done:
				return
			case ev := <-sub.Ch:
				writeSSE(w, flusher, ev)
			case <-ping.C:
				fmt.Fprintf(w, ": keep-alive\n\n")
				flusher.Flush()
			}
		}
	}
}

func sseHeaders(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, fmt.Errorf("streaming not supported"))
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher.Flush()
	return flusher, true
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev hub.Event) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data)
	flusher.Flush()
}
