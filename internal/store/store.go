// Package store defines the document-store contract shared by the SQLite and
// Redis drivers: three collections (games, teams, playlists) with an opaque
// per-document revision token for optimistic concurrency.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict means the supplied revision no longer matches the stored one.
	ErrConflict = errors.New("revision conflict")
)

// GameListItem is the summary row returned by ListGames.
type GameListItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PlaylistID string `json:"playlist_id"`
	Phase      string `json:"phase"`
	CreatedAt  string `json:"created_at"`
}

// PlaylistListItem is the summary row returned by ListPlaylists.
type PlaylistListItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SongCount int    `json:"song_count"`
}

// Store is the persistence contract. Get returns the current revision; Put
// takes the caller's revision ("" for a first write) and returns the new one,
// failing with ErrConflict when the stored revision differs. Delete requires
// the current revision.
type Store interface {
	GetGame(ctx context.Context, id string) (GameDoc, string, error)
	PutGame(ctx context.Context, doc GameDoc, rev string) (string, error)
	DeleteGame(ctx context.Context, id, rev string) error
	ListGames(ctx context.Context) ([]GameListItem, error)

	GetTeam(ctx context.Context, id string) (TeamDoc, string, error)
	PutTeam(ctx context.Context, doc TeamDoc, rev string) (string, error)
	DeleteTeam(ctx context.Context, id, rev string) error

	GetPlaylist(ctx context.Context, id string) (PlaylistDoc, string, error)
	PutPlaylist(ctx context.Context, doc PlaylistDoc, rev string) (string, error)
	ListPlaylists(ctx context.Context) ([]PlaylistListItem, error)

	Ping(ctx context.Context) error
	Close() error
}
