package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	_ "github.com/tursodatabase/go-libsql"
)

// SQLiteStore keeps each collection in its own table with a JSONB data
// column and an integer revision column. Revisions are rendered as opaque
// decimal strings on the contract boundary.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database file via libSQL, configures it
// for concurrent use, and ensures the document tables exist.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("libsql", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// libSQL rejects Exec for PRAGMAs that return rows; QueryContext with a
	// drained cursor handles both kinds uniformly.
	for _, p := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		rows, err := db.QueryContext(ctx, p)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("executing %s: %w", p, err)
		}
		rows.Close()
	}

	for _, table := range []string{"games", "teams", "playlists"} {
		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id   TEXT PRIMARY KEY,
			rev  INTEGER NOT NULL,
			data JSONB NOT NULL
		)`, table)
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating table %s: %w", table, err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) get(ctx context.Context, table, id string, dest any) (string, error) {
	var (
		data string
		rev  int64
	)
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT json(data), rev FROM %s WHERE id = ?`, table), id,
	).Scan(&data, &rev)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return "", err
	}
	return strconv.FormatInt(rev, 10), nil
}

// put inserts on rev == "" and otherwise performs a compare-and-swap on the
// revision column.
func (s *SQLiteStore) put(ctx context.Context, table, id string, doc any, rev string) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	if rev == "" {
		result, err := s.db.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (id, rev, data) VALUES (?, 1, jsonb(?))
			 ON CONFLICT(id) DO NOTHING`, table),
			id, string(data),
		)
		if err != nil {
			return "", err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return "", ErrConflict
		}
		return "1", nil
	}

	prev, err := strconv.ParseInt(rev, 10, 64)
	if err != nil {
		return "", fmt.Errorf("malformed revision %q: %w", rev, err)
	}
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET rev = rev + 1, data = jsonb(?) WHERE id = ? AND rev = ?`, table),
		string(data), id, prev,
	)
	if err != nil {
		return "", err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return "", s.missOrConflict(ctx, table, id)
	}
	return strconv.FormatInt(prev+1, 10), nil
}

func (s *SQLiteStore) del(ctx context.Context, table, id, rev string) error {
	prev, err := strconv.ParseInt(rev, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed revision %q: %w", rev, err)
	}
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND rev = ?`, table), id, prev,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return s.missOrConflict(ctx, table, id)
	}
	return nil
}

// missOrConflict disambiguates a zero-row CAS: the document is either gone
// or at another revision.
func (s *SQLiteStore) missOrConflict(ctx context.Context, table, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT 1 FROM %s WHERE id = ?`, table), id,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}

func (s *SQLiteStore) GetGame(ctx context.Context, id string) (GameDoc, string, error) {
	var doc GameDoc
	rev, err := s.get(ctx, "games", id, &doc)
	return doc, rev, err
}

func (s *SQLiteStore) PutGame(ctx context.Context, doc GameDoc, rev string) (string, error) {
	return s.put(ctx, "games", doc.ID, doc, rev)
}

func (s *SQLiteStore) DeleteGame(ctx context.Context, id, rev string) error {
	return s.del(ctx, "games", id, rev)
}

func (s *SQLiteStore) ListGames(ctx context.Context) ([]GameListItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT json(data) FROM games ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GameListItem
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var doc GameDoc
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, err
		}
		out = append(out, GameListItem{
			ID:         doc.ID,
			Name:       doc.Name,
			PlaylistID: doc.PlaylistID,
			Phase:      doc.Phase,
			CreatedAt:  doc.CreatedAt,
		})
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetTeam(ctx context.Context, id string) (TeamDoc, string, error) {
	var doc TeamDoc
	rev, err := s.get(ctx, "teams", id, &doc)
	return doc, rev, err
}

func (s *SQLiteStore) PutTeam(ctx context.Context, doc TeamDoc, rev string) (string, error) {
	return s.put(ctx, "teams", doc.ID, doc, rev)
}

func (s *SQLiteStore) DeleteTeam(ctx context.Context, id, rev string) error {
	return s.del(ctx, "teams", id, rev)
}

func (s *SQLiteStore) GetPlaylist(ctx context.Context, id string) (PlaylistDoc, string, error) {
	var doc PlaylistDoc
	rev, err := s.get(ctx, "playlists", id, &doc)
	return doc, rev, err
}

func (s *SQLiteStore) PutPlaylist(ctx context.Context, doc PlaylistDoc, rev string) (string, error) {
	return s.put(ctx, "playlists", doc.ID, doc, rev)
}

func (s *SQLiteStore) ListPlaylists(ctx context.Context) ([]PlaylistListItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT json(data) FROM playlists ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlaylistListItem
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var doc PlaylistDoc
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, err
		}
		out = append(out, PlaylistListItem{ID: doc.ID, Name: doc.Name, SongCount: len(doc.Songs)})
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
