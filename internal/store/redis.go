package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each document in a hash (data + rev fields) under
// nb:<collection>:<id>, with a set per collection for listing. Revision
// checks run inside WATCH transactions so concurrent writers lose cleanly.
type RedisStore struct {
	rdb *redis.Client
}

// OpenRedis connects using a redis URL (redis://host:port/db).
func OpenRedis(ctx context.Context, rawURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func docKey(collection, id string) string {
	return "nb:" + collection + ":" + id
}

func indexKey(collection string) string {
	return "nb:" + collection
}

func (s *RedisStore) get(ctx context.Context, collection, id string, dest any) (string, error) {
	vals, err := s.rdb.HMGet(ctx, docKey(collection, id), "data", "rev").Result()
	if err != nil {
		return "", err
	}
	data, ok := vals[0].(string)
	if !ok {
		return "", ErrNotFound
	}
	rev, _ := vals[1].(string)
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return "", err
	}
	return rev, nil
}

func (s *RedisStore) put(ctx context.Context, collection, id string, doc any, rev string) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	key := docKey(collection, id)

	var next string
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := tx.HGet(ctx, key, "rev").Result()
		switch {
		case errors.Is(err, redis.Nil):
			stored = ""
		case err != nil:
			return err
		}
		if stored != rev {
			return ErrConflict
		}
		n := int64(0)
		if rev != "" {
			if n, err = strconv.ParseInt(rev, 10, 64); err != nil {
				return fmt.Errorf("malformed revision %q: %w", rev, err)
			}
		}
		next = strconv.FormatInt(n+1, 10)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "data", string(data), "rev", next)
			pipe.SAdd(ctx, indexKey(collection), id)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return "", ErrConflict
	}
	if err != nil {
		return "", err
	}
	return next, nil
}

func (s *RedisStore) del(ctx context.Context, collection, id, rev string) error {
	key := docKey(collection, id)
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := tx.HGet(ctx, key, "rev").Result()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if stored != rev {
			return ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, indexKey(collection), id)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}
	return err
}

func (s *RedisStore) list(ctx context.Context, collection string, visit func(data string) error) error {
	ids, err := s.rdb.SMembers(ctx, indexKey(collection)).Result()
	if err != nil {
		return err
	}
	for _, id := range ids {
		data, err := s.rdb.HGet(ctx, docKey(collection, id), "data").Result()
		if errors.Is(err, redis.Nil) {
			// Index entry outlived its document; skip.
			continue
		}
		if err != nil {
			return err
		}
		if err := visit(data); err != nil {
			return err
		}
	}
	return nil
}

func (s *RedisStore) GetGame(ctx context.Context, id string) (GameDoc, string, error) {
	var doc GameDoc
	rev, err := s.get(ctx, "games", id, &doc)
	return doc, rev, err
}

func (s *RedisStore) PutGame(ctx context.Context, doc GameDoc, rev string) (string, error) {
	return s.put(ctx, "games", doc.ID, doc, rev)
}

func (s *RedisStore) DeleteGame(ctx context.Context, id, rev string) error {
	return s.del(ctx, "games", id, rev)
}

func (s *RedisStore) ListGames(ctx context.Context) ([]GameListItem, error) {
	var out []GameListItem
	err := s.list(ctx, "games", func(data string) error {
		var doc GameDoc
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return err
		}
		out = append(out, GameListItem{
			ID:         doc.ID,
			Name:       doc.Name,
			PlaylistID: doc.PlaylistID,
			Phase:      doc.Phase,
			CreatedAt:  doc.CreatedAt,
		})
		return nil
	})
	return out, err
}

func (s *RedisStore) GetTeam(ctx context.Context, id string) (TeamDoc, string, error) {
	var doc TeamDoc
	rev, err := s.get(ctx, "teams", id, &doc)
	return doc, rev, err
}

func (s *RedisStore) PutTeam(ctx context.Context, doc TeamDoc, rev string) (string, error) {
	return s.put(ctx, "teams", doc.ID, doc, rev)
}

func (s *RedisStore) DeleteTeam(ctx context.Context, id, rev string) error {
	return s.del(ctx, "teams", id, rev)
}

func (s *RedisStore) GetPlaylist(ctx context.Context, id string) (PlaylistDoc, string, error) {
	var doc PlaylistDoc
	rev, err := s.get(ctx, "playlists", id, &doc)
	return doc, rev, err
}

func (s *RedisStore) PutPlaylist(ctx context.Context, doc PlaylistDoc, rev string) (string, error) {
	return s.put(ctx, "playlists", doc.ID, doc, rev)
}

func (s *RedisStore) ListPlaylists(ctx context.Context) ([]PlaylistListItem, error) {
	var out []PlaylistListItem
	err := s.list(ctx, "playlists", func(data string) error {
		var doc PlaylistDoc
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return err
		}
		out = append(out, PlaylistListItem{ID: doc.ID, Name: doc.Name, SongCount: len(doc.Songs)})
		return nil
	})
	return out, err
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

var _ Store = (*RedisStore)(nil)
