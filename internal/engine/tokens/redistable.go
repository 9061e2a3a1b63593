package tokens

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "bos:token:"

// RedisTable is a Table backed by a Redis-compatible store, used
// whenever the writer (PowerOn, in bos-operators) and the reader
// (bos-reportapi) run as separate processes — MemTable only works
// within a single process.
type RedisTable struct {
	rdb *redis.Client
}

// NewRedisTable wraps an already-configured *redis.Client.
func NewRedisTable(rdb *redis.Client) *RedisTable {
	return &RedisTable{rdb: rdb}
}

func (t *RedisTable) Put(ctx context.Context, token string, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("tokens: encoding record: %w", err)
	}
	if err := t.rdb.Set(ctx, keyPrefix+token, raw, 0).Err(); err != nil {
		return fmt.Errorf("tokens: put %s: %w", token, err)
	}
	return nil
}

func (t *RedisTable) Get(ctx context.Context, token string) (Record, error) {
	raw, err := t.rdb.Get(ctx, keyPrefix+token).Bytes()
	if err == redis.Nil {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("tokens: get %s: %w", token, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("tokens: decoding record %s: %w", token, err)
	}
	return rec, nil
}
