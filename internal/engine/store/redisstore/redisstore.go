// Package redisstore implements the store interfaces against a
// Redis-compatible key/value store, the production-shaped backend
// SPEC_FULL.md names as the assumed deployment target ("a Redis-like
// key/value store is assumed; any store satisfying §3 suffices").
// Components and sessions are stored as JSON blobs under prefixed keys;
// a handful of sets/sorted-sets provide the indexes Query/IDs/
// ListIncomplete/ListCompleteOlderThan need without a full secondary
// index engine.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/options"
	"github.com/hpc-bos/bos/internal/engine/session"
	"github.com/hpc-bos/bos/internal/engine/store"
	"github.com/redis/go-redis/v9"
)

const (
	componentKeyPrefix = "bos:component:"
	componentIndexKey  = "bos:components"
	sessionKeyPrefix   = "bos:session:"
	sessionIndexKey    = "bos:sessions"
	sessionCompleteKey = "bos:sessions:complete" // sorted set, score = CreatedAt unix
	optionsKey         = "bos:options"
)

// Store adapts a *redis.Client to store.Components, store.Sessions and
// store.Options.
type Store struct {
	rdb *redis.Client
	now func() time.Time
}

// New wraps an already-configured *redis.Client.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, now: time.Now}
}

// WithClock overrides the clock used for session-age comparisons, so
// those comparisons can be made deterministic.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func componentKey(id string) string { return componentKeyPrefix + id }
func sessionKey(name string) string { return sessionKeyPrefix + name }

func (s *Store) Get(ctx context.Context, id string) (component.Component, bool, error) {
	raw, err := s.rdb.Get(ctx, componentKey(id)).Bytes()
	if err == redis.Nil {
		return component.Component{}, false, nil
	}
	if err != nil {
		return component.Component{}, false, fmt.Errorf("redisstore: get component %s: %w", id, err)
	}
	var c component.Component
	if err := json.Unmarshal(raw, &c); err != nil {
		return component.Component{}, false, fmt.Errorf("redisstore: decode component %s: %w", id, err)
	}
	return c, true, nil
}

func (s *Store) Put(ctx context.Context, components []component.Component) error {
	pipe := s.rdb.TxPipeline()
	for _, c := range components {
		raw, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("redisstore: encode component %s: %w", c.ID, err)
		}
		pipe.Set(ctx, componentKey(c.ID), raw, 0)
		pipe.SAdd(ctx, componentIndexKey, c.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisstore: put components: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, updates []store.ComponentUpdate) error {
	for _, u := range updates {
		if err := s.updateOne(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

// updateOne does a read-modify-write under a WATCH so concurrent
// updates to disjoint fields of the same component (e.g. PowerOn
// writing desired_state while Status writes status) don't clobber each
// other — the field-wise ComponentUpdate contract from spec.md §5
// depends on this.
func (s *Store) updateOne(ctx context.Context, u store.ComponentUpdate) error {
	key := componentKey(u.ID)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		var c component.Component
		if err := json.Unmarshal(raw, &c); err != nil {
			return err
		}
		applyUpdate(&c, u)
		encoded, err := json.Marshal(c)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		return err
	}
	if err := s.rdb.Watch(ctx, txf, key); err != nil {
		return fmt.Errorf("redisstore: update component %s: %w", u.ID, err)
	}
	return nil
}

func applyUpdate(c *component.Component, u store.ComponentUpdate) {
	if u.Enabled != nil {
		c.Enabled = *u.Enabled
	}
	if u.DesiredState != nil {
		c.DesiredState = *u.DesiredState
	}
	if u.ActualState != nil {
		c.ActualState = *u.ActualState
	}
	if u.StagedState != nil {
		c.StagedState = *u.StagedState
	}
	if u.LastAction != nil {
		c.LastAction = *u.LastAction
	}
	if u.Status != nil {
		c.Status = *u.Status
	}
	if u.Session != nil {
		c.Session = *u.Session
	}
	if u.Error != nil {
		c.Error = *u.Error
	}
}

func (s *Store) IDs(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, componentIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: list component ids: %w", err)
	}
	return ids, nil
}

// Query scans every indexed component id and filters in-process.
// SPEC_FULL.md leaves the store implementation's indexing strategy
// unspecified beyond "satisfies §3"; a cluster-scale deployment would
// back this with richer Redis indexes (sets per enabled/status value),
// left as future work since the engine itself never assumes Query is
// O(matches) rather than O(total).
func (s *Store) Query(ctx context.Context, q store.ComponentQuery) ([]component.Component, error) {
	var ids []string
	var err error
	if len(q.IDs) > 0 {
		ids = q.IDs
	} else {
		ids, err = s.IDs(ctx)
		if err != nil {
			return nil, err
		}
	}

	var out []component.Component
	for _, id := range ids {
		c, ok, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if q.Enabled != nil && c.Enabled != *q.Enabled {
			continue
		}
		if q.Status != nil && c.Status.Status != *q.Status {
			continue
		}
		if q.Session != nil && c.Session != *q.Session {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) ListIncomplete(ctx context.Context) ([]session.Session, error) {
	names, err := s.rdb.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: list sessions: %w", err)
	}
	var out []session.Session
	for _, name := range names {
		sess, ok, err := s.getSession(ctx, name)
		if err != nil {
			return nil, err
		}
		if ok && !sess.Complete {
			out = append(out, sess)
		}
	}
	return out, nil
}

func (s *Store) ListCompleteOlderThan(ctx context.Context, minAge time.Duration) ([]session.Session, error) {
	cutoff := float64(s.now().Add(-minAge).Unix())
	names, err := s.rdb.ZRangeByScore(ctx, sessionCompleteKey, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%f", cutoff)}).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: list complete sessions: %w", err)
	}
	var out []session.Session
	for _, name := range names {
		sess, ok, err := s.getSession(ctx, name)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, sess)
		}
	}
	return out, nil
}

func (s *Store) getSession(ctx context.Context, name string) (session.Session, bool, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(name)).Bytes()
	if err == redis.Nil {
		return session.Session{}, false, nil
	}
	if err != nil {
		return session.Session{}, false, err
	}
	var sess session.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return session.Session{}, false, err
	}
	return sess, true, nil
}

func (s *Store) MarkComplete(ctx context.Context, name string) error {
	sess, ok, err := s.getSession(ctx, name)
	if err != nil {
		return fmt.Errorf("redisstore: mark complete %s: %w", name, err)
	}
	if !ok {
		return nil
	}
	sess.Complete = true
	sess.Status = "complete"
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redisstore: encode session %s: %w", name, err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(name), raw, 0)
	pipe.ZAdd(ctx, sessionCompleteKey, redis.Z{Score: float64(sess.CreatedAt.Unix()), Member: name})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisstore: mark complete %s: %w", name, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, sessionKey(name))
	pipe.SRem(ctx, sessionIndexKey, name)
	pipe.ZRem(ctx, sessionCompleteKey, name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisstore: delete session %s: %w", name, err)
	}
	return nil
}

func (s *Store) GetOptions(ctx context.Context) (options.Raw, error) {
	raw, err := s.rdb.HGetAll(ctx, optionsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: get options: %w", err)
	}
	out := make(options.Raw, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out, nil
}

func (s *Store) PutOptions(ctx context.Context, raw options.Raw) error {
	if len(raw) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		fields[k] = v
	}
	if err := s.rdb.HSet(ctx, optionsKey, fields).Err(); err != nil {
		return fmt.Errorf("redisstore: put options: %w", err)
	}
	return nil
}
