// Package memstore is an in-memory implementation of the store
// interfaces, used by unit tests. It is
// intentionally simple: a mutex-guarded map, no indexing.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/options"
	"github.com/hpc-bos/bos/internal/engine/session"
	"github.com/hpc-bos/bos/internal/engine/store"
)

// Store is a goroutine-safe in-memory store.Components + store.Sessions
// + store.Options implementation.
type Store struct {
	mu         sync.Mutex
	components map[string]component.Component
	sessions   map[string]session.Session
	opts       options.Raw
	now        func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		components: make(map[string]component.Component),
		sessions:   make(map[string]session.Session),
		opts:       options.Raw{},
		now:        time.Now,
	}
}

// WithClock overrides the clock used for MinAge-style session
// comparisons, for deterministic tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Query(_ context.Context, q store.ComponentQuery) ([]component.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids map[string]bool
	if len(q.IDs) > 0 {
		ids = make(map[string]bool, len(q.IDs))
		for _, id := range q.IDs {
			ids[id] = true
		}
	}

	var out []component.Component
	for _, c := range s.components {
		if ids != nil && !ids[c.ID] {
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
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Get(_ context.Context, id string) (component.Component, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.components[id]
	return c, ok, nil
}

func (s *Store) Put(_ context.Context, components []component.Component) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range components {
		s.components[c.ID] = c
	}
	return nil
}

func (s *Store) Update(_ context.Context, updates []store.ComponentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range updates {
		c, ok := s.components[u.ID]
		if !ok {
			continue
		}
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
		s.components[u.ID] = c
	}
	return nil
}

func (s *Store) IDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.components))
	for id := range s.components {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) ListIncomplete(_ context.Context) ([]session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []session.Session
	for _, sess := range s.sessions {
		if !sess.Complete {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListCompleteOlderThan(_ context.Context, minAge time.Duration) ([]session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var out []session.Session
	for _, sess := range s.sessions {
		if sess.Complete && now.Sub(sess.CreatedAt) > minAge {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) MarkComplete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[name]
	if !ok {
		return nil
	}
	sess.Complete = true
	sess.Status = "complete"
	s.sessions[name] = sess
	return nil
}

func (s *Store) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, name)
	return nil
}

func (s *Store) GetOptions(_ context.Context) (options.Raw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(options.Raw, len(s.opts))
	for k, v := range s.opts {
		out[k] = v
	}
	return out, nil
}

func (s *Store) PutOptions(_ context.Context, raw options.Raw) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = make(options.Raw, len(raw))
	for k, v := range raw {
		s.opts[k] = v
	}
	return nil
}

// PutSession is a test/seed helper; not part of the store.Sessions
// contract because sessions are created by the (out of scope) REST
// layer, not by the engine.
func (s *Store) PutSession(sess session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Name] = sess
}
