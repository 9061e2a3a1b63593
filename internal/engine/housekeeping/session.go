package housekeeping

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/hpc-bos/bos/internal/engine/options"
	"github.com/hpc-bos/bos/internal/engine/store"
)

// SessionCompletion implements spec.md §4.8: a session is complete once
// none of its components remain enabled. Completion only ever flips
// false→true here; nothing in the engine resurrects a completed
// session.
type SessionCompletion struct {
	Sessions store.Sessions
	Store    store.Components
	Clock    func() options.Options
	Log      logr.Logger
}

func (s *SessionCompletion) Run(ctx context.Context) error {
	for {
		snapshot := s.Clock()
		if err := s.tick(ctx); err != nil {
			s.Log.Info("session completion tick failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(snapshot.PollingFrequency):
		}
	}
}

func (s *SessionCompletion) tick(ctx context.Context) error {
	sessions, err := s.Sessions.ListIncomplete(ctx)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		anyEnabled := false
		for _, id := range sess.Components {
			c, ok, err := s.Store.Get(ctx, id)
			if err != nil {
				return err
			}
			if ok && c.Enabled {
				anyEnabled = true
				break
			}
		}
		if !anyEnabled {
			if err := s.Sessions.MarkComplete(ctx, sess.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// SessionCleanup implements spec.md §4.8's TTL-gated deletion: a
// completed session older than cleanup_completed_session_ttl is
// deleted. A zero TTL disables cleanup entirely, since
// ListCompleteOlderThan(0) would otherwise match every completed
// session immediately.
type SessionCleanup struct {
	Sessions store.Sessions
	Clock    func() options.Options
	Log      logr.Logger
}

func (s *SessionCleanup) Run(ctx context.Context) error {
	for {
		snapshot := s.Clock()
		if err := s.tick(ctx, snapshot); err != nil {
			s.Log.Info("session cleanup tick failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(snapshot.PollingFrequency):
		}
	}
}

func (s *SessionCleanup) tick(ctx context.Context, snapshot options.Options) error {
	if snapshot.CleanupCompletedSessionTTL <= 0 {
		return nil
	}
	sessions, err := s.Sessions.ListCompleteOlderThan(ctx, snapshot.CleanupCompletedSessionTTL)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if err := s.Sessions.Delete(ctx, sess.Name); err != nil {
			return err
		}
	}
	return nil
}
