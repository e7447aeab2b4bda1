package collab

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/retroloop/retroloop/internal/store"
)

// PublishFunc receives the normalized session and its collaborator list on
// every store notification. A nil session means the active session does not
// exist (or none is active); that is how remote deletion becomes visible.
type PublishFunc func(sess *Session, collaborators []Collaborator)

// Subscriber is the state machine over the active session id. It holds at
// most one live watch at any time; switching or clearing the id always tears
// the previous watch down first, so no notification from a stale session can
// reach the published state.
type Subscriber struct {
	store   store.Store
	logger  *slog.Logger
	publish PublishFunc

	mu     sync.Mutex
	active string
	cancel store.CancelFunc
}

// NewSubscriber creates a subscriber publishing through fn.
func NewSubscriber(st store.Store, logger *slog.Logger, fn PublishFunc) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{store: st, logger: logger, publish: fn}
}

// Set transitions the active session id. An empty id clears the
// subscription and publishes the empty state. On watch failure the
// last-known-good published state is left in place rather than blanked,
// and no session is reported active: the id only becomes active together
// with its live watch.
func (s *Subscriber) Set(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardown()
	s.active = ""
	if sessionID == "" {
		s.publish(nil, nil)
		return nil
	}

	cancel, err := s.store.Watch(ctx, sessionPath(sessionID), func(value any, ok bool) {
		if !ok {
			s.publish(nil, nil)
			return
		}
		sess := NormalizeSession(value, sessionID)
		if sess == nil {
			s.publish(nil, nil)
			return
		}
		s.publish(sess, sess.Collaborators)
	})
	if err != nil {
		s.logger.Warn("session watch failed", "session", sessionID, "error", err)
		return fmt.Errorf("%w: watching session %s: %v", ErrStoreWatch, sessionID, err)
	}

	s.active = sessionID
	s.cancel = cancel
	return nil
}

// Clear drops the subscription and publishes the empty state.
func (s *Subscriber) Clear() {
	_ = s.Set(context.Background(), "")
}

// Active returns the current active session id.
func (s *Subscriber) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Close tears down any open watch without publishing.
func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown()
	s.active = ""
}

// teardown cancels the live watch, if any. Cancellation is synchronous per
// the store contract: once it returns, no stale callback can fire. Caller
// holds s.mu.
func (s *Subscriber) teardown() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
