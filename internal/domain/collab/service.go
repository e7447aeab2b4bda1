package collab

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/retroloop/retroloop/internal/domain/review"
	"github.com/retroloop/retroloop/internal/identity"
	"github.com/retroloop/retroloop/internal/store"
)

// Service performs session lifecycle, item replication, and presence
// operations against the shared store. It is stateless: every method takes
// the session id it operates on, so one process can drive any number of
// sessions.
type Service struct {
	store            store.Store
	logger           *slog.Logger
	preserveJoinedAt bool
}

// Option configures a Service.
type Option func(*Service)

// WithJoinedAtPreservation makes rejoin keep the collaborator's original
// joinedAt instead of overwriting it. The overwrite is the historical
// behavior and remains the default.
func WithJoinedAtPreservation() Option {
	return func(s *Service) { s.preserveJoinedAt = true }
}

// NewService creates a collaboration service.
func NewService(st store.Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: st, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create seeds a new session and returns its invite code. The document
// scalars and empty collections go out first; the creator's collaborator
// record then goes through the same point write every later join uses, so
// collaborator records live at the same child path on every backend.
func (s *Service) Create(ctx context.Context, user *identity.User, year int, nickname string) (string, error) {
	if user == nil {
		return "", ErrIdentityNotReady
	}

	now := time.Now()
	code := NewInviteCode()
	name := displayName(nickname)
	me := Collaborator{
		UserID:   user.ID,
		Name:     name,
		JoinedAt: now.UnixMilli(),
		Color:    randomColor(),
	}

	doc := map[string]any{
		"id":            code,
		"creatorId":     user.ID,
		"creatorName":   name,
		"year":          year,
		"items":         map[string]any{},
		"collaborators": map[string]any{},
		"createdAt":     now.UnixMilli(),
		"expiresAt":     now.Add(SessionTTL).UnixMilli(),
	}
	if err := s.store.Write(ctx, sessionPath(code), doc); err != nil {
		return "", fmt.Errorf("%w: creating session: %v", ErrStoreWrite, err)
	}
	if err := s.store.Write(ctx, collaboratorPath(code, me.UserID), me); err != nil {
		return "", fmt.Errorf("%w: creating session: %v", ErrStoreWrite, err)
	}

	s.logger.Info("session created", "session", code, "year", year, "creator", user.ID)
	return code, nil
}

// Join adds the caller to an existing session and returns the normalized
// invite code. The existence read is a courtesy check, not a guarantee
// against concurrent deletion before the collaborator write lands. Rejoining
// overwrites the caller's own record.
func (s *Service) Join(ctx context.Context, user *identity.User, inviteCode, nickname string) (string, error) {
	if user == nil {
		return "", ErrIdentityNotReady
	}

	code := NormalizeInviteCode(inviteCode)
	raw, ok, err := s.store.Read(ctx, sessionPath(code))
	if err != nil {
		return "", fmt.Errorf("%w: reading session %s: %v", ErrStoreRead, code, err)
	}
	if !ok {
		return "", ErrSessionNotFound
	}

	now := time.Now()
	me := Collaborator{
		UserID:   user.ID,
		Name:     displayName(nickname),
		JoinedAt: now.UnixMilli(),
		Color:    randomColor(),
	}
	if s.preserveJoinedAt {
		if prior := findCollaborator(NormalizeSessionAt(raw, code, now), user.ID); prior != nil && prior.JoinedAt > 0 {
			me.JoinedAt = prior.JoinedAt
		}
	}

	if err := s.store.Write(ctx, collaboratorPath(code, me.UserID), me); err != nil {
		return "", fmt.Errorf("%w: joining session %s: %v", ErrStoreWrite, code, err)
	}

	s.logger.Info("session joined", "session", code, "collaborator", user.ID)
	return code, nil
}

// Leave deletes only the caller's own collaborator record.
func (s *Service) Leave(ctx context.Context, user *identity.User, sessionID string) error {
	if user == nil {
		return ErrIdentityNotReady
	}
	if err := s.store.Delete(ctx, collaboratorPath(sessionID, user.ID)); err != nil {
		return fmt.Errorf("%w: leaving session %s: %v", ErrStoreWrite, sessionID, err)
	}
	s.logger.Info("session left", "session", sessionID, "collaborator", user.ID)
	return nil
}

// Delete tears down the whole session subtree. It is unconditional and
// idempotent: deleting an already-deleted session is a no-op, which is what
// makes the racy "last collaborator out" check safe. Authorization, if any,
// is layered outside this call.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionPath(sessionID)); err != nil {
		return fmt.Errorf("%w: deleting session %s: %v", ErrStoreWrite, sessionID, err)
	}
	s.logger.Info("session deleted", "session", sessionID)
	return nil
}

// Get reads and normalizes a session once, outside any watch.
func (s *Service) Get(ctx context.Context, sessionID string) (*Session, error) {
	raw, ok, err := s.store.Read(ctx, sessionPath(sessionID))
	if err != nil {
		return nil, fmt.Errorf("%w: reading session %s: %v", ErrStoreRead, sessionID, err)
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess := NormalizeSession(raw, sessionID)
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// AddItem validates and replicates a new item as an independent point write,
// so concurrent adds from different clients never clobber each other.
func (s *Service) AddItem(ctx context.Context, sessionID string, category review.Category, content, createdBy string) (*review.Item, error) {
	if err := review.ValidateNewItem(category, content); err != nil {
		return nil, err
	}

	item := review.NewItem(category, strings.TrimSpace(content), displayName(createdBy), time.Now())
	if err := s.store.Write(ctx, itemPath(sessionID, item.ID), item); err != nil {
		return nil, fmt.Errorf("%w: adding item to %s: %v", ErrStoreWrite, sessionID, err)
	}
	return &item, nil
}

// DeleteItem removes a single item. Deleting a non-existent id is a no-op.
func (s *Service) DeleteItem(ctx context.Context, sessionID, itemID string) error {
	if err := s.store.Delete(ctx, itemPath(sessionID, itemID)); err != nil {
		return fmt.Errorf("%w: deleting item from %s: %v", ErrStoreWrite, sessionID, err)
	}
	return nil
}

// UpdateName partially updates the name field of the caller's own
// collaborator record, leaving joinedAt and color untouched. It never
// touches another principal's record.
func (s *Service) UpdateName(ctx context.Context, user *identity.User, sessionID, nickname string) error {
	if user == nil {
		return ErrIdentityNotReady
	}
	fields := map[string]any{"name": displayName(nickname)}
	if err := s.store.Update(ctx, collaboratorPath(sessionID, user.ID), fields); err != nil {
		return fmt.Errorf("%w: renaming in session %s: %v", ErrStoreWrite, sessionID, err)
	}
	return nil
}

func findCollaborator(sess *Session, userID string) *Collaborator {
	if sess == nil {
		return nil
	}
	for i := range sess.Collaborators {
		if sess.Collaborators[i].UserID == userID {
			return &sess.Collaborators[i]
		}
	}
	return nil
}
