package collab

import (
	"context"
	"log/slog"
	"sync"

	"github.com/retroloop/retroloop/internal/domain/review"
	"github.com/retroloop/retroloop/internal/identity"
	"github.com/retroloop/retroloop/internal/store"
)

// Client is one connected principal's view of the engine: explicit active
// session state, the published session/collaborator values, and the shared
// error slot. Each connection gets its own Client, so one process can hold
// any number of independent sessions.
type Client struct {
	service *Service
	sub     *Subscriber
	logger  *slog.Logger
	user    *identity.User

	mu            sync.Mutex
	session       *Session
	collaborators []Collaborator
	lastErr       string
	onChange      PublishFunc
}

// NewClient creates a client for user. A nil user means identity is not yet
// ready; every session operation then fails with ErrIdentityNotReady.
func NewClient(service *Service, st store.Store, user *identity.User, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{service: service, logger: logger, user: user}
	c.sub = NewSubscriber(st, logger, c.publishState)
	return c
}

// AuthReady reports whether a principal is established.
func (c *Client) AuthReady() bool {
	return c.user != nil
}

// SetOnChange registers a hook invoked after every published state change.
// Transports use it to push the board to connected UIs.
func (c *Client) SetOnChange(fn PublishFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// CreateSession creates a session and makes it active, returning its invite
// code. Returns "" on failure and records the error.
func (c *Client) CreateSession(ctx context.Context, year int, nickname string) string {
	code, err := c.service.Create(ctx, c.user, year, nickname)
	if err != nil {
		c.setError(err)
		return ""
	}
	if err := c.sub.Set(ctx, code); err != nil {
		c.setError(err)
	}
	return code
}

// JoinSession joins an existing session and makes it active. A failed join
// leaves no active session id set.
func (c *Client) JoinSession(ctx context.Context, inviteCode, nickname string) bool {
	code, err := c.service.Join(ctx, c.user, inviteCode, nickname)
	if err != nil {
		c.setError(err)
		return false
	}
	if err := c.sub.Set(ctx, code); err != nil {
		c.setError(err)
	}
	return true
}

// LeaveSession removes the caller's presence record. The active session id
// is always cleared afterward, even when the remote delete fails, so the
// client deterministically falls back to private mode.
func (c *Client) LeaveSession(ctx context.Context, sessionID string) {
	if err := c.service.Leave(ctx, c.user, sessionID); err != nil {
		c.setError(err)
	}
	c.sub.Clear()
}

// DeleteSession tears down the session for everyone. Remote deletion reaches
// every client through its own watch, so the local subscription is left to
// observe the disappearance rather than being cleared here.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) {
	if err := c.service.Delete(ctx, sessionID); err != nil {
		c.setError(err)
	}
}

// AddItem replicates a new item into the active session. Without an active
// session it silently returns.
func (c *Client) AddItem(ctx context.Context, category review.Category, content, createdBy string) *review.Item {
	sessionID := c.sub.Active()
	if sessionID == "" {
		return nil
	}
	item, err := c.service.AddItem(ctx, sessionID, category, content, createdBy)
	if err != nil {
		c.setError(err)
		return nil
	}
	return item
}

// DeleteItem removes an item from the active session. Without an active
// session it silently returns; deleting an absent id is a no-op.
func (c *Client) DeleteItem(ctx context.Context, itemID string) {
	sessionID := c.sub.Active()
	if sessionID == "" {
		return
	}
	if err := c.service.DeleteItem(ctx, sessionID, itemID); err != nil {
		c.setError(err)
	}
}

// UpdateMyName renames the caller in the given session.
func (c *Client) UpdateMyName(ctx context.Context, sessionID, nickname string) {
	if err := c.service.UpdateName(ctx, c.user, sessionID, nickname); err != nil {
		c.setError(err)
	}
}

// ActiveSessionID returns the current active session id, or "".
func (c *Client) ActiveSessionID() string {
	return c.sub.Active()
}

// Session returns the last published session snapshot, or nil.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Collaborators returns the last published collaborator list.
func (c *Client) Collaborators() []Collaborator {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Collaborator, len(c.collaborators))
	copy(out, c.collaborators)
	return out
}

// Err returns the last recorded failure description, or "".
func (c *Client) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// ClearError clears the error slot.
func (c *Client) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = ""
}

// Close tears down the client's watch. Published state is left as-is.
func (c *Client) Close() {
	c.sub.Close()
}

func (c *Client) publishState(sess *Session, collaborators []Collaborator) {
	c.mu.Lock()
	c.session = sess
	c.collaborators = collaborators
	hook := c.onChange
	c.mu.Unlock()

	if hook != nil {
		hook(sess, collaborators)
	}
}

func (c *Client) setError(err error) {
	c.logger.Warn("operation failed", "error", err)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err.Error()
}
