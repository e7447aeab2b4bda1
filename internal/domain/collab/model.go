// Package collab implements the collaborative session synchronization
// engine: session lifecycle, snapshot normalization, item replication,
// presence updates, and the per-client subscription state machine over the
// remote shared store.
package collab

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/retroloop/retroloop/internal/domain/review"
	"github.com/retroloop/retroloop/internal/identity"
	"github.com/retroloop/retroloop/internal/store"
)

// SessionTTL is the advisory validity horizon stamped into expiresAt at
// creation. Expiry is never enforced server-side; clients may refuse to
// operate on an expired session.
const SessionTTL = 7 * 24 * time.Hour

// Session is one collaboration instance, rebuilt from a store snapshot on
// every notification. No client holds authoritative state.
type Session struct {
	ID            string         `json:"id"`
	CreatorID     string         `json:"creatorId"`
	CreatorName   string         `json:"creatorName"`
	Year          int            `json:"year"`
	Items         []review.Item  `json:"items"`
	Collaborators []Collaborator `json:"collaborators"`
	CreatedAt     int64          `json:"createdAt"`
	ExpiresAt     int64          `json:"expiresAt"`
}

// Expired reports whether the advisory validity horizon has passed.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt > 0 && now.UnixMilli() > s.ExpiresAt
}

// Collaborator is one principal's presence record within a session. Name is
// mutable by its owner only; JoinedAt and Color are set at join time.
type Collaborator struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	JoinedAt int64  `json:"joinedAt"`
	Color    string `json:"color"`
}

// palette matches the original board's collaborator colors. Each client
// picks independently, so two collaborators may share a color.
var palette = []string{
	"#FF6B6B",
	"#4ECDC4",
	"#45B7D1",
	"#FFA07A",
	"#98D8C8",
	"#F7DC6F",
	"#BB8FCE",
	"#85C1E2",
}

func randomColor() string {
	return palette[rand.IntN(len(palette))]
}

// displayName trims a nickname, falling back to the anonymous placeholder.
func displayName(nickname string) string {
	name := strings.TrimSpace(nickname)
	if name == "" {
		return identity.AnonymousName
	}
	return name
}

func sessionPath(sessionID string) string {
	return store.JoinPath("sessions", sessionID)
}

func itemPath(sessionID, itemID string) string {
	return store.JoinPath("sessions", sessionID, "items", itemID)
}

func collaboratorPath(sessionID, userID string) string {
	return store.JoinPath("sessions", sessionID, "collaborators", userID)
}
