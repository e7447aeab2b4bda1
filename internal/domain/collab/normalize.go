package collab

import (
	"sort"
	"time"

	"github.com/retroloop/retroloop/internal/domain/review"
)

// NormalizeSession converts a raw store snapshot into a typed Session, or
// nil when the snapshot is absent or not an object. It is the single point
// that absorbs the historical shape ambiguity of the items and collaborators
// collections (array vs keyed map); every other component consumes only the
// normalized form.
func NormalizeSession(raw any, sessionID string) *Session {
	return NormalizeSessionAt(raw, sessionID, time.Now())
}

// NormalizeSessionAt is NormalizeSession with an explicit clock for the
// documented scalar defaults.
func NormalizeSessionAt(raw any, sessionID string, now time.Time) *Session {
	data, ok := raw.(map[string]any)
	if !ok {
		return nil
	}

	return &Session{
		// The lookup key wins over a possibly-stale embedded id field.
		ID:            sessionID,
		CreatorID:     asString(data["creatorId"]),
		CreatorName:   asString(data["creatorName"]),
		Year:          asIntDefault(data["year"], now.Year()),
		Items:         normalizeItems(data["items"]),
		Collaborators: normalizeCollaborators(data["collaborators"]),
		CreatedAt:     asInt64Default(data["createdAt"], now.UnixMilli()),
		ExpiresAt:     asInt64Default(data["expiresAt"], 0),
	}
}

func normalizeItems(raw any) []review.Item {
	entries := collectEntries(raw)
	items := make([]review.Item, 0, len(entries))
	for _, entry := range entries {
		items = append(items, review.Item{
			ID:        asString(entry["id"]),
			Category:  review.Category(asString(entry["category"])),
			Content:   asString(entry["content"]),
			CreatedAt: asInt64Default(entry["createdAt"], 0),
			CreatedBy: asString(entry["createdBy"]),
		})
	}
	return items
}

func normalizeCollaborators(raw any) []Collaborator {
	entries := collectEntries(raw)
	collaborators := make([]Collaborator, 0, len(entries))
	for _, entry := range entries {
		collaborators = append(collaborators, Collaborator{
			UserID:   asString(entry["userId"]),
			Name:     asString(entry["name"]),
			JoinedAt: asInt64Default(entry["joinedAt"], 0),
			Color:    asString(entry["color"]),
		})
	}
	return collaborators
}

// collectEntries accepts a collection in either historical wire shape: an
// array (possibly with holes) or a keyed map (possibly with falsy values).
// Falsy and non-object entries are dropped. Map entries are ordered by key
// so re-normalizing an unchanged snapshot is stable.
func collectEntries(raw any) []map[string]any {
	var values []any
	switch typed := raw.(type) {
	case []any:
		values = typed
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			values = append(values, typed[key])
		}
	default:
		return nil
	}

	entries := make([]map[string]any, 0, len(values))
	for _, value := range values {
		if isFalsy(value) {
			continue
		}
		entry, ok := value.(map[string]any)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func isFalsy(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case bool:
		return !typed
	case float64:
		return typed == 0
	case string:
		return typed == ""
	}
	return false
}

func asString(value any) string {
	s, _ := value.(string)
	return s
}

func asIntDefault(value any, fallback int) int {
	if f, ok := value.(float64); ok && f != 0 {
		return int(f)
	}
	return fallback
}

func asInt64Default(value any, fallback int64) int64 {
	if f, ok := value.(float64); ok && f != 0 {
		return int64(f)
	}
	return fallback
}
