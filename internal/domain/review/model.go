package review

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Category is the closed set of review columns.
type Category string

const (
	CategoryStart    Category = "start"
	CategoryStop     Category = "stop"
	CategoryContinue Category = "continue"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryStart, CategoryStop, CategoryContinue:
		return true
	}
	return false
}

// Item is one review entry. Identity and all fields are immutable after
// creation; the only supported mutation is deletion. CreatedBy is a display
// name snapshot, not a live reference to a collaborator.
type Item struct {
	ID        string   `json:"id"`
	Category  Category `json:"category"`
	Content   string   `json:"content"`
	CreatedAt int64    `json:"createdAt"`
	CreatedBy string   `json:"createdBy"`
}

// YearReview groups a principal's private items for one year.
type YearReview struct {
	Year  int    `json:"year"`
	Items []Item `json:"items"`
}

// NewItem builds an item with a fresh id. ULIDs give the time-based prefix
// plus random suffix the item id scheme calls for.
func NewItem(category Category, content, createdBy string, now time.Time) Item {
	return Item{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Category:  category,
		Content:   content,
		CreatedAt: now.UnixMilli(),
		CreatedBy: createdBy,
	}
}
