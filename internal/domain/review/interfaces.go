package review

import "context"

// Repository provides persistence for private-mode reviews. Private items
// never leave the local store; they are scoped to the owning principal.
type Repository interface {
	AddItem(ctx context.Context, principalID string, year int, item Item) error
	DeleteItem(ctx context.Context, principalID string, year int, itemID string) error
	ListYear(ctx context.Context, principalID string, year int) ([]Item, error)
}
