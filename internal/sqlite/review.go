package sqlite

import (
	"context"
	"fmt"

	"github.com/retroloop/retroloop/internal/domain/review"
)

// ReviewRepository implements review.Repository for SQLite
type ReviewRepository struct {
	db *DB
}

// NewReviewRepository creates a new ReviewRepository
func NewReviewRepository(db *DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// AddItem stores a private review item
func (r *ReviewRepository) AddItem(ctx context.Context, principalID string, year int, item review.Item) error {
	query := `
		INSERT INTO review_items (id, principal_id, year, category, content, created_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		principalID,
		year,
		string(item.Category),
		item.Content,
		item.CreatedAt,
		item.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review item: %w", err)
	}
	return nil
}

// DeleteItem removes a private review item. Absent ids are a no-op.
func (r *ReviewRepository) DeleteItem(ctx context.Context, principalID string, year int, itemID string) error {
	query := `DELETE FROM review_items WHERE id = ? AND principal_id = ? AND year = ?`
	if _, err := r.db.ExecContext(ctx, query, itemID, principalID, year); err != nil {
		return fmt.Errorf("failed to delete review item: %w", err)
	}
	return nil
}

// ListYear returns a principal's items for one year, oldest first.
func (r *ReviewRepository) ListYear(ctx context.Context, principalID string, year int) ([]review.Item, error) {
	query := `
		SELECT id, category, content, created_at, created_by
		FROM review_items
		WHERE principal_id = ? AND year = ?
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, principalID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list review items: %w", err)
	}
	defer rows.Close()

	var items []review.Item
	for rows.Next() {
		var item review.Item
		var category string
		if err := rows.Scan(&item.ID, &category, &item.Content, &item.CreatedAt, &item.CreatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan review item: %w", err)
		}
		item.Category = review.Category(category)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate review items: %w", err)
	}
	return items, nil
}
