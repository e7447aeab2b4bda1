package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Service handles private-mode (single principal, local persistence) reviews.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a private review service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Add validates and stores a new private item, returning it.
func (s *Service) Add(ctx context.Context, principalID string, year int, category Category, content, createdBy string) (*Item, error) {
	if err := ValidateNewItem(category, content); err != nil {
		return nil, err
	}

	item := NewItem(category, strings.TrimSpace(content), createdBy, time.Now())
	if err := s.repo.AddItem(ctx, principalID, year, item); err != nil {
		return nil, fmt.Errorf("adding review item: %w", err)
	}

	s.logger.Debug("private item added", "principal", principalID, "year", year, "item", item.ID)
	return &item, nil
}

// Delete removes a private item. Deleting an absent id is a no-op.
func (s *Service) Delete(ctx context.Context, principalID string, year int, itemID string) error {
	if err := s.repo.DeleteItem(ctx, principalID, year, itemID); err != nil {
		return fmt.Errorf("deleting review item: %w", err)
	}
	return nil
}

// ListYear returns the principal's review for one year.
func (s *Service) ListYear(ctx context.Context, principalID string, year int) (*YearReview, error) {
	items, err := s.repo.ListYear(ctx, principalID, year)
	if err != nil {
		return nil, fmt.Errorf("listing review items: %w", err)
	}
	return &YearReview{Year: year, Items: items}, nil
}
