package review_test

import (
	"context"
	"testing"

	"github.com/retroloop/retroloop/internal/domain/review"
	"github.com/retroloop/retroloop/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAddValidatesInput(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ReviewRepository{}
	svc := review.NewService(repo, nil)

	_, err := svc.Add(ctx, "p1", 2025, "sideways", "x", "Ann")
	require.ErrorIs(t, err, review.ErrInvalidCategory)

	_, err = svc.Add(ctx, "p1", 2025, review.CategoryStart, "   ", "Ann")
	require.ErrorIs(t, err, review.ErrEmptyContent)

	repo.AssertNotCalled(t, "AddItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddTrimsContent(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ReviewRepository{}

	var stored review.Item
	repo.On("AddItem", ctx, "p1", 2025, mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(3).(review.Item)
	}).Return(nil)

	svc := review.NewService(repo, nil)
	item, err := svc.Add(ctx, "p1", 2025, review.CategoryStart, "  Run more  ", "Ann")
	require.NoError(t, err)
	require.Equal(t, "Run more", item.Content)
	require.Equal(t, stored.ID, item.ID)
}

func TestListYearWrapsItems(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ReviewRepository{}
	repo.On("ListYear", ctx, "p1", 2025).Return([]review.Item{
		{ID: "a", Category: review.CategoryStart, Content: "x"},
	}, nil)

	svc := review.NewService(repo, nil)
	yr, err := svc.ListYear(ctx, "p1", 2025)
	require.NoError(t, err)
	require.Equal(t, 2025, yr.Year)
	require.Len(t, yr.Items, 1)
}

func TestCategoryValidity(t *testing.T) {
	require.True(t, review.CategoryStart.Valid())
	require.True(t, review.CategoryStop.Valid())
	require.True(t, review.CategoryContinue.Valid())
	require.False(t, review.Category("begin").Valid())
}
