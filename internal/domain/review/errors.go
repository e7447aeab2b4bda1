package review

import "errors"

var (
	// ErrInvalidCategory indicates a category outside start/stop/continue.
	ErrInvalidCategory = errors.New("invalid review category")
	// ErrEmptyContent indicates empty or whitespace-only item content.
	ErrEmptyContent = errors.New("empty review content")
)
