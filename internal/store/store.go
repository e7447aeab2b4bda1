// Package store defines the contract for the remote shared keyed store the
// collaboration engine replicates through. Values are JSON-shaped: nil, bool,
// float64, string, []any, or map[string]any. Implementations own all stored
// data; callers always receive copies.
package store

import "context"

// WatchFunc receives the full current value of a watched subtree. ok is false
// when the subtree does not exist (including when it is deleted while
// watched). Callbacks for a single watch are never invoked concurrently.
type WatchFunc func(value any, ok bool)

// CancelFunc tears down a watch. It is synchronous: once it returns, the
// callback will not be invoked again.
type CancelFunc func()

// Store is a hierarchical keyed store with change notification. Paths are
// slash-separated, e.g. "sessions/A1B2C3/items/01HV...".
type Store interface {
	// Write replaces the value at path, including any children beneath it.
	Write(ctx context.Context, path string, value any) error

	// Update merges fields into the object at path, leaving other fields
	// untouched. Creates the object if absent.
	Update(ctx context.Context, path string, fields map[string]any) error

	// Delete removes the subtree at path. Deleting an absent path is a no-op.
	Delete(ctx context.Context, path string) error

	// Read returns the full current subtree at path. ok is false when the
	// path does not exist.
	Read(ctx context.Context, path string) (value any, ok bool, err error)

	// Watch registers fn for the subtree at path. fn is invoked once with
	// the current value before Watch returns, then again after every change
	// under path.
	Watch(ctx context.Context, path string, fn WatchFunc) (CancelFunc, error)
}
