// Package memory provides an in-process implementation of the store
// contract. It backs tests and single-node deployments.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/retroloop/retroloop/internal/store"
)

// Store keeps a JSON-shaped value tree in memory. All operations, including
// watch callback delivery, are serialized under a single mutex, so watch
// callbacks observe mutations in application order and must not call back
// into the store.
type Store struct {
	mu       sync.Mutex
	root     map[string]any
	watchers map[int64]*watcher
	nextID   int64
}

type watcher struct {
	path string
	fn   store.WatchFunc
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		root:     make(map[string]any),
		watchers: make(map[int64]*watcher),
	}
}

// Write replaces the subtree at path. Writing nil deletes it.
func (s *Store) Write(_ context.Context, path string, value any) error {
	segments, err := store.SplitPath(path)
	if err != nil {
		return err
	}
	normalized, err := normalize(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if normalized == nil {
		deleteAt(s.root, segments)
	} else {
		setAt(s.root, segments, normalized)
	}
	s.notify(path)
	return nil
}

// Update merges fields into the object at path.
func (s *Store) Update(_ context.Context, path string, fields map[string]any) error {
	segments, err := store.SplitPath(path)
	if err != nil {
		return err
	}
	normalized, err := normalize(fields)
	if err != nil {
		return err
	}
	merged, _ := normalized.(map[string]any)
	if merged == nil {
		merged = make(map[string]any)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := getAt(s.root, segments).(map[string]any)
	if !ok {
		target = make(map[string]any)
	}
	for key, value := range merged {
		if value == nil {
			delete(target, key)
			continue
		}
		target[key] = value
	}
	setAt(s.root, segments, target)
	s.notify(path)
	return nil
}

// Delete removes the subtree at path. Absent paths are a no-op.
func (s *Store) Delete(_ context.Context, path string) error {
	segments, err := store.SplitPath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	deleteAt(s.root, segments)
	s.notify(path)
	return nil
}

// Read returns a copy of the subtree at path.
func (s *Store) Read(_ context.Context, path string) (any, bool, error) {
	segments, err := store.SplitPath(path)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	value := getAt(s.root, segments)
	if value == nil {
		return nil, false, nil
	}
	return copyValue(value), true, nil
}

// Watch registers fn for path. The current value is delivered before Watch
// returns. The returned cancel is synchronous: it acquires the store mutex,
// so no callback can run after it returns.
func (s *Store) Watch(_ context.Context, path string, fn store.WatchFunc) (store.CancelFunc, error) {
	segments, err := store.SplitPath(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = &watcher{path: path, fn: fn}

	value := getAt(s.root, segments)
	fn(copyValue(value), value != nil)

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
	return cancel, nil
}

// notify delivers the current subtree value to every watcher overlapping the
// mutated path. Caller holds s.mu.
func (s *Store) notify(mutated string) {
	for _, w := range s.watchers {
		if !store.PathsOverlap(w.path, mutated) {
			continue
		}
		segments, err := store.SplitPath(w.path)
		if err != nil {
			continue
		}
		value := getAt(s.root, segments)
		w.fn(copyValue(value), value != nil)
	}
}

// normalize round-trips a value through JSON so the stored tree only ever
// holds JSON-shaped data owned by the store.
func normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding value: %w", err)
	}
	return out, nil
}

func copyValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, child := range typed {
			out[key] = copyValue(child)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, child := range typed {
			out[i] = copyValue(child)
		}
		return out
	default:
		return value
	}
}

func getAt(root map[string]any, segments []string) any {
	node := any(root)
	for _, seg := range segments {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node, ok = obj[seg]
		if !ok {
			return nil
		}
	}
	return node
}

func setAt(root map[string]any, segments []string, value any) {
	node := root
	for _, seg := range segments[:len(segments)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[seg] = child
		}
		node = child
	}
	node[segments[len(segments)-1]] = value
}

// deleteAt removes the node at segments and prunes parents left empty, so a
// document whose last child is removed reads as absent.
func deleteAt(root map[string]any, segments []string) {
	parents := make([]map[string]any, 0, len(segments))
	node := root
	for _, seg := range segments[:len(segments)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			return
		}
		parents = append(parents, node)
		node = child
	}
	delete(node, segments[len(segments)-1])

	for i := len(parents) - 1; i >= 0; i-- {
		parent := parents[i]
		child, _ := parent[segments[i]].(map[string]any)
		if len(child) > 0 {
			return
		}
		delete(parent, segments[i])
	}
}
