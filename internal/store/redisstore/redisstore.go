// Package redisstore implements the store contract on redis. Each written
// path is one redis key holding a JSON value; subtree reads assemble the
// exact key plus every key beneath it. Mutations publish the mutated path on
// a single pub/sub channel and every watcher filters on path overlap, which
// is how change notification fans out across instances.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/retroloop/retroloop/internal/store"
)

const defaultPrefix = "retroloop:"

// Store is a redis-backed implementation of store.Store.
type Store struct {
	client *redis.Client
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides the key namespace prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New creates a Store on an existing redis client.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(path string) string {
	return s.prefix + path
}

func (s *Store) channel() string {
	return s.prefix + "changes"
}

// Write replaces the subtree at path. Writing nil deletes it.
func (s *Store) Write(ctx context.Context, path string, value any) error {
	if _, err := store.SplitPath(path); err != nil {
		return err
	}
	if value == nil {
		return s.Delete(ctx, path)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding value for %s: %w", path, err)
	}

	if err := s.deleteChildren(ctx, path); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(path), data, 0).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return s.publish(ctx, path)
}

// Update merges fields into the JSON object stored at path. The read-merge-
// write is not atomic across clients; callers rely on every field having a
// single legitimate writer.
func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	if _, err := store.SplitPath(path); err != nil {
		return err
	}

	current := make(map[string]any)
	raw, err := s.client.Get(ctx, s.key(path)).Bytes()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err == nil {
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
	}

	for key, value := range fields {
		if value == nil {
			delete(current, key)
			continue
		}
		current[key] = value
	}

	data, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encoding value for %s: %w", path, err)
	}
	if err := s.client.Set(ctx, s.key(path), data, 0).Err(); err != nil {
		return fmt.Errorf("updating %s: %w", path, err)
	}
	return s.publish(ctx, path)
}

// Delete removes the subtree at path.
func (s *Store) Delete(ctx context.Context, path string) error {
	if _, err := store.SplitPath(path); err != nil {
		return err
	}
	if err := s.deleteChildren(ctx, path); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(path)).Err(); err != nil {
		return fmt.Errorf("deleting %s: %w", path, err)
	}
	return s.publish(ctx, path)
}

// Read assembles the full subtree at path.
func (s *Store) Read(ctx context.Context, path string) (any, bool, error) {
	if _, err := store.SplitPath(path); err != nil {
		return nil, false, err
	}

	var base any
	exists := false
	raw, err := s.client.Get(ctx, s.key(path)).Bytes()
	if err != nil && err != redis.Nil {
		return nil, false, fmt.Errorf("reading %s: %w", path, err)
	}
	if err == nil {
		if err := json.Unmarshal(raw, &base); err != nil {
			return nil, false, fmt.Errorf("decoding %s: %w", path, err)
		}
		exists = true
	}

	childPrefix := s.key(path) + "/"
	iter := s.client.Scan(ctx, 0, childPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		childRaw, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("reading %s: %w", key, err)
		}
		var child any
		if err := json.Unmarshal(childRaw, &child); err != nil {
			return nil, false, fmt.Errorf("decoding %s: %w", key, err)
		}
		base = graftChild(base, strings.TrimPrefix(key, childPrefix), child)
		exists = true
	}
	if err := iter.Err(); err != nil {
		return nil, false, fmt.Errorf("scanning %s: %w", path, err)
	}

	if !exists {
		return nil, false, nil
	}
	return base, true, nil
}

// Watch subscribes to the change channel and re-reads the subtree on every
// overlapping mutation. Cancel closes the subscription and waits for the
// delivery goroutine to exit, so no callback runs after it returns.
func (s *Store) Watch(ctx context.Context, path string, fn store.WatchFunc) (store.CancelFunc, error) {
	if _, err := store.SplitPath(path); err != nil {
		return nil, err
	}

	pubsub := s.client.Subscribe(ctx, s.channel())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", path, err)
	}

	value, ok, err := s.Read(ctx, path)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	fn(value, ok)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range pubsub.Channel() {
			if !store.PathsOverlap(path, msg.Payload) {
				continue
			}
			value, ok, err := s.Read(context.Background(), path)
			if err != nil {
				continue
			}
			fn(value, ok)
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = pubsub.Close()
			<-done
		})
	}
	return cancel, nil
}

func (s *Store) deleteChildren(ctx context.Context, path string) error {
	iter := s.client.Scan(ctx, 0, s.key(path)+"/*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning %s: %w", path, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting children of %s: %w", path, err)
	}
	return nil
}

func (s *Store) publish(ctx context.Context, path string) error {
	if err := s.client.Publish(ctx, s.channel(), path).Err(); err != nil {
		return fmt.Errorf("publishing change for %s: %w", path, err)
	}
	return nil
}

// graftChild sets a child value at a relative slash path inside base,
// creating intermediate objects and replacing non-object nodes on the way.
func graftChild(base any, relPath string, child any) any {
	segments := strings.Split(relPath, "/")

	root, ok := base.(map[string]any)
	if !ok {
		root = make(map[string]any)
	}
	node := root
	for _, seg := range segments[:len(segments)-1] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[seg] = next
		}
		node = next
	}
	node[segments[len(segments)-1]] = child
	return root
}
