package collab

import "errors"

var (
	// ErrIdentityNotReady indicates the caller has no established principal.
	ErrIdentityNotReady = errors.New("identity not ready")
	// ErrSessionNotFound indicates the invite code addresses no session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates the session's advisory validity horizon
	// has passed.
	ErrSessionExpired = errors.New("session expired")
	// ErrStoreWrite wraps a failed store write or partial update.
	ErrStoreWrite = errors.New("store write failed")
	// ErrStoreRead wraps a failed one-shot store read.
	ErrStoreRead = errors.New("store read failed")
	// ErrStoreWatch wraps a failed watch registration.
	ErrStoreWatch = errors.New("store watch failed")
)
