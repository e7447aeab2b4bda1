// Package identity issues and resolves anonymous principals. A principal id
// is the stable opaque identifier a client holds for the lifetime of its
// connection; there is no registration or credential beyond it.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/retroloop/retroloop/internal/repository"
)

// AnonymousName is the fixed display-name placeholder used whenever a
// nickname is blank.
const AnonymousName = "익명"

// ErrUnknownPrincipal indicates a principal id that was never issued.
var ErrUnknownPrincipal = errors.New("unknown principal")

// User is the identity handed to the collaboration engine: a stable
// principal id plus a display-name hint.
type User struct {
	ID   string `json:"userId"`
	Name string `json:"name"`
}

// Principal is the persisted identity record.
type Principal struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Repository persists issued principals.
type Repository interface {
	Create(ctx context.Context, p Principal) error
	Get(ctx context.Context, id string) (*Principal, error)
}

// Service issues and resolves principals.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates an identity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// SignInAnonymously issues a fresh principal with a derived display name.
func (s *Service) SignInAnonymously(ctx context.Context) (*User, error) {
	id := uuid.NewString()
	p := Principal{
		ID:        id,
		Name:      anonymousDisplayName(id),
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("creating principal: %w", err)
	}

	s.logger.Info("anonymous principal issued", "principal", id)
	return &User{ID: p.ID, Name: p.Name}, nil
}

// Resolve looks up an issued principal by id.
func (s *Service) Resolve(ctx context.Context, id string) (*User, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownPrincipal
		}
		return nil, fmt.Errorf("resolving principal: %w", err)
	}
	return &User{ID: p.ID, Name: p.Name}, nil
}

func anonymousDisplayName(id string) string {
	short := id
	if len(short) > 6 {
		short = short[:6]
	}
	return AnonymousName + "-" + short
}
