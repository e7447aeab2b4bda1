package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/retroloop/retroloop/internal/identity"
	"github.com/retroloop/retroloop/internal/repository"
)

// PrincipalRepository implements identity.Repository for SQLite
type PrincipalRepository struct {
	db *DB
}

// NewPrincipalRepository creates a new PrincipalRepository
func NewPrincipalRepository(db *DB) *PrincipalRepository {
	return &PrincipalRepository{db: db}
}

// Create stores an issued principal
func (r *PrincipalRepository) Create(ctx context.Context, p identity.Principal) error {
	query := `INSERT INTO principals (id, name, created_at) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, p.ID, p.Name, p.CreatedAt); err != nil {
		return fmt.Errorf("failed to create principal: %w", err)
	}
	return nil
}

// Get retrieves a principal by ID
func (r *PrincipalRepository) Get(ctx context.Context, id string) (*identity.Principal, error) {
	query := `SELECT id, name, created_at FROM principals WHERE id = ?`

	var p identity.Principal
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get principal: %w", err)
	}
	return &p, nil
}
