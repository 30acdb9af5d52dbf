package integration

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CreateTestUser inserts a user row and returns its id
func (db *TestDB) CreateTestUser(ctx context.Context, email string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO users (id, email, name, role, status)
		VALUES ($1, $2, 'Test User', 'user', 'active')
	`, id, email)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create test user: %w", err)
	}
	return id, nil
}

// CreateTestAdmin inserts an admin user row and returns its id
func (db *TestDB) CreateTestAdmin(ctx context.Context, email string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO users (id, email, name, role, status)
		VALUES ($1, $2, 'Test Admin', 'admin', 'active')
	`, id, email)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create test admin: %w", err)
	}
	return id, nil
}
