package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/relink-dev/relink/internal/database"
	"github.com/relink-dev/relink/internal/models"
)

// UserRepository reads and updates the canonical user directory.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var billingCustomerID *string

	err := scanner.Scan(
		&user.ID, &user.Email, &user.Name, &user.Role, &user.Status,
		&billingCustomerID,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	user.BillingCustomerID = billingCustomerID

	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, email, name, role, status, billing_customer_id, created_at, updated_at
		FROM users WHERE id = $1
	`

	user, err := scanUserRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, name, role, status, billing_customer_id, created_at, updated_at
		FROM users WHERE email = $1
	`

	user, err := scanUserRow(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, err
	}

	return user, nil
}

// UpdateEmail rewrites the directory email for a user. Invoked only on an
// approved email change request.
func (r *UserRepository) UpdateEmail(ctx context.Context, id, newEmail string) (*models.User, error) {
	query := `
		UPDATE users SET email = $1, updated_at = $2
		WHERE id = $3
		RETURNING id, email, name, role, status, billing_customer_id, created_at, updated_at
	`

	user, err := scanUserRow(r.pool.QueryRow(ctx, query, newEmail, time.Now(), id))
	if err != nil {
		return nil, fmt.Errorf("failed to update user email: %w", err)
	}

	return user, nil
}
