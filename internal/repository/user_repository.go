package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/clinic-records-api/internal/models"
)

const userColumns = `id, username, email, password_hash, full_name, role, active, last_login, created_at, updated_at`

// UserRepository handles CRUD operations for users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new repository instance.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := conn(ctx, r.db).GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByUsername reports whether a username is taken, case-insensitively.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))`
	var exists bool
	if err := conn(ctx, r.db).GetContext(ctx, &exists, query, username); err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, username, email, password_hash, full_name, role, active, created_at, updated_at)
	VALUES (:id, :username, :email, :password_hash, :full_name, :role, :active, :created_at, :updated_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Deactivate disables the account. It reports false when the user does not exist;
// an already inactive user still counts as found.
func (r *UserRepository) Deactivate(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `UPDATE users SET active = FALSE, updated_at = $2 WHERE id = $1`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("deactivate user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check deactivate rows: %w", err)
	}
	return rows > 0, nil
}

// Delete removes the user. Dependent rows cascade in the schema.
func (r *UserRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check delete rows: %w", err)
	}
	return rows > 0, nil
}

// CreateAuditLog stores an audit log entry.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at) VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
