package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"wetalk/internal/domain"
	apperrors "wetalk/pkg/errors"
	"wetalk/pkg/logger"
)

var ErrUserNotFound = fmt.Errorf("user %w", apperrors.ErrNotFound)

// UserRepository is a read-only view of the account system.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type userRepository struct {
	db  DBTX
	log logger.Logger
}

func NewUserRepository(db DBTX, log logger.Logger) UserRepository {
	return &userRepository{db: db, log: log}
}

const userColumns = `id, username, email, password_hash, is_active, created_at`

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		r.log.Error("Failed to get user by ID", "error", err, "user_id", id)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTransientStore, err)
	}

	return user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUserNotFound
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		r.log.Error("Failed to get user by username", "error", err, "username", username)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTransientStore, err)
	}

	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsActive, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}
