package repository

import (
	"context"
	"errors"

	"github.com/yudhapratama/contactbook/internal/domain/entity"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when an insert violates the email uniqueness constraint.
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	List(ctx context.Context, limit, offset int) ([]*entity.User, error)

	// UpdateRefreshToken unconditionally stores token (nil clears it).
	UpdateRefreshToken(ctx context.Context, userID string, token *string) error

	// RotateRefreshToken replaces the stored refresh token only if it still
	// equals old. Returns false when another concurrent rotation won.
	RotateRefreshToken(ctx context.Context, userID string, old, new string) (bool, error)

	SetConfirmed(ctx context.Context, userID string) error
	UpdateAvatar(ctx context.Context, email, url string) (*entity.User, error)
}
