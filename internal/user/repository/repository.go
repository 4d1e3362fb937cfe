package repository

import (
	"context"
	"errors"

	"github.com/ridloal/agri-traceability/internal/user/domain"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	// UpsertUser inserts or replaces the profile. CreatedAt is kept from the
	// first insert; both timestamps are written back into user.
	UpsertUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}
