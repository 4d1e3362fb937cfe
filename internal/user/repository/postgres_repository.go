package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ridloal/agri-traceability/internal/platform/logger"
	"github.com/ridloal/agri-traceability/internal/user/domain"
)

// Schema is applied at start-up by the user service.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id           TEXT PRIMARY KEY,
        display_name TEXT NOT NULL,
        role         TEXT NOT NULL,
        phone_number TEXT,
        created_at   TIMESTAMPTZ NOT NULL,
        updated_at   TIMESTAMPTZ NOT NULL
    )`,
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (id, display_name, role, phone_number, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $5)
              ON CONFLICT (id) DO UPDATE
              SET display_name = EXCLUDED.display_name, role = EXCLUDED.role,
                  phone_number = EXCLUDED.phone_number, updated_at = EXCLUDED.updated_at
              RETURNING created_at, updated_at`

	var phoneNumber sql.NullString
	if user.PhoneNumber != nil {
		phoneNumber = sql.NullString{String: *user.PhoneNumber, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query, user.ID, user.DisplayName, string(user.Role), phoneNumber, time.Now().UTC()).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		logger.Error("UpsertUser: failed to upsert user", err, logger.Fields{"user_id": user.ID})
		return err
	}
	return nil
}

func (r *postgresUserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT id, display_name, role, phone_number, created_at, updated_at FROM users WHERE id = $1`
	user := &domain.User{}
	var phoneNumber sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.DisplayName, &user.Role, &phoneNumber, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		logger.Error("GetUserByID: query failed", err, nil)
		return nil, err
	}
	if phoneNumber.Valid {
		user.PhoneNumber = &phoneNumber.String
	}
	return user, nil
}
