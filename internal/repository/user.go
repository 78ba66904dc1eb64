package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carcall/signal-server-go/internal/model"
)

type UserRepository interface {
	FindByIdentity(ctx context.Context, identity string) (*model.User, error)
	SetOnline(ctx context.Context, identity string, online bool) error
	SetOffline(ctx context.Context, identity string, lastSeen time.Time) error
	ClearPushToken(ctx context.Context, identity string) error
}

type userRepo struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) FindByIdentity(ctx context.Context, identity string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE car_number = $1
	`, identity)
	return HandleNotFound(&user, err)
}

func (r *userRepo) SetOnline(ctx context.Context, identity string, online bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET is_online = $2 WHERE car_number = $1
	`, identity, online)
	return err
}

// SetOffline clears the online flag and stamps last_seen_at in one statement.
func (r *userRepo) SetOffline(ctx context.Context, identity string, lastSeen time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET is_online = false, last_seen_at = $2 WHERE car_number = $1
	`, identity, lastSeen)
	return err
}

func (r *userRepo) ClearPushToken(ctx context.Context, identity string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET push_token = NULL WHERE car_number = $1
	`, identity)
	return err
}
