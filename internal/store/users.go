package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// CreateUser registers a new account. Emails are stored lowercased; a
// duplicate registration returns ErrEmailTaken.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, email, password_hash, created_at`,
		strings.ToLower(email), passwordHash)

	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// UserByEmail fetches an account by email, case-insensitively. ok is false
// when no account exists.
func (s *Store) UserByEmail(ctx context.Context, email string) (User, bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users WHERE email = $1`,
		strings.ToLower(email))

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, fmt.Errorf("get user by email: %w", err)
	}
	return user, true, nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u  User
		id pgtype.UUID
	)
	if err := row.Scan(&id, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return User{}, err
	}
	u.ID = pgUUIDToUUID(id)
	return u, nil
}
