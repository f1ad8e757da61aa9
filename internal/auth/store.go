package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mnemo-ai/mnemo/internal/log"
)

// DB is the database surface the user store depends on.
// Satisfied by *pgxpool.Pool.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserStore manages user accounts in PostgreSQL.
// UserStore is safe for concurrent use by multiple goroutines.
type UserStore struct {
	db     DB
	logger log.Logger
}

// NewUserStore creates a UserStore.
func NewUserStore(db DB, logger log.Logger) *UserStore {
	if logger == nil {
		logger = log.NewNop()
	}
	return &UserStore{db: db, logger: logger}
}

// Create registers a new account with an already-hashed password.
// Returns ErrEmailTaken when the email is in use.
func (s *UserStore) Create(ctx context.Context, email, passwordHash string) (User, error) {
	var u User
	err := s.db.QueryRow(ctx,
		`INSERT INTO users (email, password_hash)
		 VALUES ($1, $2)
		 RETURNING id, email, created_at`,
		email, passwordHash).Scan(&u.ID, &u.Email, &u.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return User{}, ErrEmailTaken
	}
	if err != nil {
		return User{}, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("registered user", "user_id", u.ID)
	return u, nil
}

// Authenticate verifies an email/password pair and returns the account.
// Unknown email and wrong password are indistinguishable: both return
// ErrInvalidCredentials.
func (s *UserStore) Authenticate(ctx context.Context, email, password string) (User, error) {
	var u User
	var hash string
	err := s.db.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at
		 FROM users
		 WHERE email = $1`,
		email).Scan(&u.ID, &u.Email, &hash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("looking up user: %w", err)
	}

	if !VerifyPassword(hash, password) {
		return User{}, ErrInvalidCredentials
	}

	return u, nil
}
