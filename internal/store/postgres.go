package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/authgate/internal/models"
)

const pgUniqueViolation = "23505"

// PostgresStore handles users and verification codes in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the tables if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email       VARCHAR(255) UNIQUE NOT NULL,
			password    VARCHAR(255) NOT NULL DEFAULT '',
			verified    BOOLEAN      NOT NULL DEFAULT FALSE,
			verified_at TIMESTAMPTZ,
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS verification_codes (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id    UUID         NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			code_hash  VARCHAR(255) NOT NULL,
			token      VARCHAR(64)  UNIQUE NOT NULL,
			attempts   INT          NOT NULL DEFAULT 0,
			expires_at TIMESTAMPTZ  NOT NULL,
			used_at    TIMESTAMPTZ,
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS verification_codes_user_idx ON verification_codes (user_id, created_at DESC);
	`)
	return err
}

func pgErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) && pe.Code == pgUniqueViolation {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

const userColumns = `id, email, password, verified, verified_at, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Verified, &u.VerifiedAt, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, email, hashedPassword string, verified bool) (*models.User, error) {
	var verifiedAt *time.Time
	if verified {
		now := time.Now().UTC()
		verifiedAt = &now
	}
	u, err := scanUser(s.pool.QueryRow(ctx,
		`INSERT INTO users (email, password, verified, verified_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+userColumns,
		email, hashedPassword, verified, verifiedAt,
	))
	if err != nil {
		return nil, pgErr("create user", err)
	}
	return u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email,
	))
	if err != nil {
		return nil, pgErr("get user by email", err)
	}
	return u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	))
	if err != nil {
		return nil, pgErr("get user by id", err)
	}
	return u, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, pgErr("list users", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, pgErr("scan user", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// SetPassword sets the password of a user that has none yet.
// It returns ErrDuplicate if a password is already set.
func (s *PostgresStore) SetPassword(ctx context.Context, userID, hashedPassword string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password = $2 WHERE id = $1 AND password = ''`, userID, hashedPassword)
	if err != nil {
		return pgErr("set password", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var one int
	if err := s.pool.QueryRow(ctx, `SELECT 1 FROM users WHERE id = $1`, userID).Scan(&one); err != nil {
		return pgErr("set password", err)
	}
	return fmt.Errorf("set password: %w", ErrDuplicate)
}

func (s *PostgresStore) CreateCode(ctx context.Context, code *models.VerificationCode) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO verification_codes (user_id, code_hash, token, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		code.UserID, code.CodeHash, code.Token, code.ExpiresAt,
	).Scan(&code.ID, &code.CreatedAt)
	if err != nil {
		return pgErr("create code", err)
	}
	return nil
}

// DeleteUnusedCodes drops every pending code of a user before a new one is issued.
func (s *PostgresStore) DeleteUnusedCodes(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM verification_codes WHERE user_id = $1 AND used_at IS NULL`, userID)
	if err != nil {
		return pgErr("delete codes", err)
	}
	return nil
}

const codeColumns = `id, user_id, code_hash, token, attempts, expires_at, used_at, created_at`

func scanCode(row pgx.Row) (*models.VerificationCode, error) {
	var c models.VerificationCode
	if err := row.Scan(&c.ID, &c.UserID, &c.CodeHash, &c.Token, &c.Attempts, &c.ExpiresAt, &c.UsedAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) LatestUnusedCode(ctx context.Context, userID string) (*models.VerificationCode, error) {
	c, err := scanCode(s.pool.QueryRow(ctx,
		`SELECT `+codeColumns+` FROM verification_codes
		 WHERE user_id = $1 AND used_at IS NULL
		 ORDER BY created_at DESC LIMIT 1`, userID,
	))
	if err != nil {
		return nil, pgErr("latest code", err)
	}
	return c, nil
}

func (s *PostgresStore) GetCodeByToken(ctx context.Context, token string) (*models.VerificationCode, error) {
	c, err := scanCode(s.pool.QueryRow(ctx,
		`SELECT `+codeColumns+` FROM verification_codes WHERE token = $1`, token,
	))
	if err != nil {
		return nil, pgErr("get code by token", err)
	}
	return c, nil
}

// IncrementAttempts records a failed guess and returns the new count.
func (s *PostgresStore) IncrementAttempts(ctx context.Context, codeID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`UPDATE verification_codes SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`, codeID,
	).Scan(&n)
	if err != nil {
		return 0, pgErr("increment attempts", err)
	}
	return n, nil
}

// BurnCode marks a code used without verifying its user.
func (s *PostgresStore) BurnCode(ctx context.Context, codeID string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE verification_codes SET used_at = $2 WHERE id = $1`, codeID, at)
	if err != nil {
		return pgErr("burn code", err)
	}
	return nil
}

// ConsumeCode marks the code used and its user verified in one transaction.
func (s *PostgresStore) ConsumeCode(ctx context.Context, code *models.VerificationCode, at time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return pgErr("begin", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE verification_codes SET used_at = $2 WHERE id = $1 AND used_at IS NULL`, code.ID, at)
	if err != nil {
		return pgErr("consume code", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx,
		`UPDATE users SET verified = TRUE, verified_at = $2 WHERE id = $1`, code.UserID, at); err != nil {
		return pgErr("verify user", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return pgErr("commit", err)
	}
	return nil
}
