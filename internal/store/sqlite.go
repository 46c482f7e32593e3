package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ayush/authgate/internal/models"
)

// SQLiteStore is the embedded single-file variant of PostgresStore for local runs.
type SQLiteStore struct {
	db *sql.DB
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

// OpenSQLite opens the database file at path and creates the tables.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite db: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id          TEXT PRIMARY KEY,
			email       TEXT UNIQUE NOT NULL,
			password    TEXT NOT NULL DEFAULT '',
			verified    INTEGER NOT NULL DEFAULT 0,
			verified_at INTEGER,
			created_at  INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS verification_codes (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			code_hash  TEXT NOT NULL,
			token      TEXT UNIQUE NOT NULL,
			attempts   INTEGER NOT NULL DEFAULT 0,
			expires_at INTEGER NOT NULL,
			used_at    INTEGER,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS verification_codes_user_idx ON verification_codes (user_id, created_at);
	`)
	return err
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func sqliteErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var se *msqlite.Error
	if errors.As(err, &se) && (se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY) {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

const sqliteUserColumns = `id, email, password, verified, verified_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteUser(row rowScanner) (*models.User, error) {
	var (
		u          models.User
		verifiedAt sql.NullInt64
		createdAt  int64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Verified, &verifiedAt, &createdAt); err != nil {
		return nil, err
	}
	u.VerifiedAt = fromNullMillis(verifiedAt)
	u.CreatedAt = fromMillis(createdAt)
	return &u, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, email, hashedPassword string, verified bool) (*models.User, error) {
	now := time.Now().UTC()
	u := &models.User{
		ID:        uuid.NewString(),
		Email:     email,
		Password:  hashedPassword,
		Verified:  verified,
		CreatedAt: fromMillis(toMillis(now)),
	}
	var verifiedAt sql.NullInt64
	if verified {
		verifiedAt = sql.NullInt64{Int64: toMillis(now), Valid: true}
		u.VerifiedAt = fromNullMillis(verifiedAt)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password, verified, verified_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Password, verified, verifiedAt, toMillis(now),
	)
	if err != nil {
		return nil, sqliteErr("create user", err)
	}
	return u, nil
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanSQLiteUser(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteUserColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return nil, sqliteErr("get user by email", err)
	}
	return u, nil
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanSQLiteUser(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, sqliteErr("get user by id", err)
	}
	return u, nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteUserColumns+` FROM users ORDER BY created_at, email`)
	if err != nil {
		return nil, sqliteErr("list users", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, sqliteErr("scan user", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// SetPassword sets the password of a user that has none yet.
// It returns ErrDuplicate if a password is already set.
func (s *SQLiteStore) SetPassword(ctx context.Context, userID, hashedPassword string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password = ? WHERE id = ? AND password = ''`, hashedPassword, userID)
	if err != nil {
		return sqliteErr("set password", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, userID).Scan(&one); err != nil {
		return sqliteErr("set password", err)
	}
	return fmt.Errorf("set password: %w", ErrDuplicate)
}

func (s *SQLiteStore) CreateCode(ctx context.Context, code *models.VerificationCode) error {
	now := time.Now().UTC()
	code.ID = uuid.NewString()
	code.CreatedAt = fromMillis(toMillis(now))
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO verification_codes (id, user_id, code_hash, token, attempts, expires_at, created_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		code.ID, code.UserID, code.CodeHash, code.Token, toMillis(code.ExpiresAt), toMillis(now),
	)
	if err != nil {
		return sqliteErr("create code", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteUnusedCodes(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM verification_codes WHERE user_id = ? AND used_at IS NULL`, userID)
	if err != nil {
		return sqliteErr("delete codes", err)
	}
	return nil
}

const sqliteCodeColumns = `id, user_id, code_hash, token, attempts, expires_at, used_at, created_at`

func scanSQLiteCode(row rowScanner) (*models.VerificationCode, error) {
	var (
		c                    models.VerificationCode
		expiresAt, createdAt int64
		usedAt               sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.CodeHash, &c.Token, &c.Attempts, &expiresAt, &usedAt, &createdAt); err != nil {
		return nil, err
	}
	c.ExpiresAt = fromMillis(expiresAt)
	c.UsedAt = fromNullMillis(usedAt)
	c.CreatedAt = fromMillis(createdAt)
	return &c, nil
}

func (s *SQLiteStore) LatestUnusedCode(ctx context.Context, userID string) (*models.VerificationCode, error) {
	c, err := scanSQLiteCode(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteCodeColumns+` FROM verification_codes
		 WHERE user_id = ? AND used_at IS NULL
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`, userID))
	if err != nil {
		return nil, sqliteErr("latest code", err)
	}
	return c, nil
}

func (s *SQLiteStore) GetCodeByToken(ctx context.Context, token string) (*models.VerificationCode, error) {
	c, err := scanSQLiteCode(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteCodeColumns+` FROM verification_codes WHERE token = ?`, token))
	if err != nil {
		return nil, sqliteErr("get code by token", err)
	}
	return c, nil
}

func (s *SQLiteStore) IncrementAttempts(ctx context.Context, codeID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`UPDATE verification_codes SET attempts = attempts + 1 WHERE id = ? RETURNING attempts`, codeID,
	).Scan(&n)
	if err != nil {
		return 0, sqliteErr("increment attempts", err)
	}
	return n, nil
}

func (s *SQLiteStore) BurnCode(ctx context.Context, codeID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE verification_codes SET used_at = ? WHERE id = ?`, toMillis(at), codeID)
	if err != nil {
		return sqliteErr("burn code", err)
	}
	return nil
}

func (s *SQLiteStore) ConsumeCode(ctx context.Context, code *models.VerificationCode, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sqliteErr("begin", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE verification_codes SET used_at = ? WHERE id = ? AND used_at IS NULL`, toMillis(at), code.ID)
	if err != nil {
		return sqliteErr("consume code", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET verified = 1, verified_at = ? WHERE id = ?`, toMillis(at), code.UserID); err != nil {
		return sqliteErr("verify user", err)
	}
	if err := tx.Commit(); err != nil {
		return sqliteErr("commit", err)
	}
	return nil
}
