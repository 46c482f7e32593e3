package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/authgate/internal/mailer"
	"github.com/ayush/authgate/internal/models"
	"github.com/ayush/authgate/internal/store"
	"github.com/ayush/authgate/internal/validate"
)

// UserStore defines the interface for user and verification code persistence.
type UserStore interface {
	CreateUser(ctx context.Context, email, hashedPassword string, verified bool) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SetPassword(ctx context.Context, userID, hashedPassword string) error

	CreateCode(ctx context.Context, code *models.VerificationCode) error
	DeleteUnusedCodes(ctx context.Context, userID string) error
	LatestUnusedCode(ctx context.Context, userID string) (*models.VerificationCode, error)
	GetCodeByToken(ctx context.Context, token string) (*models.VerificationCode, error)
	IncrementAttempts(ctx context.Context, codeID string) (int, error)
	BurnCode(ctx context.Context, codeID string, at time.Time) error
	ConsumeCode(ctx context.Context, code *models.VerificationCode, at time.Time) error
}

// Throttle limits how often a verification mail goes to one address.
type Throttle interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// Options tunes the verification and registration rules.
type Options struct {
	BaseURL             string
	RequireVerification bool
	VerificationTTL     time.Duration
	MaxCodeAttempts     int
	BcryptCost          int
}

// Service implements registration, verification and login.
type Service struct {
	users    UserStore
	mail     mailer.Mailer
	throttle Throttle
	tokens   *TokenIssuer
	opts     Options

	now     func() time.Time
	newCode func() (string, error)
}

func NewService(users UserStore, mail mailer.Mailer, throttle Throttle, tokens *TokenIssuer, opts Options) *Service {
	if opts.VerificationTTL <= 0 {
		opts.VerificationTTL = 15 * time.Minute
	}
	if opts.MaxCodeAttempts <= 0 {
		opts.MaxCodeAttempts = 5
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:    users,
		mail:     mail,
		throttle: throttle,
		tokens:   tokens,
		opts:     opts,
		now:      time.Now,
		newCode:  sixDigitCode,
	}
}

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func (s *Service) hash(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), s.opts.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return string(h), nil
}

func (s *Service) verifyLink(token string) string {
	return strings.TrimRight(s.opts.BaseURL, "/") + "/api/verify-email?token=" + url.QueryEscape(token)
}

// SendVerificationCode mails a fresh code and link to email, creating a pending user if needed.
func (s *Service) SendVerificationCode(ctx context.Context, rawEmail string) (err error) {
	if err := validate.Email(rawEmail); err != nil {
		return err
	}
	email := validate.NormalizeEmail(rawEmail)

	u, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		u = nil
	case err != nil:
		return err
	case u.Verified && u.HasPassword():
		return ErrAlreadyRegistered
	case u.Verified:
		return ErrAlreadyVerified
	}

	if s.throttle != nil {
		ok, aerr := s.throttle.Allow(ctx, email)
		if aerr != nil {
			return fmt.Errorf("cooldown: %w", aerr)
		}
		if !ok {
			return ErrCooldown
		}
		// Only a delivered mail keeps the window.
		defer func() {
			if err == nil {
				return
			}
			if rerr := s.throttle.Reset(ctx, email); rerr != nil {
				log.Printf("cooldown reset %s: %v", email, rerr)
			}
		}()
	}

	if u == nil {
		u, err = s.users.CreateUser(ctx, email, "", false)
		if errors.Is(err, store.ErrDuplicate) {
			u, err = s.users.GetUserByEmail(ctx, email)
		}
		if err != nil {
			return err
		}
	}

	code, err := s.newCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	codeHash, err := s.hash(code)
	if err != nil {
		return err
	}
	if err := s.users.DeleteUnusedCodes(ctx, u.ID); err != nil {
		return err
	}
	vc := &models.VerificationCode{
		UserID:    u.ID,
		CodeHash:  codeHash,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.opts.VerificationTTL),
	}
	if err := s.users.CreateCode(ctx, vc); err != nil {
		return err
	}

	msg, err := mailer.RenderVerification(email, code, s.verifyLink(vc.Token), s.opts.VerificationTTL)
	if err != nil {
		return err
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMailFailed, err)
	}
	return nil
}

// VerifyCode checks the latest code mailed to email and marks the user verified.
func (s *Service) VerifyCode(ctx context.Context, rawEmail, code string) (*models.User, error) {
	if err := validate.Email(rawEmail); err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, validate.ErrCodeRequired
	}
	code = strings.TrimSpace(code)

	u, err := s.users.GetUserByEmail(ctx, validate.NormalizeEmail(rawEmail))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrCodeInvalid
	}
	if err != nil {
		return nil, err
	}
	vc, err := s.users.LatestUnusedCode(ctx, u.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrCodeInvalid
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if vc.Expired(now) || vc.Attempts >= s.opts.MaxCodeAttempts {
		if err := s.users.BurnCode(ctx, vc.ID, now); err != nil {
			return nil, err
		}
		return nil, ErrCodeInvalid
	}
	if bcrypt.CompareHashAndPassword([]byte(vc.CodeHash), []byte(code)) != nil {
		n, err := s.users.IncrementAttempts(ctx, vc.ID)
		if err != nil {
			return nil, err
		}
		if n >= s.opts.MaxCodeAttempts {
			if err := s.users.BurnCode(ctx, vc.ID, now); err != nil {
				return nil, err
			}
		}
		return nil, ErrCodeInvalid
	}
	return s.consume(ctx, vc, now, ErrCodeInvalid)
}

// VerifyEmailToken verifies the user that owns a mailed link token.
// On a used or expired token the owning user is returned with the error.
func (s *Service) VerifyEmailToken(ctx context.Context, token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenInvalid
	}
	vc, err := s.users.GetCodeByToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	now := s.now()
	if vc.UsedAt != nil || vc.Expired(now) {
		u, _ := s.users.GetUserByID(ctx, vc.UserID)
		return u, ErrTokenInvalid
	}
	return s.consume(ctx, vc, now, ErrTokenInvalid)
}

func (s *Service) consume(ctx context.Context, vc *models.VerificationCode, now time.Time, invalid error) (*models.User, error) {
	if err := s.users.ConsumeCode(ctx, vc, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, invalid
		}
		return nil, err
	}
	return s.users.GetUserByID(ctx, vc.UserID)
}

// Register sets the password of a verified user, or creates the user when verification is off.
func (s *Service) Register(ctx context.Context, rawEmail, password string) (*models.User, error) {
	if err := validate.Email(rawEmail); err != nil {
		return nil, err
	}
	if err := validate.Password(password); err != nil {
		return nil, err
	}
	email := validate.NormalizeEmail(rawEmail)

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	switch {
	case u == nil && s.opts.RequireVerification:
		return nil, ErrVerificationNeeded
	case u != nil && u.HasPassword():
		return nil, ErrAlreadyRegistered
	case u != nil && !u.Verified:
		return nil, ErrNotVerified
	}

	hashed, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	if u == nil {
		u, err = s.users.CreateUser(ctx, email, hashed, true)
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrAlreadyRegistered
		}
		return u, err
	}
	if err := s.users.SetPassword(ctx, u.ID, hashed); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrAlreadyRegistered
		}
		return nil, err
	}
	u.Password = hashed
	return u, nil
}

// Login checks credentials and returns the user with a signed token.
func (s *Service) Login(ctx context.Context, rawEmail, password string) (*models.User, string, error) {
	if strings.TrimSpace(rawEmail) == "" || password == "" {
		return nil, "", ErrCredentialsRequired
	}
	u, err := s.users.GetUserByEmail(ctx, validate.NormalizeEmail(rawEmail))
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", ErrUnknownEmail
	}
	if err != nil {
		return nil, "", err
	}
	if !u.Verified || !u.HasPassword() {
		return nil, "", ErrUnknownEmail
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return u, "", ErrWrongPassword
	}
	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *Service) User(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetUserByID(ctx, id)
}

func (s *Service) Users(ctx context.Context) ([]models.User, error) {
	return s.users.ListUsers(ctx)
}

// Tokens exposes the issuer for middleware that accepts bearer tokens.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}
