// internal/app/system/accounts/accounts.go

// Package accounts is the signup/login/verification state machine. It
// orchestrates the credential store, the password hasher, and the mail
// sender; HTTP handlers stay thin and translate its errors into responses.
//
// The package talks to collaborators through the Users and MailSender
// interfaces so every flow is testable with in-memory fakes: no Mongo, no
// SMTP, no live OAuth provider.
package accounts

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	userstore "github.com/floatchat/floatchatweb/internal/app/store/users"
	"github.com/floatchat/floatchatweb/internal/app/system/mailer"
	"github.com/floatchat/floatchatweb/internal/app/system/normalize"
	"github.com/floatchat/floatchatweb/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the cost used across the app for credential hashes.
const bcryptCost = 12

// tokenBytes is the entropy of a verification token; hex-encoded it is a
// 64-character string.
const tokenBytes = 32

var (
	// ErrDuplicateAccount is returned when the email or username is taken.
	// Distinct from other persistence errors so forms can say "already
	// exists" instead of failing generically.
	ErrDuplicateAccount = errors.New("an account with that email or username already exists")

	// ErrInvalidToken is returned for unknown or already-consumed
	// verification tokens.
	ErrInvalidToken = errors.New("invalid verification token")

	// ErrInvalidCredentials covers both unknown email and wrong password;
	// callers must not be able to tell which.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnverifiedAccount is returned when credentials match but the email
	// has not been verified yet.
	ErrUnverifiedAccount = errors.New("email not verified")

	// ErrEmptyPassword and ErrPasswordMismatch are form-validation failures
	// for the OAuth completion step.
	ErrEmptyPassword    = errors.New("password is required")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// Users is the slice of the credential store this state machine needs.
// *userstore.Store satisfies it.
type Users interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*models.User, error)
	MarkVerified(ctx context.Context, id primitive.ObjectID) error
	SetVerificationToken(ctx context.Context, id primitive.ObjectID, token string) error
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
}

// MailSender delivers a single email. *mailer.Mailer satisfies it.
type MailSender interface {
	Send(ctx context.Context, e mailer.Email) error
}

// Service runs the account flows.
type Service struct {
	users    Users
	mail     MailSender
	baseURL  string // origin for verification links, e.g. "https://floatchat.example"
	siteName string
	log      *zap.Logger
}

func NewService(users Users, mail MailSender, baseURL, siteName string, logger *zap.Logger) *Service {
	if siteName == "" {
		siteName = models.DefaultSiteName
	}
	return &Service{
		users:    users,
		mail:     mail,
		baseURL:  baseURL,
		siteName: siteName,
		log:      logger,
	}
}

// Signup creates an unverified account and sends the verification email.
// No session is established; the caller directs the user to the
// check-your-email notice.
//
// Returns ErrDuplicateAccount when the email or username is taken; any
// other failure (including a refused email send) is an infrastructure
// error the caller reports as a server error.
func (s *Service) Signup(ctx context.Context, username, email, password string) (models.User, error) {
	username = normalize.Username(username)
	email = normalize.Email(email)
	if username == "" || email == "" || password == "" {
		return models.User{}, ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	token, err := generateToken()
	if err != nil {
		return models.User{}, fmt.Errorf("generate verification token: %w", err)
	}

	u, err := s.users.Create(ctx, models.User{
		Username:          username,
		Email:             email,
		PasswordHash:      string(hash),
		IsVerified:        false,
		VerificationToken: &token,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicate) {
			return models.User{}, ErrDuplicateAccount
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	if err := s.sendVerification(ctx, u.Email, token, false); err != nil {
		// The account exists but the link never went out. Fail loudly; the
		// user can recover through resend-verification.
		return models.User{}, fmt.Errorf("send verification email: %w", err)
	}

	s.log.Info("user signed up",
		zap.String("user_id", u.ID.Hex()),
		zap.String("email", u.Email))

	return u, nil
}

// VerifyEmail consumes a verification token. A token verifies exactly once:
// the lookup only matches an outstanding token, and MarkVerified unsets it
// in the same update that flips is_verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	u, err := s.users.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("look up verification token: %w", err)
	}

	if err := s.users.MarkVerified(ctx, u.ID); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}

	s.log.Info("email verified", zap.String("user_id", u.ID.Hex()))
	return nil
}

// ResendVerification issues a fresh token and email for an unverified
// account. For an unknown email or an already-verified account it silently
// succeeds, so the endpoint never reveals whether an account exists.
// The new token overwrites the old one, invalidating the earlier link.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("look up user: %w", err)
	}
	if u.IsVerified {
		return nil
	}

	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}

	if err := s.users.SetVerificationToken(ctx, u.ID, token); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}

	if err := s.sendVerification(ctx, u.Email, token, true); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}

	s.log.Info("verification resent", zap.String("user_id", u.ID.Hex()))
	return nil
}

// Login checks credentials. Unknown email and wrong password collapse into
// the same ErrInvalidCredentials; a matching but unverified account gets
// the distinct ErrUnverifiedAccount. The caller establishes the session.
func (s *Service) Login(ctx context.Context, email, password string) (models.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	if !u.IsVerified {
		return models.User{}, ErrUnverifiedAccount
	}

	return *u, nil
}

// OAuthResolution is the outcome of an OAuth callback: exactly one of
// UserID (an existing account to sign in) or Pending (a descriptor the
// completion form finishes) is set.
type OAuthResolution struct {
	UserID  primitive.ObjectID
	Pending *models.PendingOAuthProfile
}

// ResolveOAuth maps an external profile to either an existing local account
// or a pending-signup descriptor. No account is created here: the
// credential model requires a password for every account, so one has to be
// collected first.
func (s *Service) ResolveOAuth(ctx context.Context, displayName, email string) (OAuthResolution, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return OAuthResolution{UserID: u.ID}, nil
	}
	if !errors.Is(err, userstore.ErrNotFound) {
		return OAuthResolution{}, fmt.Errorf("look up user: %w", err)
	}

	return OAuthResolution{Pending: &models.PendingOAuthProfile{
		Username:   normalize.Username(displayName),
		Email:      normalize.Email(email),
		IsVerified: true, // the provider asserts the email
	}}, nil
}

// CompleteOAuthSignup validates the chosen password and creates the
// pre-verified account. Validation failures (ErrEmptyPassword,
// ErrPasswordMismatch) and ErrDuplicateAccount leave no trace; the caller
// keeps the pending profile so the user can retry.
//
// The duplicate pre-check is best effort; the store's unique indexes decide
// races (two tabs, or a local signup finishing in between), surfacing as
// ErrDuplicateAccount from Create.
func (s *Service) CompleteOAuthSignup(ctx context.Context, pending models.PendingOAuthProfile, password, confirm string) (models.User, error) {
	if password == "" {
		return models.User{}, ErrEmptyPassword
	}
	if password != confirm {
		return models.User{}, ErrPasswordMismatch
	}

	exists, err := s.users.ExistsByEmailOrUsername(ctx, pending.Email, pending.Username)
	if err != nil {
		return models.User{}, fmt.Errorf("check existing account: %w", err)
	}
	if exists {
		return models.User{}, ErrDuplicateAccount
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(ctx, models.User{
		Username:     pending.Username,
		Email:        pending.Email,
		PasswordHash: string(hash),
		IsVerified:   pending.IsVerified,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicate) {
			return models.User{}, ErrDuplicateAccount
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("oauth signup completed",
		zap.String("user_id", u.ID.Hex()),
		zap.String("email", u.Email))

	return u, nil
}

func (s *Service) sendVerification(ctx context.Context, to, token string, resend bool) error {
	e := mailer.BuildVerificationEmail(mailer.VerificationEmailData{
		SiteName:   s.siteName,
		VerifyLink: fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, token),
		Resend:     resend,
	})
	e.To = to
	return s.mail.Send(ctx, e)
}

// generateToken returns a 64-hex-char single-use token.
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
