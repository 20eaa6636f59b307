package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/freshmarket/freshmarket-api/internal/logging"
	"github.com/freshmarket/freshmarket-api/internal/session"
	"github.com/freshmarket/freshmarket-api/internal/token"
	"github.com/freshmarket/freshmarket-api/internal/user"
)

const (
	bcryptCost      = 10
	verificationTTL = 24 * time.Hour
	resetTokenTTL   = 1 * time.Hour
)

// Mailer defines the interface for the transactional email sends the
// auth flows trigger.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, toEmail, code string) error
	SendWelcomeEmail(ctx context.Context, toEmail, name string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, resetToken string) error
	SendResetSuccessEmail(ctx context.Context, toEmail string) error
}

// Service orchestrates signup, verification, login, logout, password
// reset and session checks.
type Service struct {
	users    user.Repository
	sessions session.Store
	mailer   Mailer
	logger   *logging.Logger
}

func NewService(users user.Repository, sessions session.Store, mailer Mailer, logger *logging.Logger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		mailer:   mailer,
		logger:   logger,
	}
}

// SignupInput carries the signup request fields.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  string
	Role     string // optional; defaults to "user"
}

// Signup creates a pending account and sends the verification code.
// The email send happens after the insert and never fails the signup.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*user.User, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" || in.Phone == "" || in.Address == "" {
		return nil, ErrFieldsRequired
	}

	role := user.RoleUser
	if in.Role != "" {
		role = user.Role(in.Role)
		if !user.IsValidRole(role) {
			return nil, ErrInvalidRole
		}
	}

	// Fast path; the unique index on email settles races.
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	code, err := token.GenerateVerificationCode()
	if err != nil {
		return nil, err
	}

	newUser, err := s.users.Create(ctx, user.NewUser{
		Name:                  in.Name,
		Email:                 in.Email,
		PasswordHash:          string(passwordHash),
		Phone:                 in.Phone,
		Address:               in.Address,
		Role:                  role,
		VerificationToken:     code,
		VerificationExpiresAt: time.Now().Add(verificationTTL),
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	go func() {
		emailCtx := context.Background()
		if err := s.mailer.SendVerificationEmail(emailCtx, newUser.Email, code); err != nil {
			s.logger.Warn("failed to send verification email", "email", newUser.Email, "error", err)
		}
	}()

	return newUser, nil
}

// VerifyEmail consumes a verification code, activates the account and
// establishes a session. Wrong and expired codes fail identically.
func (s *Service) VerifyEmail(ctx context.Context, code string) (*user.User, *session.Session, error) {
	if code == "" {
		return nil, nil, ErrInvalidVerification
	}

	u, err := s.users.GetByVerificationToken(ctx, code, time.Now())
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil, ErrInvalidVerification
		}
		return nil, nil, fmt.Errorf("failed to look up verification code: %w", err)
	}

	if err := s.users.MarkVerified(ctx, u.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to mark user verified: %w", err)
	}
	u.Status = user.StatusActive
	u.VerificationToken = nil
	u.VerificationExpiresAt = nil

	sess, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	go func() {
		emailCtx := context.Background()
		if err := s.mailer.SendWelcomeEmail(emailCtx, u.Email, u.Name); err != nil {
			s.logger.Warn("failed to send welcome email", "email", u.Email, "error", err)
		}
	}()

	return u, sess, nil
}

// Login verifies credentials, records the login time and establishes a
// session. Unknown email and wrong password fail with the same error.
// Verification status is not checked here; the access guard blocks
// pending users from protected routes.
func (s *Service) Login(ctx context.Context, email, password string) (*user.User, *session.Session, error) {
	if email == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.users.UpdateLastLogin(ctx, u.ID, now); err != nil {
		return nil, nil, fmt.Errorf("failed to update last login: %w", err)
	}
	u.LastLogin = &now

	sess, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	return u, sess, nil
}

// Logout destroys the session.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// ForgotPassword stores a reset token on the user and mails the reset
// link. Unknown email fails with the same generic error as login.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	resetToken, err := token.GenerateResetToken()
	if err != nil {
		return err
	}

	if err := s.users.SetResetToken(ctx, u.ID, resetToken, time.Now().Add(resetTokenTTL)); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	go func() {
		emailCtx := context.Background()
		if err := s.mailer.SendPasswordResetEmail(emailCtx, u.Email, resetToken); err != nil {
			s.logger.Warn("failed to send password reset email", "email", u.Email, "error", err)
		}
	}()

	return nil
}

// ResetPassword consumes a reset token, stores the new hash and drops
// every live session for the user.
func (s *Service) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if newPassword == "" {
		return ErrPasswordRequired
	}

	u, err := s.users.GetByResetToken(ctx, resetToken, time.Now())
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, u.ID, string(passwordHash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.sessions.DestroyAllForUser(ctx, u.ID); err != nil {
		s.logger.Warn("failed to destroy sessions after password reset", "user_id", u.ID, "error", err)
	}

	go func() {
		emailCtx := context.Background()
		if err := s.mailer.SendResetSuccessEmail(emailCtx, u.Email); err != nil {
			s.logger.Warn("failed to send reset success email", "email", u.Email, "error", err)
		}
	}()

	return nil
}

// CheckAuth resolves a session id to its user.
func (s *Service) CheckAuth(ctx context.Context, sessionID string) (*user.User, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

// UpdateProfile applies a partial profile update.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, patch user.ProfileUpdate) (*user.User, error) {
	if patch.IsEmpty() {
		return nil, ErrEmptyUpdate
	}

	u, err := s.users.UpdateProfile(ctx, userID, patch)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return u, nil
}
