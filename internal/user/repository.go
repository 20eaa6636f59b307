package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/freshmarket/freshmarket-api/internal/database"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// NewUser carries the fields persisted at signup.
type NewUser struct {
	Name                  string
	Email                 string
	PasswordHash          string
	Phone                 string
	Address               string
	Role                  Role
	VerificationToken     string
	VerificationExpiresAt time.Time
}

// Repository is the credential store contract the auth service depends on.
type Repository interface {
	Create(ctx context.Context, nu NewUser) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// GetByVerificationToken matches token equality AND an unexpired
	// window in one lookup so wrong and expired codes are
	// indistinguishable to callers.
	GetByVerificationToken(ctx context.Context, token string, now time.Time) (*User, error)
	MarkVerified(ctx context.Context, id uuid.UUID) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error
	GetByResetToken(ctx context.Context, token string, now time.Time) (*User, error)
	// UpdatePassword stores the new hash and clears both reset columns.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateProfile(ctx context.Context, id uuid.UUID, patch ProfileUpdate) (*User, error)
}

// BunRepository persists users in Postgres via bun.
type BunRepository struct {
	db *bun.DB
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return &BunRepository{db: db}
}

// Create inserts a new pending user. Email uniqueness is enforced by
// the unique index; a racing duplicate surfaces as ErrDuplicateEmail.
func (r *BunRepository) Create(ctx context.Context, nu NewUser) (*User, error) {
	dbUser := &database.User{
		Name:                  nu.Name,
		Email:                 nu.Email,
		PasswordHash:          nu.PasswordHash,
		Phone:                 nu.Phone,
		Address:               nu.Address,
		Role:                  string(nu.Role),
		Status:                string(StatusPending),
		VerificationToken:     &nu.VerificationToken,
		VerificationExpiresAt: &nu.VerificationExpiresAt,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByEmail retrieves a user by email (case-sensitive equality).
func (r *BunRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("email = ?", email).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByID retrieves a user by ID
func (r *BunRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

func (r *BunRepository) GetByVerificationToken(ctx context.Context, token string, now time.Time) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("verification_token = ?", token).
		Where("verification_expires_at > ?", now).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by verification token: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// MarkVerified flips the account to active and clears both verification columns.
func (r *BunRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("status = ?", string(StatusActive)).
		Set("verification_token = NULL").
		Set("verification_expires_at = NULL").
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to mark user as verified: %w", err)
	}

	return requireRowsAffected(result)
}

func (r *BunRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("last_login = ?", at).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return requireRowsAffected(result)
}

func (r *BunRepository) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("reset_password_token = ?", token).
		Set("reset_password_expires_at = ?", expiresAt).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}

	return requireRowsAffected(result)
}

func (r *BunRepository) GetByResetToken(ctx context.Context, token string, now time.Time) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("reset_password_token = ?", token).
		Where("reset_password_expires_at > ?", now).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by reset token: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// UpdatePassword stores a new hash and clears the reset token columns.
func (r *BunRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("reset_password_token = NULL").
		Set("reset_password_expires_at = NULL").
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return requireRowsAffected(result)
}

func (r *BunRepository) UpdateProfile(ctx context.Context, id uuid.UUID, patch ProfileUpdate) (*User, error) {
	q := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("updated_at = NOW()").
		Where("id = ?", id)

	if patch.Name != nil {
		q = q.Set("name = ?", *patch.Name)
	}
	if patch.Phone != nil {
		q = q.Set("phone = ?", *patch.Phone)
	}
	if patch.Address != nil {
		q = q.Set("address = ?", *patch.Address)
	}
	if patch.ImageURL != nil {
		q = q.Set("image_url = ?", *patch.ImageURL)
	}

	result, err := q.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if err := requireRowsAffected(result); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func requireRowsAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:                    dbu.ID,
		Name:                  dbu.Name,
		Email:                 dbu.Email,
		PasswordHash:          dbu.PasswordHash,
		Phone:                 dbu.Phone,
		Address:               dbu.Address,
		Role:                  Role(dbu.Role),
		Status:                Status(dbu.Status),
		ImageURL:              dbu.ImageURL,
		VerificationToken:     dbu.VerificationToken,
		VerificationExpiresAt: dbu.VerificationExpiresAt,
		ResetPasswordToken:    dbu.ResetPasswordToken,
		ResetPasswordExpires:  dbu.ResetPasswordExpires,
		LastLogin:             dbu.LastLogin,
		CreatedAt:             dbu.CreatedAt,
		UpdatedAt:             dbu.UpdatedAt,
	}
}
