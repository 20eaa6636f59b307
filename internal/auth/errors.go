package auth

import "errors"

var (
	ErrFieldsRequired     = errors.New("all fields are required")
	ErrInvalidRole        = errors.New("invalid role specified")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidVerification covers wrong AND expired codes so the two
	// are indistinguishable to the caller.
	ErrInvalidVerification = errors.New("invalid or expired verification code")
	ErrInvalidResetToken   = errors.New("invalid or expired reset token")
	ErrPasswordRequired    = errors.New("password is required")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrEmptyUpdate         = errors.New("no fields to update")
)
