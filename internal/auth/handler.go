package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/freshmarket/freshmarket-api/internal/httputil"
	"github.com/freshmarket/freshmarket-api/internal/logging"
	"github.com/freshmarket/freshmarket-api/internal/ratelimit"
	"github.com/freshmarket/freshmarket-api/internal/user"
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service     *Service
	cookies     CookieWriter
	rateLimiter *ratelimit.Limiter
	logger      *logging.Logger
}

// CookieWriter is the slice of the session cookie manager the handlers
// need; narrowed to an interface so handler tests can run without a
// real secret.
type CookieWriter interface {
	Write(w http.ResponseWriter, sessionID string)
	Clear(w http.ResponseWriter)
	Read(r *http.Request) (string, error)
}

func NewHandler(service *Service, cookies CookieWriter, rateLimiter *ratelimit.Limiter, logger *logging.Logger) *Handler {
	return &Handler{
		service:     service,
		cookies:     cookies,
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

// SignupRequest represents the signup request body
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Role     string `json:"role,omitempty"`
}

// VerifyEmailRequest represents the email verification request
type VerifyEmailRequest struct {
	Code string `json:"code"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest represents the password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	Password string `json:"password"`
}

// UpdateProfileRequest represents the profile patch body
type UpdateProfileRequest struct {
	Name     *string `json:"name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Address  *string `json:"address,omitempty"`
	ImageURL *string `json:"imageUrl,omitempty"`
}

// UserResponse is the `{success, message, user}` envelope. The user
// model strips password and token material via its JSON tags.
type UserResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	User    *user.User `json:"user"`
}

// Signup handles user registration
// @Summary      Register a new user
// @Description  Create a pending account and send a verification code by email.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignupRequest true "Signup fields"
// @Success      201 {object} UserResponse
// @Failure      400 {object} httputil.ErrorResponse "Missing fields, bad role, or duplicate email"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /api/users/signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ip := getClientIP(r)
	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, "signup")
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded for signup", "ip", ip)
		httputil.RespondError(w, "Too many requests, please try again later", http.StatusTooManyRequests)
		return
	}

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid signup request body", "error", err.Error())
		httputil.RespondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, "signup"); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	newUser, err := h.service.Signup(r.Context(), SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
		Role:     req.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrFieldsRequired):
			logger.Warn("signup failed: missing fields")
			httputil.RespondError(w, "All fields are required", http.StatusBadRequest)
		case errors.Is(err, ErrInvalidRole):
			logger.Warn("signup failed: invalid role", "role", req.Role)
			httputil.RespondError(w, "Invalid role specified", http.StatusBadRequest)
		case errors.Is(err, ErrUserExists):
			logger.Warn("signup failed: email already registered")
			httputil.RespondError(w, "User already exists", http.StatusBadRequest)
		default:
			logger.Error("signup failed: internal error", "error", err.Error())
			httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user registered", "user_id", newUser.ID)

	httputil.RespondJSON(w, UserResponse{
		Success: true,
		Message: "User registered successfully. Please verify your email.",
		User:    newUser,
	}, http.StatusCreated)
}

// VerifyEmail handles email verification
// @Summary      Verify email address
// @Description  Consume the emailed code, activate the account and start a session.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body VerifyEmailRequest true "Verification code"
// @Success      200 {object} UserResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid or expired verification code"
// @Router       /api/users/verify-email [post]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid verify email request body", "error", err.Error())
		httputil.RespondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	verified, sess, err := h.service.VerifyEmail(r.Context(), req.Code)
	if err != nil {
		if errors.Is(err, ErrInvalidVerification) {
			logger.Warn("email verification failed: invalid or expired code")
			httputil.RespondError(w, "Invalid or expired verification code", http.StatusBadRequest)
			return
		}
		logger.Error("email verification failed: internal error", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Info("email verified", "user_id", verified.ID)

	h.cookies.Write(w, sess.ID)
	httputil.RespondJSON(w, UserResponse{
		Success: true,
		Message: "Email verified successfully",
		User:    verified,
	}, http.StatusOK)
}

// Login handles user login
// @Summary      User login
// @Description  Verify credentials and start a session delivered via the sid cookie.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} UserResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid credentials"
// @Router       /api/users/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ip := getClientIP(r)
	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, "login")
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded for login", "ip", ip)
		httputil.RespondError(w, "Too many requests, please try again later", http.StatusTooManyRequests)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		httputil.RespondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, "login"); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	loggedIn, sess, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("login failed: invalid credentials")
			httputil.RespondError(w, "Invalid credentials", http.StatusBadRequest)
			return
		}
		logger.Error("login failed: internal error", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Info("user logged in", "user_id", loggedIn.ID)

	h.cookies.Write(w, sess.ID)
	httputil.RespondJSON(w, UserResponse{
		Success: true,
		Message: "Logged in successfully",
		User:    loggedIn,
	}, http.StatusOK)
}

// Logout handles user logout
// @Summary      User logout
// @Description  Destroy the current session and clear the cookie.
// @Tags         auth
// @Produce      json
// @Success      200 {object} httputil.MessageResponse
// @Failure      500 {object} httputil.ErrorResponse "Logout failed"
// @Router       /api/users/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	sessionID, err := h.cookies.Read(r)
	if err == nil && sessionID != "" {
		if err := h.service.Logout(r.Context(), sessionID); err != nil {
			logger.Error("logout failed", "error", err.Error())
			httputil.RespondError(w, "Logout failed", http.StatusInternalServerError)
			return
		}
	}

	h.cookies.Clear(w)

	logger.Info("user logged out")
	httputil.RespondMessage(w, "Logged out successfully", http.StatusOK)
}

// ForgotPassword handles password reset requests
// @Summary      Request password reset
// @Description  Store a reset token on the account and email the reset link.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Email address"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Unknown email"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /api/users/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid forgot password request body", "error", err.Error())
		httputil.RespondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ip := getClientIP(r)
	exceeded, err := h.rateLimiter.CheckIPRateLimit(r.Context(), ip)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip)
		httputil.RespondError(w, "Too many requests, please try again later", http.StatusTooManyRequests)
		return
	}

	onCooldown, err := h.rateLimiter.CheckEmailCooldown(r.Context(), req.Email)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err.Error())
	} else if onCooldown {
		logger.Warn("email on cooldown", "email", req.Email)
		httputil.RespondError(w, "Please wait before requesting another reset", http.StatusTooManyRequests)
		return
	}

	if err := h.rateLimiter.RecordIPRequest(r.Context(), ip); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}
	if err := h.rateLimiter.SetEmailCooldown(r.Context(), req.Email); err != nil {
		logger.Error("failed to set email cooldown", "error", err.Error())
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("forgot password failed: unknown email")
			httputil.RespondError(w, "Invalid credentials", http.StatusBadRequest)
			return
		}
		logger.Error("forgot password failed: internal error", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	httputil.RespondMessage(w, "Password reset link sent to your email", http.StatusOK)
}

// ResetPassword handles password reset with token
// @Summary      Reset password
// @Description  Consume the URL token and store the new password. Drops all sessions.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        token path string true "Reset token"
// @Param        request body ResetPasswordRequest true "New password"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid or expired reset token"
// @Router       /api/users/reset-password/{token} [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	resetToken := chi.URLParam(r, "token")

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid reset password request body", "error", err.Error())
		httputil.RespondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.ResetPassword(r.Context(), resetToken, req.Password); err != nil {
		switch {
		case errors.Is(err, ErrInvalidResetToken):
			logger.Warn("password reset failed: invalid or expired token")
			httputil.RespondError(w, "Invalid or expired reset token", http.StatusBadRequest)
		case errors.Is(err, ErrPasswordRequired):
			logger.Warn("password reset failed: missing password")
			httputil.RespondError(w, "Password is required", http.StatusBadRequest)
		default:
			logger.Error("password reset failed: internal error", "error", err.Error())
			httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	logger.Info("password reset completed")
	httputil.RespondMessage(w, "Password reset successful.", http.StatusOK)
}

// CheckAuth resolves the current session to its user
// @Summary      Who am I
// @Description  Resolve the session cookie to the authenticated user.
// @Tags         auth
// @Produce      json
// @Success      200 {object} UserResponse
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Router       /api/users/check-auth [get]
func (h *Handler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	sessionID, err := h.cookies.Read(r)
	if err != nil {
		httputil.RespondError(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	current, err := h.service.CheckAuth(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotAuthenticated):
			httputil.RespondError(w, "Not authenticated", http.StatusUnauthorized)
		case errors.Is(err, user.ErrNotFound):
			httputil.RespondError(w, "User not found", http.StatusNotFound)
		default:
			logger.Error("check auth failed: internal error", "error", err.Error())
			httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	httputil.RespondJSON(w, UserResponse{Success: true, User: current}, http.StatusOK)
}

// UpdateProfile applies a partial profile update for the acting user
// @Summary      Update profile
// @Description  Patch name, phone, address or image URL of the authenticated user.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body UpdateProfileRequest true "Fields to update"
// @Success      200 {object} UserResponse
// @Failure      400 {object} httputil.ErrorResponse "Empty patch"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /api/users/update-profile [patch]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	acting, ok := GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "Not authorized - no session", http.StatusUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid update profile request body", "error", err.Error())
		httputil.RespondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), acting.ID, user.ProfileUpdate{
		Name:     req.Name,
		Phone:    req.Phone,
		Address:  req.Address,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyUpdate):
			logger.Warn("update profile failed: empty patch")
			httputil.RespondError(w, "No fields to update", http.StatusBadRequest)
		case errors.Is(err, user.ErrNotFound):
			httputil.RespondError(w, "User not found", http.StatusNotFound)
		default:
			logger.Error("update profile failed: internal error", "error", err.Error())
			httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	logger.Info("profile updated", "user_id", updated.ID)
	httputil.RespondJSON(w, UserResponse{
		Success: true,
		Message: "Profile updated successfully",
		User:    updated,
	}, http.StatusOK)
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	ip := r.RemoteAddr
	// RemoteAddr format is "IP:port", extract just the IP
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
