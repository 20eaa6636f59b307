package auth

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/freshmarket/freshmarket-api/internal/logging"
	"github.com/freshmarket/freshmarket-api/internal/session"
	"github.com/freshmarket/freshmarket-api/internal/user"
)

// mockUserRepo is a map-backed implementation of user.Repository
type mockUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*user.User)}
}

func (m *mockUserRepo) Create(ctx context.Context, nu user.NewUser) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == nu.Email {
			return nil, user.ErrDuplicateEmail
		}
	}
	token := nu.VerificationToken
	expires := nu.VerificationExpiresAt
	u := &user.User{
		ID:                    uuid.New(),
		Name:                  nu.Name,
		Email:                 nu.Email,
		PasswordHash:          nu.PasswordHash,
		Phone:                 nu.Phone,
		Address:               nu.Address,
		Role:                  nu.Role,
		Status:                user.StatusPending,
		VerificationToken:     &token,
		VerificationExpiresAt: &expires,
		CreatedAt:             time.Now(),
		UpdatedAt:             time.Now(),
	}
	m.users[u.ID] = u
	return copyUser(u), nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return copyUser(u), nil
}

func (m *mockUserRepo) GetByVerificationToken(ctx context.Context, token string, now time.Time) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.VerificationToken != nil && *u.VerificationToken == token &&
			u.VerificationExpiresAt != nil && u.VerificationExpiresAt.After(now) {
			return copyUser(u), nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *mockUserRepo) MarkVerified(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.Status = user.StatusActive
	u.VerificationToken = nil
	u.VerificationExpiresAt = nil
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.LastLogin = &at
	return nil
}

func (m *mockUserRepo) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.ResetPasswordToken = &token
	u.ResetPasswordExpires = &expiresAt
	return nil
}

func (m *mockUserRepo) GetByResetToken(ctx context.Context, token string, now time.Time) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ResetPasswordToken != nil && *u.ResetPasswordToken == token &&
			u.ResetPasswordExpires != nil && u.ResetPasswordExpires.After(now) {
			return copyUser(u), nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetPasswordToken = nil
	u.ResetPasswordExpires = nil
	return nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, patch user.ProfileUpdate) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Phone != nil {
		u.Phone = *patch.Phone
	}
	if patch.Address != nil {
		u.Address = *patch.Address
	}
	if patch.ImageURL != nil {
		u.ImageURL = patch.ImageURL
	}
	return copyUser(u), nil
}

func copyUser(u *user.User) *user.User {
	cp := *u
	return &cp
}

// mockSessionStore is a map-backed implementation of session.Store
type mockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
	counter  int
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]*session.Session)}
}

func (m *mockSessionStore) Create(ctx context.Context, userID uuid.UUID) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	sess := &session.Session{
		ID:        fmt.Sprintf("sess-%d", m.counter),
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	m.sessions[sess.ID] = sess
	return sess, nil
}

func (m *mockSessionStore) Get(ctx context.Context, id string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return sess, nil
}

func (m *mockSessionStore) Destroy(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionStore) DestroyAllForUser(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sess := range m.sessions {
		if sess.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

func (m *mockSessionStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// mockMailer records sends on a channel so tests can wait for the
// async goroutines deterministically.
type mockMailer struct {
	sent chan string
}

func newMockMailer() *mockMailer {
	return &mockMailer{sent: make(chan string, 16)}
}

func (m *mockMailer) SendVerificationEmail(ctx context.Context, toEmail, code string) error {
	m.sent <- "verification:" + toEmail
	return nil
}

func (m *mockMailer) SendWelcomeEmail(ctx context.Context, toEmail, name string) error {
	m.sent <- "welcome:" + toEmail
	return nil
}

func (m *mockMailer) SendPasswordResetEmail(ctx context.Context, toEmail, resetToken string) error {
	m.sent <- "reset:" + toEmail
	return nil
}

func (m *mockMailer) SendResetSuccessEmail(ctx context.Context, toEmail string) error {
	m.sent <- "reset_success:" + toEmail
	return nil
}

func (m *mockMailer) waitFor(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-m.sent:
		assert.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for email %q", want)
	}
}

func newTestService() (*Service, *mockUserRepo, *mockSessionStore, *mockMailer) {
	users := newMockUserRepo()
	sessions := newMockSessionStore()
	mailer := newMockMailer()
	svc := NewService(users, sessions, mailer, logging.NewLogger(true))
	return svc, users, sessions, mailer
}

func validSignup() SignupInput {
	return SignupInput{
		Name:     "Alice Grower",
		Email:    "alice@example.com",
		Password: "secret123",
		Phone:    "555-0100",
		Address:  "1 Orchard Lane",
	}
}

func TestSignup(t *testing.T) {
	t.Run("creates pending user with verification code", func(t *testing.T) {
		svc, _, _, mailer := newTestService()

		u, err := svc.Signup(context.Background(), validSignup())
		require.NoError(t, err)

		assert.Equal(t, user.StatusPending, u.Status)
		assert.Equal(t, user.RoleUser, u.Role)
		require.NotNil(t, u.VerificationToken)
		assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), *u.VerificationToken)
		require.NotNil(t, u.VerificationExpiresAt)
		assert.WithinDuration(t, time.Now().Add(24*time.Hour), *u.VerificationExpiresAt, time.Minute)

		// Password is stored hashed, never verbatim.
		assert.NotEqual(t, "secret123", u.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret123")))

		mailer.waitFor(t, "verification:alice@example.com")
	})

	t.Run("accepts an explicit role", func(t *testing.T) {
		svc, _, _, _ := newTestService()

		in := validSignup()
		in.Role = "farmer"
		u, err := svc.Signup(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, user.RoleFarmer, u.Role)
	})

	t.Run("rejects an unknown role", func(t *testing.T) {
		svc, _, _, _ := newTestService()

		in := validSignup()
		in.Role = "superuser"
		_, err := svc.Signup(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		svc, _, _, _ := newTestService()

		in := validSignup()
		in.Phone = ""
		_, err := svc.Signup(context.Background(), in)
		assert.ErrorIs(t, err, ErrFieldsRequired)
	})

	t.Run("rejects a duplicate email", func(t *testing.T) {
		svc, _, _, mailer := newTestService()

		_, err := svc.Signup(context.Background(), validSignup())
		require.NoError(t, err)
		mailer.waitFor(t, "verification:alice@example.com")

		_, err = svc.Signup(context.Background(), validSignup())
		assert.ErrorIs(t, err, ErrUserExists)
	})
}

func TestVerifyEmail(t *testing.T) {
	t.Run("activates the account and starts a session", func(t *testing.T) {
		svc, users, sessions, mailer := newTestService()

		created, err := svc.Signup(context.Background(), validSignup())
		require.NoError(t, err)
		mailer.waitFor(t, "verification:alice@example.com")

		verified, sess, err := svc.VerifyEmail(context.Background(), *created.VerificationToken)
		require.NoError(t, err)

		assert.Equal(t, user.StatusActive, verified.Status)
		assert.Nil(t, verified.VerificationToken)
		assert.Equal(t, created.ID, sess.UserID)
		assert.Equal(t, 1, sessions.count())

		stored, err := users.GetByID(context.Background(), created.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsVerified())

		mailer.waitFor(t, "welcome:alice@example.com")
	})

	t.Run("rejects a wrong code", func(t *testing.T) {
		svc, _, _, mailer := newTestService()

		_, err := svc.Signup(context.Background(), validSignup())
		require.NoError(t, err)
		mailer.waitFor(t, "verification:alice@example.com")

		_, _, err = svc.VerifyEmail(context.Background(), "000000")
		assert.ErrorIs(t, err, ErrInvalidVerification)
	})

	t.Run("rejects an expired code", func(t *testing.T) {
		svc, users, _, mailer := newTestService()

		created, err := svc.Signup(context.Background(), validSignup())
		require.NoError(t, err)
		mailer.waitFor(t, "verification:alice@example.com")

		// Age the code past its window.
		users.mu.Lock()
		expired := time.Now().Add(-time.Minute)
		users.users[created.ID].VerificationExpiresAt = &expired
		users.mu.Unlock()

		_, _, err = svc.VerifyEmail(context.Background(), *created.VerificationToken)
		assert.ErrorIs(t, err, ErrInvalidVerification)
	})

	t.Run("rejects an empty code", func(t *testing.T) {
		svc, _, _, _ := newTestService()

		_, _, err := svc.VerifyEmail(context.Background(), "")
		assert.ErrorIs(t, err, ErrInvalidVerification)
	})
}

func TestLogin(t *testing.T) {
	signupAndVerify := func(t *testing.T, svc *Service, mailer *mockMailer) *user.User {
		t.Helper()
		created, err := svc.Signup(context.Background(), validSignup())
		require.NoError(t, err)
		mailer.waitFor(t, "verification:alice@example.com")
		verified, _, err := svc.VerifyEmail(context.Background(), *created.VerificationToken)
		require.NoError(t, err)
		mailer.waitFor(t, "welcome:alice@example.com")
		return verified
	}

	t.Run("records the login time and starts a session", func(t *testing.T) {
		svc, users, _, mailer := newTestService()
		created := signupAndVerify(t, svc, mailer)

		loggedIn, sess, err := svc.Login(context.Background(), "alice@example.com", "secret123")
		require.NoError(t, err)

		assert.Equal(t, created.ID, loggedIn.ID)
		assert.Equal(t, created.ID, sess.UserID)
		require.NotNil(t, loggedIn.LastLogin)

		stored, err := users.GetByID(context.Background(), created.ID)
		require.NoError(t, err)
		assert.NotNil(t, stored.LastLogin)
	})

	t.Run("wrong password fails without touching last login", func(t *testing.T) {
		svc, users, sessions, mailer := newTestService()
		created := signupAndVerify(t, svc, mailer)
		before := sessions.count()

		_, _, err := svc.Login(context.Background(), "alice@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		stored, err := users.GetByID(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.LastLogin)
		assert.Equal(t, before, sessions.count())
	})

	t.Run("unknown email fails with the same error", func(t *testing.T) {
		svc, _, _, _ := newTestService()

		_, _, err := svc.Login(context.Background(), "nobody@example.com", "secret123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("pending accounts can log in but stay gated", func(t *testing.T) {
		svc, _, _, mailer := newTestService()

		_, err := svc.Signup(context.Background(), validSignup())
		require.NoError(t, err)
		mailer.waitFor(t, "verification:alice@example.com")

		loggedIn, _, err := svc.Login(context.Background(), "alice@example.com", "secret123")
		require.NoError(t, err)
		assert.False(t, loggedIn.IsVerified())
	})
}

func TestLogout(t *testing.T) {
	svc, _, sessions, mailer := newTestService()

	created, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)
	mailer.waitFor(t, "verification:alice@example.com")

	_, sess, err := svc.VerifyEmail(context.Background(), *created.VerificationToken)
	require.NoError(t, err)
	mailer.waitFor(t, "welcome:alice@example.com")

	require.NoError(t, svc.Logout(context.Background(), sess.ID))
	assert.Equal(t, 0, sessions.count())
}

func TestForgotPassword(t *testing.T) {
	t.Run("stores a reset token and sends the link", func(t *testing.T) {
		svc, users, _, mailer := newTestService()

		created, err := svc.Signup(context.Background(), validSignup())
		require.NoError(t, err)
		mailer.waitFor(t, "verification:alice@example.com")

		require.NoError(t, svc.ForgotPassword(context.Background(), "alice@example.com"))

		stored, err := users.GetByID(context.Background(), created.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.ResetPasswordToken)
		assert.Len(t, *stored.ResetPasswordToken, 40)
		require.NotNil(t, stored.ResetPasswordExpires)
		assert.WithinDuration(t, time.Now().Add(time.Hour), *stored.ResetPasswordExpires, time.Minute)

		mailer.waitFor(t, "reset:alice@example.com")
	})

	t.Run("unknown email fails", func(t *testing.T) {
		svc, _, _, _ := newTestService()

		err := svc.ForgotPassword(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestResetPassword(t *testing.T) {
	setup := func(t *testing.T) (*Service, *mockUserRepo, *mockSessionStore, *mockMailer, *user.User) {
		t.Helper()
		svc, users, sessions, mailer := newTestService()

		created, err := svc.Signup(context.Background(), validSignup())
		require.NoError(t, err)
		mailer.waitFor(t, "verification:alice@example.com")

		_, _, err = svc.VerifyEmail(context.Background(), *created.VerificationToken)
		require.NoError(t, err)
		mailer.waitFor(t, "welcome:alice@example.com")

		require.NoError(t, svc.ForgotPassword(context.Background(), "alice@example.com"))
		mailer.waitFor(t, "reset:alice@example.com")

		return svc, users, sessions, mailer, created
	}

	t.Run("stores the new password and drops all sessions", func(t *testing.T) {
		svc, users, sessions, mailer, created := setup(t)

		stored, err := users.GetByID(context.Background(), created.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.ResetPasswordToken)

		err = svc.ResetPassword(context.Background(), *stored.ResetPasswordToken, "newsecret")
		require.NoError(t, err)
		mailer.waitFor(t, "reset_success:alice@example.com")

		// The reset logs out every device.
		assert.Equal(t, 0, sessions.count())

		after, err := users.GetByID(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Nil(t, after.ResetPasswordToken)
		assert.Nil(t, after.ResetPasswordExpires)

		// Old credentials are gone, the new ones work.
		_, _, err = svc.Login(context.Background(), "alice@example.com", "secret123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		_, _, err = svc.Login(context.Background(), "alice@example.com", "newsecret")
		assert.NoError(t, err)
	})

	t.Run("a consumed token cannot be replayed", func(t *testing.T) {
		svc, users, _, mailer, created := setup(t)

		stored, err := users.GetByID(context.Background(), created.ID)
		require.NoError(t, err)
		resetToken := *stored.ResetPasswordToken

		require.NoError(t, svc.ResetPassword(context.Background(), resetToken, "newsecret"))
		mailer.waitFor(t, "reset_success:alice@example.com")

		err = svc.ResetPassword(context.Background(), resetToken, "another")
		assert.ErrorIs(t, err, ErrInvalidResetToken)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		svc, users, _, _, created := setup(t)

		users.mu.Lock()
		resetToken := *users.users[created.ID].ResetPasswordToken
		expired := time.Now().Add(-time.Minute)
		users.users[created.ID].ResetPasswordExpires = &expired
		users.mu.Unlock()

		err := svc.ResetPassword(context.Background(), resetToken, "newsecret")
		assert.ErrorIs(t, err, ErrInvalidResetToken)
	})

	t.Run("rejects an empty password", func(t *testing.T) {
		svc, _, _, _, _ := setup(t)

		err := svc.ResetPassword(context.Background(), "whatever", "")
		assert.ErrorIs(t, err, ErrPasswordRequired)
	})
}

func TestCheckAuth(t *testing.T) {
	svc, _, _, mailer := newTestService()

	created, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)
	mailer.waitFor(t, "verification:alice@example.com")

	_, sess, err := svc.VerifyEmail(context.Background(), *created.VerificationToken)
	require.NoError(t, err)
	mailer.waitFor(t, "welcome:alice@example.com")

	u, err := svc.CheckAuth(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	_, err = svc.CheckAuth(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestUpdateProfile(t *testing.T) {
	svc, _, _, mailer := newTestService()

	created, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)
	mailer.waitFor(t, "verification:alice@example.com")

	name := "Alice G."
	updated, err := svc.UpdateProfile(context.Background(), created.ID, user.ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alice G.", updated.Name)
	assert.Equal(t, created.Phone, updated.Phone)

	_, err = svc.UpdateProfile(context.Background(), created.ID, user.ProfileUpdate{})
	assert.ErrorIs(t, err, ErrEmptyUpdate)
}
