package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/wadieregaieg/waadiefr/internal/config"
	"github.com/wadieregaieg/waadiefr/internal/domain"
	"github.com/wadieregaieg/waadiefr/internal/repository"
)

// In-memory repositories for service tests.

type mockUserRepository struct {
	users map[uuid.UUID]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[uuid.UUID]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
		if user.PhoneNumber != "" && u.PhoneNumber == user.PhoneNumber {
			return repository.ErrPhoneAlreadyUsed
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	for _, u := range m.users {
		if u.PhoneNumber == phone {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) MarkPhoneVerified(ctx context.Context, id uuid.UUID) error {
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PhoneVerified = true
	return nil
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{tokens: make(map[string]*domain.RefreshToken)}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	t, ok := m.tokens[token]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if t.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return t, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	t, ok := m.tokens[token]
	if !ok {
		return repository.ErrRefreshTokenNotFound
	}
	t.Revoked = true
	return nil
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

// recordingSMSSender captures sent messages instead of delivering them.
type recordingSMSSender struct {
	messages map[string][]string
}

func newRecordingSMSSender() *recordingSMSSender {
	return &recordingSMSSender{messages: make(map[string][]string)}
}

func (s *recordingSMSSender) Send(ctx context.Context, phone, message string) error {
	s.messages[phone] = append(s.messages[phone], message)
	return nil
}

type testEnv struct {
	svc      UserService
	users    *mockUserRepository
	tokens   *mockRefreshTokenRepository
	otpStore repository.OTPStore
	sms      *recordingSMSSender
	redis    *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	users := newMockUserRepository()
	tokens := newMockRefreshTokenRepository()
	otpStore := repository.NewOTPStore(client, 6, 10*time.Minute)
	sms := newRecordingSMSSender()

	svc := NewUserService(users, tokens, otpStore, sms, config.JWTConfig{
		Secret:        "test-secret",
		AccessExpiry:  15,
		RefreshExpiry: 7,
	})

	return &testEnv{svc: svc, users: users, tokens: tokens, otpStore: otpStore, sms: sms, redis: mr}
}

func registerUser(t *testing.T, env *testEnv, email, password, phone string) *domain.User {
	t.Helper()
	user, err := env.svc.Register(context.Background(), RegisterInput{
		Email:       email,
		Password:    password,
		FirstName:   "Test",
		LastName:    "User",
		PhoneNumber: phone,
	})
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}
	return user
}

// extractCode pulls the numeric code out of the last SMS to a phone.
func extractCode(t *testing.T, env *testEnv, phone string) string {
	t.Helper()
	msgs := env.sms.messages[phone]
	if len(msgs) == 0 {
		t.Fatalf("no sms sent to %s", phone)
	}
	last := msgs[len(msgs)-1]
	return last[len(last)-6:]
}

func TestProperty_RegistrationCreatesHashedPasswords(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("passwords are hashed with bcrypt and not stored as plaintext", prop.ForAll(
		func(password string) bool {
			env := newTestEnv(t)
			user, err := env.svc.Register(context.Background(), RegisterInput{
				Email:     "user@example.com",
				Password:  password,
				FirstName: "Test",
				LastName:  "User",
			})
			if err != nil {
				return false
			}
			if user.PasswordHash == password {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) >= 8 && len(s) <= 40 }),
	))

	properties.TestingRun(t)
}

func TestRegisterDefaultsToRetailer(t *testing.T) {
	env := newTestEnv(t)
	user := registerUser(t, env, "retailer@example.com", "password123", "")
	if user.Role != domain.RoleRetailer {
		t.Errorf("default role = %s, want %s", user.Role, domain.RoleRetailer)
	}
	if user.PhoneVerified {
		t.Error("phone should start unverified")
	}
}

func TestLoginIssuesValidTokenPair(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "login@example.com", "password123", "")

	accessToken, refreshToken, user, err := env.svc.Login(context.Background(), "login@example.com", "password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user == nil || accessToken == "" || refreshToken == "" {
		t.Fatal("expected tokens and user on successful login")
	}

	claims, err := env.svc.ValidateToken(accessToken)
	if err != nil {
		t.Fatalf("access token did not validate: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != user.Role {
		t.Error("claims do not match the authenticated user")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "wrongpw@example.com", "password123", "")

	if _, _, _, err := env.svc.Login(context.Background(), "wrongpw@example.com", "nope-nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, _, err := env.svc.Login(context.Background(), "unknown@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "refresh@example.com", "password123", "")

	_, refreshToken, user, err := env.svc.Login(context.Background(), "refresh@example.com", "password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	newAccess, err := env.svc.RefreshToken(context.Background(), refreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	claims, err := env.svc.ValidateToken(newAccess)
	if err != nil {
		t.Fatalf("refreshed token did not validate: %v", err)
	}
	if claims.UserID != user.ID {
		t.Error("refreshed token carries the wrong user")
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "logout@example.com", "password123", "")

	_, refreshToken, _, err := env.svc.Login(context.Background(), "logout@example.com", "password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := env.svc.Logout(context.Background(), refreshToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := env.svc.RefreshToken(context.Background(), refreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken after logout, got %v", err)
	}

	// Logging out twice is not an error.
	if err := env.svc.Logout(context.Background(), refreshToken); err != nil {
		t.Errorf("second logout should be a no-op, got %v", err)
	}
}

func TestPhoneVerificationFlow(t *testing.T) {
	env := newTestEnv(t)
	user := registerUser(t, env, "phone@example.com", "password123", "+21612345678")

	if err := env.svc.RequestPhoneOTP(context.Background(), "+21612345678"); err != nil {
		t.Fatalf("otp request failed: %v", err)
	}
	code := extractCode(t, env, "+21612345678")

	if err := env.svc.VerifyPhone(context.Background(), "+21612345678", code); err != nil {
		t.Fatalf("verification failed: %v", err)
	}
	if !env.users.users[user.ID].PhoneVerified {
		t.Error("phone should be verified after confirming the code")
	}

	// Codes are single use.
	if err := env.svc.VerifyPhone(context.Background(), "+21612345678", code); !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("expected ErrInvalidOTP on reuse, got %v", err)
	}
}

func TestVerifyPhoneRejectsWrongCode(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "wrongotp@example.com", "password123", "+21698765432")

	if err := env.svc.RequestPhoneOTP(context.Background(), "+21698765432"); err != nil {
		t.Fatalf("otp request failed: %v", err)
	}

	if err := env.svc.VerifyPhone(context.Background(), "+21698765432", "000000"); !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("expected ErrInvalidOTP, got %v", err)
	}

	// The right code still works after a failed attempt.
	code := extractCode(t, env, "+21698765432")
	if err := env.svc.VerifyPhone(context.Background(), "+21698765432", code); err != nil {
		t.Errorf("correct code rejected after wrong attempt: %v", err)
	}
}

func TestOTPExpires(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "expired@example.com", "password123", "+21655555555")

	if err := env.svc.RequestPhoneOTP(context.Background(), "+21655555555"); err != nil {
		t.Fatalf("otp request failed: %v", err)
	}
	code := extractCode(t, env, "+21655555555")

	env.redis.FastForward(11 * time.Minute)

	if err := env.svc.VerifyPhone(context.Background(), "+21655555555", code); !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("expected ErrInvalidOTP after expiry, got %v", err)
	}
}

func TestLoginWithOTP(t *testing.T) {
	env := newTestEnv(t)
	user := registerUser(t, env, "otplogin@example.com", "password123", "+21611111111")

	if err := env.svc.RequestPhoneOTP(context.Background(), "+21611111111"); err != nil {
		t.Fatalf("otp request failed: %v", err)
	}
	code := extractCode(t, env, "+21611111111")

	accessToken, refreshToken, got, err := env.svc.LoginWithOTP(context.Background(), "+21611111111", code)
	if err != nil {
		t.Fatalf("otp login failed: %v", err)
	}
	if got.ID != user.ID || accessToken == "" || refreshToken == "" {
		t.Fatal("expected tokens for the registered user")
	}
	if !got.PhoneVerified {
		t.Error("successful otp login should mark the phone verified")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	user := registerUser(t, env, "reset@example.com", "oldpassword1", "+21622222222")

	// Reset requires a verified phone.
	if err := env.svc.RequestPasswordReset(context.Background(), "+21622222222"); !errors.Is(err, ErrPhoneNotVerified) {
		t.Fatalf("expected ErrPhoneNotVerified, got %v", err)
	}
	env.users.users[user.ID].PhoneVerified = true

	// Keep a session alive to check it gets revoked.
	_, refreshToken, _, err := env.svc.Login(context.Background(), "reset@example.com", "oldpassword1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := env.svc.RequestPasswordReset(context.Background(), "+21622222222"); err != nil {
		t.Fatalf("reset request failed: %v", err)
	}
	code := extractCode(t, env, "+21622222222")

	if err := env.svc.ResetPassword(context.Background(), "+21622222222", code, "newpassword1"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	if _, _, _, err := env.svc.Login(context.Background(), "reset@example.com", "oldpassword1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Error("old password should no longer work")
	}
	if _, _, _, err := env.svc.Login(context.Background(), "reset@example.com", "newpassword1"); err != nil {
		t.Errorf("new password should work: %v", err)
	}
	if _, err := env.svc.RefreshToken(context.Background(), refreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Error("outstanding refresh tokens should be revoked by a reset")
	}
}
