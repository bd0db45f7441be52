package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"

	"github.com/wadieregaieg/waadiefr/internal/domain"
	"github.com/wadieregaieg/waadiefr/internal/repository"
	"github.com/wadieregaieg/waadiefr/internal/service"
)

// fakeUserService returns canned results so handler behavior can be
// tested without a database or Redis.
type fakeUserService struct {
	registerErr error
	loginErr    error
	verifyErr   error
	user        *domain.User
}

func (f *fakeUserService) Register(ctx context.Context, input service.RegisterInput) (*domain.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	user := &domain.User{
		ID:          uuid.New(),
		Email:       input.Email,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Role:        domain.RoleRetailer,
		PhoneNumber: input.PhoneNumber,
	}
	return user, nil
}

func (f *fakeUserService) Login(ctx context.Context, email, password string) (string, string, *domain.User, error) {
	if f.loginErr != nil {
		return "", "", nil, f.loginErr
	}
	return "access", "refresh", f.user, nil
}

func (f *fakeUserService) Logout(ctx context.Context, refreshToken string) error { return nil }

func (f *fakeUserService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return "access", nil
}

func (f *fakeUserService) ValidateToken(tokenString string) (*service.Claims, error) {
	return nil, service.ErrInvalidToken
}

func (f *fakeUserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if f.user == nil {
		return nil, repository.ErrUserNotFound
	}
	return f.user, nil
}

func (f *fakeUserService) RequestPhoneOTP(ctx context.Context, phone string) error { return nil }

func (f *fakeUserService) VerifyPhone(ctx context.Context, phone, code string) error {
	return f.verifyErr
}

func (f *fakeUserService) LoginWithOTP(ctx context.Context, phone, code string) (string, string, *domain.User, error) {
	if f.loginErr != nil {
		return "", "", nil, f.loginErr
	}
	return "access", "refresh", f.user, nil
}

func (f *fakeUserService) RequestPasswordReset(ctx context.Context, phone string) error { return nil }

func (f *fakeUserService) ResetPassword(ctx context.Context, phone, code, newPassword string) error {
	return f.verifyErr
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest("POST", "/test", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestProperty_InvalidRegistrationDataIsRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("registration with invalid data returns validation errors", prop.ForAll(
		func(invalidCase int) bool {
			handler := NewUserHandler(&fakeUserService{}, zap.NewNop())

			var reqBody RegisterRequest
			switch invalidCase % 5 {
			case 0:
				reqBody = RegisterRequest{Email: "", Password: "ValidPass123", FirstName: "John", LastName: "Doe"}
			case 1:
				reqBody = RegisterRequest{Email: "not-an-email", Password: "ValidPass123", FirstName: "John", LastName: "Doe"}
			case 2:
				reqBody = RegisterRequest{Email: "user@example.com", Password: "short", FirstName: "John", LastName: "Doe"}
			case 3:
				reqBody = RegisterRequest{Email: "user@example.com", Password: "ValidPass123", FirstName: "", LastName: "Doe"}
			case 4:
				reqBody = RegisterRequest{Email: "user@example.com", Password: "ValidPass123", FirstName: "John", LastName: "Doe", PhoneNumber: "not-a-phone"}
			}

			w := postJSON(t, handler.Register, reqBody)
			return w.Code == http.StatusBadRequest
		},
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	handler := NewUserHandler(&fakeUserService{}, zap.NewNop())

	w := postJSON(t, handler.Register, RegisterRequest{
		Email:     "user@example.com",
		Password:  "ValidPass123",
		FirstName: "John",
		LastName:  "Doe",
		Role:      "admin",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400 for self-assigned admin role", w.Code)
	}
}

func TestRegisterMapsConflicts(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"duplicate email", repository.ErrUserAlreadyExists},
		{"duplicate phone", repository.ErrPhoneAlreadyUsed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewUserHandler(&fakeUserService{registerErr: tt.err}, zap.NewNop())

			w := postJSON(t, handler.Register, RegisterRequest{
				Email:     "user@example.com",
				Password:  "ValidPass123",
				FirstName: "John",
				LastName:  "Doe",
			})
			if w.Code != http.StatusConflict {
				t.Errorf("got %d, want 409", w.Code)
			}
		})
	}
}

func TestLoginMapsInvalidCredentials(t *testing.T) {
	handler := NewUserHandler(&fakeUserService{loginErr: service.ErrInvalidCredentials}, zap.NewNop())

	w := postJSON(t, handler.Login, LoginRequest{Email: "user@example.com", Password: "wrong-password"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want 401", w.Code)
	}
}

func TestLoginReturnsTokenPair(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "user@example.com", Role: domain.RoleRetailer}
	handler := NewUserHandler(&fakeUserService{user: user}, zap.NewNop())

	w := postJSON(t, handler.Login, LoginRequest{Email: "user@example.com", Password: "ValidPass123"})
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", w.Code)
	}

	var resp LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" || resp.User.Email != user.Email {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestVerifyPhoneMapsOTPErrors(t *testing.T) {
	handler := NewUserHandler(&fakeUserService{verifyErr: service.ErrInvalidOTP}, zap.NewNop())

	w := postJSON(t, handler.VerifyPhone, OTPRequest{PhoneNumber: "+21612345678", Code: "123456"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", w.Code)
	}
}

func TestOTPRequestValidatesPhone(t *testing.T) {
	handler := NewUserHandler(&fakeUserService{}, zap.NewNop())

	for _, phone := range []string{"", "abc", "123"} {
		w := postJSON(t, handler.RequestOTP, PhoneRequest{PhoneNumber: phone})
		if w.Code != http.StatusBadRequest {
			t.Errorf("phone %q: got %d, want 400", phone, w.Code)
		}
	}
}
