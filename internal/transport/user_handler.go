package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/wadieregaieg/waadiefr/internal/domain"
	"github.com/wadieregaieg/waadiefr/internal/middleware"
	"github.com/wadieregaieg/waadiefr/internal/repository"
	"github.com/wadieregaieg/waadiefr/internal/service"
)

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,phone"`
	Role        string `json:"role" validate:"omitempty,oneof=retailer supplier"`
}

// LoginRequest is the email/password login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// PhoneRequest carries just a phone number.
type PhoneRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,phone"`
}

// OTPRequest carries a phone number and the code sent to it.
type OTPRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,phone"`
	Code        string `json:"code" validate:"required,min=4,max=8"`
}

// PasswordResetRequest confirms a reset code and sets a new password.
type PasswordResetRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,phone"`
	Code        string `json:"code" validate:"required,min=4,max=8"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// LoginResponse returns a token pair and the profile.
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         UserProfile `json:"user"`
}

// RefreshResponse returns a fresh access token.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// UserProfile is the public view of an account.
type UserProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Role          string `json:"role"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	PhoneVerified bool   `json:"phone_verified"`
}

func toProfile(user *domain.User) UserProfile {
	return UserProfile{
		ID:            user.ID.String(),
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Role:          string(user.Role),
		PhoneNumber:   user.PhoneNumber,
		PhoneVerified: user.PhoneVerified,
	}
}

// UserHandler handles HTTP requests for accounts and authentication.
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: logger}
}

// RegisterRoutes registers all user routes. otpLimiter throttles the
// endpoints that trigger an SMS.
func (h *UserHandler) RegisterRoutes(r chi.Router, auth, otpLimiter func(http.Handler) http.Handler) {
	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.RefreshToken)
		r.Post("/otp/login", h.LoginWithOTP)
		r.Post("/password-reset/confirm", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(otpLimiter)
			r.Post("/otp/request", h.RequestOTP)
			r.Post("/password-reset/request", h.RequestPasswordReset)
		})

		r.Post("/otp/verify", h.VerifyPhone)

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Post("/logout", h.Logout)
			r.Get("/profile", h.GetProfile)
		})
	})
}

// Register handles account creation.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	user, err := h.userService.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Role:        domain.Role(req.Role),
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserAlreadyExists):
			middleware.RespondWithError(w, http.StatusConflict, "user with this email already exists")
		case errors.Is(err, repository.ErrPhoneAlreadyUsed):
			middleware.RespondWithError(w, http.StatusConflict, "phone number already in use")
		default:
			h.logger.Error("registration failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to register user")
		}
		return
	}

	h.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, toProfile(user))
}

// Login handles email/password authentication.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	accessToken, refreshToken, user, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			middleware.RespondWithError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         toProfile(user),
	})
}

// Logout revokes the presented refresh token.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.userService.Logout(r.Context(), req.RefreshToken); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to logout")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "logged out successfully"})
}

// RefreshToken exchanges a refresh token for a new access token.
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	newAccessToken, err := h.userService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			middleware.RespondWithError(w, http.StatusUnauthorized, "invalid refresh token")
		case errors.Is(err, service.ErrTokenExpired):
			middleware.RespondWithError(w, http.StatusUnauthorized, "refresh token expired")
		default:
			h.logger.Error("token refresh failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to refresh token")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, RefreshResponse{AccessToken: newAccessToken})
}

// RequestOTP sends a verification code to a registered phone.
func (h *UserHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req PhoneRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	if err := h.userService.RequestPhoneOTP(r.Context(), req.PhoneNumber); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "no account with this phone number")
			return
		}
		h.logger.Error("otp request failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to send verification code")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "verification code sent"})
}

// VerifyPhone confirms a verification code.
func (h *UserHandler) VerifyPhone(w http.ResponseWriter, r *http.Request) {
	var req OTPRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	if err := h.userService.VerifyPhone(r.Context(), req.PhoneNumber, req.Code); err != nil {
		h.respondOTPError(w, err, "failed to verify phone")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "phone verified"})
}

// LoginWithOTP authenticates with a phone number and code.
func (h *UserHandler) LoginWithOTP(w http.ResponseWriter, r *http.Request) {
	var req OTPRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	accessToken, refreshToken, user, err := h.userService.LoginWithOTP(r.Context(), req.PhoneNumber, req.Code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrInvalidOTP) {
			middleware.RespondWithError(w, http.StatusUnauthorized, "invalid phone number or code")
			return
		}
		h.logger.Error("otp login failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         toProfile(user),
	})
}

// RequestPasswordReset sends a reset code to a verified phone.
func (h *UserHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PhoneRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	if err := h.userService.RequestPasswordReset(r.Context(), req.PhoneNumber); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "no account with this phone number")
		case errors.Is(err, service.ErrPhoneNotVerified):
			middleware.RespondWithError(w, http.StatusForbidden, "phone number is not verified")
		default:
			h.logger.Error("password reset request failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to send reset code")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "reset code sent"})
}

// ResetPassword sets a new password after code verification.
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	if err := h.userService.ResetPassword(r.Context(), req.PhoneNumber, req.Code, req.NewPassword); err != nil {
		h.respondOTPError(w, err, "failed to reset password")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// GetProfile returns the authenticated user's profile.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("profile lookup failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProfile(user))
}

func (h *UserHandler) respondOTPError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "no account with this phone number")
	case errors.Is(err, service.ErrInvalidOTP):
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid or expired verification code")
	default:
		h.logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}
