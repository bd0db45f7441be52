package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wadieregaieg/waadiefr/internal/config"
	"github.com/wadieregaieg/waadiefr/internal/domain"
	"github.com/wadieregaieg/waadiefr/internal/notifier"
	"github.com/wadieregaieg/waadiefr/internal/repository"
)

// BcryptCost is the cost factor for bcrypt password hashing.
const BcryptCost = 10

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrInvalidOTP         = errors.New("invalid or expired verification code")
	ErrPhoneNotVerified   = errors.New("phone number is not verified")
)

// UserService defines the interface for account and authentication logic.
type UserService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, user *domain.User, err error)
	Logout(ctx context.Context, refreshToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (newAccessToken string, err error)
	ValidateToken(tokenString string) (*Claims, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	RequestPhoneOTP(ctx context.Context, phone string) error
	VerifyPhone(ctx context.Context, phone, code string) error
	LoginWithOTP(ctx context.Context, phone, code string) (accessToken, refreshToken string, user *domain.User, err error)
	RequestPasswordReset(ctx context.Context, phone string) error
	ResetPassword(ctx context.Context, phone, code, newPassword string) error
}

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
	Role        domain.Role
}

// Claims represents the JWT claims carried by access tokens.
type Claims struct {
	UserID uuid.UUID   `json:"user_id"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type userService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	otpStore         repository.OTPStore
	sms              notifier.SMSSender
	jwtCfg           config.JWTConfig
}

// NewUserService creates a new instance of UserService.
func NewUserService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	otpStore repository.OTPStore,
	sms notifier.SMSSender,
	jwtCfg config.JWTConfig,
) UserService {
	return &userService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		otpStore:         otpStore,
		sms:              sms,
		jwtCfg:           jwtCfg,
	}
}

// Register creates a new account with a hashed password. The phone
// number starts unverified until confirmed via OTP.
func (s *userService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	role := input.Role
	if role == "" {
		role = domain.RoleRetailer
	}
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", input.Role)
	}

	hashedPassword, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        input.Email,
		PasswordHash: hashedPassword,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         role,
		PhoneNumber:  input.PhoneNumber,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates by email and password and returns a token pair.
func (s *userService) Login(ctx context.Context, email, password string) (string, string, *domain.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", "", nil, ErrInvalidCredentials
		}
		return "", "", nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user)
}

// Logout invalidates the refresh token. A token that no longer exists
// counts as already logged out.
func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refreshTokenRepo.Revoke(ctx, refreshToken); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil
		}
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RefreshToken exchanges a valid refresh token for a new access token.
func (s *userService) RefreshToken(ctx context.Context, refreshTokenString string) (string, error) {
	refreshToken, err := s.refreshTokenRepo.FindByToken(ctx, refreshTokenString)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) || errors.Is(err, repository.ErrRefreshTokenRevoked) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("failed to find refresh token: %w", err)
	}

	if time.Now().After(refreshToken.ExpiresAt) {
		return "", ErrTokenExpired
	}

	user, err := s.userRepo.FindByID(ctx, refreshToken.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}

	return s.generateAccessToken(user)
}

// ValidateToken parses and validates a JWT access token.
func (s *userService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtCfg.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GetUserByID retrieves a user by ID.
func (s *userService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

// RequestPhoneOTP sends a verification code to a registered phone number.
func (s *userService) RequestPhoneOTP(ctx context.Context, phone string) error {
	if _, err := s.userRepo.FindByPhone(ctx, phone); err != nil {
		return err
	}

	code, err := s.otpStore.Issue(ctx, phone)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("Your Freshk verification code is %s", code)
	if err := s.sms.Send(ctx, phone, message); err != nil {
		return fmt.Errorf("failed to send verification code: %w", err)
	}
	return nil
}

// VerifyPhone confirms a pending verification code and marks the phone
// number as verified.
func (s *userService) VerifyPhone(ctx context.Context, phone, code string) error {
	user, err := s.userRepo.FindByPhone(ctx, phone)
	if err != nil {
		return err
	}

	if err := s.verifyOTP(ctx, phone, code); err != nil {
		return err
	}

	return s.userRepo.MarkPhoneVerified(ctx, user.ID)
}

// LoginWithOTP authenticates by phone number and verification code.
// The phone is marked verified as a side effect of a successful login.
func (s *userService) LoginWithOTP(ctx context.Context, phone, code string) (string, string, *domain.User, error) {
	user, err := s.userRepo.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", "", nil, ErrInvalidCredentials
		}
		return "", "", nil, err
	}

	if err := s.verifyOTP(ctx, phone, code); err != nil {
		return "", "", nil, err
	}

	if !user.PhoneVerified {
		if err := s.userRepo.MarkPhoneVerified(ctx, user.ID); err != nil {
			return "", "", nil, err
		}
		user.PhoneVerified = true
	}

	return s.issueTokens(ctx, user)
}

// RequestPasswordReset sends a reset code to a verified phone number.
func (s *userService) RequestPasswordReset(ctx context.Context, phone string) error {
	user, err := s.userRepo.FindByPhone(ctx, phone)
	if err != nil {
		return err
	}
	if !user.PhoneVerified {
		return ErrPhoneNotVerified
	}

	code, err := s.otpStore.Issue(ctx, phone)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("Your Freshk password reset code is %s", code)
	if err := s.sms.Send(ctx, phone, message); err != nil {
		return fmt.Errorf("failed to send reset code: %w", err)
	}
	return nil
}

// ResetPassword sets a new password after verifying the reset code and
// revokes every outstanding refresh token for the account.
func (s *userService) ResetPassword(ctx context.Context, phone, code, newPassword string) error {
	user, err := s.userRepo.FindByPhone(ctx, phone)
	if err != nil {
		return err
	}

	if err := s.verifyOTP(ctx, phone, code); err != nil {
		return err
	}

	hashedPassword, err := s.hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		return err
	}
	return s.refreshTokenRepo.RevokeAllForUser(ctx, user.ID)
}

func (s *userService) verifyOTP(ctx context.Context, phone, code string) error {
	if err := s.otpStore.Verify(ctx, phone, code); err != nil {
		if errors.Is(err, repository.ErrOTPNotFound) || errors.Is(err, repository.ErrOTPMismatch) {
			return ErrInvalidOTP
		}
		return err
	}
	return nil
}

func (s *userService) issueTokens(ctx context.Context, user *domain.User) (string, string, *domain.User, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.generateRefreshToken(ctx, user)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refreshToken, user, nil
}

func (s *userService) hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// generateAccessToken signs a JWT carrying the user ID and role.
func (s *userService) generateAccessToken(user *domain.User) (string, error) {
	expirationTime := time.Now().Add(time.Duration(s.jwtCfg.AccessExpiry) * time.Minute)
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtCfg.Secret))
}

// generateRefreshToken stores and returns a new opaque refresh token.
func (s *userService) generateRefreshToken(ctx context.Context, user *domain.User) (string, error) {
	tokenString := uuid.New().String()

	refreshToken := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     tokenString,
		ExpiresAt: time.Now().Add(time.Duration(s.jwtCfg.RefreshExpiry) * 24 * time.Hour),
		CreatedAt: time.Now(),
		Revoked:   false,
	}

	if err := s.refreshTokenRepo.Create(ctx, refreshToken); err != nil {
		return "", err
	}
	return tokenString, nil
}
