package repository

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrOTPNotFound = errors.New("otp not found or expired")
	ErrOTPMismatch = errors.New("otp does not match")
)

// OTPStore issues and verifies one-time codes. Codes live in Redis
// under the phone number with a TTL and are consumed on successful
// verification, so each code works at most once.
type OTPStore interface {
	Issue(ctx context.Context, phone string) (string, error)
	Verify(ctx context.Context, phone, code string) error
}

type otpStore struct {
	client *redis.Client
	length int
	expiry time.Duration
}

// NewOTPStore creates a Redis-backed OTPStore.
func NewOTPStore(client *redis.Client, length int, expiry time.Duration) OTPStore {
	return &otpStore{client: client, length: length, expiry: expiry}
}

func (s *otpStore) key(phone string) string {
	return "otp:" + phone
}

// Issue generates a fresh numeric code and stores it under the phone
// number, replacing any previous code.
func (s *otpStore) Issue(ctx context.Context, phone string) (string, error) {
	code, err := generateCode(s.length)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}

	if err := s.client.Set(ctx, s.key(phone), code, s.expiry).Err(); err != nil {
		return "", fmt.Errorf("failed to store otp: %w", err)
	}
	return code, nil
}

// Verify checks the code for the phone number and deletes it when it
// matches. A wrong code leaves the stored one in place until it expires.
func (s *otpStore) Verify(ctx context.Context, phone, code string) error {
	stored, err := s.client.Get(ctx, s.key(phone)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrOTPNotFound
		}
		return fmt.Errorf("failed to read otp: %w", err)
	}

	if stored != code {
		return ErrOTPMismatch
	}

	if err := s.client.Del(ctx, s.key(phone)).Err(); err != nil {
		return fmt.Errorf("failed to consume otp: %w", err)
	}
	return nil
}

// generateCode returns a random numeric string of the given length.
func generateCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
