// internal/sms/service.go
// SMS confirmation codes: generated on login without a password, stored
// code -> mobile in Redis with a TTL, consumed exactly once on confirmation.

package sms

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/go-redis/redis/v8"
)

const codeKeyPrefix = "sms:code:"

// Service sends and verifies SMS confirmation codes
type Service interface {
	SendConfirmationCode(ctx context.Context, mobile int64) error
	PopMobile(ctx context.Context, code int64) (int64, error)
}

type service struct {
	rdb        *redis.Client
	provider   Provider
	codeLength int
	expiry     time.Duration
}

// NewService creates an SMS confirmation code service
func NewService(rdb *redis.Client, provider Provider, codeLength int, expiry time.Duration) Service {
	return &service{
		rdb:        rdb,
		provider:   provider,
		codeLength: codeLength,
		expiry:     expiry,
	}
}

// SendConfirmationCode generates a code, stores it against the mobile number
// and sends it over the SMS gateway.
func (s *service) SendConfirmationCode(ctx context.Context, mobile int64) error {
	code, err := generateCode(s.codeLength)
	if err != nil {
		return fmt.Errorf("failed to generate confirmation code: %w", err)
	}

	key := fmt.Sprintf("%s%d", codeKeyPrefix, code)
	if err := s.rdb.Set(ctx, key, mobile, s.expiry).Err(); err != nil {
		return fmt.Errorf("failed to store confirmation code: %w", err)
	}

	text := fmt.Sprintf("Carpe Diem Service. Your code: %d", code)
	if err := s.provider.SendSMS(ctx, mobile, text); err != nil {
		return err
	}
	return nil
}

// PopMobile consumes a confirmation code and returns the mobile number it was
// issued for, or 0 when the code is unknown or expired.
func (s *service) PopMobile(ctx context.Context, code int64) (int64, error) {
	key := fmt.Sprintf("%s%d", codeKeyPrefix, code)
	mobile, err := s.rdb.GetDel(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up confirmation code: %w", err)
	}
	return mobile, nil
}

// generateCode returns a random numeric code of exactly length digits.
func generateCode(length int) (int64, error) {
	min := int64(1)
	for i := 1; i < length; i++ {
		min *= 10
	}
	span := min*10 - min

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return 0, err
	}
	return min + n.Int64(), nil
}
