package redis_storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ShaanSolanki/lms/internal/app_errors"
)

const (
	otpKeyPrefix   = "otp:"
	stateKeyPrefix = "oauth_state:"

	fieldCode     = "code"
	fieldAttempts = "attempts"
)

// VerificationStore keeps short-lived email codes and OAuth state values.
type VerificationStore struct {
	client redis.Cmdable
}

func NewVerificationStore(client redis.Cmdable) *VerificationStore {
	return &VerificationStore{client: client}
}

// SaveCode replaces any pending code for email and resets its attempt counter.
func (s *VerificationStore) SaveCode(ctx context.Context, email, code string, ttl time.Duration) error {
	key := otpKeyPrefix + email
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, fieldCode, code, fieldAttempts, 0)
		p.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save code: %w", err)
	}
	return nil
}

// Attempt counts one verification attempt and returns the pending code together with the
// attempt count including this one. Counting comes first so concurrent guesses cannot share a count.
func (s *VerificationStore) Attempt(ctx context.Context, email string) (string, int, error) {
	key := otpKeyPrefix + email
	var (
		attempts *redis.IntCmd
		code     *redis.StringCmd
	)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		attempts = p.HIncrBy(ctx, key, fieldAttempts, 1)
		code = p.HGet(ctx, key, fieldCode)
		return nil
	})
	if errors.Is(err, redis.Nil) {
		// no pending code; HIncrBy created a bare counter without a TTL
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return "", 0, fmt.Errorf("drop counter: %w", err)
		}
		return "", 0, app_errors.ErrOTPNotFound
	}
	if err != nil {
		return "", 0, fmt.Errorf("count attempt: %w", err)
	}
	return code.Val(), int(attempts.Val()), nil
}

func (s *VerificationStore) DeleteCode(ctx context.Context, email string) error {
	return s.client.Del(ctx, otpKeyPrefix+email).Err()
}

func (s *VerificationStore) SaveState(ctx context.Context, state string, ttl time.Duration) error {
	return s.client.Set(ctx, stateKeyPrefix+state, 1, ttl).Err()
}

// ConsumeState reports whether state was issued and not yet used. A state is usable once.
func (s *VerificationStore) ConsumeState(ctx context.Context, state string) (bool, error) {
	err := s.client.GetDel(ctx, stateKeyPrefix+state).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consume state: %w", err)
	}
	return true, nil
}
