package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/civicdesk/issue-reporter/internal/domain"
)

// OTPRepository stores at most one live code per identifier and purpose.
type OTPRepository interface {
	// Save replaces any existing record for the same identifier and purpose.
	Save(ctx context.Context, record *domain.OTPRecord, retain time.Duration) error
	// Consume checks codeHash against the live record and marks it consumed on a match.
	Consume(ctx context.Context, identifier string, purpose domain.OTPPurpose, codeHash string, now time.Time, maxAttempts int) (domain.OTPVerdict, error)
	// Get returns the stored record.
	Get(ctx context.Context, identifier string, purpose domain.OTPPurpose) (*domain.OTPRecord, error)
	// MarkVerified grants a one-shot verified marker.
	MarkVerified(ctx context.Context, identifier string, purpose domain.OTPPurpose, ttl time.Duration) error
	// TakeVerified redeems the verified marker, if any.
	TakeVerified(ctx context.Context, identifier string, purpose domain.OTPPurpose) (bool, error)
}

// consumeScript returns a verdict code matching domain.OTPVerdict. The code is compared
// before the consumed and expiry checks, so OTPConsumed and OTPExpired imply a correct code.
var consumeScript = redis.NewScript(`
local rec = redis.call('HMGET', KEYS[1], 'code', 'expires_at', 'consumed', 'attempts')
if not rec[1] then
  return 0
end
if tonumber(rec[4] or '0') >= tonumber(ARGV[3]) then
  return 5
end
if rec[1] ~= ARGV[1] then
  redis.call('HINCRBY', KEYS[1], 'attempts', 1)
  return 4
end
if rec[3] == '1' then
  return 2
end
if tonumber(ARGV[2]) >= tonumber(rec[2]) then
  return 3
end
redis.call('HSET', KEYS[1], 'consumed', '1')
return 1
`)

type otpRepository struct {
	client *redis.Client
}

// NewOTPRepository returns a Redis-backed implementation.
func NewOTPRepository(client *redis.Client) OTPRepository {
	return &otpRepository{client: client}
}

func otpKey(identifier string, purpose domain.OTPPurpose) string {
	return fmt.Sprintf("otp:%s:%s", purpose, identifier)
}

func verifiedKey(identifier string, purpose domain.OTPPurpose) string {
	return fmt.Sprintf("otp:verified:%s:%s", purpose, identifier)
}

func (r *otpRepository) Save(ctx context.Context, record *domain.OTPRecord, retain time.Duration) error {
	key := otpKey(record.Identifier, record.Purpose)
	ttl := time.Until(record.ExpiresAt) + retain
	if ttl <= 0 {
		ttl = time.Second
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.Del(ctx, verifiedKey(record.Identifier, record.Purpose))
	pipe.HSet(ctx, key, map[string]any{
		"code":       record.CodeHash,
		"expires_at": record.ExpiresAt.UnixMilli(),
		"consumed":   "0",
		"attempts":   0,
		"role":       string(record.Role),
	})
	pipe.PExpire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *otpRepository) Consume(ctx context.Context, identifier string, purpose domain.OTPPurpose, codeHash string, now time.Time, maxAttempts int) (domain.OTPVerdict, error) {
	res, err := consumeScript.Run(ctx, r.client,
		[]string{otpKey(identifier, purpose)},
		codeHash, now.UnixMilli(), maxAttempts,
	).Int()
	if err != nil {
		return domain.OTPNotFound, err
	}
	return domain.OTPVerdict(res), nil
}

func (r *otpRepository) Get(ctx context.Context, identifier string, purpose domain.OTPPurpose) (*domain.OTPRecord, error) {
	var stored struct {
		Code      string `redis:"code"`
		ExpiresAt int64  `redis:"expires_at"`
		Consumed  string `redis:"consumed"`
		Attempts  int    `redis:"attempts"`
		Role      string `redis:"role"`
	}
	cmd := r.client.HGetAll(ctx, otpKey(identifier, purpose))
	if err := cmd.Err(); err != nil {
		return nil, err
	}
	if len(cmd.Val()) == 0 {
		return nil, ErrNotFound
	}
	if err := cmd.Scan(&stored); err != nil {
		return nil, err
	}
	return &domain.OTPRecord{
		Identifier: identifier,
		Purpose:    purpose,
		Role:       domain.Role(stored.Role),
		CodeHash:   stored.Code,
		ExpiresAt:  time.UnixMilli(stored.ExpiresAt),
		Consumed:   stored.Consumed == "1",
		Attempts:   stored.Attempts,
	}, nil
}

func (r *otpRepository) MarkVerified(ctx context.Context, identifier string, purpose domain.OTPPurpose, ttl time.Duration) error {
	return r.client.Set(ctx, verifiedKey(identifier, purpose), "1", ttl).Err()
}

func (r *otpRepository) TakeVerified(ctx context.Context, identifier string, purpose domain.OTPPurpose) (bool, error) {
	err := r.client.GetDel(ctx, verifiedKey(identifier, purpose)).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
