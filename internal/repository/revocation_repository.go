package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationRepository is the refresh token deny-list.
type RevocationRepository interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type revocationRepository struct {
	client *redis.Client
}

// NewRevocationRepository returns a Redis-backed deny-list. Entries expire with the token.
func NewRevocationRepository(client *redis.Client) RevocationRepository {
	return &revocationRepository{client: client}
}

func revokedKey(tokenID string) string {
	return "revoked:refresh:" + tokenID
}

func (r *revocationRepository) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedKey(tokenID), "1", ttl).Err()
}

func (r *revocationRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
