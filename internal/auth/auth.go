// Package auth resolves short-lived tokens to user ids. Tokens are issued
// elsewhere and stored in Redis as auth_<token> -> user id.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"files_manager/internal/models"
)

const keyPrefix = "auth_"

type RedisVerifier struct {
	client *redis.Client
}

func NewRedisVerifier(client *redis.Client) *RedisVerifier {
	return &RedisVerifier{client: client}
}

func Key(token string) string {
	return keyPrefix + token
}

// Verify returns models.ErrUnauthorized for empty, unknown or malformed
// tokens. Any other error means Redis itself failed.
func (v *RedisVerifier) Verify(ctx context.Context, token string) (uuid.UUID, error) {
	const op = "auth.Verify"

	if token == "" {
		return uuid.Nil, models.ErrUnauthorized
	}

	val, err := v.client.Get(ctx, Key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, models.ErrUnauthorized
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, models.ErrUnauthorized
	}
	return id, nil
}

func (v *RedisVerifier) Ping(ctx context.Context) error {
	return v.client.Ping(ctx).Err()
}
