package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"files_manager/internal/models"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "auth_031bffac-3edc-4e51-aaae-1c121317da8a", Key("031bffac-3edc-4e51-aaae-1c121317da8a"))
}

func TestVerify_EmptyTokenSkipsRedis(t *testing.T) {
	// No server is listening here; an empty token must not reach it.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	id, err := NewRedisVerifier(client).Verify(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Equal(t, uuid.Nil, id)
}

func TestVerify_RedisDownIsNotUnauthorized(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()

	_, err := NewRedisVerifier(client).Verify(context.Background(), "some-token")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrUnauthorized)
}
