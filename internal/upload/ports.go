package upload

import (
	"context"

	"github.com/google/uuid"

	"files_manager/internal/models"
)

//go:generate mockgen -destination=mocks/ports_mock.go -package=mocks -source=ports.go

// Verifier resolves a session token to the id of its user.
type Verifier interface {
	Verify(ctx context.Context, token string) (uuid.UUID, error)
}

// Enqueuer schedules thumbnail generation without waiting for it.
type Enqueuer interface {
	Enqueue(ctx context.Context, job models.ThumbnailJob) error
}
