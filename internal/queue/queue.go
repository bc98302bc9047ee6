// Package queue carries thumbnail jobs from the upload pipeline to the
// worker. Delivery is at-least-once and jobs are never deduplicated.
package queue

import (
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"

	"files_manager/internal/models"
)

var (
	ErrQueueFull = errors.New("queue: full")
	ErrClosed    = errors.New("queue: closed")
)

// Delivery is one fetched job. It must be acked once the worker is done
// with it, whatever the outcome.
type Delivery struct {
	Job models.ThumbnailJob
	msg kafka.Message
}

func encode(job models.ThumbnailJob) ([]byte, error) {
	return json.Marshal(job)
}

// decode returns a zero job alongside the error so a bad payload still flows
// to the worker, which rejects it as invalid.
func decode(data []byte) (models.ThumbnailJob, error) {
	var job models.ThumbnailJob
	if err := json.Unmarshal(data, &job); err != nil {
		return models.ThumbnailJob{}, err
	}
	return job, nil
}
