package queue

import (
	"context"
	"sync"

	"files_manager/internal/models"
)

// DeadLetter is a job parked by Memory.DeadLetter.
type DeadLetter struct {
	Job    models.ThumbnailJob
	Reason error
}

// Memory is a bounded in-process queue for tests and single-binary runs.
type Memory struct {
	jobs chan models.ThumbnailJob
	done chan struct{}
	once sync.Once

	mu     sync.Mutex
	acked  int
	parked []DeadLetter
}

func NewMemory(size int) *Memory {
	if size <= 0 {
		size = 1
	}
	return &Memory{jobs: make(chan models.ThumbnailJob, size), done: make(chan struct{})}
}

func (m *Memory) Enqueue(_ context.Context, job models.ThumbnailJob) error {
	select {
	case <-m.done:
		return ErrClosed
	default:
	}
	select {
	case m.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (m *Memory) Fetch(ctx context.Context) (Delivery, error) {
	select {
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	case <-m.done:
		return Delivery{}, ErrClosed
	case job := <-m.jobs:
		return Delivery{Job: job}, nil
	}
}

func (m *Memory) Ack(context.Context, Delivery) error {
	m.mu.Lock()
	m.acked++
	m.mu.Unlock()
	return nil
}

func (m *Memory) DeadLetter(_ context.Context, d Delivery, reason error) error {
	m.mu.Lock()
	m.parked = append(m.parked, DeadLetter{Job: d.Job, Reason: reason})
	m.mu.Unlock()
	return nil
}

// Len reports jobs waiting to be fetched.
func (m *Memory) Len() int {
	return len(m.jobs)
}

func (m *Memory) Acked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acked
}

func (m *Memory) DeadLetters() []DeadLetter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DeadLetter(nil), m.parked...)
}

// Close stops Enqueue and Fetch. Jobs still buffered are dropped.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}
