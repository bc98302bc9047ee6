package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"

	"files_manager/internal/metrics"
	"files_manager/internal/models"
)

// Kafka is the production queue: an async producer for uploads, a consumer
// group reader for workers and a producer for the dead-letter topic.
type Kafka struct {
	log    *slog.Logger
	writer *kafka.Writer
	dlq    *kafka.Writer

	// The reader joins the consumer group as soon as it exists, so it is only
	// built on the first Fetch. API-only processes never create one.
	readerCfg kafka.ReaderConfig
	mu        sync.Mutex
	reader    *kafka.Reader
}

func NewKafka(cfg models.KafkaConfig, log *slog.Logger) *Kafka {
	q := &Kafka{log: log}

	q.writer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Broker),
		Topic:    cfg.Topic,
		Balancer: &kafka.Hash{},
		Async:    true,
		Completion: func(messages []kafka.Message, err error) {
			if err == nil {
				return
			}
			metrics.EnqueueFailuresTotal.Add(float64(len(messages)))
			for _, m := range messages {
				log.Error("thumbnail job lost", "op", "queue.Enqueue", "payload", string(m.Value), "error", err)
			}
		},
	}
	q.dlq = &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Broker),
		Topic:                  cfg.DeadLetterTopic,
		AllowAutoTopicCreation: true,
	}
	q.readerCfg = kafka.ReaderConfig{
		Brokers: []string{cfg.Broker},
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
	}
	return q
}

// Consuming reports whether this queue has joined the consumer group.
func (q *Kafka) Consuming() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.reader != nil
}

func (q *Kafka) consumer() *kafka.Reader {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.reader == nil {
		q.reader = kafka.NewReader(q.readerCfg)
	}
	return q.reader
}

// Enqueue hands the job to the async writer and returns without waiting for
// the broker.
func (q *Kafka) Enqueue(ctx context.Context, job models.ThumbnailJob) error {
	const op = "queue.Enqueue"

	payload, err := encode(job)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	err = q.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(job.UserID.String()),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (q *Kafka) Fetch(ctx context.Context) (Delivery, error) {
	const op = "queue.Fetch"

	msg, err := q.consumer().FetchMessage(ctx)
	if err != nil {
		return Delivery{}, fmt.Errorf("%s: %w", op, err)
	}

	job, err := decode(msg.Value)
	if err != nil {
		q.log.Warn("undecodable thumbnail job", "op", op, "offset", msg.Offset, "error", err)
	}
	return Delivery{Job: job, msg: msg}, nil
}

func (q *Kafka) Ack(ctx context.Context, d Delivery) error {
	const op = "queue.Ack"

	if err := q.consumer().CommitMessages(ctx, d.msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (q *Kafka) DeadLetter(ctx context.Context, d Delivery, reason error) error {
	const op = "queue.DeadLetter"

	msg, err := deadLetterMessage(d, reason)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := q.dlq.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// deadLetterMessage copies the original payload, re-encoding the job when the
// delivery did not come from Kafka, and records the reason in a header.
func deadLetterMessage(d Delivery, reason error) (kafka.Message, error) {
	msg := kafka.Message{
		Key:   d.msg.Key,
		Value: d.msg.Value,
		Headers: []kafka.Header{
			{Key: "error", Value: []byte(reason.Error())},
		},
	}
	if msg.Value == nil {
		payload, err := encode(d.Job)
		if err != nil {
			return kafka.Message{}, err
		}
		msg.Value = payload
		msg.Key = []byte(d.Job.UserID.String())
	}
	return msg, nil
}

func (q *Kafka) Close() error {
	closers := []interface{ Close() error }{q.writer, q.dlq}
	q.mu.Lock()
	if q.reader != nil {
		closers = append(closers, q.reader)
	}
	q.mu.Unlock()

	var first error
	for _, c := range closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
