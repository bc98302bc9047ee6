// Package thumbnail consumes thumbnail jobs and writes resized derivatives of
// uploaded images next to the original blob.
package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	_ "golang.org/x/image/webp"

	"files_manager/internal/blob"
	"files_manager/internal/metrics"
	"files_manager/internal/models"
	"files_manager/internal/queue"
)

// Widths are generated in this order for every job.
var Widths = []int{500, 250, 100}

var (
	ErrInvalidJob = errors.New("thumbnail: missing fileId or userId")
	// ErrTransient marks a job whose file could not be loaded after every retry.
	ErrTransient = errors.New("thumbnail: catalog unavailable")
)

type FileLoader interface {
	FindByID(ctx context.Context, id int64, ownerID uuid.UUID) (*models.FileRecord, error)
}

type Blobs interface {
	Read(path string) ([]byte, error)
	WriteAt(path string, data []byte) error
}

type Source interface {
	Fetch(ctx context.Context) (queue.Delivery, error)
	Ack(ctx context.Context, d queue.Delivery) error
	DeadLetter(ctx context.Context, d queue.Delivery, reason error) error
}

type Options struct {
	MaxAttempts uint64
	BaseBackoff time.Duration
}

// Outcome is the result of one width. Err is nil when the derivative was
// written to Path.
type Outcome struct {
	Width int
	Path  string
	Err   error
}

type Report struct {
	Job      models.ThumbnailJob
	Outcomes []Outcome
}

func (r *Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

type Worker struct {
	log   *slog.Logger
	files FileLoader
	blobs Blobs
	src   Source
	opts  Options
}

func NewWorker(log *slog.Logger, files FileLoader, blobs Blobs, src Source, opts Options) *Worker {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 1
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 500 * time.Millisecond
	}
	return &Worker{log: log, files: files, blobs: blobs, src: src, opts: opts}
}

// Run handles one job at a time until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	const op = "thumbnail.Run"

	w.log.Info("thumbnail worker started", "op", op, "widths", Widths)
	for {
		d, err := w.src.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				w.log.Info("thumbnail worker stopped", "op", op)
				return nil
			}
			w.log.Error("fetch failed", "op", op, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.opts.BaseBackoff):
			}
			continue
		}
		w.Handle(ctx, d)
	}
}

// Handle processes a delivery and settles it. A job interrupted by shutdown
// is left unacked so the queue delivers it again.
func (w *Worker) Handle(ctx context.Context, d queue.Delivery) {
	const op = "thumbnail.Handle"
	log := w.log.With("op", op, "file_id", d.Job.FileID, "user_id", d.Job.UserID)

	report, err := w.Process(ctx, d.Job)
	result := "done"
	switch {
	case err == nil:
		log.Info("thumbnails generated", "succeeded", report.Succeeded(), "attempted", len(report.Outcomes))
	case errors.Is(err, ErrInvalidJob):
		result = "invalid"
		log.Error("job rejected", "error", err)
	case errors.Is(err, models.ErrNotFound):
		result = "not_found"
		log.Error("job rejected", "error", err)
	case ctx.Err() != nil:
		log.Warn("job interrupted", "error", err)
		return
	default:
		result = "dead_letter"
		if dlErr := w.deadLetter(ctx, d, err); dlErr != nil {
			// Only shutdown ends the retries; the offset stays uncommitted.
			log.Warn("dead-letter interrupted", "error", dlErr, "cause", err)
			return
		}
		log.Error("job dead-lettered", "error", err)
	}

	metrics.JobsTotal.WithLabelValues(result).Inc()
	if err := w.src.Ack(ctx, d); err != nil {
		log.Error("ack failed", "error", err)
	}
}

// deadLetter keeps retrying until the job is parked or ctx ends. Moving on
// to the next delivery first would let its commit skip this one.
func (w *Worker) deadLetter(ctx context.Context, d queue.Delivery, reason error) error {
	b := retry.WithCappedDuration(30*time.Second, retry.NewExponential(w.opts.BaseBackoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := w.src.DeadLetter(ctx, d, reason); err != nil {
			w.log.Error("dead-letter failed, retrying", "op", "thumbnail.deadLetter", "file_id", d.Job.FileID, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

// Process runs a single job. The returned error is only about the job as a
// whole; per-width failures are reported in the Outcomes.
func (w *Worker) Process(ctx context.Context, job models.ThumbnailJob) (*Report, error) {
	const op = "thumbnail.Process"

	if job.FileID == 0 || job.UserID == uuid.Nil {
		return nil, ErrInvalidJob
	}

	rec, err := w.load(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	report := &Report{Job: job, Outcomes: make([]Outcome, 0, len(Widths))}
	src, format, decodeErr := w.decode(rec.LocalPath)
	for _, width := range Widths {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("%s: %w", op, err)
		}

		out := Outcome{Width: width, Path: blob.DerivativePath(rec.LocalPath, width)}
		if decodeErr != nil {
			out.Err = decodeErr
		} else {
			out.Err = w.derive(src, format, out)
		}
		report.Outcomes = append(report.Outcomes, out)

		label := "ok"
		if out.Err != nil {
			label = "error"
			w.log.Warn("thumbnail failed", "op", op, "file_id", rec.ID, "width", width, "error", out.Err)
		}
		metrics.DerivativesTotal.WithLabelValues(strconv.Itoa(width), label).Inc()
	}
	return report, nil
}

// load retries transient catalog errors with exponential backoff. A record
// that is genuinely absent is returned immediately.
func (w *Worker) load(ctx context.Context, job models.ThumbnailJob) (*models.FileRecord, error) {
	var rec *models.FileRecord

	b := retry.WithMaxRetries(w.opts.MaxAttempts-1, retry.NewExponential(w.opts.BaseBackoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		r, err := w.files.FindByID(ctx, job.FileID, job.UserID)
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		if err != nil {
			w.log.Warn("file lookup failed, retrying", "op", "thumbnail.load", "file_id", job.FileID, "error", err)
			return retry.RetryableError(err)
		}
		rec = r
		return nil
	})

	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, models.ErrNotFound), ctx.Err() != nil:
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %w", ErrTransient, err)
	}
}

func (w *Worker) decode(path string) (image.Image, imaging.Format, error) {
	data, err := w.blobs.Read(path)
	if err != nil {
		return nil, 0, err
	}

	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	format, err := imaging.FormatFromExtension(name)
	if err != nil {
		// Formats we can read but not write, such as webp.
		format = imaging.PNG
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, 0, err
	}
	return img, format, nil
}

func (w *Worker) derive(src image.Image, format imaging.Format, out Outcome) error {
	resized := imaging.Resize(src, out.Width, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		return err
	}
	return w.blobs.WriteAt(out.Path, buf.Bytes())
}
