package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"files_manager/internal/blob"
	"files_manager/internal/models"
	"files_manager/internal/queue"
	"files_manager/internal/storage"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type env struct {
	catalog *storage.Memory
	blobs   *blob.Store
	queue   *queue.Memory
	owner   uuid.UUID
}

func newEnv(t *testing.T) *env {
	return &env{
		catalog: storage.NewMemory(),
		blobs:   blob.New(t.TempDir()),
		queue:   queue.NewMemory(8),
		owner:   uuid.New(),
	}
}

func (e *env) storeImage(t *testing.T, data []byte) *models.FileRecord {
	t.Helper()
	path, err := e.blobs.Write(data)
	require.NoError(t, err)
	rec := &models.FileRecord{OwnerID: e.owner, Name: "cat.png", Kind: models.KindImage, LocalPath: path}
	_, err = e.catalog.Create(context.Background(), rec)
	require.NoError(t, err)
	return rec
}

func (e *env) worker(files FileLoader) *Worker {
	if files == nil {
		files = e.catalog
	}
	return NewWorker(discard, files, e.blobs, e.queue, Options{MaxAttempts: 3, BaseBackoff: time.Millisecond})
}

func widthOf(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	return cfg.Width
}

func TestProcess_WritesAllWidths(t *testing.T) {
	e := newEnv(t)
	rec := e.storeImage(t, pngBytes(t, 800, 600))

	report, err := e.worker(nil).Process(context.Background(), models.ThumbnailJob{UserID: e.owner, FileID: rec.ID})
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, 3, report.Succeeded())
	for i, width := range []int{500, 250, 100} {
		out := report.Outcomes[i]
		assert.Equal(t, width, out.Width)
		assert.Equal(t, rec.LocalPath+"_"+strconv.Itoa(width), out.Path)
		assert.Equal(t, width, widthOf(t, out.Path))
	}
}

func TestProcess_RerunOverwrites(t *testing.T) {
	e := newEnv(t)
	rec := e.storeImage(t, pngBytes(t, 600, 600))
	job := models.ThumbnailJob{UserID: e.owner, FileID: rec.ID}
	w := e.worker(nil)

	require.NoError(t, os.WriteFile(blob.DerivativePath(rec.LocalPath, 100), []byte("stale"), 0o644))

	_, err := w.Process(context.Background(), job)
	require.NoError(t, err)
	report, err := w.Process(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Succeeded())
	assert.Equal(t, 100, widthOf(t, blob.DerivativePath(rec.LocalPath, 100)))
}

func TestProcess_OneWidthFailing(t *testing.T) {
	e := newEnv(t)
	rec := e.storeImage(t, pngBytes(t, 800, 600))

	// A non-empty directory where the 250 derivative should go cannot be replaced.
	blocked := blob.DerivativePath(rec.LocalPath, 250)
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "keep"), 0o755))

	report, err := e.worker(nil).Process(context.Background(), models.ThumbnailJob{UserID: e.owner, FileID: rec.ID})
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 3)
	assert.NoError(t, report.Outcomes[0].Err)
	assert.Error(t, report.Outcomes[1].Err)
	assert.NoError(t, report.Outcomes[2].Err)
	assert.Equal(t, 500, widthOf(t, report.Outcomes[0].Path))
	assert.Equal(t, 100, widthOf(t, report.Outcomes[2].Path))
}

func TestProcess_UndecodableSource(t *testing.T) {
	e := newEnv(t)
	rec := e.storeImage(t, []byte("definitely not an image"))

	report, err := e.worker(nil).Process(context.Background(), models.ThumbnailJob{UserID: e.owner, FileID: rec.ID})
	require.NoError(t, err)

	assert.Len(t, report.Outcomes, 3)
	assert.Zero(t, report.Succeeded())
	_, statErr := os.Stat(blob.DerivativePath(rec.LocalPath, 500))
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestProcess_Rejects(t *testing.T) {
	e := newEnv(t)
	rec := e.storeImage(t, pngBytes(t, 10, 10))

	tests := []struct {
		name    string
		job     models.ThumbnailJob
		wantErr error
	}{
		{"MissingFileID", models.ThumbnailJob{UserID: e.owner}, ErrInvalidJob},
		{"MissingUserID", models.ThumbnailJob{FileID: rec.ID}, ErrInvalidJob},
		{"UnknownFile", models.ThumbnailJob{UserID: e.owner, FileID: rec.ID + 1}, models.ErrNotFound},
		{"OtherOwner", models.ThumbnailJob{UserID: uuid.New(), FileID: rec.ID}, models.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.worker(nil).Process(context.Background(), tt.job)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// flakyLoader fails the first n lookups with a transient error.
type flakyLoader struct {
	mu    sync.Mutex
	next  FileLoader
	fails int
	calls int
}

func (f *flakyLoader) FindByID(ctx context.Context, id int64, ownerID uuid.UUID) (*models.FileRecord, error) {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.fails
	f.mu.Unlock()
	if fail {
		return nil, errors.New("connection refused")
	}
	return f.next.FindByID(ctx, id, ownerID)
}

func TestProcess_RetriesTransientLookup(t *testing.T) {
	e := newEnv(t)
	rec := e.storeImage(t, pngBytes(t, 300, 200))
	loader := &flakyLoader{next: e.catalog, fails: 2}

	report, err := e.worker(loader).Process(context.Background(), models.ThumbnailJob{UserID: e.owner, FileID: rec.ID})
	require.NoError(t, err)

	assert.Equal(t, 3, loader.calls)
	assert.Equal(t, 3, report.Succeeded())
}

func TestHandle_DeadLettersAfterRetries(t *testing.T) {
	e := newEnv(t)
	rec := e.storeImage(t, pngBytes(t, 300, 200))
	loader := &flakyLoader{next: e.catalog, fails: 100}
	job := models.ThumbnailJob{UserID: e.owner, FileID: rec.ID}

	e.worker(loader).Handle(context.Background(), queue.Delivery{Job: job})

	assert.Equal(t, 3, loader.calls)
	parked := e.queue.DeadLetters()
	require.Len(t, parked, 1)
	assert.Equal(t, job, parked[0].Job)
	assert.ErrorIs(t, parked[0].Reason, ErrTransient)
	assert.Equal(t, 1, e.queue.Acked())
}

func TestHandle_InvalidJobIsAcked(t *testing.T) {
	e := newEnv(t)

	e.worker(nil).Handle(context.Background(), queue.Delivery{})

	assert.Equal(t, 1, e.queue.Acked())
	assert.Empty(t, e.queue.DeadLetters())
}

func TestRun_ConsumesQueue(t *testing.T) {
	e := newEnv(t)
	first := e.storeImage(t, pngBytes(t, 640, 480))
	second := e.storeImage(t, pngBytes(t, 320, 240))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.worker(nil).Run(ctx) }()

	require.NoError(t, e.queue.Enqueue(ctx, models.ThumbnailJob{UserID: e.owner, FileID: first.ID}))
	require.NoError(t, e.queue.Enqueue(ctx, models.ThumbnailJob{UserID: e.owner, FileID: second.ID}))

	assert.Eventually(t, func() bool { return e.queue.Acked() == 2 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	for _, rec := range []*models.FileRecord{first, second} {
		for _, width := range Widths {
			_, err := os.Stat(blob.DerivativePath(rec.LocalPath, width))
			assert.NoError(t, err)
		}
	}
}

// brokenFile fails every lookup of one file id.
type brokenFile struct {
	next FileLoader
	id   int64
}

func (b brokenFile) FindByID(ctx context.Context, id int64, ownerID uuid.UUID) (*models.FileRecord, error) {
	if id == b.id {
		return nil, errors.New("connection refused")
	}
	return b.next.FindByID(ctx, id, ownerID)
}

// stubbornDLQ rejects the first failures dead-letter writes and records the
// order in which jobs are settled.
type stubbornDLQ struct {
	*queue.Memory

	mu       sync.Mutex
	failures int
	attempts int
	settled  []int64
}

func (s *stubbornDLQ) DeadLetter(ctx context.Context, d queue.Delivery, reason error) error {
	s.mu.Lock()
	s.attempts++
	fail := s.attempts <= s.failures
	s.mu.Unlock()
	if fail {
		return errors.New("unknown topic or partition")
	}
	return s.Memory.DeadLetter(ctx, d, reason)
}

func (s *stubbornDLQ) Ack(ctx context.Context, d queue.Delivery) error {
	s.mu.Lock()
	s.settled = append(s.settled, d.Job.FileID)
	s.mu.Unlock()
	return s.Memory.Ack(ctx, d)
}

func (s *stubbornDLQ) order() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.settled...)
}

func TestRun_DeadLetterRetriedBeforeNextJob(t *testing.T) {
	e := newEnv(t)
	broken := e.storeImage(t, pngBytes(t, 300, 200))
	healthy := e.storeImage(t, pngBytes(t, 300, 200))
	src := &stubbornDLQ{Memory: e.queue, failures: 3}

	w := NewWorker(discard, brokenFile{next: e.catalog, id: broken.ID}, e.blobs, src,
		Options{MaxAttempts: 2, BaseBackoff: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	require.NoError(t, e.queue.Enqueue(ctx, models.ThumbnailJob{UserID: e.owner, FileID: broken.ID}))
	require.NoError(t, e.queue.Enqueue(ctx, models.ThumbnailJob{UserID: e.owner, FileID: healthy.ID}))
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(src.order()) == 2 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{broken.ID, healthy.ID}, src.order())
	assert.Equal(t, 4, src.attempts)
	parked := e.queue.DeadLetters()
	require.Len(t, parked, 1)
	assert.Equal(t, broken.ID, parked[0].Job.FileID)
	assert.ErrorIs(t, parked[0].Reason, ErrTransient)
}

func TestHandle_DeadLetterStopsOnShutdown(t *testing.T) {
	e := newEnv(t)
	rec := e.storeImage(t, pngBytes(t, 50, 50))
	src := &stubbornDLQ{Memory: e.queue, failures: 1 << 30}
	w := NewWorker(discard, brokenFile{next: e.catalog, id: rec.ID}, e.blobs, src,
		Options{MaxAttempts: 1, BaseBackoff: time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	w.Handle(ctx, queue.Delivery{Job: models.ThumbnailJob{UserID: e.owner, FileID: rec.ID}})

	assert.Empty(t, src.order())
	assert.Empty(t, e.queue.DeadLetters())
}

func TestRun_StopsWhenQueueClosed(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.queue.Close())

	err := e.worker(nil).Run(context.Background())
	assert.NoError(t, err)
}
