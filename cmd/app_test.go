package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"files_manager/internal/models"
	"files_manager/internal/queue"
	"files_manager/internal/storage"
)

func TestNewLogger(t *testing.T) {
	log := newLogger(models.LogConfig{Level: "debug", Format: "json"})
	assert.True(t, log.Enabled(context.Background(), slog.LevelDebug))

	log = newLogger(models.LogConfig{Level: "nonsense"})
	assert.False(t, log.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, log.Enabled(context.Background(), slog.LevelInfo))
}

func TestNewApp_InMemory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("catalog: memory\nqueue: memory\nstorage_path: "+dir+"\n"), 0o644))

	prev := configPath
	configPath = path
	t.Cleanup(func() { configPath = prev })
	t.Setenv("FOLDER_PATH", "")
	t.Setenv("CATALOG", "")
	t.Setenv("QUEUE", "")

	a, err := newApp(context.Background())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &storage.Memory{}, a.catalog)
	assert.IsType(t, &queue.Memory{}, a.jobs)
	assert.Equal(t, dir, a.blobs.Root())
	assert.NotNil(t, a.worker())
}

func TestNewApp_UnknownCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("catalog: sqlite\n"), 0o644))

	prev := configPath
	configPath = path
	t.Cleanup(func() { configPath = prev })
	t.Setenv("CATALOG", "")

	_, err := newApp(context.Background())
	assert.ErrorContains(t, err, "unknown catalog")
}

func TestAPIServer_DoesNotJoinConsumerGroup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("catalog: memory\nqueue: kafka\nstorage_path: "+dir+"\n"), 0o644))

	prev := configPath
	configPath = path
	t.Cleanup(func() { configPath = prev })
	t.Setenv("CATALOG", "")
	t.Setenv("QUEUE", "")

	a, err := newApp(context.Background())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.apiServer())

	kq, ok := a.jobs.(*queue.Kafka)
	require.True(t, ok)
	assert.False(t, kq.Consuming())
}
