// Package blob keeps raw upload bytes and their derivatives on local disk.
package blob

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
)

type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string {
	return s.root
}

// Write stores data under a fresh UUID name inside the root, creating the
// root first if it is missing, and returns the full path.
func (s *Store) Write(data []byte) (string, error) {
	const op = "blob.Write"

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	path := filepath.Join(s.root, uuid.New().String())
	if err := writeFile(path, data); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return path, nil
}

// WriteAt replaces whatever is stored at path.
func (s *Store) WriteAt(path string, data []byte) error {
	const op = "blob.WriteAt"

	if err := writeFile(path, data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) Read(path string) ([]byte, error) {
	const op = "blob.Read"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return data, nil
}

// DerivativePath names the thumbnail of the given width for a stored blob.
func DerivativePath(path string, width int) string {
	return path + "_" + strconv.Itoa(width)
}

// writeFile goes through a temp file in the same directory so readers never
// observe a half-written blob.
func writeFile(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
