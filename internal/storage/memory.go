package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"files_manager/internal/models"
)

// Memory is an in-process catalog with the same semantics as Storage.
// Records live in insertion order; ids start at 1.
type Memory struct {
	mu      sync.RWMutex
	records []models.FileRecord
	byID    map[int64]int
}

func NewMemory() *Memory {
	return &Memory{byID: make(map[int64]int)}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Create(ctx context.Context, rec *models.FileRecord) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ParentID != models.RootID {
		if _, err := m.parentLocked(rec.ParentID, rec.OwnerID); err != nil {
			return 0, err
		}
	}

	rec.ID = int64(len(m.records) + 1)
	m.byID[rec.ID] = len(m.records)
	m.records = append(m.records, *rec)
	return rec.ID, nil
}

func (m *Memory) FindByID(ctx context.Context, id int64, ownerID uuid.UUID) (*models.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.findLocked(id, ownerID)
}

func (m *Memory) FindParentFolder(ctx context.Context, parentID int64, ownerID uuid.UUID) (*models.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.parentLocked(parentID, ownerID)
}

func (m *Memory) ListChildren(ctx context.Context, ownerID uuid.UUID, parentID int64, page int) ([]models.FileRecord, error) {
	if page < 0 {
		page = 0
	}
	skip := page * PageSize

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.FileRecord, 0, PageSize)
	for _, rec := range m.records {
		if rec.OwnerID != ownerID || rec.ParentID != parentID {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		out = append(out, rec)
		if len(out) == PageSize {
			break
		}
	}
	return out, nil
}

func (m *Memory) CountFiles(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.records)), nil
}

func (m *Memory) findLocked(id int64, ownerID uuid.UUID) (*models.FileRecord, error) {
	i, ok := m.byID[id]
	if !ok || m.records[i].OwnerID != ownerID {
		return nil, models.ErrNotFound
	}
	rec := m.records[i]
	return &rec, nil
}

func (m *Memory) parentLocked(parentID int64, ownerID uuid.UUID) (*models.FileRecord, error) {
	rec, err := m.findLocked(parentID, ownerID)
	if err != nil {
		return nil, models.ErrParentNotFound
	}
	if rec.Kind != models.KindFolder {
		return nil, models.ErrParentNotAFolder
	}
	return rec, nil
}
