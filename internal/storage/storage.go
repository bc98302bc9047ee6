// internal/storage/storage.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"files_manager/internal/models"
)

// PageSize is the fixed number of records returned by ListChildren.
const PageSize = 20

const fileColumns = `id, owner_id, name, kind, is_public, parent_id, COALESCE(local_path, '')`

// Storage is the Postgres-backed file catalog.
type Storage struct {
	pool *pgxpool.Pool
	db   *sql.DB // For migrations
}

func NewStorage(ctx context.Context, dsn string) (*Storage, error) {
	const op = "storage.NewStorage"

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := Migrate(db); err != nil {
		db.Close()
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{pool: pool, db: db}, nil
}

func (s *Storage) Close() {
	s.db.Close()
	s.pool.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Storage) Create(ctx context.Context, rec *models.FileRecord) (int64, error) {
	const op = "storage.Create"

	if err := rec.Validate(); err != nil {
		return 0, err
	}
	if rec.ParentID != models.RootID {
		if _, err := s.FindParentFolder(ctx, rec.ParentID, rec.OwnerID); err != nil {
			return 0, err
		}
	}

	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO files (owner_id, name, kind, is_public, parent_id, local_path)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING id`,
		rec.OwnerID, rec.Name, string(rec.Kind), rec.IsPublic, rec.ParentID, rec.LocalPath).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rec.ID = id
	return id, nil
}

func (s *Storage) FindByID(ctx context.Context, id int64, ownerID uuid.UUID) (*models.FileRecord, error) {
	const op = "storage.FindByID"

	row := s.pool.QueryRow(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = $1 AND owner_id = $2`, id, ownerID)
	rec, err := scanFile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// FindParentFolder resolves a prospective parent. Folders of other owners are
// reported as missing.
func (s *Storage) FindParentFolder(ctx context.Context, parentID int64, ownerID uuid.UUID) (*models.FileRecord, error) {
	const op = "storage.FindParentFolder"

	rec, err := s.FindByID(ctx, parentID, ownerID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrParentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rec.Kind != models.KindFolder {
		return nil, models.ErrParentNotAFolder
	}
	return rec, nil
}

func (s *Storage) ListChildren(ctx context.Context, ownerID uuid.UUID, parentID int64, page int) ([]models.FileRecord, error) {
	const op = "storage.ListChildren"

	if page < 0 {
		page = 0
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+fileColumns+` FROM files
		 WHERE owner_id = $1 AND parent_id = $2
		 ORDER BY id
		 LIMIT $3 OFFSET $4`,
		ownerID, parentID, PageSize, page*PageSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.FileRecord, 0, PageSize)
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *Storage) CountFiles(ctx context.Context) (int64, error) {
	const op = "storage.CountFiles"

	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func scanFile(row pgx.Row) (*models.FileRecord, error) {
	var (
		rec  models.FileRecord
		kind string
	)
	if err := row.Scan(&rec.ID, &rec.OwnerID, &rec.Name, &kind, &rec.IsPublic, &rec.ParentID, &rec.LocalPath); err != nil {
		return nil, err
	}
	rec.Kind = models.Kind(kind)
	return &rec, nil
}
