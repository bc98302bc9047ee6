// Package upload turns an authenticated upload request into a catalog record,
// a stored blob and, for images, a thumbnail job.
package upload

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"files_manager/internal/metrics"
	"files_manager/internal/models"
)

type Catalog interface {
	FindParentFolder(ctx context.Context, parentID int64, ownerID uuid.UUID) (*models.FileRecord, error)
	Create(ctx context.Context, rec *models.FileRecord) (int64, error)
}

type BlobWriter interface {
	Write(data []byte) (string, error)
}

// Request is the body of POST /files.
type Request struct {
	Name     string      `json:"name"`
	Type     models.Kind `json:"type"`
	ParentID int64       `json:"parentId"`
	IsPublic bool        `json:"isPublic"`
	Data     string      `json:"data"`
}

type Result struct {
	Record *models.FileRecord
	// Created is false for folders, which carry no content.
	Created bool
}

type Pipeline struct {
	log      *slog.Logger
	verifier Verifier
	catalog  Catalog
	blobs    BlobWriter
	jobs     Enqueuer
}

func New(log *slog.Logger, verifier Verifier, catalog Catalog, blobs BlobWriter, jobs Enqueuer) *Pipeline {
	return &Pipeline{
		log:      log,
		verifier: verifier,
		catalog:  catalog,
		blobs:    blobs,
		jobs:     jobs,
	}
}

// Upload runs the checks in a fixed order and reports the first failure.
// The blob is written before the catalog insert; if the insert fails the
// blob stays on disk.
func (p *Pipeline) Upload(ctx context.Context, token string, req Request) (*Result, error) {
	const op = "upload.Upload"

	ownerID, err := p.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	if req.Name == "" {
		return nil, models.ErrMissingName
	}
	if !req.Type.Valid() {
		return nil, models.ErrMissingType
	}
	if req.Type != models.KindFolder && req.Data == "" {
		return nil, models.ErrMissingData
	}
	if req.ParentID != models.RootID {
		if _, err := p.catalog.FindParentFolder(ctx, req.ParentID, ownerID); err != nil {
			return nil, err
		}
	}

	rec := &models.FileRecord{
		OwnerID:  ownerID,
		Name:     req.Name,
		Kind:     req.Type,
		IsPublic: req.IsPublic,
		ParentID: req.ParentID,
	}

	if rec.Kind == models.KindFolder {
		if _, err := p.catalog.Create(ctx, rec); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		metrics.UploadsTotal.WithLabelValues(string(rec.Kind)).Inc()
		p.log.Info("folder created", "op", op, "file_id", rec.ID, "user_id", ownerID)
		return &Result{Record: rec}, nil
	}

	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return nil, models.ErrInvalidData
	}

	path, err := p.blobs.Write(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rec.LocalPath = path

	if _, err := p.catalog.Create(ctx, rec); err != nil {
		p.log.Warn("orphaned blob after catalog failure", "op", op, "path", path, "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.UploadsTotal.WithLabelValues(string(rec.Kind)).Inc()
	p.log.Info("file stored", "op", op, "file_id", rec.ID, "user_id", ownerID, "type", rec.Kind, "size_bytes", len(data))

	if rec.Kind == models.KindImage {
		job := models.ThumbnailJob{UserID: ownerID, FileID: rec.ID}
		if err := p.jobs.Enqueue(ctx, job); err != nil {
			metrics.EnqueueFailuresTotal.Inc()
			p.log.Error("thumbnail job not enqueued", "op", op, "file_id", rec.ID, "error", err)
		}
	}

	return &Result{Record: rec, Created: true}, nil
}
