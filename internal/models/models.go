// internal/models/models.go
package models

import "github.com/google/uuid"

// RootID is the parent id of top-level records.
const RootID int64 = 0

type Kind string

const (
	KindFolder Kind = "folder"
	KindFile   Kind = "file"
	KindImage  Kind = "image"
)

func (k Kind) Valid() bool {
	switch k {
	case KindFolder, KindFile, KindImage:
		return true
	}
	return false
}

type FileRecord struct {
	ID        int64     `db:"id"`
	OwnerID   uuid.UUID `db:"owner_id"`
	Name      string    `db:"name"`
	Kind      Kind      `db:"kind"`
	IsPublic  bool      `db:"is_public"`
	ParentID  int64     `db:"parent_id"`
	LocalPath string    `db:"local_path"` // empty for folders
}

// FileView is what leaves the service. It never carries the storage path.
type FileView struct {
	ID       int64     `json:"id"`
	UserID   uuid.UUID `json:"userId"`
	Name     string    `json:"name"`
	Type     Kind      `json:"type"`
	IsPublic bool      `json:"isPublic"`
	ParentID int64     `json:"parentId"`
}

func (f *FileRecord) View() FileView {
	return FileView{
		ID:       f.ID,
		UserID:   f.OwnerID,
		Name:     f.Name,
		Type:     f.Kind,
		IsPublic: f.IsPublic,
		ParentID: f.ParentID,
	}
}

// Validate checks the shape of a record before it is stored.
// Parent resolution is the catalog's job.
func (f *FileRecord) Validate() error {
	if f.OwnerID == uuid.Nil {
		return &ValidationError{Msg: "Missing owner"}
	}
	if f.Name == "" {
		return ErrMissingName
	}
	if !f.Kind.Valid() {
		return ErrMissingType
	}
	if f.Kind == KindFolder && f.LocalPath != "" {
		return &ValidationError{Msg: "Folder cannot have data"}
	}
	if f.Kind != KindFolder && f.LocalPath == "" {
		return ErrMissingData
	}
	if f.ParentID < RootID {
		return ErrParentNotFound
	}
	return nil
}

type ThumbnailJob struct {
	UserID uuid.UUID `json:"userId"`
	FileID int64     `json:"fileId"`
}
