package repository

import (
	"context"

	"github.com/stemsi/gradebook/internal/model"
)

// DocumentStore persists semester documents by name. Every implementation
// tracks a modification time per document, which picks the semester to
// open at startup.
//
// Read, Rename and Delete return an error matching model.ErrNotFound when
// the document is missing; Rename returns model.ErrDuplicateKey when the
// target name is taken. Rename keeps the modification time.
type DocumentStore interface {
	List(ctx context.Context) ([]model.DocumentInfo, error)
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	Rename(ctx context.Context, oldName, newName string) error
	Delete(ctx context.Context, name string) error
}
