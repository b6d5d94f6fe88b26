package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/stemsi/gradebook/internal/model"
)

const documentExt = ".json"

// FSDocumentRepository keeps one <name>.json file per semester in a directory.
type FSDocumentRepository struct {
	base string
}

func NewFSDocumentRepository(base string) (*FSDocumentRepository, error) {
	if base == "" {
		base = "./saves"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create saves dir: %w", err)
	}
	return &FSDocumentRepository{base: base}, nil
}

func (r *FSDocumentRepository) path(name string) (string, error) {
	clean, err := model.CleanDocumentName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(r.base, clean+documentExt), nil
}

func (r *FSDocumentRepository) List(_ context.Context) ([]model.DocumentInfo, error) {
	entries, err := os.ReadDir(r.base)
	if err != nil {
		return nil, fmt.Errorf("list saves dir: %w", err)
	}

	docs := make([]model.DocumentInfo, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, documentExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		docs = append(docs, model.DocumentInfo{
			Name:       strings.TrimSuffix(name, documentExt),
			ModifiedAt: info.ModTime(),
		})
	}
	return docs, nil
}

func (r *FSDocumentRepository) Read(_ context.Context, name string) ([]byte, error) {
	p, err := r.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, notFoundOr(name, err)
	}
	return data, nil
}

// Write replaces the document atomically: the data goes to a hidden temp
// file which is then renamed over the target.
func (r *FSDocumentRepository) Write(_ context.Context, name string, data []byte) error {
	p, err := r.path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.base, ".semester-*.tmp")
	if err != nil {
		return fmt.Errorf("write semester %q: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write semester %q: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync semester %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close semester %q: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("replace semester %q: %w", name, err)
	}
	return nil
}

func (r *FSDocumentRepository) Rename(_ context.Context, oldName, newName string) error {
	from, err := r.path(oldName)
	if err != nil {
		return err
	}
	to, err := r.path(newName)
	if err != nil {
		return err
	}
	if _, err := os.Stat(from); err != nil {
		return notFoundOr(oldName, err)
	}
	if from == to {
		return nil
	}
	if _, err := os.Stat(to); err == nil {
		return fmt.Errorf("semester %q: %w", newName, model.ErrDuplicateKey)
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("rename semester %q: %w", oldName, err)
	}
	return nil
}

func (r *FSDocumentRepository) Delete(_ context.Context, name string) error {
	p, err := r.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return notFoundOr(name, err)
	}
	return nil
}

func notFoundOr(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("semester %q: %w", name, model.ErrNotFound)
	}
	return fmt.Errorf("semester %q: %w", name, err)
}
