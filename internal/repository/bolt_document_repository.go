package repository

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/stemsi/gradebook/internal/model"
	"go.etcd.io/bbolt"
)

var (
	semestersBucket = []byte("Semesters")
	metaBucket      = []byte("SemesterMeta")
)

// BoltDocumentRepository keeps semester documents in a bbolt file. The
// Semesters bucket maps name to document; SemesterMeta maps name to the
// modification time in unix nanoseconds.
type BoltDocumentRepository struct {
	db  *bbolt.DB
	now func() time.Time
}

func NewBoltDocumentRepository(db *bbolt.DB) (*BoltDocumentRepository, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{semestersBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &BoltDocumentRepository{db: db, now: time.Now}, nil
}

func (r *BoltDocumentRepository) List(_ context.Context) ([]model.DocumentInfo, error) {
	var docs []model.DocumentInfo
	err := r.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		return tx.Bucket(semestersBucket).ForEach(func(k, _ []byte) error {
			docs = append(docs, model.DocumentInfo{
				Name:       string(k),
				ModifiedAt: decodeTime(meta.Get(k)),
			})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list semesters: %w", err)
	}
	return docs, nil
}

func (r *BoltDocumentRepository) Read(_ context.Context, name string) ([]byte, error) {
	var data []byte
	err := r.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(semestersBucket).Get([]byte(name))
		if v == nil {
			return fmt.Errorf("semester %q: %w", name, model.ErrNotFound)
		}
		// v is only valid inside the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

func (r *BoltDocumentRepository) Write(_ context.Context, name string, data []byte) error {
	if _, err := model.CleanDocumentName(name); err != nil {
		return err
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		key := []byte(name)
		if err := tx.Bucket(semestersBucket).Put(key, data); err != nil {
			return fmt.Errorf("write semester %q: %w", name, err)
		}
		return tx.Bucket(metaBucket).Put(key, encodeTime(r.now()))
	})
}

func (r *BoltDocumentRepository) Rename(_ context.Context, oldName, newName string) error {
	if _, err := model.CleanDocumentName(newName); err != nil {
		return err
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		docs, meta := tx.Bucket(semestersBucket), tx.Bucket(metaBucket)
		from, to := []byte(oldName), []byte(newName)

		data := docs.Get(from)
		if data == nil {
			return fmt.Errorf("semester %q: %w", oldName, model.ErrNotFound)
		}
		if oldName == newName {
			return nil
		}
		if docs.Get(to) != nil {
			return fmt.Errorf("semester %q: %w", newName, model.ErrDuplicateKey)
		}

		data = append([]byte(nil), data...)
		mtime := append([]byte(nil), meta.Get(from)...)
		if err := docs.Put(to, data); err != nil {
			return err
		}
		if err := meta.Put(to, mtime); err != nil {
			return err
		}
		if err := docs.Delete(from); err != nil {
			return err
		}
		return meta.Delete(from)
	})
}

func (r *BoltDocumentRepository) Delete(_ context.Context, name string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		key := []byte(name)
		docs := tx.Bucket(semestersBucket)
		if docs.Get(key) == nil {
			return fmt.Errorf("semester %q: %w", name, model.ErrNotFound)
		}
		if err := docs.Delete(key); err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Delete(key)
	})
}

func encodeTime(t time.Time) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(t.UnixNano()))
	return buf
}

func decodeTime(b []byte) time.Time {
	if len(b) != 8 {
		return time.Time{}
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(b)))
}
