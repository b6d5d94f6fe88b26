package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/gradebook/internal/model"
)

const (
	redisDocumentsKey = "gradebook:semesters"
	redisMtimeKey     = "gradebook:semesters:mtime"
)

// RedisDocumentRepository keeps documents in a hash keyed by name and their
// modification times in a sorted set scored by unix microseconds, which a
// float64 score holds exactly.
type RedisDocumentRepository struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisDocumentRepository(rdb *redis.Client) *RedisDocumentRepository {
	return &RedisDocumentRepository{rdb: rdb, now: time.Now}
}

func (r *RedisDocumentRepository) List(ctx context.Context) ([]model.DocumentInfo, error) {
	entries, err := r.rdb.ZRangeWithScores(ctx, redisMtimeKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list semesters: %w", err)
	}
	docs := make([]model.DocumentInfo, 0, len(entries))
	for _, z := range entries {
		name, _ := z.Member.(string)
		docs = append(docs, model.DocumentInfo{Name: name, ModifiedAt: time.UnixMicro(int64(z.Score))})
	}
	return docs, nil
}

func (r *RedisDocumentRepository) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := r.rdb.HGet(ctx, redisDocumentsKey, name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("semester %q: %w", name, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read semester %q: %w", name, err)
	}
	return data, nil
}

func (r *RedisDocumentRepository) Write(ctx context.Context, name string, data []byte) error {
	if _, err := model.CleanDocumentName(name); err != nil {
		return err
	}
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, redisDocumentsKey, name, data)
		pipe.ZAdd(ctx, redisMtimeKey, redis.Z{Score: float64(r.now().UnixMicro()), Member: name})
		return nil
	})
	if err != nil {
		return fmt.Errorf("write semester %q: %w", name, err)
	}
	return nil
}

// Rename runs optimistically under WATCH so a concurrent writer aborts it
// instead of being overwritten.
func (r *RedisDocumentRepository) Rename(ctx context.Context, oldName, newName string) error {
	if _, err := model.CleanDocumentName(newName); err != nil {
		return err
	}
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.HGet(ctx, redisDocumentsKey, oldName).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("semester %q: %w", oldName, model.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if oldName == newName {
			return nil
		}
		taken, err := tx.HExists(ctx, redisDocumentsKey, newName).Result()
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("semester %q: %w", newName, model.ErrDuplicateKey)
		}
		score, err := tx.ZScore(ctx, redisMtimeKey, oldName).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, redisDocumentsKey, newName, data)
			pipe.HDel(ctx, redisDocumentsKey, oldName)
			pipe.ZRem(ctx, redisMtimeKey, oldName)
			pipe.ZAdd(ctx, redisMtimeKey, redis.Z{Score: score, Member: newName})
			return nil
		})
		return err
	}, redisDocumentsKey, redisMtimeKey)
	if err != nil && !errors.Is(err, model.ErrNotFound) && !errors.Is(err, model.ErrDuplicateKey) {
		return fmt.Errorf("rename semester %q: %w", oldName, err)
	}
	return err
}

func (r *RedisDocumentRepository) Delete(ctx context.Context, name string) error {
	var removed *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.HDel(ctx, redisDocumentsKey, name)
		pipe.ZRem(ctx, redisMtimeKey, name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete semester %q: %w", name, err)
	}
	if removed.Val() == 0 {
		return fmt.Errorf("semester %q: %w", name, model.ErrNotFound)
	}
	return nil
}
