package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"topicrelay/internal/domain"
)

// BatchRepo stores album buffers under batch:<groupID>
type BatchRepo struct {
	kv KVStore
}

// NewBatchRepo creates a new batch repository
func NewBatchRepo(kv KVStore) *BatchRepo {
	return &BatchRepo{kv: kv}
}

// Get returns the buffered batch, if any
func (r *BatchRepo) Get(ctx context.Context, groupID string) (domain.Batch, bool, error) {
	raw, err := r.kv.Get(ctx, batchKey(groupID))
	if errors.Is(err, ErrNotFound) {
		return domain.Batch{}, false, nil
	}
	if err != nil {
		return domain.Batch{}, false, err
	}
	var batch domain.Batch
	if err := json.Unmarshal([]byte(raw), &batch); err != nil {
		return domain.Batch{}, false, fmt.Errorf("decode batch %s: %w", groupID, err)
	}
	return batch, true, nil
}

// Save overwrites the buffer and resets its lifetime
func (r *BatchRepo) Save(ctx context.Context, groupID string, batch domain.Batch, ttl time.Duration) error {
	raw, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encode batch %s: %w", groupID, err)
	}
	return r.kv.Put(ctx, batchKey(groupID), string(raw), ttl)
}

// Delete consumes the buffer
func (r *BatchRepo) Delete(ctx context.Context, groupID string) error {
	return r.kv.Delete(ctx, batchKey(groupID))
}
