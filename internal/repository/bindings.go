package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"topicrelay/internal/domain"
)

// BindingRepo stores the user↔thread directory as two entries per binding:
// thread:user:<userID> → threadID and thread:id:<threadID> → userID
type BindingRepo struct {
	kv KVStore
}

// NewBindingRepo creates a new binding repository
func NewBindingRepo(kv KVStore) *BindingRepo {
	return &BindingRepo{kv: kv}
}

// ThreadFor reads the forward entry
func (r *BindingRepo) ThreadFor(ctx context.Context, userID int64) (int, bool, error) {
	raw, err := r.kv.Get(ctx, forwardKey(userID))
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	threadID, err := strconv.Atoi(raw)
	if err != nil || threadID == 0 {
		return 0, false, fmt.Errorf("corrupt forward entry for user %d: %q", userID, raw)
	}
	return threadID, true, nil
}

// UserFor reads the reverse entry
func (r *BindingRepo) UserFor(ctx context.Context, threadID int) (int64, bool, error) {
	raw, err := r.kv.Get(ctx, reverseKey(threadID))
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt reverse entry for thread %d: %q", threadID, raw)
	}
	return userID, true, nil
}

// Bind writes the forward entry, then the reverse entry
func (r *BindingRepo) Bind(ctx context.Context, userID int64, threadID int) error {
	if err := r.kv.Put(ctx, forwardKey(userID), strconv.Itoa(threadID), 0); err != nil {
		return fmt.Errorf("write forward entry: %w", err)
	}
	return r.SetReverse(ctx, threadID, userID)
}

// SetReverse writes only the reverse entry
func (r *BindingRepo) SetReverse(ctx context.Context, threadID int, userID int64) error {
	if err := r.kv.Put(ctx, reverseKey(threadID), strconv.FormatInt(userID, 10), 0); err != nil {
		return fmt.Errorf("write reverse entry: %w", err)
	}
	return nil
}

// Unbind deletes both entries of a binding. Both deletes are attempted.
func (r *BindingRepo) Unbind(ctx context.Context, userID int64, threadID int) error {
	errFwd := r.kv.Delete(ctx, forwardKey(userID))
	errRev := r.kv.Delete(ctx, reverseKey(threadID))
	return errors.Join(errFwd, errRev)
}

// Forwards scans every forward entry
func (r *BindingRepo) Forwards(ctx context.Context) ([]domain.Binding, error) {
	keys, err := r.kv.List(ctx, prefixThreadForward, DefaultListLimit)
	if err != nil {
		return nil, fmt.Errorf("list forward entries: %w", err)
	}

	bindings := make([]domain.Binding, 0, len(keys))
	for _, key := range keys {
		userID, ok := userIDFromForwardKey(key)
		if !ok {
			continue
		}
		threadID, found, err := r.ThreadFor(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !found {
			// expired or deleted between list and get
			continue
		}
		bindings = append(bindings, domain.Binding{UserID: userID, ThreadID: threadID})
	}
	return bindings, nil
}
