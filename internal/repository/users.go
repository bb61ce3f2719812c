package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"topicrelay/internal/domain"
)

// UserRepo stores user flags under user:<id>
type UserRepo struct {
	kv KVStore
}

// NewUserRepo creates a new user repository
func NewUserRepo(kv KVStore) *UserRepo {
	return &UserRepo{kv: kv}
}

// Get returns the user's state. Unknown users get a zero state carrying their id.
func (r *UserRepo) Get(ctx context.Context, userID int64) (domain.UserState, error) {
	raw, err := r.kv.Get(ctx, userKey(userID))
	if errors.Is(err, ErrNotFound) {
		return domain.UserState{ID: userID}, nil
	}
	if err != nil {
		return domain.UserState{}, err
	}

	var state domain.UserState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return domain.UserState{}, fmt.Errorf("decode user %d: %w", userID, err)
	}
	state.ID = userID
	return state, nil
}

// Save writes the user's state without expiry
func (r *UserRepo) Save(ctx context.Context, state domain.UserState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode user %d: %w", state.ID, err)
	}
	return r.kv.Put(ctx, userKey(state.ID), string(raw), 0)
}

// Update loads, mutates and saves the user's state.
// The store has no compare-and-swap, so a concurrent writer may win.
func (r *UserRepo) Update(ctx context.Context, userID int64, fn func(*domain.UserState)) (domain.UserState, error) {
	state, err := r.Get(ctx, userID)
	if err != nil {
		return domain.UserState{}, err
	}
	fn(&state)
	if err := r.Save(ctx, state); err != nil {
		return domain.UserState{}, err
	}
	return state, nil
}
