package repository

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SettingsRepo stores runtime settings changed by staff commands
type SettingsRepo struct {
	kv KVStore
}

// NewSettingsRepo creates a new settings repository
func NewSettingsRepo(kv KVStore) *SettingsRepo {
	return &SettingsRepo{kv: kv}
}

// VerifyTTL returns the staff-configured verification lifetime, if set
func (r *SettingsRepo) VerifyTTL(ctx context.Context) (time.Duration, bool, error) {
	raw, err := r.kv.Get(ctx, keyVerifyTTL)
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("decode verify ttl %q: %w", raw, err)
	}
	return ttl, true, nil
}

// SetVerifyTTL stores the verification lifetime
func (r *SettingsRepo) SetVerifyTTL(ctx context.Context, ttl time.Duration) error {
	return r.kv.Put(ctx, keyVerifyTTL, ttl.String(), 0)
}
