package repository_test

import (
	"context"
	"testing"
	"time"

	"topicrelay/internal/domain"
	"topicrelay/internal/repository"
	"topicrelay/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *memory.KVStore {
	t.Helper()
	store, err := memory.NewKVStore(100)
	require.NoError(t, err)
	return store
}

func TestUserRepo_GetUnknownUser(t *testing.T) {
	users := repository.NewUserRepo(newStore(t))

	state, err := users.Get(context.Background(), 7)

	assert.NoError(t, err)
	assert.Equal(t, domain.UserState{ID: 7}, state)
}

func TestUserRepo_Update(t *testing.T) {
	ctx := context.Background()
	users := repository.NewUserRepo(newStore(t))

	_, err := users.Update(ctx, 7, func(u *domain.UserState) { u.Banned = true })
	require.NoError(t, err)

	state, err := users.Get(ctx, 7)
	assert.NoError(t, err)
	assert.True(t, state.Banned)
	assert.False(t, state.Closed)
}

func TestBindingRepo_BindAndUnbind(t *testing.T) {
	ctx := context.Background()
	bindings := repository.NewBindingRepo(newStore(t))

	require.NoError(t, bindings.Bind(ctx, 100, 42))

	threadID, ok, err := bindings.ThreadFor(ctx, 100)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42, threadID)

	userID, ok, err := bindings.UserFor(ctx, 42)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(100), userID)

	require.NoError(t, bindings.Unbind(ctx, 100, 42))

	_, ok, _ = bindings.ThreadFor(ctx, 100)
	assert.False(t, ok)
	_, ok, _ = bindings.UserFor(ctx, 42)
	assert.False(t, ok)
}

func TestBindingRepo_Forwards(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	bindings := repository.NewBindingRepo(store)

	require.NoError(t, bindings.Bind(ctx, 1, 10))
	require.NoError(t, bindings.Bind(ctx, 2, 20))
	require.NoError(t, store.Put(ctx, "thread:user:garbage", "x", 0))

	all, err := bindings.Forwards(ctx)

	// the malformed key name is skipped, the rest decode
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.Binding{{UserID: 1, ThreadID: 10}, {UserID: 2, ThreadID: 20}}, all)
}

func TestTicketRepo_DeleteOwnedBy(t *testing.T) {
	ctx := context.Background()
	tickets := repository.NewTicketRepo(newStore(t))

	for _, ticket := range []domain.Ticket{
		{ID: "a", UserID: 1},
		{ID: "b", UserID: 1},
		{ID: "c", UserID: 2},
	} {
		require.NoError(t, tickets.Create(ctx, ticket, time.Minute))
	}

	removed, err := tickets.DeleteOwnedBy(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, 2, removed)

	all, err := tickets.All(ctx)
	assert.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "c", all[0].ID)

	_, err = tickets.Get(ctx, "a")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBatchRepo_RoundTrip(t *testing.T) {
	ctx := context.Background()
	batches := repository.NewBatchRepo(newStore(t))

	_, ok, err := batches.Get(ctx, "g1")
	assert.NoError(t, err)
	assert.False(t, ok)

	batch := domain.Batch{
		Destination: domain.Destination{ChatID: -100, ThreadID: 5},
		Items:       []domain.Attachment{{Kind: domain.KindPhoto, FileID: "f1", MessageID: 3}},
	}
	require.NoError(t, batches.Save(ctx, "g1", batch, time.Minute))

	got, ok, err := batches.Get(ctx, "g1")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, batch, got)

	require.NoError(t, batches.Delete(ctx, "g1"))
	_, ok, _ = batches.Get(ctx, "g1")
	assert.False(t, ok)
}

func TestSettingsRepo_VerifyTTL(t *testing.T) {
	ctx := context.Background()
	settings := repository.NewSettingsRepo(newStore(t))

	_, ok, err := settings.VerifyTTL(ctx)
	assert.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, settings.SetVerifyTTL(ctx, 72*time.Hour))

	ttl, ok, err := settings.VerifyTTL(ctx)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 72*time.Hour, ttl)
}
