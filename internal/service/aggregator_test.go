package service

import (
	"context"
	"testing"

	"topicrelay/internal/domain"
	"topicrelay/internal/platform"
	"topicrelay/internal/testutil"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fragment(kind domain.Kind, fileID string, messageID int) domain.Attachment {
	return domain.Attachment{Kind: kind, FileID: fileID, SourceChatID: 7, MessageID: messageID}
}

func TestAggregator_FlushesOneMediaGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	f.onOK("sendMediaGroup", []any{testutil.Message(100), testutil.Message(101), testutil.Message(102)})
	f.onOK("setMessageReaction", true)

	dest := domain.Destination{ChatID: testGroupID, ThreadID: 42}
	require.NoError(t, f.aggregator.Absorb(ctx, "album-1", fragment(domain.KindPhoto, "c", 12), dest))
	require.NoError(t, f.aggregator.Absorb(ctx, "album-1", fragment(domain.KindPhoto, "a", 10), dest))
	require.NoError(t, f.aggregator.Absorb(ctx, "album-1", fragment(domain.KindVideo, "b", 11), dest))
	f.wait(t)

	sends := f.api.CallsFor("sendMediaGroup")
	require.Len(t, sends, 1)
	assert.Equal(t, testGroupID, sends[0]["chat_id"])
	assert.Equal(t, 42, sends[0]["message_thread_id"])
	assert.Equal(t, []platform.InputMedia{
		{Type: "photo", Media: "a"},
		{Type: "video", Media: "b"},
		{Type: "photo", Media: "c"},
	}, sends[0]["media"])

	_, found, err := f.batches.Get(ctx, "album-1")
	require.NoError(t, err)
	assert.False(t, found)

	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.Batches.WithLabelValues("sent")))
	assert.Equal(t, 2.0, promtest.ToFloat64(f.metrics.Batches.WithLabelValues("empty")))

	// every source fragment and every delivered copy is acknowledged
	for _, id := range []int{10, 11, 12} {
		assert.Equal(t, []string{"", domain.EmojiConfirmed}, f.reactions(7, id))
	}
	for _, id := range []int{100, 101, 102} {
		assert.Equal(t, []string{"", domain.EmojiConfirmed}, f.reactions(testGroupID, id))
	}
}

func TestAggregator_LateFragmentStartsNewBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	f.onOK("sendMediaGroup", []any{testutil.Message(100)})
	f.onOK("setMessageReaction", true)

	dest := domain.Destination{ChatID: 7}
	require.NoError(t, f.aggregator.Absorb(ctx, "album-2", fragment(domain.KindDocument, "a", 10), dest))
	f.wait(t)
	require.NoError(t, f.aggregator.Absorb(ctx, "album-2", fragment(domain.KindDocument, "b", 11), dest))
	f.wait(t)

	sends := f.api.CallsFor("sendMediaGroup")
	require.Len(t, sends, 2)
	assert.Equal(t, []platform.InputMedia{{Type: "document", Media: "a"}}, sends[0]["media"])
	assert.Equal(t, []platform.InputMedia{{Type: "document", Media: "b"}}, sends[1]["media"])
}

func TestAggregator_FailedSendKeepsBuffer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	f.onFailure("sendMediaGroup", 400, "Bad Request: wrong file identifier")

	require.NoError(t, f.aggregator.Absorb(ctx, "album-3", fragment(domain.KindPhoto, "a", 10), domain.Destination{ChatID: 7}))
	f.wait(t)

	batch, found, err := f.batches.Get(ctx, "album-3")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, batch.Items, 1)
	assert.Empty(t, f.api.CallsFor("setMessageReaction"))
}

func TestAggregator_FlushWithoutBufferIsNoop(t *testing.T) {
	f := newFixture(t, false)

	f.aggregator.Flush(context.Background(), "missing")

	assert.Empty(t, f.api.Methods())
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.Batches.WithLabelValues("empty")))
}

func TestAggregator_RejectsUnsupportedKind(t *testing.T) {
	f := newFixture(t, false)

	err := f.aggregator.Absorb(context.Background(), "album-4", fragment("sticker", "a", 10), domain.Destination{ChatID: 7})
	assert.Error(t, err)
	f.wait(t)
	assert.Empty(t, f.api.Methods())
}
