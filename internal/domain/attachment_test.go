package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind_MediaType(t *testing.T) {
	tests := []struct {
		kind      Kind
		expected  string
		expectErr bool
	}{
		{kind: KindPhoto, expected: "photo"},
		{kind: KindVideo, expected: "video"},
		{kind: KindDocument, expected: "document"},
		{kind: Kind("sticker"), expectErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			mediaType, err := tt.kind.MediaType()
			if tt.expectErr {
				assert.Error(t, err)
				assert.False(t, tt.kind.Valid())
				return
			}
			assert.NoError(t, err)
			assert.True(t, tt.kind.Valid())
			assert.Equal(t, tt.expected, mediaType)
		})
	}
}

func TestBatch_Ordered(t *testing.T) {
	b := Batch{Items: []Attachment{
		{FileID: "c", MessageID: 12},
		{FileID: "a", MessageID: 10},
		{FileID: "b", MessageID: 11},
	}}

	ordered := b.Ordered()
	assert.Equal(t, "a", ordered[0].FileID)
	assert.Equal(t, "b", ordered[1].FileID)
	assert.Equal(t, "c", ordered[2].FileID)
	// the buffered slice keeps arrival order
	assert.Equal(t, "c", b.Items[0].FileID)
}

func TestBatch_Edited(t *testing.T) {
	assert.False(t, Batch{}.Edited())
	assert.False(t, Batch{Items: []Attachment{{MessageID: 1}, {MessageID: 2}}}.Edited())
	assert.True(t, Batch{Items: []Attachment{{MessageID: 1}, {MessageID: 2, Edited: true}}}.Edited())
}
