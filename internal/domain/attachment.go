package domain

import (
	"fmt"
	"sort"
)

// Kind is the payload kind of one album fragment
type Kind string

const (
	KindPhoto    Kind = "photo"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

// Valid reports whether k is one of the supported album kinds
func (k Kind) Valid() bool {
	switch k {
	case KindPhoto, KindVideo, KindDocument:
		return true
	}
	return false
}

// MediaType returns the InputMedia type used when sending the album
func (k Kind) MediaType() (string, error) {
	switch k {
	case KindPhoto:
		return "photo", nil
	case KindVideo:
		return "video", nil
	case KindDocument:
		return "document", nil
	}
	return "", fmt.Errorf("unsupported attachment kind %q", k)
}

// Attachment is one fragment of a multi-item payload
type Attachment struct {
	Kind           Kind   `json:"kind"`
	FileID         string `json:"file_id"`
	Caption        string `json:"caption,omitempty"`
	SourceChatID   int64  `json:"source_chat_id"`
	SourceThreadID int    `json:"source_thread_id,omitempty"`
	MessageID      int    `json:"message_id"`
	Edited         bool   `json:"edited,omitempty"`
}

// Destination is where a flushed batch is delivered
type Destination struct {
	ChatID   int64 `json:"chat_id"`
	ThreadID int   `json:"thread_id,omitempty"`
}

// Batch is the buffered state of one album
type Batch struct {
	Destination Destination  `json:"destination"`
	Items       []Attachment `json:"items"`
}

// Edited reports whether any fragment of the batch is an edit
func (b Batch) Edited() bool {
	for _, item := range b.Items {
		if item.Edited {
			return true
		}
	}
	return false
}

// Ordered returns the items sorted by their source message id
func (b Batch) Ordered() []Attachment {
	items := make([]Attachment, len(b.Items))
	copy(items, b.Items)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].MessageID < items[j].MessageID
	})
	return items
}
