package feed

import (
	"fmt"
	"hash/fnv"
)

// ImageEvent is one generation announced on the public image feed.
// Events are immutable once ingested.
type ImageEvent struct {
	Prompt   string `json:"prompt"`
	ImageURL string `json:"imageURL"`
	Model    string `json:"model"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Seed     *int64 `json:"seed,omitempty"`
}

// DedupeKey returns the deterministic identity of an image event.
// The image URL is unique per generated asset, which makes it the
// natural suppression key for re-broadcasts.
func (e ImageEvent) DedupeKey() string {
	return e.ImageURL
}

// ChatMessage is one turn of the conversation that produced a text event.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TextEvent is one completion announced on the public text feed.
// Events are immutable once ingested.
type TextEvent struct {
	Response string        `json:"response"`
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages,omitempty"`
}

// DedupeKey returns the deterministic identity of a text event.
// Responses have no server-assigned ID, so identity is a content hash.
func (e TextEvent) DedupeKey() string {
	h := fnv.New64a()
	h.Write([]byte(e.Model))
	h.Write([]byte{0})
	h.Write([]byte(e.Response))
	return fmt.Sprintf("%016x", h.Sum64())
}
