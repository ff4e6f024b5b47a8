package achem

import (
	"hash/fnv"

	"github.com/google/uuid"
)

func NewRandomID() string {
	return uuid.New().String()
}

// deriveSeed mixes an environment seed with a stable per-cell key so each
// cell gets its own reproducible stream.
func deriveSeed(seed int64, key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return seed ^ int64(h.Sum64())
}
