package kvstore

import (
	"context"
	"time"
)

// ZMember is one entry of a score-ordered set.
type ZMember struct {
	Member string
	Score  float64
}

// Store is the shared key-value contract the game runs on. It mirrors the
// primitives of a Redis-style store: hash maps, score-ordered sets and plain
// keys, plus a set-if-absent-with-expiry primitive used for locking.
//
// Rank ranges are inclusive on both ends and accept negative indices counted
// from the tail, so (0, -1) spans the whole set.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// SetNX stores value only when key is absent and reports whether the
	// write happened. A positive ttl expires the key afterwards.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	HGet(ctx context.Context, key, field string) (string, bool, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	HLen(ctx context.Context, key string) (int64, error)

	ZAdd(ctx context.Context, key string, members ...ZMember) error
	ZIncrBy(ctx context.Context, key, member string, delta float64) (float64, error)
	ZCard(ctx context.Context, key string) (int64, error)
	ZRangeByRank(ctx context.Context, key string, start, stop int64, reverse bool) ([]ZMember, error)
	ZRemRangeByRank(ctx context.Context, key string, start, stop int64) error
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) error
}
