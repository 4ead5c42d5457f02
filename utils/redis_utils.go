package utils

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// Redis only has string type, there is no boolean or int, so we use "1" to
	// represent true
	RedisTrue = "1"

	// Seen ids expire after a week. Reddit's /new listing never reaches that
	// far back, and the DB unique index is the backstop anyway.
	seenPostTTL = 7 * 24 * time.Hour
)

var ctx = context.Background()

// SeenPostCache is a best-effort cache of external post ids that already
// entered the lead store. It can return false negatives (id not cached but
// present in DB); callers must still rely on the store's unique index.
type SeenPostCache struct {
	inner *redis.Client
}

func GetSeenPostCache() *SeenPostCache {
	return &SeenPostCache{
		inner: redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")),
			Password: os.Getenv("REDIS_PASSWD"),
			DB:       0, // use default DB
		})}
}

func seenPostKey(externalPostId string) string {
	return fmt.Sprintf("seen_post_%s", externalPostId)
}

// FilterUnseen returns the subset of ids that are not cached as seen. On any
// redis error it returns all ids, degrading to a DB-only dedup.
func (r *SeenPostCache) FilterUnseen(externalPostIds []string) []string {
	if len(externalPostIds) == 0 {
		return externalPostIds
	}

	keys := []string{}
	for _, id := range externalPostIds {
		keys = append(keys, seenPostKey(id))
	}

	vals, err := r.inner.MGet(ctx, keys...).Result()
	if err != nil {
		return externalPostIds
	}

	unseen := []string{}
	for i, v := range vals {
		if v != RedisTrue {
			unseen = append(unseen, externalPostIds[i])
		}
	}
	return unseen
}

// MarkSeen records ids as seen, best effort.
func (r *SeenPostCache) MarkSeen(externalPostIds []string) {
	for _, id := range externalPostIds {
		r.inner.Set(ctx, seenPostKey(id), RedisTrue, seenPostTTL)
	}
}
