// Package presence tracks which users are currently connected to a channel.
package presence

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// onlineWindow is how recently a user must have checked in to count as online.
const onlineWindow = 30 * time.Second

// Store tracks per-channel online users.
type Store interface {
	Heartbeat(ctx context.Context, channel, uid string) error
	Online(ctx context.Context, channel string) ([]string, error)
}

// RedisStore keeps one sorted set per channel, scored by last-seen unix time.
// Stale members are pruned on read and the whole set expires if the channel
// goes quiet.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Heartbeat records that uid is active in the channel right now.
func (s *RedisStore) Heartbeat(ctx context.Context, channel, uid string) error {
	key := "presence:" + channel
	now := time.Now().Unix()

	if err := s.rdb.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: uid}).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, key, 2*onlineWindow).Err()
}

// Online returns the uids seen within the online window, pruning stale ones.
func (s *RedisStore) Online(ctx context.Context, channel string) ([]string, error) {
	key := "presence:" + channel
	threshold := time.Now().Add(-onlineWindow).Unix()

	s.rdb.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(threshold, 10))
	return s.rdb.ZRange(ctx, key, 0, -1).Result()
}

// NoopStore is used when Redis is not configured; everyone reads as offline.
type NoopStore struct{}

func (NoopStore) Heartbeat(ctx context.Context, channel, uid string) error { return nil }

func (NoopStore) Online(ctx context.Context, channel string) ([]string, error) {
	return []string{}, nil
}
