package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

type Redis struct {
	Client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{Client: client}
}

const confirmTTL = 2 * time.Minute

// AcquireConfirm takes the best-effort confirmation lock for an order.
// The foreground return and the background notification can fire at the
// same moment; the loser proceeds anyway and the store's conditional
// mark-paid keeps the transition single-shot. The lock only dedupes the
// duplicate provider query and note in the common case.
func (r *Redis) AcquireConfirm(ctx context.Context, orderID, channel string) (bool, error) {
	key := "confirm_lock:" + orderID
	return r.Client.SetNX(ctx, key, channel, confirmTTL).Result()
}

// ReleaseConfirm drops the confirmation lock. Only the channel that
// acquired it releases; others leave it to expire.
func (r *Redis) ReleaseConfirm(ctx context.Context, orderID, channel string) error {
	key := "confirm_lock:" + orderID
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if val == channel {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}
