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

const transactionLockTTL = 24 * time.Hour

// ClaimTransaction marks a gateway transaction id as seen. Returns false if
// another payment already claimed it; the caller treats that as a duplicate
// submission. The unique index on payments.transaction_id is the durable
// backstop, this lock just rejects replays before they reach the store.
func (r *Redis) ClaimTransaction(ctx context.Context, transactionID string) (bool, error) {
	key := "txn_lock:" + transactionID
	return r.Client.SetNX(ctx, key, "1", transactionLockTTL).Result()
}

// ReleaseTransaction frees a claim after a payment that failed for reasons
// other than duplication, so the client can retry with the same id.
func (r *Redis) ReleaseTransaction(ctx context.Context, transactionID string) error {
	key := "txn_lock:" + transactionID
	_, err := r.Client.Del(ctx, key).Result()
	return err
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}
