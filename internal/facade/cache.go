package facade

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// StatusSource is the subset of Client the cache wraps.
type StatusSource interface {
	CheckStatus(ctx context.Context, transactionID string) (TransactionStatus, error)
}

// terminalTTLFactor stretches the TTL for terminal snapshots, which can no
// longer change remotely.
const terminalTTLFactor = 20

// StatusCache is a redis read-through cache for transaction status snapshots.
// It shields the backend facade from UI polling bursts; the tracker's own
// polling loop bypasses it and always reads fresh.
type StatusCache struct {
	R      *redis.Client
	Source StatusSource
	TTL    time.Duration
	Logger zerolog.Logger
}

// CheckStatus returns a cached snapshot when present, otherwise reads through
// to the source and stores the result. Cache errors degrade to direct reads.
func (c StatusCache) CheckStatus(ctx context.Context, transactionID string) (TransactionStatus, error) {
	if c.R == nil || c.TTL <= 0 {
		return c.Source.CheckStatus(ctx, transactionID)
	}
	key := statusKey(transactionID)
	if raw, err := c.R.Get(ctx, key).Bytes(); err == nil {
		var cached TransactionStatus
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		// Corrupt entry: drop it and fall through to the source.
		_ = c.R.Del(ctx, key).Err()
	}

	status, err := c.Source.CheckStatus(ctx, transactionID)
	if err != nil {
		return TransactionStatus{}, err
	}
	encoded, err := json.Marshal(status)
	if err != nil {
		return status, nil
	}
	ttl := c.TTL
	if status.Status.Terminal() {
		ttl = c.TTL * terminalTTLFactor
	}
	if err := c.R.Set(ctx, key, encoded, ttl).Err(); err != nil {
		c.Logger.Warn().Err(err).Str("transaction_id", transactionID).Msg("cache status write failed")
	}
	return status, nil
}

func statusKey(transactionID string) string {
	return fmt.Sprintf("payments:status:%s", transactionID)
}
