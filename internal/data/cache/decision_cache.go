// Package cache holds the Redis-backed redelivery cache of recorded decisions.
// The Postgres ledger stays the source of truth; a miss or a Redis failure
// only sends the caller to the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/jit-funding-engine/internal/domain/ledger"
)

const keyPrefix = "jit:decision:"

// DecisionCache stores finalized ledger rows by authorization id
type DecisionCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewDecisionCache creates a cache over client. A nil client disables caching.
func NewDecisionCache(logger *slog.Logger, client *redis.Client, ttl time.Duration) *DecisionCache {
	return &DecisionCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Key returns the Redis key of an authorization decision
func Key(authorizationID string) string {
	return keyPrefix + authorizationID
}

// Get returns the cached row for authorizationID. found is false on a miss.
func (c *DecisionCache) Get(ctx context.Context, authorizationID string) (*ledger.Transaction, bool, error) {
	if c.client == nil {
		return nil, false, nil
	}

	val, err := c.client.Get(ctx, Key(authorizationID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached decision: %w", err)
	}

	var txn ledger.Transaction
	if err := json.Unmarshal([]byte(val), &txn); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached decision: %w", err)
	}
	return &txn, true, nil
}

// Set caches a finalized row
func (c *DecisionCache) Set(ctx context.Context, txn *ledger.Transaction) error {
	if c.client == nil {
		return nil
	}

	b, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("failed to encode decision: %w", err)
	}
	if err := c.client.Set(ctx, Key(txn.AuthorizationID), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache decision: %w", err)
	}
	return nil
}

// Delete evicts a decision, used after the ledger row changed
func (c *DecisionCache) Delete(ctx context.Context, authorizationID string) error {
	if c.client == nil {
		return nil
	}

	if err := c.client.Del(ctx, Key(authorizationID)).Err(); err != nil {
		c.logger.Warn("Failed to evict cached decision",
			"authorization_id", authorizationID,
			"error", err)
		return fmt.Errorf("failed to evict cached decision: %w", err)
	}
	return nil
}
