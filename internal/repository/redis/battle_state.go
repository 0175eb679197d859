package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key patterns for Redis battle state.
func stateKey(battleID string) string { return "battle:" + battleID + ":state" }
func tickKey(battleID string) string  { return "battle:" + battleID + ":tick" }
func oddsKey(battleID string) string  { return "battle:" + battleID + ":odds" }

const activeSetKey = "battles:active"

// SetState hibernates the full serialized battle state. The key has no TTL:
// a crashed or restarted server recovers mid-battle from here.
func (c *Client) SetState(ctx context.Context, battleID string, state json.RawMessage) error {
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, stateKey(battleID), []byte(state), 0)
	pipe.SAdd(ctx, activeSetKey, battleID)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("set battle state: %w", err)
	}
	return nil
}

// GetState retrieves the hibernated battle state, or nil if absent.
func (c *Client) GetState(ctx context.Context, battleID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, stateKey(battleID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get battle state: %w", err)
	}
	return json.RawMessage(data), nil
}

// DeleteState removes all live keys for a finished battle.
func (c *Client) DeleteState(ctx context.Context, battleID string) error {
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, stateKey(battleID), tickKey(battleID), oddsKey(battleID))
	pipe.SRem(ctx, activeSetKey, battleID)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete battle state: %w", err)
	}
	return nil
}

// tickGracePeriod delays expiry slightly past the scheduled epoch boundary
// so in-flight writes from the previous epoch land first.
const tickGracePeriod = 2 * time.Second

// SetTick arms the epoch clock: a TTL key whose expiry (via keyspace
// notifications) fires the next epoch resolution.
func (c *Client) SetTick(ctx context.Context, battleID string, fireIn time.Duration) error {
	ttl := fireIn + tickGracePeriod
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.rdb.Set(ctx, tickKey(battleID), time.Now().Add(fireIn).Unix(), ttl).Err()
}

// ClearTick disarms the epoch clock.
func (c *Client) ClearTick(ctx context.Context, battleID string) error {
	return c.rdb.Del(ctx, tickKey(battleID)).Err()
}

// ExpiredTicks returns active battles whose tick key has expired, the
// polling fallback for missed keyspace notifications.
func (c *Client) ExpiredTicks(ctx context.Context) ([]string, error) {
	ids, err := c.rdb.SMembers(ctx, activeSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list active battles: %w", err)
	}
	var expired []string
	for _, id := range ids {
		n, err := c.rdb.Exists(ctx, tickKey(id), stateKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("check tick: %w", err)
		}
		// State present but tick gone means the clock fired.
		if n == 1 {
			expired = append(expired, id)
		}
	}
	return expired, nil
}

// SetOdds caches the latest odds snapshot for spectators.
func (c *Client) SetOdds(ctx context.Context, battleID string, odds json.RawMessage) error {
	return c.rdb.Set(ctx, oddsKey(battleID), []byte(odds), 0).Err()
}

// GetOdds retrieves the cached odds snapshot, or nil.
func (c *Client) GetOdds(ctx context.Context, battleID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, oddsKey(battleID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get odds: %w", err)
	}
	return json.RawMessage(data), nil
}

// ActiveBattles returns every battle with hibernated state, used at startup
// to resume battles that were mid-flight when the server stopped.
func (c *Client) ActiveBattles(ctx context.Context) ([]string, error) {
	ids, err := c.rdb.SMembers(ctx, activeSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("active battles: %w", err)
	}
	return ids, nil
}
