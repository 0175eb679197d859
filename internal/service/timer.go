package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/hexclash/arena/internal/repository"
)

// TickListener listens for Redis keyspace notifications on expired tick keys
// and advances a battle's epoch when its clock fires. Also runs a polling
// fallback to catch expirations if keyspace notifications are unavailable.
type TickListener struct {
	rdb         *redis.Client
	coordinator *Coordinator
	cache       repository.BattleCache
}

// NewTickListener creates a TickListener.
func NewTickListener(rdb *redis.Client, coordinator *Coordinator, cache repository.BattleCache) *TickListener {
	return &TickListener{rdb: rdb, coordinator: coordinator, cache: cache}
}

// Start begins listening for expired key events and runs a polling fallback.
func (t *TickListener) Start(ctx context.Context) {
	go t.listenKeyspace(ctx)
	t.pollExpiredTicks(ctx)
}

// listenKeyspace subscribes to Redis keyspace notifications for expired keys.
func (t *TickListener) listenKeyspace(ctx context.Context) {
	pubsub := t.rdb.PSubscribe(ctx, "__keyevent@0__:expired")
	defer pubsub.Close()

	log.Info().Msg("Tick listener started, listening for expired keys")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			t.handleExpiry(ctx, msg.Payload)
		}
	}
}

// pollExpiredTicks periodically checks for battles whose tick key is gone
// while their state lingers and advances them.
func (t *TickListener) pollExpiredTicks(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	log.Info().Msg("Epoch clock poller started (10s interval)")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Epoch clock poller stopped")
			return
		case <-ticker.C:
			t.checkExpiredTicks(ctx)
		}
	}
}

// checkExpiredTicks finds battles with live state but no armed tick and
// resolves their next epoch.
func (t *TickListener) checkExpiredTicks(ctx context.Context) {
	battleIDs, err := t.cache.ExpiredTicks(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to scan for expired ticks")
		return
	}
	if len(battleIDs) > 0 {
		log.Info().Int("count", len(battleIDs)).Msg("Poller found expired ticks")
	}
	for _, id := range battleIDs {
		log.Info().Str("battleId", id).Msg("Poller advancing expired battle")
		if err := t.coordinator.Tick(ctx, id); err != nil {
			log.Error().Err(err).Str("battleId", id).Msg("Epoch tick failed from poller")
		}
	}
}

// handleExpiry processes an expired key. Only acts on battle tick keys.
func (t *TickListener) handleExpiry(ctx context.Context, key string) {
	if !strings.HasPrefix(key, "battle:") || !strings.HasSuffix(key, ":tick") {
		return
	}

	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 {
		return
	}
	battleID := parts[1]

	log.Info().Str("battleId", battleID).Msg("Epoch clock fired, advancing battle")
	if err := t.coordinator.Tick(ctx, battleID); err != nil {
		log.Error().Err(err).Str("battleId", battleID).Msg("Epoch tick failed after clock expiry")
	}
}
