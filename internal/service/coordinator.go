package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hexclash/arena/internal/betting"
	"github.com/hexclash/arena/internal/llm"
	"github.com/hexclash/arena/internal/market"
	"github.com/hexclash/arena/internal/memory"
	"github.com/hexclash/arena/internal/rating"
	"github.com/hexclash/arena/internal/repository"
	"github.com/hexclash/arena/internal/sponsor"
	"github.com/hexclash/arena/internal/strategy"
	"github.com/hexclash/arena/pkg/arena"
)

const (
	// maxTickRetries bounds consecutive persist failures before a battle is
	// declared hung and cancelled with refunds.
	maxTickRetries = 3

	// defaultDecisionTimeout bounds each agent's decide call inside a tick.
	defaultDecisionTimeout = 25 * time.Second
)

// Coordinator owns every mutable battle: one epoch tick at a time per
// battle, resolved on a clone so a failed persist rolls back cleanly, then
// hibernated back to the cache until the next tick fires.
type Coordinator struct {
	battles     repository.BattleRepository
	cache       repository.BattleCache
	oracle      market.Oracle
	llmClient   llm.Client
	memory      *memory.Service
	betting     *betting.Service
	sponsors    *sponsor.Service
	ratings     *rating.Service
	broadcaster Broadcaster

	epochInterval   time.Duration
	decisionTimeout time.Duration

	// battleLocks serialises ticks per battle: the keyspace listener and
	// the poller can both fire for the same expiry.
	battleLocks sync.Map

	mu          sync.Mutex
	tickRetries map[string]int
}

// NewCoordinator wires the coordinator.
func NewCoordinator(
	battles repository.BattleRepository,
	cache repository.BattleCache,
	oracle market.Oracle,
	llmClient llm.Client,
	mem *memory.Service,
	bet *betting.Service,
	sp *sponsor.Service,
	rat *rating.Service,
	broadcaster Broadcaster,
	epochInterval time.Duration,
) *Coordinator {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	return &Coordinator{
		battles:         battles,
		cache:           cache,
		oracle:          oracle,
		llmClient:       llmClient,
		memory:          mem,
		betting:         bet,
		sponsors:        sp,
		ratings:         rat,
		broadcaster:     broadcaster,
		epochInterval:   epochInterval,
		decisionTimeout: defaultDecisionTimeout,
		tickRetries:     make(map[string]int),
	}
}

func (c *Coordinator) battleLock(battleID string) *sync.Mutex {
	v, _ := c.battleLocks.LoadOrStore(battleID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Tick resolves one epoch for a battle. Safe to call from the keyspace
// listener and the poller concurrently; the per-battle lock serialises them.
func (c *Coordinator) Tick(ctx context.Context, battleID string) error {
	mu := c.battleLock(battleID)
	mu.Lock()
	defer mu.Unlock()

	battle, err := c.battles.FindByID(ctx, battleID)
	if err != nil {
		return fmt.Errorf("find battle: %w", err)
	}
	if battle == nil {
		return ErrBattleNotFound
	}
	if battle.Status != string(arena.StatusActive) {
		log.Debug().Str("battleId", battleID).Str("status", battle.Status).Msg("skipping tick for non-active battle")
		return nil
	}

	state, err := c.loadState(ctx, battleID)
	if err != nil {
		return err
	}

	// Resolve on a clone: the committed state survives any failure below.
	next := state.Clone()
	snapshot := c.marketSnapshot(ctx)
	decisions := c.fanOutDecisions(ctx, next, snapshot)
	effects := c.sponsorEffects(ctx, battleID, next.Epoch+1)
	rng := rand.New(rand.NewSource(next.Seed + int64(next.Epoch+1)))

	rec := arena.ResolveEpoch(next, decisions, snapshot, effects, rng)

	if err := c.persistEpoch(ctx, battleID, rec); err != nil {
		return c.failTick(ctx, battleID, err)
	}
	c.clearRetries(battleID)

	// Betting locks once the storm leaves LOOT and blades come out.
	if next.BettingPhase == arena.BettingOpen && arena.CombatEnabled(next.CurrentPhase()) {
		next.BettingPhase = arena.BettingLocked
		if err := c.battles.UpdateBettingPhase(ctx, battleID, string(arena.BettingLocked)); err != nil {
			log.Error().Err(err).Str("battleId", battleID).Msg("lock betting phase")
		}
	}

	for _, ev := range rec.Events {
		c.broadcaster.BroadcastBattleEvent(battleID, ev.Type, ev.Data)
	}

	c.memory.RecordEpoch(ctx, next, rec.Events)
	for _, a := range next.Agents {
		if err := c.memory.Reflect(ctx, a.ID); err != nil {
			log.Warn().Err(err).Str("agentId", a.ID).Msg("reflection failed")
		}
	}

	if rec.Complete {
		return c.finishBattle(ctx, next, rec)
	}

	c.publishOdds(ctx, next)
	if err := c.cache.SetState(ctx, battleID, mustMarshal(next)); err != nil {
		return c.failTick(ctx, battleID, fmt.Errorf("hibernate state: %w", err))
	}
	if err := c.cache.SetTick(ctx, battleID, c.epochInterval); err != nil {
		return fmt.Errorf("schedule next tick: %w", err)
	}
	log.Info().Str("battleId", battleID).Int("epoch", next.Epoch).
		Int("alive", len(next.AliveAgents())).Msg("epoch resolved")
	return nil
}

// loadState rehydrates the battle from the cache.
func (c *Coordinator) loadState(ctx context.Context, battleID string) (*arena.BattleState, error) {
	raw, err := c.cache.GetState(ctx, battleID)
	if err != nil {
		return nil, fmt.Errorf("get cached state: %w", err)
	}
	if raw == nil {
		return nil, ErrStateMissing
	}
	var state arena.BattleState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("unmarshal battle state: %w", err)
	}
	return &state, nil
}

// marketSnapshot samples the oracle once per tick. An unreachable oracle
// degrades to a flat market so predictions resolve without HP movement.
func (c *Coordinator) marketSnapshot(ctx context.Context) arena.MarketData {
	snapshot, err := c.oracle.Snapshot(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("oracle unavailable, using flat market")
		return arena.FlatMarket(time.Now().Unix())
	}
	return snapshot
}

// fanOutDecisions asks every alive agent in parallel and joins before the
// resolution pipeline starts. No agent is ever skipped: timeouts and
// unrepairable replies fall through to the class heuristic inside Decide.
func (c *Coordinator) fanOutDecisions(ctx context.Context, state *arena.BattleState, snapshot arena.MarketData) map[string]arena.Decision {
	alive := state.AliveAgents()
	type result struct {
		agentID string
		d       arena.Decision
	}
	results := make(chan result, len(alive))

	var wg sync.WaitGroup
	for _, a := range alive {
		wg.Add(1)
		go func(a *arena.Agent) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, c.decisionTimeout)
			defer cancel()

			mem, err := c.memory.Retrieve(callCtx, a.ID, strategy.SituationTags(state, a))
			if err != nil {
				log.Warn().Err(err).Str("agentId", a.ID).Msg("memory retrieval failed")
			}
			d, err := strategy.ForClass(a.Class, c.llmClient).Decide(callCtx, strategy.Request{
				State:  state,
				Self:   a,
				Market: snapshot,
				Memory: mem,
			})
			if err != nil {
				log.Warn().Err(err).Str("agentId", a.ID).Msg("decide failed, heuristic already substituted")
			}
			results <- result{agentID: a.ID, d: d}
		}(a)
	}
	wg.Wait()
	close(results)

	decisions := make(map[string]arena.Decision, len(alive))
	for r := range results {
		decisions[r.agentID] = r.d
	}
	return decisions
}

func (c *Coordinator) sponsorEffects(ctx context.Context, battleID string, epoch int) map[string]arena.SponsorEffect {
	effects, err := c.sponsors.EffectsFor(ctx, battleID, epoch)
	if err != nil {
		log.Error().Err(err).Str("battleId", battleID).Msg("sponsor effects unavailable this epoch")
		return nil
	}
	return effects
}

func (c *Coordinator) persistEpoch(ctx context.Context, battleID string, rec *arena.EpochRecord) error {
	marketJSON, err := json.Marshal(rec.Market)
	if err != nil {
		return fmt.Errorf("marshal market: %w", err)
	}
	decisionsJSON, err := json.Marshal(rec.Decisions)
	if err != nil {
		return fmt.Errorf("marshal decisions: %w", err)
	}
	eventsJSON, err := json.Marshal(rec.Events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	if err := c.battles.SaveEpoch(ctx, battleID, rec.Epoch, marketJSON, decisionsJSON, eventsJSON); err != nil {
		return fmt.Errorf("save epoch: %w", err)
	}
	return nil
}

// failTick rolls the epoch back (the committed state was never touched),
// reschedules, and cancels the battle past the retry budget.
func (c *Coordinator) failTick(ctx context.Context, battleID string, cause error) error {
	c.mu.Lock()
	c.tickRetries[battleID]++
	retries := c.tickRetries[battleID]
	c.mu.Unlock()

	log.Error().Err(cause).Str("battleId", battleID).Int("retries", retries).Msg("epoch tick failed, rolled back")

	if retries >= maxTickRetries {
		if err := c.cancelHungBattle(ctx, battleID); err != nil {
			log.Error().Err(err).Str("battleId", battleID).Msg("cancel hung battle")
		}
		return fmt.Errorf("%w: %v", ErrBattleHung, cause)
	}
	if err := c.cache.SetTick(ctx, battleID, c.epochInterval); err != nil {
		log.Error().Err(err).Str("battleId", battleID).Msg("reschedule after failed tick")
	}
	return cause
}

func (c *Coordinator) clearRetries(battleID string) {
	c.mu.Lock()
	delete(c.tickRetries, battleID)
	c.mu.Unlock()
}

// cancelHungBattle transitions a hung battle to CANCELLED, refunds every
// open bet, and clears the cache keys.
func (c *Coordinator) cancelHungBattle(ctx context.Context, battleID string) error {
	if err := c.battles.UpdateStatus(ctx, battleID, string(arena.StatusCancelled)); err != nil {
		return fmt.Errorf("mark cancelled: %w", err)
	}
	if err := c.betting.RefundAll(ctx, battleID); err != nil {
		return fmt.Errorf("refund bets: %w", err)
	}
	if err := c.cache.ClearTick(ctx, battleID); err != nil {
		log.Warn().Err(err).Str("battleId", battleID).Msg("clear tick on cancel")
	}
	if err := c.cache.DeleteState(ctx, battleID); err != nil {
		log.Warn().Err(err).Str("battleId", battleID).Msg("delete state on cancel")
	}
	c.broadcaster.BroadcastBattleEvent(battleID, arena.EventBattleEnd, arena.BattleEndData{})
	return nil
}

// finishBattle commits the terminal state: result row, ratings, settlement,
// cache cleanup. The battle_end event is already part of the record.
func (c *Coordinator) finishBattle(ctx context.Context, state *arena.BattleState, rec *arena.EpochRecord) error {
	battleID := state.ID
	if err := c.battles.SetResult(ctx, battleID, rec.WinnerID, rec.Epoch); err != nil {
		return c.failTick(ctx, battleID, fmt.Errorf("record result: %w", err))
	}
	if err := c.battles.UpdateStatus(ctx, battleID, string(arena.StatusCompleted)); err != nil {
		return c.failTick(ctx, battleID, fmt.Errorf("mark completed: %w", err))
	}

	if err := c.ratings.UpdateFromBattle(ctx, state); err != nil {
		log.Error().Err(err).Str("battleId", battleID).Msg("rating update failed")
	}
	if _, err := c.betting.SettleBattle(ctx, battleID, rec.WinnerID); err != nil {
		log.Error().Err(err).Str("battleId", battleID).Msg("settlement failed")
	} else {
		if err := c.battles.UpdateStatus(ctx, battleID, string(arena.StatusSettled)); err != nil {
			log.Error().Err(err).Str("battleId", battleID).Msg("mark settled")
		}
	}

	if err := c.cache.ClearTick(ctx, battleID); err != nil {
		log.Warn().Err(err).Str("battleId", battleID).Msg("clear tick")
	}
	if err := c.cache.DeleteState(ctx, battleID); err != nil {
		log.Warn().Err(err).Str("battleId", battleID).Msg("delete hibernated state")
	}

	log.Info().Str("battleId", battleID).Str("winner", rec.WinnerID).
		Int("epochs", rec.Epoch).Msg("battle completed")
	return nil
}

// publishOdds recomputes the live odds and pushes the odds_update event.
func (c *Coordinator) publishOdds(ctx context.Context, state *arena.BattleState) {
	ids := make([]string, 0, len(state.Agents))
	for _, a := range state.Agents {
		ids = append(ids, a.ID)
	}
	winRates, err := c.ratings.WinRates(ctx, ids)
	if err != nil {
		log.Warn().Err(err).Str("battleId", state.ID).Msg("win rates unavailable for odds")
		winRates = nil
	}
	odds, err := c.betting.Odds(ctx, state, winRates)
	if err != nil {
		log.Warn().Err(err).Str("battleId", state.ID).Msg("odds update failed")
		return
	}
	payload := make(map[string]float64, len(odds))
	for _, o := range odds {
		payload[o.AgentID] = o.Decimal
	}
	c.broadcaster.BroadcastBattleEvent(state.ID, arena.EventOddsUpdate, arena.OddsUpdateData{Odds: payload})
}

// RecoverActiveBattles re-arms the epoch clock for every battle that was
// live when the server went down. Hibernated state lives in Redis with no
// TTL; a battle whose state is gone anyway cannot resume and is cancelled
// with refunds.
func (c *Coordinator) RecoverActiveBattles(ctx context.Context) error {
	battles, err := c.battles.ListByStatus(ctx, string(arena.StatusActive))
	if err != nil {
		return fmt.Errorf("list active battles: %w", err)
	}
	if len(battles) == 0 {
		log.Info().Msg("no active battles to recover")
		return nil
	}
	log.Info().Int("count", len(battles)).Msg("recovering active battles after restart")

	for _, b := range battles {
		raw, err := c.cache.GetState(ctx, b.ID)
		if err != nil {
			log.Error().Err(err).Str("battleId", b.ID).Msg("cache read during recovery")
			continue
		}
		if raw == nil {
			log.Warn().Str("battleId", b.ID).Msg("hibernated state lost, cancelling battle")
			if err := c.cancelHungBattle(ctx, b.ID); err != nil {
				log.Error().Err(err).Str("battleId", b.ID).Msg("cancel unrecoverable battle")
			}
			continue
		}
		if err := c.cache.SetTick(ctx, b.ID, c.epochInterval); err != nil {
			log.Error().Err(err).Str("battleId", b.ID).Msg("re-arm tick during recovery")
			continue
		}
		log.Info().Str("battleId", b.ID).Int("epoch", b.Epoch).Msg("recovered battle")
	}
	return nil
}

// SetDecisionTimeout overrides the per-agent decide budget, used by the CLI
// runner with the simulated strategist.
func (c *Coordinator) SetDecisionTimeout(d time.Duration) { c.decisionTimeout = d }

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		// BattleState contains only marshalable fields; reaching this
		// means a programming error, not a runtime condition.
		log.Panic().Err(err).Msg("marshal battle state")
	}
	return b
}
