package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hexclash/arena/internal/betting"
	"github.com/hexclash/arena/internal/llm"
	"github.com/hexclash/arena/internal/market"
	"github.com/hexclash/arena/internal/memory"
	"github.com/hexclash/arena/internal/rating"
	"github.com/hexclash/arena/internal/sponsor"
	"github.com/hexclash/arena/pkg/arena"
)

// fixture wires the coordinator against in-memory mocks, the simulated
// market oracle, and an empty sim LLM so every agent falls through to its
// class heuristic.
type fixture struct {
	battles  *mockBattleRepo
	bets     *mockBetRepo
	users    *mockUserRepo
	memories *mockMemoryRepo
	ratings  *mockRatingRepo
	cache    *mockCache
	bcast    *recordingBroadcaster
	coord    *Coordinator
	svc      *BattleService
}

func newFixture(maxEpochs int, userIDs ...string) *fixture {
	f := &fixture{
		battles:  newMockBattleRepo(),
		bets:     newMockBetRepo(),
		users:    newMockUserRepo(userIDs...),
		memories: newMockMemoryRepo(),
		ratings:  newMockRatingRepo(),
		cache:    newMockCache(),
		bcast:    &recordingBroadcaster{},
	}
	betSvc := betting.NewService(f.battles, f.bets, f.users, f.cache)
	spSvc := sponsor.NewService(newMockSponsorshipRepo(), f.users)
	memSvc := memory.NewService(f.memories)
	ratSvc := rating.NewService(f.ratings)

	f.coord = NewCoordinator(
		f.battles, f.cache,
		market.NewSimOracle(42),
		llm.NewSimClient(),
		memSvc, betSvc, spSvc, ratSvc,
		f.bcast, time.Minute,
	)
	f.coord.SetDecisionTimeout(time.Second)
	f.svc = NewBattleService(f.battles, f.cache, betSvc, spSvc, maxEpochs, time.Minute)
	return f
}

func (f *fixture) startBattle(t *testing.T) *arena.BattleState {
	t.Helper()
	state, err := f.svc.StartBattle(context.Background())
	if err != nil {
		t.Fatalf("StartBattle: %v", err)
	}
	return state
}

func TestTickAdvancesEpochAndPersists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(20)
	state := f.startBattle(t)

	if err := f.coord.Tick(ctx, state.ID); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	epochs, _ := f.battles.ListEpochs(ctx, state.ID)
	if len(epochs) != 1 || epochs[0].Epoch != 1 {
		t.Fatalf("expected one sealed epoch record, got %d", len(epochs))
	}

	_, live, err := f.svc.GetBattle(ctx, state.ID)
	if err != nil {
		t.Fatalf("GetBattle: %v", err)
	}
	if live == nil || live.Epoch != 1 {
		t.Fatalf("expected hibernated state at epoch 1, got %+v", live)
	}
	if !f.cache.hasTick(state.ID) {
		t.Fatal("expected the epoch clock to be re-armed")
	}

	seen := f.bcast.typesSeen()
	for _, typ := range []string{arena.EventEpochStart, arena.EventAgentAction, arena.EventEpochEnd} {
		if seen[typ] == 0 {
			t.Errorf("expected at least one %s broadcast, saw none", typ)
		}
	}
	if seen[arena.EventAgentAction] != 5 {
		t.Errorf("expected 5 agent_action events, got %d", seen[arena.EventAgentAction])
	}
}

func TestBettingLocksWhenStormLeavesLoot(t *testing.T) {
	ctx := context.Background()
	// maxEpochs 8: HUNT begins at epoch 2, so combat unlocks on tick two.
	f := newFixture(8, "alice")
	state := f.startBattle(t)
	agentID := state.Agents[0].ID

	if err := f.coord.Tick(ctx, state.ID); err != nil {
		t.Fatalf("tick 1: %v", err)
	}
	if _, err := f.svc.PlaceBet(ctx, state.ID, "alice", agentID, 50); err != nil {
		t.Fatalf("bet during LOOT should be accepted: %v", err)
	}

	if err := f.coord.Tick(ctx, state.ID); err != nil {
		t.Fatalf("tick 2: %v", err)
	}
	battle, _ := f.battles.FindByID(ctx, state.ID)
	if battle.BettingPhase != string(arena.BettingLocked) {
		t.Fatalf("expected betting LOCKED after combat unlocks, got %s", battle.BettingPhase)
	}
	if _, err := f.svc.PlaceBet(ctx, state.ID, "alice", agentID, 50); !errors.Is(err, betting.ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase after lock, got %v", err)
	}
}

func TestBattleRunsToSettlement(t *testing.T) {
	ctx := context.Background()
	bettors := []string{"b1", "b2", "b3", "b4", "b5"}
	f := newFixture(8, bettors...)
	state := f.startBattle(t)

	// One backer per gladiator, so the winner is always covered.
	for i, a := range state.Agents {
		if _, err := f.svc.PlaceBet(ctx, state.ID, bettors[i], a.ID, 100); err != nil {
			t.Fatalf("place bet on %s: %v", a.Name, err)
		}
	}

	var battleDone bool
	for i := 0; i < 12; i++ {
		if err := f.coord.Tick(ctx, state.ID); err != nil {
			t.Fatalf("tick %d: %v", i+1, err)
		}
		b, _ := f.battles.FindByID(ctx, state.ID)
		if b.Status != string(arena.StatusActive) {
			battleDone = true
			break
		}
	}
	if !battleDone {
		t.Fatal("battle never completed within the epoch cap")
	}

	battle, _ := f.battles.FindByID(ctx, state.ID)
	if battle.Status != string(arena.StatusSettled) {
		t.Fatalf("expected SETTLED, got %s", battle.Status)
	}
	if battle.WinnerID == "" {
		t.Fatal("expected a winner to be recorded")
	}
	if battle.BettingPhase != string(arena.BettingSettled) {
		t.Fatalf("expected betting phase SETTLED, got %s", battle.BettingPhase)
	}

	if f.cache.hasState(state.ID) {
		t.Error("hibernated state should be deleted after settlement")
	}
	if f.cache.hasTick(state.ID) {
		t.Error("epoch clock should be cleared after settlement")
	}
	if f.bcast.typesSeen()[arena.EventBattleEnd] == 0 {
		t.Error("expected a battle_end broadcast")
	}

	bets, _ := f.bets.ListByBattle(ctx, state.ID)
	var winnerPayout float64
	for _, b := range bets {
		if !b.Settled {
			t.Errorf("bet %s left unsettled", b.ID)
		}
		if b.AgentID == battle.WinnerID {
			winnerPayout = b.Payout
		}
	}
	if winnerPayout <= 0 {
		t.Errorf("winner's backer should be paid, got %.2f", winnerPayout)
	}

	// Three observations per epoch minimum: actions alone guarantee memory
	// accumulated for every agent.
	if len(f.memories.observations) == 0 {
		t.Error("expected observations recorded during the battle")
	}
	if ratings, _ := f.ratings.Leaderboard(ctx, "composite", 10); len(ratings) == 0 {
		t.Error("expected composite ratings after the battle")
	}
}

func TestTickRollsBackOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(20)
	state := f.startBattle(t)
	f.battles.saveEpochErr = fmt.Errorf("db down")

	err := f.coord.Tick(ctx, state.ID)
	if err == nil {
		t.Fatal("expected tick to fail")
	}
	if errors.Is(err, ErrBattleHung) {
		t.Fatal("first failure must not cancel the battle")
	}

	_, live, _ := f.svc.GetBattle(ctx, state.ID)
	if live == nil || live.Epoch != 0 {
		t.Fatalf("committed state must be untouched after rollback, got epoch %d", live.Epoch)
	}
	if !f.cache.hasTick(state.ID) {
		t.Fatal("expected a retry tick to be scheduled")
	}
}

func TestHungBattleCancelledAndRefunded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(20, "alice")
	state := f.startBattle(t)
	if _, err := f.svc.PlaceBet(ctx, state.ID, "alice", state.Agents[0].ID, 200); err != nil {
		t.Fatalf("place bet: %v", err)
	}
	if got := f.users.balance("alice"); got != 800 {
		t.Fatalf("expected stake debited, balance %.2f", got)
	}

	f.battles.saveEpochErr = fmt.Errorf("db down")
	var err error
	for i := 0; i < maxTickRetries; i++ {
		err = f.coord.Tick(ctx, state.ID)
	}
	if !errors.Is(err, ErrBattleHung) {
		t.Fatalf("expected ErrBattleHung on retry %d, got %v", maxTickRetries, err)
	}

	battle, _ := f.battles.FindByID(ctx, state.ID)
	if battle.Status != string(arena.StatusCancelled) {
		t.Fatalf("expected CANCELLED, got %s", battle.Status)
	}
	if got := f.users.balance("alice"); got != 1000 {
		t.Fatalf("expected full refund, balance %.2f", got)
	}
	if f.cache.hasState(state.ID) || f.cache.hasTick(state.ID) {
		t.Error("cache keys should be cleared for a cancelled battle")
	}
}

func TestTickSkipsNonActiveAndMissingBattles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(20)

	if err := f.coord.Tick(ctx, "no-such-battle"); !errors.Is(err, ErrBattleNotFound) {
		t.Fatalf("expected ErrBattleNotFound, got %v", err)
	}

	state := f.startBattle(t)
	if err := f.battles.UpdateStatus(ctx, state.ID, string(arena.StatusCompleted)); err != nil {
		t.Fatal(err)
	}
	if err := f.coord.Tick(ctx, state.ID); err != nil {
		t.Fatalf("tick on non-active battle should be a no-op, got %v", err)
	}

	if err := f.battles.UpdateStatus(ctx, state.ID, string(arena.StatusActive)); err != nil {
		t.Fatal(err)
	}
	if err := f.cache.DeleteState(ctx, state.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.coord.Tick(ctx, state.ID); !errors.Is(err, ErrStateMissing) {
		t.Fatalf("expected ErrStateMissing, got %v", err)
	}
}

func TestRecoverActiveBattles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(20, "alice")

	healthy := f.startBattle(t)
	lost := f.startBattle(t)
	if _, err := f.svc.PlaceBet(ctx, lost.ID, "alice", lost.Agents[0].ID, 100); err != nil {
		t.Fatalf("place bet: %v", err)
	}

	// Simulate a restart: ticks evaporated, and one battle also lost its
	// hibernated state.
	if err := f.cache.ClearTick(ctx, healthy.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.cache.ClearTick(ctx, lost.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.cache.DeleteState(ctx, lost.ID); err != nil {
		t.Fatal(err)
	}

	if err := f.coord.RecoverActiveBattles(ctx); err != nil {
		t.Fatalf("RecoverActiveBattles: %v", err)
	}

	if !f.cache.hasTick(healthy.ID) {
		t.Error("recoverable battle should have its clock re-armed")
	}
	b, _ := f.battles.FindByID(ctx, lost.ID)
	if b.Status != string(arena.StatusCancelled) {
		t.Errorf("unrecoverable battle should be cancelled, got %s", b.Status)
	}
	if got := f.users.balance("alice"); got != 1000 {
		t.Errorf("expected refund for unrecoverable battle, balance %.2f", got)
	}
}

func TestOddsPublishedAfterTick(t *testing.T) {
	ctx := context.Background()
	f := newFixture(20, "alice")
	state := f.startBattle(t)
	if _, err := f.svc.PlaceBet(ctx, state.ID, "alice", state.Agents[0].ID, 100); err != nil {
		t.Fatalf("place bet: %v", err)
	}

	if err := f.coord.Tick(ctx, state.ID); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if f.bcast.typesSeen()[arena.EventOddsUpdate] == 0 {
		t.Fatal("expected an odds_update broadcast after the epoch")
	}
	raw, err := f.svc.Odds(ctx, state.ID)
	if err != nil {
		t.Fatalf("Odds: %v", err)
	}
	if raw == nil {
		t.Fatal("expected cached odds snapshot")
	}
}
