package betting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hexclash/arena/internal/model"
	"github.com/hexclash/arena/pkg/arena"
)

type mockBattleRepo struct {
	battle       *model.Battle
	bettingPhase string
}

func (m *mockBattleRepo) Create(context.Context, int, int64) (*model.Battle, error) { return nil, nil }
func (m *mockBattleRepo) FindByID(_ context.Context, id string) (*model.Battle, error) {
	if m.battle != nil && m.battle.ID == id {
		return m.battle, nil
	}
	return nil, nil
}
func (m *mockBattleRepo) ListByStatus(context.Context, ...string) ([]model.Battle, error) {
	return nil, nil
}
func (m *mockBattleRepo) UpdateStatus(context.Context, string, string) error { return nil }
func (m *mockBattleRepo) UpdateBettingPhase(_ context.Context, _, phase string) error {
	m.bettingPhase = phase
	return nil
}
func (m *mockBattleRepo) SetResult(context.Context, string, string, int) error { return nil }
func (m *mockBattleRepo) SaveEpoch(context.Context, string, int, json.RawMessage, json.RawMessage, json.RawMessage) error {
	return nil
}
func (m *mockBattleRepo) ListEpochs(context.Context, string) ([]model.EpochRecord, error) {
	return nil, nil
}

type mockBetRepo struct {
	bets    []model.Bet
	jackpot float64
	nextID  int
}

func (m *mockBetRepo) Create(_ context.Context, battleID, bettor, agentID string, amount float64) (*model.Bet, error) {
	m.nextID++
	b := model.Bet{ID: fmt.Sprintf("bet-%d", m.nextID), BattleID: battleID, Bettor: bettor,
		AgentID: agentID, Amount: amount, PlacedAt: time.Now()}
	m.bets = append(m.bets, b)
	return &b, nil
}
func (m *mockBetRepo) ListByBattle(_ context.Context, battleID string) ([]model.Bet, error) {
	var out []model.Bet
	for _, b := range m.bets {
		if b.BattleID == battleID {
			out = append(out, b)
		}
	}
	return out, nil
}
func (m *mockBetRepo) MarkSettled(_ context.Context, betID string, payout float64) error {
	for i := range m.bets {
		if m.bets[i].ID == betID && !m.bets[i].Settled {
			m.bets[i].Settled = true
			m.bets[i].Payout = payout
		}
	}
	return nil
}
func (m *mockBetRepo) Jackpot(context.Context) (*model.JackpotPool, error) {
	return &model.JackpotPool{Amount: m.jackpot}, nil
}
func (m *mockBetRepo) SetJackpot(_ context.Context, amount float64) error {
	m.jackpot = amount
	return nil
}

type mockUserRepo struct {
	balances map[string]float64
}

func (m *mockUserRepo) FindByID(context.Context, string) (*model.User, error) { return nil, nil }
func (m *mockUserRepo) FindByProviderID(context.Context, string, string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) Upsert(context.Context, string, string, string, string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) UpdateDisplayName(context.Context, string, string) error { return nil }
func (m *mockUserRepo) AdjustBalance(_ context.Context, id string, delta float64) error {
	if m.balances[id]+delta < 0 {
		return errors.New("insufficient funds")
	}
	m.balances[id] += delta
	return nil
}
func (m *mockUserRepo) RecordFaucetClaim(context.Context, string, float64) error { return nil }
func (m *mockUserRepo) LastFaucetClaim(context.Context, string) (*model.FaucetClaim, error) {
	return nil, nil
}

type mockCache struct {
	odds json.RawMessage
}

func (m *mockCache) SetState(context.Context, string, json.RawMessage) error { return nil }
func (m *mockCache) GetState(context.Context, string) (json.RawMessage, error) {
	return nil, nil
}
func (m *mockCache) DeleteState(context.Context, string) error               { return nil }
func (m *mockCache) SetTick(context.Context, string, time.Duration) error    { return nil }
func (m *mockCache) ClearTick(context.Context, string) error                 { return nil }
func (m *mockCache) ExpiredTicks(context.Context) ([]string, error)          { return nil, nil }
func (m *mockCache) SetOdds(_ context.Context, _ string, o json.RawMessage) error {
	m.odds = o
	return nil
}
func (m *mockCache) GetOdds(context.Context, string) (json.RawMessage, error) { return nil, nil }
func (m *mockCache) ActiveBattles(context.Context) ([]string, error)          { return nil, nil }

func newTestService(phase arena.BettingPhase) (*Service, *mockBattleRepo, *mockBetRepo, *mockUserRepo, *mockCache) {
	battles := &mockBattleRepo{battle: &model.Battle{ID: "b1", Status: string(arena.StatusBettingOpen), BettingPhase: string(phase)}}
	bets := &mockBetRepo{}
	users := &mockUserRepo{balances: map[string]float64{"alice": 1000, "bob": 1000}}
	cache := &mockCache{}
	return NewService(battles, bets, users, cache), battles, bets, users, cache
}

func TestPlaceBetDebitsBalance(t *testing.T) {
	svc, _, bets, users, _ := newTestService(arena.BettingOpen)

	b, err := svc.PlaceBet(context.Background(), "b1", "alice", "agent-1", 200)
	if err != nil {
		t.Fatalf("place bet: %v", err)
	}
	if b.Amount != 200 || users.balances["alice"] != 800 {
		t.Errorf("bet %+v, balance %v", b, users.balances["alice"])
	}
	if len(bets.bets) != 1 {
		t.Errorf("bet not persisted")
	}
}

func TestPlaceBetRejectsClosedWindow(t *testing.T) {
	svc, _, _, users, _ := newTestService(arena.BettingLocked)

	if _, err := svc.PlaceBet(context.Background(), "b1", "alice", "agent-1", 50); !errors.Is(err, ErrInvalidPhase) {
		t.Errorf("err = %v, want ErrInvalidPhase", err)
	}
	if users.balances["alice"] != 1000 {
		t.Errorf("rejected bet must not touch the balance: %v", users.balances["alice"])
	}
}

func TestPlaceBetRejectsDust(t *testing.T) {
	svc, _, _, _, _ := newTestService(arena.BettingOpen)
	if _, err := svc.PlaceBet(context.Background(), "b1", "alice", "agent-1", 0.5); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestSettleBattleIdempotent(t *testing.T) {
	svc, battles, bets, users, _ := newTestService(arena.BettingOpen)
	ctx := context.Background()

	svc.PlaceBet(ctx, "b1", "alice", "winner", 500)
	svc.PlaceBet(ctx, "b1", "bob", "loser", 300)

	result, err := svc.SettleBattle(ctx, "b1", "winner")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if result == nil {
		t.Fatal("first settlement should produce a result")
	}
	// winnersPool = 800*0.85 = 680, all to alice, plus topCut 16.
	aliceAfter := users.balances["alice"]
	if aliceAfter <= 500 {
		t.Errorf("alice balance after payout = %v", aliceAfter)
	}
	if battles.bettingPhase != string(arena.BettingSettled) {
		t.Errorf("betting phase = %s, want SETTLED", battles.bettingPhase)
	}

	again, err := svc.SettleBattle(ctx, "b1", "winner")
	if err != nil {
		t.Fatalf("resettle: %v", err)
	}
	if again == nil {
		t.Fatal("re-settling must return the recorded result")
	}
	if again.TotalPool != result.TotalPool {
		t.Errorf("recorded pool = %v, want %v", again.TotalPool, result.TotalPool)
	}
	for id, payout := range result.Payouts {
		if again.Payouts[id] != payout {
			t.Errorf("recorded payout for %s = %v, want %v", id, again.Payouts[id], payout)
		}
	}
	if users.balances["alice"] != aliceAfter {
		t.Errorf("resettlement changed a balance: %v -> %v", aliceAfter, users.balances["alice"])
	}
	for _, b := range bets.bets {
		if !b.Settled {
			t.Errorf("bet %s left unsettled", b.ID)
		}
	}
}

func TestOddsCached(t *testing.T) {
	svc, _, _, _, cache := newTestService(arena.BettingOpen)
	s := oddsState(t, 600, 400)

	odds, err := svc.Odds(context.Background(), s, nil)
	if err != nil {
		t.Fatalf("odds: %v", err)
	}
	if len(odds) != 2 || cache.odds == nil {
		t.Errorf("odds = %+v, cached = %s", odds, cache.odds)
	}
}

func TestRefundAll(t *testing.T) {
	svc, _, bets, users, _ := newTestService(arena.BettingOpen)
	ctx := context.Background()

	svc.PlaceBet(ctx, "b1", "alice", "agent-1", 400)
	if err := svc.RefundAll(ctx, "b1"); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if users.balances["alice"] != 1000 {
		t.Errorf("refund should restore the stake: %v", users.balances["alice"])
	}
	if !bets.bets[0].Settled || bets.bets[0].Payout != 400 {
		t.Errorf("refunded bet should be settled at stake: %+v", bets.bets[0])
	}
}
