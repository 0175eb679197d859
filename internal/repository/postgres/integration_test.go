//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/hexclash/arena/internal/model"
	"github.com/hexclash/arena/internal/testutil"
	"github.com/hexclash/arena/pkg/arena"
)

var testDB *sql.DB

func TestMain(m *testing.M) {
	m.Run()
}

func setup(t *testing.T) {
	t.Helper()
	if testDB == nil {
		testDB = testutil.SetupDB(t)
	}
	testutil.CleanupDB(t, testDB)
}

func createTestBattle(t *testing.T, repo *BattleRepo) *model.Battle {
	t.Helper()
	b, err := repo.Create(context.Background(), 50, 42)
	if err != nil {
		t.Fatalf("create battle: %v", err)
	}
	return b
}

func TestUserBalanceAndFaucet(t *testing.T) {
	setup(t)
	repo := NewUserRepo(testDB)
	ctx := context.Background()

	u, err := repo.Upsert(ctx, "google", "goog-1", "Alice", "")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if u.Balance != 0 {
		t.Fatalf("new user balance = %v, want 0", u.Balance)
	}

	if err := repo.RecordFaucetClaim(ctx, u.ID, 100); err != nil {
		t.Fatalf("faucet: %v", err)
	}
	claim, err := repo.LastFaucetClaim(ctx, u.ID)
	if err != nil || claim == nil {
		t.Fatalf("last claim: %v %v", claim, err)
	}

	if err := repo.AdjustBalance(ctx, u.ID, -40); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if err := repo.AdjustBalance(ctx, u.ID, -100); err == nil {
		t.Fatal("overdraw should fail")
	}
	got, _ := repo.FindByID(ctx, u.ID)
	if got.Balance != 60 {
		t.Fatalf("balance = %v, want 60", got.Balance)
	}
}

func TestBattleLifecycleAndEpochs(t *testing.T) {
	setup(t)
	repo := NewBattleRepo(testDB)
	ctx := context.Background()

	b := createTestBattle(t, repo)
	if b.Status != string(arena.StatusPending) {
		t.Fatalf("status = %s, want PENDING", b.Status)
	}

	if err := repo.UpdateStatus(ctx, b.ID, string(arena.StatusActive)); err != nil {
		t.Fatalf("activate: %v", err)
	}
	doc := json.RawMessage(`{"x":1}`)
	if err := repo.SaveEpoch(ctx, b.ID, 1, doc, doc, doc); err != nil {
		t.Fatalf("save epoch: %v", err)
	}
	if err := repo.SetResult(ctx, b.ID, "agent-1", 1); err != nil {
		t.Fatalf("set result: %v", err)
	}
	if err := repo.UpdateStatus(ctx, b.ID, string(arena.StatusCompleted)); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, err := repo.FindByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.WinnerID != "agent-1" || got.Epoch != 1 || got.EndedAt == nil || got.StartedAt == nil {
		t.Fatalf("unexpected battle row: %+v", got)
	}

	epochs, err := repo.ListEpochs(ctx, b.ID)
	if err != nil || len(epochs) != 1 {
		t.Fatalf("epochs = %v, %v", epochs, err)
	}

	done, err := repo.ListByStatus(ctx, string(arena.StatusCompleted))
	if err != nil || len(done) != 1 {
		t.Fatalf("list by status = %v, %v", done, err)
	}
}

func TestBetsAndJackpot(t *testing.T) {
	setup(t)
	battles := NewBattleRepo(testDB)
	repo := NewBetRepo(testDB)
	ctx := context.Background()

	b := createTestBattle(t, battles)
	bet, err := repo.Create(ctx, b.ID, "alice", "agent-1", 50)
	if err != nil {
		t.Fatalf("create bet: %v", err)
	}
	if bet.Settled || bet.Payout != 0 {
		t.Fatalf("fresh bet should be unsettled: %+v", bet)
	}

	if err := repo.MarkSettled(ctx, bet.ID, 120.5); err != nil {
		t.Fatalf("settle: %v", err)
	}
	// Second settlement attempt must not change the fixed payout.
	if err := repo.MarkSettled(ctx, bet.ID, 999); err != nil {
		t.Fatalf("resettle: %v", err)
	}
	bets, _ := repo.ListByBattle(ctx, b.ID)
	if len(bets) != 1 || bets[0].Payout != 120.5 {
		t.Fatalf("payout = %+v, want 120.5", bets)
	}

	j, err := repo.Jackpot(ctx)
	if err != nil || j.Amount != 0 {
		t.Fatalf("initial jackpot = %v, %v", j, err)
	}
	if err := repo.SetJackpot(ctx, 33.3); err != nil {
		t.Fatalf("set jackpot: %v", err)
	}
	j, _ = repo.Jackpot(ctx)
	if j.Amount != 33.3 {
		t.Fatalf("jackpot = %v, want 33.3", j.Amount)
	}
}

func TestSponsorshipOrdering(t *testing.T) {
	setup(t)
	battles := NewBattleRepo(testDB)
	repo := NewSponsorshipRepo(testDB)
	ctx := context.Background()

	b := createTestBattle(t, battles)
	first, err := repo.Create(ctx, &model.Sponsorship{BattleID: b.ID, AgentID: "agent-1", Sponsor: "alice", Amount: 10, Tier: "T2", Epoch: 3})
	if err != nil {
		t.Fatalf("create sponsorship: %v", err)
	}
	if _, err := repo.Create(ctx, &model.Sponsorship{BattleID: b.ID, AgentID: "agent-1", Sponsor: "bob", Amount: 99, Tier: "T5", Epoch: 3}); err != nil {
		t.Fatalf("create second: %v", err)
	}

	if err := repo.MarkAccepted(ctx, first.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	list, err := repo.ListByBattleEpoch(ctx, b.ID, 3)
	if err != nil || len(list) != 2 {
		t.Fatalf("list = %v, %v", list, err)
	}
	if list[0].Sponsor != "alice" || !list[0].Accepted {
		t.Fatalf("first-placed sponsorship should lead and be accepted: %+v", list[0])
	}
}

func TestMemoryLayers(t *testing.T) {
	setup(t)
	repo := NewMemoryRepo(testDB)
	ctx := context.Background()

	o := &model.Observation{AgentID: "agent-1", BattleID: "b1", Epoch: 2,
		Content: "took heavy sabotage damage", Importance: 8, Tags: []string{"combat", "sabotage"}}
	if err := repo.SaveObservation(ctx, o); err != nil {
		t.Fatalf("save observation: %v", err)
	}
	low := &model.Observation{AgentID: "agent-1", BattleID: "b1", Epoch: 2,
		Content: "moved inward", Importance: 2, Tags: []string{"movement"}}
	if err := repo.SaveObservation(ctx, low); err != nil {
		t.Fatalf("save observation: %v", err)
	}

	tagged, err := repo.ObservationsByTags(ctx, "agent-1", []string{"combat"}, 5)
	if err != nil || len(tagged) != 1 || tagged[0].ID != o.ID {
		t.Fatalf("tag retrieval = %v, %v", tagged, err)
	}

	ref := &model.Reflection{AgentID: "agent-1", Content: "defend against traders",
		Abstraction: 2, ObservationIDs: []string{o.ID}, Tags: []string{"combat"}}
	if err := repo.SaveReflection(ctx, ref); err != nil {
		t.Fatalf("save reflection: %v", err)
	}

	p := &model.Plan{AgentID: "agent-1", Content: "hold centre, defend early",
		Status: model.PlanActive, ReflectionIDs: []string{ref.ID}}
	if err := repo.SavePlan(ctx, p); err != nil {
		t.Fatalf("save plan: %v", err)
	}
	got, err := repo.ActivePlan(ctx, "agent-1")
	if err != nil || got == nil || got.ID != p.ID {
		t.Fatalf("active plan = %v, %v", got, err)
	}
	if err := repo.UpdatePlanStatus(ctx, p.ID, model.PlanApplied); err != nil {
		t.Fatalf("update plan: %v", err)
	}
	if got, _ := repo.ActivePlan(ctx, "agent-1"); got != nil {
		t.Fatalf("applied plan should no longer be active: %+v", got)
	}
}

func TestRatingsAndLeaderboard(t *testing.T) {
	setup(t)
	repo := NewRatingRepo(testDB)
	ctx := context.Background()

	if err := repo.Upsert(ctx, &model.Rating{AgentID: "a", Category: model.CategoryComposite, Mu: 30, Sigma: 2, Battles: 5}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Upsert(ctx, &model.Rating{AgentID: "b", Category: model.CategoryComposite, Mu: 35, Sigma: 8, Battles: 1}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// a: 30-6=24, b: 35-24=11. The certain agent leads.
	lb, err := repo.Leaderboard(ctx, model.CategoryComposite, 10)
	if err != nil || len(lb) != 2 {
		t.Fatalf("leaderboard = %v, %v", lb, err)
	}
	if lb[0].AgentID != "a" {
		t.Fatalf("leaderboard order wrong: %+v", lb)
	}

	h := &model.RatingHistory{AgentID: "a", BattleID: "b1", Category: model.CategoryComposite, MuDelta: 1.2}
	if err := repo.SaveHistory(ctx, h); err != nil {
		t.Fatalf("save history: %v", err)
	}
	hist, err := repo.History(ctx, "a", model.CategoryComposite)
	if err != nil || len(hist) != 1 || hist[0].MuDelta != 1.2 {
		t.Fatalf("history = %v, %v", hist, err)
	}

	if err := repo.UpsertProfile(ctx, &model.AgentProfile{ID: "a", Name: "KRATOS", Class: "WARRIOR", Battles: 5, Wins: 2, Kills: 7}); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}
	p, err := repo.GetProfile(ctx, "a")
	if err != nil || p == nil || p.Wins != 2 {
		t.Fatalf("profile = %v, %v", p, err)
	}
}
