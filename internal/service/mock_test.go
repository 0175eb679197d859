package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hexclash/arena/internal/model"
)

// mockBattleRepo implements repository.BattleRepository for testing.
type mockBattleRepo struct {
	mu      sync.Mutex
	battles map[string]*model.Battle
	epochs  map[string][]model.EpochRecord
	seq     int

	saveEpochErr error // when set, SaveEpoch fails
}

func newMockBattleRepo() *mockBattleRepo {
	return &mockBattleRepo{
		battles: make(map[string]*model.Battle),
		epochs:  make(map[string][]model.EpochRecord),
	}
}

func (m *mockBattleRepo) Create(_ context.Context, maxEpochs int, seed int64) (*model.Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	b := &model.Battle{
		ID:           fmt.Sprintf("battle-%d", m.seq),
		Status:       "PENDING",
		BettingPhase: "OPEN",
		MaxEpochs:    maxEpochs,
		Seed:         seed,
		CreatedAt:    time.Now(),
	}
	m.battles[b.ID] = b
	return b, nil
}

func (m *mockBattleRepo) FindByID(_ context.Context, id string) (*model.Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.battles[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *mockBattleRepo) ListByStatus(_ context.Context, statuses ...string) ([]model.Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Battle
	for _, b := range m.battles {
		for _, s := range statuses {
			if b.Status == s {
				result = append(result, *b)
				break
			}
		}
	}
	return result, nil
}

func (m *mockBattleRepo) UpdateStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.battles[id]; ok {
		b.Status = status
	}
	return nil
}

func (m *mockBattleRepo) UpdateBettingPhase(_ context.Context, id, phase string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.battles[id]; ok {
		b.BettingPhase = phase
	}
	return nil
}

func (m *mockBattleRepo) SetResult(_ context.Context, id, winnerID string, epoch int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.battles[id]; ok {
		b.WinnerID = winnerID
		b.Epoch = epoch
		now := time.Now()
		b.EndedAt = &now
	}
	return nil
}

func (m *mockBattleRepo) SaveEpoch(_ context.Context, battleID string, epoch int, market, decisions, events json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveEpochErr != nil {
		return m.saveEpochErr
	}
	m.epochs[battleID] = append(m.epochs[battleID], model.EpochRecord{
		ID:        fmt.Sprintf("epoch-%s-%d", battleID, epoch),
		BattleID:  battleID,
		Epoch:     epoch,
		Market:    market,
		Decisions: decisions,
		Events:    events,
		CreatedAt: time.Now(),
	})
	if b, ok := m.battles[battleID]; ok {
		b.Epoch = epoch
	}
	return nil
}

func (m *mockBattleRepo) ListEpochs(_ context.Context, battleID string) ([]model.EpochRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.EpochRecord(nil), m.epochs[battleID]...), nil
}

// mockBetRepo implements repository.BetRepository for testing.
type mockBetRepo struct {
	mu      sync.Mutex
	bets    map[string]*model.Bet
	jackpot float64
	seq     int
}

func newMockBetRepo() *mockBetRepo {
	return &mockBetRepo{bets: make(map[string]*model.Bet)}
}

func (m *mockBetRepo) Create(_ context.Context, battleID, bettor, agentID string, amount float64) (*model.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	b := &model.Bet{
		ID:       fmt.Sprintf("bet-%d", m.seq),
		BattleID: battleID,
		Bettor:   bettor,
		AgentID:  agentID,
		Amount:   amount,
		PlacedAt: time.Now(),
	}
	m.bets[b.ID] = b
	return b, nil
}

func (m *mockBetRepo) ListByBattle(_ context.Context, battleID string) ([]model.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Bet
	for _, b := range m.bets {
		if b.BattleID == battleID {
			result = append(result, *b)
		}
	}
	return result, nil
}

func (m *mockBetRepo) MarkSettled(_ context.Context, betID string, payout float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bets[betID]; ok {
		b.Settled = true
		b.Payout = payout
	}
	return nil
}

func (m *mockBetRepo) Jackpot(_ context.Context) (*model.JackpotPool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &model.JackpotPool{Amount: m.jackpot, UpdatedAt: time.Now()}, nil
}

func (m *mockBetRepo) SetJackpot(_ context.Context, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jackpot = amount
	return nil
}

// mockUserRepo implements repository.UserRepository for testing.
type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMockUserRepo(ids ...string) *mockUserRepo {
	m := &mockUserRepo{users: make(map[string]*model.User)}
	for _, id := range ids {
		m.users[id] = &model.User{ID: id, DisplayName: id, Balance: 1000}
	}
	return m
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) FindByProviderID(_ context.Context, provider, providerID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Provider == provider && u.ProviderID == providerID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) Upsert(_ context.Context, provider, providerID, displayName, avatarURL string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Provider == provider && u.ProviderID == providerID {
			u.DisplayName = displayName
			cp := *u
			return &cp, nil
		}
	}
	u := &model.User{
		ID:          fmt.Sprintf("user-%d", len(m.users)+1),
		Provider:    provider,
		ProviderID:  providerID,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
		Balance:     1000,
		CreatedAt:   time.Now(),
	}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) UpdateDisplayName(_ context.Context, id, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.DisplayName = displayName
	}
	return nil
}

func (m *mockUserRepo) AdjustBalance(_ context.Context, id string, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %s not found", id)
	}
	if u.Balance+delta < 0 {
		return fmt.Errorf("insufficient balance")
	}
	u.Balance += delta
	return nil
}

func (m *mockUserRepo) RecordFaucetClaim(_ context.Context, userID string, amount float64) error {
	return nil
}

func (m *mockUserRepo) LastFaucetClaim(_ context.Context, userID string) (*model.FaucetClaim, error) {
	return nil, nil
}

func (m *mockUserRepo) balance(id string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].Balance
}

// mockSponsorshipRepo implements repository.SponsorshipRepository for testing.
type mockSponsorshipRepo struct {
	mu           sync.Mutex
	sponsorships map[string]*model.Sponsorship
	seq          int
}

func newMockSponsorshipRepo() *mockSponsorshipRepo {
	return &mockSponsorshipRepo{sponsorships: make(map[string]*model.Sponsorship)}
}

func (m *mockSponsorshipRepo) Create(_ context.Context, s *model.Sponsorship) (*model.Sponsorship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	cp := *s
	cp.ID = fmt.Sprintf("sponsorship-%d", m.seq)
	cp.PlacedAt = time.Now()
	m.sponsorships[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *mockSponsorshipRepo) ListByBattleEpoch(_ context.Context, battleID string, epoch int) ([]model.Sponsorship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Sponsorship
	for _, s := range m.sponsorships {
		if s.BattleID == battleID && s.Epoch == epoch {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockSponsorshipRepo) MarkAccepted(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sponsorships[id]; ok {
		s.Accepted = true
	}
	return nil
}

// mockMemoryRepo implements repository.MemoryRepository for testing.
type mockMemoryRepo struct {
	mu           sync.Mutex
	observations []model.Observation
	reflections  []model.Reflection
	plans        []model.Plan
}

func newMockMemoryRepo() *mockMemoryRepo { return &mockMemoryRepo{} }

func (m *mockMemoryRepo) SaveObservation(_ context.Context, o *model.Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observations = append(m.observations, *o)
	return nil
}

func (m *mockMemoryRepo) SaveReflection(_ context.Context, r *model.Reflection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reflections = append(m.reflections, *r)
	return nil
}

func (m *mockMemoryRepo) SavePlan(_ context.Context, p *model.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans = append(m.plans, *p)
	return nil
}

func (m *mockMemoryRepo) UpdatePlanStatus(_ context.Context, planID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.plans {
		if m.plans[i].ID == planID {
			m.plans[i].Status = status
		}
	}
	return nil
}

func (m *mockMemoryRepo) RecentObservations(_ context.Context, agentID string, limit int) ([]model.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Observation
	for i := len(m.observations) - 1; i >= 0 && len(result) < limit; i-- {
		if m.observations[i].AgentID == agentID {
			result = append(result, m.observations[i])
		}
	}
	return result, nil
}

func (m *mockMemoryRepo) ObservationsByTags(_ context.Context, agentID string, tags []string, limit int) ([]model.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[t] = true
	}
	var result []model.Observation
	for i := len(m.observations) - 1; i >= 0 && len(result) < limit; i-- {
		o := m.observations[i]
		if o.AgentID != agentID {
			continue
		}
		for _, t := range o.Tags {
			if want[t] {
				result = append(result, o)
				break
			}
		}
	}
	return result, nil
}

func (m *mockMemoryRepo) ReflectionsByAgent(_ context.Context, agentID string, limit int) ([]model.Reflection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Reflection
	for i := len(m.reflections) - 1; i >= 0 && len(result) < limit; i-- {
		if m.reflections[i].AgentID == agentID {
			result = append(result, m.reflections[i])
		}
	}
	return result, nil
}

func (m *mockMemoryRepo) ActivePlan(_ context.Context, agentID string) (*model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.plans) - 1; i >= 0; i-- {
		if m.plans[i].AgentID == agentID && m.plans[i].Status == model.PlanActive {
			cp := m.plans[i]
			return &cp, nil
		}
	}
	return nil, nil
}

// mockRatingRepo implements repository.RatingRepository for testing.
type mockRatingRepo struct {
	mu       sync.Mutex
	ratings  map[string]*model.Rating // key: agentID:category
	history  []model.RatingHistory
	profiles map[string]*model.AgentProfile
}

func newMockRatingRepo() *mockRatingRepo {
	return &mockRatingRepo{
		ratings:  make(map[string]*model.Rating),
		profiles: make(map[string]*model.AgentProfile),
	}
}

func (m *mockRatingRepo) Get(_ context.Context, agentID, category string) (*model.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.ratings[agentID+":"+category]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *mockRatingRepo) Upsert(_ context.Context, r *model.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.ratings[r.AgentID+":"+r.Category] = &cp
	return nil
}

func (m *mockRatingRepo) SaveHistory(_ context.Context, h *model.RatingHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, *h)
	return nil
}

func (m *mockRatingRepo) History(_ context.Context, agentID, category string) ([]model.RatingHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.RatingHistory
	for _, h := range m.history {
		if h.AgentID == agentID && h.Category == category {
			result = append(result, h)
		}
	}
	return result, nil
}

func (m *mockRatingRepo) Leaderboard(_ context.Context, category string, limit int) ([]model.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Rating
	for _, r := range m.ratings {
		if r.Category == category && len(result) < limit {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockRatingRepo) GetProfile(_ context.Context, agentID string) (*model.AgentProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[agentID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockRatingRepo) UpsertProfile(_ context.Context, p *model.AgentProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

// mockCache implements repository.BattleCache for testing. Tick TTLs are
// recorded but never fire; tests drive ticks directly.
type mockCache struct {
	mu     sync.Mutex
	states map[string]json.RawMessage
	ticks  map[string]time.Duration
	odds   map[string]json.RawMessage
}

func newMockCache() *mockCache {
	return &mockCache{
		states: make(map[string]json.RawMessage),
		ticks:  make(map[string]time.Duration),
		odds:   make(map[string]json.RawMessage),
	}
}

func (c *mockCache) SetState(_ context.Context, battleID string, state json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[battleID] = state
	return nil
}

func (c *mockCache) GetState(_ context.Context, battleID string) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[battleID], nil
}

func (c *mockCache) DeleteState(_ context.Context, battleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, battleID)
	return nil
}

func (c *mockCache) SetTick(_ context.Context, battleID string, fireIn time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks[battleID] = fireIn
	return nil
}

func (c *mockCache) ClearTick(_ context.Context, battleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ticks, battleID)
	return nil
}

func (c *mockCache) ExpiredTicks(_ context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []string
	for id := range c.states {
		if _, armed := c.ticks[id]; !armed {
			result = append(result, id)
		}
	}
	return result, nil
}

func (c *mockCache) SetOdds(_ context.Context, battleID string, odds json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.odds[battleID] = odds
	return nil
}

func (c *mockCache) GetOdds(_ context.Context, battleID string) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.odds[battleID], nil
}

func (c *mockCache) ActiveBattles(_ context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []string
	for id := range c.states {
		result = append(result, id)
	}
	return result, nil
}

func (c *mockCache) hasTick(battleID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.ticks[battleID]
	return ok
}

func (c *mockCache) hasState(battleID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.states[battleID]
	return ok
}

// recordingBroadcaster captures broadcast events for assertions.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
}

type broadcastEvent struct {
	BattleID string
	Type     string
	Data     any
}

func (b *recordingBroadcaster) BroadcastBattleEvent(battleID string, eventType string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcastEvent{BattleID: battleID, Type: eventType, Data: data})
}

func (b *recordingBroadcaster) typesSeen() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	seen := make(map[string]int)
	for _, ev := range b.events {
		seen[ev.Type]++
	}
	return seen
}
