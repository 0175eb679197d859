// Package rating turns battle outcomes into per-category TrueSkill updates
// and maintains the cross-battle agent profiles behind the leaderboard.
package rating

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hexclash/arena/internal/model"
	"github.com/hexclash/arena/internal/repository"
	"github.com/hexclash/arena/pkg/arena"
	"github.com/hexclash/arena/pkg/trueskill"
)

// Service applies post-battle rating updates.
type Service struct {
	repo repository.RatingRepository
}

// NewService wires the rating service.
func NewService(repo repository.RatingRepository) *Service {
	return &Service{repo: repo}
}

// CombatScore ranks combat effectiveness: kills dominate, damage dealt
// counts full, damage taken counts half against.
func CombatScore(a *arena.Agent) float64 {
	return float64(a.Kills)*100 + float64(a.DamageDealt) - 0.5*float64(a.DamageTaken)
}

// PredictionAccuracy is the agent's hit ratio, zero with no predictions.
func PredictionAccuracy(a *arena.Agent) float64 {
	if a.PredictionsTotal == 0 {
		return 0
	}
	return float64(a.PredictionsCorrect) / float64(a.PredictionsTotal)
}

// SurvivalOrder places the winner first, then the rest by how long they
// lasted, with HP and ID breaking ties.
func SurvivalOrder(s *arena.BattleState) []*arena.Agent {
	out := make([]*arena.Agent, len(s.Agents))
	copy(out, s.Agents)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.ID == s.WinnerID) != (b.ID == s.WinnerID) {
			return a.ID == s.WinnerID
		}
		if a.EpochsSurvived != b.EpochsSurvived {
			return a.EpochsSurvived > b.EpochsSurvived
		}
		if a.HP != b.HP {
			return a.HP > b.HP
		}
		return a.ID < b.ID
	})
	return out
}

// PredictionOrder places agents by prediction accuracy.
func PredictionOrder(s *arena.BattleState) []*arena.Agent {
	return orderBy(s, func(a *arena.Agent) float64 { return PredictionAccuracy(a) })
}

// CombatOrder places agents by combat score.
func CombatOrder(s *arena.BattleState) []*arena.Agent {
	return orderBy(s, CombatScore)
}

func orderBy(s *arena.BattleState, score func(*arena.Agent) float64) []*arena.Agent {
	out := make([]*arena.Agent, len(s.Agents))
	copy(out, s.Agents)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := score(out[i]), score(out[j])
		if si != sj {
			return si > sj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// UpdateFromBattle runs the three category updates, recomputes composites,
// and refreshes agent profiles. Call once per completed battle.
func (s *Service) UpdateFromBattle(ctx context.Context, state *arena.BattleState) error {
	orders := map[string][]*arena.Agent{
		model.CategorySurvival:   SurvivalOrder(state),
		model.CategoryPrediction: PredictionOrder(state),
		model.CategoryCombat:     CombatOrder(state),
	}

	for category, placed := range orders {
		if err := s.updateCategory(ctx, state.ID, category, placed); err != nil {
			return fmt.Errorf("update %s ratings: %w", category, err)
		}
	}
	for _, a := range state.Agents {
		if err := s.recomputeComposite(ctx, a.ID); err != nil {
			return fmt.Errorf("composite for %s: %w", a.ID, err)
		}
		if err := s.updateProfile(ctx, state, a); err != nil {
			return fmt.Errorf("profile for %s: %w", a.ID, err)
		}
	}
	return nil
}

func (s *Service) updateCategory(ctx context.Context, battleID, category string, placed []*arena.Agent) error {
	before := make([]trueskill.Rating, len(placed))
	rows := make([]*model.Rating, len(placed))
	for i, a := range placed {
		row, err := s.repo.Get(ctx, a.ID, category)
		if err != nil {
			return err
		}
		if row == nil {
			d := trueskill.Default()
			row = &model.Rating{AgentID: a.ID, Category: category, Mu: d.Mu, Sigma: d.Sigma}
		}
		rows[i] = row
		before[i] = trueskill.Rating{Mu: row.Mu, Sigma: row.Sigma}
	}

	after := trueskill.Update(before)
	for i, a := range placed {
		rows[i].Mu = after[i].Mu
		rows[i].Sigma = after[i].Sigma
		rows[i].Battles++
		if err := s.repo.Upsert(ctx, rows[i]); err != nil {
			return err
		}
		if err := s.repo.SaveHistory(ctx, &model.RatingHistory{
			AgentID:  a.ID,
			BattleID: battleID,
			Category: category,
			MuDelta:  after[i].Mu - before[i].Mu,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) recomputeComposite(ctx context.Context, agentID string) error {
	load := func(category string) (trueskill.Rating, int, error) {
		row, err := s.repo.Get(ctx, agentID, category)
		if err != nil {
			return trueskill.Rating{}, 0, err
		}
		if row == nil {
			return trueskill.Default(), 0, nil
		}
		return trueskill.Rating{Mu: row.Mu, Sigma: row.Sigma}, row.Battles, nil
	}

	pred, _, err := load(model.CategoryPrediction)
	if err != nil {
		return err
	}
	combat, _, err := load(model.CategoryCombat)
	if err != nil {
		return err
	}
	surv, battles, err := load(model.CategorySurvival)
	if err != nil {
		return err
	}

	c := trueskill.Composite(pred, combat, surv)
	return s.repo.Upsert(ctx, &model.Rating{
		AgentID:  agentID,
		Category: model.CategoryComposite,
		Mu:       c.Mu,
		Sigma:    c.Sigma,
		Battles:  battles,
	})
}

func (s *Service) updateProfile(ctx context.Context, state *arena.BattleState, a *arena.Agent) error {
	p, err := s.repo.GetProfile(ctx, a.ID)
	if err != nil {
		return err
	}
	if p == nil {
		p = &model.AgentProfile{ID: a.ID, Name: a.Name, Class: string(a.Class)}
	}
	p.Battles++
	p.Kills += a.Kills
	if a.ID == state.WinnerID {
		p.Wins++
	}
	return s.repo.UpsertProfile(ctx, p)
}

// WinRates returns historical win rates for the given agents. Agents with
// no battles are omitted so callers can impute a prior.
func (s *Service) WinRates(ctx context.Context, agentIDs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(agentIDs))
	for _, id := range agentIDs {
		p, err := s.repo.GetProfile(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", id, err)
		}
		if p == nil || p.Battles == 0 {
			continue
		}
		out[id] = float64(p.Wins) / float64(p.Battles)
	}
	return out, nil
}

// LeaderboardEntry pairs a rating row with the agent's persistent profile.
type LeaderboardEntry struct {
	Rating  model.Rating        `json:"rating"`
	Profile *model.AgentProfile `json:"profile,omitempty"`
}

// Leaderboard returns the top rated agents in a category, composite by
// default, with their cross-battle profiles attached.
func (s *Service) Leaderboard(ctx context.Context, category string, limit int) ([]LeaderboardEntry, error) {
	if category == "" {
		category = model.CategoryComposite
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.repo.Leaderboard(ctx, category, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard %s: %w", category, err)
	}
	out := make([]LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		p, err := s.repo.GetProfile(ctx, r.AgentID)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", r.AgentID, err)
		}
		out = append(out, LeaderboardEntry{Rating: r, Profile: p})
	}
	return out, nil
}

// ConfidenceInterval bootstraps a 95% interval over an agent's per-battle
// mu deltas. ok is false with fewer than three battles on record.
func (s *Service) ConfidenceInterval(ctx context.Context, agentID, category string) (trueskill.Interval, bool, error) {
	history, err := s.repo.History(ctx, agentID, category)
	if err != nil {
		return trueskill.Interval{}, false, fmt.Errorf("history: %w", err)
	}
	deltas := make([]float64, len(history))
	for i, h := range history {
		deltas[i] = h.MuDelta
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ci, ok := trueskill.BootstrapCI(deltas, 1000, 0.95, rng)
	if !ok {
		log.Debug().Str("agentId", agentID).Int("battles", len(deltas)).Msg("not enough battles for a confidence interval")
	}
	return ci, ok, nil
}
