// Package sponsor maps sponsorship tiers to epoch-scoped agent effects and
// enforces the one-sponsor-per-agent-per-epoch rule.
package sponsor

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hexclash/arena/internal/model"
	"github.com/hexclash/arena/internal/repository"
	"github.com/hexclash/arena/pkg/arena"
)

// ErrUnknownTier rejects sponsorships outside T1..T5.
var ErrUnknownTier = errors.New("sponsor: unknown tier")

// tierEffects is the deterministic tier table. Higher tiers stack a heal
// with an attack boost; only T5 buys a free defend.
var tierEffects = map[string]arena.SponsorEffect{
	"T1": {HPBoost: 25},
	"T2": {HPBoost: 50},
	"T3": {AttackBoost: 0.10},
	"T4": {HPBoost: 50, AttackBoost: 0.15},
	"T5": {HPBoost: 100, AttackBoost: 0.20, FreeDefend: true},
}

// EffectForTier resolves the tier table.
func EffectForTier(tier string) (arena.SponsorEffect, error) {
	e, ok := tierEffects[tier]
	if !ok {
		return arena.SponsorEffect{}, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	return e, nil
}

// Service persists sponsorships and selects the per-epoch effects.
type Service struct {
	sponsorships repository.SponsorshipRepository
	users        repository.UserRepository
}

// NewService wires the sponsorship service.
func NewService(sponsorships repository.SponsorshipRepository, users repository.UserRepository) *Service {
	return &Service{sponsorships: sponsorships, users: users}
}

// Sponsor debits the sponsor and records the sponsorship for the given
// epoch. Whether it is applied is decided at resolution time; later
// sponsorships for an already-boosted agent stay recorded but unused.
func (s *Service) Sponsor(ctx context.Context, battleID, agentID, sponsor string, amount float64, tier string, epoch int, message string) (*model.Sponsorship, error) {
	if _, err := EffectForTier(tier); err != nil {
		return nil, err
	}
	if err := s.users.AdjustBalance(ctx, sponsor, -amount); err != nil {
		return nil, fmt.Errorf("debit sponsor: %w", err)
	}
	sp, err := s.sponsorships.Create(ctx, &model.Sponsorship{
		BattleID: battleID,
		AgentID:  agentID,
		Sponsor:  sponsor,
		Amount:   amount,
		Tier:     tier,
		Epoch:    epoch,
		Message:  message,
	})
	if err != nil {
		if refundErr := s.users.AdjustBalance(ctx, sponsor, amount); refundErr != nil {
			log.Error().Err(refundErr).Str("sponsor", sponsor).Msg("refund after failed sponsorship insert")
		}
		return nil, fmt.Errorf("create sponsorship: %w", err)
	}
	return sp, nil
}

// EffectsFor returns the effect each agent receives this epoch: the first
// placed sponsorship per agent wins and is marked accepted.
func (s *Service) EffectsFor(ctx context.Context, battleID string, epoch int) (map[string]arena.SponsorEffect, error) {
	list, err := s.sponsorships.ListByBattleEpoch(ctx, battleID, epoch)
	if err != nil {
		return nil, fmt.Errorf("list sponsorships: %w", err)
	}
	return s.selectEffects(ctx, list), nil
}

func (s *Service) selectEffects(ctx context.Context, list []model.Sponsorship) map[string]arena.SponsorEffect {
	effects := make(map[string]arena.SponsorEffect)
	for _, sp := range list {
		if _, taken := effects[sp.AgentID]; taken {
			continue
		}
		e, err := EffectForTier(sp.Tier)
		if err != nil {
			log.Warn().Str("tier", sp.Tier).Str("id", sp.ID).Msg("skipping sponsorship with unknown tier")
			continue
		}
		effects[sp.AgentID] = e
		if !sp.Accepted {
			if err := s.sponsorships.MarkAccepted(ctx, sp.ID); err != nil {
				log.Error().Err(err).Str("id", sp.ID).Msg("mark sponsorship accepted")
			}
		}
	}
	return effects
}
