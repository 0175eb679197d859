package betting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hexclash/arena/internal/model"
	"github.com/hexclash/arena/internal/repository"
	"github.com/hexclash/arena/pkg/arena"
)

// ErrInvalidPhase rejects bets outside the OPEN betting window.
var ErrInvalidPhase = errors.New("betting: phase is not open")

// ErrInvalidAmount rejects bets under the minimum stake.
var ErrInvalidAmount = errors.New("betting: amount must be at least 1")

// Service accepts bets, prices odds, and settles battles.
type Service struct {
	battles repository.BattleRepository
	bets    repository.BetRepository
	users   repository.UserRepository
	cache   repository.BattleCache
}

// NewService wires the betting service.
func NewService(battles repository.BattleRepository, bets repository.BetRepository, users repository.UserRepository, cache repository.BattleCache) *Service {
	return &Service{battles: battles, bets: bets, users: users, cache: cache}
}

// PlaceBet validates the window and stake, debits the bettor, and persists
// the bet.
func (s *Service) PlaceBet(ctx context.Context, battleID, bettor, agentID string, amount float64) (*model.Bet, error) {
	if amount < 1 {
		return nil, ErrInvalidAmount
	}
	battle, err := s.battles.FindByID(ctx, battleID)
	if err != nil {
		return nil, fmt.Errorf("load battle: %w", err)
	}
	if battle == nil {
		return nil, fmt.Errorf("battle %s not found", battleID)
	}
	if arena.BettingPhase(battle.BettingPhase) != arena.BettingOpen {
		return nil, ErrInvalidPhase
	}

	if err := s.users.AdjustBalance(ctx, bettor, -amount); err != nil {
		return nil, fmt.Errorf("debit bettor: %w", err)
	}
	bet, err := s.bets.Create(ctx, battleID, bettor, agentID, amount)
	if err != nil {
		// Put the stake back; the bet never existed.
		if refundErr := s.users.AdjustBalance(ctx, bettor, amount); refundErr != nil {
			log.Error().Err(refundErr).Str("bettor", bettor).Msg("refund after failed bet insert")
		}
		return nil, fmt.Errorf("create bet: %w", err)
	}
	return bet, nil
}

// Odds recomputes and caches the live odds snapshot for a battle state.
func (s *Service) Odds(ctx context.Context, state *arena.BattleState, winRates map[string]float64) ([]AgentOdds, error) {
	bets, err := s.bets.ListByBattle(ctx, state.ID)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	odds := ComputeOdds(state, bets, winRates)
	if payload, err := json.Marshal(odds); err == nil {
		if err := s.cache.SetOdds(ctx, state.ID, payload); err != nil {
			log.Warn().Err(err).Str("battleId", state.ID).Msg("cache odds")
		}
	}
	return odds, nil
}

// SettleBattle runs settlement exactly once. Re-settling a fully settled
// battle pays nothing and returns the result as it was recorded on the bets.
func (s *Service) SettleBattle(ctx context.Context, battleID, winnerID string) (*Settlement, error) {
	bets, err := s.bets.ListByBattle(ctx, battleID)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}

	unsettled := make([]model.Bet, 0, len(bets))
	for _, b := range bets {
		if !b.Settled {
			unsettled = append(unsettled, b)
		}
	}
	if len(bets) > 0 && len(unsettled) == 0 {
		log.Info().Str("battleId", battleID).Msg("battle already settled")
		return recordedSettlement(bets), nil
	}

	jackpot, err := s.bets.Jackpot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load jackpot: %w", err)
	}

	result := Settle(unsettled, winnerID, jackpot.Amount)
	for _, b := range unsettled {
		payout := result.Payouts[b.ID]
		if err := s.bets.MarkSettled(ctx, b.ID, payout); err != nil {
			return nil, fmt.Errorf("settle bet %s: %w", b.ID, err)
		}
		if payout > 0 {
			if err := s.users.AdjustBalance(ctx, b.Bettor, payout); err != nil {
				log.Error().Err(err).Str("bettor", b.Bettor).Float64("payout", payout).Msg("credit payout")
			}
		}
	}
	if err := s.bets.SetJackpot(ctx, result.NextJackpot); err != nil {
		return nil, fmt.Errorf("carry jackpot: %w", err)
	}
	if err := s.battles.UpdateBettingPhase(ctx, battleID, string(arena.BettingSettled)); err != nil {
		return nil, fmt.Errorf("mark settled: %w", err)
	}

	log.Info().
		Str("battleId", battleID).
		Str("winner", winnerID).
		Float64("pool", result.TotalPool).
		Float64("nextJackpot", result.NextJackpot).
		Msg("battle settled")
	return &result, nil
}

// recordedSettlement rebuilds a settlement from bets already marked settled.
// The per-bet payouts and pool are exact; the fixed splits are recomputed
// from the pool, and the top-bettor bonus stays folded into its payout.
func recordedSettlement(bets []model.Bet) *Settlement {
	out := &Settlement{Payouts: make(map[string]float64, len(bets))}
	for _, b := range bets {
		out.TotalPool += b.Amount
		out.Payouts[b.ID] = b.Payout
	}
	out.Treasury = out.TotalPool * treasuryShare
	out.Burn = out.TotalPool * burnShare
	out.NextJackpot = out.TotalPool * jackpotShare
	return out
}

// RefundAll returns every unsettled stake, used when a battle is cancelled.
func (s *Service) RefundAll(ctx context.Context, battleID string) error {
	bets, err := s.bets.ListByBattle(ctx, battleID)
	if err != nil {
		return fmt.Errorf("list bets: %w", err)
	}
	for _, b := range bets {
		if b.Settled {
			continue
		}
		if err := s.bets.MarkSettled(ctx, b.ID, b.Amount); err != nil {
			return fmt.Errorf("refund bet %s: %w", b.ID, err)
		}
		if err := s.users.AdjustBalance(ctx, b.Bettor, b.Amount); err != nil {
			log.Error().Err(err).Str("bettor", b.Bettor).Msg("credit refund")
		}
	}
	return nil
}
