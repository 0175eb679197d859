package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hexclash/arena/internal/model"
)

// BetRepo handles wager and jackpot database operations.
type BetRepo struct {
	db *sql.DB
}

// NewBetRepo creates a BetRepo.
func NewBetRepo(db *sql.DB) *BetRepo {
	return &BetRepo{db: db}
}

// Create inserts a bet. Bets are append-only; settlement only flips the
// settled flag and fixes the payout.
func (r *BetRepo) Create(ctx context.Context, battleID, bettor, agentID string, amount float64) (*model.Bet, error) {
	var b model.Bet
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO bets (battle_id, bettor, agent_id, amount)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, battle_id, bettor, agent_id, amount, placed_at, settled, payout`,
		battleID, bettor, agentID, amount,
	).Scan(&b.ID, &b.BattleID, &b.Bettor, &b.AgentID, &b.Amount, &b.PlacedAt, &b.Settled, &b.Payout)
	if err != nil {
		return nil, fmt.Errorf("create bet: %w", err)
	}
	return &b, nil
}

// ListByBattle returns all bets for a battle in placement order.
func (r *BetRepo) ListByBattle(ctx context.Context, battleID string) ([]model.Bet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, battle_id, bettor, agent_id, amount, placed_at, settled, payout
		 FROM bets WHERE battle_id = $1 ORDER BY placed_at, id`, battleID,
	)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	defer rows.Close()

	var bets []model.Bet
	for rows.Next() {
		var b model.Bet
		if err := rows.Scan(&b.ID, &b.BattleID, &b.Bettor, &b.AgentID, &b.Amount, &b.PlacedAt, &b.Settled, &b.Payout); err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

// MarkSettled fixes a bet's payout. Already-settled bets are left alone so
// settlement stays idempotent.
func (r *BetRepo) MarkSettled(ctx context.Context, betID string, payout float64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE bets SET settled = true, payout = $1 WHERE id = $2 AND NOT settled`,
		payout, betID,
	)
	if err != nil {
		return fmt.Errorf("settle bet: %w", err)
	}
	return nil
}

// Jackpot returns the carried pool, creating the singleton row on first use.
func (r *BetRepo) Jackpot(ctx context.Context) (*model.JackpotPool, error) {
	var j model.JackpotPool
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO jackpot (id, amount) VALUES (1, 0)
		 ON CONFLICT (id) DO UPDATE SET id = jackpot.id
		 RETURNING amount, updated_at`,
	).Scan(&j.Amount, &j.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("load jackpot: %w", err)
	}
	return &j, nil
}

// SetJackpot overwrites the carried pool.
func (r *BetRepo) SetJackpot(ctx context.Context, amount float64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO jackpot (id, amount) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET amount = $1, updated_at = now()`,
		amount,
	)
	if err != nil {
		return fmt.Errorf("set jackpot: %w", err)
	}
	return nil
}
