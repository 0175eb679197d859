package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hexclash/arena/internal/model"
)

// SponsorshipRepo handles sponsorship database operations.
type SponsorshipRepo struct {
	db *sql.DB
}

// NewSponsorshipRepo creates a SponsorshipRepo.
func NewSponsorshipRepo(db *sql.DB) *SponsorshipRepo {
	return &SponsorshipRepo{db: db}
}

// Create inserts a sponsorship.
func (r *SponsorshipRepo) Create(ctx context.Context, s *model.Sponsorship) (*model.Sponsorship, error) {
	var out model.Sponsorship
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO sponsorships (battle_id, agent_id, sponsor, amount, tier, epoch, accepted, message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, battle_id, agent_id, sponsor, amount, tier, epoch, accepted, message, placed_at`,
		s.BattleID, s.AgentID, s.Sponsor, s.Amount, s.Tier, s.Epoch, s.Accepted, nullStr(s.Message),
	).Scan(&out.ID, &out.BattleID, &out.AgentID, &out.Sponsor, &out.Amount, &out.Tier, &out.Epoch, &out.Accepted, &out.Message, &out.PlacedAt)
	if err != nil {
		return nil, fmt.Errorf("create sponsorship: %w", err)
	}
	return &out, nil
}

// ListByBattleEpoch returns sponsorships for one battle epoch, first-placed
// first, which is the acceptance order.
func (r *SponsorshipRepo) ListByBattleEpoch(ctx context.Context, battleID string, epoch int) ([]model.Sponsorship, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, battle_id, agent_id, sponsor, amount, tier, epoch, accepted, COALESCE(message, ''), placed_at
		 FROM sponsorships WHERE battle_id = $1 AND epoch = $2
		 ORDER BY placed_at, id`, battleID, epoch,
	)
	if err != nil {
		return nil, fmt.Errorf("list sponsorships: %w", err)
	}
	defer rows.Close()

	var out []model.Sponsorship
	for rows.Next() {
		var s model.Sponsorship
		if err := rows.Scan(&s.ID, &s.BattleID, &s.AgentID, &s.Sponsor, &s.Amount, &s.Tier, &s.Epoch, &s.Accepted, &s.Message, &s.PlacedAt); err != nil {
			return nil, fmt.Errorf("scan sponsorship: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MarkAccepted flips the accepted flag.
func (r *SponsorshipRepo) MarkAccepted(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sponsorships SET accepted = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("accept sponsorship: %w", err)
	}
	return nil
}
