package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hexclash/arena/internal/model"
)

// RatingRepo handles skill rating and agent profile database operations.
type RatingRepo struct {
	db *sql.DB
}

// NewRatingRepo creates a RatingRepo.
func NewRatingRepo(db *sql.DB) *RatingRepo {
	return &RatingRepo{db: db}
}

// Get returns one per-category rating, or nil if the agent is unrated.
func (r *RatingRepo) Get(ctx context.Context, agentID, category string) (*model.Rating, error) {
	var m model.Rating
	err := r.db.QueryRowContext(ctx,
		`SELECT agent_id, category, mu, sigma, battles, updated_at
		 FROM ratings WHERE agent_id = $1 AND category = $2`,
		agentID, category,
	).Scan(&m.AgentID, &m.Category, &m.Mu, &m.Sigma, &m.Battles, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rating: %w", err)
	}
	return &m, nil
}

// Upsert writes one per-category rating.
func (r *RatingRepo) Upsert(ctx context.Context, m *model.Rating) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ratings (agent_id, category, mu, sigma, battles)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (agent_id, category)
		 DO UPDATE SET mu = $3, sigma = $4, battles = $5, updated_at = now()`,
		m.AgentID, m.Category, m.Mu, m.Sigma, m.Battles,
	)
	if err != nil {
		return fmt.Errorf("upsert rating: %w", err)
	}
	return nil
}

// SaveHistory appends one per-battle mu delta.
func (r *RatingRepo) SaveHistory(ctx context.Context, h *model.RatingHistory) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO rating_history (agent_id, battle_id, category, mu_delta)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, saved_at`,
		h.AgentID, h.BattleID, h.Category, h.MuDelta,
	).Scan(&h.ID, &h.SavedAt)
	if err != nil {
		return fmt.Errorf("save rating history: %w", err)
	}
	return nil
}

// History returns all recorded mu deltas for one agent and category.
func (r *RatingRepo) History(ctx context.Context, agentID, category string) ([]model.RatingHistory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, agent_id, battle_id, category, mu_delta, saved_at
		 FROM rating_history WHERE agent_id = $1 AND category = $2
		 ORDER BY saved_at`, agentID, category,
	)
	if err != nil {
		return nil, fmt.Errorf("rating history: %w", err)
	}
	defer rows.Close()

	var out []model.RatingHistory
	for rows.Next() {
		var h model.RatingHistory
		if err := rows.Scan(&h.ID, &h.AgentID, &h.BattleID, &h.Category, &h.MuDelta, &h.SavedAt); err != nil {
			return nil, fmt.Errorf("scan rating history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Leaderboard returns the top agents by conservative rating (mu - 3 sigma)
// for one category.
func (r *RatingRepo) Leaderboard(ctx context.Context, category string, limit int) ([]model.Rating, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT agent_id, category, mu, sigma, battles, updated_at
		 FROM ratings WHERE category = $1
		 ORDER BY mu - 3*sigma DESC LIMIT $2`, category, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var out []model.Rating
	for rows.Next() {
		var m model.Rating
		if err := rows.Scan(&m.AgentID, &m.Category, &m.Mu, &m.Sigma, &m.Battles, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetProfile returns an agent's persistent profile, or nil.
func (r *RatingRepo) GetProfile(ctx context.Context, agentID string) (*model.AgentProfile, error) {
	var p model.AgentProfile
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, class, battles, wins, kills, created, last_seen
		 FROM agent_profiles WHERE id = $1`, agentID,
	).Scan(&p.ID, &p.Name, &p.Class, &p.Battles, &p.Wins, &p.Kills, &p.Created, &p.LastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// UpsertProfile writes an agent's cross-battle profile.
func (r *RatingRepo) UpsertProfile(ctx context.Context, p *model.AgentProfile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO agent_profiles (id, name, class, battles, wins, kills)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id)
		 DO UPDATE SET battles = $4, wins = $5, kills = $6, last_seen = now()`,
		p.ID, p.Name, p.Class, p.Battles, p.Wins, p.Kills,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
