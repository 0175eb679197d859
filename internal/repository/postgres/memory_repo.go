package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hexclash/arena/internal/model"
)

// MemoryRepo handles the three-layer agent memory store.
type MemoryRepo struct {
	db *sql.DB
}

// NewMemoryRepo creates a MemoryRepo.
func NewMemoryRepo(db *sql.DB) *MemoryRepo {
	return &MemoryRepo{db: db}
}

// SaveObservation appends one raw observation.
func (r *MemoryRepo) SaveObservation(ctx context.Context, o *model.Observation) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO observations (agent_id, battle_id, epoch, content, importance, tags)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		o.AgentID, o.BattleID, o.Epoch, o.Content, o.Importance, pq.Array(o.Tags),
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("save observation: %w", err)
	}
	return nil
}

// SaveReflection appends one synthesised reflection.
func (r *MemoryRepo) SaveReflection(ctx context.Context, ref *model.Reflection) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO reflections (agent_id, content, abstraction, observation_ids, tags)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		ref.AgentID, ref.Content, ref.Abstraction, pq.Array(ref.ObservationIDs), pq.Array(ref.Tags),
	).Scan(&ref.ID, &ref.CreatedAt)
	if err != nil {
		return fmt.Errorf("save reflection: %w", err)
	}
	return nil
}

// SavePlan appends one plan.
func (r *MemoryRepo) SavePlan(ctx context.Context, p *model.Plan) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO plans (agent_id, content, status, reflection_ids)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		p.AgentID, p.Content, p.Status, pq.Array(p.ReflectionIDs),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

// UpdatePlanStatus transitions a plan's lifecycle status.
func (r *MemoryRepo) UpdatePlanStatus(ctx context.Context, planID, status string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE plans SET status = $1, updated_at = now() WHERE id = $2`, status, planID)
	if err != nil {
		return fmt.Errorf("update plan status: %w", err)
	}
	return nil
}

// RecentObservations returns the newest observations for an agent.
func (r *MemoryRepo) RecentObservations(ctx context.Context, agentID string, limit int) ([]model.Observation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, agent_id, battle_id, epoch, content, importance, tags, created_at
		 FROM observations WHERE agent_id = $1
		 ORDER BY created_at DESC LIMIT $2`, agentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent observations: %w", err)
	}
	return scanObservations(rows)
}

// ObservationsByTags returns the highest-importance observations whose tag
// set intersects the given tags.
func (r *MemoryRepo) ObservationsByTags(ctx context.Context, agentID string, tags []string, limit int) ([]model.Observation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, agent_id, battle_id, epoch, content, importance, tags, created_at
		 FROM observations WHERE agent_id = $1 AND tags && $2
		 ORDER BY importance DESC, created_at DESC LIMIT $3`,
		agentID, pq.Array(tags), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("observations by tags: %w", err)
	}
	return scanObservations(rows)
}

func scanObservations(rows *sql.Rows) ([]model.Observation, error) {
	defer rows.Close()
	var out []model.Observation
	for rows.Next() {
		var o model.Observation
		if err := rows.Scan(&o.ID, &o.AgentID, &o.BattleID, &o.Epoch, &o.Content, &o.Importance, pq.Array(&o.Tags), &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ReflectionsByAgent returns the newest reflections for an agent.
func (r *MemoryRepo) ReflectionsByAgent(ctx context.Context, agentID string, limit int) ([]model.Reflection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, agent_id, content, abstraction, observation_ids, tags, created_at
		 FROM reflections WHERE agent_id = $1
		 ORDER BY created_at DESC LIMIT $2`, agentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("reflections by agent: %w", err)
	}
	defer rows.Close()

	var out []model.Reflection
	for rows.Next() {
		var ref model.Reflection
		if err := rows.Scan(&ref.ID, &ref.AgentID, &ref.Content, &ref.Abstraction, pq.Array(&ref.ObservationIDs), pq.Array(&ref.Tags), &ref.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reflection: %w", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// ActivePlan returns the agent's most recent active plan, or nil.
func (r *MemoryRepo) ActivePlan(ctx context.Context, agentID string) (*model.Plan, error) {
	var p model.Plan
	err := r.db.QueryRowContext(ctx,
		`SELECT id, agent_id, content, status, reflection_ids, created_at, updated_at
		 FROM plans WHERE agent_id = $1 AND status = $2
		 ORDER BY created_at DESC LIMIT 1`,
		agentID, model.PlanActive,
	).Scan(&p.ID, &p.AgentID, &p.Content, &p.Status, pq.Array(&p.ReflectionIDs), &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active plan: %w", err)
	}
	return &p, nil
}
