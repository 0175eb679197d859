package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/hexclash/arena/internal/model"
	"github.com/hexclash/arena/pkg/arena"
)

// BattleRepo handles battle and epoch database operations.
type BattleRepo struct {
	db *sql.DB
}

// NewBattleRepo creates a BattleRepo.
func NewBattleRepo(db *sql.DB) *BattleRepo {
	return &BattleRepo{db: db}
}

// Create inserts a new pending battle.
func (r *BattleRepo) Create(ctx context.Context, maxEpochs int, seed int64) (*model.Battle, error) {
	var b model.Battle
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO battles (status, betting_phase, max_epochs, seed)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, status, betting_phase, epoch, max_epochs, seed, created_at`,
		string(arena.StatusPending), string(arena.BettingOpen), maxEpochs, seed,
	).Scan(&b.ID, &b.Status, &b.BettingPhase, &b.Epoch, &b.MaxEpochs, &b.Seed, &b.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create battle: %w", err)
	}
	return &b, nil
}

// FindByID looks up a battle.
func (r *BattleRepo) FindByID(ctx context.Context, id string) (*model.Battle, error) {
	var b model.Battle
	var winner sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, status, betting_phase, epoch, max_epochs, winner_id, seed, created_at, started_at, ended_at
		 FROM battles WHERE id = $1`, id,
	).Scan(&b.ID, &b.Status, &b.BettingPhase, &b.Epoch, &b.MaxEpochs, &winner, &b.Seed, &b.CreatedAt, &b.StartedAt, &b.EndedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find battle: %w", err)
	}
	b.WinnerID = winner.String
	return &b, nil
}

// ListByStatus returns battles in any of the given statuses, newest first.
func (r *BattleRepo) ListByStatus(ctx context.Context, statuses ...string) ([]model.Battle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, status, betting_phase, epoch, max_epochs, winner_id, seed, created_at, started_at, ended_at
		 FROM battles WHERE status = ANY($1) ORDER BY created_at DESC`,
		pq.Array(statuses),
	)
	if err != nil {
		return nil, fmt.Errorf("list battles: %w", err)
	}
	defer rows.Close()

	var battles []model.Battle
	for rows.Next() {
		var b model.Battle
		var winner sql.NullString
		if err := rows.Scan(&b.ID, &b.Status, &b.BettingPhase, &b.Epoch, &b.MaxEpochs, &winner, &b.Seed, &b.CreatedAt, &b.StartedAt, &b.EndedAt); err != nil {
			return nil, fmt.Errorf("scan battle: %w", err)
		}
		b.WinnerID = winner.String
		battles = append(battles, b)
	}
	return battles, rows.Err()
}

// UpdateStatus advances the battle lifecycle. Timestamps follow the status:
// ACTIVE stamps started_at, terminal statuses stamp ended_at.
func (r *BattleRepo) UpdateStatus(ctx context.Context, id, status string) error {
	var err error
	switch arena.Status(status) {
	case arena.StatusActive:
		_, err = r.db.ExecContext(ctx,
			`UPDATE battles SET status = $1, started_at = now() WHERE id = $2`, status, id)
	case arena.StatusCompleted, arena.StatusCancelled, arena.StatusSettled:
		_, err = r.db.ExecContext(ctx,
			`UPDATE battles SET status = $1, ended_at = COALESCE(ended_at, now()) WHERE id = $2`, status, id)
	default:
		_, err = r.db.ExecContext(ctx,
			`UPDATE battles SET status = $1 WHERE id = $2`, status, id)
	}
	if err != nil {
		return fmt.Errorf("update battle status: %w", err)
	}
	return nil
}

// UpdateBettingPhase moves the betting window.
func (r *BattleRepo) UpdateBettingPhase(ctx context.Context, id, phase string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE battles SET betting_phase = $1 WHERE id = $2`, phase, id)
	if err != nil {
		return fmt.Errorf("update betting phase: %w", err)
	}
	return nil
}

// SetResult records the winner and final epoch.
func (r *BattleRepo) SetResult(ctx context.Context, id, winnerID string, epoch int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE battles SET winner_id = $1, epoch = $2 WHERE id = $3`,
		nullStr(winnerID), epoch, id)
	if err != nil {
		return fmt.Errorf("set battle result: %w", err)
	}
	return nil
}

// SaveEpoch seals one epoch record and bumps the battle's epoch counter in
// a single transaction.
func (r *BattleRepo) SaveEpoch(ctx context.Context, battleID string, epoch int, market, decisions, events json.RawMessage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO epochs (battle_id, epoch, market, decisions, events)
		 VALUES ($1, $2, $3, $4, $5)`,
		battleID, epoch, market, decisions, events,
	); err != nil {
		return fmt.Errorf("insert epoch: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE battles SET epoch = $1 WHERE id = $2`, epoch, battleID,
	); err != nil {
		return fmt.Errorf("bump battle epoch: %w", err)
	}
	return tx.Commit()
}

// ListEpochs returns a battle's sealed epochs in order.
func (r *BattleRepo) ListEpochs(ctx context.Context, battleID string) ([]model.EpochRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, battle_id, epoch, market, decisions, events, created_at
		 FROM epochs WHERE battle_id = $1 ORDER BY epoch`, battleID,
	)
	if err != nil {
		return nil, fmt.Errorf("list epochs: %w", err)
	}
	defer rows.Close()

	var records []model.EpochRecord
	for rows.Next() {
		var e model.EpochRecord
		if err := rows.Scan(&e.ID, &e.BattleID, &e.Epoch, &e.Market, &e.Decisions, &e.Events, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan epoch: %w", err)
		}
		records = append(records, e)
	}
	return records, rows.Err()
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
