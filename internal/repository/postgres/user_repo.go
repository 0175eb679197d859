package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hexclash/arena/internal/model"
)

// UserRepo handles spectator account database operations.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// FindByProviderID looks up a user by OAuth provider and provider-specific ID.
func (r *UserRepo) FindByProviderID(ctx context.Context, provider, providerID string) (*model.User, error) {
	var u model.User
	var avatar sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, provider, provider_id, display_name, avatar_url, balance, created_at, updated_at
		 FROM users WHERE provider = $1 AND provider_id = $2`,
		provider, providerID,
	).Scan(&u.ID, &u.Provider, &u.ProviderID, &u.DisplayName, &avatar, &u.Balance, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by provider: %w", err)
	}
	u.AvatarURL = avatar.String
	return &u, nil
}

// FindByID looks up a user by their UUID.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	var avatar sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, provider, provider_id, display_name, avatar_url, balance, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Provider, &u.ProviderID, &u.DisplayName, &avatar, &u.Balance, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	u.AvatarURL = avatar.String
	return &u, nil
}

// Upsert creates a new user or updates the display name and avatar if they
// already exist. Returns the user (with ID populated).
func (r *UserRepo) Upsert(ctx context.Context, provider, providerID, displayName, avatarURL string) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (provider, provider_id, display_name, avatar_url)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (provider, provider_id)
		 DO UPDATE SET display_name = EXCLUDED.display_name, avatar_url = EXCLUDED.avatar_url, updated_at = now()
		 RETURNING id, provider, provider_id, display_name, avatar_url, balance, created_at, updated_at`,
		provider, providerID, displayName, avatarURL,
	).Scan(&u.ID, &u.Provider, &u.ProviderID, &u.DisplayName, &u.AvatarURL, &u.Balance, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &u, nil
}

// UpdateDisplayName updates a user's display name.
func (r *UserRepo) UpdateDisplayName(ctx context.Context, id, displayName string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET display_name = $1, updated_at = now() WHERE id = $2`,
		displayName, id,
	)
	if err != nil {
		return fmt.Errorf("update display name: %w", err)
	}
	return nil
}

// AdjustBalance applies a signed delta to a user's balance. A negative delta
// that would overdraw the account fails.
func (r *UserRepo) AdjustBalance(ctx context.Context, id string, delta float64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET balance = balance + $1, updated_at = now()
		 WHERE id = $2 AND balance + $1 >= 0`,
		delta, id,
	)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust balance rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("adjust balance: insufficient funds or unknown user %s", id)
	}
	return nil
}

// RecordFaucetClaim credits the faucet amount and records the claim in one
// transaction.
func (r *UserRepo) RecordFaucetClaim(ctx context.Context, userID string, amount float64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET balance = balance + $1, updated_at = now() WHERE id = $2`,
		amount, userID,
	); err != nil {
		return fmt.Errorf("faucet credit: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO faucet_claims (user_id, amount) VALUES ($1, $2)`,
		userID, amount,
	); err != nil {
		return fmt.Errorf("faucet record: %w", err)
	}
	return tx.Commit()
}

// LastFaucetClaim returns the user's most recent claim, or nil.
func (r *UserRepo) LastFaucetClaim(ctx context.Context, userID string) (*model.FaucetClaim, error) {
	var c model.FaucetClaim
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount, claimed_at FROM faucet_claims
		 WHERE user_id = $1 ORDER BY claimed_at DESC LIMIT 1`,
		userID,
	).Scan(&c.ID, &c.UserID, &c.Amount, &c.ClaimedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last faucet claim: %w", err)
	}
	return &c, nil
}
