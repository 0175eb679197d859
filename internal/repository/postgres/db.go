// Package postgres holds the durable side of battle persistence: users and
// balances, battle rows and epoch records, bets, sponsorships, agent memory,
// and ratings. Live battle state lives in Redis; Postgres is the truth the
// coordinator falls back to.
package postgres

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Connect opens a connection pool sized for the epoch tick: every resolved
// epoch fans out into bet, sponsorship, memory, and rating writes for the
// whole roster at once.
func Connect(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}
