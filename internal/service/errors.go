package service

import "errors"

var (
	// ErrBattleNotFound means the battle id resolves to nothing durable.
	ErrBattleNotFound = errors.New("battle not found")

	// ErrBattleNotActive rejects epoch ticks and wagering surfaces for
	// battles outside the ACTIVE lifecycle state.
	ErrBattleNotActive = errors.New("battle is not active")

	// ErrStateMissing means the hibernated state vanished from the cache
	// while the battle row still claims to be live.
	ErrStateMissing = errors.New("live battle state missing from cache")

	// ErrBattleHung marks a battle whose epoch tick failed past the retry
	// budget; the coordinator cancels it and refunds all bets.
	ErrBattleHung = errors.New("battle hung after repeated tick failures")
)
