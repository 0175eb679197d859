// Command runbattle plays one battle start to finish in-process, without
// Postgres or Redis, and prints the play-by-play. Useful for tuning agent
// prompts and watching heuristics fight.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hexclash/arena/internal/config"
	"github.com/hexclash/arena/internal/llm"
	"github.com/hexclash/arena/internal/logger"
	"github.com/hexclash/arena/internal/market"
	"github.com/hexclash/arena/internal/strategy"
	"github.com/hexclash/arena/pkg/arena"
)

func main() {
	var (
		epochs int
		seed   int64
		speed  string
	)

	root := &cobra.Command{
		Use:   "runbattle",
		Short: "Run one gladiator battle locally and print the play-by-play",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if speed != "" {
				cfg.BattleSpeed = speed
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			return runBattle(cmd.Context(), cfg, epochs, seed)
		},
	}
	root.Flags().IntVar(&epochs, "epochs", 50, "epoch cap for the battle")
	root.Flags().Int64Var(&seed, "seed", 0, "battle seed, 0 picks one")
	root.Flags().StringVar(&speed, "speed", "", "instant, fast, or slow (overrides BATTLE_SPEED)")

	logger.Init()
	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("battle failed")
		os.Exit(1)
	}
}

func runBattle(ctx context.Context, cfg *config.Config, maxEpochs int, seed int64) error {
	var client llm.Client
	if cfg.HasLLMKeys() {
		var providers []llm.Provider
		if cfg.GroqAPIKey != "" {
			providers = append(providers, llm.NewGroq(cfg.GroqAPIKey))
		}
		if cfg.GoogleAPIKey != "" {
			providers = append(providers, llm.NewGemini(cfg.GoogleAPIKey))
		}
		if cfg.OpenRouterAPIKey != "" {
			providers = append(providers, llm.NewOpenRouter(cfg.OpenRouterAPIKey))
		}
		client = llm.NewRouter(providers...)
	} else {
		fmt.Println("No LLM keys configured, agents fight on class heuristics.")
		client = llm.NewSimClient()
	}

	var oracle market.Oracle
	if cfg.OracleURL != "" {
		oracle = market.NewHTTPOracle(cfg.OracleURL)
	} else {
		oracle = market.NewSimOracle(seed)
	}

	ids := make([]string, len(arena.Classes))
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	state := arena.NewBattleState(uuid.NewString(), ids, arena.Classes, maxEpochs, seed)
	state.Status = arena.StatusActive

	fmt.Printf("Battle %s: %d epochs max, seed %d\n", state.ID, maxEpochs, seed)
	for _, a := range state.Agents {
		fmt.Printf("  %-12s %s\n", a.Name, a.Class)
	}

	delay := cfg.TickDelay()
	for {
		snapshot, err := oracle.Snapshot(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("oracle unavailable, using flat market")
			snapshot = arena.FlatMarket(time.Now().Unix())
		}

		rng := rand.New(rand.NewSource(seed + int64(state.Epoch+1)))
		decisions := make(map[string]arena.Decision, len(state.Agents))
		for _, a := range state.AliveAgents() {
			d, err := strategy.ForClass(a.Class, client).Decide(ctx, strategy.Request{
				State:  state,
				Self:   a,
				Market: snapshot,
				Rng:    rng,
			})
			if err != nil {
				log.Warn().Err(err).Str("agent", a.Name).Msg("decide failed, heuristic substituted")
			}
			decisions[a.ID] = d
		}

		rec := arena.ResolveEpoch(state, decisions, snapshot, nil, rng)
		printEpoch(state, rec)

		if rec.Complete {
			winner := state.AgentByID(rec.WinnerID)
			name := rec.WinnerID
			if winner != nil {
				name = winner.Name
			}
			fmt.Printf("\nBattle over after %d epochs. Winner: %s\n", rec.Epoch, name)
			return nil
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
}

func printEpoch(state *arena.BattleState, rec *arena.EpochRecord) {
	name := func(id string) string {
		if a := state.AgentByID(id); a != nil {
			return a.Name
		}
		return id
	}

	fmt.Printf("\n-- epoch %d (%s) --\n", rec.Epoch, state.CurrentPhase())
	for _, ev := range rec.Events {
		switch ev.Type {
		case arena.EventCombatResult:
			if d, ok := ev.Data.(arena.CombatResultData); ok {
				fmt.Printf("  %s vs %s: %s (%d dmg)\n", name(d.AttackerID), name(d.TargetID), d.Outcome, d.Damage)
			}
		case arena.EventAgentDeath:
			if d, ok := ev.Data.(arena.AgentDeathData); ok {
				fmt.Printf("  %s has fallen (%s)\n", d.AgentName, d.Cause)
			}
		case arena.EventSkillActivation:
			if d, ok := ev.Data.(arena.SkillActivationData); ok {
				fmt.Printf("  %s activates %s\n", name(d.AgentID), d.Skill)
			}
		}
	}
	for _, a := range state.Agents {
		status := fmt.Sprintf("%4d HP", a.HP)
		if !a.Alive {
			status = "  dead"
		}
		fmt.Printf("  %-12s %s\n", a.Name, status)
	}
}
