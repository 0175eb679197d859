// Package strategy decides each agent's epoch action. Every class is its
// own Strategy implementation over a shared LLM pipeline: build a prompt,
// parse the structured reply, then pass it through the guardrail layer. A
// heuristic fallback covers provider exhaustion and timeouts.
package strategy

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hexclash/arena/internal/llm"
	"github.com/hexclash/arena/pkg/arena"
)

// Request carries everything a strategist sees for one epoch.
type Request struct {
	State  *arena.BattleState
	Self   *arena.Agent
	Market arena.MarketData
	Memory string
	Rng    *rand.Rand
}

// Strategy is the per-class decision capability.
type Strategy interface {
	Decide(ctx context.Context, req Request) (arena.Decision, error)
	Personality() string
	SkillDefinition() string
}

// classProfile is the static flavour of one class.
type classProfile struct {
	class       arena.Class
	personality string
	skillDef    string
	heuristic   func(req Request) arena.Decision
}

// llmStrategy is the shared pipeline specialised by a class profile.
type llmStrategy struct {
	profile classProfile
	client  llm.Client
}

// ForClass returns the strategy for a class.
func ForClass(c arena.Class, client llm.Client) Strategy {
	p, ok := profiles[c]
	if !ok {
		p = profiles[arena.ClassGambler]
	}
	return &llmStrategy{profile: p, client: client}
}

func (s *llmStrategy) Personality() string     { return s.profile.personality }
func (s *llmStrategy) SkillDefinition() string { return s.profile.skillDef }

// Decide runs the full pipeline. The returned decision is always valid
// against the battle state; the error is informational (a fallback was
// used) and never leaves the agent without an action.
func (s *llmStrategy) Decide(ctx context.Context, req Request) (arena.Decision, error) {
	raw, err := s.ask(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("agent", req.Self.Name).Msg("strategist falling back to heuristic")
		d := s.profile.heuristic(req)
		d, _ = Guard(d, req.Self, req.State)
		return d, nil
	}

	d, parseErr := ParseDecision(raw)
	if parseErr != nil {
		repaired, repairErr := s.repair(ctx, raw, parseErr)
		if repairErr != nil {
			log.Warn().Err(parseErr).Str("agent", req.Self.Name).Msg("unparseable decision, using heuristic")
			d = s.profile.heuristic(req)
		} else {
			d = repaired
		}
	}

	d, issues := Guard(d, req.Self, req.State)
	if len(issues) > 0 {
		log.Debug().Str("agent", req.Self.Name).Int("repairs", len(issues)).Msg("guardrails applied")
	}
	return d, nil
}

func (s *llmStrategy) ask(ctx context.Context, req Request) (string, error) {
	resp, err := s.client.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: SystemPrompt(s.profile, req.Self)},
		{Role: llm.RoleUser, Content: UserPrompt(req)},
	}, llm.Options{Temperature: 0.8, MaxTokens: 600})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// repair is the secretary's second layer: ask the model to fix its own
// malformed output into the strict schema.
func (s *llmStrategy) repair(ctx context.Context, raw string, parseErr error) (arena.Decision, error) {
	prompt := fmt.Sprintf(
		"The following battle decision was rejected (%v). Reply with ONLY the corrected JSON object matching the schema, no prose.\n\nSchema:\n%s\n\nRejected output:\n%s",
		parseErr, decisionSchema, raw)
	resp, err := s.client.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, llm.Options{Temperature: 0, MaxTokens: 400})
	if err != nil {
		return arena.Decision{}, err
	}
	return ParseDecision(resp.Content)
}

// Guard is the guardrail layer: programmatic sanitisation, then the
// authoritative class rules, plus a summary suffix on the reasoning so
// spectators can see what was corrected.
func Guard(d arena.Decision, self *arena.Agent, s *arena.BattleState) (arena.Decision, []arena.Issue) {
	out, issues := arena.Sanitize(d, self, s, false)
	out, classIssues := classGuard(out, self, s)
	issues = append(issues, classIssues...)
	if len(issues) > 0 {
		var parts []string
		for _, i := range issues {
			parts = append(parts, fmt.Sprintf("%s %s", strings.ToLower(i.Action), i.Field))
		}
		suffix := " [Guardrails: " + strings.Join(parts, "; ") + "]"
		out.Reasoning = strings.TrimSpace(out.Reasoning) + suffix
	}
	return out, issues
}
