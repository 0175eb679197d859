// Package memory maintains each agent's three-layer generative memory:
// observations appended from battle events, reflections synthesised from
// clusters of observations, and plans distilled from reflections.
package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hexclash/arena/internal/model"
	"github.com/hexclash/arena/internal/repository"
	"github.com/hexclash/arena/pkg/arena"
)

const (
	// reflectionThreshold is the minimum cluster size before a reflection
	// is synthesised from observations sharing a tag.
	reflectionThreshold = 3

	// retrievalDefaultK bounds decision-time memory recall.
	retrievalDefaultK = 5
)

// Service owns memory writes and decision-time retrieval.
type Service struct {
	repo repository.MemoryRepository
}

// NewService wires the memory service.
func NewService(repo repository.MemoryRepository) *Service {
	return &Service{repo: repo}
}

// RecordEpoch appends observations for every significant sub-event of one
// sealed epoch. Unrecordable events are skipped.
func (s *Service) RecordEpoch(ctx context.Context, state *arena.BattleState, events []arena.Event) {
	for _, ev := range events {
		for _, o := range observationsFrom(state, ev) {
			o.BattleID = state.ID
			o.Epoch = state.Epoch
			if err := s.repo.SaveObservation(ctx, &o); err != nil {
				log.Error().Err(err).Str("agentId", o.AgentID).Msg("save observation")
			}
		}
	}
}

// observationsFrom maps one event to zero or more per-agent observations.
func observationsFrom(state *arena.BattleState, ev arena.Event) []model.Observation {
	name := func(id string) string {
		if a := state.AgentByID(id); a != nil {
			return a.Name
		}
		return id
	}

	switch d := ev.Data.(type) {
	case arena.PredictionResultData:
		verdict := "missed"
		importance := 3
		if d.Correct {
			verdict = "hit"
			importance = 4
		}
		return []model.Observation{{
			AgentID:    d.AgentID,
			Content:    fmt.Sprintf("prediction %s: %s %s, HP %+d", verdict, d.Asset, d.Direction, d.HPChange),
			Importance: importance,
			Tags:       []string{"prediction", strings.ToLower(string(d.Asset))},
		}}
	case arena.CombatResultData:
		tags := []string{"combat", d.Outcome}
		attacker := model.Observation{
			AgentID:    d.AttackerID,
			Content:    fmt.Sprintf("%s against %s resolved %s for %d damage", d.Stance, name(d.TargetID), d.Outcome, d.Damage),
			Importance: 6,
			Tags:       tags,
		}
		target := model.Observation{
			AgentID:    d.TargetID,
			Content:    fmt.Sprintf("took %s from %s, lost %d HP", string(d.Stance), name(d.AttackerID), d.Damage),
			Importance: 6,
			Tags:       tags,
		}
		return []model.Observation{attacker, target}
	case arena.SkillActivationData:
		return []model.Observation{{
			AgentID:    d.AgentID,
			Content:    fmt.Sprintf("activated %s", d.Skill),
			Importance: 5,
			Tags:       []string{"skill", strings.ToLower(string(d.Skill))},
		}}
	case arena.AgentDeathData:
		obs := []model.Observation{{
			AgentID:    d.AgentID,
			Content:    fmt.Sprintf("died to %s at epoch %d", d.Cause, d.EpochNumber),
			Importance: 10,
			Tags:       []string{"death", string(d.Cause)},
		}}
		if d.KilledBy != "" {
			obs = append(obs, model.Observation{
				AgentID:    d.KilledBy,
				Content:    fmt.Sprintf("killed %s", name(d.AgentID)),
				Importance: 8,
				Tags:       []string{"kill", "combat"},
			})
		}
		return obs
	default:
		return nil
	}
}

// Reflect synthesises a reflection when enough recent observations share a
// tag, then distils an active plan from it. Older plans are superseded.
func (s *Service) Reflect(ctx context.Context, agentID string) error {
	recent, err := s.repo.RecentObservations(ctx, agentID, 20)
	if err != nil {
		return fmt.Errorf("recent observations: %w", err)
	}

	tag, cluster := dominantCluster(recent)
	if len(cluster) < reflectionThreshold {
		return nil
	}

	ids := make([]string, len(cluster))
	var total int
	for i, o := range cluster {
		ids[i] = o.ID
		total += o.Importance
	}
	abstraction := 1
	if avg := total / len(cluster); avg >= 8 {
		abstraction = 3
	} else if avg >= 5 {
		abstraction = 2
	}

	ref := &model.Reflection{
		AgentID:        agentID,
		Content:        fmt.Sprintf("pattern across %d events: %s keeps mattering; latest was %q", len(cluster), tag, cluster[0].Content),
		Abstraction:    abstraction,
		ObservationIDs: ids,
		Tags:           []string{tag},
	}
	if err := s.repo.SaveReflection(ctx, ref); err != nil {
		return fmt.Errorf("save reflection: %w", err)
	}

	if old, err := s.repo.ActivePlan(ctx, agentID); err == nil && old != nil {
		if err := s.repo.UpdatePlanStatus(ctx, old.ID, model.PlanSuperseded); err != nil {
			log.Error().Err(err).Str("planId", old.ID).Msg("supersede plan")
		}
	}
	plan := &model.Plan{
		AgentID:       agentID,
		Content:       planFor(tag),
		Status:        model.PlanActive,
		ReflectionIDs: []string{ref.ID},
	}
	if err := s.repo.SavePlan(ctx, plan); err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

// dominantCluster groups observations by tag and returns the largest group.
func dominantCluster(obs []model.Observation) (string, []model.Observation) {
	byTag := make(map[string][]model.Observation)
	for _, o := range obs {
		for _, t := range o.Tags {
			byTag[t] = append(byTag[t], o)
		}
	}
	var bestTag string
	var best []model.Observation
	for t, group := range byTag {
		if len(group) > len(best) || (len(group) == len(best) && t < bestTag) {
			bestTag, best = t, group
		}
	}
	return bestTag, best
}

// planFor maps a dominant tag to an actionable strategy line.
func planFor(tag string) string {
	switch tag {
	case "combat", "overpower", "uncontested":
		return "avoid open engagements until HP recovers; defend when adjacent to a warrior"
	case "betrayal":
		return "trust no alliance past its usefulness; keep stake sizes small near allies"
	case "prediction":
		return "stake predictions at the minimum until the streak turns"
	case "death":
		return "stay out of the storm line and keep an escape hex open"
	default:
		return fmt.Sprintf("watch for recurring %s situations and adapt early", tag)
	}
}

// Retrieve returns the top-k relevant memory lines for a decision prompt:
// highest-importance observations intersecting the situation tags, plus the
// most recent active plan.
func (s *Service) Retrieve(ctx context.Context, agentID string, situationTags []string) (string, error) {
	obs, err := s.repo.ObservationsByTags(ctx, agentID, situationTags, retrievalDefaultK)
	if err != nil {
		return "", fmt.Errorf("observations by tags: %w", err)
	}
	plan, err := s.repo.ActivePlan(ctx, agentID)
	if err != nil {
		return "", fmt.Errorf("active plan: %w", err)
	}

	if len(obs) == 0 && plan == nil {
		return "", nil
	}
	var b strings.Builder
	b.WriteString("MEMORY:\n")
	for _, o := range obs {
		fmt.Fprintf(&b, "- [%d] %s\n", o.Importance, o.Content)
	}
	if plan != nil {
		fmt.Fprintf(&b, "PLAN: %s\n", plan.Content)
	}
	return b.String(), nil
}
