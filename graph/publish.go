// Package graph publishes optimization runs and their variants to the
// knowledge graph.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360studio/semarch/architecture"
	"github.com/c360studio/semarch/rules"
	"github.com/c360studio/semarch/search"
	"github.com/c360studio/semarch/vocabulary/arch"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"
)

// Subject for graph ingestion.
const GraphIngestSubject = "graph.ingest.entity"

// tripleSource identifies triples produced by this package.
const tripleSource = "semarch.optimize"

// RunSummary is the graph-facing view of an optimization run.
type RunSummary struct {
	RunID       string
	Slug        string
	Status      string
	Convergence string
	Iterations  int
	Success     bool
	CreatedAt   time.Time
}

// RunEntityID generates a consistent entity ID for a run.
// Format: semarch.local.arch.optimizer.run.<run-id>
func RunEntityID(runID string) string {
	return fmt.Sprintf("semarch.local.arch.optimizer.run.%s", runID)
}

// VariantEntityID generates a consistent entity ID for a variant of a run.
// Format: semarch.local.arch.optimizer.variant.<run-id>-<variant-id>
func VariantEntityID(runID, variantID string) string {
	return fmt.Sprintf("semarch.local.arch.optimizer.variant.%s-%s", runID, variantID)
}

// BuildRunTriples returns the triples describing a run.
func BuildRunTriples(run RunSummary, now time.Time) []message.Triple {
	entityID := RunEntityID(run.RunID)
	b := tripleBuilder{subject: entityID, now: now}
	b.add(arch.RunSlug, run.Slug)
	b.add(arch.RunStatus, run.Status)
	if run.Convergence != "" {
		b.add(arch.RunConvergence, run.Convergence)
	}
	b.add(arch.RunIterations, run.Iterations)
	b.add(arch.RunSuccess, run.Success)
	b.add(arch.RunCreatedAt, run.CreatedAt.Format(time.RFC3339))
	return b.triples
}

// BuildVariantTriples returns the triples describing one variant of a run:
// its score, lineage, size and the rules it still violates.
func BuildVariantTriples(runID string, v architecture.Variant, violations []architecture.Violation, best bool, now time.Time) []message.Triple {
	b := tripleBuilder{subject: VariantEntityID(runID, v.ID), now: now}
	b.add(arch.VariantID, v.ID)
	b.add(arch.ProducedBy, RunEntityID(runID))
	if !v.IsRoot() {
		b.add(arch.DerivedFrom, VariantEntityID(runID, v.ParentID))
		b.add(arch.VariantOperator, string(v.AppliedOperator))
	}
	b.add(arch.VariantGeneration, v.Generation)

	b.add(arch.VariantWeighted, v.Score.Weighted)
	b.add(arch.VariantHardViolations, v.Score.HardViolations)
	for _, category := range architecture.SortedKeys(v.Score.PerObjective) {
		b.add(arch.VariantObjective, fmt.Sprintf("%s=%.4f", category, v.Score.PerObjective[category]))
	}
	for _, violation := range violations {
		b.add(arch.VariantViolation, violation.RuleID)
	}

	if v.Architecture != nil {
		b.add(arch.VariantNodeCount, v.Architecture.NodeCount())
		b.add(arch.VariantEdgeCount, v.Architecture.EdgeCount())
	}
	if best {
		b.add(arch.VariantBest, true)
	}
	return b.triples
}

// Entity is a graph entity with its kind and triples.
type Entity struct {
	ID      string
	Kind    arch.EntityKind
	Triples []message.Triple
}

// BuildEntities returns the run entity followed by one entity per Pareto
// front member, in front order. Violations are re-detected per member.
func BuildEntities(run RunSummary, res *search.Result, detector *rules.Detector, now time.Time) []Entity {
	entities := []Entity{{
		ID:      RunEntityID(run.RunID),
		Kind:    arch.KindRun,
		Triples: BuildRunTriples(run, now),
	}}
	if res == nil {
		return entities
	}
	bestID := ""
	if res.BestVariant != nil {
		bestID = res.BestVariant.ID
	}
	for _, v := range res.ParetoFront {
		entities = append(entities, Entity{
			ID:      VariantEntityID(run.RunID, v.ID),
			Kind:    arch.KindVariant,
			Triples: BuildVariantTriples(run.RunID, v, detector.Detect(v.Architecture), v.ID == bestID, now),
		})
	}
	return entities
}

// PublishEntity publishes one entity to the graph ingest stream.
func PublishEntity(ctx context.Context, nc *natsclient.Client, entity Entity, now time.Time) error {
	if nc == nil {
		return nil // Skip publishing if no NATS client (graceful degradation)
	}
	payload := &EntityPayload{
		EntityID_:  entity.ID,
		TripleData: entity.Triples,
		UpdatedAt:  now,
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("validate entity: %w", err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal entity: %w", err)
	}

	if err := nc.PublishToStream(ctx, GraphIngestSubject, data); err != nil {
		return fmt.Errorf("publish entity %s: %w", entity.ID, err)
	}
	return nil
}

type tripleBuilder struct {
	subject string
	now     time.Time
	triples []message.Triple
}

func (b *tripleBuilder) add(predicate string, object any) {
	b.triples = append(b.triples, message.Triple{
		Subject:    b.subject,
		Predicate:  predicate,
		Object:     object,
		Source:     tripleSource,
		Timestamp:  b.now,
		Confidence: 1.0,
	})
}
