// Package orchestrator assembles complete mock exams: it resolves the exam
// schema, retrieves seed context per quota slot, drives the generative
// backend and validates everything before returning an exam.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/examforge/examforge/internal/models"
	"github.com/examforge/examforge/internal/types"
	"github.com/examforge/examforge/pkg/schema"
	"github.com/examforge/examforge/pkg/store"
)

type Config struct {
	TopK        int
	MaxAttempts int
	Workers     int
	SlotTimeout time.Duration
}

type Orchestrator struct {
	registry  *schema.Registry
	index     types.Index
	embedder  types.Embedder
	generator types.Generator
	config    Config
}

func New(registry *schema.Registry, index types.Index, embedder types.Embedder, generator types.Generator, config Config) *Orchestrator {
	if config.TopK == 0 {
		config.TopK = 3
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = 3
	}
	if config.Workers == 0 {
		config.Workers = 8
	}
	if config.SlotTimeout == 0 {
		config.SlotTimeout = 2 * time.Minute
	}

	return &Orchestrator{
		registry:  registry,
		index:     index,
		embedder:  embedder,
		generator: generator,
		config:    config,
	}
}

// Variants lists the supported variant keys for one exam type.
func (o *Orchestrator) Variants(examType string) []string {
	return o.registry.Variants(examType)
}

// slot is one required question position in the exam being assembled.
type slot struct {
	section int
	pos     int
	kind    slotKind
}

// Generate assembles one complete exam for the given variant. Every section
// is filled to exactly its schema quota or the whole request fails; no
// partial exam is ever returned.
func (o *Orchestrator) Generate(ctx context.Context, examType, variantKey string) (*models.GeneratedExam, error) {
	sch, err := o.registry.Resolve(examType, variantKey)
	if err != nil {
		return nil, err
	}

	samplers, err := o.preflight(ctx, sch)
	if err != nil {
		return nil, err
	}

	// One result slice per section, filled in place by the slot workers.
	results := make([][]models.GeneratedQuestion, len(sch.Sections))
	var slots []slot
	for i, sec := range sch.Sections {
		results[i] = make([]models.GeneratedQuestion, sec.Questions)
		for pos := 0; pos < sec.Questions; pos++ {
			kind := slotMCQ
			if pos >= sec.MCQCount() {
				kind = slotTITA
			}
			slots = append(slots, slot{section: i, pos: pos, kind: kind})
		}
	}

	dedupe := newDedupeSet()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Workers)

	for _, sl := range slots {
		sl := sl
		sec := sch.Sections[sl.section]
		g.Go(func() error {
			q, err := o.fillSlot(gctx, sch, sec, sl, samplers[sec.Category], dedupe)
			if err != nil {
				return err
			}
			results[sl.section][sl.pos] = q
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	exam := &models.GeneratedExam{
		ID:          uuid.NewString(),
		ExamType:    sch.ExamType,
		VariantKey:  sch.VariantKey,
		GeneratedAt: time.Now().UTC(),
	}
	for i, sec := range sch.Sections {
		if sec.Questions == 0 {
			continue
		}
		exam.Sections = append(exam.Sections, models.GeneratedSection{
			Name:            sec.Name,
			Category:        sec.Category,
			DurationMinutes: sec.DurationMinutes,
			Questions:       results[i],
		})
	}

	return exam, nil
}

// preflight verifies every required collection exists and has members
// before any generation starts, and primes the per-category seed samplers.
func (o *Orchestrator) preflight(ctx context.Context, sch schema.ExamSchema) (map[string]*seedSampler, error) {
	samplers := make(map[string]*seedSampler)

	for _, sec := range sch.Sections {
		if sec.Questions == 0 {
			continue
		}
		if _, ok := samplers[sec.Category]; ok {
			continue
		}

		key := o.collectionKey(sch, sec.Category)
		seeds, err := o.index.Seeds(ctx, key)
		switch {
		case errors.Is(err, store.ErrCollectionNotFound):
			return nil, &CoverageError{Key: key, Reason: "collection does not exist"}
		case errors.Is(err, store.ErrModelMismatch):
			return nil, &CoverageError{Key: key, Reason: "collection needs re-embedding with the current model"}
		case err != nil:
			return nil, fmt.Errorf("failed to load seeds for %s: %w", key, err)
		case len(seeds) == 0:
			return nil, &CoverageError{Key: key, Reason: "collection is empty"}
		}

		samplers[sec.Category] = newSeedSampler(seeds)
	}

	return samplers, nil
}

// fillSlot produces one validated question, retrying on any validation
// failure. A timed-out generation call is a validation failure here, not a
// separate error class.
func (o *Orchestrator) fillSlot(ctx context.Context, sch schema.ExamSchema, sec schema.Section, sl slot, sampler *seedSampler, dedupe *dedupeSet) (models.GeneratedQuestion, error) {
	var lastErr error

	for attempt := 1; attempt <= o.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.GeneratedQuestion{}, err
		}

		seed := sampler.Next()
		seeds, err := o.retrieve(ctx, sch, sec, seed)
		if err != nil {
			return models.GeneratedQuestion{}, err
		}

		prompt := buildPrompt(sch.ExamType, sec.Name, sl.kind, seeds)

		slotCtx, cancel := context.WithTimeout(ctx, o.config.SlotTimeout)
		raw, err := o.generator.Complete(slotCtx, prompt)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				// The caller went away; do not burn retries.
				return models.GeneratedQuestion{}, ctx.Err()
			}
			lastErr = err
			continue
		}

		q, err := parseGenerated(raw, sl.kind)
		if err != nil {
			lastErr = err
			continue
		}
		if err := checkAgainstSeeds(q, seeds); err != nil {
			lastErr = err
			continue
		}
		if !dedupe.claim(q.QuestionText) {
			lastErr = fmt.Errorf("duplicate question text within exam")
			continue
		}

		for _, s := range seeds {
			q.SeedIDs = append(q.SeedIDs, s.ID)
		}
		return q, nil
	}

	return models.GeneratedQuestion{}, &GenerationError{
		Section:  sec.Name,
		Slot:     sl.pos,
		Attempts: o.config.MaxAttempts,
		Err:      lastErr,
	}
}

// retrieve embeds the sampled seed's text and queries its collection for
// the top-k most similar questions to use as generation context.
func (o *Orchestrator) retrieve(ctx context.Context, sch schema.ExamSchema, sec schema.Section, seed models.StructuredQuestion) ([]models.StructuredQuestion, error) {
	vectors, err := o.embedder.Embed(ctx, []string{seed.EmbedText()})
	if err != nil {
		return nil, fmt.Errorf("failed to embed seed %s: %w", seed.ID, err)
	}

	key := o.collectionKey(sch, sec.Category)
	seeds, err := o.index.Query(ctx, key, vectors[0], o.config.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed for %s: %w", key, err)
	}
	if len(seeds) == 0 {
		seeds = []models.StructuredQuestion{seed}
	}
	return seeds, nil
}

func (o *Orchestrator) collectionKey(sch schema.ExamSchema, category string) models.CollectionKey {
	return models.CollectionKey{
		ExamType: sch.ExamType,
		Stream:   sch.VariantKey,
		Category: category,
	}
}

// dedupeSet tracks normalized question texts claimed across the exam so no
// two slots ship the same question.
type dedupeSet struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newDedupeSet() *dedupeSet {
	return &dedupeSet{seen: make(map[string]bool)}
}

func (d *dedupeSet) claim(text string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := normalizeText(text)
	if d.seen[key] {
		return false
	}
	d.seen[key] = true
	return true
}
