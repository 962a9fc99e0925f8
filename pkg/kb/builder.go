// Package kb builds the knowledge base: it groups structured questions into
// collections, embeds them and writes the records to the retrieval index.
package kb

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/examforge/examforge/internal/models"
	"github.com/examforge/examforge/internal/types"
)

type Config struct {
	Workers   int
	BatchSize int
	// OnProgress is called after each question is embedded.
	OnProgress func(done, total int)
}

type Builder struct {
	config   Config
	embedder types.Embedder
	index    types.IndexWriter

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// BuildSummary reports how many records each collection received.
type BuildSummary struct {
	Collections map[string]int
}

func NewBuilder(embedder types.Embedder, index types.IndexWriter, config Config) *Builder {
	if config.Workers == 0 {
		config.Workers = 4
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	return &Builder{
		config:   config,
		embedder: embedder,
		index:    index,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Build embeds a batch of questions and upserts them into their
// collections. Idempotent: records are keyed by question ID, so re-running
// an already-ingested batch leaves collection counts unchanged. Collections
// are published only after their records commit.
func (b *Builder) Build(ctx context.Context, questions []models.StructuredQuestion) (*BuildSummary, error) {
	groups := groupByCollection(questions)

	// Stable ordering keeps builds reproducible.
	keys := make([]models.CollectionKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	summary := &BuildSummary{Collections: make(map[string]int)}
	var done int

	for _, key := range keys {
		group := groups[key]
		if err := b.buildCollection(ctx, key, group, len(questions), &done); err != nil {
			return nil, fmt.Errorf("failed to build collection %s: %w", key, err)
		}
		summary.Collections[key.String()] = len(group)
	}

	return summary, nil
}

// buildCollection embeds and writes one collection under its lock. Two
// builds of the same collection serialize; unrelated collections do not.
func (b *Builder) buildCollection(ctx context.Context, key models.CollectionKey, questions []models.StructuredQuestion, total int, done *int) error {
	lock := b.collectionLock(key)
	lock.Lock()
	defer lock.Unlock()

	if err := b.index.EnsureCollection(ctx, key); err != nil {
		return err
	}

	records := make([]models.EmbeddingRecord, len(questions))
	version := b.embedder.ModelVersion()

	// Embeddings are independent per question, so they fan out.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.config.Workers)

	var mu sync.Mutex
	for i := range questions {
		i := i
		g.Go(func() error {
			vectors, err := b.embedder.Embed(gctx, []string{questions[i].EmbedText()})
			if err != nil {
				return err
			}
			records[i] = models.EmbeddingRecord{
				Question:     questions[i],
				Vector:       vectors[0],
				ModelVersion: version,
			}

			mu.Lock()
			*done++
			if b.config.OnProgress != nil {
				b.config.OnProgress(*done, total)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for start := 0; start < len(records); start += b.config.BatchSize {
		end := start + b.config.BatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := b.index.Upsert(ctx, key, records[start:end]); err != nil {
			return err
		}
	}

	return b.index.Publish(ctx, key)
}

func (b *Builder) collectionLock(key models.CollectionKey) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()

	lock, ok := b.locks[key.String()]
	if !ok {
		lock = &sync.Mutex{}
		b.locks[key.String()] = lock
	}
	return lock
}

func groupByCollection(questions []models.StructuredQuestion) map[models.CollectionKey][]models.StructuredQuestion {
	groups := make(map[models.CollectionKey][]models.StructuredQuestion)
	for _, q := range questions {
		key := models.CollectionKey{
			ExamType: q.ExamType,
			Stream:   q.Stream,
			Category: q.SectionCategory,
		}
		groups[key] = append(groups[key], q)
	}
	return groups
}
