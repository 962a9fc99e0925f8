package kb

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examforge/examforge/internal/models"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls += len(texts)
	f.mu.Unlock()

	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 2, 3}
	}
	return vectors, nil
}

func (f *fakeEmbedder) ModelVersion() string { return "embed-v1" }

// memoryIndex implements types.IndexWriter with ID-keyed records per
// collection, mirroring the upsert semantics of the real store.
type memoryIndex struct {
	mu         sync.Mutex
	records    map[string]map[string]models.EmbeddingRecord
	published  map[string]bool
	upsertOps  int
	publishOps int
}

func newMemoryIndex() *memoryIndex {
	return &memoryIndex{
		records:   make(map[string]map[string]models.EmbeddingRecord),
		published: make(map[string]bool),
	}
}

func (m *memoryIndex) EnsureCollection(_ context.Context, key models.CollectionKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[key.String()]; !ok {
		m.records[key.String()] = make(map[string]models.EmbeddingRecord)
	}
	return nil
}

func (m *memoryIndex) Upsert(_ context.Context, key models.CollectionKey, records []models.EmbeddingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertOps++
	for _, rec := range records {
		m.records[key.String()][rec.Question.ID] = rec
	}
	return nil
}

func (m *memoryIndex) Publish(_ context.Context, key models.CollectionKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishOps++
	m.published[key.String()] = true
	return nil
}

func (m *memoryIndex) Count(_ context.Context, key models.CollectionKey) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[key.String()]), nil
}

func questionsFor(examType, stream, category string, n int) []models.StructuredQuestion {
	var qs []models.StructuredQuestion
	for i := 1; i <= n; i++ {
		qs = append(qs, models.StructuredQuestion{
			ID:              fmt.Sprintf("%s_%s_%s_%03d", examType, stream, category, i),
			ExamType:        examType,
			Stream:          stream,
			SectionCategory: category,
			QuestionText:    fmt.Sprintf("Question %d", i),
		})
	}
	return qs
}

func TestBuildGroupsByCollection(t *testing.T) {
	var questions []models.StructuredQuestion
	questions = append(questions, questionsFor("CAT", "", "varc", 3)...)
	questions = append(questions, questionsFor("CAT", "", "quant", 2)...)
	questions = append(questions, questionsFor("GATE", "CS", "technical", 4)...)

	idx := newMemoryIndex()
	builder := NewBuilder(&fakeEmbedder{}, idx, Config{})

	summary, err := builder.Build(context.Background(), questions)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		"cat_varc":          3,
		"cat_quant":         2,
		"gate_cs_technical": 4,
	}, summary.Collections)

	for key, want := range summary.Collections {
		assert.Len(t, idx.records[key], want)
		assert.True(t, idx.published[key], "collection %s never published", key)
	}
}

func TestBuildStampsModelVersion(t *testing.T) {
	idx := newMemoryIndex()
	builder := NewBuilder(&fakeEmbedder{}, idx, Config{})

	_, err := builder.Build(context.Background(), questionsFor("CAT", "", "varc", 2))
	require.NoError(t, err)

	for _, rec := range idx.records["cat_varc"] {
		assert.Equal(t, "embed-v1", rec.ModelVersion)
		assert.Equal(t, []float32{1, 2, 3}, rec.Vector)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	questions := questionsFor("GATE", "ME", "general_aptitude", 5)

	idx := newMemoryIndex()
	builder := NewBuilder(&fakeEmbedder{}, idx, Config{})

	_, err := builder.Build(context.Background(), questions)
	require.NoError(t, err)
	_, err = builder.Build(context.Background(), questions)
	require.NoError(t, err)

	count, err := idx.Count(context.Background(), models.CollectionKey{
		ExamType: "GATE", Stream: "ME", Category: "general_aptitude",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, count, "re-ingesting the same batch must not grow the collection")
}

func TestBuildBatchesUpserts(t *testing.T) {
	idx := newMemoryIndex()
	builder := NewBuilder(&fakeEmbedder{}, idx, Config{BatchSize: 2})

	_, err := builder.Build(context.Background(), questionsFor("CAT", "", "dilr", 5))
	require.NoError(t, err)

	// 5 records at batch size 2 is 3 upsert calls.
	assert.Equal(t, 3, idx.upsertOps)
	assert.Len(t, idx.records["cat_dilr"], 5)
}

func TestBuildReportsProgress(t *testing.T) {
	var mu sync.Mutex
	var last, total int
	config := Config{OnProgress: func(d, t int) {
		mu.Lock()
		last, total = d, t
		mu.Unlock()
	}}

	builder := NewBuilder(&fakeEmbedder{}, newMemoryIndex(), config)
	_, err := builder.Build(context.Background(), questionsFor("CAT", "", "varc", 4))
	require.NoError(t, err)

	assert.Equal(t, 4, last)
	assert.Equal(t, 4, total)
}

func TestBuildEmbedsEveryQuestionOnce(t *testing.T) {
	emb := &fakeEmbedder{}
	builder := NewBuilder(emb, newMemoryIndex(), Config{Workers: 2})

	_, err := builder.Build(context.Background(), questionsFor("GATE", "EE", "technical", 7))
	require.NoError(t, err)
	assert.Equal(t, 7, emb.calls)
}
