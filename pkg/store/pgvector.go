// Package store is the retrieval index: per-collection partitions of
// embedded questions on Postgres/pgvector. Collections are written by the
// offline knowledge base build and read-only at request time.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/examforge/examforge/internal/models"
)

var (
	// ErrCollectionNotFound distinguishes "no such collection" from a
	// collection that exists but is empty.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrModelMismatch rejects queries against a collection built with a
	// different embedding model version.
	ErrModelMismatch = errors.New("collection built with different embedding model")
)

type Config struct {
	ConnString       string
	QuestionsTable   string
	CollectionsTable string
	VectorDim        int
	ModelVersion     string
	BatchSize        int
}

type Store struct {
	config Config
	pool   *pgxpool.Pool
}

func NewWithConfig(ctx context.Context, config Config) (*Store, error) {
	if config.QuestionsTable == "" {
		config.QuestionsTable = "questions"
	}
	if config.CollectionsTable == "" {
		config.CollectionsTable = "collections"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if config.ModelVersion == "" {
		return nil, fmt.Errorf("store requires an embedding model version")
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	s := &Store{config: config, pool: pool}

	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createCollections := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			model_version TEXT NOT NULL,
			published BOOLEAN NOT NULL DEFAULT FALSE
		)`, s.config.CollectionsTable)

	if _, err := s.pool.Exec(ctx, createCollections); err != nil {
		return fmt.Errorf("failed to create collections table: %v", err)
	}

	createQuestions := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			collection_key TEXT NOT NULL,
			exam_type TEXT NOT NULL,
			stream TEXT,
			section_category TEXT NOT NULL,
			year INTEGER,
			slot INTEGER,
			source_document TEXT,
			question_text TEXT NOT NULL,
			passage_context TEXT,
			options JSONB,
			answer TEXT,
			metadata JSONB,
			model_version TEXT NOT NULL,
			embedding vector(%d)
		)`, s.config.QuestionsTable, s.config.VectorDim)

	if _, err := s.pool.Exec(ctx, createQuestions); err != nil {
		return fmt.Errorf("failed to create questions table: %v", err)
	}

	createVectorIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		s.config.QuestionsTable, s.config.QuestionsTable)

	if _, err := s.pool.Exec(ctx, createVectorIndex); err != nil {
		return fmt.Errorf("failed to create vector index: %v", err)
	}

	createKeyIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_collection_idx
		ON %s (collection_key)`,
		s.config.QuestionsTable, s.config.QuestionsTable)

	if _, err := s.pool.Exec(ctx, createKeyIndex); err != nil {
		return fmt.Errorf("failed to create collection index: %v", err)
	}

	return nil
}

// checkCollection verifies the collection exists, is published and matches
// the store's embedding model version.
func (s *Store) checkCollection(ctx context.Context, key models.CollectionKey) error {
	query := fmt.Sprintf(
		"SELECT model_version, published FROM %s WHERE key = $1",
		s.config.CollectionsTable)

	var version string
	var published bool
	err := s.pool.QueryRow(ctx, query, key.String()).Scan(&version, &published)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("failed to look up collection %s: %v", key, err)
	}

	if version != s.config.ModelVersion {
		return fmt.Errorf("%w: %s has %q, store uses %q", ErrModelMismatch, key, version, s.config.ModelVersion)
	}
	if !published {
		// A build in progress stays invisible until it commits.
		return fmt.Errorf("%w: %s (unpublished)", ErrCollectionNotFound, key)
	}

	return nil
}

// Query returns up to topK questions from one collection, most-similar
// first. Results never cross collection boundaries.
func (s *Store) Query(ctx context.Context, key models.CollectionKey, vector []float32, topK int) ([]models.StructuredQuestion, error) {
	if len(vector) != s.config.VectorDim {
		return nil, fmt.Errorf("query vector has dimension %d, index expects %d", len(vector), s.config.VectorDim)
	}
	if err := s.checkCollection(ctx, key); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE collection_key = $1 AND model_version = $2
		ORDER BY embedding <=> $3
		LIMIT $4`,
		questionColumns, s.config.QuestionsTable)

	rows, err := s.pool.Query(ctx, query, key.String(), s.config.ModelVersion, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %v", key, err)
	}
	defer rows.Close()

	return scanQuestions(rows)
}

// Seeds returns all members of a collection in stable ID order.
func (s *Store) Seeds(ctx context.Context, key models.CollectionKey) ([]models.StructuredQuestion, error) {
	if err := s.checkCollection(ctx, key); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE collection_key = $1
		ORDER BY id`,
		questionColumns, s.config.QuestionsTable)

	rows, err := s.pool.Query(ctx, query, key.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list collection %s: %v", key, err)
	}
	defer rows.Close()

	return scanQuestions(rows)
}

func (s *Store) Count(ctx context.Context, key models.CollectionKey) (int, error) {
	if err := s.checkCollection(ctx, key); err != nil {
		return 0, err
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE collection_key = $1", s.config.QuestionsTable)

	var count int
	if err := s.pool.QueryRow(ctx, query, key.String()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count collection %s: %v", key, err)
	}
	return count, nil
}

// EnsureCollection registers a collection for the store's model version. A
// version change wipes the old records; they are regenerated wholesale.
func (s *Store) EnsureCollection(ctx context.Context, key models.CollectionKey) error {
	insert := fmt.Sprintf(`
		INSERT INTO %s (key, model_version, published)
		VALUES ($1, $2, FALSE)
		ON CONFLICT (key) DO NOTHING`,
		s.config.CollectionsTable)

	if _, err := s.pool.Exec(ctx, insert, key.String(), s.config.ModelVersion); err != nil {
		return fmt.Errorf("failed to register collection %s: %v", key, err)
	}

	var version string
	lookup := fmt.Sprintf("SELECT model_version FROM %s WHERE key = $1", s.config.CollectionsTable)
	if err := s.pool.QueryRow(ctx, lookup, key.String()).Scan(&version); err != nil {
		return fmt.Errorf("failed to look up collection %s: %v", key, err)
	}

	if version != s.config.ModelVersion {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %v", err)
		}
		defer tx.Rollback(ctx)

		wipe := fmt.Sprintf("DELETE FROM %s WHERE collection_key = $1", s.config.QuestionsTable)
		if _, err := tx.Exec(ctx, wipe, key.String()); err != nil {
			return fmt.Errorf("failed to clear stale records for %s: %v", key, err)
		}

		reset := fmt.Sprintf(
			"UPDATE %s SET model_version = $2, published = FALSE WHERE key = $1",
			s.config.CollectionsTable)
		if _, err := tx.Exec(ctx, reset, key.String(), s.config.ModelVersion); err != nil {
			return fmt.Errorf("failed to reset collection %s: %v", key, err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit transaction: %v", err)
		}
	}

	return nil
}

// Upsert writes embedding records into a collection. Keyed on question ID,
// so re-running a batch never duplicates records.
func (s *Store) Upsert(ctx context.Context, key models.CollectionKey, records []models.EmbeddingRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, collection_key, exam_type, stream, section_category,
			year, slot, source_document, question_text, passage_context,
			options, answer, metadata, model_version, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			question_text = EXCLUDED.question_text,
			passage_context = EXCLUDED.passage_context,
			options = EXCLUDED.options,
			answer = EXCLUDED.answer,
			metadata = EXCLUDED.metadata,
			model_version = EXCLUDED.model_version,
			embedding = EXCLUDED.embedding`,
		s.config.QuestionsTable)

	for _, rec := range records {
		if len(rec.Vector) != s.config.VectorDim {
			return fmt.Errorf("record %s has vector dimension %d, index expects %d",
				rec.Question.ID, len(rec.Vector), s.config.VectorDim)
		}

		options, err := json.Marshal(rec.Question.Options)
		if err != nil {
			return fmt.Errorf("failed to encode options for %s: %v", rec.Question.ID, err)
		}

		q := rec.Question
		_, err = tx.Exec(ctx, stmt,
			q.ID,
			key.String(),
			q.ExamType,
			q.Stream,
			q.SectionCategory,
			q.Year,
			q.Slot,
			q.SourceDocument,
			q.QuestionText,
			q.PassageContext,
			string(options),
			q.Answer,
			q.Metadata,
			rec.ModelVersion,
			pgvector.NewVector(rec.Vector),
		)
		if err != nil {
			return fmt.Errorf("failed to insert record %s: %v", q.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

// Publish makes a built collection visible to queries.
func (s *Store) Publish(ctx context.Context, key models.CollectionKey) error {
	update := fmt.Sprintf("UPDATE %s SET published = TRUE WHERE key = $1", s.config.CollectionsTable)

	tag, err := s.pool.Exec(ctx, update, key.String())
	if err != nil {
		return fmt.Errorf("failed to publish collection %s: %v", key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, key)
	}
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const questionColumns = `id, exam_type, stream, section_category, year, slot,
	source_document, question_text, passage_context, options, answer, metadata`

func scanQuestions(rows pgx.Rows) ([]models.StructuredQuestion, error) {
	var questions []models.StructuredQuestion

	for rows.Next() {
		var q models.StructuredQuestion
		var options []byte

		err := rows.Scan(
			&q.ID,
			&q.ExamType,
			&q.Stream,
			&q.SectionCategory,
			&q.Year,
			&q.Slot,
			&q.SourceDocument,
			&q.QuestionText,
			&q.PassageContext,
			&options,
			&q.Answer,
			&q.Metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}

		if len(options) > 0 {
			if err := json.Unmarshal(options, &q.Options); err != nil {
				return nil, fmt.Errorf("failed to decode options for %s: %v", q.ID, err)
			}
		}

		questions = append(questions, q)
	}

	return questions, rows.Err()
}
