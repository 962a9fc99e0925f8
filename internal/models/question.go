package models

import (
	"fmt"
	"strings"
	"time"
)

// Exam types supported by the ingestion grammars and the schema registry.
const (
	ExamCAT  = "CAT"
	ExamGATE = "GATE"
)

// Section categories. CAT sections map one-to-one onto categories; GATE
// splits every paper into general aptitude and a stream-specific technical
// part.
const (
	CategoryVARC            = "varc"
	CategoryDILR            = "dilr"
	CategoryQuant           = "quant"
	CategoryGeneralAptitude = "general_aptitude"
	CategoryTechnical       = "technical"
)

type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// StructuredQuestion is a single real exam question extracted from a source
// document. Questions without options are TITA (type-in-the-answer).
type StructuredQuestion struct {
	ID              string                 `json:"id"`
	ExamType        string                 `json:"exam_type"`
	Stream          string                 `json:"stream,omitempty"`
	SectionCategory string                 `json:"section_category"`
	Year            int                    `json:"year"`
	Slot            int                    `json:"slot"`
	SourceDocument  string                 `json:"source_document"`
	QuestionText    string                 `json:"question_text"`
	PassageContext  string                 `json:"passage_context,omitempty"`
	Options         []Option               `json:"options,omitempty"`
	Answer          string                 `json:"answer,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

func (q StructuredQuestion) IsMCQ() bool {
	return len(q.Options) > 0
}

// EmbedText builds the document string that gets embedded for this question:
// the section, the question body and each option in order.
func (q StructuredQuestion) EmbedText() string {
	var sb strings.Builder
	sb.WriteString("Section: ")
	sb.WriteString(q.SectionCategory)
	sb.WriteString(" Question: ")
	sb.WriteString(q.QuestionText)
	for i, opt := range q.Options {
		sb.WriteString(fmt.Sprintf(" Option %d: %s", i+1, opt.Text))
	}
	return sb.String()
}

// EmbeddingRecord pairs a question with its vector. Records are write-once;
// changing the embedding model regenerates every record in the collection.
type EmbeddingRecord struct {
	Question     StructuredQuestion
	Vector       []float32
	ModelVersion string
}

// CollectionKey identifies one isolated partition of the knowledge base.
// Stream is empty for exams that have no stream dimension (CAT).
type CollectionKey struct {
	ExamType string
	Stream   string
	Category string
}

func (k CollectionKey) String() string {
	parts := []string{strings.ToLower(k.ExamType)}
	if k.Stream != "" {
		parts = append(parts, strings.ToLower(k.Stream))
	}
	parts = append(parts, strings.ToLower(k.Category))
	return strings.Join(parts, "_")
}

// GeneratedQuestion is one freshly generated question with the IDs of the
// seed questions that were used as generation context.
type GeneratedQuestion struct {
	QuestionText string   `json:"question_text"`
	Options      []Option `json:"options,omitempty"`
	Answer       string   `json:"answer"`
	Explanation  string   `json:"explanation,omitempty"`
	SeedIDs      []string `json:"seed_ids"`
}

type GeneratedSection struct {
	Name            string              `json:"name"`
	Category        string              `json:"category"`
	DurationMinutes int                 `json:"duration_minutes"`
	Questions       []GeneratedQuestion `json:"questions"`
}

// GeneratedExam is the assembled paper returned to the caller. It is not
// persisted by this core; the CLI may write it out as JSON.
type GeneratedExam struct {
	ID          string             `json:"id"`
	ExamType    string             `json:"exam_type"`
	VariantKey  string             `json:"variant_key,omitempty"`
	Sections    []GeneratedSection `json:"sections"`
	GeneratedAt time.Time          `json:"generated_at"`
}

func (e *GeneratedExam) QuestionCount() int {
	n := 0
	for _, s := range e.Sections {
		n += len(s.Questions)
	}
	return n
}
