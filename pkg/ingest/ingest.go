// Package ingest turns raw source documents into structured question
// records. Each exam type has its own format grammar; both produce the same
// record shape.
package ingest

import (
	"fmt"
	"strings"

	"github.com/examforge/examforge/internal/models"
)

// Document is one raw source document handed to the normalizer by the
// upstream extraction step. Name carries year/slot/stream hints.
type Document struct {
	Name     string
	ExamType string
	Content  string
}

// Drop records one malformed question that was skipped.
type Drop struct {
	Marker string
	Reason string
}

// Report is the per-document ingestion outcome. Err is set when the whole
// document yielded nothing usable; the batch continues either way.
type Report struct {
	Document string
	ExamType string
	Parsed   int
	Dropped  []Drop
	Err      error
}

type BatchReport struct {
	Documents []Report
}

// Failed counts documents that produced zero questions.
func (r BatchReport) Failed() int {
	n := 0
	for _, d := range r.Documents {
		if d.Err != nil {
			n++
		}
	}
	return n
}

func (r BatchReport) Dropped() int {
	n := 0
	for _, d := range r.Documents {
		n += len(d.Dropped)
	}
	return n
}

type grammar interface {
	parse(doc Document) ([]models.StructuredQuestion, Report)
}

func grammarFor(examType string) (grammar, error) {
	switch strings.ToUpper(examType) {
	case models.ExamCAT:
		return catGrammar{}, nil
	case models.ExamGATE:
		return gateGrammar{}, nil
	default:
		return nil, fmt.Errorf("no ingestion grammar for exam type %q", examType)
	}
}

// Normalize parses one document with the grammar selected by its exam type.
// A document that parses to zero questions is reported, not fatal.
func Normalize(doc Document) ([]models.StructuredQuestion, Report) {
	g, err := grammarFor(doc.ExamType)
	if err != nil {
		return nil, Report{Document: doc.Name, ExamType: doc.ExamType, Err: err}
	}

	questions, report := g.parse(doc)
	if len(questions) == 0 && report.Err == nil {
		report.Err = fmt.Errorf("document %q yielded no questions", doc.Name)
	}
	return questions, report
}

// NormalizeBatch runs Normalize over a batch, skipping failed documents and
// aggregating their reports.
func NormalizeBatch(docs []Document) ([]models.StructuredQuestion, BatchReport) {
	var all []models.StructuredQuestion
	var batch BatchReport

	for _, doc := range docs {
		questions, report := Normalize(doc)
		batch.Documents = append(batch.Documents, report)
		all = append(all, questions...)
	}

	return all, batch
}

// collapseSpace joins any run of whitespace into a single space.
func collapseSpace(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
