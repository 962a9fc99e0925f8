// Package schema is the registry of supported exam structures. It is the
// single place where "is this a real exam/stream" is decided.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed schemas.yaml
var schemasYAML []byte

// ErrNotSupported is returned for an (exam_type, variant_key) pair that has
// no registered schema.
var ErrNotSupported = errors.New("exam variant not supported")

// Section is one timed part of an exam. The first Questions-Tita slots are
// multiple-choice; the remaining Tita slots are type-in-the-answer.
type Section struct {
	Name            string `yaml:"name"`
	Category        string `yaml:"category"`
	Questions       int    `yaml:"questions"`
	Tita            int    `yaml:"tita"`
	DurationMinutes int    `yaml:"duration_minutes"`
}

func (s Section) MCQCount() int {
	return s.Questions - s.Tita
}

// ExamSchema describes one exam variant. Read-only at request time.
type ExamSchema struct {
	ExamType   string
	VariantKey string
	Sections   []Section
}

func (s ExamSchema) TotalQuestions() int {
	n := 0
	for _, sec := range s.Sections {
		n += sec.Questions
	}
	return n
}

type schemaFile struct {
	Exams []struct {
		ExamType string    `yaml:"exam_type"`
		Variants []string  `yaml:"variants"`
		Sections []Section `yaml:"sections"`
	} `yaml:"exams"`
}

// Registry resolves exam variants to their schemas.
type Registry struct {
	schemas  map[string]ExamSchema
	variants map[string][]string
}

// NewRegistry loads the embedded schema file.
func NewRegistry() (*Registry, error) {
	return NewRegistryFromYAML(schemasYAML)
}

// NewRegistryFromYAML loads schemas from caller-supplied YAML, for
// deployments that override the built-in exam structures.
func NewRegistryFromYAML(data []byte) (*Registry, error) {
	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing schema file: %v", err)
	}

	r := &Registry{
		schemas:  make(map[string]ExamSchema),
		variants: make(map[string][]string),
	}

	for _, exam := range file.Exams {
		examType := strings.ToUpper(exam.ExamType)
		for _, variant := range exam.Variants {
			variant = strings.ToUpper(variant)
			sections := make([]Section, len(exam.Sections))
			copy(sections, exam.Sections)

			for _, sec := range sections {
				if sec.Tita > sec.Questions {
					return nil, fmt.Errorf("schema %s/%s section %s: tita count %d exceeds question count %d",
						examType, variant, sec.Name, sec.Tita, sec.Questions)
				}
			}

			r.schemas[schemaKey(examType, variant)] = ExamSchema{
				ExamType:   examType,
				VariantKey: variant,
				Sections:   sections,
			}
			r.variants[examType] = append(r.variants[examType], variant)
		}
	}

	return r, nil
}

func schemaKey(examType, variant string) string {
	if variant == "" {
		return examType
	}
	return examType + "/" + variant
}

// Resolve returns the schema for the given pair, or ErrNotSupported.
func (r *Registry) Resolve(examType, variantKey string) (ExamSchema, error) {
	key := schemaKey(strings.ToUpper(examType), strings.ToUpper(variantKey))
	schema, ok := r.schemas[key]
	if !ok {
		return ExamSchema{}, fmt.Errorf("%w: %q", ErrNotSupported, key)
	}
	return schema, nil
}

// Variants lists the registered variant keys for one exam type, in the order
// they appear in the schema file.
func (r *Registry) Variants(examType string) []string {
	return r.variants[strings.ToUpper(examType)]
}

// ExamTypes lists every exam type that has at least one variant.
func (r *Registry) ExamTypes() []string {
	types := make([]string, 0, len(r.variants))
	for t := range r.variants {
		types = append(types, t)
	}
	return types
}
