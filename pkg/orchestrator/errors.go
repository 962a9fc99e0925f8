package orchestrator

import (
	"errors"
	"fmt"

	"github.com/examforge/examforge/internal/models"
)

var (
	// ErrInsufficientCoverage means a required category has no usable
	// collection; the operator needs to backfill the knowledge base.
	ErrInsufficientCoverage = errors.New("insufficient knowledge base coverage")
	// ErrGenerationFailed means the generative backend never produced a
	// valid question for some slot within the retry budget.
	ErrGenerationFailed = errors.New("exam generation failed")
)

// CoverageError names the category whose collection is missing or empty.
type CoverageError struct {
	Key    models.CollectionKey
	Reason string
}

func (e *CoverageError) Error() string {
	return fmt.Sprintf("insufficient coverage for category %q (collection %s): %s",
		e.Key.Category, e.Key, e.Reason)
}

func (e *CoverageError) Is(target error) bool {
	return target == ErrInsufficientCoverage
}

// GenerationError identifies the slot whose retry budget ran out. No
// partial exam is ever returned alongside it.
type GenerationError struct {
	Section  string
	Slot     int
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for section %q slot %d after %d attempts: %v",
		e.Section, e.Slot, e.Attempts, e.Err)
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
