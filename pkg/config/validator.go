package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate embedding config
	if c.Embedding.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "embedding.base_url",
			Message: "embedding server URL is required",
		})
	} else if _, err := url.Parse(c.Embedding.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "embedding.base_url",
			Message: "invalid embedding server URL",
		})
	}

	if c.Embedding.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	// Validate generator config
	if _, err := url.Parse(c.Generator.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "generator.base_url",
			Message: "invalid generator base URL",
		})
	}

	if c.Generator.MaxTokens < 1 || c.Generator.MaxTokens > 8192 {
		errors = append(errors, ValidationError{
			Field:   "generator.max_tokens",
			Message: "max_tokens must be between 1 and 8192",
		})
	}

	if c.Generator.Temperature < 0 || c.Generator.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "generator.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.Generator.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "generator.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	// Validate database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.batch_size",
			Message: "batch_size must be positive",
		})
	}

	// Validate generation config
	if c.Generation.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "generation.top_k",
			Message: "top_k must be positive",
		})
	}

	if c.Generation.MaxAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "generation.max_attempts",
			Message: "max_attempts must be positive",
		})
	}

	if c.Generation.Workers < 1 {
		errors = append(errors, ValidationError{
			Field:   "generation.workers",
			Message: "workers must be positive",
		})
	}

	if c.Generation.SlotTimeoutSec < 1 {
		errors = append(errors, ValidationError{
			Field:   "generation.slot_timeout_seconds",
			Message: "slot_timeout_seconds must be positive",
		})
	}

	if c.Ingest.Workers < 1 {
		errors = append(errors, ValidationError{
			Field:   "ingest.workers",
			Message: "workers must be positive",
		})
	}

	return errors
}
