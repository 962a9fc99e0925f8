package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Embedding struct {
		BaseURL   string `yaml:"base_url"`
		Model     string `yaml:"model"`
		VectorDim int    `yaml:"vector_dim"`
	} `yaml:"embedding"`

	Generator struct {
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
		RateLimit   float64 `yaml:"rate_limit"`
	} `yaml:"generator"`

	Database struct {
		URL              string `yaml:"url"`
		QuestionsTable   string `yaml:"questions_table"`
		CollectionsTable string `yaml:"collections_table"`
		BatchSize        int    `yaml:"batch_size"`
	} `yaml:"database"`

	Ingest struct {
		SourceDir string `yaml:"source_dir"`
		Workers   int    `yaml:"workers"`
	} `yaml:"ingest"`

	Generation struct {
		TopK           int    `yaml:"top_k"`
		MaxAttempts    int    `yaml:"max_attempts"`
		Workers        int    `yaml:"workers"`
		SlotTimeoutSec int    `yaml:"slot_timeout_seconds"`
		OutputDir      string `yaml:"output_dir"`
	} `yaml:"generation"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/examforge/config.yaml"),
			"/etc/examforge/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Embedding.BaseURL == "" {
		config.Embedding.BaseURL = "http://localhost:11434"
	}
	if config.Embedding.Model == "" {
		config.Embedding.Model = "nomic-embed-text:latest"
	}
	if config.Embedding.VectorDim == 0 {
		config.Embedding.VectorDim = 768
	}

	if config.Generator.BaseURL == "" {
		config.Generator.BaseURL = "https://api.groq.com/openai/v1"
	}
	if config.Generator.Model == "" {
		config.Generator.Model = "llama-3.1-8b-instant"
	}
	if config.Generator.MaxTokens == 0 {
		config.Generator.MaxTokens = 4096
	}
	if config.Generator.Temperature == 0 {
		config.Generator.Temperature = 0.7
	}
	if config.Generator.RateLimit == 0 {
		config.Generator.RateLimit = 0.5
	}

	if config.Database.QuestionsTable == "" {
		config.Database.QuestionsTable = "questions"
	}
	if config.Database.CollectionsTable == "" {
		config.Database.CollectionsTable = "collections"
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}

	if config.Ingest.Workers == 0 {
		config.Ingest.Workers = 4
	}

	if config.Generation.TopK == 0 {
		config.Generation.TopK = 3
	}
	if config.Generation.MaxAttempts == 0 {
		config.Generation.MaxAttempts = 3
	}
	if config.Generation.Workers == 0 {
		config.Generation.Workers = 8
	}
	if config.Generation.SlotTimeoutSec == 0 {
		config.Generation.SlotTimeoutSec = 120
	}
	if config.Generation.OutputDir == "" {
		config.Generation.OutputDir = "generated_exams"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.Embedding.BaseURL = baseURL
	}
	if baseURL := os.Getenv("GENERATOR_BASE_URL"); baseURL != "" {
		config.Generator.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
}
