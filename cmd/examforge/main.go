package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	cfgPkg "github.com/examforge/examforge/pkg/config"
	"github.com/examforge/examforge/pkg/llm"
	"github.com/examforge/examforge/pkg/orchestrator"
	"github.com/examforge/examforge/pkg/schema"
	"github.com/examforge/examforge/pkg/store"
)

func main() {
	godotenv.Load()

	var configPath, examType, stream string
	var list bool
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&examType, "exam", "", "Exam type (CAT or GATE)")
	flag.StringVar(&stream, "stream", "", "Stream code for stream-specific exams (e.g. CS)")
	flag.BoolVar(&list, "list", false, "List supported variants for the exam type")
	flag.Parse()

	if examType == "" {
		log.Fatal("-exam is required")
	}

	config, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		log.Fatal("invalid configuration")
	}

	registry, err := schema.NewRegistry()
	if err != nil {
		log.Fatal(err)
	}

	if list {
		variants := registry.Variants(examType)
		if len(variants) == 0 {
			log.Fatalf("unknown exam type %q", examType)
		}
		for _, v := range variants {
			if v == "" {
				v = "(default)"
			}
			fmt.Println(v)
		}
		return
	}

	if err := run(config, registry, examType, stream); err != nil {
		log.Fatal(err)
	}
}

func run(config *cfgPkg.Config, registry *schema.Registry, examType, stream string) error {
	ctx := context.Background()

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		BaseURL: config.Embedding.BaseURL,
		Model:   config.Embedding.Model,
	})
	if err != nil {
		return err
	}

	index, err := store.NewWithConfig(ctx, store.Config{
		ConnString:       config.Database.URL,
		QuestionsTable:   config.Database.QuestionsTable,
		CollectionsTable: config.Database.CollectionsTable,
		VectorDim:        config.Embedding.VectorDim,
		ModelVersion:     embedder.ModelVersion(),
		BatchSize:        config.Database.BatchSize,
	})
	if err != nil {
		return err
	}
	defer index.Close()

	generator, err := llm.NewGeneratorWithConfig(llm.GeneratorConfig{
		BaseURL:     config.Generator.BaseURL,
		Model:       config.Generator.Model,
		MaxTokens:   config.Generator.MaxTokens,
		Temperature: config.Generator.Temperature,
		RateLimit:   config.Generator.RateLimit,
	})
	if err != nil {
		return err
	}

	orch := orchestrator.New(registry, index, embedder, generator, orchestrator.Config{
		TopK:        config.Generation.TopK,
		MaxAttempts: config.Generation.MaxAttempts,
		Workers:     config.Generation.Workers,
		SlotTimeout: time.Duration(config.Generation.SlotTimeoutSec) * time.Second,
	})

	label := strings.ToUpper(examType)
	if stream != "" {
		label += " " + strings.ToUpper(stream)
	}
	spinner := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(" Generating %s mock exam...", label)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
	)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				spinner.Add(1)
				time.Sleep(100 * time.Millisecond)
			}
		}
	}()

	exam, err := orch.Generate(ctx, examType, stream)
	close(done)
	spinner.Finish()
	fmt.Println()
	if err != nil {
		return err
	}

	color.Green("✓ Generated %s exam with %d questions", label, exam.QuestionCount())
	for _, sec := range exam.Sections {
		color.Cyan("  %s: %d questions, %d minutes", sec.Name, len(sec.Questions), sec.DurationMinutes)
	}

	path, err := saveExam(config.Generation.OutputDir, exam)
	if err != nil {
		return err
	}
	color.Green("✓ Saved to %s", path)
	return nil
}

func saveExam(dir string, exam interface{}) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating output directory: %v", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("exam_%s.json", time.Now().Format("20060102_150405")))
	data, err := json.MarshalIndent(exam, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error encoding exam: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("error writing exam file: %v", err)
	}
	return path, nil
}
