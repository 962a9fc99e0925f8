package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	cfgPkg "github.com/examforge/examforge/pkg/config"
	"github.com/examforge/examforge/pkg/ingest"
	"github.com/examforge/examforge/pkg/kb"
	"github.com/examforge/examforge/pkg/llm"
	"github.com/examforge/examforge/pkg/store"
)

func main() {
	godotenv.Load()

	var configPath, sourceDir, examType string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&sourceDir, "source", "", "Directory of source documents (.txt/.html)")
	flag.StringVar(&examType, "exam", "", "Exam type of the source documents (CAT or GATE)")
	flag.Parse()

	if sourceDir == "" || examType == "" {
		log.Fatal("both -source and -exam are required")
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

	if err := run(config, sourceDir, examType); err != nil {
		log.Fatal(err)
	}
}

func run(config *cfgPkg.Config, sourceDir, examType string) error {
	ctx := context.Background()

	docs, err := ingest.LoadDir(sourceDir, examType)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no source documents found in %s", sourceDir)
	}
	color.Cyan("Loaded %d source documents from %s", len(docs), sourceDir)

	questions, report := ingest.NormalizeBatch(docs)
	printReport(report)
	if len(questions) == 0 {
		return fmt.Errorf("no questions parsed from any document")
	}
	color.Green("✓ Parsed %d questions", len(questions))

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

	bar := progressbar.NewOptions(len(questions),
		progressbar.OptionSetDescription(color.BlueString(" Embedding questions")),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)

	builder := kb.NewBuilder(embedder, index, kb.Config{
		Workers:   config.Ingest.Workers,
		BatchSize: config.Database.BatchSize,
		OnProgress: func(done, total int) {
			bar.Set(done)
		},
	})

	summary, err := builder.Build(ctx, questions)
	if err != nil {
		return err
	}
	bar.Finish()
	fmt.Println()

	color.Green("✓ Knowledge base build complete")
	for key, count := range summary.Collections {
		color.Cyan("  %s: %d records", key, count)
	}

	return nil
}

func printReport(report ingest.BatchReport) {
	for _, doc := range report.Documents {
		if doc.Err != nil {
			color.Yellow("  skipped %s: %v", doc.Document, doc.Err)
			continue
		}
		if len(doc.Dropped) > 0 {
			color.Yellow("  %s: parsed %d, dropped %d", doc.Document, doc.Parsed, len(doc.Dropped))
			for _, drop := range doc.Dropped {
				color.Yellow("    %s: %s", drop.Marker, drop.Reason)
			}
		}
	}
	if report.Failed() > 0 {
		color.Yellow("%d of %d documents yielded no questions", report.Failed(), len(report.Documents))
	}
}
