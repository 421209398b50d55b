package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"servicing-insights-go/internal/analyze"
	"servicing-insights-go/internal/categorize"
	"servicing-insights-go/internal/llm"
	"servicing-insights-go/internal/logger"
	"servicing-insights-go/internal/pipeline"
	"servicing-insights-go/internal/publish"
	"servicing-insights-go/internal/source"
	"servicing-insights-go/internal/store"
)

// Earliest date the pipeline will ever fetch, regardless of checkpoint or
// storage state. Overridable via BASELINE_DATE.
const defaultBaselineDate = "2024-01-01"

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	runLog, runID := log.WithRun()
	runLog.WithField("service", "servicing-insights-sync").Info("starting sync run")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseline, err := time.Parse("2006-01-02", envOr("BASELINE_DATE", defaultBaselineDate))
	if err != nil {
		runLog.WithError(err).Fatal("invalid BASELINE_DATE")
	}

	st, err := store.Open(envOr("DB_PATH", "insights.db"))
	if err != nil {
		runLog.WithError(err).Fatal("open store")
	}
	defer st.Close()

	var src source.Source
	if xlsxPath := os.Getenv("SOURCE_XLSX"); xlsxPath != "" {
		src = source.NewXLSXSource(xlsxPath)
	} else {
		sourceURL := os.Getenv("SOURCE_URL")
		if sourceURL == "" {
			runLog.Fatal("SOURCE_URL or SOURCE_XLSX must be set")
		}
		src = source.NewHTTPSource(sourceURL, os.Getenv("SOURCE_API_KEY"))
	}

	categorizer := categorize.NewDefault()
	if taxonomyPath := os.Getenv("TAXONOMY_PATH"); taxonomyPath != "" {
		defs, err := categorize.LoadTaxonomy(taxonomyPath)
		if err != nil {
			runLog.WithError(err).Fatal("load taxonomy")
		}
		categorizer = categorize.New(defs)
	}
	analyzer := analyze.New(categorizer)

	llmClient := llm.NewClient(llm.Config{
		GatewayURL: mustEnv(runLog, "LLM_GATEWAY_URL"),
		APIKey:     mustEnv(runLog, "LLM_API_KEY"),
		Model:      envOr("LLM_MODEL", "gpt-4o-mini"),
		Timeout:    time.Duration(envInt("LLM_TIMEOUT_SECS", 45)) * time.Second,
	})

	cfg := pipeline.Config{
		BaselineDate:   baseline,
		BatchSize:      envInt("BATCH_SIZE", pipeline.DefaultBatchSize),
		MaxConcurrency: envInt("MAX_CONCURRENCY", pipeline.DefaultMaxConcurrency),
		MaxRetries:     envInt("MAX_RETRIES", pipeline.DefaultMaxRetries),
		Model:          envOr("LLM_MODEL", "gpt-4o-mini"),
		Progress: func(processed, total int) {
			runLog.WithField("processed", processed).WithField("total", total).Info("analysis progress")
		},
	}

	pipe := pipeline.New(st, src, llmClient, analyzer, cfg, runLog)

	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		pub, err := publish.NewPublisher(amqpURL, envOr("AMQP_QUEUE_NAME", "call-analyses"))
		if err != nil {
			runLog.WithError(err).Warn("amqp unavailable, continuing without publisher")
		} else {
			defer pub.Close()
			pipe.WithPublisher(pub)
		}
	}

	stats, err := pipe.Run(ctx)
	summary := runLog.WithField("run_id", runID).
		WithField("fetched", stats.Fetched).
		WithField("imported", stats.Imported).
		WithField("analyzed", stats.Analyzed).
		WithField("skipped", stats.Skipped).
		WithField("errors", len(stats.Errors)).
		WithField("duration", time.Since(stats.StartTime).String())
	if err != nil {
		summary.WithError(err).Fatal("sync run failed")
	}
	summary.Info("sync run complete")
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func mustEnv(log *logrus.Entry, k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatal(k + " not set")
	}
	return v
}
