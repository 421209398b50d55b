// Backfill re-drives LLM analysis for stored calls that have none,
// without touching the fetch/import path. Useful after a prompt or model
// change, or when an earlier run left gaps.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"servicing-insights-go/internal/analyze"
	"servicing-insights-go/internal/llm"
	"servicing-insights-go/internal/logger"
	"servicing-insights-go/internal/pipeline"
	"servicing-insights-go/internal/store"
)

func main() {
	_ = godotenv.Load()

	dbPath := flag.String("db", envOr("DB_PATH", "insights.db"), "sqlite database path")
	startStr := flag.String("start", "", "window start (YYYY-MM-DD, required)")
	endStr := flag.String("end", "", "window end (YYYY-MM-DD, default today)")
	batchSize := flag.Int("batch", pipeline.DefaultBatchSize, "analysis batch size")
	concurrency := flag.Int("concurrency", pipeline.DefaultMaxConcurrency, "max concurrent llm calls")
	flag.Parse()

	log := logger.New()
	runLog, _ := log.WithRun()
	runLog = runLog.WithField("service", "servicing-insights-backfill")

	if *startStr == "" {
		runLog.Fatal("-start is required")
	}
	start, err := time.Parse("2006-01-02", *startStr)
	if err != nil {
		runLog.WithError(err).Fatal("invalid -start")
	}
	end := time.Now()
	if *endStr != "" {
		if end, err = time.Parse("2006-01-02", *endStr); err != nil {
			runLog.WithError(err).Fatal("invalid -end")
		}
		// inclusive through end of day
		end = end.Add(24*time.Hour - time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(*dbPath)
	if err != nil {
		runLog.WithError(err).Fatal("open store")
	}
	defer st.Close()

	pending, err := st.FindCallsMissingAnalysis(ctx, start, end)
	if err != nil {
		runLog.WithError(err).Fatal("list calls missing analysis")
	}
	runLog.WithField("pending", len(pending)).Info("backfill candidates found")
	if len(pending) == 0 {
		return
	}

	if os.Getenv("LLM_GATEWAY_URL") == "" || os.Getenv("LLM_API_KEY") == "" {
		runLog.Fatal("LLM_GATEWAY_URL and LLM_API_KEY must be set")
	}
	llmClient := llm.NewClient(llm.Config{
		GatewayURL: os.Getenv("LLM_GATEWAY_URL"),
		APIKey:     os.Getenv("LLM_API_KEY"),
		Model:      envOr("LLM_MODEL", "gpt-4o-mini"),
		Timeout:    time.Duration(envInt("LLM_TIMEOUT_SECS", 45)) * time.Second,
	})

	cfg := pipeline.Config{
		BatchSize:      *batchSize,
		MaxConcurrency: *concurrency,
		MaxRetries:     envInt("MAX_RETRIES", pipeline.DefaultMaxRetries),
		Model:          envOr("LLM_MODEL", "gpt-4o-mini"),
		Progress: func(processed, total int) {
			runLog.WithField("processed", processed).WithField("total", total).Info("backfill progress")
		},
	}
	pipe := pipeline.New(st, nil, llmClient, analyze.NewDefault(), cfg, runLog)

	stats, err := pipe.AnalyzePending(ctx, pending)
	summary := runLog.WithField("analyzed", stats.Analyzed).
		WithField("errors", len(stats.Errors)).
		WithField("duration", time.Since(stats.StartTime).String())
	if err != nil {
		summary.WithError(err).Fatal("backfill failed")
	}
	summary.Info("backfill complete")
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
