// Package pipeline is the delta-sync control plane: determine the sync
// window, fetch new records, import them, run LLM analysis over whatever
// has none yet with bounded concurrency, and checkpoint after every batch
// so a crashed run resumes where the last completed batch left off.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"servicing-insights-go/internal/analyze"
	"servicing-insights-go/internal/llm"
	"servicing-insights-go/internal/normalize"
	"servicing-insights-go/internal/source"
	"servicing-insights-go/internal/types"
)

const (
	DefaultBatchSize      = 20
	DefaultMaxConcurrency = 20
	DefaultMaxRetries     = 3
)

// Storage is what the pipeline needs from the system of record.
type Storage interface {
	FindMostRecentStart(ctx context.Context) (time.Time, bool, error)
	UpsertCall(ctx context.Context, rec types.RawCallRecord, heuristic types.TranscriptAnalysisResult) error
	FindUnanalyzed(ctx context.Context, ids []string) ([]types.RawCallRecord, error)
	SaveAnalysis(ctx context.Context, callID string, analysis types.LLMAnalysis, model string) error
	LoadCheckpoint(ctx context.Context) (types.Checkpoint, bool, error)
	SaveCheckpoint(ctx context.Context, cp types.Checkpoint) error
}

// LLMAnalyzer is the single-attempt analysis call; the pipeline owns
// retries.
type LLMAnalyzer interface {
	Analyze(ctx context.Context, conversation []types.ConversationMessage) (types.LLMAnalysis, error)
}

// AnalysisPublisher forwards completed analyses to downstream consumers.
// Optional; publish failures are logged and never counted as analysis
// errors.
type AnalysisPublisher interface {
	PublishAnalysis(callID string, analysis types.LLMAnalysis, model string) error
}

type Config struct {
	// BaselineDate is a hard floor: no sync window ever starts earlier,
	// even when storage is empty or corrupted.
	BaselineDate   time.Time
	BatchSize      int
	MaxConcurrency int
	MaxRetries     int
	Model          string
	// Progress fires after each completed batch with (processed, total).
	Progress func(processed, total int)
}

type Pipeline struct {
	storage   Storage
	src       source.Source
	llmClient LLMAnalyzer
	analyzer  *analyze.Analyzer
	publisher AnalysisPublisher
	cfg       Config
	log       *logrus.Entry
}

func New(storage Storage, src source.Source, llmClient LLMAnalyzer, analyzer *analyze.Analyzer, cfg Config, log *logrus.Entry) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	return &Pipeline{
		storage:   storage,
		src:       src,
		llmClient: llmClient,
		analyzer:  analyzer,
		cfg:       cfg,
		log:       log,
	}
}

// WithPublisher attaches an optional analysis-event publisher.
func (p *Pipeline) WithPublisher(pub AnalysisPublisher) *Pipeline {
	p.publisher = pub
	return p
}

// Run executes one full sync. The returned stats are filled in even on
// failure so an operator can tell "nothing to do" from "everything
// failed". Per-record analysis failures never fail the run; only
// pipeline-level faults do.
func (p *Pipeline) Run(ctx context.Context) (types.SyncStats, error) {
	stats := types.SyncStats{StartTime: time.Now(), Errors: []string{}}

	start, end, err := p.determineWindow(ctx)
	if err != nil {
		return stats, &PipelineFault{Stage: "determine_window", Cause: err}
	}
	stats.SyncStartDate = start
	stats.SyncEndDate = end
	p.log.WithFields(logrus.Fields{
		"window_start": start.Format(time.RFC3339),
		"window_end":   end.Format(time.RFC3339),
	}).Info("sync window determined")

	records, err := p.src.FetchRecords(ctx, start, end)
	if err != nil {
		return stats, &PipelineFault{Stage: "fetch", Cause: err}
	}
	stats.Fetched = len(records)
	if len(records) == 0 {
		p.log.Info("no new records in window")
		return stats, nil
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		heuristic := p.analyzer.Analyze(rec.Transcript, rec.DurationSecs)
		if err := p.storage.UpsertCall(ctx, rec, heuristic); err != nil {
			return stats, &PipelineFault{Stage: "import", Cause: err}
		}
		stats.Imported++
		ids = append(ids, rec.CallID)
	}

	pending, err := p.storage.FindUnanalyzed(ctx, ids)
	if err != nil {
		return stats, &PipelineFault{Stage: "select_unanalyzed", Cause: err}
	}
	stats.Skipped = stats.Fetched - len(pending)
	p.log.WithFields(logrus.Fields{
		"imported": stats.Imported,
		"pending":  len(pending),
		"skipped":  stats.Skipped,
	}).Info("import complete")

	if err := p.analyzeAll(ctx, pending, &stats); err != nil {
		return stats, err
	}
	return stats, nil
}

// AnalyzePending runs only the ANALYZE/CHECKPOINT phase over records that
// are already in storage. The backfill tool uses this to re-drive LLM
// analysis without touching the fetch/import path.
func (p *Pipeline) AnalyzePending(ctx context.Context, pending []types.RawCallRecord) (types.SyncStats, error) {
	stats := types.SyncStats{StartTime: time.Now(), Errors: []string{}}
	stats.Fetched = len(pending)
	err := p.analyzeAll(ctx, pending, &stats)
	return stats, err
}

// determineWindow picks [max(mostRecent, baseline), now].
func (p *Pipeline) determineWindow(ctx context.Context) (time.Time, time.Time, error) {
	start := p.cfg.BaselineDate
	mostRecent, ok, err := p.storage.FindMostRecentStart(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if ok && mostRecent.After(start) {
		start = mostRecent
	}
	return start, time.Now(), nil
}

// analyzeAll works through pending records in fixed-size batches with a
// bounded worker pool. Results complete out of order; each one carries
// its own call ID. A checkpoint lands after every completed batch, and a
// final one is written even when the context is cancelled mid-run.
func (p *Pipeline) analyzeAll(ctx context.Context, pending []types.RawCallRecord, stats *types.SyncStats) error {
	if len(pending) == 0 {
		return nil
	}

	baseCount := 0
	if cp, ok, err := p.storage.LoadCheckpoint(ctx); err != nil {
		return &PipelineFault{Stage: "load_checkpoint", Cause: err}
	} else if ok {
		baseCount = cp.ProcessedCount
	}

	var mu sync.Mutex
	processed := 0
	total := len(pending)

	for batchStart := 0; batchStart < total; batchStart += p.cfg.BatchSize {
		if ctx.Err() != nil {
			// Cancelled: stop issuing new batches, but still write the
			// final checkpoint reflecting what completed.
			break
		}
		batchEnd := batchStart + p.cfg.BatchSize
		if batchEnd > total {
			batchEnd = total
		}
		batch := pending[batchStart:batchEnd]

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.cfg.MaxConcurrency)
		for _, rec := range batch {
			rec := rec
			g.Go(func() error {
				analysisErr, fault := p.analyzeOne(gctx, rec)
				mu.Lock()
				defer mu.Unlock()
				processed++
				if fault != nil {
					return fault
				}
				if analysisErr != nil {
					stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", rec.CallID, analysisErr))
				} else {
					stats.Analyzed++
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			// Storage fault inside a worker; checkpoint what completed
			// before surfacing it.
			p.checkpoint(processed+baseCount, lastID(batch))
			return err
		}

		p.checkpoint(processed+baseCount, lastID(batch))
		if p.cfg.Progress != nil {
			p.cfg.Progress(processed, total)
		}
	}

	if ctx.Err() != nil {
		p.log.WithField("processed", processed).Warn("run cancelled, final checkpoint written")
		return ctx.Err()
	}
	return nil
}

// analyzeOne runs one record through the LLM client with retry/backoff.
// The first return value is a per-record failure (recorded, not fatal);
// the second is a pipeline-level fault.
func (p *Pipeline) analyzeOne(ctx context.Context, rec types.RawCallRecord) (error, error) {
	conversation := normalize.ParseConversation(normalize.Normalize(rec.Transcript))

	var result types.LLMAnalysis
	operation := func() error {
		res, err := p.llmClient.Analyze(ctx, conversation)
		if err != nil {
			var invalid *llm.InvalidInputError
			if errors.As(err, &invalid) {
				// Caller bug, retrying cannot help.
				return backoff.Permanent(err)
			}
			return err
		}
		result = res
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(p.cfg.MaxRetries)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		p.log.WithField("call_id", rec.CallID).WithError(err).Warn("llm analysis failed")
		return err, nil
	}

	if err := p.storage.SaveAnalysis(ctx, rec.CallID, result, p.cfg.Model); err != nil {
		return nil, &PipelineFault{Stage: "save_analysis", Cause: err}
	}

	if p.publisher != nil {
		if err := p.publisher.PublishAnalysis(rec.CallID, result, p.cfg.Model); err != nil {
			p.log.WithField("call_id", rec.CallID).WithError(err).Warn("publish analysis failed")
		}
	}
	return nil, nil
}

func (p *Pipeline) checkpoint(processedCount int, lastProcessedID string) {
	// Checkpoint writes use a background context: they must land even
	// when the run context is already cancelled.
	cpCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cp := types.Checkpoint{
		ProcessedCount:  processedCount,
		LastProcessedID: lastProcessedID,
		Timestamp:       time.Now().UTC(),
	}
	if err := p.storage.SaveCheckpoint(cpCtx, cp); err != nil {
		p.log.WithError(err).Error("checkpoint write failed")
	}
}

func lastID(batch []types.RawCallRecord) string {
	if len(batch) == 0 {
		return ""
	}
	return batch[len(batch)-1].CallID
}
