package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servicing-insights-go/internal/analyze"
	"servicing-insights-go/internal/llm"
	"servicing-insights-go/internal/types"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type fakeStorage struct {
	mu sync.Mutex

	calls    map[string]types.RawCallRecord
	analyses map[string]types.LLMAnalysis

	checkpoint    types.Checkpoint
	hasCheckpoint bool
	cpWrites      []types.Checkpoint

	mostRecent time.Time
	hasRecent  bool

	saveAnalysisErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		calls:    map[string]types.RawCallRecord{},
		analyses: map[string]types.LLMAnalysis{},
	}
}

func (f *fakeStorage) FindMostRecentStart(ctx context.Context) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mostRecent, f.hasRecent, nil
}

func (f *fakeStorage) UpsertCall(ctx context.Context, rec types.RawCallRecord, heuristic types.TranscriptAnalysisResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[rec.CallID] = rec
	return nil
}

func (f *fakeStorage) FindUnanalyzed(ctx context.Context, ids []string) ([]types.RawCallRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.RawCallRecord
	for _, id := range ids {
		rec, known := f.calls[id]
		if !known {
			continue
		}
		if _, done := f.analyses[id]; done {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeStorage) SaveAnalysis(ctx context.Context, callID string, analysis types.LLMAnalysis, model string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveAnalysisErr != nil {
		return f.saveAnalysisErr
	}
	f.analyses[callID] = analysis
	return nil
}

func (f *fakeStorage) LoadCheckpoint(ctx context.Context) (types.Checkpoint, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkpoint, f.hasCheckpoint, nil
}

func (f *fakeStorage) SaveCheckpoint(ctx context.Context, cp types.Checkpoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cp.ProcessedCount > f.checkpoint.ProcessedCount {
		f.checkpoint.ProcessedCount = cp.ProcessedCount
	}
	f.checkpoint.LastProcessedID = cp.LastProcessedID
	f.checkpoint.Timestamp = cp.Timestamp
	f.hasCheckpoint = true
	f.cpWrites = append(f.cpWrites, cp)
	return nil
}

func (f *fakeStorage) checkpointWrites() []types.Checkpoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.Checkpoint, len(f.cpWrites))
	copy(out, f.cpWrites)
	return out
}

func (f *fakeStorage) analysisCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.analyses)
}

type fakeSource struct {
	mu       sync.Mutex
	records  []types.RawCallRecord
	err      error
	gotStart time.Time
	gotEnd   time.Time
}

func (f *fakeSource) FetchRecords(ctx context.Context, start, end time.Time) ([]types.RawCallRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotStart, f.gotEnd = start, end
	return f.records, f.err
}

// fakeLLM keys behavior off the conversation text. Turns containing
// "badinput" fail permanently; "flaky" fails with an upstream error
// until attemptsBeforeOK attempts have been made.
type fakeLLM struct {
	mu               sync.Mutex
	calls            int
	flakyAttempts    int
	attemptsBeforeOK int
}

func (f *fakeLLM) Analyze(ctx context.Context, conversation []types.ConversationMessage) (types.LLMAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	joined := ""
	for _, m := range conversation {
		joined += m.Text + " "
	}
	if strings.Contains(joined, "badinput") {
		return types.LLMAnalysis{}, &llm.InvalidInputError{Reason: "unusable transcript"}
	}
	if strings.Contains(joined, "flaky") {
		f.flakyAttempts++
		if f.flakyAttempts <= f.attemptsBeforeOK {
			return types.LLMAnalysis{}, &llm.UpstreamError{StatusCode: 429, Body: "slow down"}
		}
	}
	return types.LLMAnalysis{Resolution: "Resolved", AIDiscoveredTopic: "payments"}, nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (f *fakePublisher) PublishAnalysis(callID string, analysis types.LLMAnalysis, model string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, callID)
	return f.err
}

func makeRecords(n int) []types.RawCallRecord {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	out := make([]types.RawCallRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.RawCallRecord{
			CallID:       fmt.Sprintf("c%d", i+1),
			AgentID:      "a1",
			StartedAt:    start.Add(time.Duration(i) * time.Hour),
			DurationSecs: 300,
			Transcript:   fmt.Sprintf("agent: hello customer: question about call c%d", i+1),
		})
	}
	return out
}

func newTestPipeline(st *fakeStorage, src *fakeSource, lm *fakeLLM, cfg Config) *Pipeline {
	return New(st, src, lm, analyze.NewDefault(), cfg, testLogger())
}

func TestRunImportsAndAnalyzes(t *testing.T) {
	st := newFakeStorage()
	src := &fakeSource{records: makeRecords(3)}
	lm := &fakeLLM{}
	pub := &fakePublisher{}

	p := newTestPipeline(st, src, lm, Config{BaselineDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Model: "m1"}).
		WithPublisher(pub)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Fetched)
	assert.Equal(t, 3, stats.Imported)
	assert.Equal(t, 3, stats.Analyzed)
	assert.Equal(t, 0, stats.Skipped)
	assert.Empty(t, stats.Errors)
	assert.Equal(t, 3, st.analysisCount())
	assert.Len(t, pub.events, 3)

	writes := st.checkpointWrites()
	require.NotEmpty(t, writes)
	assert.Equal(t, 3, writes[len(writes)-1].ProcessedCount)
}

func TestWindowStartsAtBaselineWhenStoreEmpty(t *testing.T) {
	st := newFakeStorage()
	src := &fakeSource{}
	baseline := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	p := newTestPipeline(st, src, &fakeLLM{}, Config{BaselineDate: baseline})
	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, src.gotStart.Equal(baseline))
	assert.True(t, stats.SyncStartDate.Equal(baseline))
}

func TestBaselineIsHardFloor(t *testing.T) {
	st := newFakeStorage()
	st.hasRecent = true
	st.mostRecent = time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC) // stale data predates the floor
	src := &fakeSource{}
	baseline := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	p := newTestPipeline(st, src, &fakeLLM{}, Config{BaselineDate: baseline})
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, src.gotStart.Equal(baseline))
}

func TestWindowAdvancesWithMostRecentRecord(t *testing.T) {
	st := newFakeStorage()
	st.hasRecent = true
	st.mostRecent = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{}

	p := newTestPipeline(st, src, &fakeLLM{}, Config{BaselineDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, src.gotStart.Equal(st.mostRecent))
}

func TestRerunSkipsAlreadyAnalyzed(t *testing.T) {
	st := newFakeStorage()
	src := &fakeSource{records: makeRecords(3)}
	lm := &fakeLLM{}

	p := newTestPipeline(st, src, lm, Config{BaselineDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	firstCalls := lm.callCount()

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Fetched)
	assert.Equal(t, 0, stats.Analyzed)
	assert.Equal(t, 3, stats.Skipped)
	assert.Equal(t, firstCalls, lm.callCount(), "no repeat analysis calls")
}

func TestResumeBuildsOnExistingCheckpoint(t *testing.T) {
	st := newFakeStorage()
	st.hasCheckpoint = true
	st.checkpoint = types.Checkpoint{ProcessedCount: 60, LastProcessedID: "old60"}
	src := &fakeSource{records: makeRecords(5)}

	p := newTestPipeline(st, src, &fakeLLM{}, Config{
		BaselineDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		BatchSize:    2,
	})

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	writes := st.checkpointWrites()
	require.NotEmpty(t, writes)
	assert.Equal(t, 65, writes[len(writes)-1].ProcessedCount)
}

func TestPerRecordFailureDoesNotFailRun(t *testing.T) {
	st := newFakeStorage()
	records := makeRecords(3)
	records[1].Transcript = "agent: hello customer: badinput"
	src := &fakeSource{records: records}

	p := newTestPipeline(st, src, &fakeLLM{}, Config{BaselineDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})

	stats, err := p.Run(context.Background())
	require.NoError(t, err, "per-record failures never fail the run")

	assert.Equal(t, 2, stats.Analyzed)
	require.Len(t, stats.Errors, 1)
	assert.Contains(t, stats.Errors[0], "c2")
	assert.Equal(t, 2, st.analysisCount())

	writes := st.checkpointWrites()
	require.NotEmpty(t, writes)
	assert.Equal(t, 3, writes[len(writes)-1].ProcessedCount, "failed records still count as processed")
}

func TestInvalidInputIsNotRetried(t *testing.T) {
	st := newFakeStorage()
	records := makeRecords(1)
	records[0].Transcript = "agent: hello customer: badinput"
	src := &fakeSource{records: records}
	lm := &fakeLLM{}

	p := newTestPipeline(st, src, lm, Config{BaselineDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, lm.callCount(), "permanent errors get exactly one attempt")
}

func TestUpstreamErrorIsRetried(t *testing.T) {
	st := newFakeStorage()
	records := makeRecords(1)
	records[0].Transcript = "agent: hello customer: flaky connection question"
	src := &fakeSource{records: records}
	lm := &fakeLLM{attemptsBeforeOK: 2}

	p := newTestPipeline(st, src, lm, Config{BaselineDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Analyzed)
	assert.Empty(t, stats.Errors)
	assert.Equal(t, 3, lm.callCount())
}

func TestFetchFailureIsPipelineFault(t *testing.T) {
	st := newFakeStorage()
	src := &fakeSource{err: errors.New("connection refused")}

	p := newTestPipeline(st, src, &fakeLLM{}, Config{BaselineDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})

	_, err := p.Run(context.Background())
	var fault *PipelineFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "fetch", fault.Stage)
}

func TestSaveAnalysisFaultAbortsRunAfterCheckpoint(t *testing.T) {
	st := newFakeStorage()
	st.saveAnalysisErr = errors.New("disk full")
	src := &fakeSource{records: makeRecords(2)}

	p := newTestPipeline(st, src, &fakeLLM{}, Config{BaselineDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})

	_, err := p.Run(context.Background())
	var fault *PipelineFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "save_analysis", fault.Stage)
	assert.NotEmpty(t, st.checkpointWrites(), "progress is checkpointed before the fault surfaces")
}

func TestEmptyWindowIsNoOp(t *testing.T) {
	st := newFakeStorage()
	src := &fakeSource{}
	lm := &fakeLLM{}

	p := newTestPipeline(st, src, lm, Config{BaselineDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Fetched)
	assert.Equal(t, 0, lm.callCount())
	assert.Empty(t, st.checkpointWrites())
}

func TestPublisherFailureIsNonFatal(t *testing.T) {
	st := newFakeStorage()
	src := &fakeSource{records: makeRecords(2)}
	pub := &fakePublisher{err: errors.New("broker down")}

	p := newTestPipeline(st, src, &fakeLLM{}, Config{BaselineDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}).
		WithPublisher(pub)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Analyzed)
	assert.Empty(t, stats.Errors)
}

func TestCancellationWritesFinalCheckpoint(t *testing.T) {
	st := newFakeStorage()
	src := &fakeSource{records: makeRecords(5)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newTestPipeline(st, src, &fakeLLM{}, Config{
		BaselineDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		BatchSize:    1,
		Progress: func(processed, total int) {
			if processed >= 2 {
				cancel()
			}
		},
	})

	stats, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 2, stats.Analyzed)
	writes := st.checkpointWrites()
	require.NotEmpty(t, writes)
	assert.Equal(t, 2, writes[len(writes)-1].ProcessedCount)
}

func TestAnalyzePendingDrivesOnlyAnalysis(t *testing.T) {
	st := newFakeStorage()
	records := makeRecords(3)
	for _, rec := range records {
		require.NoError(t, st.UpsertCall(context.Background(), rec, types.TranscriptAnalysisResult{}))
	}

	p := newTestPipeline(st, &fakeSource{}, &fakeLLM{}, Config{Model: "m1"})

	stats, err := p.AnalyzePending(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Analyzed)
	assert.Equal(t, 3, st.analysisCount())
}
