package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestHTTPSourceFetch(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k1", r.Header.Get("Authorization"))
		assert.Equal(t, start.Format(time.RFC3339), r.URL.Query().Get("start"))
		assert.Equal(t, end.Format(time.RFC3339), r.URL.Query().Get("end"))

		w.Write([]byte(`{"records":[
			{"call_id":"c1","agent_id":"a1","started_at":"2026-03-01T10:00:00Z","duration_secs":240,"transcript":"agent: hello customer: hi"},
			{"call_id":"c2","started_at":"2026-03-01T11:00:00Z","transcript":"agent: hello"}
		]}`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, "k1")
	recs, err := src.FetchRecords(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "c1", recs[0].CallID)
	assert.Equal(t, "a1", recs[0].AgentID)
	assert.Equal(t, 240, recs[0].DurationSecs)
	assert.True(t, recs[0].StartedAt.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))
}

func TestHTTPSourceNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, "")
	_, err := src.FetchRecords(context.Background(), time.Now(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPSourceBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, "")
	_, err := src.FetchRecords(context.Background(), time.Now(), time.Now())
	assert.Error(t, err)
}

func writeExport(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellRef, &row))
	}
	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestXLSXSourceFetch(t *testing.T) {
	path := writeExport(t, [][]any{
		{"Call ID", "Agent Name", "Agent", "Start Date", "Duration", "Transcript", "Subject"},
		{"c1", "Pat", "a1", "2026-03-01 10:00:00", "300", "agent: hello customer: my escrow went up", "escrow question"},
		{"c2", "", "", "2026-03-01", "", "agent: hi customer: payment question", ""},
		{"", "Pat", "a1", "2026-03-01 11:00:00", "60", "orphan row without id", ""},       // skipped: no call id
		{"c4", "Pat", "a1", "garbage date", "60", "agent: hello", ""},                    // skipped: bad date
		{"c5", "Pat", "a1", "2026-04-20 10:00:00", "60", "agent: hello customer: hi", ""}, // skipped: outside window
	})

	src := NewXLSXSource(path)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	recs, err := src.FetchRecords(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "c1", recs[0].CallID)
	assert.Equal(t, "a1", recs[0].AgentID)
	assert.Equal(t, "Pat", recs[0].AgentName)
	assert.Equal(t, 300, recs[0].DurationSecs)
	assert.Equal(t, "escrow question", recs[0].TicketTitle)
	assert.Equal(t, "c2", recs[1].CallID)
}

func TestXLSXSourceMissingRequiredColumns(t *testing.T) {
	path := writeExport(t, [][]any{
		{"Agent", "Duration"},
		{"a1", "300"},
	})

	src := NewXLSXSource(path)
	_, err := src.FetchRecords(context.Background(), time.Time{}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing call id or transcript")
}

func TestXLSXSourceHeaderOnly(t *testing.T) {
	path := writeExport(t, [][]any{
		{"Call ID", "Transcript"},
	})

	src := NewXLSXSource(path)
	recs, err := src.FetchRecords(context.Background(), time.Time{}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestParseWhenFormats(t *testing.T) {
	cases := map[string]bool{
		"2026-03-01T10:00:00Z":  true,
		"2026-03-01 10:00:00":   true,
		"2026-03-01":            true,
		"03/01/2026 10:00":      true,
		"03/01/2026":            true,
		"first of march":        false,
		"":                      false,
	}
	for raw, want := range cases {
		got := parseWhen(raw)
		assert.Equal(t, want, !got.IsZero(), "input %q", raw)
	}
}
