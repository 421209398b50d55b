package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"servicing-insights-go/internal/types"
)

// XLSXSource reads call exports dropped as spreadsheets. Column positions
// vary between export tools, so headers are matched by name heuristics
// and rows with no usable call ID or transcript are skipped quietly.
type XLSXSource struct {
	path string
}

func NewXLSXSource(path string) *XLSXSource {
	return &XLSXSource{path: path}
}

func (s *XLSXSource) FetchRecords(ctx context.Context, start, end time.Time) ([]types.RawCallRecord, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("export file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read export rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	idx := findColumns(rows[0])
	if idx.callID == -1 || idx.transcript == -1 {
		return nil, fmt.Errorf("export missing call id or transcript column")
	}

	var out []types.RawCallRecord
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := types.RawCallRecord{
			CallID:     cell(row, idx.callID),
			AgentID:    cell(row, idx.agentID),
			AgentName:  cell(row, idx.agentName),
			Transcript: cell(row, idx.transcript),
		}
		if rec.CallID == "" || rec.Transcript == "" {
			continue
		}
		rec.StartedAt = parseWhen(cell(row, idx.startedAt))
		if secs := cell(row, idx.duration); secs != "" {
			rec.DurationSecs, _ = strconv.Atoi(secs)
		}
		rec.TicketTitle = cell(row, idx.title)

		if rec.StartedAt.IsZero() {
			continue
		}
		if rec.StartedAt.Before(start) || rec.StartedAt.After(end) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

type columnIndex struct {
	callID     int
	agentID    int
	agentName  int
	startedAt  int
	duration   int
	transcript int
	title      int
}

func findColumns(header []string) columnIndex {
	idx := columnIndex{callID: -1, agentID: -1, agentName: -1, startedAt: -1, duration: -1, transcript: -1, title: -1}
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case idx.callID == -1 && (strings.Contains(l, "call id") || strings.Contains(l, "callid") || strings.Contains(l, "ticket id") || l == "id"):
			idx.callID = i
		case idx.transcript == -1 && (strings.Contains(l, "transcript") || strings.Contains(l, "conversation") || strings.Contains(l, "text")):
			idx.transcript = i
		case idx.agentName == -1 && strings.Contains(l, "agent name"):
			idx.agentName = i
		case idx.agentID == -1 && strings.Contains(l, "agent"):
			idx.agentID = i
		case idx.startedAt == -1 && (strings.Contains(l, "start") || strings.Contains(l, "date") || strings.Contains(l, "created")):
			idx.startedAt = i
		case idx.duration == -1 && strings.Contains(l, "duration"):
			idx.duration = i
		case idx.title == -1 && (strings.Contains(l, "title") || strings.Contains(l, "subject")):
			idx.title = i
		}
	}
	return idx
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Export tools disagree on date formats; try the common ones.
var whenFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
}

func parseWhen(raw string) time.Time {
	for _, layout := range whenFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
