// Package source fetches raw call/ticket records from the external
// helpdesk platform. Two implementations: the platform's JSON API, and
// XLSX exports for offline import.
package source

import (
	"context"
	"time"

	"servicing-insights-go/internal/types"
)

// Source pulls every record whose start date falls in [start, end].
// Returning zero records is a successful no-op, not an error.
type Source interface {
	FetchRecords(ctx context.Context, start, end time.Time) ([]types.RawCallRecord, error)
}
