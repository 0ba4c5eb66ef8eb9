package models

import "context"

// SeriesSource supplies ascending bars for one symbol.
// Failures should be returned as *RetrievalError so the upstream description
// reaches the report unmodified.
type SeriesSource interface {
	GetSeries(ctx context.Context, req SeriesRequest) ([]Bar, error)
}
