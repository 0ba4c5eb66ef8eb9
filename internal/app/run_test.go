package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/TrendScreener/internal/analyze"
	"github.com/Alias1177/TrendScreener/internal/calculate"
	"github.com/Alias1177/TrendScreener/internal/metrics"
	"github.com/Alias1177/TrendScreener/internal/report"
	"github.com/Alias1177/TrendScreener/internal/screener"
	"github.com/Alias1177/TrendScreener/internal/series"
	"github.com/Alias1177/TrendScreener/internal/storage"
	"github.com/Alias1177/TrendScreener/models"
)

type stubSource struct {
	bars map[string][]models.Bar
	errs map[string]error
}

func (s stubSource) GetSeries(_ context.Context, req models.SeriesRequest) ([]models.Bar, error) {
	if err := s.errs[req.Symbol]; err != nil {
		return nil, err
	}
	return s.bars[req.Symbol], nil
}

// risingBars climbs linearly from 100 to 350 over 250 sessions
func risingBars() []models.Bar {
	start := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, 250)
	for i := range bars {
		c := 100 + float64(i)*250/249
		bars[i] = models.Bar{Timestamp: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1_000_000}
	}
	return bars
}

type capture struct {
	subject, body string
}

func (c *capture) Notify(_ context.Context, subject, body string) error {
	c.subject, c.body = subject, body
	return nil
}

func newTestRunner(t *testing.T, source models.SeriesSource, stores []report.Store, notifiers []report.Notifier) *Runner {
	t.Helper()
	rec := metrics.New()
	s, err := screener.New(source, screener.Options{
		Interval: "1day",
		Lookback: models.Lookback{Bars: 300},
		Indicators: calculate.Set{
			calculate.SMA: {50, 100, 200},
			calculate.EMA: {21, 50},
			calculate.HMA: {21, 50},
		},
		ReferenceKey:    "200SMA",
		Band:            analyze.Band{LowPercent: 2, HighPercent: 2},
		Workers:         2,
		SymbolTimeout:   time.Second,
		DuplicatePolicy: series.KeepLast,
	}, rec)
	require.NoError(t, err)

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	r := NewRunner(s, report.NewSink(stores, notifiers), rec, ny)
	r.now = func() time.Time { return time.Date(2024, 5, 17, 20, 0, 0, 0, time.UTC) }
	return r
}

var universe = []models.Security{
	{Symbol: "A", Type: models.TypeStock},
	{Symbol: "B", Type: models.TypeStock},
}

func TestRunPartialSuccess(t *testing.T) {
	dir := t.TempDir()
	notifier := &capture{}
	source := stubSource{
		bars: map[string][]models.Bar{"A": risingBars()},
		errs: map[string]error{"B": &models.RetrievalError{Symbol: "B", Description: "**symbol** not found: B"}},
	}
	runner := newTestRunner(t, source, []report.Store{storage.NewFileStore(dir)}, []report.Notifier{notifier})

	out := runner.Run(context.Background(), universe)

	require.NoError(t, out.Err)
	assert.Equal(t, StatusPartial, out.Status)
	assert.Equal(t, 0, out.Status.ExitCode())
	assert.Equal(t, "17-05-2024", out.Name)

	require.Len(t, out.Result.Rows, 1)
	a := out.Result.Rows[0]
	assert.Equal(t, "A", a.Symbol)
	assert.Equal(t, analyze.LabelAbove, a.Label)
	assert.Equal(t, analyze.NotCrossed, a.Crossing)
	assert.False(t, a.InBucket, "far above the band")
	for _, key := range []string{"50SMA", "100SMA", "200SMA", "21EMA", "50EMA", "21HMA", "50HMA"} {
		assert.True(t, a.Indicator(key).IsDefined(), key)
	}

	require.Len(t, out.Result.Failures, 1)
	assert.Equal(t, "B", out.Result.Failures[0].Symbol)

	path := filepath.Join(dir, "17-05-2024.csv")
	assert.Equal(t, []string{path}, out.Delivery.Locators)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "A,Stock,"))

	assert.Equal(t, "Trend report 17-05-2024", notifier.subject)
	assert.Contains(t, notifier.body, "Failed:\nB: **symbol** not found: B\n")
	assert.Equal(t, 4, strings.Count(notifier.body, "(none)"))
}

func TestRunSuccess(t *testing.T) {
	source := stubSource{bars: map[string][]models.Bar{"A": risingBars(), "B": risingBars()}}
	runner := newTestRunner(t, source, []report.Store{storage.NewFileStore(t.TempDir())}, nil)

	out := runner.Run(context.Background(), universe)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Len(t, out.Result.Rows, 2)
}

func TestRunUndelivered(t *testing.T) {
	source := stubSource{bars: map[string][]models.Bar{"A": risingBars(), "B": risingBars()}}
	broken := report.StoreFunc(func(context.Context, string, report.Table) (string, error) {
		return "", errors.New("permission denied")
	})
	runner := newTestRunner(t, source, []report.Store{broken}, nil)

	out := runner.Run(context.Background(), universe)

	assert.Equal(t, StatusUndelivered, out.Status)
	assert.Equal(t, 2, out.Status.ExitCode())
	var sinkErr *models.SinkError
	assert.ErrorAs(t, out.Err, &sinkErr)
	assert.Len(t, out.Result.Rows, 2, "computed even though not delivered")
}

func TestRunFatal(t *testing.T) {
	notifier := &capture{}
	source := stubSource{
		errs: map[string]error{
			"A": &models.RetrievalError{Symbol: "A", Description: "**apikey** parameter is incorrect", Err: models.ErrUnauthorized},
			"B": &models.RetrievalError{Symbol: "B", Description: "**apikey** parameter is incorrect", Err: models.ErrUnauthorized},
		},
	}
	runner := newTestRunner(t, source, nil, []report.Notifier{notifier})

	out := runner.Run(context.Background(), universe)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, 1, out.Status.ExitCode())
	assert.True(t, models.IsFatal(out.Err))
	assert.Empty(t, out.Result.Rows)
	assert.Len(t, out.Result.Failures, 2)
	assert.Contains(t, notifier.body, "Failed:\nA: ")
}

func TestStatusExitCodes(t *testing.T) {
	tests := []struct {
		status Status
		code   int
	}{
		{StatusSuccess, 0},
		{StatusPartial, 0},
		{StatusUndelivered, 2},
		{StatusFailed, 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.code, tt.status.ExitCode())
		})
	}
}
