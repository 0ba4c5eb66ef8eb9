package twelvedata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/TrendScreener/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientOptions{
		APIKey:          "test-key",
		BaseURL:         srv.URL,
		RequestTimeout:  time.Second,
		RequestsPerSec:  100,
		MaxRetries:      1,
		MaxRetryTimeout: 50 * time.Millisecond,
	})
}

func TestGetSeries(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/time_series", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1day", r.URL.Query().Get("interval"))
		assert.Equal(t, "300", r.URL.Query().Get("outputsize"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		w.Write([]byte(`{
			"meta": {"symbol": "AAPL", "interval": "1day", "exchange_timezone": "America/New_York"},
			"values": [
				{"datetime": "2024-05-01", "open": "169.58", "high": "172.71", "low": "169.11", "close": "169.30", "volume": "50383100"},
				{"datetime": "2024-05-02", "open": "172.51", "high": "173.42", "low": "170.89", "close": "173.03", "volume": "94214900"}
			],
			"status": "ok"
		}`))
	})

	bars, err := client.GetSeries(context.Background(), models.SeriesRequest{
		Symbol:   "AAPL",
		Interval: "1day",
		Lookback: models.Lookback{Bars: 300},
	})
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, 169.30, bars[0].Close)
	assert.Equal(t, int64(94214900), bars[1].Volume)
	assert.Equal(t, "America/New_York", bars[0].Timestamp.Location().String())
	assert.Equal(t, 2, bars[1].Timestamp.Day())
}

func TestGetSeriesWindow(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-01-02", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2024-06-28", r.URL.Query().Get("end_date"))
		assert.Empty(t, r.URL.Query().Get("outputsize"))
		w.Write([]byte(`{"values": [{"datetime": "2024-01-02", "close": "10"}], "status": "ok"}`))
	})

	bars, err := client.GetSeries(context.Background(), models.SeriesRequest{
		Symbol:   "SPY",
		Interval: "1day",
		Lookback: models.Lookback{
			Start: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestGetSeriesErrorPayload(t *testing.T) {
	const message = "**symbol** not found: NOPE. Please specify it correctly according to API Documentation."
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": 404, "message": "` + message + `", "status": "error"}`))
	})

	_, err := client.GetSeries(context.Background(), models.SeriesRequest{Symbol: "NOPE", Interval: "1day"})

	var re *models.RetrievalError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "NOPE", re.Symbol)
	assert.Equal(t, message, re.Description)
	assert.Equal(t, message, models.Describe(err))
	assert.False(t, models.IsFatal(err))
}

func TestGetSeriesRejectedKeyIsFatal(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": 401, "message": "**apikey** parameter is incorrect or not specified.", "status": "error"}`))
	})

	_, err := client.GetSeries(context.Background(), models.SeriesRequest{Symbol: "AAPL", Interval: "1day"})
	require.Error(t, err)
	assert.True(t, models.IsFatal(err))
}

func TestGetSeriesHTTPUnauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.GetSeries(context.Background(), models.SeriesRequest{Symbol: "AAPL", Interval: "1day"})
	require.Error(t, err)
	assert.True(t, models.IsFatal(err))
}

func TestGetSeriesEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"values": [], "status": "ok"}`))
	})

	_, err := client.GetSeries(context.Background(), models.SeriesRequest{Symbol: "AAPL", Interval: "1day"})
	assert.Equal(t, "empty data returned", models.Describe(err))
}
