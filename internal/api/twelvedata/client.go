package twelvedata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "github.com/Alias1177/TrendScreener/internal/platform/http"
	"github.com/Alias1177/TrendScreener/models"
)

const defaultBaseURL = "https://api.twelvedata.com"

// Client is the TwelveData API client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new TwelveData client
type ClientOptions struct {
	APIKey          string
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new TwelveData API client
func NewClient(options ClientOptions) *Client {
	httpOpts := httpClient.ClientOptions{
		Name:            "twelvedata",
		Timeout:         options.RequestTimeout,
		RequestsPerSec:  options.RequestsPerSec,
		MaxRetries:      options.MaxRetries,
		MaxRetryTimeout: options.MaxRetryTimeout,
	}

	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		apiKey:     options.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient.NewClient(httpOpts),
		logger:     log.With().Str("component", "twelvedata_client").Logger(),
	}
}

// GetSeries fetches bars from the time_series endpoint
func (c *Client) GetSeries(ctx context.Context, req models.SeriesRequest) ([]models.Bar, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("interval", req.Interval)
	params.Set("order", "ASC")
	if req.Lookback.IsWindow() {
		params.Set("start_date", req.Lookback.Start.Format("2006-01-02"))
		if !req.Lookback.End.IsZero() {
			params.Set("end_date", req.Lookback.End.Format("2006-01-02"))
		}
	} else {
		params.Set("outputsize", strconv.Itoa(req.Lookback.Bars))
	}
	params.Set("apikey", c.apiKey)

	endpoint := c.baseURL + "/time_series?" + params.Encode()

	c.logger.Debug().Str("symbol", req.Symbol).Str("interval", req.Interval).Msg("Fetching bars")

	// Create a new request with context
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.DoRequest(ctx, httpReq)
	if err != nil {
		return nil, c.requestError(req.Symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.RetrievalError{Symbol: req.Symbol, Description: "reading response body: " + err.Error(), Err: err}
	}

	var data models.TwelveResponse
	if err := json.Unmarshal(body, &data); err != nil {
		c.logger.Error().Err(err).Str("response", string(body)).Msg("Error parsing JSON")
		return nil, &models.RetrievalError{Symbol: req.Symbol, Description: "parsing JSON: " + err.Error(), Err: err}
	}

	if data.Status == "error" {
		c.logger.Error().Str("symbol", req.Symbol).Int("code", data.Code).Str("message", data.Message).Msg("Twelve Data API error")
		return nil, apiError(req.Symbol, data.Code, data.Message)
	}

	if len(data.Values) == 0 {
		c.logger.Warn().Str("symbol", req.Symbol).Msg("No bars in response")
		return nil, &models.RetrievalError{Symbol: req.Symbol, Description: "empty data returned"}
	}

	loc := req.Location
	if data.Meta.ExchangeTimezone != "" {
		if exchangeLoc, err := time.LoadLocation(data.Meta.ExchangeTimezone); err == nil {
			loc = exchangeLoc
		}
	}
	if loc == nil {
		loc = time.UTC
	}

	bars := make([]models.Bar, 0, len(data.Values))
	for _, v := range data.Values {
		ts, err := parseDatetime(v.Datetime, loc)
		if err != nil {
			return nil, &models.RetrievalError{Symbol: req.Symbol, Description: err.Error(), Err: err}
		}
		bars = append(bars, models.Bar{
			Timestamp: ts,
			Open:      v.Open,
			High:      v.High,
			Low:       v.Low,
			Close:     v.Close,
			Volume:    v.Volume,
		})
	}

	c.logger.Debug().Str("symbol", req.Symbol).Int("count", len(bars)).Msg("Fetched bars")
	return bars, nil
}

func (c *Client) requestError(symbol string, err error) error {
	var statusErr *httpClient.HTTPStatusError
	if errors.As(err, &statusErr) {
		var payload models.TwelveResponse
		if json.Unmarshal([]byte(statusErr.Body), &payload) == nil && payload.Message != "" {
			code := payload.Code
			if code == 0 {
				code = statusErr.StatusCode
			}
			return apiError(symbol, code, payload.Message)
		}
		if statusErr.Unauthorized() {
			return &models.RetrievalError{Symbol: symbol, Description: err.Error(), Err: errors.Join(models.ErrUnauthorized, err)}
		}
	}
	return &models.RetrievalError{Symbol: symbol, Description: err.Error(), Err: err}
}

// apiError keeps the upstream message verbatim. 401 and 403 reject the key
// for every symbol.
func apiError(symbol string, code int, message string) error {
	var cause error = fmt.Errorf("twelve data error code %d", code)
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		cause = errors.Join(models.ErrUnauthorized, cause)
	}
	return &models.RetrievalError{Symbol: symbol, Description: message, Err: cause}
}

func parseDatetime(s string, loc *time.Location) (time.Time, error) {
	layout := "2006-01-02"
	if len(s) > len(layout) {
		layout = "2006-01-02 15:04:05"
	}
	t, err := time.ParseInLocation(layout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse datetime %q: %w", s, err)
	}
	return t, nil
}
