package yahoo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/Alias1177/TrendScreener/models"
)

// fetchFunc retrieves raw bars for chart params. Replaced in tests.
type fetchFunc func(params *chart.Params) ([]models.Bar, error)

// Client reads daily history from the Yahoo Finance chart API
type Client struct {
	fetch           fetchFunc
	breaker         *gobreaker.CircuitBreaker
	maxRetryTimeout time.Duration
	now             func() time.Time
	logger          zerolog.Logger
}

// ClientOptions holds options for creating a new Yahoo client
type ClientOptions struct {
	MaxRetryTimeout time.Duration
	BreakerFailures uint32
}

func NewClient(options ClientOptions) *Client {
	if options.MaxRetryTimeout == 0 {
		options.MaxRetryTimeout = 30 * time.Second
	}
	if options.BreakerFailures == 0 {
		options.BreakerFailures = 5
	}

	return &Client{
		fetch: fetchChart,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "yahoo",
			Timeout: time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= options.BreakerFailures
			},
			// an unknown or delisted symbol says nothing about upstream health
			IsSuccessful: func(err error) bool {
				return err == nil ||
					errors.Is(err, context.Canceled) ||
					errors.Is(err, context.DeadlineExceeded) ||
					symbolError(err)
			},
		}),
		maxRetryTimeout: options.MaxRetryTimeout,
		now:             time.Now,
		logger:          log.With().Str("component", "yahoo_client").Logger(),
	}
}

// GetSeries fetches bars for the request window. The breaker sees one
// outcome per symbol, after retries.
func (c *Client) GetSeries(ctx context.Context, req models.SeriesRequest) ([]models.Bar, error) {
	interval, err := chartInterval(req.Interval)
	if err != nil {
		return nil, &models.RetrievalError{Symbol: req.Symbol, Description: err.Error(), Err: err}
	}

	start, end := req.Lookback.Window(req.Interval, c.now(), req.Location)
	params := &chart.Params{
		Symbol:   req.Symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: interval,
	}
	params.Context = &ctx

	c.logger.Debug().Str("symbol", req.Symbol).Time("start", start).Time("end", end).Msg("Fetching bars")

	type result struct {
		bars []models.Bar
		err  error
	}
	done := make(chan result, 1)
	go func() {
		out, err := c.breaker.Execute(func() (interface{}, error) {
			return c.retry(ctx, params)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = errors.Join(models.ErrSourceUnavailable, err)
		}
		var bars []models.Bar
		if err == nil {
			bars = out.([]models.Bar)
		}
		done <- result{bars: bars, err: err}
	}()

	// the iterator may still block after ctx ends, so do not wait for it
	select {
	case <-ctx.Done():
		return nil, &models.RetrievalError{Symbol: req.Symbol, Description: ctx.Err().Error(), Err: ctx.Err()}
	case res := <-done:
		if res.err != nil {
			c.logger.Error().Err(res.err).Str("symbol", req.Symbol).Msg("Yahoo chart error")
			return nil, &models.RetrievalError{Symbol: req.Symbol, Description: res.err.Error(), Err: res.err}
		}
		if len(res.bars) == 0 {
			return nil, &models.RetrievalError{Symbol: req.Symbol, Description: "empty data returned"}
		}

		loc := req.Location
		if loc == nil {
			loc = time.UTC
		}
		for i := range res.bars {
			res.bars[i].Timestamp = res.bars[i].Timestamp.In(loc)
		}

		c.logger.Debug().Str("symbol", req.Symbol).Int("count", len(res.bars)).Msg("Fetched bars")
		return res.bars, nil
	}
}

// retry runs the fetch with exponential backoff. Symbol errors are not
// retried.
func (c *Client) retry(ctx context.Context, params *chart.Params) ([]models.Bar, error) {
	var bars []models.Bar
	operation := func() error {
		out, err := c.fetch(params)
		if err != nil {
			if symbolError(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		bars = out
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = c.maxRetryTimeout
	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		return nil, err
	}
	return bars, nil
}

// symbolError reports errors Yahoo returns for a request it understood but
// cannot serve, such as an unknown symbol. finance-go reports those as
// *finance.YfinError or as "remote-error"/"api-error" coded errors; transport
// failures are anything else.
func symbolError(err error) bool {
	var yerr *finance.YfinError
	if errors.As(err, &yerr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "remote-error") || strings.Contains(msg, "api-error")
}

// fetchChart returns the iterator error untouched so its text reaches the
// report as the upstream wrote it
func fetchChart(params *chart.Params) ([]models.Bar, error) {
	iter := chart.Get(params)

	var bars []models.Bar
	for iter.Next() {
		bar := iter.Bar()
		bars = append(bars, models.Bar{
			Timestamp: time.Unix(int64(bar.Timestamp), 0),
			Open:      bar.Open.InexactFloat64(),
			High:      bar.High.InexactFloat64(),
			Low:       bar.Low.InexactFloat64(),
			Close:     bar.Close.InexactFloat64(),
			Volume:    int64(bar.Volume),
		})
	}

	if err := iter.Err(); err != nil {
		return nil, err
	}
	return bars, nil
}

// chartInterval maps the Twelve Data style interval names used in config
func chartInterval(interval string) (datetime.Interval, error) {
	switch interval {
	case "1min":
		return datetime.Interval("1m"), nil
	case "5min":
		return datetime.Interval("5m"), nil
	case "15min":
		return datetime.Interval("15m"), nil
	case "30min":
		return datetime.Interval("30m"), nil
	case "1h":
		return datetime.Interval("1h"), nil
	case "1day":
		return datetime.OneDay, nil
	case "1week":
		return datetime.Interval("1wk"), nil
	case "1month":
		return datetime.Interval("1mo"), nil
	default:
		return "", fmt.Errorf("unsupported interval %q", interval)
	}
}
