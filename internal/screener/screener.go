package screener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Alias1177/TrendScreener/internal/analyze"
	"github.com/Alias1177/TrendScreener/internal/calculate"
	"github.com/Alias1177/TrendScreener/internal/metrics"
	"github.com/Alias1177/TrendScreener/internal/series"
	"github.com/Alias1177/TrendScreener/models"
)

// Options configures one screening run
type Options struct {
	Interval         string
	Lookback         models.Lookback
	Indicators       calculate.Set
	ReferenceKey     string
	LabelBandPercent float64
	Band             analyze.Band
	Workers          int
	SymbolTimeout    time.Duration
	DuplicatePolicy  series.DuplicatePolicy
	Location         *time.Location
}

// Validate rejects options that would make every symbol fail
func (o Options) Validate() error {
	if err := o.Indicators.Validate(); err != nil {
		return err
	}
	ref, err := calculate.ParseKey(o.ReferenceKey)
	if err != nil {
		return err
	}
	if !o.Indicators.Has(ref) {
		return models.InvalidParameter("reference indicator", "%s is not computed", ref)
	}
	if o.Workers <= 0 {
		return models.InvalidParameter("workers", "must be positive, got %d", o.Workers)
	}
	if o.SymbolTimeout <= 0 {
		return models.InvalidParameter("symbol timeout", "must be positive, got %s", o.SymbolTimeout)
	}
	if !o.Lookback.IsWindow() && o.Lookback.Bars <= 0 {
		return models.InvalidParameter("lookback", "needs a bar count or a start date")
	}
	if _, err := series.ParsePolicy(string(o.DuplicatePolicy)); err != nil {
		return err
	}
	return nil
}

// Screener runs the indicator and regime pipeline over a universe
type Screener struct {
	source    models.SeriesSource
	opts      Options
	annotator analyze.Annotator
	metrics   *metrics.Recorder
	logger    zerolog.Logger
}

// New validates opts. rec may be nil.
func New(source models.SeriesSource, opts Options, rec *metrics.Recorder) (*Screener, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	ref, _ := calculate.ParseKey(opts.ReferenceKey)
	opts.ReferenceKey = ref.String()

	return &Screener{
		source: source,
		opts:   opts,
		annotator: analyze.Annotator{
			ReferenceKey: opts.ReferenceKey,
			BandPercent:  opts.LabelBandPercent,
		},
		metrics: rec,
		logger:  log.With().Str("component", "screener").Logger(),
	}, nil
}

type outcome struct {
	row     *UniverseRow
	err     error
	skipped bool
}

// Run processes every security on a bounded pool. A failing symbol is
// recorded and the run continues. A fatal source error stops retrieval;
// the returned Result still accounts for every symbol and the error is
// returned alongside it.
func (s *Screener) Run(ctx context.Context, universe []models.Security) (*Result, error) {
	start := time.Now()
	defer s.metrics.ObserveStage("screen", start)

	outcomes := make([]outcome, len(universe))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i, sec := range universe {
		if gctx.Err() != nil {
			outcomes[i] = outcome{skipped: true}
			continue
		}
		i, sec := i, sec
		g.Go(func() error {
			if gctx.Err() != nil {
				outcomes[i] = outcome{skipped: true}
				return nil
			}
			row, err := s.process(gctx, sec)
			outcomes[i] = outcome{row: row, err: err}
			if err != nil && models.IsFatal(err) {
				return err
			}
			return nil
		})
	}

	fatal := g.Wait()
	if fatal == nil && ctx.Err() != nil {
		fatal = ctx.Err()
	}

	result := &Result{
		ReferenceKey: s.opts.ReferenceKey,
		Band:         s.opts.Band,
	}
	for _, key := range s.opts.Indicators.Keys() {
		result.Indicators = append(result.Indicators, key.String())
	}

	for i, o := range outcomes {
		sec := universe[i]
		switch {
		case o.skipped:
			reason := "not attempted"
			if fatal != nil {
				reason = "not attempted: " + models.Describe(fatal)
			}
			result.Failures = append(result.Failures, Failure{Symbol: sec.Symbol, Type: sec.Type, Reason: reason, Err: fatal})
			s.metrics.RecordSymbol("skipped")
		case o.err != nil:
			result.Failures = append(result.Failures, Failure{Symbol: sec.Symbol, Type: sec.Type, Reason: models.Describe(o.err), Err: o.err})
			s.metrics.RecordSymbol("failed")
		default:
			result.Rows = append(result.Rows, *o.row)
			s.metrics.RecordSymbol("ok")
		}
	}

	result.Partition()
	for _, b := range analyze.Buckets {
		s.metrics.SetBucketSize(b.String(), len(result.Buckets[b]))
	}

	s.logger.Info().
		Int("symbols", len(universe)).
		Int("rows", len(result.Rows)).
		Int("failures", len(result.Failures)).
		Dur("elapsed", time.Since(start)).
		Msg("Screening finished")

	if fatal != nil {
		s.logger.Error().Err(fatal).Msg("Screening stopped early")
		return result, fmt.Errorf("screening stopped: %w", fatal)
	}
	return result, nil
}

// process handles one symbol under its own timeout
func (s *Screener) process(ctx context.Context, sec models.Security) (*UniverseRow, error) {
	logger := s.logger.With().Str("symbol", sec.Symbol).Logger()

	bars, err := s.fetch(ctx, sec)
	if err != nil {
		logger.Warn().Str("reason", models.Describe(err)).Msg("Retrieval failed")
		return nil, err
	}

	bars, err = series.Normalize(bars, s.opts.DuplicatePolicy)
	if err != nil {
		logger.Warn().Err(err).Msg("Rejected bars")
		return nil, err
	}

	indicators, err := calculate.ComputeAll(series.Closes(bars), s.opts.Indicators)
	if err != nil {
		return nil, err
	}

	tail, err := s.annotator.Annotate(sec, bars, indicators)
	if err != nil {
		logger.Warn().Err(err).Msg("No bars to annotate")
		return nil, err
	}

	row := newRow(tail)
	row.Bucket, row.InBucket = analyze.Assign(
		models.Defined(row.Close),
		row.Indicator(s.opts.ReferenceKey),
		row.Crossing,
		s.opts.Band,
	)

	if row.Label == analyze.LabelUndefined {
		logger.Info().Int("bars", len(bars)).Msg("Reference indicator undefined, row left unclassified")
	}
	logger.Debug().
		Str("label", row.Label.String()).
		Str("previous", row.PreviousLabel.String()).
		Str("crossed", row.Crossing.String()).
		Msg("Classified")

	return &row, nil
}

// fetch bounds the source call by the per-symbol timeout even if the source
// ignores its context
func (s *Screener) fetch(ctx context.Context, sec models.Security) ([]models.Bar, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.SymbolTimeout)
	defer cancel()

	req := models.SeriesRequest{
		Symbol:   sec.Symbol,
		Interval: s.opts.Interval,
		Lookback: s.opts.Lookback,
		Location: s.opts.Location,
	}

	type result struct {
		bars []models.Bar
		err  error
	}
	done := make(chan result, 1)
	go func() {
		bars, err := s.source.GetSeries(ctx, req)
		done <- result{bars: bars, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = result{err: ctx.Err()}
	}

	if res.err == nil {
		return res.bars, nil
	}
	// only the per-symbol deadline is reported as a timeout; request-level
	// timeouts inside the source keep their own description
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, &models.RetrievalError{
			Symbol:      sec.Symbol,
			Description: fmt.Sprintf("timed out after %s", s.opts.SymbolTimeout),
			Err:         res.err,
		}
	}
	var re *models.RetrievalError
	if errors.As(res.err, &re) {
		return nil, res.err
	}
	return nil, &models.RetrievalError{Symbol: sec.Symbol, Description: res.err.Error(), Err: res.err}
}
