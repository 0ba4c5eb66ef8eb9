package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/TrendScreener/internal/metrics"
	"github.com/Alias1177/TrendScreener/internal/report"
	"github.com/Alias1177/TrendScreener/internal/screener"
	"github.com/Alias1177/TrendScreener/models"
)

// Status is the overall outcome of a run
type Status string

const (
	StatusSuccess     Status = "success"
	StatusPartial     Status = "partial"     // delivered, some symbols failed
	StatusUndelivered Status = "undelivered" // computed, sink failed
	StatusFailed      Status = "failed"
)

// ExitCode maps a status to the process exit code
func (s Status) ExitCode() int {
	switch s {
	case StatusSuccess, StatusPartial:
		return 0
	case StatusUndelivered:
		return 2
	default:
		return 1
	}
}

// Screener is the aggregation step of a run
type Screener interface {
	Run(ctx context.Context, universe []models.Security) (*screener.Result, error)
}

// Deliverer is the output step of a run
type Deliverer interface {
	Deliver(ctx context.Context, name string, t report.Table, subject, body string) (report.Delivery, error)
}

// Outcome describes a finished run
type Outcome struct {
	Status   Status
	Name     string
	Result   *screener.Result
	Delivery report.Delivery
	Err      error
}

// Runner ties screening and delivery together for one batch invocation
type Runner struct {
	screener Screener
	sink     Deliverer
	metrics  *metrics.Recorder
	location *time.Location
	now      func() time.Time
	logger   zerolog.Logger
}

func NewRunner(s Screener, sink Deliverer, rec *metrics.Recorder, loc *time.Location) *Runner {
	if loc == nil {
		loc = time.UTC
	}
	return &Runner{
		screener: s,
		sink:     sink,
		metrics:  rec,
		location: loc,
		now:      time.Now,
		logger:   log.With().Str("component", "runner").Logger(),
	}
}

// Run screens the universe and delivers the report. A fatal retrieval error
// still delivers what was computed, so the Failed section reaches the
// recipients, but the run is reported as failed.
func (r *Runner) Run(ctx context.Context, universe []models.Security) Outcome {
	start := r.now()
	defer r.metrics.ObserveStage("run", start)

	out := Outcome{Name: report.ArtifactName(start, r.location)}

	result, screenErr := r.screener.Run(ctx, universe)
	out.Result = result
	if result == nil {
		out.Status = StatusFailed
		out.Err = screenErr
		if out.Err == nil {
			out.Err = errors.New("screening produced no result")
		}
		r.logger.Error().Err(out.Err).Msg("Run failed before an aggregate was built")
		return out
	}

	table := report.BuildTable(result)
	subject := report.Subject(out.Name)
	body := report.ComposeBody(subject, result)

	deliverStart := r.now()
	delivery, sinkErr := r.sink.Deliver(ctx, out.Name, table, subject, body)
	r.metrics.ObserveStage("deliver", deliverStart)
	out.Delivery = delivery

	switch {
	case screenErr != nil:
		out.Status = StatusFailed
		out.Err = errors.Join(screenErr, sinkErr)
	case sinkErr != nil:
		out.Status = StatusUndelivered
		out.Err = sinkErr
	case len(result.Failures) > 0:
		out.Status = StatusPartial
	default:
		out.Status = StatusSuccess
	}

	if out.Status != StatusFailed {
		r.metrics.MarkRun(r.now())
	}

	event := r.logger.Info()
	if out.Err != nil {
		event = r.logger.Error().Err(out.Err)
	}
	event.
		Str("status", string(out.Status)).
		Str("name", out.Name).
		Int("rows", len(result.Rows)).
		Int("failures", len(result.Failures)).
		Str("delivery", delivery.String()).
		Msg("Run finished")

	return out
}

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s (%s): %v", o.Status, o.Name, o.Err)
	}
	return fmt.Sprintf("%s (%s)", o.Status, o.Name)
}
