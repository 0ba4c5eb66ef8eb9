package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/TrendScreener/models"
)

// Store persists a table under a run name and returns where it went
type Store interface {
	Persist(ctx context.Context, name string, t Table) (string, error)
}

// Notifier delivers a plain-text summary
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Delivery records what a sink managed to do
type Delivery struct {
	Locators []string
	Notified int
}

// Sink fans a report out to every store and notifier
type Sink struct {
	stores    []Store
	notifiers []Notifier
	logger    zerolog.Logger
}

func NewSink(stores []Store, notifiers []Notifier) *Sink {
	return &Sink{
		stores:    stores,
		notifiers: notifiers,
		logger:    log.With().Str("component", "sink").Logger(),
	}
}

// Deliver persists the table and sends the message. Every target is tried.
// Failures come back as a *models.SinkError joining all of them; its Stage is
// persist when any store failed, otherwise notify.
func (s *Sink) Deliver(ctx context.Context, name string, t Table, subject, body string) (Delivery, error) {
	var d Delivery

	var persistErrs []error
	for _, store := range s.stores {
		locator, err := store.Persist(ctx, name, t)
		if err != nil {
			s.logger.Error().Err(err).Str("name", name).Msg("Persist failed")
			persistErrs = append(persistErrs, err)
			continue
		}
		s.logger.Info().Str("locator", locator).Msg("Report persisted")
		d.Locators = append(d.Locators, locator)
	}

	var notifyErrs []error
	for _, n := range s.notifiers {
		if err := n.Notify(ctx, subject, body); err != nil {
			s.logger.Error().Err(err).Msg("Notify failed")
			notifyErrs = append(notifyErrs, err)
			continue
		}
		d.Notified++
	}

	switch {
	case len(persistErrs) > 0:
		return d, &models.SinkError{Stage: "persist", Err: errors.Join(append(persistErrs, notifyErrs...)...)}
	case len(notifyErrs) > 0:
		return d, &models.SinkError{Stage: "notify", Err: errors.Join(notifyErrs...)}
	}
	return d, nil
}

// StoreFunc adapts a function to Store
type StoreFunc func(ctx context.Context, name string, t Table) (string, error)

func (f StoreFunc) Persist(ctx context.Context, name string, t Table) (string, error) {
	return f(ctx, name, t)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, subject, body string) error

func (f NotifierFunc) Notify(ctx context.Context, subject, body string) error {
	return f(ctx, subject, body)
}

func (d Delivery) String() string {
	return fmt.Sprintf("%d stored, %d notified", len(d.Locators), d.Notified)
}
