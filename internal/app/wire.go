package app

import (
	"context"
	"strings"
	"time"

	"github.com/Alias1177/TrendScreener/internal/api/twelvedata"
	"github.com/Alias1177/TrendScreener/internal/api/yahoo"
	"github.com/Alias1177/TrendScreener/internal/config"
	"github.com/Alias1177/TrendScreener/internal/database"
	"github.com/Alias1177/TrendScreener/internal/notify"
	"github.com/Alias1177/TrendScreener/internal/report"
	"github.com/Alias1177/TrendScreener/internal/screener"
	"github.com/Alias1177/TrendScreener/internal/series"
	"github.com/Alias1177/TrendScreener/internal/storage"
	"github.com/Alias1177/TrendScreener/models"
)

// ScreenerOptions maps a validated config onto the screener
func ScreenerOptions(cfg *config.Config) (screener.Options, error) {
	lookback, err := cfg.Lookback()
	if err != nil {
		return screener.Options{}, err
	}
	policy, err := series.ParsePolicy(cfg.DuplicatePolicy)
	if err != nil {
		return screener.Options{}, err
	}
	return screener.Options{
		Interval:         cfg.Interval,
		Lookback:         lookback,
		Indicators:       cfg.Indicators,
		ReferenceKey:     cfg.ReferenceKey,
		LabelBandPercent: cfg.LabelBandPercent,
		Band:             cfg.Band(),
		Workers:          cfg.Workers,
		SymbolTimeout:    time.Duration(cfg.SymbolTimeout) * time.Second,
		DuplicatePolicy:  policy,
		Location:         cfg.Location(),
	}, nil
}

// NewSource picks the configured Series Source
func NewSource(cfg *config.Config) models.SeriesSource {
	switch cfg.DataSource {
	case "yahoo":
		return yahoo.NewClient(yahoo.ClientOptions{
			MaxRetryTimeout: time.Duration(cfg.MaxRetryTimeout) * time.Second,
		})
	default:
		return twelvedata.NewClient(twelvedata.ClientOptions{
			APIKey:          cfg.TwelveAPIKey,
			RequestTimeout:  time.Duration(cfg.RequestTimeout) * time.Second,
			RequestsPerSec:  cfg.RequestsPerSec,
			MaxRetryTimeout: time.Duration(cfg.MaxRetryTimeout) * time.Second,
		})
	}
}

// NewStores always includes the CSV file store; Postgres is added when
// DB_HOST is set. The returned cleanup closes any connections.
func NewStores(ctx context.Context, cfg *config.Config) ([]report.Store, func(), error) {
	stores := []report.Store{storage.NewFileStore(cfg.OutputDir)}
	cleanup := func() {}

	if cfg.DBHost != "" {
		db, err := database.New(ctx, database.ConnectionParams{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			return nil, cleanup, &models.SinkError{Stage: "persist", Err: err}
		}
		stores = append(stores, db)
		cleanup = func() { db.Close() }
	}
	return stores, cleanup, nil
}

// NewNotifiers builds every notifier that has credentials configured
func NewNotifiers(cfg *config.Config) ([]report.Notifier, error) {
	var notifiers []report.Notifier

	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			return nil, &models.SinkError{Stage: "notify", Err: err}
		}
		notifiers = append(notifiers, tg)
	}

	if cfg.SMTPHost != "" {
		var to []string
		for _, addr := range strings.Split(cfg.MailTo, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				to = append(to, addr)
			}
		}
		email, err := notify.NewEmail(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom, to)
		if err != nil {
			return nil, &models.SinkError{Stage: "notify", Err: err}
		}
		notifiers = append(notifiers, email)
	}
	return notifiers, nil
}
