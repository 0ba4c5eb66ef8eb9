package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Alias1177/TrendScreener/internal/app"
	"github.com/Alias1177/TrendScreener/internal/config"
	"github.com/Alias1177/TrendScreener/internal/metrics"
	"github.com/Alias1177/TrendScreener/internal/report"
	"github.com/Alias1177/TrendScreener/internal/screener"
)

var (
	envFiles     []string
	universeFile string
	indices      string
	stocks       string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "Daily trend regime screener",
	Long: `Retrieves daily bars for the configured indices and stocks, computes
SMA, EMA and HMA indicators, classifies each symbol against its reference
average and sends a report of the symbols near it.

Configuration comes from the environment and .env; flags override it.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")
	rootCmd.Flags().StringVar(&universeFile, "universe", "", "YAML universe file, overrides UNIVERSE_FILE and INDICES/STOCKS")
	rootCmd.Flags().StringVar(&indices, "indices", "", "comma separated index symbols, overrides INDICES")
	rootCmd.Flags().StringVar(&stocks, "stocks", "", "comma separated stock symbols, overrides STOCKS")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level, overrides LOG_LEVEL")
}

// exitError carries a run status exit code through cobra
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func main() {
	if err := rootCmd.Execute(); err != nil {
		code := 1
		if ee, ok := err.(*exitError); ok {
			code = ee.code
		}
		os.Exit(code)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		setupLogger("info", "console")
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	if err := applyFlags(cfg); err != nil {
		setupLogger(cfg.LogLevel, cfg.LogFormat)
		log.Error().Err(err).Msg("Invalid flags")
		return err
	}
	setupLogger(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := app.ScreenerOptions(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return err
	}

	rec := metrics.New()
	s, err := screener.New(app.NewSource(cfg), opts, rec)
	if err != nil {
		log.Error().Err(err).Msg("Invalid screener options")
		return err
	}

	stores, cleanup, err := app.NewStores(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open report stores")
		return err
	}
	defer cleanup()

	notifiers, err := app.NewNotifiers(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create notifiers")
		return err
	}
	if len(notifiers) == 0 {
		log.Warn().Msg("No notifier configured, the report is only persisted")
	}

	log.Info().
		Str("source", cfg.DataSource).
		Int("symbols", len(cfg.Universe)).
		Str("reference", opts.ReferenceKey).
		Msg("Starting run")

	runner := app.NewRunner(s, report.NewSink(stores, notifiers), rec, cfg.Location())
	out := runner.Run(ctx, cfg.Universe)

	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := rec.Push(pushCtx, cfg.PushgatewayURL, "trend_screener"); err != nil {
			log.Warn().Err(err).Msg("Failed to push metrics")
		}
		cancel()
	}

	if code := out.Status.ExitCode(); code != 0 {
		return &exitError{code: code, err: fmt.Errorf("run %s", out)}
	}
	return nil
}

func applyFlags(cfg *config.Config) error {
	switch {
	case universeFile != "":
		universe, err := config.LoadUniverse(universeFile)
		if err != nil {
			return err
		}
		cfg.UniverseFile = universeFile
		cfg.Universe = universe
	case indices != "" || stocks != "":
		cfg.Universe = config.BuildUniverse(strings.Split(indices, ","), strings.Split(stocks, ","))
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return nil
}

func setupLogger(level, format string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
