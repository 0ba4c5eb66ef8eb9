package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/Alias1177/TrendScreener/internal/analyze"
	"github.com/Alias1177/TrendScreener/internal/calculate"
	"github.com/Alias1177/TrendScreener/internal/series"
	"github.com/Alias1177/TrendScreener/models"
)

// Config holds all application configuration
type Config struct {
	DataSource   string `env:"DATA_SOURCE" envDefault:"twelvedata"`
	TwelveAPIKey string `env:"TWELVE_API_KEY" envDefault:"-"`

	UniverseFile string `env:"UNIVERSE_FILE"`
	Universe     []models.Security // INDICES and STOCKS, or UNIVERSE_FILE

	Interval      string `env:"INTERVAL" envDefault:"1day"`
	LookbackBars  int    `env:"LOOKBACK_BARS" envDefault:"300"`
	LookbackStart string `env:"LOOKBACK_START"`
	LookbackEnd   string `env:"LOOKBACK_END"`

	Indicators       calculate.Set // SMA_PERIODS, EMA_PERIODS, HMA_PERIODS
	ReferenceKey     string        `env:"REFERENCE_INDICATOR" envDefault:"200SMA"`
	LabelBandPercent float64       `env:"LABEL_BAND_PERCENT" envDefault:"0"`
	BandLowPercent   float64       `env:"BAND_LOW_PERCENT" envDefault:"2"`
	BandHighPercent  float64       `env:"BAND_HIGH_PERCENT" envDefault:"2"`

	Workers         int    `env:"WORKERS" envDefault:"4"`
	SymbolTimeout   int    `env:"SYMBOL_TIMEOUT" envDefault:"60"`  // seconds
	RequestTimeout  int    `env:"REQUEST_TIMEOUT" envDefault:"30"` // seconds
	RequestsPerSec  int    `env:"REQUESTS_PER_SEC" envDefault:"5"`
	MaxRetryTimeout int    `env:"MAX_RETRY_TIMEOUT" envDefault:"30"` // seconds
	Timezone        string `env:"EXCHANGE_TIMEZONE" envDefault:"America/New_York"`
	DuplicatePolicy string `env:"DUPLICATE_POLICY" envDefault:"last"`

	OutputDir string `env:"OUTPUT_DIR" envDefault:"reports"`

	DBHost     string `env:"DB_HOST"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	TelegramToken  string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID int64  `env:"TELEGRAM_CHAT_ID"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM"`
	MailTo       string `env:"MAIL_TO"`

	PushgatewayURL string `env:"PUSHGATEWAY_URL"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// UniverseFile is the YAML layout of UNIVERSE_FILE
type UniverseFile struct {
	Indices []string `yaml:"indices"`
	Stocks  []string `yaml:"stocks"`
}

// Load initializes configuration from environment variables. envFiles are
// passed to godotenv; with none, ./.env is tried.
func Load(envFiles ...string) (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(envFiles...); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.DataSource = getEnvWithDefault("DATA_SOURCE", "twelvedata")
	cfg.TwelveAPIKey = os.Getenv("TWELVE_API_KEY")

	cfg.UniverseFile = os.Getenv("UNIVERSE_FILE")
	if cfg.UniverseFile != "" {
		universe, err := LoadUniverse(cfg.UniverseFile)
		if err != nil {
			return nil, err
		}
		cfg.Universe = universe
	} else {
		cfg.Universe = BuildUniverse(
			getEnvListWithDefault("INDICES", []string{"SPY", "QQQ", "DIA"}),
			getEnvListWithDefault("STOCKS", []string{"AAPL", "MSFT", "NVDA", "AMZN", "GOOGL"}),
		)
	}

	cfg.Interval = getEnvWithDefault("INTERVAL", "1day")
	cfg.LookbackBars = getEnvIntWithDefault("LOOKBACK_BARS", 300)
	cfg.LookbackStart = os.Getenv("LOOKBACK_START")
	cfg.LookbackEnd = os.Getenv("LOOKBACK_END")

	smaPeriods, err := getEnvIntsWithDefault("SMA_PERIODS", []int{50, 100, 200})
	if err != nil {
		return nil, err
	}
	emaPeriods, err := getEnvIntsWithDefault("EMA_PERIODS", []int{21, 50})
	if err != nil {
		return nil, err
	}
	hmaPeriods, err := getEnvIntsWithDefault("HMA_PERIODS", []int{21, 50})
	if err != nil {
		return nil, err
	}
	cfg.Indicators = calculate.Set{
		calculate.SMA: smaPeriods,
		calculate.EMA: emaPeriods,
		calculate.HMA: hmaPeriods,
	}

	cfg.ReferenceKey = getEnvWithDefault("REFERENCE_INDICATOR", "200SMA")
	cfg.LabelBandPercent = getEnvFloatWithDefault("LABEL_BAND_PERCENT", 0)
	cfg.BandLowPercent = getEnvFloatWithDefault("BAND_LOW_PERCENT", 2)
	cfg.BandHighPercent = getEnvFloatWithDefault("BAND_HIGH_PERCENT", 2)

	cfg.Workers = getEnvIntWithDefault("WORKERS", 4)
	cfg.SymbolTimeout = getEnvIntWithDefault("SYMBOL_TIMEOUT", 60)
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)
	cfg.RequestsPerSec = getEnvIntWithDefault("REQUESTS_PER_SEC", 5)
	cfg.MaxRetryTimeout = getEnvIntWithDefault("MAX_RETRY_TIMEOUT", 30)
	cfg.Timezone = getEnvWithDefault("EXCHANGE_TIMEZONE", "America/New_York")
	cfg.DuplicatePolicy = getEnvWithDefault("DUPLICATE_POLICY", string(series.KeepLast))

	cfg.OutputDir = getEnvWithDefault("OUTPUT_DIR", "reports")

	cfg.DBHost = os.Getenv("DB_HOST")
	cfg.DBPort = getEnvWithDefault("DB_PORT", "5432")
	cfg.DBUser = os.Getenv("DB_USER")
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.DBName = os.Getenv("DB_NAME")
	cfg.DBSSLMode = getEnvWithDefault("DB_SSLMODE", "disable")

	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = int64(getEnvIntWithDefault("TELEGRAM_CHAT_ID", 0))

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.SMTPPort = getEnvIntWithDefault("SMTP_PORT", 587)
	cfg.SMTPUser = os.Getenv("SMTP_USER")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.MailFrom = os.Getenv("MAIL_FROM")
	cfg.MailTo = os.Getenv("MAIL_TO")

	cfg.PushgatewayURL = os.Getenv("PUSHGATEWAY_URL")

	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getEnvWithDefault("LOG_FORMAT", "console")

	return &cfg, nil
}

// LoadUniverse reads indices and stocks from a YAML file
func LoadUniverse(path string) ([]models.Security, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read universe: %w", err)
	}

	var f UniverseFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse universe: %w", err)
	}

	return BuildUniverse(f.Indices, f.Stocks), nil
}

// BuildUniverse lists indices first, then stocks, dropping blanks and
// repeated symbols
func BuildUniverse(indices, stocks []string) []models.Security {
	seen := make(map[string]bool)
	var out []models.Security
	add := func(symbols []string, typ models.SecurityType) {
		for _, s := range symbols {
			s = strings.TrimSpace(s)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, models.Security{Symbol: s, Type: typ})
		}
	}
	add(indices, models.TypeIndex)
	add(stocks, models.TypeStock)
	return out
}

// Validate reports the first invalid parameter. It runs before any retrieval.
func (c *Config) Validate() error {
	switch c.DataSource {
	case "twelvedata":
		if c.TwelveAPIKey == "" {
			return models.InvalidParameter("TWELVE_API_KEY", "required for the twelvedata source")
		}
	case "yahoo":
	default:
		return models.InvalidParameter("DATA_SOURCE", "unknown source %q", c.DataSource)
	}

	if len(c.Universe) == 0 {
		return models.InvalidParameter("universe", "no symbols configured")
	}
	if err := c.Indicators.Validate(); err != nil {
		return err
	}

	ref, err := calculate.ParseKey(c.ReferenceKey)
	if err != nil {
		return err
	}
	if !c.Indicators.Has(ref) {
		return models.InvalidParameter("REFERENCE_INDICATOR", "%s is not among the configured indicators", ref)
	}

	if c.BandLowPercent < 0 || c.BandHighPercent < 0 {
		return models.InvalidParameter("band", "percentages must not be negative")
	}
	if c.Workers <= 0 {
		return models.InvalidParameter("WORKERS", "must be positive, got %d", c.Workers)
	}
	if c.SymbolTimeout <= 0 {
		return models.InvalidParameter("SYMBOL_TIMEOUT", "must be positive, got %d", c.SymbolTimeout)
	}
	if _, err := series.ParsePolicy(c.DuplicatePolicy); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return models.InvalidParameter("EXCHANGE_TIMEZONE", "%v", err)
	}
	if _, err := c.Lookback(); err != nil {
		return err
	}
	return nil
}

// Location is the exchange timezone; Validate guarantees it loads
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Lookback resolves the configured history request
func (c *Config) Lookback() (models.Lookback, error) {
	var lb models.Lookback
	loc := c.Location()

	if c.LookbackStart != "" {
		start, err := models.ParseDate(c.LookbackStart, loc)
		if err != nil {
			return lb, models.InvalidParameter("LOOKBACK_START", "%v", err)
		}
		lb.Start = start
	}
	if c.LookbackEnd != "" {
		end, err := models.ParseDate(c.LookbackEnd, loc)
		if err != nil {
			return lb, models.InvalidParameter("LOOKBACK_END", "%v", err)
		}
		lb.End = end
	}
	if !lb.Start.IsZero() && !lb.End.IsZero() && !lb.End.After(lb.Start) {
		return lb, models.InvalidParameter("LOOKBACK_END", "must be after LOOKBACK_START")
	}

	if lb.Start.IsZero() {
		if c.LookbackBars <= 0 {
			return lb, models.InvalidParameter("LOOKBACK_BARS", "must be positive, got %d", c.LookbackBars)
		}
		lb.Bars = c.LookbackBars
	}
	return lb, nil
}

// Band is the reporting band around the reference indicator
func (c *Config) Band() analyze.Band {
	return analyze.Band{LowPercent: c.BandLowPercent, HighPercent: c.BandHighPercent}
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvListWithDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// getEnvIntsWithDefault fails on malformed periods instead of falling back,
// since a silently dropped period would change the report
func getEnvIntsWithDefault(key string, defaultValue []int) ([]int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, models.InvalidParameter(key, "bad period %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}
