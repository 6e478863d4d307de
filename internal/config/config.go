package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load
const EnvPrefix = "RCN"

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server" envconfig:"SERVER"`
	Security      SecurityConfig      `yaml:"security" envconfig:"SECURITY"`
	Logging       LoggingConfig       `yaml:"logging" envconfig:"LOGGING"`
	Telemetry     TelemetryConfig     `yaml:"telemetry" envconfig:"TELEMETRY"`
	Ledger        LedgerConfig        `yaml:"ledger" envconfig:"LEDGER"`
	Comtrade      ComtradeConfig      `yaml:"comtrade" envconfig:"COMTRADE"`
	MarineTraffic MarineTrafficConfig `yaml:"marinetraffic" envconfig:"MARINETRAFFIC"`
	Forecast      ForecastConfig      `yaml:"forecast" envconfig:"FORECAST"`
	Cache         CacheConfig         `yaml:"cache" envconfig:"CACHE"`
	Dashboard     DashboardConfig     `yaml:"dashboard" envconfig:"DASHBOARD"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// TelemetryConfig selects the OpenTelemetry exporters
type TelemetryConfig struct {
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
}

// LedgerConfig locates the import shipment ledger
type LedgerConfig struct {
	Path       string `yaml:"path" envconfig:"FILE"`
	HeaderRows int    `yaml:"header_rows" envconfig:"HEADER_ROWS"`
	PortCode   string `yaml:"port_code" envconfig:"PORT_CODE"`
	Sheet      string `yaml:"sheet" envconfig:"SHEET"`
}

// ComtradeConfig configures the bulk trade statistics adapter.
// An empty APIKey disables the adapter.
type ComtradeConfig struct {
	APIKey        string        `yaml:"api_key" envconfig:"API_KEY"`
	BaseURL       string        `yaml:"base_url" envconfig:"BASE_URL"`
	CommodityCode string        `yaml:"commodity_code" envconfig:"COMMODITY_CODE"`
	MaxRecords    int           `yaml:"max_records" envconfig:"MAX_RECORDS"`
	Timeout       time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	MaxRetries    int           `yaml:"max_retries" envconfig:"MAX_RETRIES"`
	RetryBackoff  time.Duration `yaml:"retry_backoff" envconfig:"RETRY_BACKOFF"`
	RPS           float64       `yaml:"rps" envconfig:"RPS"`
	Burst         int           `yaml:"burst" envconfig:"BURST"`
}

// MarineTrafficConfig configures the vessel-tracking adapter.
// An empty APIKey disables the adapter.
type MarineTrafficConfig struct {
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	BaseURL      string        `yaml:"base_url" envconfig:"BASE_URL"`
	PortID       string        `yaml:"port_id" envconfig:"PORT_ID"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	MaxRetries   int           `yaml:"max_retries" envconfig:"MAX_RETRIES"`
	RetryBackoff time.Duration `yaml:"retry_backoff" envconfig:"RETRY_BACKOFF"`
	DefaultLimit int           `yaml:"default_limit" envconfig:"DEFAULT_LIMIT"`
}

// ForecastConfig tunes the seasonal trend model
type ForecastConfig struct {
	MinPoints          int     `yaml:"min_points" envconfig:"MIN_POINTS"`
	DefaultHorizon     int     `yaml:"default_horizon" envconfig:"DEFAULT_HORIZON"`
	YearlyFourierOrder int     `yaml:"yearly_fourier_order" envconfig:"YEARLY_FOURIER_ORDER"`
	Changepoints       int     `yaml:"changepoints" envconfig:"CHANGEPOINTS"`
	ChangepointRange   float64 `yaml:"changepoint_range" envconfig:"CHANGEPOINT_RANGE"`
	ChangepointPrior   float64 `yaml:"changepoint_prior" envconfig:"CHANGEPOINT_PRIOR"`
	SeasonalityPrior   float64 `yaml:"seasonality_prior" envconfig:"SEASONALITY_PRIOR"`
}

// CacheConfig bounds the memoization layer
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries" envconfig:"MAX_ENTRIES"`
	// InvalidateSchedule is a cron spec that clears adapter results.
	// Empty keeps results for the process lifetime.
	InvalidateSchedule string `yaml:"invalidate_schedule" envconfig:"INVALIDATE_SCHEDULE"`
}

// DashboardConfig holds presentation defaults for the headline figures
type DashboardConfig struct {
	// ImportsYear is the calendar year of the total imports KPI. Zero uses
	// the latest year present in the ledger.
	ImportsYear int `yaml:"imports_year" envconfig:"IMPORTS_YEAR"`
	VesselLimit int `yaml:"vessel_limit" envconfig:"VESSEL_LIMIT"`
}

// Load builds configuration from defaults, an optional YAML file, the .env
// file and environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	applyLegacyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadDotEnv populates the process environment from a dotenv file without
// overriding variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// loadFromFile overlays YAML values onto cfg. Keys absent in the file keep
// their current value.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyLegacyEnv honours the unprefixed credential variables from older
// deployments.
func applyLegacyEnv(cfg *Config) {
	if cfg.Comtrade.APIKey == "" {
		cfg.Comtrade.APIKey = os.Getenv("COMTRADE_API_KEY")
	}
	if cfg.MarineTraffic.APIKey == "" {
		cfg.MarineTraffic.APIKey = os.Getenv("MARINETRAFFIC_KEY")
	}
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if strings.TrimSpace(c.Ledger.Path) == "" {
		return fmt.Errorf("ledger path must be set")
	}

	if c.Ledger.HeaderRows < 0 {
		return fmt.Errorf("ledger header rows must not be negative")
	}

	if c.Ledger.PortCode == "" {
		return fmt.Errorf("ledger port code must be set")
	}

	if c.Comtrade.Timeout <= 0 || c.MarineTraffic.Timeout <= 0 {
		return fmt.Errorf("adapter timeouts must be positive")
	}

	if c.Comtrade.MaxRetries < 0 || c.MarineTraffic.MaxRetries < 0 {
		return fmt.Errorf("adapter retries must not be negative")
	}

	if c.Forecast.MinPoints < 2 {
		return fmt.Errorf("forecast min points must be at least 2, got %d", c.Forecast.MinPoints)
	}

	if c.Forecast.DefaultHorizon < 1 || c.Forecast.DefaultHorizon > MaxForecastHorizon {
		return fmt.Errorf("forecast default horizon must be within 1..%d", MaxForecastHorizon)
	}

	if c.Forecast.ChangepointRange <= 0 || c.Forecast.ChangepointRange > 1 {
		return fmt.Errorf("forecast changepoint range must be within (0, 1]")
	}

	if c.Dashboard.ImportsYear < 0 {
		return fmt.Errorf("dashboard imports year must not be negative")
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    90 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  75 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8501", "http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
			Environment:    "development",
		},
		Ledger: LedgerConfig{
			Path:       DefaultLedgerFile,
			HeaderRows: LedgerHeaderRows,
			PortCode:   DestinationPortCode,
		},
		Comtrade: ComtradeConfig{
			BaseURL:       "https://api.un.org/data/comtrade/v1",
			CommodityCode: CommodityCode,
			MaxRecords:    500,
			Timeout:       DefaultHTTPTimeout,
			RetryBackoff:  time.Second,
			RPS:           1,
			Burst:         5,
		},
		MarineTraffic: MarineTrafficConfig{
			BaseURL:      "https://services.marinetraffic.com/api/vesselmasterdata/vesselmasterdata",
			PortID:       DestinationPortTrackID,
			Timeout:      DefaultHTTPTimeout,
			RetryBackoff: time.Second,
			DefaultLimit: DefaultVesselLimit,
		},
		Forecast: ForecastConfig{
			MinPoints:          ForecastMinPoints,
			DefaultHorizon:     DefaultForecastHorizon,
			YearlyFourierOrder: 10,
			Changepoints:       25,
			ChangepointRange:   0.8,
			ChangepointPrior:   0.05,
			SeasonalityPrior:   10,
		},
		Cache: CacheConfig{
			MaxEntries: 512,
		},
		Dashboard: DashboardConfig{
			ImportsYear: 2024,
			VesselLimit: DefaultVesselLimit,
		},
	}
}
