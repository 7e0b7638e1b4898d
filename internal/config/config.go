package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/jgoulah/usagesync/pkg/models"
)

// EnvPrefix is the prefix for environment overrides (e.g. USAGESYNC_DATADIR, USAGESYNC_MQTT_PASSWORD)
const EnvPrefix = "USAGESYNC"

// Config holds the application configuration
type Config struct {
	DataDir       string         `yaml:"data_dir,omitempty"` // Base directory for relative paths (default: .)
	Electricity   StreamConfig   `yaml:"electricity,omitempty"`
	Gas           StreamConfig   `yaml:"gas,omitempty"`
	Billing       BillingConfig  `yaml:"billing,omitempty"`
	Metadata      MetadataConfig `yaml:"metadata,omitempty"`
	Weather       WeatherConfig  `yaml:"weather,omitempty"`
	Ingest        IngestConfig   `yaml:"ingest,omitempty"`
	Log           LogConfig      `yaml:"log,omitempty"`
	Export        ExportConfig   `yaml:"export,omitempty"`
	ForecastFile  string         `yaml:"forecast_file,omitempty"` // default: forecasts.csv
	MQTT          MQTTConfig     `yaml:"mqtt,omitempty"`
	HomeAssistant HAConfig       `yaml:"home_assistant,omitempty"`
	Metrics       MetricsConfig  `yaml:"metrics,omitempty"`
	Mirror        MirrorConfig   `yaml:"mirror,omitempty"`
}

// StreamConfig locates the raw exports and the snapshot for one usage stream
type StreamConfig struct {
	Pattern  string `yaml:"pattern,omitempty"`  // Glob for export files
	Snapshot string `yaml:"snapshot,omitempty"` // Parquet snapshot path
}

// BillingConfig holds the billing schedule settings
type BillingConfig struct {
	Schedule string `yaml:"schedule,omitempty"` // default: billing_periods.csv
	Strict   bool   `yaml:"strict,omitempty"`   // Reject schedules with gaps or overlaps
}

// MetadataConfig selects where processing state is kept
type MetadataConfig struct {
	Backend string `yaml:"backend,omitempty" validate:"omitempty,oneof=sqlite json"`
	Path    string `yaml:"path,omitempty"` // default: data.db or metadata.json
}

// WeatherConfig holds Hilltop weather feed settings
type WeatherConfig struct {
	BaseURL     string        `yaml:"base_url,omitempty" validate:"omitempty,url"`
	HTS         string        `yaml:"hts,omitempty"`
	Site        string        `yaml:"site,omitempty"`
	Measurement string        `yaml:"measurement,omitempty"`
	Snapshot    string        `yaml:"snapshot,omitempty"`
	StaleAfter  time.Duration `yaml:"stale_after,omitempty" validate:"gte=0"`
	Epoch       string        `yaml:"epoch,omitempty"` // YYYY-MM-DD, used when no local data exists
	Timeout     time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`
	MaxRetries  int           `yaml:"max_retries,omitempty" validate:"gte=0"`
}

// IngestConfig controls row parsing
type IngestConfig struct {
	ParsePolicy string `yaml:"parse_policy,omitempty" validate:"omitempty,oneof=drop fail"`
	Workers     int    `yaml:"workers,omitempty" validate:"gte=0"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format,omitempty" validate:"omitempty,oneof=json console"`
}

// ExportConfig holds interval export settings
type ExportConfig struct {
	ICPNumber string `yaml:"icp_number,omitempty"`
}

// MQTTConfig holds MQTT broker configuration
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker" validate:"required_if=Enabled true"` // host:port
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
}

// HAConfig holds Home Assistant HTTP API configuration
type HAConfig struct {
	Enabled  bool              `yaml:"enabled"`
	URL      string            `yaml:"url" validate:"required_if=Enabled true,omitempty,url"` // e.g., "http://homeassistant.local:8123"
	Token    string            `yaml:"token" validate:"required_if=Enabled true"`             // Long-lived access token
	Entities map[string]string `yaml:"entities,omitempty" ignored:"true"`                     // stream -> entity_id
}

// MetricsConfig holds Prometheus Pushgateway settings
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url,omitempty" validate:"omitempty,url"`
	Job            string `yaml:"job,omitempty"`
}

// MirrorConfig holds the optional S3 snapshot mirror
type MirrorConfig struct {
	Bucket  string `yaml:"bucket,omitempty"`
	Prefix  string `yaml:"prefix,omitempty"`
	Region  string `yaml:"region,omitempty"`
	Profile string `yaml:"profile,omitempty"`
}

// Load reads the config file, applies .env and environment overrides and validates the result
func Load(configPath string) (*Config, error) {
	// A missing .env is normal
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Weather.Epoch != "" {
		if _, err := time.Parse("2006-01-02", c.Weather.Epoch); err != nil {
			return fmt.Errorf("invalid config: weather.epoch: %w", err)
		}
	}
	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// resolve joins relative paths onto the data directory
func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) || c.DataDir == "" {
		return path
	}
	return filepath.Join(c.DataDir, path)
}

// Stream returns the settings for a stream with defaults applied
func (c *Config) Stream(stream models.Stream) StreamConfig {
	var sc StreamConfig
	var pattern, snapshot string
	switch stream {
	case models.Electricity:
		sc = c.Electricity
		pattern = "Genesis Energy - My Hourly Usage*.csv"
		snapshot = "electricity_usage.parquet"
	case models.Gas:
		sc = c.Gas
		pattern = "Genesis Energy - Hourly Gas Usage*.csv"
		snapshot = "gas_usage.parquet"
	}
	if sc.Pattern == "" {
		sc.Pattern = pattern
	}
	if sc.Snapshot == "" {
		sc.Snapshot = snapshot
	}
	sc.Pattern = c.resolve(sc.Pattern)
	sc.Snapshot = c.resolve(sc.Snapshot)
	return sc
}

// GetSchedulePath returns the billing schedule path
func (c *Config) GetSchedulePath() string {
	if c.Billing.Schedule == "" {
		return c.resolve("billing_periods.csv")
	}
	return c.resolve(c.Billing.Schedule)
}

// GetMetadataBackend returns the metadata backend (default: sqlite)
func (c *Config) GetMetadataBackend() string {
	if c.Metadata.Backend == "" {
		return "sqlite"
	}
	return c.Metadata.Backend
}

// GetMetadataPath returns the metadata location for the configured backend
func (c *Config) GetMetadataPath() string {
	if c.Metadata.Path != "" {
		return c.resolve(c.Metadata.Path)
	}
	if c.GetMetadataBackend() == "json" {
		return c.resolve("metadata.json")
	}
	return c.resolve("data.db")
}

// GetForecastPath returns the forecasts CSV path
func (c *Config) GetForecastPath() string {
	if c.ForecastFile == "" {
		return c.resolve("forecasts.csv")
	}
	return c.resolve(c.ForecastFile)
}

// GetParsePolicy returns the row parse policy (default: drop)
func (c *Config) GetParsePolicy() string {
	if c.Ingest.ParsePolicy == "" {
		return "drop"
	}
	return c.Ingest.ParsePolicy
}

// GetWorkers returns how many export files are parsed at once (default: 4)
func (c *Config) GetWorkers() int {
	if c.Ingest.Workers <= 0 {
		return 4
	}
	return c.Ingest.Workers
}

// GetWeatherBaseURL returns the Hilltop server URL
func (c *Config) GetWeatherBaseURL() string {
	if c.Weather.BaseURL == "" {
		return "https://extranet.trc.govt.nz/getdata/"
	}
	return c.Weather.BaseURL
}

// GetWeatherHTS returns the Hilltop file name
func (c *Config) GetWeatherHTS() string {
	if c.Weather.HTS == "" {
		return "boo.hts"
	}
	return c.Weather.HTS
}

// GetWeatherSite returns the weather station site name
func (c *Config) GetWeatherSite() string {
	if c.Weather.Site == "" {
		return "Patea at Stratford"
	}
	return c.Weather.Site
}

// GetWeatherMeasurement returns the measurement name
func (c *Config) GetWeatherMeasurement() string {
	if c.Weather.Measurement == "" {
		return "Air Temperature (Continuous)"
	}
	return c.Weather.Measurement
}

// GetWeatherSnapshot returns the weather snapshot path
func (c *Config) GetWeatherSnapshot() string {
	if c.Weather.Snapshot == "" {
		return c.resolve("air_temperature.parquet")
	}
	return c.resolve(c.Weather.Snapshot)
}

// GetStaleAfter returns how old local weather data may get before a refresh (default: 24h)
func (c *Config) GetStaleAfter() time.Duration {
	if c.Weather.StaleAfter <= 0 {
		return 24 * time.Hour
	}
	return c.Weather.StaleAfter
}

// GetWeatherEpoch returns the start of history when no local data exists
func (c *Config) GetWeatherEpoch() time.Time {
	if t, err := time.Parse("2006-01-02", c.Weather.Epoch); err == nil {
		return t
	}
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
}

// GetWeatherTimeout returns the HTTP timeout for the feed (default: 60s)
func (c *Config) GetWeatherTimeout() time.Duration {
	if c.Weather.Timeout <= 0 {
		return 60 * time.Second
	}
	return c.Weather.Timeout
}

// GetLogLevel returns the log level (default: info)
func (c *Config) GetLogLevel() string {
	if c.Log.Level == "" {
		return "info"
	}
	return c.Log.Level
}

// GetMetricsJob returns the Pushgateway job name
func (c *Config) GetMetricsJob() string {
	if c.Metrics.Job == "" {
		return "usagesync"
	}
	return c.Metrics.Job
}

// GetEntityID returns the Home Assistant entity for a stream
func (c *Config) GetEntityID(stream models.Stream) string {
	if id, ok := c.HomeAssistant.Entities[string(stream)]; ok && id != "" {
		return id
	}
	return fmt.Sprintf("sensor.%s_bill_month_usage", stream)
}

// GetTopicPrefix returns the MQTT topic prefix
func (c *Config) GetTopicPrefix() string {
	if c.MQTT.TopicPrefix == "" {
		return "usagesync"
	}
	return c.MQTT.TopicPrefix
}
