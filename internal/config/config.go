package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "CLIMATE_TREND_CONFIG"
	noaaTokenEnv      = "NOAA_TOKEN"
	noaaBaseURLEnv    = "NOAA_BASE_URL"
	noaaLocationEnv   = "NOAA_LOCATION"
	dataDirEnv        = "CLIMATE_DATA_DIR"
	logLevelEnv       = "LOG_LEVEL"
	appEnvEnv         = "APP_ENV"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	scheduleEnv       = "RUN_SCHEDULE"
)

const (
	// UnitsMetric requests Celsius/millimetre values from the API.
	UnitsMetric = "metric"
	// UnitsRaw requests unconverted GHCND values (tenths of a unit).
	UnitsRaw = "raw"
)

// Duration accepts YAML strings like "200ms" or "1m30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	NOAA          NOAAConfig         `yaml:"noaa"`
	Extract       ExtractConfig      `yaml:"extract"`
	Output        OutputConfig       `yaml:"output"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects handler style and verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

// NOAAConfig describes the Climate Data Online endpoint and query shape.
type NOAAConfig struct {
	BaseURL        string      `yaml:"baseUrl"`
	Token          string      `yaml:"token"`
	DatasetID      string      `yaml:"datasetId"`
	LocationID     string      `yaml:"locationId"`
	DataTypes      []string    `yaml:"dataTypes"`
	Units          string      `yaml:"units"`
	PageSize       int         `yaml:"pageSize"`
	RequestTimeout Duration    `yaml:"requestTimeout"`
	Retry          RetryConfig `yaml:"retry"`
}

// RetryConfig bounds the per-page retry loop.
type RetryConfig struct {
	MaxAttempts    int      `yaml:"maxAttempts"`
	InitialBackoff Duration `yaml:"initialBackoff"`
	MaxBackoff     Duration `yaml:"maxBackoff"`
	Multiplier     float64  `yaml:"multiplier"`
	Jitter         float64  `yaml:"jitter"`
}

// ExtractConfig defines the year range and API pacing. EndYear is exclusive,
// so 1974/2024 covers the fifty years 1974..2023.
type ExtractConfig struct {
	StartYear   int      `yaml:"startYear"`
	EndYear     int      `yaml:"endYear"`
	PagePause   Duration `yaml:"pagePause"`
	WindowPause Duration `yaml:"windowPause"`
}

// OutputConfig names every artifact the pipeline writes. Relative names are
// resolved against DataDir.
type OutputConfig struct {
	DataDir            string `yaml:"dataDir"`
	RawCSV             string `yaml:"rawCsv"`
	AnnualCSV          string `yaml:"annualCsv"`
	StationCSV         string `yaml:"stationCsv"`
	Checkpoint         string `yaml:"checkpoint"`
	Database           string `yaml:"database"`
	TemperatureChart   string `yaml:"temperatureChart"`
	PrecipitationChart string `yaml:"precipitationChart"`
}

func (o OutputConfig) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(o.DataDir, name)
}

func (o OutputConfig) RawCSVPath() string             { return o.resolve(o.RawCSV) }
func (o OutputConfig) AnnualCSVPath() string          { return o.resolve(o.AnnualCSV) }
func (o OutputConfig) StationCSVPath() string         { return o.resolve(o.StationCSV) }
func (o OutputConfig) CheckpointPath() string         { return o.resolve(o.Checkpoint) }
func (o OutputConfig) DatabasePath() string           { return o.resolve(o.Database) }
func (o OutputConfig) TemperatureChartPath() string   { return o.resolve(o.TemperatureChart) }
func (o OutputConfig) PrecipitationChartPath() string { return o.resolve(o.PrecipitationChart) }

// SchedulerConfig defines when recurring runs execute. An empty cron
// expression means a single run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads YAML configuration (if present), applies environment overrides
// and validates the result. A .env file in the working directory is honored.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		// Decoding over the defaults leaves absent keys untouched while an
		// explicit zero in the file still overrides.
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(noaaTokenEnv); v != "" {
		c.NOAA.Token = v
	}

	if v := os.Getenv(noaaBaseURLEnv); v != "" {
		c.NOAA.BaseURL = v
	}

	if v := os.Getenv(noaaLocationEnv); v != "" {
		c.NOAA.LocationID = v
	}

	if v := os.Getenv(dataDirEnv); v != "" {
		c.Output.DataDir = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(appEnvEnv); v != "" {
		c.Logging.Env = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(scheduleEnv); v != "" {
		c.Scheduler.CronExpression = v
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("invalid scheduler.timezone %q: %w", tz, err)
	}
	c.Scheduler.location = loc
	return nil
}

func (c *Config) validate() error {
	if c.NOAA.Token == "" {
		return fmt.Errorf("NOAA token is not set (export %s or set noaa.token)", noaaTokenEnv)
	}
	if c.NOAA.BaseURL == "" {
		return fmt.Errorf("noaa.baseUrl must not be empty")
	}
	if len(c.NOAA.DataTypes) == 0 {
		return fmt.Errorf("noaa.dataTypes must name at least one observation type")
	}
	if c.NOAA.Units != UnitsMetric && c.NOAA.Units != UnitsRaw {
		return fmt.Errorf("invalid noaa.units %q (allowed: %s, %s)", c.NOAA.Units, UnitsMetric, UnitsRaw)
	}
	if c.NOAA.PageSize < 1 || c.NOAA.PageSize > 1000 {
		return fmt.Errorf("invalid noaa.pageSize %d (allowed: 1..1000)", c.NOAA.PageSize)
	}
	if c.NOAA.RequestTimeout <= 0 {
		return fmt.Errorf("noaa.requestTimeout must be positive")
	}
	if c.NOAA.Retry.MaxAttempts < 1 {
		return fmt.Errorf("invalid noaa.retry.maxAttempts %d (must be at least 1)", c.NOAA.Retry.MaxAttempts)
	}
	if c.NOAA.Retry.InitialBackoff <= 0 {
		return fmt.Errorf("noaa.retry.initialBackoff must be positive")
	}
	if c.NOAA.Retry.MaxBackoff < c.NOAA.Retry.InitialBackoff {
		return fmt.Errorf("noaa.retry.maxBackoff must not be below initialBackoff")
	}
	if c.NOAA.Retry.Multiplier < 1 {
		return fmt.Errorf("invalid noaa.retry.multiplier %g (must be at least 1)", c.NOAA.Retry.Multiplier)
	}
	if c.NOAA.Retry.Jitter < 0 || c.NOAA.Retry.Jitter > 1 {
		return fmt.Errorf("invalid noaa.retry.jitter %g (allowed: 0..1)", c.NOAA.Retry.Jitter)
	}
	if c.Extract.StartYear <= 0 || c.Extract.EndYear <= 0 {
		return fmt.Errorf("extract.startYear and extract.endYear must be set")
	}
	if c.Extract.StartYear >= c.Extract.EndYear {
		return fmt.Errorf("invalid extract range %d..%d (startYear must precede endYear)", c.Extract.StartYear, c.Extract.EndYear)
	}
	if c.Output.DataDir == "" {
		return fmt.Errorf("output.dataDir must not be empty")
	}
	return nil
}

// UnitConversionFactors returns the temperature and precipitation factors
// matching the configured units mode.
func (c NOAAConfig) UnitConversionFactors() (temp, precip float64) {
	if c.Units == UnitsRaw {
		return 0.1, 0.1
	}
	return 1, 1
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info", Env: "dev"},
		NOAA: NOAAConfig{
			BaseURL:        "https://www.ncei.noaa.gov/cdo-web/api/v2",
			DatasetID:      "GHCND",
			LocationID:     "FIPS:36",
			DataTypes:      []string{"TMAX", "TMIN", "PRCP"},
			Units:          UnitsMetric,
			PageSize:       1000,
			RequestTimeout: Duration(60 * time.Second),
			Retry: RetryConfig{
				MaxAttempts:    5,
				InitialBackoff: Duration(time.Second),
				MaxBackoff:     Duration(time.Minute),
				Multiplier:     2,
				Jitter:         0.2,
			},
		},
		Extract: ExtractConfig{
			StartYear:   1974,
			EndYear:     2024,
			PagePause:   Duration(200 * time.Millisecond),
			WindowPause: Duration(500 * time.Millisecond),
		},
		Output: OutputConfig{
			DataDir:            "data",
			RawCSV:             "raw_observations.csv",
			AnnualCSV:          "annual_summary.csv",
			StationCSV:         "station_summary.csv",
			Checkpoint:         "extraction_progress.json",
			Database:           "climate.db",
			TemperatureChart:   "annual_temperature.png",
			PrecipitationChart: "annual_precipitation.png",
		},
		Scheduler: SchedulerConfig{CronExpression: "", Timezone: defaultTimezone, location: tz},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: ""},
		},
	}
}
