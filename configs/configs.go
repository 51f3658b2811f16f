// Package configs provides application configuration loaded from environment variables.
// All configuration is externalized via environment variables for 12-factor app compliance.
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/fareradar/internal/models"
)

// AppConfig holds all application configuration.
// Load it once at startup using Load().
type AppConfig struct {
	// Criteria is the itinerary searched on every run.
	Criteria models.SearchCriteria

	// DataDir is where history, price tracking and analysis files live.
	DataDir string

	// LogLevel is a logrus level name.
	LogLevel string

	Schedule   ScheduleConfig
	Collector  CollectorConfig
	Tracker    TrackerConfig
	Analysis   AnalysisConfig
	Kafka      KafkaConfig
	ClickHouse ClickHouseConfig
	SMTP       SMTPConfig

	// ServerPort is the port of the read API.
	ServerPort string
}

// ScheduleConfig controls when the pipeline runs.
type ScheduleConfig struct {
	// RunTime is the daily wall-clock trigger, HH:MM.
	RunTime string

	// Location is the timezone RunTime is interpreted in.
	Location *time.Location

	// PollInterval is how often the scheduler checks whether a run is due.
	PollInterval time.Duration
}

// CollectorConfig holds source settings.
type CollectorConfig struct {
	// Sources is the list of enabled adapter names (comma-separated in env).
	Sources []string

	// FareAPIURL is the base URL of the JSON fare API source.
	FareAPIURL string

	// SourceTimeout bounds a single adapter call.
	SourceTimeout time.Duration

	// Delay and Jitter pace adapter invocations.
	Delay  time.Duration
	Jitter time.Duration

	// Workers is the number of adapters called concurrently.
	Workers int
}

// TrackerConfig holds price tracking settings.
type TrackerConfig struct {
	// Tolerance is the absolute price difference still considered flat.
	Tolerance decimal.Decimal

	// Window is how many runs a price series is derived from.
	Window int
}

// AnalysisConfig holds the analysis service settings.
type AnalysisConfig struct {
	APIKey      string
	APIBase     string
	Model       string
	MaxAttempts int
	Timeout     time.Duration
}

// KafkaConfig holds Kafka connection settings for pipeline events.
type KafkaConfig struct {
	// Broker is the Kafka broker address (e.g., "localhost:9092"). Empty disables events.
	Broker string

	// Topic is the Kafka topic for events.
	Topic string
}

// ClickHouseConfig holds settings of the optional offer mirror.
type ClickHouseConfig struct {
	Enabled bool
	DSN     string
}

// SMTPConfig holds settings for email reports.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	To       string
}

// Enabled reports whether email reports can be sent.
func (c SMTPConfig) Enabled() bool {
	return c.User != "" && c.Password != "" && c.To != ""
}

// ConfigError lists every missing or invalid setting found at startup.
type ConfigError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid: "+strings.Join(e.Invalid, "; "))
	}
	return "config error: " + strings.Join(parts, " | ")
}

func (e *ConfigError) empty() bool {
	return len(e.Missing) == 0 && len(e.Invalid) == 0
}

// loader collects problems while reading the environment so all of them are
// reported at once.
type loader struct {
	err ConfigError
}

func (l *loader) required(key string) string {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		l.err.Missing = append(l.err.Missing, key)
	}
	return value
}

func (l *loader) date(key string) string {
	value := l.required(key)
	if value == "" {
		return ""
	}
	if _, err := time.Parse(models.DateLayout, value); err != nil {
		l.invalid(key, "expected YYYY-MM-DD, got %q", value)
	}
	return value
}

func (l *loader) positiveInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value <= 0 {
		l.invalid(key, "expected a positive integer, got %q", valueStr)
		return defaultValue
	}
	return value
}

func (l *loader) invalid(key, format string, args ...any) {
	l.err.Invalid = append(l.err.Invalid, key+": "+fmt.Sprintf(format, args...))
}

// Load loads all application configuration from environment variables.
// It attempts to load a .env file first (for local development).
// Every problem is returned in a single *ConfigError.
func Load() (*AppConfig, error) {
	_ = godotenv.Load() // Ignore error - .env is optional

	l := &loader{}

	criteria := models.SearchCriteria{
		Origin:         strings.ToUpper(l.required("DEPARTURE_AIRPORT")),
		Destination:    strings.ToUpper(l.required("DESTINATION_AIRPORT")),
		DepartureStart: l.date("DEPARTURE_DATE_START"),
		DepartureEnd:   l.date("DEPARTURE_DATE_END"),
		ReturnStart:    l.date("RETURN_DATE_START"),
		ReturnEnd:      l.date("RETURN_DATE_END"),
		Passengers:     l.positiveInt("PASSENGERS", 1),
		TravelClass:    strings.ToLower(getEnv("TRAVEL_CLASS", "economy")),
	}
	if criteria.DepartureStart != "" && criteria.DepartureEnd != "" && criteria.DepartureEnd < criteria.DepartureStart {
		l.invalid("DEPARTURE_DATE_END", "before DEPARTURE_DATE_START")
	}
	if criteria.ReturnStart != "" && criteria.ReturnEnd != "" && criteria.ReturnEnd < criteria.ReturnStart {
		l.invalid("RETURN_DATE_END", "before RETURN_DATE_START")
	}

	runTime := getEnv("RUN_TIME", "09:00")
	if _, _, err := ParseClock(runTime); err != nil {
		l.invalid("RUN_TIME", "%v", err)
	}

	location := time.Local
	if tz := getEnv("TIMEZONE", ""); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			l.invalid("TIMEZONE", "%v", err)
		} else {
			location = loc
		}
	}

	tolerance, err := decimal.NewFromString(getEnv("TREND_TOLERANCE", "0.01"))
	if err != nil || tolerance.IsNegative() {
		l.invalid("TREND_TOLERANCE", "expected a non-negative number")
		tolerance = decimal.RequireFromString("0.01")
	}

	logLevel := getEnv("LOG_LEVEL", "info")
	if _, err := logrus.ParseLevel(logLevel); err != nil {
		l.invalid("LOG_LEVEL", "%v", err)
	}

	cfg := &AppConfig{
		Criteria: criteria,
		DataDir:  getEnv("DATA_DIR", "./data"),
		LogLevel: logLevel,
		Schedule: ScheduleConfig{
			RunTime:      runTime,
			Location:     location,
			PollInterval: time.Duration(l.positiveInt("POLL_INTERVAL_SECONDS", 60)) * time.Second,
		},
		Collector: CollectorConfig{
			Sources:       splitList(getEnv("SOURCES", "google_flights,expedia")),
			FareAPIURL:    getEnv("FAREAPI_URL", ""),
			SourceTimeout: time.Duration(l.positiveInt("SOURCE_TIMEOUT_SECONDS", 60)) * time.Second,
			Delay:         time.Duration(getEnvInt("SOURCE_DELAY_MS", 2000)) * time.Millisecond,
			Jitter:        time.Duration(getEnvInt("SOURCE_JITTER_MS", 500)) * time.Millisecond,
			Workers:       l.positiveInt("COLLECTOR_WORKERS", 2),
		},
		Tracker: TrackerConfig{
			Tolerance: tolerance,
			Window:    l.positiveInt("HISTORY_WINDOW", 30),
		},
		Analysis: AnalysisConfig{
			APIKey:      l.required("GROK_API_KEY"),
			APIBase:     getEnv("GROK_API_BASE", "https://api.x.ai/v1"),
			Model:       getEnv("GROK_MODEL", "grok-3"),
			MaxAttempts: l.positiveInt("ANALYSIS_MAX_ATTEMPTS", 4),
			Timeout:     time.Duration(l.positiveInt("ANALYSIS_TIMEOUT_SECONDS", 60)) * time.Second,
		},
		Kafka: KafkaConfig{
			Broker: getEnv("KAFKA_BROKER", ""),
			Topic:  getEnv("KAFKA_EVENTS_TOPIC", "fareradar_events"),
		},
		ClickHouse: LoadClickHouse(),
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.zoho.com"),
			Port:     getEnvInt("SMTP_PORT", 465),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			To:       getEnv("EMAIL_TO", ""),
		},
		ServerPort: getEnv("SERVER_PORT", "8080"),
	}

	if len(cfg.Collector.Sources) == 0 {
		l.invalid("SOURCES", "at least one source is required")
	}
	for _, s := range cfg.Collector.Sources {
		if s == "fareapi" && cfg.Collector.FareAPIURL == "" {
			l.err.Missing = append(l.err.Missing, "FAREAPI_URL")
		}
	}

	if !l.err.empty() {
		return nil, &l.err
	}
	return cfg, nil
}

// ParseClock parses an HH:MM wall-clock time.
func ParseClock(value string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", value)
	}
	return t.Hour(), t.Minute(), nil
}

// NewLogger builds the process logger.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}

// MigrateConfig is the subset of settings the schema migrator needs.
type MigrateConfig struct {
	LogLevel   string
	ClickHouse ClickHouseConfig
}

// LoadMigrate loads only the database and logging settings, so migrations
// run without search criteria or API keys configured.
func LoadMigrate() (*MigrateConfig, error) {
	_ = godotenv.Load()

	logLevel := getEnv("LOG_LEVEL", "info")
	if _, err := logrus.ParseLevel(logLevel); err != nil {
		return nil, &ConfigError{Invalid: []string{"LOG_LEVEL: " + err.Error()}}
	}
	return &MigrateConfig{
		LogLevel:   logLevel,
		ClickHouse: LoadClickHouse(),
	}, nil
}

// LoadClickHouse reads the offer mirror settings from the environment.
func LoadClickHouse() ClickHouseConfig {
	return ClickHouseConfig{
		Enabled: getEnvBool("CLICKHOUSE_ENABLED", false),
		DSN:     getDatabaseDSN(),
	}
}

// getDatabaseDSN constructs the ClickHouse DSN from environment variables.
func getDatabaseDSN() string {
	dbUser := getEnv("CLICKHOUSE_USER", "default")
	dbPassword := getEnv("CLICKHOUSE_PASSWORD", "")
	dbHost := getEnv("CLICKHOUSE_HOST", "localhost")
	dbPort := getEnv("CLICKHOUSE_TCP_PORT", "9000")
	dbName := getEnv("CLICKHOUSE_DB", "default")

	return fmt.Sprintf(
		"clickhouse://%s:%s@%s:%s/%s?dial_timeout=10s&read_timeout=20s",
		dbUser, dbPassword, dbHost, dbPort, dbName,
	)
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvBool returns the environment variable as bool or a default.
func getEnvBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
