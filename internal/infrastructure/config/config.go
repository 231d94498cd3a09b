package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Tracker   TrackerConfig
	Sync      SyncConfig
	Scheduler SchedulerConfig
	Scoring   ScoringConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings for the narrative cache
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// TrackerConfig holds task tracker API settings
type TrackerConfig struct {
	BaseURL        string
	Token          string
	ProjectListIDs []string          // lists holding store rollout tasks
	StepLists      map[string]string // stage name -> list id for step tasks
	StageOrder     []string          // pipeline order of the stage names
	PageSize       int           // tasks per page when listing
	RequestTimeout time.Duration
	MaxRetries     int           // retries after a 429 response
	RetryBaseDelay time.Duration // delay before the first retry
}

// SyncConfig holds ingestion settings
type SyncConfig struct {
	Enabled      bool
	Interval     time.Duration // periodic sync trigger
	Workers      int           // concurrent list fetches
	StaleAfter   time.Duration // a running sync older than this is considered crashed
	KeepRuns     int           // sync run records retained per cleanup
}

// SchedulerConfig holds background job configuration
type SchedulerConfig struct {
	Enabled          bool
	SnapshotHourUTC  int // hour of day the daily snapshot fires
	CheckInterval    time.Duration
	JobTimeout       time.Duration
	SnapshotKeepDays int
}

// ScoringConfig overrides the built-in scoring weights. Zero values keep the
// defaults.
type ScoringConfig struct {
	CapacityCeiling  float64
	MatrizWeight     float64
	FilialWeight     float64
	MinDeliveries    int
	MinStageSamples  int
	ContractDays     int
	LeadMonths       int // months projected ahead in the financial forecast
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ROLLOUT_ prefix (e.g., ROLLOUT_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("ROLLOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Tracker: TrackerConfig{
			BaseURL:        v.GetString("tracker.base_url"),
			Token:          v.GetString("tracker.token"),
			ProjectListIDs: v.GetStringSlice("tracker.project_list_ids"),
			StepLists:      v.GetStringMapString("tracker.step_lists"),
			StageOrder:     v.GetStringSlice("tracker.stage_order"),
			PageSize:       v.GetInt("tracker.page_size"),
			RequestTimeout: v.GetDuration("tracker.request_timeout"),
			MaxRetries:     v.GetInt("tracker.max_retries"),
			RetryBaseDelay: v.GetDuration("tracker.retry_base_delay"),
		},
		Sync: SyncConfig{
			Enabled:    v.GetBool("sync.enabled"),
			Interval:   v.GetDuration("sync.interval"),
			Workers:    v.GetInt("sync.workers"),
			StaleAfter: v.GetDuration("sync.stale_after"),
			KeepRuns:   v.GetInt("sync.keep_runs"),
		},
		Scheduler: SchedulerConfig{
			Enabled:          v.GetBool("scheduler.enabled"),
			SnapshotHourUTC:  v.GetInt("scheduler.snapshot_hour_utc"),
			CheckInterval:    v.GetDuration("scheduler.check_interval"),
			JobTimeout:       v.GetDuration("scheduler.job_timeout"),
			SnapshotKeepDays: v.GetInt("scheduler.snapshot_keep_days"),
		},
		Scoring: ScoringConfig{
			CapacityCeiling: v.GetFloat64("scoring.capacity_ceiling"),
			MatrizWeight:    v.GetFloat64("scoring.matriz_weight"),
			FilialWeight:    v.GetFloat64("scoring.filial_weight"),
			MinDeliveries:   v.GetInt("scoring.min_deliveries"),
			MinStageSamples: v.GetInt("scoring.min_stage_samples"),
			ContractDays:    v.GetInt("scoring.contract_days"),
			LeadMonths:      v.GetInt("scoring.lead_months"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "rollout-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "rollout"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 24 * time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	// An empty list means no cross-origin requests are allowed until explicitly
	// configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Tracker.BaseURL == "" {
		cfg.Tracker.BaseURL = "https://api.clickup.com/api/v2"
	}
	if cfg.Tracker.PageSize == 0 {
		cfg.Tracker.PageSize = 100
	}
	if cfg.Tracker.RequestTimeout == 0 {
		cfg.Tracker.RequestTimeout = 30 * time.Second
	}
	if cfg.Tracker.MaxRetries == 0 {
		cfg.Tracker.MaxRetries = 3
	}
	if cfg.Tracker.RetryBaseDelay == 0 {
		cfg.Tracker.RetryBaseDelay = 2 * time.Second
	}
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = 30 * time.Minute
	}
	if cfg.Sync.Workers == 0 {
		cfg.Sync.Workers = 4
	}
	if cfg.Sync.StaleAfter == 0 {
		cfg.Sync.StaleAfter = time.Hour
	}
	if cfg.Sync.KeepRuns == 0 {
		cfg.Sync.KeepRuns = 100
	}
	if cfg.Scheduler.SnapshotHourUTC == 0 {
		cfg.Scheduler.SnapshotHourUTC = 3
	}
	if cfg.Scheduler.CheckInterval == 0 {
		cfg.Scheduler.CheckInterval = time.Minute
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 10 * time.Minute
	}
	if cfg.Scheduler.SnapshotKeepDays == 0 {
		cfg.Scheduler.SnapshotKeepDays = 365
	}
	if cfg.Scoring.LeadMonths == 0 {
		cfg.Scoring.LeadMonths = 6
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Tracker.PageSize <= 0 || c.Tracker.PageSize > 100 {
		return fmt.Errorf("tracker.page_size must be between 1 and 100, got %d", c.Tracker.PageSize)
	}
	if c.Sync.Workers <= 0 {
		return fmt.Errorf("sync.workers must be positive")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Sync.Enabled && c.Tracker.Token == "" {
			return fmt.Errorf("tracker.token is required in production when sync is enabled")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Scheduler.SnapshotHourUTC < 0 || c.Scheduler.SnapshotHourUTC > 23 {
		return fmt.Errorf("scheduler.snapshot_hour_utc must be between 0 and 23, got %d", c.Scheduler.SnapshotHourUTC)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port pair for the Redis client
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
