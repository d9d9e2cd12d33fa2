package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backend contexts. The same logical backend has a different hostname when the
// dashboard runs next to the browser than when it runs inside the container network.
const (
	ContextAuto      = "auto"
	ContextBrowser   = "browser"
	ContextContainer = "container"
)

// Config holds all application configuration
type Config struct {
	Environment string        `mapstructure:"environment"`
	Server      ServerConfig  `mapstructure:"server"`
	Backend     BackendConfig `mapstructure:"backend"`
	Redis       RedisConfig   `mapstructure:"redis"`
	Elastic     ElasticConfig `mapstructure:"elastic"`
	Tracing     TracingConfig `mapstructure:"tracing"`
	Refresh     RefreshConfig `mapstructure:"refresh"`
	Panels      PanelsConfig  `mapstructure:"panels"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds the dashboard HTTP server configuration
type ServerConfig struct {
	Address     string        `mapstructure:"address"`
	Timeout     time.Duration `mapstructure:"timeout"`
	CorsOrigins []string      `mapstructure:"cors_origins"`
}

// BackendConfig holds the simulation REST backend configuration
type BackendConfig struct {
	BrowserURL   string        `mapstructure:"browser_url"`
	ContainerURL string        `mapstructure:"container_url"`
	Context      string        `mapstructure:"context"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Enabled  bool          `mapstructure:"enabled"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ElasticConfig holds Elasticsearch configuration
type ElasticConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Prefix   string `mapstructure:"prefix"`
	Index    string `mapstructure:"index"`
	Enabled  bool   `mapstructure:"enabled"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	LicenseKey     string `mapstructure:"license_key"`
	AppName        string `mapstructure:"app_name"`
	LogEnabled     bool   `mapstructure:"log_enabled"`
	DistribTracing bool   `mapstructure:"distributed_tracing_enabled"`
}

// RefreshConfig holds the periodic re-synchronisation settings
type RefreshConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// PanelsConfig holds view-model tuning
type PanelsConfig struct {
	BOMConcurrency     int `mapstructure:"bom_concurrency"`
	NotificationsLimit int `mapstructure:"notifications_limit"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (Config, error) {
	// A local .env is a convenience for development; it is fine for it to be missing.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			v.SetConfigName("app")
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: No configuration file found: %v\n", err)
			}
		} else {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks the settings that have no safe fallback
func (c Config) Validate() error {
	switch c.Backend.Context {
	case ContextAuto, ContextBrowser, ContextContainer:
	default:
		return fmt.Errorf("backend.context must be one of auto, browser, container: got %q", c.Backend.Context)
	}
	if c.Backend.BrowserURL == "" || c.Backend.ContainerURL == "" {
		return fmt.Errorf("backend.browser_url and backend.container_url are required")
	}
	if c.Refresh.Enabled && c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be positive when refresh is enabled")
	}
	return nil
}

// BaseURL resolves the backend address for the context the dashboard runs in
func (b BackendConfig) BaseURL() string {
	ctx := b.Context
	if ctx == ContextAuto || ctx == "" {
		ctx = detectContext()
	}
	url := b.BrowserURL
	if ctx == ContextContainer {
		url = b.ContainerURL
	}
	return strings.TrimRight(url, "/")
}

// detectContext guesses whether the process runs inside a container
func detectContext() string {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return ContextContainer
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return ContextContainer
	}
	return ContextBrowser
}

// FormatIndex formats an Elasticsearch index name with the configured prefix
func FormatIndex(cfg ElasticConfig) string {
	if cfg.Prefix == "" {
		return cfg.Index
	}
	return cfg.Prefix + "-" + cfg.Index
}

// Defaults returns the configuration used when nothing is set
func Defaults() Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	_ = v.Unmarshal(&config)
	return config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.address", "0.0.0.0:8081")
	v.SetDefault("server.timeout", "30s")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("backend.browser_url", "http://localhost:8080")
	v.SetDefault("backend.container_url", "http://backend:8080")
	v.SetDefault("backend.context", ContextAuto)
	v.SetDefault("backend.timeout", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.ttl", "10m")

	v.SetDefault("elastic.url", "http://localhost:9200")
	v.SetDefault("elastic.prefix", "dashboard")
	v.SetDefault("elastic.index", "simulation-events")
	v.SetDefault("elastic.enabled", false)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.app_name", "Simulation Dashboard")
	v.SetDefault("tracing.log_enabled", true)
	v.SetDefault("tracing.distributed_tracing_enabled", true)

	v.SetDefault("refresh.enabled", true)
	v.SetDefault("refresh.interval", "30s")

	v.SetDefault("panels.bom_concurrency", 8)
	v.SetDefault("panels.notifications_limit", 100)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
