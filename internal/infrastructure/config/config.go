package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. BACKOFFICE_DATABASE_PASSWORD
const EnvPrefix = "BACKOFFICE"

// Config is the full back-office configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Report    ReportConfig    `mapstructure:"report"`
	Swagger   SwaggerConfig   `mapstructure:"swagger"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// IsProduction reports whether the stricter production checks apply
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

// DSN renders a postgres URL; credentials are escaped
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// CacheConfig selects the stats cache backend. With FallbackToMemory an
// unreachable Redis at startup degrades to the in-process cache instead of
// failing boot.
type CacheConfig struct {
	Backend            string        `mapstructure:"backend"` // redis or memory
	FallbackToMemory   bool          `mapstructure:"fallback_to_memory"`
	CleanupInterval    time.Duration `mapstructure:"cleanup_interval"`
	BreakerMaxFailures uint32        `mapstructure:"breaker_max_failures"`
	BreakerTimeout     time.Duration `mapstructure:"breaker_timeout"`
}

// JWTConfig verifies bearer tokens minted by the identity provider. This
// service never issues tokens.
type JWTConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Secret  string `mapstructure:"secret"`
	Issuer  string `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`
	RateLimitRPM     int           `mapstructure:"rate_limit_rpm"` // per client; 0 disables
	MaxBodyBytes     int64         `mapstructure:"max_body_bytes"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
}

// ReportConfig tunes the financial aggregator
type ReportConfig struct {
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	SystemQueryTimeout time.Duration `mapstructure:"system_query_timeout"` // bound on all-tenant aggregations
	TopEntitiesLimit   int           `mapstructure:"top_entities_limit"`
	TrendMonths        int           `mapstructure:"trend_months"`
}

type SwaggerConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	RequireAuth bool     `mapstructure:"require_auth"`
	AllowedIPs  []string `mapstructure:"allowed_ips"` // empty allows every client
}

// TelemetryConfig covers OTLP traces, metrics and logs plus Pyroscope
type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"`
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
	MetricsEnabled    bool          `mapstructure:"metrics_enabled"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
	LogsEnabled       bool          `mapstructure:"logs_enabled"`
	ProfilingEnabled  bool          `mapstructure:"profiling_enabled"`
	PyroscopeEndpoint string        `mapstructure:"pyroscope_endpoint"`
}

// defaults lists every key viper should know. A key missing here cannot be
// overridden from the environment, since AutomaticEnv only binds known keys
// during Unmarshal.
var defaults = map[string]any{
	"app.name": "backoffice",
	"app.env":  "development",
	"app.port": "8080",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "backoffice",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"cache.backend":              "memory",
	"cache.fallback_to_memory":   false,
	"cache.cleanup_interval":     time.Minute,
	"cache.breaker_max_failures": uint32(5),
	"cache.breaker_timeout":      30 * time.Second,

	"jwt.enabled": false,
	"jwt.secret":  "",
	"jwt.issuer":  "backoffice",

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":       15 * time.Second,
	"http.write_timeout":      60 * time.Second,
	"http.idle_timeout":       60 * time.Second,
	"http.max_header_bytes":   1 << 20,
	"http.cors_allow_origins": []string{}, // no cross-origin access until configured
	"http.cors_allow_methods": []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
	"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID", "X-Tenant-ID"},
	"http.trusted_proxies":    []string{},
	"http.rate_limit_rpm":     0,
	"http.max_body_bytes":     int64(1 << 20),
	"http.request_timeout":    45 * time.Second,

	"report.cache_ttl":            5 * time.Minute,
	"report.system_query_timeout": 30 * time.Second,
	"report.top_entities_limit":   10,
	"report.trend_months":         12,

	"swagger.enabled":      false,
	"swagger.require_auth": false,
	"swagger.allowed_ips":  []string{},

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "backoffice",
	"telemetry.insecure":                false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
	"telemetry.metrics_enabled":         false,
	"telemetry.metrics_interval":        30 * time.Second,
	"telemetry.logs_enabled":            false,
	"telemetry.profiling_enabled":       false,
	"telemetry.pyroscope_endpoint":      "http://localhost:4040",
}

// Load reads config.toml from the working directory or /app, then applies
// BACKOFFICE_* environment overrides on top. A missing file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate reports every problem at once
func (c *Config) validate() error {
	var errs []error
	fail := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if c.Database.MaxOpenConns <= 0 {
		fail("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		fail("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		fail("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		fail("cache.backend must be 'memory' or 'redis', got %q", c.Cache.Backend)
	}
	if c.Report.CacheTTL < 0 {
		fail("report.cache_ttl cannot be negative")
	}
	if c.Report.SystemQueryTimeout < 0 {
		fail("report.system_query_timeout cannot be negative")
	}
	if c.Report.TopEntitiesLimit < 1 || c.Report.TopEntitiesLimit > 100 {
		fail("report.top_entities_limit must be between 1 and 100, got %d", c.Report.TopEntitiesLimit)
	}
	if c.JWT.Enabled && c.JWT.Secret == "" {
		fail("jwt.secret is required when jwt.enabled is true")
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		fail("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.App.IsProduction() {
		errs = append(errs, c.validateProduction()...)
	}
	return errors.Join(errs...)
}

func (c *Config) validateProduction() []error {
	var errs []error
	if !c.JWT.Enabled {
		errs = append(errs, errors.New("jwt.enabled must be true in production"))
	}
	if len(c.JWT.Secret) < 32 {
		errs = append(errs, errors.New("jwt.secret must be at least 32 characters in production"))
	}
	if c.Database.Password == "" {
		errs = append(errs, errors.New("database.password is required in production"))
	}
	if c.Database.SSLMode == "disable" {
		errs = append(errs, errors.New("database.sslmode cannot be 'disable' in production"))
	}
	for _, origin := range c.HTTP.CORSAllowOrigins {
		if origin == "*" {
			errs = append(errs, errors.New("http.cors_allow_origins cannot be '*' in production"))
			break
		}
	}
	if c.Swagger.Enabled && !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
		errs = append(errs, errors.New("swagger endpoint must be disabled, require authentication, or have IP restriction in production"))
	}
	return errs
}
