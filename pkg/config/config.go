package config

import "time"

type Config struct {
	App            AppConfig            `mapstructure:"app"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	NATS           NATSConfig           `mapstructure:"nats"`
	NASAPower      NASAPowerConfig      `mapstructure:"nasa_power"`
	Verification   VerificationConfig   `mapstructure:"verification"`
	Ingestion      IngestionConfig      `mapstructure:"ingestion"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Port           int           `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogQueries      bool          `mapstructure:"log_queries"`
}

type RedisConfig struct {
	URL         string        `mapstructure:"url"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	// SatelliteTTL bounds how long an irradiance value is served from the
	// cache before the stored satellite readings are consulted again.
	SatelliteTTL time.Duration `mapstructure:"satellite_ttl"`
}

type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

type NASAPowerConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Parameter string        `mapstructure:"parameter"`
	Community string        `mapstructure:"community"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// VerificationConfig carries the measurement model constants. Services
// receive them explicitly; there is no ambient settings singleton.
type VerificationConfig struct {
	// EmissionFactor is kg CO2 avoided per kWh (regional grid baseline).
	EmissionFactor float64 `mapstructure:"emission_factor"`
	// CorrelationThreshold is the minimum absolute Pearson correlation for a
	// credit to verify.
	CorrelationThreshold float64 `mapstructure:"correlation_threshold"`
	// PanelEfficiency and AreaPerKW define the simplified panel model.
	PanelEfficiency float64 `mapstructure:"panel_efficiency"`
	AreaPerKW       float64 `mapstructure:"area_per_kw"`
	// SafetyMargin widens the theoretical ceiling before the fraud check.
	SafetyMargin float64 `mapstructure:"safety_margin"`
}

type IngestionConfig struct {
	BatchSize int `mapstructure:"batch_size"`
}

type CircuitBreakerConfig struct {
	MaxRequests uint32        `mapstructure:"max_requests"`
	Interval    time.Duration `mapstructure:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MinRequests uint32        `mapstructure:"min_requests"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
