package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("DMRV")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Allow common env vars without DMRV_ prefix for Docker/VM deploys
	viper.BindEnv("http.port", "HTTP_PORT", "DMRV_HTTP_PORT")
	viper.BindEnv("database.url", "DATABASE_URL", "DMRV_DATABASE_URL")
	viper.BindEnv("redis.url", "REDIS_URL", "DMRV_REDIS_URL")
	viper.BindEnv("nats.url", "NATS_URL", "DMRV_NATS_URL")
	viper.BindEnv("nasa_power.base_url", "NASA_POWER_BASE_URL")
	viper.BindEnv("app.environment", "DMRV_ENVIRONMENT")
	viper.BindEnv("logging.level", "LOG_LEVEL")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// no config file: env vars and defaults only
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("app.name", "dmrv-engine")
	viper.SetDefault("app.version", "0.1.0")
	viper.SetDefault("app.environment", "development")

	viper.SetDefault("http.port", 8080)
	viper.SetDefault("http.read_timeout", 15*time.Second)
	viper.SetDefault("http.write_timeout", 15*time.Second)
	viper.SetDefault("http.idle_timeout", 60*time.Second)

	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 10)
	viper.SetDefault("database.conn_max_lifetime", time.Hour)
	viper.SetDefault("database.auto_migrate", true)

	viper.SetDefault("redis.dial_timeout", 5*time.Second)
	viper.SetDefault("redis.satellite_ttl", 24*time.Hour)

	viper.SetDefault("nats.max_reconnects", 10)
	viper.SetDefault("nats.reconnect_wait", 2*time.Second)

	viper.SetDefault("nasa_power.base_url", "https://power.larc.nasa.gov/api/temporal/daily/point")
	viper.SetDefault("nasa_power.parameter", "ALLSKY_SFC_SW_DWN")
	viper.SetDefault("nasa_power.community", "RE")
	viper.SetDefault("nasa_power.timeout", 30*time.Second)

	// Nigeria baseline: petrol/diesel generator displacement
	viper.SetDefault("verification.emission_factor", 1.2)
	viper.SetDefault("verification.correlation_threshold", 0.90)
	viper.SetDefault("verification.panel_efficiency", 0.20)
	viper.SetDefault("verification.area_per_kw", 5.0)
	viper.SetDefault("verification.safety_margin", 1.2)

	viper.SetDefault("ingestion.batch_size", 1000)

	viper.SetDefault("circuit_breaker.max_requests", 3)
	viper.SetDefault("circuit_breaker.interval", time.Minute)
	viper.SetDefault("circuit_breaker.timeout", 30*time.Second)
	viper.SetDefault("circuit_breaker.min_requests", 5)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}
