package server

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Smart123s/FastLogin/internal/config"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"
)

const defaultConfigPath = "./config/server"

func LoadConfig() (*config.AppConfig, error) {
	return LoadConfigFrom(defaultConfigPath)
}

// LoadConfigFrom reads config.toml from dir. A missing file falls back to the defaults,
// FASTLOGIN_* environment variables override both.
func LoadConfigFrom(dir string) (*config.AppConfig, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = EnvDevelopment
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("FASTLOGIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config config.AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Load environment-specific configurations
	if envSettings := v.GetStringMap(fmt.Sprintf("grpc.%s", env)); len(envSettings) > 0 {
		if err := v.UnmarshalKey(fmt.Sprintf("grpc.%s", env), &config.GRPC); err != nil {
			return nil, fmt.Errorf("error unmarshaling env config: %w", err)
		}
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "50051")

	v.SetDefault("grpc.enable_reflection", false)
	v.SetDefault("grpc.max_receive_message_size", 1<<20)
	v.SetDefault("grpc.max_send_message_size", 1<<20)

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.host", "127.0.0.1")
	v.SetDefault("http.port", "9090")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_expiration", 30*24*time.Hour)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "FastLogin.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("login.name_change_check", false)
	v.SetDefault("login.auto_register", false)
	v.SetDefault("login.floodgate_bypass", false)
	v.SetDefault("login.bypass_cidrs", []string{})
	v.SetDefault("login.flow_timeout", 30*time.Second)

	// identity service allows 600 name lookups per 10 minutes per address
	v.SetDefault("ratelimit.scope", "global")
	v.SetDefault("ratelimit.capacity", 600)
	v.SetDefault("ratelimit.period", 10*time.Minute)
	v.SetDefault("ratelimit.max_keys", 10000)

	v.SetDefault("pending.backend", "memory")
	v.SetDefault("pending.ttl", 5*time.Minute)
	v.SetDefault("pending.capacity", 0)
	v.SetDefault("pending.redis.url", "redis://localhost:6379")
	v.SetDefault("pending.redis.pool_size", 10)
	v.SetDefault("pending.redis.min_idle_conns", 2)
	v.SetDefault("pending.redis.key_prefix", "fastlogin")

	v.SetDefault("resolver.base_url", "https://api.mojang.com")
	v.SetDefault("resolver.timeout", 5*time.Second)

	v.SetDefault("scheduler.max_concurrent", 64)

	v.SetDefault("bridge.decision_timeout", 20*time.Second)
}

func validate(cfg *config.AppConfig) error {
	switch cfg.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	switch cfg.Pending.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported pending backend: %s", cfg.Pending.Backend)
	}

	switch cfg.RateLimit.Scope {
	case "global", "ip":
	default:
		return fmt.Errorf("unsupported rate limit scope: %s", cfg.RateLimit.Scope)
	}

	if cfg.RateLimit.Capacity <= 0 || cfg.RateLimit.Period <= 0 {
		return fmt.Errorf("rate limit capacity and period must be positive")
	}

	return nil
}
