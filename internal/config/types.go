package config

import "time"

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type GRPCConfig struct {
	EnableReflection      bool `mapstructure:"enable_reflection"`
	MaxReceiveMessageSize int  `mapstructure:"max_receive_message_size"`
	MaxSendMessageSize    int  `mapstructure:"max_send_message_size"`
}

// HTTPConfig is the ops listener serving health and metrics.
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
}

type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	TokenExpiration time.Duration `mapstructure:"token_expiration"`
}

type DatabaseConfig struct {
	// Driver is either "sqlite" or "postgres"
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
}

type LoginConfig struct {
	NameChangeCheck bool          `mapstructure:"name_change_check"`
	AutoRegister    bool          `mapstructure:"auto_register"`
	FloodgateBypass bool          `mapstructure:"floodgate_bypass"`
	BypassCIDRs     []string      `mapstructure:"bypass_cidrs"`
	FlowTimeout     time.Duration `mapstructure:"flow_timeout"`
}

type RateLimitConfig struct {
	// Scope is "global" or "ip"
	Scope    string        `mapstructure:"scope"`
	Capacity int           `mapstructure:"capacity"`
	Period   time.Duration `mapstructure:"period"`
	MaxKeys  int           `mapstructure:"max_keys"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	KeyPrefix    string `mapstructure:"key_prefix"`
}

type PendingConfig struct {
	// Backend is "memory" or "redis"
	Backend  string        `mapstructure:"backend"`
	TTL      time.Duration `mapstructure:"ttl"`
	Capacity int           `mapstructure:"capacity"`
	Redis    RedisConfig   `mapstructure:"redis"`
}

type ResolverConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SchedulerConfig struct {
	MaxConcurrent int64 `mapstructure:"max_concurrent"`
}

type BridgeConfig struct {
	DecisionTimeout time.Duration `mapstructure:"decision_timeout"`
}

type AppConfig struct {
	Server    ServerConfig    `mapstructure:"server"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Login     LoginConfig     `mapstructure:"login"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Pending   PendingConfig   `mapstructure:"pending"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Bridge    BridgeConfig    `mapstructure:"bridge"`
}
