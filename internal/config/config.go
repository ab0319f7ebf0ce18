package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type LogConfig struct {
	Level     string `env:"LOG_LEVEL" envDefault:"info"`
	Format    string `env:"LOG_FORMAT" envDefault:"text"`
	Component string `env:"LOG_COMPONENT" envDefault:"grpc_server"`
	Source    bool   `env:"LOG_SOURCE"`
}

type DBConfig struct {
	// Driver selects the gorm dialect: "mysql" or "sqlite".
	Driver   string `env:"DB_DRIVER" envDefault:"mysql"`
	DSN      string `env:"MYSQL_DSN"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"3306"`
	User     string `env:"DB_USER" envDefault:"root"`
	Password string `env:"DB_PASSWORD" envDefault:"root"`
	Name     string `env:"DB_NAME" envDefault:"ravematch"`
	// SQLitePath is used when Driver is "sqlite".
	SQLitePath string `env:"SQLITE_PATH" envDefault:"ravematch.db"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type GRPCConfig struct {
	Host string `env:"GRPC_HOST" envDefault:"127.0.0.1"`
	Port string `env:"GRPC_PORT" envDefault:"50051"`
}

type HTTPConfig struct {
	Addr           string   `env:"HTTP_ADDR" envDefault:"127.0.0.1:8080"`
	AllowedOrigins []string `env:"HTTP_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

type AuthConfig struct {
	// JWTSecret enables bearer-token auth when non-empty.
	JWTSecret string `env:"AUTH_JWT_SECRET"`
	Issuer    string `env:"AUTH_JWT_ISSUER"`
}

// QuotaConfig holds the swipe limits. Zero values fall back to the
// package defaults in internal/swipe.
type QuotaConfig struct {
	TimeZone             string        `env:"QUOTA_TIMEZONE" envDefault:"UTC"`
	DefaultDailySwipes   int           `env:"QUOTA_DEFAULT_DAILY_SWIPES" envDefault:"15"`
	NewProfileSwipes     int           `env:"QUOTA_NEW_PROFILE_DAILY_SWIPES" envDefault:"20"`
	PremiumDailySwipes   int           `env:"QUOTA_PREMIUM_DAILY_SWIPES" envDefault:"9999"`
	WeeklySuperlikes     int           `env:"QUOTA_WEEKLY_SUPERLIKES" envDefault:"5"`
	CandidateLimit       int           `env:"QUOTA_CANDIDATE_LIMIT" envDefault:"50"`
	CandidateAgeDistance int           `env:"QUOTA_CANDIDATE_AGE_DISTANCE" envDefault:"3"`
	BoostDuration        time.Duration `env:"QUOTA_BOOST_DURATION" envDefault:"5m"`
}

type AppConfig struct {
	ENV string `env:"APP_ENV" envDefault:"development"`
}

type Config struct {
	Log   LogConfig
	DB    DBConfig
	Redis RedisConfig
	GRPC  GRPCConfig
	HTTP  HTTPConfig
	Auth  AuthConfig
	Quota QuotaConfig
	App   AppConfig
}

// New loads the configuration from the environment. Parse failures are
// reported and the defaults are kept.
func New() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Printf("config: %v, falling back to defaults\n", err)
		cfg = &Config{}
		_ = env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}})
		cfg.DB.DSN = buildMySQLDSN(cfg.DB)
	}
	return cfg
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DB.DSN == "" {
		cfg.DB.DSN = buildMySQLDSN(cfg.DB)
	}
	return cfg, nil
}

func buildMySQLDSN(c DBConfig) string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Name,
	)
}
