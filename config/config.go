package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port           string        `mapstructure:"port"`
	GinMode        string        `mapstructure:"gin_mode"`
	LogLevel       string        `mapstructure:"log_level"`
	DBDriver       string        `mapstructure:"db_driver"`
	DBDSN          string        `mapstructure:"db_dsn"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTLHours    int           `mapstructure:"jwt_ttl_hours"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	RedisAddr      string        `mapstructure:"redis_addr"`
	RedisChannel   string        `mapstructure:"redis_channel"`
	KafkaBrokers   []string      `mapstructure:"kafka_brokers"`
	KafkaTopic     string        `mapstructure:"kafka_topic"`
	OutboxEvery    time.Duration `mapstructure:"-"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	PublicBaseURL  string        `mapstructure:"public_base_url"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("gin_mode", "debug")
	v.SetDefault("log_level", "info")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_dsn", "data/wemarket.db")
	v.SetDefault("jwt_secret", "dev-secret-change-me")
	v.SetDefault("jwt_ttl_hours", 24*7)
	v.SetDefault("cors_origins", "*")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_channel", "wemarket:notifications")
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_topic", "wemarket.order-events")
	v.SetDefault("outbox_interval_ms", 500)
	v.SetDefault("rate_limit_rps", 20)
	v.SetDefault("rate_limit_burst", 40)
	v.SetDefault("public_base_url", "http://localhost:5173")
}

// Load reads .env (when present), an optional config.yaml and the process
// environment, in increasing order of precedence.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./deploy/")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitCSV(v.GetString("cors_origins"))
	cfg.KafkaBrokers = splitCSV(v.GetString("kafka_brokers"))
	cfg.OutboxEvery = time.Duration(v.GetInt("outbox_interval_ms")) * time.Millisecond

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or mysql, got %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN must not be empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.JWTTTLHours <= 0 {
		return fmt.Errorf("JWT_TTL_HOURS must be > 0")
	}
	if c.OutboxEvery <= 0 {
		return fmt.Errorf("OUTBOX_INTERVAL_MS must be > 0")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be > 0")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC must not be empty when KAFKA_BROKERS is set")
	}
	return nil
}

func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLHours) * time.Hour
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
