package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServerAddr string
	Debug      bool

	// Database
	DBDriver string // mysql | postgres | sqlite
	DBDSN    string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	// Media
	MediaDir string

	// Cache
	IndexCacheTTL time.Duration

	// Kafka，brokers 为空时 outbox 只写日志
	KafkaBrokers []string
	KafkaTopic   string

	// SMTP
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// Load 读取默认值、可选的 config.yaml 以及 YATUBE_ 前缀的环境变量
func Load(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.debug", false)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "user:password@tcp(127.0.0.1:3306)/yatube?charset=utf8mb4&parseTime=True&loc=Local")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.access_secret", "")
	v.SetDefault("jwt.refresh_secret", "")
	v.SetDefault("jwt.access_ttl", "30m")
	v.SetDefault("jwt.refresh_ttl", "24h")

	v.SetDefault("media.dir", "./media")
	v.SetDefault("cache.index_ttl", "20s")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "yatube-follow-events")

	v.SetDefault("smtp.host", "localhost")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "Yatube <no-reply@yatube.local>")

	v.SetEnvPrefix("YATUBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		ServerAddr:    v.GetString("server.addr"),
		Debug:         v.GetBool("server.debug"),
		DBDriver:      strings.ToLower(v.GetString("database.driver")),
		DBDSN:         v.GetString("database.dsn"),
		RedisAddr:     v.GetString("redis.addr"),
		RedisPassword: v.GetString("redis.password"),
		RedisDB:       v.GetInt("redis.db"),
		AccessSecret:  v.GetString("jwt.access_secret"),
		RefreshSecret: v.GetString("jwt.refresh_secret"),
		AccessTTL:     parseDuration(v.GetString("jwt.access_ttl"), 30*time.Minute),
		RefreshTTL:    parseDuration(v.GetString("jwt.refresh_ttl"), 24*time.Hour),
		MediaDir:      v.GetString("media.dir"),
		IndexCacheTTL: parseDuration(v.GetString("cache.index_ttl"), 20*time.Second),
		KafkaBrokers:  splitList(v.GetStringSlice("kafka.brokers")),
		KafkaTopic:    v.GetString("kafka.topic"),
		SMTPHost:      v.GetString("smtp.host"),
		SMTPPort:      v.GetInt("smtp.port"),
		SMTPUsername:  v.GetString("smtp.username"),
		SMTPPassword:  v.GetString("smtp.password"),
		SMTPFrom:      v.GetString("smtp.from"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.DBDriver)
	}
	if c.AccessSecret == "" || c.RefreshSecret == "" {
		return errors.New("jwt.access_secret and jwt.refresh_secret must be set")
	}
	return nil
}

func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

// splitList 环境变量里的 brokers 是逗号分隔的一个字符串
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
