package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Webhooks   WebhooksConfig   `mapstructure:"webhooks"`
	GitHubSync GitHubSyncConfig `mapstructure:"github_sync"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Backup     BackupConfig     `mapstructure:"backup"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
	// Timezone used for day/hour bucketing in statistics and on-this-day.
	Timezone string `mapstructure:"timezone"`
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigin      string        `mapstructure:"cors_origin"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	// Driver is postgres or sqlite.
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type AuthConfig struct {
	// JWTSecret enables the bearer guard on write routes when non-empty.
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	Issuer    string        `mapstructure:"issuer"`
}

type WebhooksConfig struct {
	GitHubSecret string  `mapstructure:"github_secret"`
	GitLabSecret string  `mapstructure:"gitlab_secret"`
	RateLimit    float64 `mapstructure:"rate_limit"`
	Burst        int     `mapstructure:"burst"`
	MaxBodyBytes int64   `mapstructure:"max_body_bytes"`
}

type GitHubSyncConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Schedule string        `mapstructure:"schedule"`
	Repo     string        `mapstructure:"repo"`
	Branch   string        `mapstructure:"branch"`
	Token    string        `mapstructure:"token"`
	PerPage  int           `mapstructure:"per_page"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type NotifyConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type BackupConfig struct {
	Dir string `mapstructure:"dir"`
	// Schedule runs a scheduled backup when Enabled.
	Enabled         bool   `mapstructure:"enabled"`
	Schedule        string `mapstructure:"schedule"`
	WebhookLogLimit int    `mapstructure:"webhook_log_limit"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CHRONICLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	// Well-known variable names shared with the webhook senders' docs.
	_ = v.BindEnv("webhooks.github_secret", "CHRONICLE_WEBHOOKS_GITHUB_SECRET", "GITHUB_WEBHOOK_SECRET")
	_ = v.BindEnv("webhooks.gitlab_secret", "CHRONICLE_WEBHOOKS_GITLAB_SECRET", "GITLAB_WEBHOOK_SECRET")
	_ = v.BindEnv("github_sync.token", "CHRONICLE_GITHUB_SYNC_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("github_sync.repo", "CHRONICLE_GITHUB_SYNC_REPO", "GITHUB_REPO")
	_ = v.BindEnv("backup.dir", "CHRONICLE_BACKUP_DIR", "BACKUP_DIR")

	v.SetDefault("app.env", "dev")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors_origin", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "chronicle.db")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "720h")
	v.SetDefault("auth.issuer", "homelab-chronicle")
	v.SetDefault("webhooks.github_secret", "")
	v.SetDefault("webhooks.gitlab_secret", "")
	v.SetDefault("webhooks.rate_limit", 1.0)
	v.SetDefault("webhooks.burst", 10)
	v.SetDefault("webhooks.max_body_bytes", 1<<20)
	v.SetDefault("github_sync.enabled", false)
	v.SetDefault("github_sync.schedule", "0 0 * * * *")
	v.SetDefault("github_sync.repo", "herms14/homelab-infrastructure")
	v.SetDefault("github_sync.branch", "main")
	v.SetDefault("github_sync.token", "")
	v.SetDefault("github_sync.per_page", 30)
	v.SetDefault("github_sync.timeout", "15s")
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.timeout", "5s")
	v.SetDefault("backup.dir", "data/backups")
	v.SetDefault("backup.enabled", false)
	v.SetDefault("backup.schedule", "0 0 3 * * *")
	v.SetDefault("backup.webhook_log_limit", 1000)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Location resolves the configured timezone, falling back to UTC.
func (c AppConfig) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
