package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Webhooks WebhooksConfig `mapstructure:"webhooks"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type WebhooksConfig struct {
	WorkerCount      int           `mapstructure:"worker_count"`
	DispatchTimeout  time.Duration `mapstructure:"dispatch_timeout"`
	MaxResponseChars int           `mapstructure:"max_response_chars"`
	RetryBatchSize   int           `mapstructure:"retry_batch_size"`
	AttemptDelay     time.Duration `mapstructure:"attempt_delay"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	RetentionDays    int           `mapstructure:"retention_days"`
	UserAgent        string        `mapstructure:"user_agent"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Webhooks.WorkerCount <= 0 {
		c.Webhooks.WorkerCount = 10
	}
	if c.Webhooks.DispatchTimeout <= 0 {
		c.Webhooks.DispatchTimeout = 10 * time.Second
	}
	if c.Webhooks.MaxResponseChars <= 0 {
		c.Webhooks.MaxResponseChars = 1000
	}
	if c.Webhooks.RetryBatchSize <= 0 {
		c.Webhooks.RetryBatchSize = 100
	}
	if c.Webhooks.AttemptDelay <= 0 {
		c.Webhooks.AttemptDelay = 100 * time.Millisecond
	}
	if c.Webhooks.SweepInterval <= 0 {
		c.Webhooks.SweepInterval = time.Minute
	}
	if c.Webhooks.RetentionDays <= 0 {
		c.Webhooks.RetentionDays = 30
	}
	if c.Webhooks.UserAgent == "" {
		c.Webhooks.UserAgent = "eTownz-Grants-Webhooks/1.0"
	}
}
