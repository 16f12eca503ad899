package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	SMS        SMSConfig        `yaml:"sms"`
	Redis      RedisConfig      `yaml:"redis"`
	Locks      LockConfig       `yaml:"locks"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	// URL пуст — каждый запрос получает 500, а не падение при старте
	URL          string `yaml:"url"`
	Pool         bool   `yaml:"pool"`
	AutoMigrate  bool   `yaml:"auto_migrate"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type SMSConfig struct {
	APIKey     string        `yaml:"api_key"`
	OwnerPhone string        `yaml:"owner_phone"`
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type LockConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	HTTP APIHTTPConfig `yaml:"http"`
	// OpaqueErrors скрывает текст ошибки в ответах 500
	OpaqueErrors bool               `yaml:"opaque_errors"`
	RateLimit    APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Load reads .env and the optional YAML file at configPath, then applies
// environment overrides and defaults. Missing files are not an error.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var config Config
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			expandedData := []byte(os.ExpandEnv(string(data)))
			if err := yaml.Unmarshal(expandedData, &config); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", configPath, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// FromEnv builds the config the serverless handler uses: no YAML, env only.
func FromEnv() (*Config, error) {
	return Load("")
}

func (c *Config) applyEnv() error {
	overrides := map[string]*string{
		"DATABASE_URL":  &c.Database.URL,
		"SMS_API_KEY":   &c.SMS.APIKey,
		"OWNER_PHONE":   &c.SMS.OwnerPhone,
		"REDIS_ADDRESS": &c.Redis.Address,
		"LOG_LEVEL":     &c.Logging.Level,
	}
	for key, dst := range overrides {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_PORT %q: %w", v, err)
		}
		c.API.HTTP.Port = port
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "salonbook"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.HTTP.Path == "" {
		c.API.HTTP.Path = "/api/bookings"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.SMS.BaseURL == "" {
		c.SMS.BaseURL = "https://sms.ru/sms/send"
	}
	if c.Locks.TTL == 0 {
		c.Locks.TTL = 10 * time.Second
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
}

func (c *Config) Validate() error {
	if c.API.HTTP.Port < 0 || c.API.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.API.HTTP.Port)
	}
	if !strings.HasPrefix(c.API.HTTP.Path, "/") {
		return fmt.Errorf("api.http.path must start with /: %q", c.API.HTTP.Path)
	}
	if c.Locks.Enabled && c.Locks.TTL < 0 {
		return errors.New("locks.ttl must be positive")
	}
	if c.SMS.Timeout < 0 {
		return errors.New("sms.timeout must not be negative")
	}
	if strings.EqualFold(strings.TrimSpace(c.Logging.Output), "file") && c.Logging.FilePath == "" {
		return errors.New("logging.output=file requires logging.file_path")
	}
	return nil
}
