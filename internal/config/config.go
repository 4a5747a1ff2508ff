package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            int      `yaml:"port"`
		AllowedOrigins  []string `yaml:"allowedOrigins"`
		RateLimit       int      `yaml:"rateLimit"`       // burst per user
		RateLimitRefill int      `yaml:"rateLimitRefill"` // tokens per second
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
		Migrate  bool   `yaml:"migrate"` // apply schema on start
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	OpenAI struct {
		APIKey  string        `yaml:"apiKey"`
		BaseURL string        `yaml:"baseURL"`
		Model   string        `yaml:"model"`
		Timeout time.Duration `yaml:"timeout"` // must stay below redis.lockTTL
	} `yaml:"openai"`

	Auth struct {
		JWTSecret string `yaml:"jwtSecret"`
	} `yaml:"auth"`

	Redis struct {
		Addr     string        `yaml:"addr"` // empty = in-process lock
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		LockTTL  time.Duration `yaml:"lockTTL"`
	} `yaml:"redis"`

	Quota struct {
		FreeMonthly int `yaml:"freeMonthly"`
	} `yaml:"quota"`

	Log struct {
		Mode string `yaml:"mode"` // prod | dev | test
	} `yaml:"log"`
}

// Load baca file config.yaml
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, os.Getenv)
}

// Parse decodes YAML, applies env overrides for secrets and fills defaults.
func Parse(data []byte, getenv func(string) string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv(getenv)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	override(&c.Auth.JWTSecret, "AUTH_JWT_SECRET")
	override(&c.Database.Password, "DATABASE_PASSWORD")
	override(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	override(&c.Redis.Password, "REDIS_PASSWORD")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 30
	}
	if c.Server.RateLimitRefill == 0 {
		c.Server.RateLimitRefill = 1
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.OpenAI.Timeout == 0 {
		c.OpenAI.Timeout = 90 * time.Second
	}
	if c.Redis.LockTTL == 0 {
		c.Redis.LockTTL = 2 * time.Minute
	}
	if c.Quota.FreeMonthly == 0 {
		c.Quota.FreeMonthly = 1
	}
	if c.Log.Mode == "" {
		c.Log.Mode = "prod"
	}
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("database.driver must be mysql or postgres, got %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwtSecret is required (or AUTH_JWT_SECRET)")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.apiKey is required (or OPENAI_API_KEY)")
	}
	if c.Redis.Addr != "" && c.Redis.LockTTL <= c.OpenAI.Timeout {
		return fmt.Errorf("redis.lockTTL (%s) must be longer than openai.timeout (%s)", c.Redis.LockTTL, c.OpenAI.Timeout)
	}
	if c.Quota.FreeMonthly < 0 {
		return fmt.Errorf("quota.freeMonthly must not be negative")
	}
	return nil
}

// MySQLDSN builds a go-sql-driver DSN.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq URL.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.Database.Driver == "postgres" {
		return c.PostgresDSN()
	}
	return c.MySQLDSN()
}
