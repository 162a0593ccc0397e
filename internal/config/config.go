package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Server     ServerConfig     `json:"server"`
	Catalog    CatalogConfig    `json:"catalog"`
	Session    SessionConfig    `json:"session"`
	Redis      RedisConfig      `json:"redis"`
	Database   DatabaseConfig   `json:"database"`
	Storefront StorefrontConfig `json:"storefront"`
	LogLevel   string           `json:"log_level"`
}

type ServerConfig struct {
	Host                string `json:"host"`
	Port                int    `json:"port"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds"`
	IdleTimeoutSeconds  int    `json:"idle_timeout_seconds"`
}

type CatalogConfig struct {
	BaseURL        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type SessionConfig struct {
	Backend              string `json:"backend"`
	CookieName           string `json:"cookie_name"`
	SecureCookie         bool   `json:"secure_cookie"`
	TTLSeconds           int    `json:"ttl_seconds"`
	SweepIntervalSeconds int    `json:"sweep_interval_seconds"`
}

type RedisConfig struct {
	Host              string `json:"host"`
	Port              int    `json:"port"`
	Password          string `json:"password"`
	DB                int    `json:"db"`
	LockTimeoutMillis int    `json:"lock_timeout_ms"`
	LockRetryMillis   int    `json:"lock_retry_ms"`
	LockRetryAttempts int    `json:"lock_retry_attempts"`
}

type DatabaseConfig struct {
	Driver         string `json:"driver"`
	DSN            string `json:"dsn"`
	Host           string `json:"host"`
	Port           int    `json:"port"`
	User           string `json:"user"`
	Password       string `json:"password"`
	DBName         string `json:"dbname"`
	SSLMode        string `json:"sslmode"`
	MigrationsPath string `json:"migrations_path"`
}

type StorefrontConfig struct {
	RelatedCount int `json:"related_count"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                "",
			Port:                3000,
			ReadTimeoutSeconds:  10,
			WriteTimeoutSeconds: 30,
			IdleTimeoutSeconds:  120,
		},
		Catalog: CatalogConfig{
			BaseURL:        "https://fakestoreapi.com",
			TimeoutSeconds: 10,
		},
		Session: SessionConfig{
			Backend:              BackendMemory,
			CookieName:           "storefront.sid",
			TTLSeconds:           24 * 60 * 60,
			SweepIntervalSeconds: 5 * 60,
		},
		Redis: RedisConfig{
			Host:              "localhost",
			Port:              6379,
			LockTimeoutMillis: 3000,
			LockRetryMillis:   25,
			LockRetryAttempts: 40,
		},
		Database: DatabaseConfig{
			Driver:         "postgres",
			Host:           "localhost",
			Port:           5432,
			User:           "storefront",
			DBName:         "storefront",
			SSLMode:        "disable",
			MigrationsPath: "migrations",
		},
		Storefront: StorefrontConfig{
			RelatedCount: 12,
		},
		LogLevel: "info",
	}
}

// LoadConfig reads the JSON file at path over the defaults. A missing file is
// not an error. Environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		decoder := json.NewDecoder(file)
		if err := decoder.Decode(config); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("CATALOG_BASE_URL"); v != "" {
		c.Catalog.BaseURL = v
	}
	if v := os.Getenv("SESSION_BACKEND"); v != "" {
		c.Session.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Host, c.Redis.Port = splitHostPort(v, c.Redis.Port)
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func splitHostPort(addr string, defPort int) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, defPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, defPort
	}
	return host, port
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Catalog.BaseURL == "" {
		return errors.New("catalog base_url is required")
	}
	switch c.Session.Backend {
	case BackendMemory, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if c.Session.TTLSeconds <= 0 {
		return errors.New("session ttl_seconds must be positive")
	}
	if c.Session.CookieName == "" {
		return errors.New("session cookie_name is required")
	}
	if c.Storefront.RelatedCount < 0 {
		return errors.New("storefront related_count must not be negative")
	}
	if c.Session.Backend == BackendPostgres {
		switch c.Database.Driver {
		case "postgres", "pgx":
		default:
			return fmt.Errorf("unknown database driver %q", c.Database.Driver)
		}
	}
	return nil
}

func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func (c *CatalogConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

func (c *SessionConfig) SweepInterval() time.Duration {
	if c.SweepIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c *RedisConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func (c *RedisConfig) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMillis) * time.Millisecond
}

func (c *RedisConfig) LockRetryDelay() time.Duration {
	return time.Duration(c.LockRetryMillis) * time.Millisecond
}

func (c *DatabaseConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}
