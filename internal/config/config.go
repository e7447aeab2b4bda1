package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	DB      DBConfig      `yaml:"db"`
	Store   StoreConfig   `yaml:"store"`
	Session SessionConfig `yaml:"session"`
	Share   ShareConfig   `yaml:"share"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig selects the shared-store backend: "memory" for single-node
// deployments, "redis" for anything multi-instance.
type StoreConfig struct {
	Backend       string `yaml:"backend"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

type SessionConfig struct {
	// PreserveJoinedAt keeps a collaborator's original join time across
	// rejoins instead of overwriting it.
	PreserveJoinedAt bool `yaml:"preserve_joined_at"`
}

type ShareConfig struct {
	BaseURL string `yaml:"base_url"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "retroloop.db",
		},
		Store: StoreConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
		},
		Share: ShareConfig{
			BaseURL: "http://localhost:8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if path := os.Getenv("RETROLOOP_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("RETROLOOP_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("RETROLOOP_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETROLOOP_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("RETROLOOP_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if backend := os.Getenv("RETROLOOP_STORE_BACKEND"); backend != "" {
		cfg.Store.Backend = backend
	}
	if addr := os.Getenv("RETROLOOP_REDIS_ADDR"); addr != "" {
		cfg.Store.RedisAddr = addr
	}
	if password := os.Getenv("RETROLOOP_REDIS_PASSWORD"); password != "" {
		cfg.Store.RedisPassword = password
	}
	if preserve := os.Getenv("RETROLOOP_PRESERVE_JOINED_AT"); preserve != "" {
		value, err := strconv.ParseBool(preserve)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETROLOOP_PRESERVE_JOINED_AT: %w", err)
		}
		cfg.Session.PreserveJoinedAt = value
	}
	if baseURL := os.Getenv("RETROLOOP_SHARE_BASE_URL"); baseURL != "" {
		cfg.Share.BaseURL = baseURL
	}
	if level := os.Getenv("RETROLOOP_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if cfg.Store.Backend != "memory" && cfg.Store.Backend != "redis" {
		return Config{}, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
