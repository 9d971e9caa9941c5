// Package config loads the service configuration from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/deskpilot/deskpilot/internal/util"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	StorageFile     = "file"
	StorageDatabase = "database"
)

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "config.yaml"

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"`
}

// StorageConfig selects the roster persistence backend.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RemoteConfig describes the booking service.
type RemoteConfig struct {
	BaseURL        string        `yaml:"base_url"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	TimeZone       string        `yaml:"time_zone"`
	LocatorNode    int           `yaml:"locator_node"`
}

// ScheduleConfig holds the cron cadences.
type ScheduleConfig struct {
	BookAndCheckIn string `yaml:"book_and_check_in"`
	AuthCheck      string `yaml:"auth_check"`
	Location       string `yaml:"location"`
}

// RedisConfig enables the cross-instance cadence lock when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

// LogConfig mirrors logging.Options.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	BufferSize int    `yaml:"buffer_size"`
}

// AppConfig is the full service configuration.
type AppConfig struct {
	ConfigPath string         `yaml:"-"`
	Server     ServerConfig   `yaml:"server"`
	DataPath   string         `yaml:"data_path"`
	Storage    StorageConfig  `yaml:"storage"`
	Remote     RemoteConfig   `yaml:"remote"`
	Schedule   ScheduleConfig `yaml:"schedule"`
	Redis      RedisConfig    `yaml:"redis"`
	Log        LogConfig      `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() AppConfig {
	return AppConfig{
		Server:   ServerConfig{Port: 8080, Mode: "release"},
		DataPath: "./",
		Storage:  StorageConfig{Driver: StorageFile},
		Remote: RemoteConfig{
			BaseURL:        "https://apacbackend.tangoreserve.com",
			MaxRetries:     3,
			RetryDelay:     time.Second,
			RequestTimeout: 30 * time.Second,
			TimeZone:       "Asia/Ho_Chi_Minh",
			LocatorNode:    13,
		},
		Schedule: ScheduleConfig{
			BookAndCheckIn: "0 0 * * 1-5",
			AuthCheck:      "0 1-23 * * *",
			Location:       "Asia/Ho_Chi_Minh",
		},
		Redis: RedisConfig{LockTTL: 30 * time.Minute},
		Log:   LogConfig{Level: "info", Format: "text", MaxSizeMB: 50, MaxBackups: 5, MaxAgeDays: 14, BufferSize: 2000},
	}
}

// Load reads path (optional when it does not exist), applies .env and environment overrides, and validates.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		path = DefaultConfigPath
	}
	cfg.ConfigPath = path

	if errEnv := loadDotEnv(); errEnv != nil {
		return AppConfig{}, errEnv
	}

	raw, errRead := os.ReadFile(path)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(raw, &cfg); errUnmarshal != nil {
			return AppConfig{}, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
		log.Debugf("config: %s not found, using defaults", path)
	default:
		return AppConfig{}, fmt.Errorf("config: read %s: %w", path, errRead)
	}

	if errOverride := applyEnv(&cfg); errOverride != nil {
		return AppConfig{}, errOverride
	}
	if errValidate := cfg.Validate(); errValidate != nil {
		return AppConfig{}, errValidate
	}
	return cfg, nil
}

func loadDotEnv() error {
	if _, errStat := os.Stat(".env"); errStat != nil {
		return nil
	}
	if errLoad := godotenv.Load(".env"); errLoad != nil {
		return fmt.Errorf("config: load .env: %w", errLoad)
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	if v := env("PORT"); v != "" {
		port, errAtoi := strconv.Atoi(v)
		if errAtoi != nil {
			return fmt.Errorf("config: invalid PORT %q", v)
		}
		cfg.Server.Port = port
	}
	if v := env("APP_ENV"); v != "" {
		cfg.Server.Mode = v
	}
	if v := util.DataPath(); v != "" {
		cfg.DataPath = v
	}
	if v := env("DATABASE_DSN"); v != "" {
		cfg.Storage.DSN = v
		if env("STORAGE_DRIVER") == "" {
			cfg.Storage.Driver = StorageDatabase
		}
	}
	if v := env("STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := env("REMOTE_BASE_URL"); v != "" {
		cfg.Remote.BaseURL = v
	}
	if v := env("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := env("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// Validate reports the first invalid setting.
func (c AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	if c.Remote.BaseURL == "" {
		return errors.New("config: remote.base_url is required")
	}
	if c.Remote.MaxRetries < 1 {
		return fmt.Errorf("config: remote.max_retries must be at least 1, got %d", c.Remote.MaxRetries)
	}
	switch c.Storage.Driver {
	case StorageFile:
	case StorageDatabase:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return errors.New("config: storage.dsn is required for the database driver")
		}
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	if _, errLoc := c.RemoteLocation(); errLoc != nil {
		return errLoc
	}
	if _, errLoc := c.ScheduleLocation(); errLoc != nil {
		return errLoc
	}
	return nil
}

// RemoteLocation is the booking service time zone.
func (c AppConfig) RemoteLocation() (*time.Location, error) {
	return loadLocation("remote.time_zone", c.Remote.TimeZone)
}

// ScheduleLocation is the time zone cadences fire in.
func (c AppConfig) ScheduleLocation() (*time.Location, error) {
	return loadLocation("schedule.location", c.Schedule.Location)
}

func loadLocation(key, name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		return time.Local, nil
	}
	loc, errLoad := time.LoadLocation(name)
	if errLoad != nil {
		return nil, fmt.Errorf("config: invalid %s %q: %w", key, name, errLoad)
	}
	return loc, nil
}
