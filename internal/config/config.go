package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	dotenv "github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
	Endpoints EndpointsConfig `yaml:"endpoints"`
	LogLevel  string          `yaml:"log_level"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	Path          string `yaml:"path"`
	MigrationsDir string `yaml:"migrations_dir"`
}

type CacheConfig struct {
	Path         string        `yaml:"path"`
	ProfileEvict time.Duration `yaml:"profile_evict"`
	ContestEvict time.Duration `yaml:"contest_evict"`
	WarmContests bool          `yaml:"warm_contests"`
}

type TimeoutConfig struct {
	Profile time.Duration `yaml:"profile"`
	Contest time.Duration `yaml:"contest"`
}

// EndpointsConfig holds the base URLs of every upstream, so tests and
// mirrors can point the adapters elsewhere.
type EndpointsConfig struct {
	CodeforcesAPI string `yaml:"codeforces_api"`
	CodeforcesWeb string `yaml:"codeforces_web"`
	AtCoder       string `yaml:"atcoder"`
	CodeChefAPI   string `yaml:"codechef_api"`
	CodeChefWeb   string `yaml:"codechef_web"`
	LeetCode      string `yaml:"leetcode"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{Port: 7071},
		Database: DatabaseConfig{
			Path:          "./data.sqlite3",
			MigrationsDir: "./migrations",
		},
		Cache: CacheConfig{
			Path:         "./cache.sqlite3",
			ProfileEvict: time.Hour,
			ContestEvict: 30 * time.Minute,
			WarmContests: true,
		},
		Timeouts: TimeoutConfig{
			Profile: 10 * time.Second,
			Contest: 8 * time.Second,
		},
		Endpoints: DefaultEndpoints(),
		LogLevel:  "info",
	}
}

func DefaultEndpoints() EndpointsConfig {
	return EndpointsConfig{
		CodeforcesAPI: "https://codeforces.com/api",
		CodeforcesWeb: "https://codeforces.com",
		AtCoder:       "https://atcoder.jp",
		CodeChefAPI:   "https://codechef-api.vercel.app",
		CodeChefWeb:   "https://www.codechef.com",
		LeetCode:      "https://leetcode.com",
	}
}

// Load reads .env, then the optional YAML file at path, then environment
// overrides. An empty path falls back to CPSTATS_CONFIG.
func Load(path string) (Config, error) {
	warnings := []string{}
	if err := dotenv.Load(); err != nil {
		warnings = append(warnings, "failed to load .env")
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("CPSTATS_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.overrideWithEnv()

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	if len(warnings) > 0 {
		return cfg, &WarningError{Warnings: warnings}
	}
	return cfg, nil
}

// WarningError is returned together with a usable Config when loading
// succeeded with non-fatal problems.
type WarningError struct {
	Warnings []string
}

func (w *WarningError) Error() string {
	return fmt.Sprintf("config warnings: %v", w.Warnings)
}

func IsWarning(err error) bool {
	var w *WarningError
	return errors.As(err, &w)
}

func (c *Config) overrideWithEnv() {
	if val := os.Getenv("SERVER_PORT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.Server.Port = i
		}
	}
	if val := os.Getenv("DATABASE_PATH"); val != "" {
		c.Database.Path = val
	}
	if val := os.Getenv("MIGRATIONS_DIR"); val != "" {
		c.Database.MigrationsDir = val
	}
	if val := os.Getenv("CACHE_PATH"); val != "" {
		c.Cache.Path = val
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	envDuration("PROFILE_CACHE_EVICT", &c.Cache.ProfileEvict)
	envDuration("CONTEST_CACHE_EVICT", &c.Cache.ContestEvict)
	envDuration("PROFILE_TIMEOUT", &c.Timeouts.Profile)
	envDuration("CONTEST_TIMEOUT", &c.Timeouts.Contest)
	if val := os.Getenv("WARM_CONTESTS"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Cache.WarmContests = b
		}
	}
}

func envDuration(name string, target *time.Duration) {
	val := os.Getenv(name)
	if val == "" {
		return
	}
	if d, err := time.ParseDuration(val); err == nil {
		*target = d
	}
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path cannot be empty")
	}
	if c.Cache.ProfileEvict <= 0 || c.Cache.ContestEvict <= 0 {
		return fmt.Errorf("cache eviction intervals must be > 0")
	}
	if c.Timeouts.Profile <= 0 || c.Timeouts.Contest <= 0 {
		return fmt.Errorf("timeouts must be > 0")
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}
	return nil
}
