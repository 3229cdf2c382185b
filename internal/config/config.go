
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Armin-kho/fsub-video-bot/internal/utils"
)

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

type Config struct {
	BotToken        string  `json:"bot_token" yaml:"bot_token"`
	DataDir         string  `json:"data_dir" yaml:"data_dir"`
	InitialAdminIDs []int64 `json:"initial_admin_ids,omitempty" yaml:"initial_admin_ids,omitempty"`

	Store StoreConfig `json:"store" yaml:"store"`

	// Empty disables the ops HTTP server.
	MetricsAddr string `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`

	// Empty disables scheduled backups.
	BackupCron string `json:"backup_cron,omitempty" yaml:"backup_cron,omitempty"`
	BackupKeep int    `json:"backup_keep,omitempty" yaml:"backup_keep,omitempty"`

	// Messages per second during a broadcast.
	BroadcastRate float64 `json:"broadcast_rate,omitempty" yaml:"broadcast_rate,omitempty"`

	Calendar string `json:"calendar,omitempty" yaml:"calendar,omitempty"`
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`

	Debug bool `json:"debug,omitempty" yaml:"debug,omitempty"`
}

type StoreConfig struct {
	Driver string `json:"driver" yaml:"driver"`
	// File or SQLite database path. Defaults to a file under DataDir.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	RedisAddr     string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty" yaml:"redis_db,omitempty"`
	RedisKey      string `json:"redis_key,omitempty" yaml:"redis_key,omitempty"`
}

func DefaultConfigPath() string {
	if v := os.Getenv("FSUB_CONFIG"); v != "" {
		return v
	}
	return "config.yaml"
}

// Load reads the optional config file, applies .env and environment overrides
// and requires a bot token.
func Load(path string) (Config, error) {
	cfg, err := load(path)
	if err != nil {
		return Config{}, err
	}
	if cfg.BotToken == "" {
		return Config{}, fmt.Errorf("missing bot_token (set in %s or BOT_TOKEN env)", path)
	}
	return cfg, nil
}

// LoadOffline is Load without the token requirement, for commands that only
// touch local state.
func LoadOffline(path string) (Config, error) {
	return load(path)
}

func load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	// Existing environment wins over .env.
	_ = godotenv.Load()

	var cfg Config
	// 1) Try file
	if b, err := os.ReadFile(path); err == nil {
		if err := decode(path, b, &cfg); err != nil {
			return Config{}, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	// 2) Env fallback / override
	applyEnv(&cfg)

	// Defaults
	if cfg.DataDir == "" {
		cfg.DataDir = "."
	}
	cfg.DataDir = filepath.Clean(cfg.DataDir)
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DriverFile
	}
	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)
	if cfg.Store.Path == "" {
		switch cfg.Store.Driver {
		case DriverSQLite:
			cfg.Store.Path = filepath.Join(cfg.DataDir, "bot.db")
		default:
			cfg.Store.Path = filepath.Join(cfg.DataDir, "bot_config.json")
		}
	}
	if cfg.BackupKeep == 0 {
		cfg.BackupKeep = 7
	}
	if cfg.BroadcastRate == 0 {
		cfg.BroadcastRate = 25
	}
	if cfg.Calendar == "" {
		cfg.Calendar = utils.CalendarGregorian
	}
	cfg.Calendar = strings.ToLower(cfg.Calendar)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("invalid config yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("invalid config json: %w", err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		cfg.BotToken = v
	}
	if v := os.Getenv("FSUB_BOT_TOKEN"); v != "" {
		cfg.BotToken = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Store.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Store.RedisPassword = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Store.RedisDB = n
		}
	}
	if v := os.Getenv("REDIS_KEY"); v != "" {
		cfg.Store.RedisKey = v
	}
	if v := os.Getenv("ADMIN_IDS"); v != "" && len(cfg.InitialAdminIDs) == 0 {
		cfg.InitialAdminIDs = parseIDList(v)
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("BACKUP_CRON"); v != "" {
		cfg.BackupCron = v
	}
	if v := os.Getenv("BACKUP_KEEP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BackupKeep = n
		}
	}
	if v := os.Getenv("BROADCAST_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.BroadcastRate = f
		}
	}
	if v := os.Getenv("CALENDAR"); v != "" {
		cfg.Calendar = v
	}
	if v := os.Getenv("TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("DEBUG"); v != "" {
		cfg.Debug = v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
}

func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverFile, DriverSQLite:
	case DriverRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("store driver redis needs redis_addr (or REDIS_ADDR env)")
		}
	default:
		return fmt.Errorf("unknown store driver %q (want file, sqlite or redis)", c.Store.Driver)
	}
	switch c.Calendar {
	case utils.CalendarGregorian, utils.CalendarJalali:
	default:
		return fmt.Errorf("unknown calendar %q (want gregorian or jalali)", c.Calendar)
	}
	if c.BroadcastRate < 0 {
		return fmt.Errorf("broadcast_rate must not be negative, got %v", c.BroadcastRate)
	}
	return nil
}

// BackupDir is where scheduled and on-demand snapshots are written.
func (c Config) BackupDir() string {
	return filepath.Join(c.DataDir, "backups")
}

func parseIDList(s string) []int64 {
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err == nil {
			out = append(out, id)
		}
	}
	return out
}
