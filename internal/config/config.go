package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// BackupConfig controls the database file backups.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"` // cron expression
	StoragePath   string `yaml:"storage_path"`
	RetentionDays int    `yaml:"retention_days"`
}

type Config struct {
	HTTP struct {
		Address             string   `yaml:"address"`
		AllowedOrigins      []string `yaml:"allowed_origins"`
		ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
	} `yaml:"http"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup BackupConfig `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	HRS struct {
		Enabled           bool    `yaml:"enabled"`
		BaseURL           string  `yaml:"base_url"`
		APIKey            string  `yaml:"api_key"`
		HutID             int     `yaml:"hut_id"`
		Schedule          string  `yaml:"schedule"`
		WindowDays        int     `yaml:"window_days"`
		CacheTTLSeconds   int     `yaml:"cache_ttl_seconds"`
		TimeoutSeconds    int     `yaml:"timeout_seconds"`
		RetryCount        int     `yaml:"retry_count"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"hrs"`

	Report struct {
		DefaultTarget int `yaml:"default_target"`
		WindowDays    int `yaml:"window_days"`
		MaxDays       int `yaml:"max_days"`
	} `yaml:"report"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Telegram struct {
		Enabled        bool    `yaml:"enabled"`
		BotToken       string  `yaml:"bot_token"`
		ChatIDs        []int64 `yaml:"chat_ids"`
		DigestSchedule string  `yaml:"digest_schedule"`
	} `yaml:"telegram"`
}

// Load reads the YAML config at path. A .env file next to the working
// directory is loaded first so ${ENV_VAR} placeholders can refer to it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	// .env is optional
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/huette.db"
	}
	if cfg.Backup.StoragePath == "" {
		cfg.Backup.StoragePath = "data/backups"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) HTTPAddress() string {
	if c.HTTP.Address == "" {
		return ":8080"
	}
	return c.HTTP.Address
}

func (c *Config) HTTPReadTimeout() time.Duration {
	if c.HTTP.ReadTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.HTTP.ReadTimeoutSeconds) * time.Second
}

func (c *Config) HTTPWriteTimeout() time.Duration {
	if c.HTTP.WriteTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.HTTP.WriteTimeoutSeconds) * time.Second
}

// ReportTarget is the target occupancy used when a request has no za parameter.
func (c *Config) ReportTarget() int {
	if c.Report.DefaultTarget <= 0 {
		return 135
	}
	return c.Report.DefaultTarget
}

// ReportWindowDays is the distance between the default start and end date.
func (c *Config) ReportWindowDays() int {
	if c.Report.WindowDays <= 0 {
		return 31
	}
	return c.Report.WindowDays
}

func (c *Config) ReportMaxDays() int {
	if c.Report.MaxDays <= 0 {
		return 366
	}
	return c.Report.MaxDays
}

func (c *Config) HRSSchedule() string {
	if c.HRS.Schedule == "" {
		return "0 */2 * * *"
	}
	return c.HRS.Schedule
}

func (c *Config) HRSWindowDays() int {
	if c.HRS.WindowDays <= 0 {
		return 90
	}
	return c.HRS.WindowDays
}

func (c *Config) HRSTimeout() time.Duration {
	if c.HRS.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.HRS.TimeoutSeconds) * time.Second
}

func (c *Config) HRSCacheTTL() time.Duration {
	if c.HRS.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.HRS.CacheTTLSeconds) * time.Second
}

func (c *Config) HRSRequestsPerSecond() float64 {
	if c.HRS.RequestsPerSecond <= 0 {
		return 2
	}
	return c.HRS.RequestsPerSecond
}

func (c *Config) BackupSchedule() string {
	if c.Backup.Schedule == "" {
		return "0 3 * * *"
	}
	return c.Backup.Schedule
}

func (c *Config) DigestSchedule() string {
	if c.Telegram.DigestSchedule == "" {
		return "0 7 * * *"
	}
	return c.Telegram.DigestSchedule
}
