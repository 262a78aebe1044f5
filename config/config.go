package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	BaseURL    string           `yaml:"base_url"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Prober     ProberConfig     `yaml:"prober"`
	Claims     ClaimsConfig     `yaml:"claims"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Lock       LockConfig       `yaml:"lock"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Stations   []StationConfig  `yaml:"stations"`
}

// StationConfig declares one station and its type. Membership is fixed at
// configuration time.
type StationConfig struct {
	ID   int    `yaml:"id"`
	Type string `yaml:"type"`
	Host string `yaml:"host"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "sqlite" or "postgres"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// ProberConfig holds the occupancy probing configuration.
type ProberConfig struct {
	Enabled             bool          `yaml:"enabled"`
	IntervalSeconds     int           `yaml:"interval_seconds"`
	Interval            time.Duration `yaml:"-"`
	IdleIntervalSeconds int           `yaml:"idle_interval_seconds"`
	IdleInterval        time.Duration `yaml:"-"`
	TimeoutSeconds      int           `yaml:"timeout_seconds"`
	Timeout             time.Duration `yaml:"-"`
	StaleAfterSeconds   int           `yaml:"stale_after_seconds"`
	StaleAfter          time.Duration `yaml:"-"`
}

// ClaimsConfig holds the claim lifecycle configuration.
type ClaimsConfig struct {
	TTLMinutes      int           `yaml:"ttl_minutes"`
	TTL             time.Duration `yaml:"-"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
}

// ScheduleConfig holds the calendar file configuration.
type ScheduleConfig struct {
	Path            string        `yaml:"path"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"`
}

// LockConfig holds the cross-process lock configuration.
type LockConfig struct {
	Dir            string        `yaml:"dir"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path and applies defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "lab.db"
	}

	if cfg.Prober.IntervalSeconds <= 0 {
		cfg.Prober.IntervalSeconds = 10
	}
	if cfg.Prober.IdleIntervalSeconds <= 0 {
		cfg.Prober.IdleIntervalSeconds = 60
	}
	if cfg.Prober.TimeoutSeconds <= 0 {
		cfg.Prober.TimeoutSeconds = 5
	}
	if cfg.Prober.StaleAfterSeconds <= 0 {
		cfg.Prober.StaleAfterSeconds = 60
	}
	cfg.Prober.Interval = time.Duration(cfg.Prober.IntervalSeconds) * time.Second
	cfg.Prober.IdleInterval = time.Duration(cfg.Prober.IdleIntervalSeconds) * time.Second
	cfg.Prober.Timeout = time.Duration(cfg.Prober.TimeoutSeconds) * time.Second
	cfg.Prober.StaleAfter = time.Duration(cfg.Prober.StaleAfterSeconds) * time.Second

	if cfg.Claims.TTLMinutes <= 0 {
		cfg.Claims.TTLMinutes = 5
	}
	if cfg.Claims.IntervalSeconds <= 0 {
		cfg.Claims.IntervalSeconds = 10
	}
	cfg.Claims.TTL = time.Duration(cfg.Claims.TTLMinutes) * time.Minute
	cfg.Claims.Interval = time.Duration(cfg.Claims.IntervalSeconds) * time.Second

	if cfg.Schedule.CacheTTLSeconds <= 0 {
		cfg.Schedule.CacheTTLSeconds = 30
	}
	cfg.Schedule.CacheTTL = time.Duration(cfg.Schedule.CacheTTLSeconds) * time.Second

	if cfg.Lock.Dir == "" {
		cfg.Lock.Dir = os.TempDir()
	}
	if cfg.Lock.TimeoutSeconds <= 0 {
		cfg.Lock.TimeoutSeconds = 3
	}
	cfg.Lock.Timeout = time.Duration(cfg.Lock.TimeoutSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 5
	}

	if len(cfg.Stations) == 0 {
		return nil, fmt.Errorf("config declares no stations")
	}
	seen := make(map[int]bool, len(cfg.Stations))
	for _, s := range cfg.Stations {
		if s.ID <= 0 {
			return nil, fmt.Errorf("station id must be positive, got %d", s.ID)
		}
		if s.Type == "" {
			return nil, fmt.Errorf("station %d has no type", s.ID)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate station id %d", s.ID)
		}
		seen[s.ID] = true
	}

	return &cfg, nil
}
