package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"` // public origin used to build return URLs
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

type AdminConfig struct {
	APIKey     string        `yaml:"api_key"`
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type MonnifyConfig struct {
	APIKey       string `yaml:"api_key"`
	SecretKey    string `yaml:"secret_key"`
	ContractCode string `yaml:"contract_code"`
	Sandbox      bool   `yaml:"sandbox"`
}

type PaystackConfig struct {
	PublicKey string `yaml:"public_key"`
	SecretKey string `yaml:"secret_key"`
}

type ProvidersConfig struct {
	Monnify  MonnifyConfig  `yaml:"monnify"`
	Paystack PaystackConfig `yaml:"paystack"`
}

type ReconcileConfig struct {
	Interval      time.Duration `yaml:"interval"`       // verify worker tick
	StaleAfter    time.Duration `yaml:"stale_after"`    // how old an open transaction must be to re-verify
	VerifyRetries int           `yaml:"verify_retries"` // bounded retry on the best-effort re-verify path
	VerifyBackoff time.Duration `yaml:"verify_backoff"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Admin     AdminConfig     `yaml:"admin"`
	Providers ProvidersConfig `yaml:"providers"`
	Reconcile ReconcileConfig `yaml:"reconcile"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Redis.LockTTL <= 0 {
		c.Redis.LockTTL = 30 * time.Second
	}
	if c.Admin.SessionTTL <= 0 {
		c.Admin.SessionTTL = 30 * time.Minute
	}
	if c.Reconcile.Interval <= 0 {
		c.Reconcile.Interval = time.Minute
	}
	if c.Reconcile.StaleAfter <= 0 {
		c.Reconcile.StaleAfter = 10 * time.Minute
	}
	if c.Reconcile.VerifyRetries <= 0 {
		c.Reconcile.VerifyRetries = 3
	}
	if c.Reconcile.VerifyBackoff <= 0 {
		c.Reconcile.VerifyBackoff = 250 * time.Millisecond
	}
}
