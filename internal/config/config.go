package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"hive/internal/model"
)

// Environment variables holding secrets. They never appear in the YAML file.
const (
	EnvStoreKey = "HIVE_STORE_KEY"
	EnvAIKey    = "HIVE_AI_KEY"
)

// StoreConfig points at the backend-as-a-service REST endpoint.
type StoreConfig struct {
	// URL is the PostgREST base, e.g. "https://xyz.supabase.co/rest/v1".
	URL     string        `yaml:"url" json:"url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// APIKey is read from HIVE_STORE_KEY.
	APIKey string `yaml:"-" json:"-"`
}

// AIConfig points at the OpenAI-compatible chat-completions gateway used by
// Ask Hive and Magic Fill.
type AIConfig struct {
	URL     string        `yaml:"url" json:"url"`
	Model   string        `yaml:"model" json:"model"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// APIKey is read from HIVE_AI_KEY.
	APIKey string `yaml:"-" json:"-"`
}

// ICSConfig describes a single society ICS subscription.
type ICSConfig struct {
	// ID is an internal identifier used for logging and stable event ids.
	ID  string `yaml:"id" json:"id"`
	URL string `yaml:"url" json:"url"`
	// SocietyID/SocietyName are attached to imported events.
	SocietyID   string `yaml:"society_id" json:"society_id"`
	SocietyName string `yaml:"society_name" json:"society_name"`
	// Category is the default for VEVENTs without a matching CATEGORIES value.
	Category string `yaml:"category" json:"category"`
}

// AdminConfig is one society admin account for the write API.
type AdminConfig struct {
	Username string `yaml:"username" json:"username"`
	// PasswordHash is an argon2id hash produced by `hive hash-password`.
	PasswordHash string `yaml:"password_hash" json:"-"`
	SocietyID    string `yaml:"society_id" json:"society_id"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone defining the observer's calendar
	// ("today", "tomorrow", the current week).
	Timezone string `yaml:"timezone" json:"timezone"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// CORSOrigin is sent as Access-Control-Allow-Origin on the AI endpoints.
	CORSOrigin string `yaml:"cors_origin" json:"cors_origin"`

	Store StoreConfig `yaml:"store" json:"store"`
	AI    AIConfig    `yaml:"ai" json:"ai"`

	// RefreshCron is the cron schedule for ICS import (e.g. "*/15 * * * *").
	RefreshCron string `yaml:"refresh" json:"refresh"`
	// BackfillDays/HorizonDays bound the ICS expansion window around now.
	BackfillDays int    `yaml:"backfill_days" json:"backfill_days"`
	HorizonDays  int    `yaml:"horizon_days" json:"horizon_days"`
	CacheDir     string `yaml:"cache_dir" json:"cache_dir"`

	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// SeedFile overrides the built-in demo events. DemoFallback serves the
	// demo events whenever the store returns none.
	SeedFile     string `yaml:"seed_file" json:"seed_file"`
	DemoFallback bool   `yaml:"demo_fallback" json:"demo_fallback"`

	Admins []AdminConfig `yaml:"admins" json:"admins"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		Timezone:     "Europe/London",
		LogLevel:     "info",
		CORSOrigin:   "*",
		Store:        StoreConfig{Timeout: 10 * time.Second},
		AI:           AIConfig{URL: "https://ai.gateway.lovable.dev/v1/chat/completions", Model: "google/gemini-3-flash-preview", Timeout: 30 * time.Second},
		RefreshCron:  "*/15 * * * *",
		BackfillDays: 7,
		HorizonDays:  60,
		CacheDir:     "/var/lib/hive/ics-cache",
		ICS:          []ICSConfig{},
		DemoFallback: true,
		Admins:       []AdminConfig{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.CORSOrigin == "" {
		c.CORSOrigin = d.CORSOrigin
	}
	if c.Store.Timeout <= 0 {
		c.Store.Timeout = d.Store.Timeout
	}
	if c.AI.URL == "" {
		c.AI.URL = d.AI.URL
	}
	if c.AI.Model == "" {
		c.AI.Model = d.AI.Model
	}
	if c.AI.Timeout <= 0 {
		c.AI.Timeout = d.AI.Timeout
	}
	if c.RefreshCron == "" {
		c.RefreshCron = d.RefreshCron
	}
	if c.BackfillDays < 0 {
		c.BackfillDays = 0
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = d.HorizonDays
	}
	if c.CacheDir == "" {
		c.CacheDir = d.CacheDir
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	for i := range c.ICS {
		if c.ICS[i].ID == "" {
			c.ICS[i].ID = c.ICS[i].URL
		}
	}
	if c.Admins == nil {
		c.Admins = []AdminConfig{}
	}
}

// Validate reports configuration that Normalize cannot repair.
func (c *Config) Validate() error {
	var errs []error
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	for _, f := range c.ICS {
		if f.URL == "" {
			errs = append(errs, fmt.Errorf("ics %q: url is required", f.ID))
		}
		if f.Category != "" {
			if _, err := model.ParseCategory(f.Category); err != nil {
				errs = append(errs, fmt.Errorf("ics %q: %w", f.ID, err))
			}
		}
	}
	seen := make(map[string]bool, len(c.Admins))
	for _, a := range c.Admins {
		switch {
		case a.Username == "":
			errs = append(errs, errors.New("admin: username is required"))
		case seen[a.Username]:
			errs = append(errs, fmt.Errorf("admin %q: duplicate username", a.Username))
		case a.PasswordHash == "" || a.SocietyID == "":
			errs = append(errs, fmt.Errorf("admin %q: password_hash and society_id are required", a.Username))
		}
		seen[a.Username] = true
	}
	return errors.Join(errs...)
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//
// Secrets are then taken from the environment; see LoadEnv.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			cfg.applyEnv()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Normalize()
	cfg.applyEnv()

	return &cfg, nil
}

// LoadEnv loads KEY=VALUE pairs from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadEnv(files ...string) error {
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvStoreKey); v != "" {
		c.Store.APIKey = v
	}
	if v := os.Getenv(EnvAIKey); v != "" {
		c.AI.APIKey = v
	}
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".hive-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// Admin looks up an admin account by username.
func (c *Config) Admin(username string) (AdminConfig, bool) {
	for _, a := range c.Admins {
		if a.Username == username {
			return a, true
		}
	}
	return AdminConfig{}, false
}
