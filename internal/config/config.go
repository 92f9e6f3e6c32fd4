package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/mo"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"coloft/internal/recurrence"
)

// Environment variables read by LoadEnv. A .env file in the working
// directory is honored but never overrides variables already set.
const (
	EnvConfigPath = "COLOFT_CONFIG"
	EnvLogLevel   = "COLOFT_LOG_LEVEL"
	EnvAsOf       = "COLOFT_AS_OF"

	DefaultConfigPath = "coloft.yaml"
)

// StateConfig is one top-level section of the regional calendar.
type StateConfig struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
	Color string `yaml:"color" json:"color"`
}

// LinkCheckConfig controls the external link validator.
type LinkCheckConfig struct {
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	Delay     time.Duration `yaml:"delay" json:"delay"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
}

// PrintCheckConfig controls the headless-browser print fit test.
type PrintCheckConfig struct {
	MaxPages int           `yaml:"max_pages" json:"max_pages"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
	// Pages are file names relative to OutputDir.
	Pages []string `yaml:"pages" json:"pages"`
}

// EventConfig describes a recurring community event.
type EventConfig struct {
	Name string `yaml:"name" json:"name"`

	recurrence.RuleDescriptor `yaml:",inline"`

	// Start is the event's launch date (YYYY-MM-DD). No occurrence before
	// it is ever shown.
	Start string `yaml:"start,omitempty" json:"start,omitempty"`
}

// BasicAuthConfig protects the preview server's rebuild endpoint.
// PasswordHash comes from `coloft hash-password`.
type BasicAuthConfig struct {
	Username     string `yaml:"username" json:"username"`
	PasswordHash string `yaml:"password_hash" json:"-"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the preview server.
	Listen string `yaml:"listen" json:"listen"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`

	// DataPath is the regional events JSON dataset.
	DataPath  string `yaml:"data_path" json:"data_path"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`
	SiteTitle string `yaml:"site_title" json:"site_title"`

	// BaseURL is the public site root, e.g. "https://coloft.example/".
	// When set, the build also writes sitemap.xml.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	// RefreshCron is the cron schedule on which `serve` rebuilds the site
	// so that "Next:" labels move forward.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	HorizonMonths int `yaml:"horizon_months" json:"horizon_months"`
	MaxCount      int `yaml:"max_count" json:"max_count"`

	States []StateConfig `yaml:"states" json:"states"`

	// RegionOrder lists region names north to south, per state id.
	RegionOrder map[string][]string `yaml:"region_order" json:"region_order"`

	LinkCheck  LinkCheckConfig  `yaml:"link_check" json:"link_check"`
	PrintCheck PrintCheckConfig `yaml:"print_check" json:"print_check"`

	Events map[string]EventConfig `yaml:"events" json:"events"`

	// BasicAuth is optional. Nil disables auth.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:        "127.0.0.1:8080",
		LogLevel:      "info",
		LogFormat:     "text",
		DataPath:      "regional-events.json",
		OutputDir:     "site",
		SiteTitle:     "Coloft",
		RefreshCron:   "5 0 * * *",
		HorizonMonths: recurrence.DefaultHorizonMonths,
		MaxCount:      recurrence.DefaultMaxCount,
		States: []StateConfig{
			{ID: "oregon", Label: "🌲 OREGON", Color: "#059669"},
			{ID: "california", Label: "🌊 CALIFORNIA", Color: "#DC6B4A"},
		},
		RegionOrder: map[string][]string{},
		LinkCheck: LinkCheckConfig{
			Timeout:   10 * time.Second,
			Delay:     100 * time.Millisecond,
			UserAgent: "Mozilla/5.0 (compatible; LinkValidator/1.0)",
		},
		PrintCheck: PrintCheckConfig{
			MaxPages: 1,
			Timeout:  30 * time.Second,
			Pages:    []string{"index.html"},
		},
		Events: map[string]EventConfig{
			"somatic-colab": {
				Name:           "Somatic Co-Lab",
				RuleDescriptor: recurrence.RuleDescriptor{Rule: "every-sunday"},
			},
			"sex-positive-friends": {
				Name:           "Sex Positive Friends",
				RuleDescriptor: recurrence.RuleDescriptor{Rule: "every-tuesday"},
			},
		},
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		c.LogFormat = def.LogFormat
	}
	if c.DataPath == "" {
		c.DataPath = def.DataPath
	}
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if c.SiteTitle == "" {
		c.SiteTitle = def.SiteTitle
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	// A negative horizon is left alone so Schedule reports it.
	if c.HorizonMonths == 0 {
		c.HorizonMonths = def.HorizonMonths
	}
	if c.MaxCount == 0 {
		c.MaxCount = def.MaxCount
	}
	if len(c.States) == 0 {
		c.States = def.States
	}
	if c.RegionOrder == nil {
		c.RegionOrder = map[string][]string{}
	}
	if c.LinkCheck.Timeout <= 0 {
		c.LinkCheck.Timeout = def.LinkCheck.Timeout
	}
	if c.LinkCheck.Delay < 0 {
		c.LinkCheck.Delay = 0
	}
	if c.LinkCheck.UserAgent == "" {
		c.LinkCheck.UserAgent = def.LinkCheck.UserAgent
	}
	if c.PrintCheck.MaxPages <= 0 {
		c.PrintCheck.MaxPages = def.PrintCheck.MaxPages
	}
	if c.PrintCheck.Timeout <= 0 {
		c.PrintCheck.Timeout = def.PrintCheck.Timeout
	}
	if len(c.PrintCheck.Pages) == 0 {
		c.PrintCheck.Pages = def.PrintCheck.Pages
	}
	if c.Events == nil {
		c.Events = map[string]EventConfig{}
	}
}

// Schedule builds the recurrence schedule for the configured events.
// Every rule is parsed here, so a malformed rule fails at load time.
func (c *Config) Schedule() (*recurrence.Schedule, error) {
	ids := make([]string, 0, len(c.Events))
	for id := range c.Events {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]recurrence.Entry, 0, len(ids))
	for _, id := range ids {
		ev := c.Events[id]
		rule, err := recurrence.ParseRule(ev.RuleDescriptor)
		if err != nil {
			return nil, fmt.Errorf("config: event %q: %w", id, err)
		}
		floor := mo.None[recurrence.Date]()
		if ev.Start != "" {
			start, err := recurrence.ParseDate(ev.Start)
			if err != nil {
				return nil, fmt.Errorf("config: event %q start: %w", id, err)
			}
			floor = mo.Some(start)
		}
		name := ev.Name
		if name == "" {
			name = id
		}
		entries = append(entries, recurrence.Entry{ID: id, Name: name, Rule: rule, Floor: floor})
	}
	return recurrence.NewSchedule(entries, c.HorizonMonths, c.MaxCount)
}

// LoadEnv reads a .env file if present. Missing files are not an error.
func LoadEnv() {
	_ = godotenv.Load()
}

// PathFromEnv returns COLOFT_CONFIG, or fallback when unset.
func PathFromEnv(fallback string) string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return fallback
}

// Load loads configuration from the given YAML path on fsys.
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
// COLOFT_LOG_LEVEL overrides log_level in both cases.
func Load(fsys afero.Fs, path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(fsys, path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	cfg.applyEnv()

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		c.LogLevel = lvl
	}
}

// Save writes the given configuration to the specified path on fsys.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(fsys afero.Fs, path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := afero.TempFile(fsys, dir, ".coloft-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer fsys.Remove(tmpName)

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
	if err := fsys.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return fsys.Rename(tmpName, path)
}
