// Package config loads Command Center settings from the YAML config file,
// .env files and the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/fentz26/commandcenter/internal/ai"
	"github.com/fentz26/commandcenter/internal/health"
	"github.com/fentz26/commandcenter/internal/notion"
)

// DefaultListen is the daemon address when nothing else is configured.
const DefaultListen = "127.0.0.1:7466"

// Config holds every Command Center setting.
type Config struct {
	// Listen is the daemon HTTP address.
	Listen string `yaml:"listen"`
	// DBPath is the SQLite history database.
	DBPath string `yaml:"db_path"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`

	AI     ai.Config     `yaml:"ai"`
	Notion notion.Config `yaml:"notion"`

	// N8NBaseURL enables workflow triggers and lead notifications.
	N8NBaseURL string `yaml:"n8n_webhook_base_url"`

	// AdminPassword and AdminSecret protect the lead admin routes.
	AdminPassword string `yaml:"admin_password"`
	AdminSecret   string `yaml:"admin_secret"`

	// AuditInterval runs the audit periodically in the daemon; 0 disables.
	AuditInterval time.Duration `yaml:"audit_interval"`

	Health        []health.Probe `yaml:"health"`
	HealthTimeout time.Duration  `yaml:"health_timeout"`
}

// Dir returns the Command Center home directory (~/.commandcenter).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".commandcenter"
	}
	return filepath.Join(home, ".commandcenter")
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Listen:    DefaultListen,
		DBPath:    filepath.Join(Dir(), "commandcenter.db"),
		LogLevel:  "info",
		LogFormat: "text",
		AI: ai.Config{
			OpenAIBaseURL: ai.DefaultHostedBaseURL,
			Timeout:       ai.DefaultTimeout,
			StreamTimeout: ai.DefaultStreamTimeout,
		},
		Notion: notion.Config{
			BaseURL: notion.DefaultBaseURL,
			Schema:  notion.DefaultSchema(),
		},
		HealthTimeout: health.DefaultTimeout,
	}
}

// Options controls where Load looks.
type Options struct {
	// File is the YAML config path; ~/.commandcenter/config.yaml when empty.
	File string
	// EnvFiles are read in order, later files winning; .env and .env.local when nil.
	EnvFiles []string
	// Getenv reads the process environment; os.Getenv when nil.
	Getenv func(string) string
}

// Load builds the configuration: defaults, then the YAML file, then .env
// files, then the process environment.
func Load(opts Options) (*Config, error) {
	if opts.File == "" {
		opts.File = filepath.Join(Dir(), "config.yaml")
	}
	if opts.EnvFiles == nil {
		opts.EnvFiles = []string{".env", ".env.local"}
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	cfg := DefaultConfig()
	if err := cfg.loadFile(opts.File); err != nil {
		return nil, err
	}

	dotenv, err := readEnvFiles(opts.EnvFiles)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) string {
		if v := opts.Getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if len(cfg.Health) == 0 {
		cfg.Health = cfg.DefaultProbes()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

func readEnvFiles(paths []string) (map[string]string, error) {
	merged := map[string]string{}
	for _, p := range paths {
		vals, err := godotenv.Read(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		for k, v := range vals {
			merged[k] = v
		}
	}
	return merged, nil
}

func (c *Config) applyEnv(get func(string) string) error {
	strs := map[string]*string{
		"COMMANDCENTER_LISTEN":     &c.Listen,
		"COMMANDCENTER_DB":         &c.DBPath,
		"COMMANDCENTER_LOG_LEVEL":  &c.LogLevel,
		"COMMANDCENTER_LOG_FORMAT": &c.LogFormat,
		"COMMANDCENTER_LOG_FILE":   &c.LogFile,
		"OPENAI_API_KEY":           &c.AI.OpenAIAPIKey,
		"OPENAI_BASE_URL":          &c.AI.OpenAIBaseURL,
		"OLLAMA_BASE_URL":          &c.AI.OllamaBaseURL,
		"NOTION_API_KEY":           &c.Notion.Token,
		"NOTION_TASKS_DB":          &c.Notion.TasksDB,
		"NOTION_PROJECTS_DB":       &c.Notion.ProjectsDB,
		"NOTION_AREAS_DB":          &c.Notion.AreasDB,
		"N8N_WEBHOOK_BASE_URL":     &c.N8NBaseURL,
		"ADMIN_PASSWORD":           &c.AdminPassword,
		"ADMIN_SECRET":             &c.AdminSecret,
	}
	for key, dst := range strs {
		if v := strings.TrimSpace(get(key)); v != "" {
			*dst = v
		}
	}

	if v := get("COMMANDCENTER_AUDIT_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("COMMANDCENTER_AUDIT_INTERVAL: %w", err)
		}
		c.AuditInterval = d
	}
	return nil
}

// DefaultProbes watches the configured backends when no probes are listed.
func (c *Config) DefaultProbes() []health.Probe {
	var probes []health.Probe
	if c.AI.OllamaBaseURL != "" {
		probes = append(probes, health.Probe{ID: "ollama", Label: "Ollama", Target: c.AI.OllamaBaseURL, Kind: health.KindHTTP})
	}
	if c.N8NBaseURL != "" {
		probes = append(probes, health.Probe{ID: "n8n", Label: "n8n", Target: c.N8NBaseURL, Kind: health.KindHTTP})
	}
	if c.Notion.Token != "" {
		probes = append(probes, health.Probe{ID: "notion", Label: "Notion", Target: c.Notion.BaseURL, Kind: health.KindHTTP})
	}
	return probes
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("listen %q: %w", c.Listen, err)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path must be set")
	}
	if c.AuditInterval < 0 {
		return fmt.Errorf("audit_interval must not be negative")
	}
	if c.AuditInterval > 0 && c.AuditInterval < time.Minute {
		return fmt.Errorf("audit_interval must be at least 1m, got %s", c.AuditInterval)
	}
	if c.AI.Timeout < 0 || c.AI.StreamTimeout < 0 || c.HealthTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q, must be: text or json", c.LogFormat)
	}

	for name, raw := range map[string]string{
		"openai_base_url":      c.AI.OpenAIBaseURL,
		"ollama_base_url":      c.AI.OllamaBaseURL,
		"n8n_webhook_base_url": c.N8NBaseURL,
	} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s %q is not an absolute URL", name, raw)
		}
	}

	if (c.AdminPassword == "") != (c.AdminSecret == "") {
		return fmt.Errorf("admin_password and admin_secret must be set together")
	}

	seen := map[string]bool{}
	for _, p := range c.Health {
		if p.ID == "" || p.Target == "" {
			return fmt.Errorf("health probe needs id and target")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate health probe %q", p.ID)
		}
		seen[p.ID] = true
		if p.Kind != health.KindHTTP && p.Kind != health.KindTCP {
			return fmt.Errorf("health probe %q: invalid kind %q, must be: http or tcp", p.ID, p.Kind)
		}
	}
	return nil
}

// Save writes the configuration as YAML, creating parent directories if needed.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
