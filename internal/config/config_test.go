package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fentz26/commandcenter/internal/ai"
	"github.com/fentz26/commandcenter/internal/health"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(Options{File: filepath.Join(dir, "missing.yaml"), EnvFiles: []string{}, Getenv: envFrom(nil)})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Listen != DefaultListen {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.AI.Timeout != ai.DefaultTimeout || cfg.AI.Configured() {
		t.Errorf("unexpected AI defaults %+v", cfg.AI)
	}
	if cfg.Notion.Schema.Priority != "Priority " {
		t.Errorf("schema defaults lost: %+v", cfg.Notion.Schema)
	}
	if len(cfg.Health) != 0 || cfg.AuditInterval != 0 {
		t.Errorf("expected no probes and no periodic audit, got %v %s", cfg.Health, cfg.AuditInterval)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	writeFile(t, file, `
listen: 127.0.0.1:9000
audit_interval: 30m
ai:
  ollama_base_url: http://from-yaml:11434
  timeout: 20s
notion:
  tasks_db: yaml-tasks
  schema:
    priority: Prio
health:
  - id: pg
    label: PostgreSQL
    target: localhost:5432
    kind: tcp
`)
	envFile := filepath.Join(dir, ".env")
	writeFile(t, envFile, "OLLAMA_BASE_URL=http://from-dotenv:11434\nNOTION_API_KEY=dotenv-token\n")
	localFile := filepath.Join(dir, ".env.local")
	writeFile(t, localFile, "NOTION_API_KEY=local-token\n")

	cfg, err := Load(Options{
		File:     file,
		EnvFiles: []string{envFile, localFile},
		Getenv:   envFrom(map[string]string{"OPENAI_API_KEY": "sk-env", "NOTION_PROJECTS_DB": "env-projects"}),
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		name, got, want string
	}{
		{"listen from yaml", cfg.Listen, "127.0.0.1:9000"},
		{"ollama from dotenv", cfg.AI.OllamaBaseURL, "http://from-dotenv:11434"},
		{"token from .env.local", cfg.Notion.Token, "local-token"},
		{"openai from env", cfg.AI.OpenAIAPIKey, "sk-env"},
		{"tasks db from yaml", cfg.Notion.TasksDB, "yaml-tasks"},
		{"projects db from env", cfg.Notion.ProjectsDB, "env-projects"},
		{"schema override", cfg.Notion.Schema.Priority, "Prio"},
		{"schema default kept", cfg.Notion.Schema.Name, "Name"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
	if cfg.AI.Timeout != 20*time.Second || cfg.AuditInterval != 30*time.Minute {
		t.Errorf("durations not parsed: %s %s", cfg.AI.Timeout, cfg.AuditInterval)
	}
	if p, _ := cfg.AI.Provider(); p != ai.ProviderHosted {
		t.Errorf("provider = %s, want hosted", p)
	}
	if len(cfg.Health) != 1 || cfg.Health[0].Kind != health.KindTCP {
		t.Errorf("unexpected probes %+v", cfg.Health)
	}
}

func TestDefaultProbesFollowBackends(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(Options{
		File:     filepath.Join(dir, "none.yaml"),
		EnvFiles: []string{},
		Getenv:   envFrom(map[string]string{"OLLAMA_BASE_URL": "http://localhost:11434", "N8N_WEBHOOK_BASE_URL": "http://localhost:5678"}),
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Health) != 2 || cfg.Health[0].ID != "ollama" || cfg.Health[1].ID != "n8n" {
		t.Errorf("unexpected default probes %+v", cfg.Health)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"bad listen", func(c *Config) { c.Listen = "nope" }, "listen"},
		{"short interval", func(c *Config) { c.AuditInterval = time.Second }, "audit_interval"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"relative url", func(c *Config) { c.AI.OllamaBaseURL = "localhost:11434" }, "ollama_base_url"},
		{"half admin", func(c *Config) { c.AdminPassword = "pw" }, "admin_password"},
		{"probe kind", func(c *Config) { c.Health = []health.Probe{{ID: "x", Target: "y", Kind: "udp"}} }, "invalid kind"},
		{"probe dup", func(c *Config) {
			c.Health = []health.Probe{{ID: "x", Target: "y", Kind: "tcp"}, {ID: "x", Target: "z", Kind: "tcp"}}
		}, "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadRejectsBadInterval(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(Options{
		File:     filepath.Join(dir, "none.yaml"),
		EnvFiles: []string{},
		Getenv:   envFrom(map[string]string{"COMMANDCENTER_AUDIT_INTERVAL": "often"}),
	})
	if err == nil {
		t.Fatal("expected error for unparseable interval")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.AuditInterval = time.Hour
	cfg.N8NBaseURL = "http://localhost:5678"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(Options{File: path, EnvFiles: []string{}, Getenv: envFrom(nil)})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.AuditInterval != time.Hour || loaded.N8NBaseURL != cfg.N8NBaseURL {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}
