package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate clears every mapped variable and points CONFIG_PATH at an empty dir.
func isolate(t *testing.T) {
	t.Helper()
	for key := range envMappings {
		name := strings.ToUpper(key)
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 2000 {
		t.Fatalf("expected port 2000 got %d", cfg.Server.Port)
	}
	if cfg.Gemini.Timeout != 60*time.Second {
		t.Fatalf("expected 60s timeout got %v", cfg.Gemini.Timeout)
	}
	if !cfg.Gemini.SearchGrounding {
		t.Fatalf("expected search grounding on by default")
	}
	if cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected model %q", cfg.Gemini.Model)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "8080")
	t.Setenv("GEMINI_TIMEOUT", "15s")
	t.Setenv("GEMINI_SEARCH_GROUNDING", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected 8080 got %d", cfg.Server.Port)
	}
	if cfg.Gemini.Timeout != 15*time.Second {
		t.Fatalf("expected 15s got %v", cfg.Gemini.Timeout)
	}
	if cfg.Gemini.SearchGrounding {
		t.Fatalf("expected search grounding disabled")
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Fatalf("expected env key got %q", cfg.Gemini.APIKey)
	}
	want := []string{"http://a.test", "http://b.test"}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[0] != want[0] || cfg.Server.AllowedOrigins[1] != want[1] {
		t.Fatalf("expected %v got %v", want, cfg.Server.AllowedOrigins)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "gemini:\n  model: gemini-2.5-pro\nstore:\n  disabled: true\n  path: \"\"\nlogging:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Gemini.Model != "gemini-2.5-pro" {
		t.Fatalf("expected file model got %q", cfg.Gemini.Model)
	}
	if !cfg.Store.Disabled {
		t.Fatalf("expected store disabled")
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected debug got %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"base url", func(c *Config) { c.Gemini.BaseURL = "not a url" }},
		{"timeout", func(c *Config) { c.Gemini.Timeout = time.Millisecond }},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"store path", func(c *Config) { c.Store.Path = "" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	if got := envTransformFunc("GEMINI_DEBUG_DUMP"); got != "gemini.debug_dump_path" {
		t.Fatalf("unexpected mapping %q", got)
	}
	if got := envTransformFunc("HOME"); got != "" {
		t.Fatalf("expected unmapped key to be dropped, got %q", got)
	}
}
