package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testHashKey = "0123456789abcdef0123456789abcdef"

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %s", cfg.Server.Addr)
	}
	if cfg.Forms.SubmitLatency != 2*time.Second {
		t.Errorf("expected 2s submit latency, got %s", cfg.Forms.SubmitLatency)
	}
	if cfg.Session.CookieName != defaultCookieName {
		t.Errorf("unexpected cookie name %s", cfg.Session.CookieName)
	}
	if !cfg.Session.GeneratedKeys || len(cfg.Session.HashKey) != 32 || len(cfg.Session.BlockKey) != 32 {
		t.Errorf("expected generated session keys in local env")
	}
	if cfg.IsProduction() {
		t.Errorf("default environment must not be production")
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"AUTHDEMO_HTTP_ADDR":            "127.0.0.1:9090",
		"AUTHDEMO_LOG_LEVEL":            "DEBUG",
		"AUTHDEMO_SESSION_HASH_KEY":     testHashKey,
		"AUTHDEMO_SESSION_BLOCK_KEY":    "abcdefghijklmnop",
		"AUTHDEMO_SESSION_IDLE_TIMEOUT": "5m",
		"AUTHDEMO_SUBMIT_LATENCY":       "0s",
		"AUTHDEMO_VISITOR_IDLE_TIMEOUT": "90s",
	}
	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9090" {
		t.Errorf("unexpected addr %s", cfg.Server.Addr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level should be normalised, got %s", cfg.LogLevel)
	}
	if string(cfg.Session.HashKey) != testHashKey || cfg.Session.GeneratedKeys {
		t.Errorf("expected configured hash key")
	}
	if cfg.Forms.SubmitLatency != 0 {
		t.Errorf("expected zero latency, got %s", cfg.Forms.SubmitLatency)
	}
	if cfg.Visitors.IdleTimeout != 90*time.Second {
		t.Errorf("unexpected visitor idle timeout %s", cfg.Visitors.IdleTimeout)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "authdemo.yaml")
	yamlBody := strings.Join([]string{
		"env: staging",
		"http:",
		"  addr: \":7000\"",
		"  read_timeout: 3s",
		"forms:",
		"  submit_latency: 500ms",
	}, "\n")
	if err := os.WriteFile(yamlPath, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("AUTHDEMO_HTTP_ADDR=:7100\nAUTHDEMO_CONFIG_FILE="+yamlPath+"\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	cfg, err := Load(
		WithEnvFile(envPath),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{"AUTHDEMO_SUBMIT_LATENCY": "1s"}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Environment != "staging" {
		t.Errorf("expected env from yaml, got %s", cfg.Environment)
	}
	if cfg.Server.ReadTimeout != 3*time.Second {
		t.Errorf("expected read timeout from yaml, got %s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.Addr != ":7100" {
		t.Errorf(".env should override yaml, got %s", cfg.Server.Addr)
	}
	if cfg.Forms.SubmitLatency != time.Second {
		t.Errorf("explicit map should override yaml, got %s", cfg.Forms.SubmitLatency)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	env := map[string]string{
		"AUTHDEMO_ENV":                  "production",
		"AUTHDEMO_LOG_LEVEL":            "verbose",
		"AUTHDEMO_SESSION_IDLE_TIMEOUT": "soon",
	}
	_, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := strings.Join(vErr.Fields(), ",")
	for _, want := range []string{"AUTHDEMO_SESSION_IDLE_TIMEOUT", "LogLevel", "Session.HashKey"} {
		if !strings.Contains(fields, want) {
			t.Errorf("expected %s in %s", want, fields)
		}
	}
}

func TestLoadMissingFiles(t *testing.T) {
	if _, err := Load(WithEnvFile(filepath.Join(t.TempDir(), "missing.env")), WithoutSystemEnv()); err != nil {
		t.Fatalf("missing .env must be ignored, got %v", err)
	}
	_, err := Load(WithEnvFile(""), WithoutSystemEnv(), WithConfigFile(filepath.Join(t.TempDir(), "missing.yaml")))
	if err == nil {
		t.Fatalf("explicit config file must exist")
	}
}
