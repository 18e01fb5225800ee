package config

import (
	"os"
	"path/filepath"
	"testing"
)

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_MissingBaseURL(t *testing.T) {
	cfg := Defaults()
	cfg.Backend.BaseURL = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for empty backend.baseUrl")
	}
}

func TestValidate_RetryAttempts(t *testing.T) {
	cfg := Defaults()
	cfg.Backend.Retry.MaxAttempts = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxAttempts=0")
	}

	cfg = Defaults()
	cfg.Backend.Retry.MaxAttempts = 11
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxAttempts=11")
	}

	cfg = Defaults()
	cfg.Backend.Retry.MaxAttempts = 1
	if err := Validate(cfg); err != nil {
		t.Fatalf("maxAttempts=1 should be valid: %v", err)
	}
}

func TestValidate_MaxDelayBelowInitial(t *testing.T) {
	cfg := Defaults()
	cfg.Backend.Retry.InitialDelayMs = 1000
	cfg.Backend.Retry.MaxDelayMs = 500
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxDelayMs < initialDelayMs")
	}
}

func TestValidate_ConcurrencyBounds(t *testing.T) {
	cfg := Defaults()
	cfg.Router.MaxConcurrentEvents = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxConcurrentEvents=0")
	}

	cfg = Defaults()
	cfg.Router.MaxConcurrentEvents = 999
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxConcurrentEvents=999")
	}
}

func TestValidate_HealthThresholds(t *testing.T) {
	cfg := Defaults()
	cfg.Health.MemFreeThreshold = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for memFreeThreshold=0")
	}

	cfg = Defaults()
	cfg.Health.DiskFreeThreshold = 1.5
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for diskFreeThreshold=1.5")
	}
}

func TestValidate_AuditNeedsPath(t *testing.T) {
	cfg := Defaults()
	cfg.Audit.Enabled = true
	cfg.Audit.DBPath = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for audit without dbPath")
	}
}

// --- Load / Save ---

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	original := Defaults()
	original.Backend.BaseURL = "http://game.example:9000"

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Backend.BaseURL != "http://game.example:9000" {
		t.Fatalf("expected backend URL to survive, got %q", loaded.Backend.BaseURL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	os.WriteFile(path, []byte("{not json}"), 0o644)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoad_ValidatesConfig(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{
		"backend": {
			"baseUrl": ""
		}
	}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(cfgFile)
	if err == nil {
		t.Fatal("expected validation error for empty baseUrl")
	}
}

// --- Accessor ---

func TestGetByPath_ValidPaths(t *testing.T) {
	cfg := Defaults()

	val, err := GetByPath(cfg, "general.logLevel")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "info" {
		t.Fatalf("expected 'info', got %v", val)
	}
}

func TestGetByPath_InvalidPath(t *testing.T) {
	cfg := Defaults()
	_, err := GetByPath(cfg, "nonexistent.path")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}
}

func TestSetByPath_ValidPath(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "backend.baseUrl", "http://elsewhere:8000"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.Backend.BaseURL != "http://elsewhere:8000" {
		t.Fatalf("expected new URL, got %q", cfg.Backend.BaseURL)
	}
}

func TestSetByPath_BoolConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "audit.enabled", "false"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if cfg.Audit.Enabled {
		t.Fatal("expected audit.enabled=false")
	}
}

func TestSetByPath_IntConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "backend.retry.maxAttempts", "5"); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if cfg.Backend.Retry.MaxAttempts != 5 {
		t.Fatalf("expected 5, got %d", cfg.Backend.Retry.MaxAttempts)
	}
}

// --- Sanitize ---

func TestSanitize_MasksToken(t *testing.T) {
	cfg := Defaults()
	cfg.Discord.Token = "MTIzNDU2Nzg5.ABCdef.GHIjklMNOpqrSTUvwxyz"

	sanitized := Sanitize(cfg)

	if sanitized.Discord.Token == cfg.Discord.Token {
		t.Fatal("discord token should be masked")
	}
	// Verify original is untouched
	if cfg.Discord.Token != "MTIzNDU2Nzg5.ABCdef.GHIjklMNOpqrSTUvwxyz" {
		t.Fatal("original config should not be modified")
	}
}

func TestSanitize_ShortSecret(t *testing.T) {
	cfg := Defaults()
	cfg.Discord.Token = "short"
	sanitized := Sanitize(cfg)
	if sanitized.Discord.Token != "***" {
		t.Fatalf("short secret should be '***', got %q", sanitized.Discord.Token)
	}
}

// --- ListPaths ---

func TestListPaths_ReturnsAllLeaves(t *testing.T) {
	cfg := Defaults()
	paths := ListPaths(cfg)
	if len(paths) == 0 {
		t.Fatal("expected non-empty paths")
	}

	for _, expected := range []string{"general.logLevel", "backend.baseUrl", "audit.enabled"} {
		if _, ok := paths[expected]; !ok {
			t.Errorf("missing expected path: %s", expected)
		}
	}
}

// --- ExpandEnvVars ---

func TestExpandEnvVars_SimpleSubstitution(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "tok-abc123")
	result := ExpandEnvVars(`{"token": "${TEST_BOT_TOKEN}"}`)
	expected := `{"token": "tok-abc123"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_DefaultValue(t *testing.T) {
	os.Unsetenv("NONEXISTENT_VAR_12345")
	result := ExpandEnvVars(`{"port": "${NONEXISTENT_VAR_12345:-8080}"}`)
	expected := `{"port": "8080"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_SetVarOverridesDefault(t *testing.T) {
	t.Setenv("MY_PORT", "9090")
	result := ExpandEnvVars(`{"port": "${MY_PORT:-8080}"}`)
	expected := `{"port": "9090"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_MultipleVars(t *testing.T) {
	t.Setenv("HOST", "localhost")
	t.Setenv("PORT", "3000")
	result := ExpandEnvVars(`"${HOST}:${PORT}"`)
	expected := `"localhost:3000"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_UnsetVarNoDefault_KeepsOriginal(t *testing.T) {
	os.Unsetenv("TOTALLY_UNSET_VAR_XYZ")
	result := ExpandEnvVars(`"${TOTALLY_UNSET_VAR_XYZ}"`)
	expected := `"${TOTALLY_UNSET_VAR_XYZ}"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_EmptyVarUsesDefault(t *testing.T) {
	t.Setenv("EMPTY_VAR", "")
	result := ExpandEnvVars(`"${EMPTY_VAR:-fallback}"`)
	expected := `"fallback"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_NoVarsInInput(t *testing.T) {
	input := `{"key": "value", "number": 42}`
	result := ExpandEnvVars(input)
	if result != input {
		t.Fatalf("expected no change, got %q", result)
	}
}

func TestExpandEnvVars_DollarSignWithoutBraces(t *testing.T) {
	input := `"$HOME is not substituted"`
	result := ExpandEnvVars(input)
	if result != input {
		t.Fatalf("expected no change for bare $VAR, got %q", result)
	}
}

func TestLoad_WithEnvVarSubstitution(t *testing.T) {
	t.Setenv("TEST_GRIDBOT_BACKEND", "http://backend.test:7777")

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{
		"backend": {
			"baseUrl": "${TEST_GRIDBOT_BACKEND}"
		}
	}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.BaseURL != "http://backend.test:7777" {
		t.Fatalf("expected substituted URL, got %q", cfg.Backend.BaseURL)
	}
}

// --- Defaults ---

func TestDefaults_ReturnsValidConfig(t *testing.T) {
	cfg := Defaults()
	if cfg == nil {
		t.Fatal("defaults returned nil")
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}
	if cfg.Backend.BaseURL == "" {
		t.Fatal("backend URL should not be empty")
	}
	if cfg.Backend.Retry.MaxAttempts != 3 {
		t.Fatalf("default retry attempts should be 3, got %d", cfg.Backend.Retry.MaxAttempts)
	}
}
