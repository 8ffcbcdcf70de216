package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadProviderConfig(t *testing.T) {
	path := writeFile(t, "healthcheck-provider.yaml", `provider: route53
settings:
  region: "eu-west-1"
  access_key_id: "AKIDEXAMPLE"
  secret_access_key: "secret"
  max_attempts: "5"
`)

	cfg, err := LoadProviderConfigFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Provider != "route53" {
		t.Errorf("expected provider 'route53', got %q", cfg.Provider)
	}
	if cfg.Settings["region"] != "eu-west-1" {
		t.Errorf("expected region 'eu-west-1', got %q", cfg.Settings["region"])
	}
	if cfg.Settings["access_key_id"] != "AKIDEXAMPLE" {
		t.Errorf("expected access_key_id 'AKIDEXAMPLE', got %q", cfg.Settings["access_key_id"])
	}
	if cfg.Settings["max_attempts"] != "5" {
		t.Errorf("expected max_attempts '5', got %q", cfg.Settings["max_attempts"])
	}
}

func TestLoadProviderConfig_NoSettings(t *testing.T) {
	path := writeFile(t, "healthcheck-provider.yaml", "provider: route53\n")

	cfg, err := LoadProviderConfigFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Settings == nil {
		t.Error("expected an empty settings map, got nil")
	}
}

func TestLoadProviderConfig_MissingProvider(t *testing.T) {
	path := writeFile(t, "healthcheck-provider.yaml", `settings:
  region: "eu-west-1"
`)

	_, err := LoadProviderConfigFromPath(path)
	if err == nil {
		t.Fatal("expected error for missing provider field, got nil")
	}
}

func TestLoadProviderConfig_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_ACCESS_KEY", "key-from-env")
	t.Setenv("TEST_SECRET_KEY", "secret-from-env")

	path := writeFile(t, "healthcheck-provider.yaml", `provider: route53
settings:
  region: "eu-west-1"
  access_key_id: "${TEST_ACCESS_KEY}"
  secret_access_key: "${TEST_SECRET_KEY}"
`)

	cfg, err := LoadProviderConfigFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Settings["access_key_id"] != "key-from-env" {
		t.Errorf("expected access_key_id 'key-from-env', got %q", cfg.Settings["access_key_id"])
	}
	if cfg.Settings["secret_access_key"] != "secret-from-env" {
		t.Errorf("expected secret_access_key 'secret-from-env', got %q", cfg.Settings["secret_access_key"])
	}
	// Non-env values should remain unchanged.
	if cfg.Settings["region"] != "eu-west-1" {
		t.Errorf("expected region unchanged, got %q", cfg.Settings["region"])
	}
}

func TestLoadProviderConfig_EnvVarUnset(t *testing.T) {
	path := writeFile(t, "healthcheck-provider.yaml", `provider: route53
settings:
  session_token: "${UNSET_VAR_THAT_DOES_NOT_EXIST}"
  role_session_name: "literal-value"
`)

	cfg, err := LoadProviderConfigFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Unset env var expands to empty string.
	if cfg.Settings["session_token"] != "" {
		t.Errorf("expected session_token '' for unset env var, got %q", cfg.Settings["session_token"])
	}
	if cfg.Settings["role_session_name"] != "literal-value" {
		t.Errorf("expected role_session_name 'literal-value', got %q", cfg.Settings["role_session_name"])
	}
}

func TestLoadProviderConfig_FromEnvPath(t *testing.T) {
	path := writeFile(t, "custom.yaml", "provider: route53\n")
	t.Setenv("HEALTHCHECK_PROVIDER_PATH", path)

	cfg, err := LoadProviderConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider != "route53" {
		t.Errorf("expected provider 'route53', got %q", cfg.Provider)
	}
}

func TestLoadProviderConfig_MissingFile(t *testing.T) {
	_, err := LoadProviderConfigFromPath("/nonexistent/path/healthcheck-provider.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
