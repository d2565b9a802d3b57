package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so tests don't see the host's.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "PORT", "ENVIRONMENT", "LOG_LEVEL", "GCP_PROJECT",
		"STOREFRONT_ID", "SEARCH_DEBOUNCE", "BACKEND_URL", "BACKEND_API_VERSION",
		"BACKEND_TIMEOUT", "BACKEND_FINGERPRINT_TLS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("STOREFRONT_ID", "qkart")
	t.Setenv("BACKEND_URL", "http://10.0.0.4:8082/")
	t.Setenv("BACKEND_API_VERSION", "1.4.2")
	t.Setenv("BACKEND_TIMEOUT", "5s")
	t.Setenv("BACKEND_FINGERPRINT_TLS", "true")
	t.Setenv("SEARCH_DEBOUNCE", "250ms")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %s, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
	if cfg.StorefrontID != "qkart" {
		t.Errorf("StorefrontID = %s, want qkart", cfg.StorefrontID)
	}
	if cfg.Backend.APIVersion != "v1.4.2" {
		t.Errorf("APIVersion = %s, want v1.4.2", cfg.Backend.APIVersion)
	}
	if got := cfg.BackendBaseURL(); got != "http://10.0.0.4:8082/api/v1" {
		t.Errorf("BackendBaseURL() = %s, want http://10.0.0.4:8082/api/v1", got)
	}
	if cfg.BackendTimeout() != 5*time.Second {
		t.Errorf("BackendTimeout() = %v, want 5s", cfg.BackendTimeout())
	}
	if !cfg.Backend.FingerprintTLS {
		t.Error("FingerprintTLS = false, want true")
	}
	if cfg.SearchDebounce != 250*time.Millisecond {
		t.Errorf("SearchDebounce = %v, want 250ms", cfg.SearchDebounce)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("STOREFRONT_ID", "qkart")
	t.Setenv("BACKEND_URL", "http://localhost:8082")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != DefaultPort {
		t.Errorf("Port = %s, want %s", cfg.Port, DefaultPort)
	}
	if cfg.Environment != "development" {
		t.Errorf("Environment = %s, want development", cfg.Environment)
	}
	if cfg.Backend.APIVersion != DefaultAPIVersion {
		t.Errorf("APIVersion = %s, want %s", cfg.Backend.APIVersion, DefaultAPIVersion)
	}
	if cfg.BackendTimeout() != DefaultBackendTimeout {
		t.Errorf("BackendTimeout() = %v, want %v", cfg.BackendTimeout(), DefaultBackendTimeout)
	}
	if cfg.SearchDebounce != DefaultSearchDebounce {
		t.Errorf("SearchDebounce = %v, want %v", cfg.SearchDebounce, DefaultSearchDebounce)
	}
	if cfg.Backend.FingerprintTLS {
		t.Error("FingerprintTLS should default to false")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing storefront id",
			env:     map[string]string{"BACKEND_URL": "http://localhost:8082"},
			wantErr: "STOREFRONT_ID",
		},
		{
			name:    "missing backend url",
			env:     map[string]string{"STOREFRONT_ID": "qkart"},
			wantErr: "backend url is required",
		},
		{
			name:    "relative backend url",
			env:     map[string]string{"STOREFRONT_ID": "qkart", "BACKEND_URL": "localhost:8082"},
			wantErr: "scheme must be http or https",
		},
		{
			name: "invalid api version",
			env: map[string]string{
				"STOREFRONT_ID":       "qkart",
				"BACKEND_URL":         "http://localhost:8082",
				"BACKEND_API_VERSION": "one",
			},
			wantErr: "must be semantic version",
		},
		{
			name: "invalid timeout",
			env: map[string]string{
				"STOREFRONT_ID":   "qkart",
				"BACKEND_URL":     "http://localhost:8082",
				"BACKEND_TIMEOUT": "soon",
			},
			wantErr: "BACKEND_TIMEOUT",
		},
		{
			name: "invalid fingerprint flag",
			env: map[string]string{
				"STOREFRONT_ID":           "qkart",
				"BACKEND_URL":             "http://localhost:8082",
				"BACKEND_FINGERPRINT_TLS": "maybe",
			},
			wantErr: "BACKEND_FINGERPRINT_TLS",
		},
		{
			name: "production without project",
			env: map[string]string{
				"STOREFRONT_ID": "qkart",
				"ENVIRONMENT":   "production",
			},
			wantErr: "GCP_PROJECT required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	content := `{
		"port": "3000",
		"log_level": "warn",
		"storefront_id": "qkart",
		"search_debounce": "300ms",
		"backend": {
			"url": "https://api.qkart.example",
			"api_version": "v2.1.0",
			"timeout": 12,
			"fingerprint_tls": true
		}
	}`
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("Port = %s, want 3000", cfg.Port)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %s, want warn", cfg.LogLevel)
	}
	if cfg.SearchDebounce != 300*time.Millisecond {
		t.Errorf("SearchDebounce = %v, want 300ms", cfg.SearchDebounce)
	}
	if got := cfg.BackendBaseURL(); got != "https://api.qkart.example/api/v2" {
		t.Errorf("BackendBaseURL() = %s, want https://api.qkart.example/api/v2", got)
	}
	if cfg.BackendTimeout() != 12*time.Second {
		t.Errorf("BackendTimeout() = %v, want 12s", cfg.BackendTimeout())
	}
	if !cfg.Backend.FingerprintTLS {
		t.Error("FingerprintTLS = false, want true")
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"malformed JSON", `{"storefront_id":`, "parsing config file"},
		{"missing storefront id", `{"backend":{"url":"http://localhost:8082"}}`, "storefront_id is required"},
		{"bad duration", `{"storefront_id":"q","backend":{"url":"http://h","timeout":"fast"}}`, "invalid duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := filepath.Join(t.TempDir(), "config.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			t.Setenv("CONFIG_FILE", path)

			_, err := Load(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.json"))

	_, err := Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("error = %v, want reading config file error", err)
	}
}

func TestSecretName(t *testing.T) {
	cfg := &Config{GCPProject: "shop-prod", StorefrontID: "qkart"}
	want := "projects/shop-prod/secrets/qkart/versions/latest"
	if got := cfg.SecretName(); got != want {
		t.Errorf("SecretName() = %s, want %s", got, want)
	}
}

func TestDurationJSON(t *testing.T) {
	var d Duration
	if err := json.Unmarshal([]byte(`"1m30s"`), &d); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if time.Duration(d) != 90*time.Second {
		t.Errorf("Duration = %v, want 1m30s", time.Duration(d))
	}

	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `"1m30s"` {
		t.Errorf("Marshal = %s, want \"1m30s\"", out)
	}
}
