// Package config handles loading and validation of service configuration.
// Supports both development (env vars) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"golang.org/x/mod/semver"
)

// Defaults applied when a setting is absent.
const (
	DefaultPort           = "8080"
	DefaultAPIVersion     = "v1.0.0"
	DefaultBackendTimeout = 30 * time.Second
	DefaultSearchDebounce = 500 * time.Millisecond
)

// Config holds all service configuration.
// Environment determines whether the backend settings load from env vars
// (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject   string
	StorefrontID string

	// SearchDebounce is the quiet period before a typed search is sent.
	SearchDebounce time.Duration

	// Backend connection (loaded from secrets in production)
	Backend BackendConfig
}

// BackendConfig locates the catalog/cart backend.
// In production, this is loaded from Secret Manager as JSON.
// In development, loaded from individual env vars or CONFIG_FILE.
type BackendConfig struct {
	URL        string   `json:"url"`         // e.g. http://10.0.0.4:8082
	APIVersion string   `json:"api_version"` // semver; the major selects /api/vN
	Timeout    Duration `json:"timeout"`

	// FingerprintTLS sends backend requests with a browser TLS fingerprint.
	FingerprintTLS bool `json:"fingerprint_tls,omitempty"`
}

// Duration is a time.Duration that reads from JSON as "30s" or as seconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration must be a string or number of seconds")
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	// If CONFIG_FILE is set, load everything from the JSON file
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	debounce, err := envDuration("SEARCH_DEBOUNCE", DefaultSearchDebounce)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:           envOrDefault("PORT", DefaultPort),
		Environment:    envOrDefault("ENVIRONMENT", "development"),
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		GCPProject:     os.Getenv("GCP_PROJECT"),
		StorefrontID:   os.Getenv("STOREFRONT_ID"),
		SearchDebounce: debounce,
	}

	// StorefrontID required in all environments
	if cfg.StorefrontID == "" {
		return nil, fmt.Errorf("STOREFRONT_ID environment variable required")
	}

	// Load backend config based on environment
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		err = cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading backend config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Use a struct that matches the JSON structure
	var fileConfig struct {
		Port           string        `json:"port"`
		Environment    string        `json:"environment"`
		LogLevel       string        `json:"log_level"`
		StorefrontID   string        `json:"storefront_id"`
		SearchDebounce Duration      `json:"search_debounce"`
		Backend        BackendConfig `json:"backend"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:           withDefault(fileConfig.Port, DefaultPort),
		Environment:    withDefault(fileConfig.Environment, "development"),
		LogLevel:       withDefault(fileConfig.LogLevel, "info"),
		StorefrontID:   fileConfig.StorefrontID,
		SearchDebounce: time.Duration(fileConfig.SearchDebounce),
		Backend:        fileConfig.Backend,
	}

	if cfg.StorefrontID == "" {
		return nil, fmt.Errorf("storefront_id is required")
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadFromSecretManager fetches backend config from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{storefront_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := c.SecretName()

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Backend); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}

	return nil
}

// SecretName is the Secret Manager resource holding the backend config.
func (c *Config) SecretName() string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", c.GCPProject, c.StorefrontID)
}

// loadFromEnv reads backend config from individual environment variables.
// Used in development mode for local testing.
func (c *Config) loadFromEnv() error {
	timeout, err := envDuration("BACKEND_TIMEOUT", 0)
	if err != nil {
		return err
	}

	c.Backend = BackendConfig{
		URL:        os.Getenv("BACKEND_URL"),
		APIVersion: os.Getenv("BACKEND_API_VERSION"),
		Timeout:    Duration(timeout),
	}

	if raw := os.Getenv("BACKEND_FINGERPRINT_TLS"); raw != "" {
		on, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("parsing BACKEND_FINGERPRINT_TLS: %w", err)
		}
		c.Backend.FingerprintTLS = on
	}

	return nil
}

// applyDefaults fills unset optional fields.
func (c *Config) applyDefaults() {
	if c.Backend.APIVersion == "" {
		c.Backend.APIVersion = DefaultAPIVersion
	}
	// Accept "1.2.0" as well as "v1.2.0"
	if !strings.HasPrefix(c.Backend.APIVersion, "v") {
		c.Backend.APIVersion = "v" + c.Backend.APIVersion
	}
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = Duration(DefaultBackendTimeout)
	}
	if c.SearchDebounce <= 0 {
		c.SearchDebounce = DefaultSearchDebounce
	}
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend url is required")
	}

	// Validate backend URL is well-formed and absolute
	u, err := url.Parse(c.Backend.URL)
	if err != nil {
		return fmt.Errorf("invalid backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid backend url %q: scheme must be http or https", c.Backend.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid backend url %q: missing host", c.Backend.URL)
	}

	if !semver.IsValid(c.Backend.APIVersion) {
		return fmt.Errorf("invalid backend api_version %q: must be semantic version", c.Backend.APIVersion)
	}

	return nil
}

// BackendBaseURL returns the root every backend path hangs off, e.g.
// http://10.0.0.4:8082/api/v1 for api_version v1.4.2.
func (c *Config) BackendBaseURL() string {
	return strings.TrimSuffix(c.Backend.URL, "/") + "/api/" + semver.Major(c.Backend.APIVersion)
}

// BackendTimeout returns the per-request timeout for backend calls.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.Timeout)
}

// envDuration parses a duration env var, returning def when unset.
func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
