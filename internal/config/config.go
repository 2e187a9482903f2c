package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Gateway backend: "rest" talks to the real services, "memory" runs
	// against the seeded in-process stand-in.
	Backend string

	// REST gateway
	BaseURL  string
	APIToken string
	Timeout  time.Duration

	// Profiles: optional YAML file mapping installation names to
	// connection settings, selected by Profile.
	ProfileFile string
	Profile     string
}

// Profiles is the on-disk shape of the profile file.
type Profiles struct {
	Profiles map[string]ProfileEntry `yaml:"profiles"`
}

type ProfileEntry struct {
	BaseURL  string `yaml:"base_url"`
	APIToken string `yaml:"api_token"`
}

func Load() *Config {
	return &Config{
		Backend:     getEnv("LAUNDRY_BACKEND", "rest"),
		BaseURL:     getEnv("LAUNDRY_BASE_URL", "http://localhost:8000"),
		APIToken:    getEnv("LAUNDRY_API_TOKEN", ""),
		Timeout:     getEnvDuration("LAUNDRY_TIMEOUT", 30*time.Second),
		ProfileFile: getEnv("LAUNDRY_PROFILE_FILE", ""),
		Profile:     getEnv("LAUNDRY_PROFILE", ""),
	}
}

// ApplyProfile overlays the selected profile's settings, if a profile file
// and name are configured. An explicit profile that is missing from the
// file is an error; no profile configured is not.
func (c *Config) ApplyProfile() error {
	if c.ProfileFile == "" || c.Profile == "" {
		return nil
	}
	data, err := os.ReadFile(c.ProfileFile)
	if err != nil {
		return fmt.Errorf("read profile file: %w", err)
	}
	var profiles Profiles
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return fmt.Errorf("parse profile file %s: %w", c.ProfileFile, err)
	}
	entry, ok := profiles.Profiles[c.Profile]
	if !ok {
		return fmt.Errorf("profile %q not found in %s", c.Profile, c.ProfileFile)
	}
	if entry.BaseURL != "" {
		c.BaseURL = entry.BaseURL
	}
	if entry.APIToken != "" {
		c.APIToken = entry.APIToken
	}
	return nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	switch c.Backend {
	case "rest", "memory":
	default:
		errors = append(errors, fmt.Sprintf("invalid backend '%s': must be one of [rest memory]", c.Backend))
	}

	if c.Backend == "rest" {
		if c.BaseURL == "" {
			errors = append(errors, "base URL cannot be empty when using the rest backend")
		} else if parsed, err := url.Parse(c.BaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid base URL '%s': %v", c.BaseURL, err))
		} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid base URL scheme '%s': must be 'http' or 'https'", parsed.Scheme))
		}
	}

	if c.Timeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid timeout %v: must be at least 1 second", c.Timeout))
	} else if c.Timeout > 10*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid timeout %v: must be at most 10 minutes", c.Timeout))
	}

	if c.Profile != "" && c.ProfileFile == "" {
		errors = append(errors, fmt.Sprintf("profile '%s' selected but no profile file configured", c.Profile))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
