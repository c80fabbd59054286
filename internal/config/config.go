package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultPort is where the dashboard listens unless PERMITBOARD_PORT is set.
	DefaultPort = 8090
	// DefaultPollInterval is the slow cycle that refetches /api/status.
	DefaultPollInterval = 2 * time.Second
	// DefaultTickInterval is the fast cycle that re-renders elapsed times.
	DefaultTickInterval = time.Second
	// DefaultRequestTimeoutSeconds bounds each backend request.
	DefaultRequestTimeoutSeconds = 10

	etcEnvFilePath = "/etc/permitboard/permitboard.env"
	cwdEnvFilePath = ".env"
)

// Config holds all configuration for the permitboard dashboard.
type Config struct {
	APIURL                string
	Host                  string
	Port                  int
	Kiosk                 bool
	PollInterval          time.Duration
	TickInterval          time.Duration
	RequestTimeoutSeconds int
	SiteFile              string   // Optional: YAML site description
	AllowedIPs            []string // Empty allows every source
	Site                  Site
}

// Load reads configuration with the following precedence order:
//  1. OS environment variables (highest priority)
//  2. .env file in current working directory (if present)
//  3. /etc/permitboard/permitboard.env (if present)
//  4. Default values (lowest priority)
//
// Required fields are validated and the site file, if any, is loaded.
func Load() (*Config, error) {
	return load(cwdEnvFilePath, etcEnvFilePath)
}

// load reads envFiles in priority order. loadEnvFile never overrides a set
// variable, so each file only fills gaps left by the ones before it.
func load(envFiles ...string) (*Config, error) {
	for _, path := range envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := loadEnvFile(path); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}

	cfg := &Config{
		APIURL:                strings.TrimSuffix(strings.TrimSpace(os.Getenv("PERMITBOARD_API_URL")), "/"),
		Host:                  getEnvString("PERMITBOARD_HOST", "127.0.0.1"),
		Port:                  getEnvInt("PERMITBOARD_PORT", DefaultPort),
		Kiosk:                 getEnvBool("PERMITBOARD_KIOSK", false),
		PollInterval:          getEnvMillis("PERMITBOARD_POLL_INTERVAL_MS", DefaultPollInterval),
		TickInterval:          getEnvMillis("PERMITBOARD_TICK_INTERVAL_MS", DefaultTickInterval),
		RequestTimeoutSeconds: getEnvInt("PERMITBOARD_REQUEST_TIMEOUT_SECONDS", DefaultRequestTimeoutSeconds),
		SiteFile:              os.Getenv("PERMITBOARD_SITE_FILE"),
		AllowedIPs:            getEnvList("PERMITBOARD_ALLOWED_IPS"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	site, err := LoadSite(cfg.SiteFile)
	if err != nil {
		return nil, err
	}
	cfg.Site = site

	return cfg, nil
}

// Validate checks required fields and ranges.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("PERMITBOARD_API_URL is required")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("PERMITBOARD_API_URL must be an http(s) URL, got '%s'", c.APIURL)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PERMITBOARD_PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("PERMITBOARD_POLL_INTERVAL_MS must be at least 100, got %d", c.PollInterval.Milliseconds())
	}
	if c.TickInterval < 100*time.Millisecond {
		return fmt.Errorf("PERMITBOARD_TICK_INTERVAL_MS must be at least 100, got %d", c.TickInterval.Milliseconds())
	}
	if c.RequestTimeoutSeconds < 1 {
		return fmt.Errorf("PERMITBOARD_REQUEST_TIMEOUT_SECONDS must be at least 1, got %d", c.RequestTimeoutSeconds)
	}
	return nil
}

// ListenAddr is the host:port the dashboard binds.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RequestTimeout is the per-request backend timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an integer or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvMillis reads a millisecond count as a duration.
func getEnvMillis(key string, defaultValue time.Duration) time.Duration {
	ms := getEnvInt(key, -1)
	if ms < 0 {
		return defaultValue
	}
	return time.Duration(ms) * time.Millisecond
}

// getEnvBool returns the environment variable as a boolean or a default.
// Accepts "true", "1", "yes" (case-insensitive) as true and "false", "0",
// "no" as false; anything else yields the default.
func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
