package edgepurge

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Credentials identifies the Cloudflare zone targeted by purge calls.
// Both fields must be non-empty for the system to count as configured;
// without them every purge and connectivity check short-circuits.
type Credentials struct {
	ZoneID   string
	APIToken string
}

// Configured reports whether both credential fields are present.
func (c Credentials) Configured() bool {
	return c.ZoneID != "" && c.APIToken != ""
}

// Config holds all configuration for an edgepurge instance.
type Config struct {
	Credentials Credentials

	AutoPurgeOnSave         bool // purge when a published post is saved
	PurgeAttachedImages     bool // include attached images and their variants
	PurgeContentImages      bool // include the first image found in content
	AutoPurgeOnMediaReplace bool // purge when a media file is replaced
	LogOperations           bool // record purge attempts in the operation log
	AsyncPurging            bool // defer triggered purges instead of inline dispatch

	SavePurgeDelay  time.Duration // delay for deferred post-save purges (default 2s)
	MediaPurgeDelay time.Duration // delay for deferred media purges (default 3s)

	Addr            string // listen address (default ":3100")
	SessionSecret   string // required when the HTTP surface is started
	LogDatabasePath string // operation log SQLite path (default "data/purgelog.db")
	APIBaseURL      string // Cloudflare API base (default api.cloudflare.com/client/v4)
}

// DefaultConfig returns a Config with every policy flag enabled, matching the
// behavior a fresh install should have. Credentials are left empty.
func DefaultConfig() Config {
	cfg := Config{
		AutoPurgeOnSave:         true,
		PurgeAttachedImages:     true,
		PurgeContentImages:      true,
		AutoPurgeOnMediaReplace: true,
		LogOperations:           true,
		AsyncPurging:            true,
	}
	cfg.setDefaults()
	return cfg
}

func (c *Config) setDefaults() {
	if c.SavePurgeDelay == 0 {
		c.SavePurgeDelay = 2 * time.Second
	}
	if c.MediaPurgeDelay == 0 {
		c.MediaPurgeDelay = 3 * time.Second
	}
	if c.Addr == "" {
		c.Addr = ":3100"
	}
	if c.LogDatabasePath == "" {
		c.LogDatabasePath = "data/purgelog.db"
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = "https://api.cloudflare.com/client/v4"
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithNotifier replaces the default in-memory notice queue sink. fn receives
// each one-shot success notice the coordinator emits.
func WithNotifier(fn func(string)) Option {
	return func(a *App) {
		a.notify = fn
	}
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// BoolEnvOr returns the boolean value of the environment variable key, or
// fallback if the variable is empty or unparsable.
func BoolEnvOr(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("edgepurge: required environment variable %s is not set", key)
	}
	return v
}
