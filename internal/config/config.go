// Package config assembles runtime settings for the fieldagent binaries.
// Values are layered: defaults, then an optional JSON file, then flags.
package config

import "time"

// Config holds runtime settings shared by the agent and the task hook.
//
// Units: all intervals are time.Duration values.
type Config struct {
	// APIBaseURL is the base URL of the tracking backend.
	APIBaseURL string

	// DataDir holds durable app state: prefs file, secure store, track buffer.
	DataDir string
	// CacheDir and TempDir hold disposable state; both are swept on purge.
	CacheDir string
	TempDir  string

	// AgentPath is the executable started by the task-removal hook when the
	// restart policy decides the background worker must come back.
	AgentPath string

	// DebounceInterval is the quiescence window of the deployment-code
	// validator. The 1s default mirrors the historical behavior; no stricter
	// semantics are implied.
	DebounceInterval time.Duration

	// DisableFlagWindow is how long the background-service disable flag stays
	// valid after its timestamp. Past the window the flag is treated as stale.
	DisableFlagWindow time.Duration

	// LivenessInterval is the watchdog refresh period.
	LivenessInterval time.Duration

	// ReportInterval is how often a location fix is sampled.
	ReportInterval time.Duration

	// UploadBatchSize caps how many fixes are uploaded per drain attempt.
	UploadBatchSize int

	// GeoEndpoint is the location source queried by the default sampler.
	GeoEndpoint string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080"
	c.DataDir = "data"
	c.CacheDir = "cache"
	c.TempDir = "tmp"
	c.AgentPath = "fieldagent"
	c.DebounceInterval = 1000 * time.Millisecond
	c.DisableFlagWindow = 10 * time.Minute
	c.LivenessInterval = 30 * time.Second
	c.ReportInterval = 15 * time.Second
	c.UploadBatchSize = 50
	c.GeoEndpoint = "http://ip-api.com/json"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
