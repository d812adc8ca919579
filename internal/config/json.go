package config

import (
	"encoding/json"
	"os"
	"time"

	"fieldagent/internal/flagx"
	"fieldagent/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "10m"
// or as integer nanoseconds. Zero-valued fields leave the runtime Config
// untouched.
type JsonConfig struct {
	APIBaseURL        string         `json:"api_base_url"`
	DataDir           string         `json:"data_dir"`
	CacheDir          string         `json:"cache_dir"`
	TempDir           string         `json:"temp_dir"`
	AgentPath         string         `json:"agent_path"`
	DebounceInterval  timex.Duration `json:"debounce_interval"`
	DisableFlagWindow timex.Duration `json:"disable_flag_window"`
	LivenessInterval  timex.Duration `json:"liveness_interval"`
	ReportInterval    timex.Duration `json:"report_interval"`
	UploadBatchSize   int            `json:"upload_batch_size"`
	GeoEndpoint       string         `json:"geo_endpoint"`
}

// parseJson overlays cfg with values loaded from the JSON file named by the
// -c/-config flags. When no file is named the function is a no-op; read and
// unmarshal errors panic (caller may recover).
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.CacheDir != "" {
		cfg.CacheDir = jc.CacheDir
	}
	if jc.TempDir != "" {
		cfg.TempDir = jc.TempDir
	}
	if jc.AgentPath != "" {
		cfg.AgentPath = jc.AgentPath
	}
	if jc.DebounceInterval.Duration != 0 {
		cfg.DebounceInterval = time.Duration(jc.DebounceInterval.Duration)
	}
	if jc.DisableFlagWindow.Duration != 0 {
		cfg.DisableFlagWindow = time.Duration(jc.DisableFlagWindow.Duration)
	}
	if jc.LivenessInterval.Duration != 0 {
		cfg.LivenessInterval = time.Duration(jc.LivenessInterval.Duration)
	}
	if jc.ReportInterval.Duration != 0 {
		cfg.ReportInterval = time.Duration(jc.ReportInterval.Duration)
	}
	if jc.UploadBatchSize > 0 {
		cfg.UploadBatchSize = jc.UploadBatchSize
	}
	if jc.GeoEndpoint != "" {
		cfg.GeoEndpoint = jc.GeoEndpoint
	}
}
