package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dkotenko/addrhub/internal/flagx"
	"github.com/dkotenko/addrhub/internal/timex"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling. It relies
// on timex.Duration so intervals can be given as "30s" or as integer
// nanoseconds.
type jsonConfig struct {
	APIEndpoint       string         `json:"api_endpoint"`
	DataDir           string         `json:"data_dir"`
	DatabaseFile      string         `json:"database_file"`
	ReconcileInterval timex.Duration `json:"reconcile_interval"`
}

// parseJSON overlays cfg with values from the file named by -c/-config.
// Absent flags mean no JSON is loaded. Only fields present in the file
// override the current values.
func parseJSON(cfg *Config) {
	path := flagx.JSONConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.APIEndpoint != "" {
		cfg.APIEndpoint = jc.APIEndpoint
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.DatabaseFile != "" {
		cfg.DatabaseFile = jc.DatabaseFile
	}
	if jc.ReconcileInterval.Duration != 0 {
		cfg.ReconcileInterval = time.Duration(jc.ReconcileInterval.Duration)
	}
}
