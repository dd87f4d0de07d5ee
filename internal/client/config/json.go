package config

import (
	"encoding/json"
	"os"

	"github.com/driftlabs/driftfile/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Booleans are
// pointers so a file can set them to false explicitly while absent keys
// leave earlier layers untouched.
type JsonConfig struct {
	ServerURL     string `json:"server_url"`
	FilePath      string `json:"file_path"`
	Metadata      string `json:"metadata"`
	TimeLimit     int    `json:"time_limit"`
	DownloadLimit int    `json:"download_limit"`
	Encrypted     *bool  `json:"encrypted"`
	Authorization string `json:"authorization"`
	Bearer        string `json:"bearer"`
	PromptBearer  *bool  `json:"prompt_bearer"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Only keys present in the file are applied, so a partial file cannot reset
// defaults. Panics on read or unmarshal errors (caller should recover if
// desired).
func parseJson(cfg *Config) {
	// Resolve file path from flags.
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

	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.FilePath, jc.FilePath)
	setString(&cfg.Metadata, jc.Metadata)
	setInt(&cfg.TimeLimit, jc.TimeLimit)
	setInt(&cfg.DownloadLimit, jc.DownloadLimit)
	if jc.Encrypted != nil {
		cfg.Encrypted = *jc.Encrypted
	}
	setString(&cfg.Authorization, jc.Authorization)
	setString(&cfg.Bearer, jc.Bearer)
	if jc.PromptBearer != nil {
		cfg.PromptBearer = *jc.PromptBearer
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
