package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/driftlabs/driftfile/internal/flagx"
	"github.com/driftlabs/driftfile/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "24h" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, the fields present in the file
// are copied into the runtime Config; absent fields leave the current
// values untouched.
type JsonConfig struct {
	Addr    string `json:"addr"`
	BaseURL string `json:"base_url"`

	StorageDriver string `json:"storage_driver"`
	FSRoot        string `json:"fs_root"`
	S3Bucket      string `json:"s3_bucket"`
	S3Region      string `json:"s3_region"`
	S3Endpoint    string `json:"s3_endpoint"`
	S3AccessKey   string `json:"s3_access_key"`
	S3SecretKey   string `json:"s3_secret_key"`
	S3PathStyle   *bool  `json:"s3_path_style"`

	MetaDriver  string `json:"meta_driver"`
	DatabaseDSN string `json:"database_dsn"`

	MaxFileSize      int64          `json:"max_file_size"`
	MaxExpiry        timex.Duration `json:"max_expiry"`
	DefaultExpiry    timex.Duration `json:"default_expiry"`
	MaxDownloads     int            `json:"max_downloads"`
	DefaultDownloads int            `json:"default_downloads"`

	MultipartThreshold int64          `json:"multipart_threshold"`
	TargetPartSize     int64          `json:"target_part_size"`
	SessionWindow      timex.Duration `json:"session_window"`

	SignedURLExpiry timex.Duration `json:"signed_url_expiry"`

	JanitorInterval timex.Duration `json:"janitor_interval"`
	JanitorBatch    int            `json:"janitor_batch"`

	RequireBearer *bool  `json:"require_bearer"`
	BearerSecret  string `json:"bearer_secret"`

	ShutdownTimeout timex.Duration `json:"shutdown_timeout"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is:
//
//	The -c or -config command-line flags.
//	If it is not set, no JSON file is loaded.
//
// If the file cannot be read or contains invalid JSON, the function panics.
// The caller is expected to merge these values with defaults, environment
// variables and command-line flags as part of the full configuration
// process.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.Addr, c.Addr)
	setString(&config.BaseURL, c.BaseURL)
	setString(&config.StorageDriver, c.StorageDriver)
	setString(&config.FSRoot, c.FSRoot)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3Endpoint, c.S3Endpoint)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	if c.S3PathStyle != nil {
		config.S3PathStyle = *c.S3PathStyle
	}
	setString(&config.MetaDriver, c.MetaDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setInt64(&config.MaxFileSize, c.MaxFileSize)
	setDuration(&config.MaxExpiry, c.MaxExpiry)
	setDuration(&config.DefaultExpiry, c.DefaultExpiry)
	setInt(&config.MaxDownloads, c.MaxDownloads)
	setInt(&config.DefaultDownloads, c.DefaultDownloads)
	setInt64(&config.MultipartThreshold, c.MultipartThreshold)
	setInt64(&config.TargetPartSize, c.TargetPartSize)
	setDuration(&config.SessionWindow, c.SessionWindow)
	setDuration(&config.SignedURLExpiry, c.SignedURLExpiry)
	setDuration(&config.JanitorInterval, c.JanitorInterval)
	setInt(&config.JanitorBatch, c.JanitorBatch)
	if c.RequireBearer != nil {
		config.RequireBearer = *c.RequireBearer
	}
	setString(&config.BearerSecret, c.BearerSecret)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
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

func setInt64(dst *int64, v int64) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
