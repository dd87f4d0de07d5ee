package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables, loading a
// local .env file first when one exists. Malformed numeric or duration
// values panic, matching the JSON and flag layers.
func parseEnv(config *Config) {
	// missing .env just means plain environment variables
	_ = godotenv.Load()

	setEnvString(&config.Addr, "ADDR")
	setEnvString(&config.BaseURL, "BASE_URL")

	setEnvString(&config.StorageDriver, "STORAGE_DRIVER")
	setEnvString(&config.FSRoot, "FS_ROOT")
	setEnvString(&config.S3Bucket, "S3_BUCKET")
	setEnvString(&config.S3Region, "S3_REGION")
	setEnvString(&config.S3Endpoint, "S3_ENDPOINT")
	setEnvString(&config.S3AccessKey, "S3_ACCESS_KEY")
	setEnvString(&config.S3SecretKey, "S3_SECRET_KEY")
	setEnvBool(&config.S3PathStyle, "S3_PATH_STYLE")

	setEnvString(&config.MetaDriver, "META_DRIVER")
	setEnvString(&config.DatabaseDSN, "DATABASE_DSN")

	setEnvInt64(&config.MaxFileSize, "MAX_FILE_SIZE")
	setEnvDuration(&config.MaxExpiry, "MAX_EXPIRY")
	setEnvDuration(&config.DefaultExpiry, "DEFAULT_EXPIRY")
	setEnvInt(&config.MaxDownloads, "MAX_DOWNLOADS")
	setEnvInt(&config.DefaultDownloads, "DEFAULT_DOWNLOADS")

	setEnvInt64(&config.MultipartThreshold, "MULTIPART_THRESHOLD")
	setEnvInt64(&config.TargetPartSize, "TARGET_PART_SIZE")
	setEnvDuration(&config.SessionWindow, "SESSION_WINDOW")

	setEnvDuration(&config.SignedURLExpiry, "SIGNED_URL_EXPIRY")

	setEnvDuration(&config.JanitorInterval, "JANITOR_INTERVAL")
	setEnvInt(&config.JanitorBatch, "JANITOR_BATCH")

	setEnvBool(&config.RequireBearer, "REQUIRE_BEARER")
	setEnvString(&config.BearerSecret, "BEARER_SECRET")

	setEnvDuration(&config.ShutdownTimeout, "SHUTDOWN_TIMEOUT")
}

func setEnvString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setEnvInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		*dst = n
	}
}

func setEnvInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			panic(err)
		}
		*dst = n
	}
}

func setEnvBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		*dst = b
	}
}

func setEnvDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		*dst = d
	}
}
