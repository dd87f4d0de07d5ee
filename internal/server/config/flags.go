package config

import (
	"flag"
	"os"

	"github.com/driftlabs/driftfile/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-l string   public base URL for download links
//	-t string   storage driver ("fs" or "s3")
//	-f string   filesystem storage root
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 endpoint (e.g., "http://127.0.0.1:9000")
//	-u string   S3 access key
//	-p string   S3 secret key
//	-m string   meta driver ("postgres" or "memory")
//	-d string   PostgreSQL DSN
//	-s string   bearer HMAC secret key
//
// Sizes, durations and the remaining toggles are configured through the
// environment or the JSON file.
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes
//     using flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-l", "-t", "-f", "-b", "-g", "-e", "-u", "-p", "-m", "-d", "-s"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.Addr, "a", config.Addr, "address and port to run server")
	fs.StringVar(&config.BaseURL, "l", config.BaseURL, "public base URL for download links")
	fs.StringVar(&config.StorageDriver, "t", config.StorageDriver, "storage driver (fs or s3)")
	fs.StringVar(&config.FSRoot, "f", config.FSRoot, "filesystem storage root")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3Endpoint, "e", config.S3Endpoint, "S3 endpoint")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.MetaDriver, "m", config.MetaDriver, "meta driver (postgres or memory)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.BearerSecret, "s", config.BearerSecret, "bearer secret key")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
