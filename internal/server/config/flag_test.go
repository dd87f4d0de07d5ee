package config

import (
	"flag"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	// Test cases
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-l", "https://files.example.com",
			"-t", "s3", "-f", "/var/lib/driftfile",
			"-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
			"-u", "user", "-p", "password",
			"-m", "postgres", "-d", "db", "-s", "secret",
		}, expectPanic: false,
			expected: &Config{
				Addr:          "127.0.0.1:9090",
				BaseURL:       "https://files.example.com",
				StorageDriver: "s3",
				FSRoot:        "/var/lib/driftfile",
				S3Bucket:      "bucket",
				S3Region:      "us-west-1",
				S3Endpoint:    "http://endpoint",
				S3AccessKey:   "user",
				S3SecretKey:   "password",
				MetaDriver:    "postgres",
				DatabaseDSN:   "db",
				BearerSecret:  "secret",
			}},
		{name: "Test2 unknown flags are filtered out", args: []string{"cmd",
			"-a", ":7070", "-zzz", "nope",
		}, expectPanic: false,
			expected: &Config{
				Addr: ":7070",
			}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {

				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
