package config

import (
	"flag"
	"os"

	"github.com/driftlabs/driftfile/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the transfer server (default from Config)
//	-f string   path of the file to upload
//	-m string   metadata blob stored with the file (defaults to the file name)
//	-t int      expiry in seconds (0 = server default)
//	-d int      download limit (0 = server default)
//	-e          payload is already encrypted and framed
//	-k string   authorization value registered for an encrypted upload
//	-b string   bearer token for servers requiring upload identity
//	-p          prompt for the bearer token without echo
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-f", "-m", "-t", "-d", "-e", "-k", "-b", "-p"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the transfer server")
	fs.StringVar(&cfg.FilePath, "f", cfg.FilePath, "path of the file to upload")
	fs.StringVar(&cfg.Metadata, "m", cfg.Metadata, "metadata stored with the file")
	fs.IntVar(&cfg.TimeLimit, "t", cfg.TimeLimit, "expiry in seconds (0 = server default)")
	fs.IntVar(&cfg.DownloadLimit, "d", cfg.DownloadLimit, "download limit (0 = server default)")
	fs.BoolVar(&cfg.Encrypted, "e", cfg.Encrypted, "payload is already encrypted and framed")
	fs.StringVar(&cfg.Authorization, "k", cfg.Authorization, "authorization value for an encrypted upload")
	fs.StringVar(&cfg.Bearer, "b", cfg.Bearer, "bearer token")
	fs.BoolVar(&cfg.PromptBearer, "p", cfg.PromptBearer, "prompt for the bearer token without echo")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
