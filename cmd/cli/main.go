package main

import (
	"context"
	"log"
	"os"

	"github.com/driftlabs/driftfile/internal/buildinfo"
	"github.com/driftlabs/driftfile/internal/client/cli"
	"github.com/driftlabs/driftfile/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
