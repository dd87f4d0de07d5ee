// Package buildinfo exposes build metadata stamped in at link time.
//
// The values are populated via -ldflags, for example:
//
//	go build -ldflags "-X github.com/driftlabs/driftfile/internal/buildinfo.buildVersion=v1.2.3"
package buildinfo

import (
	"fmt"
	"io"
)

var (
	buildVersion = "N/A"
	buildDate    = "N/A"
	buildCommit  = "N/A"
)

// PrintBuildData writes the stamped build metadata to w, one line per value.
func PrintBuildData(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", buildVersion)
	fmt.Fprintf(w, "Build date: %s\n", buildDate)
	fmt.Fprintf(w, "Build commit: %s\n", buildCommit)
}
