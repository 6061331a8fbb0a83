// Package version carries build identity, stamped via -ldflags at release.
package version

import (
	"fmt"
	"log"
	"runtime"
)

var (
	Name        = "inmemory-db"
	Description = "Networked in-memory key/value store with TTL, snapshots and pub/sub"
	Version     = "v0.1.0"
	Commit      = "none"
	Date        = "unknown"
)

// PrintVersionInfo writes the startup banner. With extendedInfo it also
// reports the build environment.
func PrintVersionInfo(extendedInfo bool, vlog *log.Logger) {
	vlog.Printf("%s %s", Name, Version)
	vlog.Print(Description)

	if extendedInfo {
		vlog.Printf("  commit:  %s", Commit)
		vlog.Printf("  built:   %s", Date)
		vlog.Printf("  runtime: %s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	}
}

// String returns the single-line identity used in logs.
func String() string {
	return fmt.Sprintf("%s %s (%s)", Name, Version, Commit)
}
