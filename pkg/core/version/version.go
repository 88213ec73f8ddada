// ============================================================================
// chainfeed - gRPC market data access layer
// ============================================================================
//
// Package:     version
// Description: Build and release information for the chainfeed binaries
// Author:      Mike Stoffels
// Created:     2025-12-06
// License:     MIT
// ============================================================================

package version

import (
	"fmt"
	"runtime"
)

// Release version of the module
const Release = "0.3.0"

// Set at build time with -ldflags "-X github.com/msto63/chainfeed/pkg/core/version.Commit=..."
var (
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info describes the running binary
type Info struct {
	Binary    string `json:"binary" yaml:"binary"`
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

// Get returns the build information for binary
func Get(binary string) Info {
	return Info{
		Binary:    binary,
		Version:   Release,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

// String renders the info on one line
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, %s)", i.Binary, i.Version, i.Commit, i.BuildDate, i.GoVersion)
}
