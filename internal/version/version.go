// internal/version/version.go

// Package version exposes the build-time protocol version string.
package version

// Set at build time via -ldflags "-X github.com/eltmon/codies/internal/version.version=...".
var version string

// Version returns the build version, or "(devel)" when unset.
func Version() string {
	if version == "" {
		return "(devel)"
	}
	return version
}

// Set reports whether a build version was injected.
func Set() bool {
	return version != ""
}
