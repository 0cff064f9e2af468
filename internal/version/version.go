// Package version carries build identification, overridable at link time via
// -ldflags "-X".
package version

var (
	// Version is the release version.
	Version = "1.0.0"
	// BuildTime is set by the build pipeline.
	BuildTime = "unknown"
)
