// Package version carries build metadata, set with -ldflags at release time.
package version

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats the build metadata for --version output.
func String() string {
	return Version + " (" + Commit + ") built " + Date
}
