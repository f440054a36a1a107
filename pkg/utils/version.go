// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

import "fmt"

// Build information, set with -ldflags -X by the release build.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// IsDevBuild reports whether the binary was built without release ldflags.
func IsDevBuild() bool {
	return Version == "dev"
}

// BuildInfo formats the build information printed by `stacks version`.
func BuildInfo() string {
	info := fmt.Sprintf("stacks %s\nSha: %s\nBuilt at: %s\n", Version, Sha, Buildtime)
	if IsDevBuild() {
		info += "Development build\n"
	}
	return info
}
