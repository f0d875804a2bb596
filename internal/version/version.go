// Package version exposes build metadata stamped at link time via
// -ldflags "-X github.com/kensaku-io/kensaku/internal/version.Version=...".
package version

var (
	// Version is the release the binary was built from.
	Version = "dev"
	// Commit is the git revision.
	Commit = "unknown"
	// Date is the build timestamp.
	Date = "unknown"
)
