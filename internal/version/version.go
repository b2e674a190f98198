// Package version holds build metadata injected via ldflags.
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// UserAgent identifies outbound requests to the enrichment agents.
func UserAgent() string {
	return "eshoplite/" + Version + " (" + Commit + ")"
}
