// Package version carries build metadata stamped in with -ldflags -X.
package version //nolint:revive // build metadata lives under this conventional name

//nolint:gochecknoglobals // set at link time
var (
	Repository = "github.com/pitabwire/l10n"
	Version    = "dev"
	Commit     string
	Date       string
)

// String renders the build metadata on one line.
func String() string {
	out := Repository + " " + Version
	if Commit != "" {
		out += " (" + Commit
		if Date != "" {
			out += ", " + Date
		}
		out += ")"
	}
	return out
}
