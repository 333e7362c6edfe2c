package observability

// Build identification, stamped via -ldflags at release time and surfaced
// through the startup log and the version endpoint.
var (
	Version = "dev"
	Commit  = "none"
	Date    = ""
)
