package buildinfo

// Set via -ldflags at release time.
var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

// Short returns a single-line version string for --version output.
func Short() string {
	s := Version
	if Commit != "" {
		s += " (" + Commit + ")"
	}
	if BuiltAt != "" {
		s += " built " + BuiltAt
	}
	return s
}
