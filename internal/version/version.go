// Package version exposes build information injected at link time.
package version

// set via -ldflags at build time, e.g.
//
//	go build -ldflags "-X github.com/khomabhena/h5-airtime/internal/version.version=1.2.0"
var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

// Info holds the version and build details for the binaries in this module.
type Info struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	GitCommit string `json:"git_commit"`
}

// Get returns the build information for the current binary.
func Get() Info {
	return Info{
		Version:   version,
		BuildDate: buildDate,
		GitCommit: gitCommit,
	}
}
