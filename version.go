package shoptl

import (
	"runtime/debug"
	"sync"
)

const (
	// Name is the command and User-Agent name.
	Name = "shoptl"

	// Description is the one-line summary shown in help output.
	Description = "Translate Shopify product exports without breaking their layout"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/ZaguanLabs/shoptl.Version=1.2.0 -X github.com/ZaguanLabs/shoptl.GitCommit=$(git rev-parse HEAD)"
var (
	Version   = "0.3.0"
	GitCommit = ""
	BuildDate = ""
)

var vcsOnce sync.Once

// fillFromBuildInfo falls back to the VCS stamp the go tool embeds when
// ldflags did not set the commit or date.
func fillFromBuildInfo() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if GitCommit == "" {
				GitCommit = s.Value
			}
		case "vcs.time":
			if BuildDate == "" {
				BuildDate = s.Value
			}
		}
	}
}

// FullVersion returns Version with the short commit appended when known,
// e.g. "0.3.0+1a2b3c4".
func FullVersion() string {
	vcsOnce.Do(fillFromBuildInfo)
	if GitCommit == "" {
		return Version
	}
	short := GitCommit
	if len(short) > 7 {
		short = short[:7]
	}
	return Version + "+" + short
}

// BuildTime returns the build date, or "" when unknown.
func BuildTime() string {
	vcsOnce.Do(fillFromBuildInfo)
	return BuildDate
}

// UserAgent returns the User-Agent sent to translation services.
func UserAgent() string {
	return Name + "/" + Version
}
