package gotlex

import "runtime/debug"

const (
	// Name is the command and package name.
	Name = "gotlex"

	// Description is the one-line summary shown in help output.
	Description = "French lookup tools with a shared, namespaced cache"

	// Repository is sent in the User-Agent of page requests.
	Repository = "https://github.com/ZaguanLabs/gotlex"
)

// Release metadata. Set at build time with
//
//	go build -ldflags "-X github.com/ZaguanLabs/gotlex.Version=1.2.0 -X github.com/ZaguanLabs/gotlex.GitCommit=$(git rev-parse HEAD)"
var (
	Version   = "0.1.0"
	GitCommit = ""
	BuildDate = ""
)

// Commit returns GitCommit, or the VCS revision the Go toolchain embedded
// in the binary when it was not set.
func Commit() string {
	if GitCommit != "" {
		return GitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

// FullVersion returns Version with the short commit appended, e.g. "0.1.0+1a2b3c4".
func FullVersion() string {
	v := Version
	if c := Commit(); c != "" {
		if len(c) > 7 {
			c = c[:7]
		}
		v += "+" + c
	}
	return v
}

// UserAgent identifies page requests made by sources.
func UserAgent() string {
	return Name + "/" + FullVersion() + " (+" + Repository + ")"
}
