// Package version carries build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
	"strings"
)

// These variables are set via ldflags during build.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is a snapshot of the build metadata.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build metadata of the running binary.
func Get() Info {
	v := strings.TrimSpace(Version)
	if v == "" {
		v = "dev"
	}
	return Info{
		Version:   v,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Summary is the one-line form, e.g. "v1.2.0 (abc1234)".
func (i Info) Summary() string {
	if i.Commit != "" && i.Commit != "none" {
		short := i.Commit
		if len(short) > 7 {
			short = short[:7]
		}
		return fmt.Sprintf("%s (%s)", i.Version, short)
	}
	return i.Version
}

func (i Info) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "chatkit version %s\n", i.Version)
	fmt.Fprintf(&sb, "  commit: %s\n", i.Commit)
	fmt.Fprintf(&sb, "  built: %s\n", i.Date)
	fmt.Fprintf(&sb, "  go: %s\n", i.GoVersion)
	fmt.Fprintf(&sb, "  platform: %s\n", i.Platform)
	return sb.String()
}
