package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time with -ldflags "-X".
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info describes the running build.
type Info struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit,omitempty"`
	GoVersion string    `json:"go_version"`
	BuildDate time.Time `json:"build_date,omitempty"`
	Dirty     bool      `json:"dirty"`
}

// Get returns the build information, filling gaps from the VCS stamp the Go
// toolchain embeds in the binary.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
	}
	if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
		info.BuildDate = t
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.GitCommit == "" {
					info.GitCommit = s.Value
				}
			case "vcs.modified":
				info.Dirty = s.Value == "true"
			case "vcs.time":
				if info.BuildDate.IsZero() {
					if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
						info.BuildDate = t
					}
				}
			}
		}
	}

	if len(info.GitCommit) > 7 {
		info.GitCommit = info.GitCommit[:7]
	}
	return info
}

// IsRelease reports whether the build carries a clean release version.
func (i Info) IsRelease() bool {
	return i.Version != "dev" && !i.Dirty && !strings.Contains(i.Version, "dirty")
}

// Short returns version[-commit][-dirty].
func (i Info) Short() string {
	parts := []string{i.Version}
	if i.GitCommit != "" {
		parts = append(parts, i.GitCommit)
	}
	if i.Dirty {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "-")
}

// String returns the short version followed by the build date and Go version.
func (i Info) String() string {
	if i.BuildDate.IsZero() {
		return fmt.Sprintf("%s (%s)", i.Short(), i.GoVersion)
	}
	return fmt.Sprintf("%s (built %s, %s)", i.Short(), i.BuildDate.UTC().Format(time.RFC3339), i.GoVersion)
}

// UserAgent returns a User-Agent value of the form product/version (os/arch).
func UserAgent(product string) string {
	return fmt.Sprintf("%s/%s (%s/%s)", product, Get().Short(), runtime.GOOS, runtime.GOARCH)
}
