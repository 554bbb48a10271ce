// Package version carries build provenance for the quill binary. Release
// builds stamp the variables through -ldflags; anything left unset falls
// back to what the Go toolchain embedded in the build info.
package version

import "runtime/debug"

// Stamped at build time, e.g.
//
//	go build -ldflags "-X github.com/quillform/quill/version.GitRelease=v0.3.0"
var (
	GitRelease    = ""
	GitCommit     = ""
	GitCommitDate = ""
	GoInfo        = ""
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		if GoInfo == "" {
			GoInfo = info.GoVersion
		}
		if GitRelease == "" {
			GitRelease = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if GitCommit == "" {
					GitCommit = s.Value
				}
			case "vcs.time":
				if GitCommitDate == "" {
					GitCommitDate = s.Value
				}
			}
		}
	}

	for _, v := range []*string{&GitRelease, &GitCommit, &GitCommitDate, &GoInfo} {
		if *v == "" {
			*v = "unknown"
		}
	}
}
