package buildtime

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

//go:embed revision
var revision string

func init() {
	version = strings.TrimSpace(version)
	revision = strings.TrimSpace(revision)
}

// VERSION is the version of seqmap this binary was built as.
func VERSION() string {
	return version
}

// GIT_REVISION is the commit this binary was built from. "unknown" for local builds.
func GIT_REVISION() string {
	if revision == "" {
		return "unknown"
	}
	return revision
}

func VersionString() string {
	return VERSION() + " (commit: " + GIT_REVISION() + ")"
}
