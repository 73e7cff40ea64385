package main

import (
	"fmt"
	"strings"
	"time"

	"context"

	"dagger/chronicle/internal/dagger"
)

// Build and return directory of go binaries
//
// The sqlite drivers need cgo, so binaries are built natively for linux on the
// engine's architecture rather than cross-compiled.
func (t *Chronicle) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	path := "linux/"

	build := t.goContainer().
		WithExec([]string{"sh", "-c", "mkdir -p " + path + "$(go env GOARCH)"}).
		WithExec([]string{"sh", "-c", fmt.Sprintf("go build -ldflags %q -o %s$(go env GOARCH)/ ./cli/chronicle", ldflags, path)})

	return dag.Directory().WithDirectory(path, build.Directory(path))
}

// BuildRelease compiles versioned release binaries with embedded version info
func (t *Chronicle) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/chronicle/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/chronicle/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/chronicle/pkg/utils.Buildtime=%s'", buildtime),
	}

	return t.Build(ctx, strings.Join(ldflags, " "))
}
