package main

import (
	"context"
	"errors"
	"fmt"

	"dagger/chronicle/internal/dagger"
)

const golangciLintVersion = "v2.8.0"

// CheckTidy fails when go.mod or go.sum would change under "go mod tidy".
//
// +check
func (t *Chronicle) CheckTidy(ctx context.Context) (string, error) {
	_, err := t.goContainer().
		WithExec([]string{"go", "mod", "tidy", "-diff"}).
		Stdout(ctx)

	var execErr *dagger.ExecError
	switch {
	case errors.As(err, &execErr):
		return "", fmt.Errorf("module files need tidying, run 'go mod tidy':\n\n%s", execErr.Stdout)
	case err != nil:
		return "", err
	}

	return "module files are tidy", nil
}

// CheckLint runs golangci-lint with the repository config.
//
// +check
func (t *Chronicle) CheckLint(ctx context.Context) (string, error) {
	return dag.Golangcilint(t.Source, t.linter()).Check(ctx)
}

// FixLint applies golangci-lint autofixes and returns the rewritten source.
func (t *Chronicle) FixLint() *dagger.Directory {
	return dag.Golangcilint(t.Source, t.linter()).Lint()
}

// linter reuses goContainer so cgo and the sqlite headers are present when
// golangci-lint type-checks the sqlite driver.
func (t *Chronicle) linter() dagger.GolangcilintOpts {
	lintPkg := "github.com/golangci/golangci-lint/v2/cmd/golangci-lint@" + golangciLintVersion
	return dagger.GolangcilintOpts{
		BaseCtr: t.goContainer().WithExec([]string{"go", "install", lintPkg}),
		Config:  t.Source.File(".golangci.yml"),
	}
}
