// Package dotdir resolves the .chronicle/ directory that holds config.toml,
// credentials.toml and the default embedded databases.
package dotdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirName = ".chronicle"

	// HomeEnv points chronicle at an explicit directory, ahead of any
	// .chronicle/ discovered from the working directory.
	HomeEnv = "CHRONICLE_HOME"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path of the chronicle directory, in order of
// precedence:
//  1. overrideDir (--config-dir)
//  2. $CHRONICLE_HOME
//  3. the nearest .chronicle/ in the working directory or one of its parents
//  4. ~/.chronicle/
//
// The directory is created owner-only if it does not exist, since it holds
// API keys.
func (m *Manager) Target(overrideDir string) (string, error) {
	dir, err := m.resolve(overrideDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating chronicle directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// File returns the absolute path of name inside the resolved directory. The
// file itself is not created.
func (m *Manager) File(overrideDir, name string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, name), nil
}

func (m *Manager) resolve(overrideDir string) (string, error) {
	if overrideDir != "" {
		return overrideDir, nil
	}

	if env := os.Getenv(HomeEnv); env != "" {
		return env, nil
	}

	if dir, ok := findUp(); ok {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// findUp walks from the working directory towards the filesystem root and
// returns the first .chronicle/ directory it meets.
func findUp() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}

	for {
		candidate := filepath.Join(dir, dirName)
		info, err := os.Stat(candidate)
		switch {
		case err == nil && info.IsDir():
			return candidate, true
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return "", false
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
