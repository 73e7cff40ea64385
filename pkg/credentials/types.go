package credentials

import "time"

// Credentials is the on-disk layout of credentials.toml.
type Credentials struct {
	Version   int              `toml:"version"`
	Providers map[string]Entry `toml:"providers"`
}

// Entry is one stored provider key.
type Entry struct {
	APIKey    string    `toml:"api_key"`
	UpdatedAt time.Time `toml:"updated_at"`
}

// Provider describes a service chronicle can authenticate to.
type Provider struct {
	Name string

	// EnvVar overrides the stored key when set.
	EnvVar string

	// Purpose is shown by chronicle auth --list.
	Purpose string
}

// Source says where a resolved key came from.
type Source string

const (
	SourceNone Source = ""
	SourceEnv  Source = "env"
	SourceFile Source = "file"
)

// Key is a resolved API key.
type Key struct {
	Value  string
	Source Source
}

// Status summarizes one provider for listing.
type Status struct {
	Provider  Provider
	Stored    bool
	EnvSet    bool
	Masked    string
	UpdatedAt time.Time
}

// Active reports which source ResolveKey would use.
func (s Status) Active() Source {
	switch {
	case s.EnvSet:
		return SourceEnv
	case s.Stored:
		return SourceFile
	default:
		return SourceNone
	}
}
