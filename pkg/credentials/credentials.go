// Package credentials stores API keys for generation providers and the vector
// store in credentials.toml, next to config.toml in the .chronicle/ directory.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/chronicle/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

var (
	// ErrUnsupportedProvider is returned for a provider chronicle has no use for.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrNotStored is returned when removing a provider with no stored key.
	ErrNotStored = errors.New("no stored credentials")
)

var providers = []Provider{
	{Name: "gemini", EnvVar: "GOOGLE_AI_API_KEY", Purpose: "answer generation"},
	{Name: "openai", EnvVar: "OPENAI_API_KEY", Purpose: "answer generation"},
	{Name: "anthropic", EnvVar: "ANTHROPIC_API_KEY", Purpose: "answer generation"},
	{Name: "qdrant", EnvVar: "QDRANT_API_KEY", Purpose: "vector store"},
}

// Providers returns every provider that takes an API key, in display order.
func Providers() []Provider {
	return slices.Clone(providers)
}

// ProviderNames returns the names from Providers.
func ProviderNames() []string {
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name
	}
	return names
}

// Lookup finds a provider by case-insensitive name.
func Lookup(name string) (Provider, error) {
	name = normalize(name)
	for _, p := range providers {
		if p.Name == name {
			return p, nil
		}
	}
	return Provider{}, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedProvider, name, strings.Join(ProviderNames(), ", "))
}

// Manager reads and writes credentials.toml.
type Manager struct {
	path   string
	getenv func(string) string
	now    func() time.Time
}

// NewManager returns a Manager for credentials.toml in the .chronicle/
// directory. A non-empty override replaces dotdir resolution.
func NewManager(override string) (*Manager, error) {
	path, err := dotdir.NewManager().File(override, credentialsFile)
	if err != nil {
		return nil, err
	}

	return &Manager{path: path, getenv: os.Getenv, now: time.Now}, nil
}

// Path returns the credentials file location.
func (m *Manager) Path() string {
	return m.path
}

// Load reads credentials.toml. A missing file yields empty credentials.
func (m *Manager) Load() (*Credentials, error) {
	creds := &Credentials{Version: currentVersion}

	data, err := os.ReadFile(m.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading credentials: %w", err)
	default:
		if err := toml.Unmarshal(data, creds); err != nil {
			return nil, fmt.Errorf("parsing credentials %s: %w", m.path, err)
		}
	}

	if creds.Providers == nil {
		creds.Providers = make(map[string]Entry)
	}
	return creds, nil
}

// Save replaces credentials.toml with mode 0600. The file is written beside
// the target and renamed so a crash never leaves a truncated file.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".credentials-*.toml")
	if err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// SetKey stores key for provider.
func (m *Manager) SetKey(provider, key string) error {
	p, err := Lookup(provider)
	if err != nil {
		return err
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key cannot be empty")
	}

	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Providers[p.Name] = Entry{APIKey: key, UpdatedAt: m.now().UTC()}
	return m.Save(creds)
}

// RemoveKey deletes the stored key for provider.
func (m *Manager) RemoveKey(provider string) error {
	name := normalize(provider)

	creds, err := m.Load()
	if err != nil {
		return err
	}

	if _, ok := creds.Providers[name]; !ok {
		return fmt.Errorf("%w for %s", ErrNotStored, name)
	}

	delete(creds.Providers, name)
	return m.Save(creds)
}

// Resolve returns the key chronicle should use for provider: the environment
// variable when set, otherwise the stored key. Providers without a key
// resolve to an empty Key and no error.
func (m *Manager) Resolve(provider string) (Key, error) {
	name := normalize(provider)

	if p, err := Lookup(name); err == nil {
		if v := strings.TrimSpace(m.getenv(p.EnvVar)); v != "" {
			return Key{Value: v, Source: SourceEnv}, nil
		}
	}

	creds, err := m.Load()
	if err != nil {
		return Key{}, err
	}

	if e, ok := creds.Providers[name]; ok && e.APIKey != "" {
		return Key{Value: e.APIKey, Source: SourceFile}, nil
	}
	return Key{}, nil
}

// ResolveKey is Resolve without the source.
func (m *Manager) ResolveKey(provider string) (string, error) {
	k, err := m.Resolve(provider)
	return k.Value, err
}

// Statuses reports every supported provider, stored or not.
func (m *Manager) Statuses() ([]Status, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	out := make([]Status, 0, len(providers))
	for _, p := range providers {
		e, stored := creds.Providers[p.Name]
		out = append(out, Status{
			Provider:  p,
			Stored:    stored,
			EnvSet:    strings.TrimSpace(m.getenv(p.EnvVar)) != "",
			Masked:    Mask(e.APIKey),
			UpdatedAt: e.UpdatedAt,
		})
	}
	return out, nil
}

// Mask hides all but the last four characters of key.
func Mask(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 4) + key[len(key)-4:]
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
