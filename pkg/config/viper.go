package config

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/papercomputeco/chronicle/pkg/dotdir"
)

// EnvPrefix prefixes every environment variable viper reads.
const EnvPrefix = "CHRONICLE"

// InitViper layers, lowest first: NewDefaultConfig, config.toml from the
// resolved config dir, then CHRONICLE_* environment variables. Flags bound
// later through a FlagSet sit on top of all three. A missing config file is
// not an error.
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// EnvVarForKey returns the environment variable that overrides a dotted
// config key, e.g. CHRONICLE_VECTOR_STORE_TARGET for vector_store.target.
func EnvVarForKey(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Duration parses a duration-string key. An empty value yields zero.
func Duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// defaultSettings flattens NewDefaultConfig into dotted keys by round-tripping
// it through TOML, so the struct tags stay the only key mapping.
var defaultSettings = sync.OnceValue(func() map[string]any {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(NewDefaultConfig()); err != nil {
		panic(fmt.Sprintf("encoding default config: %v", err))
	}

	tree := make(map[string]any)
	if _, err := toml.Decode(buf.String(), &tree); err != nil {
		panic(fmt.Sprintf("decoding default config: %v", err))
	}

	flat := make(map[string]any)
	flattenInto(flat, "", tree)
	return flat
})

func flattenInto(dst map[string]any, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			flattenInto(dst, key, sub)
			continue
		}
		dst[key] = val
	}
}

func setViperDefaults(v *viper.Viper) {
	for key, val := range defaultSettings() {
		v.SetDefault(key, val)
	}
}
