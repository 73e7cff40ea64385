package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// FlagKind selects the pflag type a Flag registers as.
type FlagKind int

const (
	StringFlag FlagKind = iota
	UintFlag
)

// Flag describes a CLI flag that maps onto a config key. Commands register
// flags by registry key so the same setting keeps one name, shorthand and
// description everywhere it appears.
type Flag struct {
	Name      string
	Shorthand string

	// ViperKey is the dotted config key the flag overrides, e.g. "client.api_target".
	ViperKey string

	Description string
	Kind        FlagKind
}

// FlagSet maps registry keys to flag definitions.
type FlagSet map[string]Flag

// Registry keys.
const (
	FlagAPIListen       = "api-listen"
	FlagStorageProvider = "storage-provider"
	FlagSQLite          = "sqlite"
	FlagPostgresDSN     = "postgres-dsn"
	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStoreTgt  = "vector-store-target"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagGenerationProv  = "generation-provider"
	FlagGenerationModel = "generation-model"
	FlagEventStreamProv = "eventstream-provider"
	FlagAPITarget       = "api-target"
	FlagOwnerID         = "owner"
)

// ClientFlags are registered by every command that talks to a running server.
var ClientFlags = FlagSet{
	FlagAPITarget: {Name: "api-target", ViperKey: "client.api_target", Description: "Chronicle API server URL"},
	FlagOwnerID:   {Name: "owner", Shorthand: "o", ViperKey: "client.owner_id", Description: "Owner ID to act as"},
}

// Register adds the flags named by keys to cmd with defaults taken from
// NewDefaultConfig. Values are meant to be read back through viper after
// Bind, so the flag storage is owned by pflag. Unknown keys are ignored.
func (fs FlagSet) Register(cmd *cobra.Command, keys ...string) {
	defaults := defaultViper()

	for _, key := range keys {
		def, ok := fs[key]
		if !ok {
			continue
		}

		switch def.Kind {
		case UintFlag:
			cmd.Flags().UintP(def.Name, def.Shorthand, defaults.GetUint(def.ViperKey), def.Description)
		default:
			cmd.Flags().StringP(def.Name, def.Shorthand, defaults.GetString(def.ViperKey), def.Description)
		}
	}
}

// Bind connects registered flags to their viper keys, giving them the top
// spot in viper's precedence chain (flag > env > config file > default).
// Only flags the user actually set override lower layers.
func (fs FlagSet) Bind(v *viper.Viper, cmd *cobra.Command, keys ...string) error {
	var errs []error
	for _, key := range keys {
		def, ok := fs[key]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		if err := v.BindPFlag(def.ViperKey, f); err != nil {
			errs = append(errs, fmt.Errorf("binding --%s: %w", def.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Keys returns every registry key in fs.
func (fs FlagSet) Keys() []string {
	keys := make([]string, 0, len(fs))
	for k := range fs {
		keys = append(keys, k)
	}
	return keys
}

// ClientTarget is where a client command sends requests and who it acts as.
type ClientTarget struct {
	APITarget string
	OwnerID   string
}

// ResolveClient reads the API target and owner for a command that registered
// ClientFlags, honoring --config-dir and CHRONICLE_CLIENT_* variables.
func ResolveClient(cmd *cobra.Command) (ClientTarget, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := InitViper(configDir)
	if err != nil {
		return ClientTarget{}, fmt.Errorf("loading config: %w", err)
	}
	if err := ClientFlags.Bind(v, cmd, ClientFlags.Keys()...); err != nil {
		return ClientTarget{}, err
	}

	return ClientTarget{
		APITarget: v.GetString("client.api_target"),
		OwnerID:   v.GetString("client.owner_id"),
	}, nil
}

var defaultViper = sync.OnceValue(func() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
})
