// Package vectorutils builds a vector.Driver from configuration.
package vectorutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/chronicle/pkg/vector"
	"github.com/papercomputeco/chronicle/pkg/vector/chroma"
	"github.com/papercomputeco/chronicle/pkg/vector/qdrant"
	"github.com/papercomputeco/chronicle/pkg/vector/sqlitevec"
)

type NewVectorDriverOpts struct {
	// ProviderType is one of "qdrant", "chroma" or "sqlite".
	ProviderType string

	// Target is the qdrant gRPC address, the chroma URL or the sqlite path.
	Target string

	Collection string
	Dimensions uint
	APIKey     string
	Logger     *slog.Logger
}

func NewVectorDriver(o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "qdrant":
		return qdrant.NewDriver(qdrant.Config{
			Target:     o.Target,
			Collection: o.Collection,
			Dimensions: o.Dimensions,
			APIKey:     o.APIKey,
		}, o.Logger)
	case "chroma":
		return chroma.NewDriver(chroma.Config{
			URL:            o.Target,
			CollectionName: o.Collection,
		}, o.Logger)
	case "sqlite":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.Target,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("%w: unsupported vector store provider: %s", vector.ErrConfig, o.ProviderType)
	}
}
