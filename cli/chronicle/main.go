// Command chronicle is the chronicle server and client CLI.
package main

import (
	"context"
	"os"

	chroniclecmder "github.com/papercomputeco/chronicle/cmd/chronicle"
)

func main() {
	if err := chroniclecmder.NewChronicleCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
