// ./main.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/xkilldash9x/scout-cli/cmd"
	"github.com/xkilldash9x/scout-cli/internal/observability"
)

// main is the entry point for the Scout CLI application. The full binary with
// signal handling lives in cmd/scout; this thin wrapper keeps `go run .`
// working from the repository root.
func main() {
	err := cmd.Execute(context.Background())
	observability.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
