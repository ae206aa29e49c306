// Command liminal validates, draws and runs state machine tables.
package main

import (
	"context"
	"os"

	"github.com/amp-labs/liminal/shutdown"
)

func main() {
	ctx := shutdown.SetupHandler(context.Background())

	err := rootCmd.ExecuteContext(ctx)

	shutdown.Run(context.Background(), shutdown.DefaultTimeout)

	if err != nil {
		os.Exit(1)
	}
}
