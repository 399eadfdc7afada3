package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	// Registers the generated OpenAPI spec served at /swagger.json.
	_ "github.com/fablehouse/fable/docs/swagger"
)

func main() {
	// Set up context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
