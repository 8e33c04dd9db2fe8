// Specwright: guided requirements intake.
//
// Turns an unstructured business idea into a plain-language summary and a
// formal requirements document through conversation, from the terminal or
// from any AI tool that speaks MCP.
//
// Usage:
//
//	specwright serve          # Start MCP server (stdio transport)
//	specwright chat           # Start a session in the terminal
//	specwright session show ID
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/HendryAvila/specwright/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
