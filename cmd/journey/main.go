// Package main provides the journey server: the engagement workflow engine
// and its HTTP API in one process, sharing the in-memory registry.
package main

import (
	"context"
	"os"

	"github.com/journeykit/journey/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	logger := log.WithModule("journey")

	cmd := &cli.Command{
		Name:                  "journey",
		Usage:                 "Run the customer engagement journey server",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			RunCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
