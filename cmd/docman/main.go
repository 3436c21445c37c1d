// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the docman CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	cmd := newRootCmd()
	err := cmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, cmd.UsageString())
		}
	}
	os.Exit(exitCode(err))
}
