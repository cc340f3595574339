// skylinkctl is the operator CLI for a running skylink service.
//
//	skylinkctl status
//	skylinkctl mode putting
//	skylinkctl handedness toggle
//	skylinkctl events --event shot_received
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
