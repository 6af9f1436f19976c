// ndog - a netcat-style utility for TCP/UDP data exchange, file
// transfer, and multi-peer chat.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ndog/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		// An operator interrupt is a clean shutdown, not a failure.
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ndog: %v\n", err)
		os.Exit(1)
	}
}
