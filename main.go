// databridge relays a serial telemetry link to a TCP endpoint over a
// cellular network path.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"databridge/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "databridge: %v\n", err)
		os.Exit(1)
	}
}
