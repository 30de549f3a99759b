// lanshare – a LAN transport server with live port reconfiguration.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"lanshare/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "lanshare: %v\n", err)
		os.Exit(1)
	}
}
