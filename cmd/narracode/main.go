// Command narracode is a command-line caller of the coding engine: one-shot
// and batch coding, an interactive chat, and inspection of coding tasks,
// services and the generation log.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "narracode: %v\n", err)
		stop()
		os.Exit(1)
	}
}
