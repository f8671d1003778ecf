// Command taskprof profiles how a batch of identical tasks spreads across
// workers when run serially and when run on a goroutine pool.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(os.Stdout, os.Stderr)
	if err := app.RunContext(ctx, os.Args); err != nil {
		_, _ = app.ErrWriter.Write([]byte(err.Error() + "\n"))
		stop()
		os.Exit(1)
	}
}
