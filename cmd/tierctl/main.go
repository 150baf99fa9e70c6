package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/tiermark/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Stderr.WriteString("tierctl: " + err.Error() + "\n")
		os.Exit(1)
	}
}
