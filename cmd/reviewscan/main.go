package main

import (
	"context"
	"os"
	"os/signal"

	"ReviewScanner/cmd/reviewscan/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	commands.ExecuteContext(ctx)
}
